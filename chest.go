// Package main - chest.go
//
// This file implements the chest processing workflow: verify the main menu,
// read the chest counter, open a chest, make sure autosell is on, and equip
// or sell the drop depending on the power delta.
package main

import (
	"context"
	"image"
	"strconv"
	"sync"
)

// perceiver is the text perception surface the workflows consume.
type perceiver interface {
	CheckText(img image.Image, candidates []string, zone *Region, threshold float64) (bool, float64)
	ReadDigits(img image.Image) []string
}

// classifier is the CV surface the workflows consume.
type classifier interface {
	AutosellChecked(img image.Image) bool
	PowerIncrease(img image.Image) bool
	AutoSkillEnabled(img image.Image) bool
	IncorrectEquipChoice(img image.Image) bool
	DailyRewardBadge(img image.Image) bool
}

// ButtonFlags tracks the sticky game toggles so the bot does not re-detect
// them on every cycle. One instance is shared by both workflows.
type ButtonFlags struct {
	mu        sync.Mutex
	autoSkill bool
	autosell  bool
}

func (f *ButtonFlags) AutoSkill() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.autoSkill
}

func (f *ButtonFlags) SetAutoSkill(v bool) {
	f.mu.Lock()
	f.autoSkill = v
	f.mu.Unlock()
}

func (f *ButtonFlags) Autosell() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.autosell
}

func (f *ButtonFlags) SetAutosell(v bool) {
	f.mu.Lock()
	f.autosell = v
	f.mu.Unlock()
}

// ChestFlow drives one chest processing cycle.
type ChestFlow struct {
	cfg    *Config
	screen *Screen
	ocr    perceiver
	cv     classifier
	actor  *Actor
	layout *Layout
	flags  *ButtonFlags
}

func NewChestFlow(cfg *Config, screen *Screen, ocr perceiver, cv classifier, actor *Actor, layout *Layout, flags *ButtonFlags) *ChestFlow {
	return &ChestFlow{
		cfg:    cfg,
		screen: screen,
		ocr:    ocr,
		cv:     cv,
		actor:  actor,
		layout: layout,
		flags:  flags,
	}
}

// mainMenu reports whether the main menu is on screen, by looking for menu
// keywords in the bottom third. While there, it arms auto-skill if the flag
// says it is off.
func (f *ChestFlow) mainMenu(ctx context.Context) bool {
	img, err := f.screen.Capture(ctx)
	if err != nil {
		f.cfg.Log("chest: menu check capture failed: %v", err)
		return false
	}
	s := f.cfg.Settings()
	bottom := SplitZones(f.layout.VP).Bottom
	found, conf := f.ocr.CheckText(img, s.MenuKeywords, &bottom, s.MenuThreshold)
	if !found {
		return false
	}
	f.cfg.Log("chest: main menu confirmed (confidence %.2f)", conf)
	if !f.flags.AutoSkill() {
		f.ensureAutoSkill(ctx)
	}
	return true
}

// ensureAutoSkill checks the auto-skill toggle and clicks it when off. The
// resulting state is recorded in the shared flags either way.
func (f *ChestFlow) ensureAutoSkill(ctx context.Context) bool {
	area := f.layout.AutoSkillArea()
	img, err := f.screen.CaptureRegion(ctx, area, "auto_skill")
	if err != nil {
		f.cfg.Log("chest: auto-skill capture failed: %v", err)
		return false
	}
	enabled := f.cv.AutoSkillEnabled(img)
	if !enabled {
		if err := f.actor.ClickRegion(ctx, f.layout.AutoSkillButton()); err != nil {
			return false
		}
		if err := f.actor.Settle(ctx); err != nil {
			return false
		}
		img, err = f.screen.CaptureRegion(ctx, area, "auto_skill")
		if err != nil {
			f.cfg.Log("chest: auto-skill recheck capture failed: %v", err)
			return false
		}
		enabled = f.cv.AutoSkillEnabled(img)
	}
	f.flags.SetAutoSkill(enabled)
	f.cfg.Log("chest: auto-skill enabled=%v", enabled)
	return enabled
}

// hasChests reads the chest counter. An unparseable reading counts as
// chests available, so a misread never strands unopened chests.
func (f *ChestFlow) hasChests(ctx context.Context) bool {
	img, err := f.screen.CaptureRegion(ctx, f.layout.ChestCounter(), "chest_counter")
	if err != nil {
		f.cfg.Log("chest: counter capture failed: %v", err)
		return false
	}
	texts := f.ocr.ReadDigits(img)
	if len(texts) == 0 {
		return false
	}
	count, err := strconv.Atoi(texts[0])
	if err != nil {
		f.cfg.Log("chest: counter %q is not a plain number, assuming chests remain", texts[0])
		return true
	}
	f.cfg.Log("chest: %d chests available", count)
	return count > 0
}

// chestScreenOpen reports whether the item screen of an opened chest is
// visible.
func (f *ChestFlow) chestScreenOpen(ctx context.Context) bool {
	img, err := f.screen.Capture(ctx)
	if err != nil {
		return false
	}
	area := f.layout.ChestButton()
	found, _ := f.ocr.CheckText(img, f.cfg.Settings().ChestKeywords, &area, 0)
	return found
}

// ensureAutosell makes sure the autosell checkbox is ticked, clicking it
// once when it is not. The check looks at the checkbox area expanded by
// half so template matching has context around the box.
func (f *ChestFlow) ensureAutosell(ctx context.Context) bool {
	if f.flags.Autosell() {
		return true
	}
	area := f.layout.AutosellButton().Expand(0.5, f.layout.VP)
	img, err := f.screen.CaptureRegion(ctx, area, "autosell")
	if err != nil {
		f.cfg.Log("chest: autosell capture failed: %v", err)
		return false
	}
	if f.cv.AutosellChecked(img) {
		f.cfg.Log("chest: autosell already on")
		f.flags.SetAutosell(true)
		return true
	}
	f.cfg.Log("chest: autosell off, clicking the checkbox")
	if err := f.actor.ClickRegion(ctx, f.layout.AutosellButton()); err != nil {
		return false
	}
	if err := f.actor.Delay(ctx); err != nil {
		return false
	}
	img, err = f.screen.CaptureRegion(ctx, area, "autosell")
	if err != nil {
		f.cfg.Log("chest: autosell recheck capture failed: %v", err)
		return false
	}
	checked := f.cv.AutosellChecked(img)
	f.flags.SetAutosell(checked)
	f.cfg.Log("chest: autosell now %v", checked)
	return checked
}

// decideSellOrEquip reads the power delta and acts on it: green equips, red
// sells. If the warning about a wrong choice pops up afterwards, it is
// dismissed and the opposite action taken.
func (f *ChestFlow) decideSellOrEquip(ctx context.Context) bool {
	area := f.layout.PowerArea().Expand(0.1, f.layout.VP)
	img, err := f.screen.CaptureRegion(ctx, area, "power")
	if err != nil {
		f.cfg.Log("chest: power capture failed: %v", err)
		return false
	}
	increase := f.cv.PowerIncrease(img)

	first, second := f.layout.SellButton(), f.layout.EquipButton()
	if increase {
		first, second = second, first
		f.cfg.Log("chest: power increase, equipping")
	} else {
		f.cfg.Log("chest: power decrease, selling")
	}
	if err := f.actor.ClickRegion(ctx, first); err != nil {
		return false
	}
	if err := f.actor.Settle(ctx); err != nil {
		return false
	}
	check, err := f.screen.Capture(ctx)
	if err != nil {
		return false
	}
	if f.cv.IncorrectEquipChoice(check) {
		f.cfg.Log("chest: wrong-choice warning, taking the opposite action")
		if err := f.actor.SafeClick(ctx); err != nil {
			return false
		}
		if err := f.actor.ClickRegion(ctx, second); err != nil {
			return false
		}
	}
	return true
}

// sellOrEquip handles an opened chest end to end, reopening it once when
// the item screen is not actually up.
func (f *ChestFlow) sellOrEquip(ctx context.Context) bool {
	if !f.chestScreenOpen(ctx) {
		if !f.mainMenu(ctx) {
			return false
		}
		if err := f.actor.ClickRegion(ctx, f.layout.ChestButton()); err != nil {
			return false
		}
		if err := f.actor.Settle(ctx); err != nil {
			return false
		}
	}
	if !f.ensureAutosell(ctx) {
		return false
	}
	return f.decideSellOrEquip(ctx)
}

// Process runs one chest cycle. Failed sub-steps retry from the top up to
// the configured limit; exhausting it escapes via the back button and
// reports an error.
func (f *ChestFlow) Process(ctx context.Context) Outcome {
	limit := f.cfg.Settings().RetryLimit
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return OutcomeError
		}
		if attempt >= limit {
			f.cfg.Log("chest: %d attempts exhausted, backing out", attempt)
			if err := f.actor.ClickRegion(ctx, f.layout.BackButton()); err != nil {
				f.cfg.Log("chest: back-out click failed: %v", err)
			} else if err := f.actor.Settle(ctx); err != nil {
				f.cfg.Log("chest: back-out settle interrupted: %v", err)
			}
			return OutcomeError
		}
		f.cfg.Log("chest: cycle attempt %d/%d", attempt+1, limit)

		if !f.mainMenu(ctx) {
			f.cfg.Log("chest: not on the main menu, dismissing overlays")
			if err := f.actor.SafeClick(ctx); err != nil {
				return OutcomeError
			}
			continue
		}
		if !f.hasChests(ctx) {
			f.cfg.Log("chest: no chests available")
			return OutcomeDone
		}

		// Freebies sometimes drop near the chest while it opens.
		if err := f.actor.ClickRef(ctx, lootClickRefX, lootClickRefY); err != nil {
			return OutcomeError
		}
		if err := f.actor.ClickRef(ctx, lootClickRefX, lootClickRefY); err != nil {
			return OutcomeError
		}

		if err := f.actor.ClickRegion(ctx, f.layout.ChestButton()); err != nil {
			return OutcomeError
		}
		if err := f.actor.Settle(ctx); err != nil {
			return OutcomeError
		}

		if !f.sellOrEquip(ctx) {
			f.cfg.Log("chest: item handling failed, retrying")
			continue
		}
		f.cfg.Log("chest: cycle complete")
		return OutcomeContinue
	}
}
