// Package main - task.go
//
// This file implements the daily-task workflow: sweep the free rewards
// (invite, shop, trophy, mailbox), open the daily tab of the tasks screen,
// and claim rewards until the claim affordance disappears.
package main

import (
	"context"
)

// maxRewardClaims bounds the claim loop; the claim button disappearing is
// the normal exit.
const maxRewardClaims = 20

// continueConfirm is the mean-confidence gate on top of the low continue
// keyword threshold.
const continueConfirm = 0.6

// TaskFlow drives one daily-task cycle. It shares the menu detection (and
// through it the toggle flags) with the chest workflow.
type TaskFlow struct {
	cfg    *Config
	screen *Screen
	ocr    perceiver
	cv     classifier
	actor  *Actor
	layout *Layout
	chest  *ChestFlow
}

func NewTaskFlow(cfg *Config, screen *Screen, ocr perceiver, cv classifier, actor *Actor, layout *Layout, chest *ChestFlow) *TaskFlow {
	return &TaskFlow{
		cfg:    cfg,
		screen: screen,
		ocr:    ocr,
		cv:     cv,
		actor:  actor,
		layout: layout,
		chest:  chest,
	}
}

// pause waits for the given number of scripted-sequence units (one unit is
// a second by default).
func (f *TaskFlow) pause(ctx context.Context, units float64) error {
	unit := f.cfg.SequenceWaitUnit()
	return sleepCtx(ctx, scaleDuration(unit, units))
}

// clickToContinue dismisses a "tap to continue" overlay when one is up.
// The keywords are matched at a low threshold and the mean confidence is
// gated separately, because these overlays render over animated
// backgrounds.
func (f *TaskFlow) clickToContinue(ctx context.Context) bool {
	img, err := f.screen.Capture(ctx)
	if err != nil {
		f.cfg.Log("task: continue check capture failed: %v", err)
		return false
	}
	s := f.cfg.Settings()
	found, conf := f.ocr.CheckText(img, s.ContinueKeywords, nil, s.ContinueThreshold)
	if !found || conf <= continueConfirm {
		return false
	}
	f.cfg.Log("task: continue overlay detected (confidence %.2f)", conf)
	if err := f.actor.SafeClick(ctx); err != nil {
		return false
	}
	if err := f.pause(ctx, 0.7); err != nil {
		return false
	}
	return true
}

// dailyBadge looks at the task button badge. The classifier verdict is
// logged but rewards are treated as available regardless: the badge
// templates are not reliable enough to skip a sweep on.
func (f *TaskFlow) dailyBadge(ctx context.Context) bool {
	area := f.layout.TaskButton().Expand(0.4, f.layout.VP)
	img, err := f.screen.CaptureRegion(ctx, area, "task_badge")
	if err != nil {
		f.cfg.Log("task: badge capture failed: %v", err)
		return true
	}
	f.cfg.Log("task: badge classifier says available=%v (advisory)", f.cv.DailyRewardBadge(img))
	return true
}

// taskMenuVisible verifies the tasks screen is up, with one retry after a
// short wait for slow tab loads.
func (f *TaskFlow) taskMenuVisible(ctx context.Context) bool {
	s := f.cfg.Settings()
	area := f.layout.DailyTaskTab()
	for try := 0; try < 2; try++ {
		if try > 0 {
			if err := f.pause(ctx, 1); err != nil {
				return false
			}
		}
		img, err := f.screen.Capture(ctx)
		if err != nil {
			f.cfg.Log("task: menu check capture failed: %v", err)
			return false
		}
		found, conf := f.ocr.CheckText(img, s.TaskMenuKeywords, &area, s.TaskMenuThreshold)
		f.cfg.Log("task: menu check found=%v (confidence %.2f)", found, conf)
		if found {
			return true
		}
	}
	return false
}

// openDailyTasks opens the tasks screen and selects the daily tab.
func (f *TaskFlow) openDailyTasks(ctx context.Context) bool {
	// The game settles slowly after the free-reward sweep.
	if err := f.pause(ctx, 10); err != nil {
		return false
	}
	if err := f.actor.ClickRegion(ctx, f.layout.TaskButton()); err != nil {
		return false
	}
	if err := f.pause(ctx, 0.7); err != nil {
		return false
	}
	if err := f.actor.ClickRegion(ctx, f.layout.DailyTaskTab()); err != nil {
		return false
	}
	if err := f.pause(ctx, 1.5); err != nil {
		return false
	}
	return f.taskMenuVisible(ctx)
}

// rewardsAvailable reports whether a claimable reward is on screen,
// dismissing continue overlays in between looks.
func (f *TaskFlow) rewardsAvailable(ctx context.Context) bool {
	s := f.cfg.Settings()
	for try := 0; try < s.RetryLimit; try++ {
		img, err := f.screen.Capture(ctx)
		if err != nil {
			f.cfg.Log("task: rewards capture failed: %v", err)
			return false
		}
		found, conf := f.ocr.CheckText(img, s.RewardKeywords, nil, s.RewardThreshold)
		if found {
			f.cfg.Log("task: claimable reward found (confidence %.2f)", conf)
			return true
		}
		if !f.clickToContinue(ctx) {
			return false
		}
		f.cfg.Log("task: dismissed an overlay, re-checking rewards")
	}
	return false
}

// collectRewards claims rewards until none remain.
func (f *TaskFlow) collectRewards(ctx context.Context) bool {
	for claims := 0; claims < maxRewardClaims; claims++ {
		if !f.rewardsAvailable(ctx) {
			f.cfg.Log("task: no more rewards after %d claims", claims)
			return true
		}
		// Re-select the tab so the claim row is in its known place.
		if err := f.actor.ClickRegion(ctx, f.layout.DailyTaskTab()); err != nil {
			return false
		}
		if err := f.pause(ctx, 0.5); err != nil {
			return false
		}
		if err := f.actor.ClickRegion(ctx, f.layout.DailyTaskRewards()); err != nil {
			return false
		}
		if err := f.pause(ctx, 0.7); err != nil {
			return false
		}
	}
	f.cfg.Log("task: claim cap reached, treating as collected")
	return true
}

// ensureMainMenu verifies the main menu, giving it one corrective safe
// click when something is covering it.
func (f *TaskFlow) ensureMainMenu(ctx context.Context) bool {
	if f.chest.mainMenu(ctx) {
		return true
	}
	f.cfg.Log("task: not on the main menu, dismissing")
	if err := f.actor.SafeClick(ctx); err != nil {
		return false
	}
	if err := f.pause(ctx, 1); err != nil {
		return false
	}
	return f.chest.mainMenu(ctx)
}

// doubleClick clicks the same random point of a region twice with a short
// gap, the way reward rows need it.
func (f *TaskFlow) doubleClick(ctx context.Context, r Region, gapUnits float64) error {
	p := f.actor.randomPoint(r)
	if err := f.actor.ClickPoint(ctx, p); err != nil {
		return err
	}
	if err := f.pause(ctx, gapUnits); err != nil {
		return err
	}
	return f.actor.ClickPoint(ctx, p)
}

// collectFreeRewards runs the scripted sweep over the invite, shop, trophy
// and mailbox screens. Each block re-verifies the main menu; failing to
// restore it aborts the sweep.
func (f *TaskFlow) collectFreeRewards(ctx context.Context) bool {
	if !f.ensureMainMenu(ctx) {
		f.cfg.Log("task: cannot reach the main menu, aborting the sweep")
		return false
	}

	// Invite screen: invite a friend, then the daily invite reward.
	if err := f.actor.ClickRegion(ctx, f.layout.InviteButton()); err != nil {
		return false
	}
	if err := f.pause(ctx, 5); err != nil {
		return false
	}
	if err := f.doubleClick(ctx, f.layout.InviteFriendButton(), 5); err != nil {
		return false
	}
	if err := f.pause(ctx, 1); err != nil {
		return false
	}
	if err := f.actor.ClickRegion(ctx, f.layout.InviteDailyReward()); err != nil {
		return false
	}
	if err := f.pause(ctx, 5); err != nil {
		return false
	}
	if err := f.doubleClick(ctx, f.layout.InviteDailyRewardClaim(), 3); err != nil {
		return false
	}
	if err := f.pause(ctx, 1); err != nil {
		return false
	}
	if err := f.actor.SafeClick(ctx); err != nil {
		return false
	}
	if err := f.pause(ctx, 1); err != nil {
		return false
	}
	if err := f.actor.ClickRegion(ctx, f.layout.BackButton()); err != nil {
		return false
	}
	if err := f.pause(ctx, 0.5); err != nil {
		return false
	}
	if !f.ensureMainMenu(ctx) {
		f.cfg.Log("task: main menu lost after the invite block")
		return false
	}

	// Shop: the free chest.
	if err := f.actor.ClickRegion(ctx, f.layout.ShopButton()); err != nil {
		return false
	}
	if err := f.pause(ctx, 5); err != nil {
		return false
	}
	if err := f.doubleClick(ctx, f.layout.ShopFreeChest(), 2); err != nil {
		return false
	}
	if err := f.pause(ctx, 1); err != nil {
		return false
	}
	if err := f.actor.SafeClick(ctx); err != nil {
		return false
	}
	if !f.ensureMainMenu(ctx) {
		f.cfg.Log("task: main menu lost after the shop block")
		return false
	}

	// Trophy screen: the like reward.
	if err := f.actor.ClickRegion(ctx, f.layout.TrophyButton()); err != nil {
		return false
	}
	if err := f.pause(ctx, 5); err != nil {
		return false
	}
	if err := f.doubleClick(ctx, f.layout.TrophyLikeButton(), 1); err != nil {
		return false
	}
	if err := f.pause(ctx, 1); err != nil {
		return false
	}
	if err := f.actor.ClickRegion(ctx, f.layout.BackButton()); err != nil {
		return false
	}
	if err := f.pause(ctx, 0.5); err != nil {
		return false
	}
	if !f.ensureMainMenu(ctx) {
		f.cfg.Log("task: main menu lost after the trophy block")
		return false
	}

	// Mailbox: the envelope has no stable region, its spot is calibrated.
	if err := f.actor.ClickRef(ctx, mailClickRefX, mailClickRefY); err != nil {
		return false
	}
	if err := f.pause(ctx, 5); err != nil {
		return false
	}
	if err := f.doubleClick(ctx, f.layout.MailRewards(), 1); err != nil {
		return false
	}
	if err := f.pause(ctx, 1); err != nil {
		return false
	}
	if err := f.actor.SafeClick(ctx); err != nil {
		return false
	}
	if err := f.pause(ctx, 1); err != nil {
		return false
	}
	if !f.ensureMainMenu(ctx) {
		f.cfg.Log("task: main menu lost after the mailbox block")
		return false
	}

	f.cfg.Log("task: free-reward sweep complete")
	return true
}

// Process runs one daily-task cycle.
func (f *TaskFlow) Process(ctx context.Context) Outcome {
	if ctx.Err() != nil {
		return OutcomeError
	}
	f.cfg.Log("task: cycle start")

	if !f.collectFreeRewards(ctx) {
		// The sweep is best effort: a broken block parks the module
		// until the next scheduled run.
		return OutcomeDone
	}

	if !f.ensureMainMenu(ctx) {
		f.cfg.Log("task: main menu unreachable after the sweep")
		return OutcomeError
	}

	if !f.dailyBadge(ctx) {
		f.actor.SafeClick(ctx)
		f.actor.Delay(ctx)
		return OutcomeDone
	}

	if !f.openDailyTasks(ctx) {
		f.cfg.Log("task: could not open the daily tab")
		return OutcomeDone
	}

	if err := f.pause(ctx, 1.4); err != nil {
		return OutcomeError
	}
	if !f.rewardsAvailable(ctx) {
		f.cfg.Log("task: nothing to claim")
		f.actor.SafeClick(ctx)
		f.actor.Delay(ctx)
		return OutcomeDone
	}

	if !f.collectRewards(ctx) {
		f.actor.SafeClick(ctx)
		f.actor.Delay(ctx)
		return OutcomeDone
	}

	f.cfg.Log("task: cycle complete")
	return OutcomeContinue
}
