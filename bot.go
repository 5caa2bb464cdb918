// Package main - bot.go
//
// This file ties the pieces together: launch the game past its title
// screen, register the workflow modules, and run the admission scheduler.
package main

import (
	"context"
	"time"
)

// errorRetryWait is the pause after a failed chest cycle before retrying.
const errorRetryWait = 5 * time.Second

// Bot runs the two workflow modules against one game session.
type Bot struct {
	cfg   *Config
	actor *Actor
	chest *ChestFlow
	task  *TaskFlow
	reg   *Registry
	ctl   *Controller
}

func NewBot(cfg *Config, actor *Actor, chest *ChestFlow, task *TaskFlow, reg *Registry, ctl *Controller) *Bot {
	return &Bot{cfg: cfg, actor: actor, chest: chest, task: task, reg: reg, ctl: ctl}
}

// Registry exposes module states for the tray.
func (b *Bot) Registry() *Registry {
	return b.reg
}

// Run clicks through the title screen, waits for the game to load, and
// hands control to the scheduler until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.cfg.Log("bot: launching the game")
	if err := b.actor.StartClick(ctx); err != nil {
		return err
	}
	if err := b.actor.Sleep(ctx, b.actor.randDuration(100*time.Millisecond, 700*time.Millisecond)); err != nil {
		return err
	}
	loadWait := time.Duration(b.cfg.Settings().LoadWaitSec) * time.Second
	b.cfg.Log("bot: waiting %s for the game to load", loadWait)
	if err := b.actor.Sleep(ctx, loadWait); err != nil {
		return err
	}

	b.reg.Register(moduleDailyTasks)
	b.reg.Register(moduleChest)
	// Daily tasks run first; the chest module is armed when they finish.
	b.reg.PauseFor(moduleDailyTasks, 0)
	b.reg.PauseUnscheduled(moduleChest)

	defer b.ctl.StopAll()
	b.ctl.RunScheduler(ctx, map[string]func(ctx context.Context){
		moduleDailyTasks: b.dailyLoop,
		moduleChest:      b.chestLoop,
	})
	return ctx.Err()
}

// chestLoop processes chests until none remain, then parks the module for
// its cooldown.
func (b *Bot) chestLoop(ctx context.Context) {
	for ctx.Err() == nil && b.reg.State(moduleChest) == StateRunning {
		switch b.chest.Process(ctx) {
		case OutcomeContinue:
			continue
		case OutcomeDone:
			b.reg.PauseFor(moduleChest, b.cfg.ChestCooldown())
			return
		case OutcomeError:
			if ctx.Err() != nil {
				return
			}
			b.cfg.Log("bot: chest cycle failed, retrying in %s", errorRetryWait)
			if sleepCtx(ctx, errorRetryWait) != nil {
				return
			}
		}
	}
}

// dailyLoop processes daily tasks until nothing is claimable, then parks
// the module for its cooldown and arms the chest module to run right away.
func (b *Bot) dailyLoop(ctx context.Context) {
	for ctx.Err() == nil && b.reg.State(moduleDailyTasks) == StateRunning {
		switch b.task.Process(ctx) {
		case OutcomeContinue:
			if sleepCtx(ctx, time.Second) != nil {
				return
			}
		case OutcomeDone:
			b.reg.PauseFor(moduleDailyTasks, b.cfg.DailyCooldown())
			b.reg.PauseFor(moduleChest, 0)
			return
		case OutcomeError:
			if ctx.Err() != nil {
				return
			}
			b.cfg.Log("bot: daily cycle failed, retrying")
		}
	}
}
