// Package main - tray.go
//
// This file implements the system tray UI: module states at a glance,
// pause/resume per module, a debug-dump toggle, and quit. Uses
// getlantern/systray for cross-platform tray menu support.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/getlantern/systray"
)

// TrayApp shows bot status in the system tray. Run blocks the calling
// goroutine until Quit is chosen or ctx is done.
type TrayApp struct {
	cfg      *Config
	reg      *Registry
	ctl      *Controller
	rec      *Recorder
	shutdown context.CancelFunc
}

func NewTrayApp(cfg *Config, reg *Registry, ctl *Controller, rec *Recorder, shutdown context.CancelFunc) *TrayApp {
	return &TrayApp{cfg: cfg, reg: reg, ctl: ctl, rec: rec, shutdown: shutdown}
}

// Run starts the tray loop. ctx done tears the tray down.
func (t *TrayApp) Run(ctx context.Context) {
	systray.Run(func() { t.onReady(ctx) }, t.onExit)
}

type trayModule struct {
	name   string
	status *systray.MenuItem
	toggle *systray.MenuItem
}

func (t *TrayApp) onReady(ctx context.Context) {
	systray.SetTitle("Bombie Bot")
	systray.SetTooltip("Bombie farm bot")

	modules := make([]*trayModule, 0, 2)
	for _, name := range []string{moduleDailyTasks, moduleChest} {
		status := systray.AddMenuItem(t.statusLine(name), "")
		status.Disable()
		toggle := systray.AddMenuItem(t.toggleLabel(name), "")
		modules = append(modules, &trayModule{name: name, status: status, toggle: toggle})
	}
	systray.AddSeparator()
	debugItem := systray.AddMenuItemCheckbox("Save perception crops", "Dump OCR/CV inputs to recordings/", t.cfg.Settings().Debug)
	quit := systray.AddMenuItem("Quit", "Stop the bot and exit")

	for _, m := range modules {
		go t.watchToggle(ctx, m)
	}

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				systray.Quit()
				return
			case <-quit.ClickedCh:
				t.cfg.Log("tray: quit requested")
				t.shutdown()
				systray.Quit()
				return
			case <-debugItem.ClickedCh:
				if debugItem.Checked() {
					debugItem.Uncheck()
					t.rec.SetEnabled(false)
				} else {
					debugItem.Check()
					t.rec.SetEnabled(true)
				}
				t.cfg.SetDebug(debugItem.Checked())
			case <-ticker.C:
				for _, m := range modules {
					m.status.SetTitle(t.statusLine(m.name))
					m.toggle.SetTitle(t.toggleLabel(m.name))
				}
			}
		}
	}()
}

func (t *TrayApp) watchToggle(ctx context.Context, m *trayModule) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.toggle.ClickedCh:
			t.toggleModule(m.name)
			m.toggle.SetTitle(t.toggleLabel(m.name))
			m.status.SetTitle(t.statusLine(m.name))
		}
	}
}

// toggleModule pauses a running module or arms anything else for the next
// scheduler tick. Arming also recovers a module stuck in the error state.
func (t *TrayApp) toggleModule(name string) {
	if t.reg.State(name) == StateRunning {
		t.cfg.Log("tray: pausing %s", name)
		t.ctl.Stop(name)
		t.reg.PauseUnscheduled(name)
		return
	}
	t.cfg.Log("tray: resuming %s", name)
	t.reg.Register(name)
	t.reg.PauseFor(name, 0)
}

func (t *TrayApp) toggleLabel(name string) string {
	if t.reg.State(name) == StateRunning {
		return "Pause " + shortName(name)
	}
	return "Resume " + shortName(name)
}

func (t *TrayApp) statusLine(name string) string {
	info, ok := t.reg.Info(name)
	if !ok {
		return fmt.Sprintf("%s: unregistered", shortName(name))
	}
	line := fmt.Sprintf("%s: %s", shortName(name), info.State)
	if !info.NextRun.IsZero() {
		if wait := time.Until(info.NextRun); wait > 0 {
			line += fmt.Sprintf(" (next in %s)", wait.Round(time.Second))
		} else {
			line += " (due)"
		}
	}
	if info.Err != "" {
		line += " [" + info.Err + "]"
	}
	return line
}

func shortName(name string) string {
	switch name {
	case moduleDailyTasks:
		return "Daily tasks"
	case moduleChest:
		return "Chests"
	}
	return name
}

func (t *TrayApp) onExit() {
	t.cfg.Log("tray: closed")
}
