// Package main - module_test.go
package main

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRegistryStateTransitions(t *testing.T) {
	reg := NewRegistry(newTestConfig(t))
	reg.Register(moduleChest)

	if got := reg.State(moduleChest); got != StateStopped {
		t.Fatalf("fresh module state = %v", got)
	}

	reg.PauseFor(moduleChest, time.Minute)
	info, ok := reg.Info(moduleChest)
	if !ok || info.State != "paused" || info.NextRun.IsZero() {
		t.Fatalf("after PauseFor: %+v", info)
	}

	reg.SetRunning(moduleChest)
	info, _ = reg.Info(moduleChest)
	if info.State != "running" || !info.NextRun.IsZero() || info.StartTime.IsZero() {
		t.Fatalf("running must clear the schedule and stamp the start: %+v", info)
	}

	reg.PauseUnscheduled(moduleChest)
	info, _ = reg.Info(moduleChest)
	if info.State != "paused" || !info.NextRun.IsZero() {
		t.Fatalf("unscheduled pause must have no next run: %+v", info)
	}

	reg.SetError(moduleChest, "boom")
	info, _ = reg.Info(moduleChest)
	if info.State != "error" || info.Err != "boom" || !info.NextRun.IsZero() {
		t.Fatalf("after SetError: %+v", info)
	}

	reg.SetStopped(moduleChest)
	if got := reg.State(moduleChest); got != StateStopped {
		t.Fatalf("after SetStopped: %v", got)
	}
}

func TestRegistryDuePriorityOrder(t *testing.T) {
	reg := NewRegistry(newTestConfig(t))
	reg.Register(moduleDailyTasks)
	reg.Register(moduleChest)

	reg.PauseFor(moduleDailyTasks, 0)
	reg.PauseFor(moduleChest, 0)

	name, ok := reg.due(time.Now().Add(time.Millisecond))
	if !ok || name != moduleDailyTasks {
		t.Fatalf("daily tasks must be admitted first, got %q (ok=%v)", name, ok)
	}

	reg.SetRunning(moduleDailyTasks)
	name, ok = reg.due(time.Now().Add(time.Millisecond))
	if !ok || name != moduleChest {
		t.Fatalf("chest should be next, got %q (ok=%v)", name, ok)
	}
}

func TestRegistryDueSkipsUnscheduledAndFuture(t *testing.T) {
	reg := NewRegistry(newTestConfig(t))
	reg.Register(moduleDailyTasks)
	reg.Register(moduleChest)

	reg.PauseUnscheduled(moduleDailyTasks)
	reg.PauseFor(moduleChest, time.Hour)

	if name, ok := reg.due(time.Now()); ok {
		t.Fatalf("nothing should be due, got %q", name)
	}
}

func TestControllerStartRefusesRunningDuplicate(t *testing.T) {
	cfg := newTestConfig(t)
	reg := NewRegistry(cfg)
	ctl := NewController(context.Background(), reg, cfg)

	started := make(chan struct{})
	loop := func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		reg.PauseUnscheduled(moduleChest)
	}
	if !ctl.Start(moduleChest, loop) {
		t.Fatal("first start should succeed")
	}
	<-started
	if ctl.Start(moduleChest, func(ctx context.Context) {}) {
		t.Fatal("second start of a running module should be refused")
	}
	if !ctl.Stop(moduleChest) {
		t.Fatal("stop of a running module should succeed")
	}
	if got := reg.State(moduleChest); got != StateStopped {
		t.Fatalf("state after Stop = %v", got)
	}
	if len(reg.Active()) != 0 {
		t.Fatalf("no modules should be active, got %v", reg.Active())
	}
}

func TestControllerStopInterruptsSleep(t *testing.T) {
	cfg := newTestConfig(t)
	reg := NewRegistry(cfg)
	ctl := NewController(context.Background(), reg, cfg)

	started := make(chan struct{})
	ctl.Start(moduleChest, func(ctx context.Context) {
		close(started)
		sleepCtx(ctx, time.Hour)
		reg.PauseUnscheduled(moduleChest)
	})
	<-started

	done := make(chan struct{})
	go func() {
		ctl.Stop(moduleChest)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not interrupt the sleeping loop")
	}
	if got := reg.State(moduleChest); got != StateStopped {
		t.Fatalf("state after Stop = %v", got)
	}
}

func TestControllerMarksUnexpectedExit(t *testing.T) {
	cfg := newTestConfig(t)
	reg := NewRegistry(cfg)
	ctl := NewController(context.Background(), reg, cfg)

	ctl.Start(moduleChest, func(ctx context.Context) {})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if reg.State(moduleChest) == StateError {
			info, _ := reg.Info(moduleChest)
			if info.Err == "" {
				t.Fatalf("error state without a message: %+v", info)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("a loop returning while running should be marked as an error")
}

func TestSchedulerAdmitsInPriorityOrder(t *testing.T) {
	cfg := newTestConfig(t)
	reg := NewRegistry(cfg)
	reg.Register(moduleDailyTasks)
	reg.Register(moduleChest)
	reg.PauseFor(moduleDailyTasks, 0)
	reg.PauseFor(moduleChest, 0)

	var mu sync.Mutex
	var order []string
	record := func(name string) func(ctx context.Context) {
		return func(ctx context.Context) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			reg.PauseFor(name, time.Hour)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3500*time.Millisecond)
	defer cancel()
	ctl := NewController(ctx, reg, cfg)
	ctl.RunScheduler(ctx, map[string]func(ctx context.Context){
		moduleDailyTasks: record(moduleDailyTasks),
		moduleChest:      record(moduleChest),
	})

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != moduleDailyTasks || order[1] != moduleChest {
		t.Fatalf("admission order = %v", order)
	}
}

func TestOutcomeAndStateStrings(t *testing.T) {
	if OutcomeContinue.String() != "continue" || OutcomeDone.String() != "done" || OutcomeError.String() != "error" {
		t.Fatal("outcome strings drifted")
	}
	if StateRunning.String() != "running" || StatePaused.String() != "paused" {
		t.Fatal("state strings drifted")
	}
}
