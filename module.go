// Package main - module.go
//
// This file implements workflow module lifecycle: the registry of named
// modules with their states and schedule, the controller that runs module
// loops in goroutines, and the admission scheduler.
package main

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Module names, in admission priority order.
const (
	moduleDailyTasks = "daily_tasks_processor"
	moduleChest      = "chest_processor"
)

const schedulerTick = time.Second

// Outcome is the result of one workflow cycle.
type Outcome int

const (
	OutcomeContinue Outcome = iota
	OutcomeDone
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeDone:
		return "done"
	case OutcomeError:
		return "error"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// ModuleState is the lifecycle state of a module.
type ModuleState int

const (
	StateStopped ModuleState = iota
	StateRunning
	StatePaused
	StateError
)

func (s ModuleState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("ModuleState(%d)", int(s))
}

// ModuleInfo is a snapshot of one module's bookkeeping. NextRun is zero for
// a module that is paused without a schedule.
type ModuleInfo struct {
	Name      string        `json:"name"`
	State     string        `json:"state"`
	StartTime time.Time     `json:"start_time,omitempty"`
	StopTime  time.Time     `json:"stop_time,omitempty"`
	NextRun   time.Time     `json:"next_run,omitempty"`
	Wait      time.Duration `json:"-"`
	Err       string        `json:"error,omitempty"`
}

type module struct {
	name      string
	state     ModuleState
	startTime time.Time
	stopTime  time.Time
	nextRun   time.Time
	wait      time.Duration
	err       string
	cancel    context.CancelFunc
	done      chan struct{}
}

// Registry holds the known modules and enforces the state invariants:
// entering Running clears the schedule, pausing with a wait sets it,
// stopping or erroring clears it.
type Registry struct {
	mu      sync.Mutex
	modules map[string]*module
	order   []string
	cfg     *Config
}

func NewRegistry(cfg *Config) *Registry {
	return &Registry{modules: make(map[string]*module), cfg: cfg}
}

// Register adds a module in admission order. Registering an existing name
// is a no-op.
func (r *Registry) Register(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[name]; ok {
		return
	}
	r.modules[name] = &module{name: name, state: StateStopped}
	r.order = append(r.order, name)
	if r.cfg != nil {
		r.cfg.Log("module %s registered", name)
	}
}

// Order returns the registered names in admission priority order.
func (r *Registry) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Info returns a snapshot of one module.
func (r *Registry) Info(name string) (ModuleInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[name]
	if !ok {
		return ModuleInfo{}, false
	}
	return snapshot(m), true
}

func snapshot(m *module) ModuleInfo {
	return ModuleInfo{
		Name:      m.name,
		State:     m.state.String(),
		StartTime: m.startTime,
		StopTime:  m.stopTime,
		NextRun:   m.nextRun,
		Wait:      m.wait,
		Err:       m.err,
	}
}

// State returns the module's current state, StateStopped for unknown names.
func (r *Registry) State(name string) ModuleState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.modules[name]; ok {
		return m.state
	}
	return StateStopped
}

// SetRunning marks the module running and clears its schedule.
func (r *Registry) SetRunning(name string) {
	r.transition(name, func(m *module) {
		m.state = StateRunning
		m.startTime = time.Now()
		m.nextRun = time.Time{}
		m.wait = 0
	})
}

// PauseFor pauses the module and schedules its next admission after wait.
func (r *Registry) PauseFor(name string, wait time.Duration) {
	r.transition(name, func(m *module) {
		m.state = StatePaused
		m.stopTime = time.Now()
		m.wait = wait
		m.nextRun = time.Now().Add(wait)
	})
}

// PauseUnscheduled pauses the module without a next-run time; it stays idle
// until something else schedules it.
func (r *Registry) PauseUnscheduled(name string) {
	r.transition(name, func(m *module) {
		m.state = StatePaused
		m.stopTime = time.Now()
		m.wait = 0
		m.nextRun = time.Time{}
	})
}

// SetStopped marks the module stopped and clears its schedule.
func (r *Registry) SetStopped(name string) {
	r.transition(name, func(m *module) {
		m.state = StateStopped
		m.stopTime = time.Now()
		m.nextRun = time.Time{}
	})
}

// SetError marks the module failed; it will not be admitted again without
// external intervention.
func (r *Registry) SetError(name, msg string) {
	r.transition(name, func(m *module) {
		m.state = StateError
		m.stopTime = time.Now()
		m.nextRun = time.Time{}
		m.err = msg
	})
}

func (r *Registry) transition(name string, apply func(*module)) {
	r.mu.Lock()
	m, ok := r.modules[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	apply(m)
	state := m.state
	infos := make([]ModuleInfo, 0, len(r.order))
	for _, n := range r.order {
		infos = append(infos, snapshot(r.modules[n]))
	}
	r.mu.Unlock()
	if r.cfg != nil {
		r.cfg.Log("module %s -> %s", name, state)
		r.cfg.SaveStatus(infos)
	}
}

// Active returns the currently running modules.
func (r *Registry) Active() map[string]ModuleState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]ModuleState)
	for name, m := range r.modules {
		if m.state == StateRunning {
			out[name] = m.state
		}
	}
	return out
}

// due returns the first paused module in priority order whose next-run time
// has arrived.
func (r *Registry) due(now time.Time) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range r.order {
		m := r.modules[name]
		if m.state == StatePaused && !m.nextRun.IsZero() && !m.nextRun.After(now) {
			return name, true
		}
	}
	return "", false
}

// Controller starts and stops module loops.
type Controller struct {
	reg  *Registry
	cfg  *Config
	base context.Context

	mu sync.Mutex
}

func NewController(base context.Context, reg *Registry, cfg *Config) *Controller {
	return &Controller{reg: reg, cfg: cfg, base: base}
}

// Start launches the loop for a module. A module that is already running is
// not started again.
func (c *Controller) Start(name string, loop func(ctx context.Context)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reg.Register(name)
	if c.reg.State(name) == StateRunning {
		c.cfg.Log("module %s is already running", name)
		return false
	}
	ctx, cancel := context.WithCancel(c.base)
	done := make(chan struct{})
	c.reg.mu.Lock()
	m := c.reg.modules[name]
	m.cancel = cancel
	m.done = done
	c.reg.mu.Unlock()
	c.reg.SetRunning(name)
	go func() {
		defer close(done)
		loop(ctx)
		// A loop normally parks its module before returning. Exiting
		// while still marked running and not cancelled is a fault.
		if ctx.Err() == nil && c.reg.State(name) == StateRunning {
			c.reg.SetError(name, "module loop exited unexpectedly")
		}
	}()
	return true
}

// Stop cancels a running module's context and waits for its loop to
// return.
func (c *Controller) Stop(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reg.mu.Lock()
	m, ok := c.reg.modules[name]
	if !ok || m.state != StateRunning {
		c.reg.mu.Unlock()
		c.cfg.Log("module %s is not running", name)
		return false
	}
	cancel, done := m.cancel, m.done
	c.reg.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	c.reg.SetStopped(name)
	return true
}

// StopAll stops every running module.
func (c *Controller) StopAll() {
	for _, name := range c.reg.Order() {
		if c.reg.State(name) == StateRunning {
			c.Stop(name)
		}
	}
}

// RunScheduler admits due modules once a second until ctx is done. At most
// one module runs at a time; when several are due, priority order decides
// and only the first is started per tick.
func (c *Controller) RunScheduler(ctx context.Context, loops map[string]func(ctx context.Context)) {
	ticker := time.NewTicker(schedulerTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if len(c.reg.Active()) > 0 {
				continue
			}
			name, ok := c.reg.due(now)
			if !ok {
				continue
			}
			loop, ok := loops[name]
			if !ok {
				c.cfg.Log("module %s has no loop bound, marking error", name)
				c.reg.SetError(name, "no loop bound")
				continue
			}
			c.cfg.Log("scheduler: admitting %s", name)
			c.Start(name, loop)
		}
	}
}
