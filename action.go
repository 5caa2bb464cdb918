// Package main - action.go
//
// This file implements humanized input: every click is preceded by a random
// delay and lands on a random interior point of its target region.
package main

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Reference coordinates of clicks calibrated on the 412x815 layout that do
// not correspond to a catalog region.
const (
	lootClickRefX = 73
	lootClickRefY = 703

	mailClickRefX = 92
	mailClickRefY = 66

	startClickMinX = 243
	startClickMaxX = 280
	startClickMinY = 742
	startClickMaxY = 751
)

type clicker interface {
	Click(ctx context.Context, x, y float64) error
}

// Actor performs clicks against the page with human-like variance.
type Actor struct {
	page   clicker
	layout *Layout
	cfg    *Config

	mu  sync.Mutex
	rng *rand.Rand
}

func NewActor(page clicker, layout *Layout, cfg *Config) *Actor {
	return &Actor{
		page:   page,
		layout: layout,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (a *Actor) randDuration(min, max time.Duration) time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if max <= min {
		return min
	}
	// Millisecond steps keep the delay at the usual human resolution.
	steps := int64((max-min)/time.Millisecond) + 1
	return min + time.Duration(a.rng.Int63n(steps))*time.Millisecond
}

func (a *Actor) randFloat(min, max float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return min + a.rng.Float64()*(max-min)
}

func (a *Actor) randomPoint(r Region) Point {
	a.mu.Lock()
	defer a.mu.Unlock()
	return r.RandomPoint(a.rng, &a.layout.VP)
}

// Delay blocks for the humanized pre-click window or until ctx is done.
func (a *Actor) Delay(ctx context.Context) error {
	min, max := a.cfg.ClickDelayBounds()
	return sleepCtx(ctx, a.randDuration(min, max))
}

// Settle blocks for the post-click settle time or until ctx is done.
func (a *Actor) Settle(ctx context.Context) error {
	return sleepCtx(ctx, a.cfg.PostClickWait())
}

// Sleep blocks for d or until ctx is done.
func (a *Actor) Sleep(ctx context.Context, d time.Duration) error {
	return sleepCtx(ctx, d)
}

// scaleDuration multiplies a base unit by a fractional count.
func scaleDuration(unit time.Duration, units float64) time.Duration {
	return time.Duration(float64(unit) * units)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ClickPoint delays, then clicks the exact point.
func (a *Actor) ClickPoint(ctx context.Context, p Point) error {
	if err := a.Delay(ctx); err != nil {
		return err
	}
	return a.page.Click(ctx, p.X, p.Y)
}

// ClickRegion delays, then clicks a random interior point of the region.
func (a *Actor) ClickRegion(ctx context.Context, r Region) error {
	return a.ClickPoint(ctx, a.randomPoint(r))
}

// SafeClick hits the neutral cancel area to dismiss whatever is on top.
func (a *Actor) SafeClick(ctx context.Context) error {
	return a.ClickRegion(ctx, a.layout.CancelArea())
}

// ClickRef clicks a point calibrated on the reference layout, scaled to the
// live viewport.
func (a *Actor) ClickRef(ctx context.Context, refX, refY float64) error {
	return a.ClickPoint(ctx, a.layout.Pixel(refX, refY))
}

// StartClick hits the game launch button band to get past the title screen.
func (a *Actor) StartClick(ctx context.Context) error {
	p := a.layout.Pixel(
		a.randFloat(startClickMinX, startClickMaxX),
		a.randFloat(startClickMinY, startClickMaxY),
	)
	return a.ClickPoint(ctx, p)
}
