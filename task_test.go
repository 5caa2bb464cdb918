// Package main - task_test.go
package main

import (
	"context"
	"testing"
)

type taskHarness struct {
	flow   *TaskFlow
	page   *stubPage
	layout *Layout
}

func newTaskHarness(t *testing.T, p *scriptedPerception, c *stubClassifier) *taskHarness {
	t.Helper()
	cfg := newTestConfig(t)
	layout := NewLayout(DefaultViewport())
	page := &stubPage{}
	actor := NewActor(page, layout, cfg)
	screen := NewScreen(stubFrames{}, nil)
	flags := &ButtonFlags{}
	flags.SetAutoSkill(true)
	chest := NewChestFlow(cfg, screen, p, c, actor, layout, flags)
	flow := NewTaskFlow(cfg, screen, p, c, actor, layout, chest)
	return &taskHarness{flow: flow, page: page, layout: layout}
}

func TestCollectRewardsStopsWhenAffordanceGone(t *testing.T) {
	p := &scriptedPerception{menu: true, rewards: []bool{true}}
	h := newTaskHarness(t, p, &stubClassifier{})

	if !h.flow.collectRewards(context.Background()) {
		t.Fatal("collectRewards should report success")
	}
	if got := h.page.countIn(h.layout.DailyTaskRewards()); got != 1 {
		t.Fatalf("claim clicks = %d, want 1", got)
	}
	if got := h.page.countIn(h.layout.DailyTaskTab()); got != 1 {
		t.Fatalf("tab clicks = %d, want 1", got)
	}
}

func TestCollectRewardsHonorsClaimCap(t *testing.T) {
	rewards := make([]bool, maxRewardClaims+5)
	for i := range rewards {
		rewards[i] = true
	}
	p := &scriptedPerception{menu: true, rewards: rewards}
	h := newTaskHarness(t, p, &stubClassifier{})

	if !h.flow.collectRewards(context.Background()) {
		t.Fatal("hitting the cap should still report success")
	}
	if got := h.page.countIn(h.layout.DailyTaskRewards()); got != maxRewardClaims {
		t.Fatalf("claim clicks = %d, want the cap %d", got, maxRewardClaims)
	}
}

func TestTaskProcessAbortsWhenMenuUnreachable(t *testing.T) {
	p := &scriptedPerception{menu: false}
	h := newTaskHarness(t, p, &stubClassifier{})

	if got := h.flow.Process(context.Background()); got != OutcomeDone {
		t.Fatalf("outcome = %v", got)
	}
	if got := h.page.countIn(h.layout.CancelArea()); got != 1 {
		t.Fatalf("dismiss clicks = %d, want 1", got)
	}
	if h.page.total() != 1 {
		t.Fatalf("an aborted sweep should only click the dismiss, got %d", h.page.total())
	}
}

func TestTaskProcessFullCycle(t *testing.T) {
	p := &scriptedPerception{
		menu:     true,
		taskMenu: true,
		rewards:  []bool{true, true},
	}
	h := newTaskHarness(t, p, &stubClassifier{badge: true})

	if got := h.flow.Process(context.Background()); got != OutcomeContinue {
		t.Fatalf("outcome = %v", got)
	}
	if got := h.page.countIn(h.layout.TaskButton()); got != 1 {
		t.Fatalf("task button clicks = %d, want 1", got)
	}
	if got := h.page.countIn(h.layout.DailyTaskRewards()); got != 1 {
		t.Fatalf("claim clicks = %d, want 1", got)
	}
	if got := h.page.countAt(h.layout.Pixel(92, 66).X, h.layout.Pixel(92, 66).Y); got != 1 {
		t.Fatalf("mailbox clicks = %d, want 1", got)
	}
	if got := h.page.countIn(h.layout.InviteButton()); got != 1 {
		t.Fatalf("invite clicks = %d, want 1", got)
	}
	if got := h.page.countIn(h.layout.ShopFreeChest()); got != 2 {
		t.Fatalf("free chest clicks = %d, want a double click", got)
	}
	if got := h.page.countIn(h.layout.TrophyLikeButton()); got != 2 {
		t.Fatalf("like clicks = %d, want a double click", got)
	}
}

func TestTaskProcessDoneWhenTaskMenuMissing(t *testing.T) {
	p := &scriptedPerception{menu: true, taskMenu: false}
	h := newTaskHarness(t, p, &stubClassifier{})

	if got := h.flow.Process(context.Background()); got != OutcomeDone {
		t.Fatalf("outcome = %v", got)
	}
}

func TestClickToContinueGatesOnConfidence(t *testing.T) {
	p := &scriptedPerception{overlay: true, overlayConf: 0.4}
	h := newTaskHarness(t, p, &stubClassifier{})

	if h.flow.clickToContinue(context.Background()) {
		t.Fatal("a low-confidence overlay match should not be dismissed")
	}
	if h.page.total() != 0 {
		t.Fatalf("no clicks expected, got %d", h.page.total())
	}

	p.overlayConf = 0.9
	if !h.flow.clickToContinue(context.Background()) {
		t.Fatal("a confident overlay match should be dismissed")
	}
	if got := h.page.countIn(h.layout.CancelArea()); got != 1 {
		t.Fatalf("dismiss clicks = %d, want 1", got)
	}
}

func TestTaskProcessCancelledContext(t *testing.T) {
	p := &scriptedPerception{menu: true}
	h := newTaskHarness(t, p, &stubClassifier{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := h.flow.Process(ctx); got != OutcomeError {
		t.Fatalf("outcome = %v", got)
	}
}
