// Package main - browser_test.go
package main

import (
	"context"
	"os"
	"testing"
)

func TestBrowserStopWithoutStart(t *testing.T) {
	b := NewBrowser(newTestConfig(t), DefaultViewport())
	// Must be a safe no-op before Start was ever called.
	b.Stop()
}

func TestBrowserStopSkipsCookieSaveWhenSessionDead(t *testing.T) {
	cfg := newTestConfig(t)
	b := NewBrowser(cfg, DefaultViewport())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.ctx = ctx
	b.cancel = func() {}

	b.Stop()

	if _, err := os.Stat(cfg.Settings().CookiePath); !os.IsNotExist(err) {
		t.Fatalf("a dead session must not produce a cookie file, stat err = %v", err)
	}
}
