// Package main - browser.go
//
// This file manages the Chrome session hosting the Telegram Mini App:
// lifecycle, cookie persistence, frame capture, and in-page mouse input.
package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Browser owns the chromedp contexts for one game session.
type Browser struct {
	cfg *Config
	vp  Viewport

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

func NewBrowser(cfg *Config, vp Viewport) *Browser {
	return &Browser{cfg: cfg, vp: vp}
}

// Start launches Chrome sized to the game viewport, restores cookies, and
// navigates to the Mini App URL. The session is owned by the Browser and
// torn down by Stop rather than by the run context, so cookies can still be
// saved after the workflows are cancelled.
func (b *Browser) Start() error {
	s := b.cfg.Settings()
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.Headless),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-gpu", s.Headless),
		chromedp.WindowSize(b.vp.Width, b.vp.Height),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		b.cfg.BrowserLog(format, args...)
	}))
	b.ctx = ctx
	b.cancel = cancel
	b.allocCancel = allocCancel

	actions := []chromedp.Action{
		chromedp.EmulateViewport(int64(b.vp.Width), int64(b.vp.Height)),
	}
	cookies, err := b.cfg.LoadCookies()
	if err != nil {
		b.cfg.Log("browser: cookie restore skipped: %v", err)
	} else if len(cookies) > 0 {
		params := cookies
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			return network.SetCookies(params).Do(ctx)
		}))
		b.cfg.Log("browser: restoring %d cookies", len(params))
	}
	actions = append(actions, chromedp.Navigate(b.cfg.WebAppURL))

	if err := chromedp.Run(ctx, actions...); err != nil {
		b.Stop()
		return fmt.Errorf("start browser: %w", err)
	}
	b.cfg.Log("browser: session started at %s (%dx%d, headless=%v)",
		b.cfg.WebAppURL, b.vp.Width, b.vp.Height, s.Headless)
	return nil
}

// Screenshot captures the current frame as an image.
func (b *Browser) Screenshot(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf []byte
	if err := chromedp.Run(b.ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

// Click dispatches an in-page mouse click at viewport coordinates.
func (b *Browser) Click(ctx context.Context, x, y float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := chromedp.Run(b.ctx, chromedp.MouseClickXY(x, y)); err != nil {
		return fmt.Errorf("click (%.0f, %.0f): %w", x, y, err)
	}
	return nil
}

// CurrentURL returns the page location.
func (b *Browser) CurrentURL() (string, error) {
	var url string
	if err := chromedp.Run(b.ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("location: %w", err)
	}
	return url, nil
}

// Stop saves cookies and tears the session down.
func (b *Browser) Stop() {
	b.persistCookies()
	if b.cancel != nil {
		b.cancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
}

// persistCookies fetches the session cookies and writes them to disk. Every
// failure is logged; a session that is already gone cannot be queried.
func (b *Browser) persistCookies() {
	if b.ctx == nil {
		return
	}
	if err := b.ctx.Err(); err != nil {
		b.cfg.Log("browser: session already down, skipping cookie save: %v", err)
		return
	}
	var cookies []*network.Cookie
	err := chromedp.Run(b.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		b.cfg.Log("browser: cookie fetch failed: %v", err)
		return
	}
	if len(cookies) == 0 {
		return
	}
	if err := b.cfg.SaveCookies(cookies); err != nil {
		b.cfg.Log("browser: cookie save failed: %v", err)
		return
	}
	b.cfg.Log("browser: saved %d cookies", len(cookies))
}
