// Package main - screen.go
//
// This file provides frame capture and region cropping for the perception
// layer.
package main

import (
	"context"
	"fmt"
	"image"
	"image/draw"
)

type frameSource interface {
	Screenshot(ctx context.Context) (image.Image, error)
}

// cropImage cuts the axis-aligned bounding box of r out of img, clamped to
// the frame. The second result is false when the region is degenerate or
// falls entirely outside the frame.
func cropImage(img image.Image, r Region) (image.Image, bool) {
	minX, minY, maxX, maxY := r.Bounds()
	if maxX <= minX || maxY <= minY {
		return nil, false
	}
	fb := img.Bounds()
	w, h := fb.Dx(), fb.Dy()
	left := clampInt(int(minX), 0, w-1)
	right := clampInt(int(maxX), 0, w)
	top := clampInt(int(minY), 0, h-1)
	bottom := clampInt(int(maxY), 0, h)
	if right <= left || bottom <= top {
		return nil, false
	}
	rect := image.Rect(fb.Min.X+left, fb.Min.Y+top, fb.Min.X+right, fb.Min.Y+bottom)
	if sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(rect), true
	}
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out, true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Screen captures frames from the browser and hands named crops to the
// perception layer, optionally dumping them for debugging.
type Screen struct {
	src frameSource
	rec *Recorder
}

func NewScreen(src frameSource, rec *Recorder) *Screen {
	return &Screen{src: src, rec: rec}
}

// Capture grabs a full frame.
func (s *Screen) Capture(ctx context.Context) (image.Image, error) {
	img, err := s.src.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture frame: %w", err)
	}
	return img, nil
}

// CaptureRegion grabs a frame and crops it to the region. name labels the
// crop in debug dumps.
func (s *Screen) CaptureRegion(ctx context.Context, r Region, name string) (image.Image, error) {
	img, err := s.Capture(ctx)
	if err != nil {
		return nil, err
	}
	cropped, ok := cropImage(img, r)
	if !ok {
		return nil, fmt.Errorf("region %q is empty after clamping to the frame", name)
	}
	if s.rec != nil {
		s.rec.Save(name, cropped)
	}
	return cropped, nil
}
