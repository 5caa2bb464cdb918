// Package main - debug.go
//
// This file implements the debug artifact recorder: perception crops are
// dumped as timestamped PNGs so detection failures can be diagnosed after
// the fact.
package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// Recorder writes named perception crops under the recordings directory.
// All writes are best effort; a failed dump is logged and ignored.
type Recorder struct {
	dir     string
	cfg     *Config
	enabled atomic.Bool
	seq     atomic.Uint64
}

func NewRecorder(cfg *Config) *Recorder {
	s := cfg.Settings()
	r := &Recorder{
		dir: filepath.Join(s.RecordingsDir, "screenshots"),
		cfg: cfg,
	}
	r.enabled.Store(s.Debug)
	return r
}

// SetEnabled toggles dumping at runtime.
func (r *Recorder) SetEnabled(v bool) {
	r.enabled.Store(v)
}

// Save dumps one crop. name labels the query that produced it.
func (r *Recorder) Save(name string, img image.Image) {
	if !r.enabled.Load() {
		return
	}
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		r.cfg.Log("recorder: %v", err)
		return
	}
	fname := fmt.Sprintf("%s_%s_%04d.png",
		time.Now().Format("20060102_150405"), name, r.seq.Add(1))
	f, err := os.Create(filepath.Join(r.dir, fname))
	if err != nil {
		r.cfg.Log("recorder: %v", err)
		return
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		r.cfg.Log("recorder: encode %s: %v", fname, err)
	}
}
