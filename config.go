// Package main - config.go
//
// This file manages bot configuration and persistence: the bot.json
// settings file (created with defaults when absent), the .env overlay for
// the web app URL, cookie persistence, the status file, and log output.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/joho/godotenv"
)

// Settings is the persisted tuning of the bot. Keyword lists carry both
// Russian and English variants because the game localizes its UI.
type Settings struct {
	ChestCooldownSec int `json:"chest_cooldown_sec"`
	DailyCooldownSec int `json:"daily_cooldown_sec"`
	RetryLimit       int `json:"retry_limit"`
	LoadWaitSec      int `json:"load_wait_sec"`

	ClickDelayMinMs    int `json:"click_delay_min_ms"`
	ClickDelayMaxMs    int `json:"click_delay_max_ms"`
	PostClickWaitMs    int `json:"post_click_wait_ms"`
	SequenceWaitUnitMs int `json:"sequence_wait_unit_ms"`

	MenuKeywords      []string `json:"menu_keywords"`
	ChestKeywords     []string `json:"chest_keywords"`
	TaskMenuKeywords  []string `json:"task_menu_keywords"`
	RewardKeywords    []string `json:"reward_keywords"`
	ContinueKeywords  []string `json:"continue_keywords"`
	MenuThreshold     float64  `json:"menu_threshold"`
	TaskMenuThreshold float64  `json:"task_menu_threshold"`
	RewardThreshold   float64  `json:"reward_threshold"`
	ContinueThreshold float64  `json:"continue_threshold"`

	Languages     []string `json:"languages"`
	TemplatesDir  string   `json:"templates_dir"`
	RecordingsDir string   `json:"recordings_dir"`
	CookiePath    string   `json:"cookie_path"`
	StatusPath    string   `json:"status_path"`
	LogPath       string   `json:"log_path"`
	BrowserLog    string   `json:"browser_log_path"`

	Headless bool `json:"headless"`
	Debug    bool `json:"debug"`
}

func defaultSettings() *Settings {
	return &Settings{
		ChestCooldownSec:   605,
		DailyCooldownSec:   1805,
		RetryLimit:         3,
		LoadWaitSec:        10,
		ClickDelayMinMs:    450,
		ClickDelayMaxMs:    1050,
		PostClickWaitMs:    1000,
		SequenceWaitUnitMs: 1000,
		MenuKeywords: []string{
			"навык", "задание", "пригл", "магаз",
			"skill", "quest", "invite", "shop", "store",
		},
		ChestKeywords: []string{
			"продать", "оборудовать", "автопродажа",
			"sell", "equip", "autosell",
		},
		TaskMenuKeywords: []string{
			"Dayli task", "Task", "Dally task",
			"начать", "получен", "start", "get", "Permanent Task",
		},
		RewardKeywords:    []string{"получ", "получить", "get"},
		ContinueKeywords:  []string{"нажмите", "область", "закрыть", "click", "area", "close"},
		MenuThreshold:     0.85,
		TaskMenuThreshold: 0.45,
		RewardThreshold:   0.6,
		ContinueThreshold: 0.2,
		Languages:         []string{"rus", "eng"},
		TemplatesDir:      "templates",
		RecordingsDir:     "recordings",
		CookiePath:        "cookie.json",
		StatusPath:        "status.json",
		LogPath:           "logs/bot.log",
		BrowserLog:        "logs/browser.log",
	}
}

// Config owns settings, the web app URL, and the log files. All reads of
// mutable state go through the mutex.
type Config struct {
	settings *Settings
	path     string

	WebAppURL string

	logFile        *os.File
	browserLogFile *os.File
	logger         *log.Logger
	browserLogger  *log.Logger

	mu sync.RWMutex
}

// InitConfig loads bot.json from path (creating it with defaults when
// missing), overlays the .env file, and opens the log files.
func InitConfig(path, envPath string) (*Config, error) {
	cfg := &Config{path: path}
	if err := cfg.load(); err != nil {
		return nil, err
	}
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load env %s: %w", envPath, err)
		}
	} else {
		// Best effort: a .env next to the binary is the common setup.
		_ = godotenv.Load()
	}
	cfg.WebAppURL = os.Getenv("WEBAPP_URL")
	if cfg.WebAppURL == "" {
		return nil, fmt.Errorf("WEBAPP_URL is not set; put the Mini App URL in %s", envPath)
	}
	if err := cfg.openLogs(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) load() error {
	raw, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		c.settings = defaultSettings()
		return c.save()
	}
	if err != nil {
		return fmt.Errorf("read settings %s: %w", c.path, err)
	}
	s := defaultSettings()
	if err := json.Unmarshal(raw, s); err != nil {
		return fmt.Errorf("parse settings %s: %w", c.path, err)
	}
	c.settings = s
	return nil
}

func (c *Config) save() error {
	raw, err := json.MarshalIndent(c.settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	if err := os.WriteFile(c.path, raw, 0644); err != nil {
		return fmt.Errorf("write settings %s: %w", c.path, err)
	}
	return nil
}

func (c *Config) openLogs() error {
	s := c.settings
	for _, p := range []string{s.LogPath, s.BrowserLog} {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(s.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	bf, err := os.OpenFile(s.BrowserLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		f.Close()
		return fmt.Errorf("open browser log file: %w", err)
	}
	c.logFile = f
	c.browserLogFile = bf
	c.logger = log.New(f, "", log.LstdFlags)
	c.browserLogger = log.New(bf, "", log.LstdFlags)
	return nil
}

// Log writes a line to the bot log.
func (c *Config) Log(format string, args ...interface{}) {
	c.mu.RLock()
	l := c.logger
	c.mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// BrowserLog writes a line to the browser log.
func (c *Config) BrowserLog(format string, args ...interface{}) {
	c.mu.RLock()
	l := c.browserLogger
	c.mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// Close flushes and closes log files.
func (c *Config) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.logFile != nil {
		c.logFile.Close()
		c.logFile = nil
	}
	if c.browserLogFile != nil {
		c.browserLogFile.Close()
		c.browserLogFile = nil
	}
}

// Settings returns a copy of the current settings.
func (c *Config) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return *c.settings
}

// SetHeadless and SetDebug apply CLI flag overrides on top of the file.
func (c *Config) SetHeadless(v bool) {
	c.mu.Lock()
	c.settings.Headless = v
	c.mu.Unlock()
}

func (c *Config) SetDebug(v bool) {
	c.mu.Lock()
	c.settings.Debug = v
	c.mu.Unlock()
}

// ClickDelayBounds returns the humanized pre-click delay window.
func (c *Config) ClickDelayBounds() (time.Duration, time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.settings.ClickDelayMinMs) * time.Millisecond,
		time.Duration(c.settings.ClickDelayMaxMs) * time.Millisecond
}

// PostClickWait returns the settle time after state-changing clicks.
func (c *Config) PostClickWait() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.settings.PostClickWaitMs) * time.Millisecond
}

// SequenceWaitUnit scales the fixed waits inside scripted click sequences.
func (c *Config) SequenceWaitUnit() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.settings.SequenceWaitUnitMs) * time.Millisecond
}

// ChestCooldown and DailyCooldown are the pause durations between runs.
func (c *Config) ChestCooldown() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.settings.ChestCooldownSec) * time.Second
}

func (c *Config) DailyCooldown() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.settings.DailyCooldownSec) * time.Second
}

// SaveCookies persists browser cookies for session reuse.
func (c *Config) SaveCookies(cookies []*network.Cookie) error {
	c.mu.RLock()
	path := c.settings.CookiePath
	c.mu.RUnlock()
	raw, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cookies: %w", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("write cookies %s: %w", path, err)
	}
	return nil
}

// LoadCookies restores persisted cookies. A missing file is not an error.
func (c *Config) LoadCookies() ([]*network.CookieParam, error) {
	c.mu.RLock()
	path := c.settings.CookiePath
	c.mu.RUnlock()
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cookies %s: %w", path, err)
	}
	var cookies []*network.CookieParam
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return nil, fmt.Errorf("parse cookies %s: %w", path, err)
	}
	return cookies, nil
}

// SaveStatus writes the module status snapshot for external monitoring.
func (c *Config) SaveStatus(v interface{}) {
	c.mu.RLock()
	path := c.settings.StatusPath
	c.mu.RUnlock()
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		c.Log("status: marshal failed: %v", err)
		return
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		c.Log("status: write failed: %v", err)
	}
}
