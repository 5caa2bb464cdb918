// Package main - main.go
//
// CLI entry point: load configuration, build the perception and workflow
// stack, run the bot, and keep the tray UI on the main goroutine.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagEnv      string
	flagURL      string
	flagHeadless bool
	flagDebug    bool
)

func main() {
	root := &cobra.Command{
		Use:           "bombie-bot",
		Short:         "Farm bot for the Bombie Telegram Mini App",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	root.Flags().StringVarP(&flagConfig, "config", "c", "bot.json", "settings file")
	root.Flags().StringVarP(&flagEnv, "env", "e", ".env", "env file with WEBAPP_URL")
	root.Flags().StringVar(&flagURL, "url", "", "Mini App URL override")
	root.Flags().BoolVar(&flagHeadless, "headless", false, "run Chrome headless")
	root.Flags().BoolVar(&flagDebug, "debug", false, "dump perception crops")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := InitConfig(flagConfig, flagEnv)
	if err != nil && flagURL != "" {
		// A URL on the command line can stand in for the env file.
		os.Setenv("WEBAPP_URL", flagURL)
		cfg, err = InitConfig(flagConfig, flagEnv)
	}
	if err != nil {
		return err
	}
	defer cfg.Close()
	if flagURL != "" {
		cfg.WebAppURL = flagURL
	}
	if cmd.Flags().Changed("headless") {
		cfg.SetHeadless(flagHeadless)
	}
	if cmd.Flags().Changed("debug") {
		cfg.SetDebug(flagDebug)
	}

	s := cfg.Settings()
	vp := LoadViewport(s.RecordingsDir)
	cfg.Log("main: viewport %dx%d", vp.Width, vp.Height)
	layout := NewLayout(vp)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	browser := NewBrowser(cfg, vp)
	if err := browser.Start(); err != nil {
		return err
	}
	defer browser.Stop()

	rec := NewRecorder(cfg)
	screen := NewScreen(browser, rec)

	words := NewWordReader(s.Languages)
	defer words.Close()
	digits := NewDigitReader(s.Languages)
	defer digits.Close()
	ocr := NewOCR(words, digits, cfg)

	cv, err := NewCV(s.TemplatesDir, cfg)
	if err != nil {
		return err
	}
	defer cv.Close()

	actor := NewActor(browser, layout, cfg)
	toggles := &ButtonFlags{}
	chest := NewChestFlow(cfg, screen, ocr, cv, actor, layout, toggles)
	task := NewTaskFlow(cfg, screen, ocr, cv, actor, layout, chest)
	reg := NewRegistry(cfg)
	ctl := NewController(ctx, reg, cfg)
	bot := NewBot(cfg, actor, chest, task, reg, ctl)

	errCh := make(chan error, 1)
	go func() {
		errCh <- bot.Run(ctx)
	}()

	// systray requires the main goroutine; it returns on quit or ctx done.
	tray := NewTrayApp(cfg, reg, ctl, rec, cancel)
	tray.Run(ctx)

	cancel()
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	cfg.Log("main: shut down cleanly")
	return nil
}
