// Command signin-tui is the terminal UI front end of the Ideal Forum auto
// sign-in bot.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/browser"
	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/config"
	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/logging"
	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/notify"
	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/schedule"
	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/signin"
	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/ui"
)

func main() {
	configFile := flag.String("config-file", "config.ini", "Path to the INI configuration file")
	flag.Parse()

	if err := run(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	settings, err := config.Load(configFile)
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so console logging is disabled and the
	// rotating file keeps the full record.
	log := logging.New(logging.Options{
		FilePath:    settings.LogFile,
		MaxSizeMB:   settings.MaxLogSize,
		BackupCount: settings.BackupCount,
		MinLevel:    logging.ParseLevel(settings.LogLevel),
		Console:     io.Discard,
	})
	defer log.Close()

	site := signin.DefaultSite()
	if settings.SiteProfile != "" {
		if site, err = signin.LoadSite(settings.SiteProfile); err != nil {
			return err
		}
	}

	launcher := browser.NewLauncher()
	if err := launcher.Initialize(); err != nil {
		return fmt.Errorf("browser unavailable: %w", err)
	}
	defer launcher.Shutdown()

	factory := func() (signin.Browser, error) {
		width, height, err := settings.WindowDimensions()
		if err != nil {
			return nil, err
		}
		sess, err := launcher.NewSession(browser.SessionOptions{
			Headless:  settings.Headless,
			UserAgent: settings.UserAgent,
			Width:     width,
			Height:    height,
		})
		if err != nil {
			return nil, err
		}
		return sess, nil
	}

	bot := signin.NewBot(settings, site, factory, log)
	notifier := notify.NewNotifier(settings.Email, log)
	checkin := func(ctx context.Context) (*signin.AttemptResult, error) {
		result, err := bot.Run(ctx)
		if result != nil {
			notifier.Notify(result)
		}
		return result, err
	}

	var loop *schedule.Loop
	if settings.EnableSchedule {
		loop, err = schedule.NewLoop(settings.SignHour, settings.SignMinute, checkin, log)
		if err != nil {
			return err
		}
	}

	return ui.Run(settings, checkin, loop)
}
