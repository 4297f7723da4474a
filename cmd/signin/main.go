// Command signin is the command-line front end of the Ideal Forum auto
// sign-in bot: environment checks, one-off check-ins, and the daily
// scheduler.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/browser"
	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/config"
	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/logging"
	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/notify"
	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/schedule"
	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/signin"
)

const version = "1.0.0"

// CLIConfig holds the parsed command-line flags.
type CLIConfig struct {
	ConfigFile  string
	Check       bool
	Test        bool
	Sign        bool
	Schedule    bool
	ShowConfig  bool
	FullTest    bool
	ShowVersion bool
}

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("signin v%s\n", version)
		return
	}

	// Graceful shutdown on interrupt; the scheduler loop exits through this
	// context, an in-flight attempt still runs to completion.
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nshutting down...")
		cancel()
	}()

	if err := run(ctx, cli); err != nil {
		cancel()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	cancel()
}

func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.StringVar(&cli.ConfigFile, "config-file", "config.ini", "Path to the INI configuration file")
	flag.BoolVar(&cli.Check, "check", false, "Check environment: config validity and browser availability")
	flag.BoolVar(&cli.Test, "test", false, "Dry run: launch a browser and load the forum without logging in")
	flag.BoolVar(&cli.Sign, "sign", false, "Run one check-in immediately")
	flag.BoolVar(&cli.Schedule, "schedule", false, "Run the daily scheduler until interrupted")
	flag.BoolVar(&cli.ShowConfig, "config", false, "Show the active configuration")
	flag.BoolVar(&cli.FullTest, "full-test", false, "Run a real check-in after an interactive confirmation")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Ideal Forum Auto Sign-in Bot\n\n")
		fmt.Fprintf(os.Stderr, "Usage: signin [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  signin -check                  # verify config and browser\n")
		fmt.Fprintf(os.Stderr, "  signin -sign                   # check in right now\n")
		fmt.Fprintf(os.Stderr, "  signin -schedule               # daily check-in at sign_time\n")
		fmt.Fprintf(os.Stderr, "  signin -config-file my.ini -config\n")
	}

	flag.Parse()
	return cli
}

func run(ctx context.Context, cli *CLIConfig) error {
	settings, err := config.Load(cli.ConfigFile)
	if err != nil {
		return err
	}

	log := logging.New(logging.Options{
		FilePath:    settings.LogFile,
		MaxSizeMB:   settings.MaxLogSize,
		BackupCount: settings.BackupCount,
		MinLevel:    logging.ParseLevel(settings.LogLevel),
	})
	defer log.Close()

	switch {
	case cli.ShowConfig:
		fmt.Print(settings.Summary())
		return nil
	case cli.Check:
		return runCheck(log)
	case cli.Test:
		return runDryRun(settings, log)
	case cli.Sign:
		return runSign(ctx, settings, log)
	case cli.FullTest:
		if !confirm("This performs a real login and sign-in. Continue? [y/N] ") {
			fmt.Println("aborted")
			return nil
		}
		return runSign(ctx, settings, log)
	case cli.Schedule:
		return runScheduler(ctx, settings, log)
	default:
		flag.Usage()
		return nil
	}
}

// runCheck verifies the browser environment is usable.
func runCheck(log *logging.Logger) error {
	log.Infof("checking browser environment")
	launcher := browser.NewLauncher()
	if err := launcher.Initialize(); err != nil {
		return fmt.Errorf("browser environment check failed: %w", err)
	}
	defer launcher.Shutdown()
	log.Successf("browser environment OK")
	return nil
}

// runDryRun opens the forum front page without logging in, proving the
// browser and network path work.
func runDryRun(settings *config.Settings, log *logging.Logger) error {
	site, err := loadSite(settings)
	if err != nil {
		return err
	}

	launcher := browser.NewLauncher()
	if err := launcher.Initialize(); err != nil {
		return fmt.Errorf("browser unavailable: %w", err)
	}
	defer launcher.Shutdown()

	sess, err := newSession(launcher, settings)
	if err != nil {
		return err
	}
	defer sess.Close()

	log.Infof("dry run: loading %s", site.MainURL)
	if err := sess.Navigate(site.MainURL, settings.PageLoadTimeout); err != nil {
		return fmt.Errorf("dry run failed: %w", err)
	}
	log.Successf("dry run OK, reached %s", sess.URL())
	return nil
}

func runSign(ctx context.Context, settings *config.Settings, log *logging.Logger) error {
	bot, launcher, err := buildBot(settings, log)
	if err != nil {
		return err
	}
	defer launcher.Shutdown()

	result, err := bot.Run(ctx)
	if err != nil {
		return err
	}

	notify.NewNotifier(settings.Email, log).Notify(result)

	if !result.Succeeded() {
		return fmt.Errorf("check-in failed: %s", result)
	}
	fmt.Println(result)
	return nil
}

func runScheduler(ctx context.Context, settings *config.Settings, log *logging.Logger) error {
	if !settings.EnableSchedule {
		return fmt.Errorf("scheduling is disabled: set enable_schedule = true in [SCHEDULE]")
	}

	bot, launcher, err := buildBot(settings, log)
	if err != nil {
		return err
	}
	defer launcher.Shutdown()

	notifier := notify.NewNotifier(settings.Email, log)
	checkin := func(ctx context.Context) (*signin.AttemptResult, error) {
		result, err := bot.Run(ctx)
		if result != nil {
			notifier.Notify(result)
		}
		return result, err
	}

	loop, err := schedule.NewLoop(settings.SignHour, settings.SignMinute, checkin, log)
	if err != nil {
		return err
	}

	log.Infof("scheduler starting, daily check-in at %s", settings.SignTime)
	loop.Run(ctx)
	return nil
}

// buildBot wires the workflow against a real browser. The launcher is
// initialized eagerly so a missing browser surfaces before the first
// scheduled fire.
func buildBot(settings *config.Settings, log *logging.Logger) (*signin.Bot, *browser.Launcher, error) {
	site, err := loadSite(settings)
	if err != nil {
		return nil, nil, err
	}

	launcher := browser.NewLauncher()
	if err := launcher.Initialize(); err != nil {
		return nil, nil, fmt.Errorf("browser unavailable: %w", err)
	}

	factory := func() (signin.Browser, error) {
		sess, err := newSession(launcher, settings)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}

	return signin.NewBot(settings, site, factory, log), launcher, nil
}

func newSession(launcher *browser.Launcher, settings *config.Settings) (*browser.Session, error) {
	width, height, err := settings.WindowDimensions()
	if err != nil {
		return nil, err
	}
	return launcher.NewSession(browser.SessionOptions{
		Headless:  settings.Headless,
		UserAgent: settings.UserAgent,
		Width:     width,
		Height:    height,
	})
}

func loadSite(settings *config.Settings) (*signin.Site, error) {
	if settings.SiteProfile == "" {
		return signin.DefaultSite(), nil
	}
	return signin.LoadSite(settings.SiteProfile)
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
