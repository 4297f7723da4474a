// Package config loads and validates the bot settings from an INI file.
// The file keeps the section layout the project has always used:
// [LOGIN], [SETTINGS], [BROWSER], [SCHEDULE], [LOGGING], [EMAIL], [SITE].
//
// Settings are loaded once at startup and treated as immutable afterwards;
// changing the file requires a restart.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// ConfigError reports a missing or invalid setting. It is fatal: callers must
// not start any browser work after receiving one.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Key, e.Reason)
}

// EmailSettings configures the optional result notification mail.
type EmailSettings struct {
	Enabled         bool
	SMTPServer      string
	SMTPPort        int
	SenderEmail     string
	SenderPassword  string
	ReceiverEmail   string
	Subject         string
	NotifyOnSuccess bool
	NotifyOnFailure bool
}

// Settings holds everything the bot reads from config.ini.
type Settings struct {
	// [LOGIN]
	Username string
	Password string

	// [SETTINGS]
	LoginTimeout    time.Duration
	PageLoadTimeout time.Duration
	RetryCount      int
	Headless        bool

	// [BROWSER]
	UserAgent  string
	WindowSize string // "WIDTHxHEIGHT", e.g. "1920x1080"

	// [SCHEDULE]
	SignTime       string // "HH:MM", 24-hour
	SignHour       int
	SignMinute     int
	EnableSchedule bool

	// [LOGGING]
	LogLevel    string
	LogFile     string
	MaxLogSize  int // megabytes
	BackupCount int

	// [SITE] optional path to a YAML site profile overriding the built-in
	// selectors and markers.
	SiteProfile string

	Email EmailSettings
}

const (
	defaultLoginTimeout    = 15
	defaultPageLoadTimeout = 30
	defaultRetryCount      = 3
	defaultUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultWindowSize      = "1920x1080"
	defaultSignTime        = "09:00"
	defaultLogLevel        = "INFO"
	defaultLogFile         = "sign_log.txt"
	defaultMaxLogSize      = 10
	defaultBackupCount     = 7
)

// Load reads the INI file at path and returns validated Settings. Any
// validation failure is a *ConfigError and must abort before browser work.
func Load(path string) (*Settings, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, &ConfigError{Key: path, Reason: fmt.Sprintf("cannot read config file: %v", err)}
	}

	login := file.Section("LOGIN")
	settings := file.Section("SETTINGS")
	browser := file.Section("BROWSER")
	schedule := file.Section("SCHEDULE")
	logging := file.Section("LOGGING")
	email := file.Section("EMAIL")
	site := file.Section("SITE")

	s := &Settings{
		Username:        strings.TrimSpace(login.Key("username").String()),
		Password:        login.Key("password").String(),
		LoginTimeout:    time.Duration(settings.Key("login_timeout").MustInt(defaultLoginTimeout)) * time.Second,
		PageLoadTimeout: time.Duration(settings.Key("page_load_timeout").MustInt(defaultPageLoadTimeout)) * time.Second,
		RetryCount:      settings.Key("retry_count").MustInt(defaultRetryCount),
		Headless:        settings.Key("headless").MustBool(true),
		UserAgent:       browser.Key("user_agent").MustString(defaultUserAgent),
		WindowSize:      browser.Key("window_size").MustString(defaultWindowSize),
		SignTime:        schedule.Key("sign_time").MustString(defaultSignTime),
		EnableSchedule:  schedule.Key("enable_schedule").MustBool(false),
		LogLevel:        logging.Key("log_level").MustString(defaultLogLevel),
		LogFile:         logging.Key("log_file").MustString(defaultLogFile),
		MaxLogSize:      logging.Key("max_log_size").MustInt(defaultMaxLogSize),
		BackupCount:     logging.Key("backup_count").MustInt(defaultBackupCount),
		SiteProfile:     site.Key("profile").String(),
		Email: EmailSettings{
			Enabled:         email.Key("enable_email").MustBool(false),
			SMTPServer:      email.Key("smtp_server").String(),
			SMTPPort:        email.Key("smtp_port").MustInt(587),
			SenderEmail:     email.Key("sender_email").String(),
			SenderPassword:  email.Key("sender_password").String(),
			ReceiverEmail:   email.Key("receiver_email").String(),
			Subject:         email.Key("email_subject").MustString("理想论坛自动签到通知"),
			NotifyOnSuccess: email.Key("notify_on_success").MustBool(true),
			NotifyOnFailure: email.Key("notify_on_failure").MustBool(true),
		},
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the invariants the rest of the program relies on.
func (s *Settings) Validate() error {
	if s.Username == "" || s.Username == "your_username_here" {
		return &ConfigError{Key: "LOGIN.username", Reason: "username is not configured"}
	}
	if s.Password == "" || s.Password == "your_password_here" {
		return &ConfigError{Key: "LOGIN.password", Reason: "password is not configured"}
	}
	if s.RetryCount < 1 {
		return &ConfigError{Key: "SETTINGS.retry_count", Reason: "must be at least 1"}
	}
	if s.LoginTimeout <= 0 {
		return &ConfigError{Key: "SETTINGS.login_timeout", Reason: "must be positive"}
	}
	if s.PageLoadTimeout <= 0 {
		return &ConfigError{Key: "SETTINGS.page_load_timeout", Reason: "must be positive"}
	}

	hour, minute, err := ParseSignTime(s.SignTime)
	if err != nil {
		return &ConfigError{Key: "SCHEDULE.sign_time", Reason: err.Error()}
	}
	s.SignHour, s.SignMinute = hour, minute

	if _, _, err := s.WindowDimensions(); err != nil {
		return &ConfigError{Key: "BROWSER.window_size", Reason: err.Error()}
	}

	if s.Email.Enabled {
		if s.Email.SMTPServer == "" {
			return &ConfigError{Key: "EMAIL.smtp_server", Reason: "required when enable_email is true"}
		}
		if s.Email.SenderEmail == "" || s.Email.ReceiverEmail == "" {
			return &ConfigError{Key: "EMAIL", Reason: "sender_email and receiver_email are required when enable_email is true"}
		}
	}

	return nil
}

// ParseSignTime parses a 24-hour "HH:MM" string.
func ParseSignTime(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%q is not in HH:MM format", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("hour %q out of range 00-23", parts[0])
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("minute %q out of range 00-59", parts[1])
	}
	return hour, minute, nil
}

// WindowDimensions parses WindowSize into width and height.
func (s *Settings) WindowDimensions() (width, height int, err error) {
	parts := strings.SplitN(strings.ToLower(s.WindowSize), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%q is not in WIDTHxHEIGHT format", s.WindowSize)
	}
	width, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("invalid window width %q", parts[0])
	}
	height, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("invalid window height %q", parts[1])
	}
	return width, height, nil
}

// Summary renders the settings for display, with the password masked.
func (s *Settings) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "username:          %s\n", s.Username)
	fmt.Fprintf(&b, "password:          %s\n", strings.Repeat("*", 8))
	fmt.Fprintf(&b, "login_timeout:     %s\n", s.LoginTimeout)
	fmt.Fprintf(&b, "page_load_timeout: %s\n", s.PageLoadTimeout)
	fmt.Fprintf(&b, "retry_count:       %d\n", s.RetryCount)
	fmt.Fprintf(&b, "headless:          %t\n", s.Headless)
	fmt.Fprintf(&b, "window_size:       %s\n", s.WindowSize)
	fmt.Fprintf(&b, "sign_time:         %s\n", s.SignTime)
	fmt.Fprintf(&b, "enable_schedule:   %t\n", s.EnableSchedule)
	fmt.Fprintf(&b, "log_file:          %s (max %d MB, %d backups)\n", s.LogFile, s.MaxLogSize, s.BackupCount)
	fmt.Fprintf(&b, "email enabled:     %t\n", s.Email.Enabled)
	return b.String()
}
