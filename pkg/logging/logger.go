// Package logging provides the leveled logger used across the sign-in bot.
// Lines are written both to stdout and to a size-rotated log file, in the
// same "timestamp | LEVEL | message" shape the log files have always had.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is the severity of a log line.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelSuccess
	LevelWarning
	LevelError
)

// String returns the tag used in log lines.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelSuccess:
		return "SUCCESS"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ParseLevel maps a config string to a Level. Unknown values fall back to
// INFO rather than failing, matching the permissive behavior of the log_level
// setting.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARNING", "WARN":
		return LevelWarning
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Options configures a Logger.
type Options struct {
	// FilePath is the log file path. Empty disables file output.
	FilePath string

	// MaxSizeMB rotates the file once it exceeds this many megabytes.
	MaxSizeMB int

	// BackupCount bounds how many rotated files are retained.
	BackupCount int

	// MinLevel filters lines below this level. SUCCESS ranks with INFO.
	MinLevel Level

	// Console overrides the console writer, used in tests. Defaults to
	// os.Stdout.
	Console io.Writer
}

// Logger writes leveled, timestamped lines to the console and optionally to a
// rotating file.
type Logger struct {
	mu        sync.Mutex
	console   io.Writer
	file      *lumberjack.Logger
	min       Level
	closeOnce sync.Once
}

// New creates a Logger from opts. File output failures do not surface here;
// lumberjack opens the file lazily on first write, and a broken path degrades
// to console-only logging.
func New(opts Options) *Logger {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	l := &Logger{
		console: console,
		min:     opts.MinLevel,
	}

	if opts.FilePath != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		backups := opts.BackupCount
		if backups <= 0 {
			backups = 5
		}
		l.file = &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    maxSize,
			MaxBackups: backups,
		}
	}

	return l
}

// Discard returns a logger that drops everything, for tests.
func Discard() *Logger {
	return &Logger{console: io.Discard, min: LevelError + 1}
}

func (l *Logger) log(level Level, format string, v ...interface{}) {
	// SUCCESS lines rank with INFO for filtering purposes.
	effective := level
	if level == LevelSuccess {
		effective = LevelInfo
	}
	if effective < l.min {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, v...)
	line := fmt.Sprintf("%s | %-8s | %s\n", timestamp, level, message)

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprint(l.console, line)
	if l.file != nil {
		if _, err := l.file.Write([]byte(line)); err != nil {
			fmt.Fprintf(os.Stderr, "log file write failed: %v\n", err)
		}
	}
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.log(LevelDebug, format, v...)
}

// Infof logs an info-level message.
func (l *Logger) Infof(format string, v ...interface{}) {
	l.log(LevelInfo, format, v...)
}

// Successf logs a success-level message. Success is a first-class level here
// because the sign-in log distinguishes completed check-ins from plain info.
func (l *Logger) Successf(format string, v ...interface{}) {
	l.log(LevelSuccess, format, v...)
}

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.log(LevelWarning, format, v...)
}

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.log(LevelError, format, v...)
}

// Close closes the underlying log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}
