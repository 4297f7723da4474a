// Package signin implements the daily check-in workflow: log in, locate the
// sign-in control, click it, and verify the outcome, with a bounded retry
// loop that recreates the browser session between attempts.
package signin

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome classifies one check-in attempt.
type Outcome string

const (
	Success         Outcome = "success"
	AlreadySignedIn Outcome = "already_signed_in"
	LoginFailed     Outcome = "login_failed"
	ElementNotFound Outcome = "element_not_found"
	Timeout         Outcome = "timeout"
	UnknownError    Outcome = "unknown_error"
)

// Transient reports whether the outcome is worth retrying with a fresh
// browser session.
func (o Outcome) Transient() bool {
	switch o {
	case Timeout, ElementNotFound, LoginFailed, UnknownError:
		return true
	default:
		return false
	}
}

// AttemptResult is the immutable record of one check-in attempt.
type AttemptResult struct {
	ID        string
	Outcome   Outcome
	Message   string
	Attempt   int
	Timestamp time.Time
}

func newResult(outcome Outcome, attempt int, format string, v ...interface{}) *AttemptResult {
	return &AttemptResult{
		ID:        uuid.New().String(),
		Outcome:   outcome,
		Message:   fmt.Sprintf(format, v...),
		Attempt:   attempt,
		Timestamp: time.Now(),
	}
}

// Succeeded reports whether the day's check-in is done, whether by this
// attempt or an earlier one.
func (r *AttemptResult) Succeeded() bool {
	return r.Outcome == Success || r.Outcome == AlreadySignedIn
}

// String renders the result for logs and the UI.
func (r *AttemptResult) String() string {
	return fmt.Sprintf("[%s] attempt %d: %s", r.Outcome, r.Attempt, r.Message)
}
