package signin

import (
	"context"
	"fmt"
	"time"

	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/config"
	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/logging"
)

// Browser is the capability surface the workflow drives. pkg/browser.Session
// satisfies it; tests substitute a scripted fake.
type Browser interface {
	Navigate(url string, timeout time.Duration) error
	Fill(selector, value string, timeout time.Duration) error
	Click(selector string, timeout time.Duration) error
	WaitVisible(selector string, timeout time.Duration) error
	PageText() (string, error)
	Close() error
}

// SessionFactory creates a fresh browser session. The workflow calls it once
// per attempt so a stuck browser never leaks into the next try.
type SessionFactory func() (Browser, error)

// Bot runs the end-to-end check-in workflow.
type Bot struct {
	settings *config.Settings
	site     *Site
	factory  SessionFactory
	log      *logging.Logger

	// settleDelay is how long the page gets to react after the sign-in
	// click before the outcome markers are read.
	settleDelay time.Duration

	// selectorWait bounds the visibility wait for each candidate selector
	// in the fallback list.
	selectorWait time.Duration
}

// NewBot wires the workflow. settings must already be validated.
func NewBot(settings *config.Settings, site *Site, factory SessionFactory, log *logging.Logger) *Bot {
	return &Bot{
		settings:     settings,
		site:         site,
		factory:      factory,
		log:          log,
		settleDelay:  3 * time.Second,
		selectorWait: 3 * time.Second,
	}
}

// Run performs the check-in with up to RetryCount attempts. Each attempt gets
// a new session which is released on every exit path. Classified failures are
// returned as the last AttemptResult unmodified; the error is non-nil only
// when the browser environment itself is unavailable, which is fatal for this
// invocation and not retried.
func (b *Bot) Run(ctx context.Context) (*AttemptResult, error) {
	var last *AttemptResult

	for attempt := 1; attempt <= b.settings.RetryCount; attempt++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return last, nil
			}
			return nil, fmt.Errorf("check-in aborted: %w", err)
		}

		b.log.Infof("check-in attempt %d/%d starting", attempt, b.settings.RetryCount)

		sess, err := b.factory()
		if err != nil {
			return nil, fmt.Errorf("browser environment unavailable: %w", err)
		}

		result := b.attempt(sess, attempt)

		if result.Succeeded() {
			b.log.Successf("check-in finished: %s", result)
			return result, nil
		}

		b.log.Errorf("check-in attempt failed: %s", result)
		last = result

		if attempt < b.settings.RetryCount {
			b.log.Warnf("retrying with a fresh browser session")
		}
	}

	b.log.Errorf("check-in gave up after %d attempt(s): %s", last.Attempt, last.Message)
	return last, nil
}

// attempt drives one full sign-in sequence on a dedicated session. The
// session is always released, whatever path the attempt takes.
func (b *Bot) attempt(sess Browser, attempt int) *AttemptResult {
	defer sess.Close()

	// Step 1: open the login page.
	if err := sess.Navigate(b.site.LoginURL, b.settings.PageLoadTimeout); err != nil {
		return newResult(Timeout, attempt, "login page did not load: %v", err)
	}
	b.log.Infof("opened login page %s", b.site.LoginURL)

	// Step 2: submit credentials, then wait for the authenticated marker.
	if err := sess.Fill(b.site.UsernameField, b.settings.Username, b.settings.LoginTimeout); err != nil {
		return newResult(LoginFailed, attempt, "username field unavailable: %v", err)
	}
	if err := sess.Fill(b.site.PasswordField, b.settings.Password, b.settings.LoginTimeout); err != nil {
		return newResult(LoginFailed, attempt, "password field unavailable: %v", err)
	}
	if err := sess.Click(b.site.LoginButton, b.settings.LoginTimeout); err != nil {
		return newResult(LoginFailed, attempt, "login button unavailable: %v", err)
	}
	b.log.Infof("submitted credentials for %s", b.settings.Username)

	if err := sess.WaitVisible(b.site.AuthMarker, b.settings.LoginTimeout); err != nil {
		return newResult(LoginFailed, attempt, "no authenticated marker within %s", b.settings.LoginTimeout)
	}
	b.log.Infof("login confirmed, authenticated marker visible")

	// Step 3: open the main site where the sign-in control lives.
	if err := sess.Navigate(b.site.MainURL, b.settings.PageLoadTimeout); err != nil {
		return newResult(Timeout, attempt, "main page did not load: %v", err)
	}

	// Step 4: short-circuit if today's sign-in already happened. This runs
	// before the control lookup so an already-signed page is never clicked.
	text, err := sess.PageText()
	if err != nil {
		return newResult(UnknownError, attempt, "could not read page text: %v", err)
	}
	if b.site.MatchesAlreadySigned(text) {
		return newResult(AlreadySignedIn, attempt, "already signed in today")
	}

	// Step 5: walk the selector fallback list, first visible match wins.
	matched := ""
	for _, selector := range b.site.SignControls {
		if err := sess.WaitVisible(selector, b.selectorWait); err == nil {
			matched = selector
			break
		}
	}
	if matched == "" {
		return newResult(ElementNotFound, attempt, "no sign-in control matched any of %d selectors", len(b.site.SignControls))
	}
	b.log.Infof("sign-in control found via selector %s", matched)

	// Step 6: click, let the page settle, then verify the outcome text.
	if err := sess.Click(matched, b.selectorWait); err != nil {
		return newResult(UnknownError, attempt, "clicking sign-in control failed: %v", err)
	}
	b.log.Infof("clicked sign-in control")
	time.Sleep(b.settleDelay)

	text, err = sess.PageText()
	if err != nil {
		return newResult(UnknownError, attempt, "could not verify sign-in result: %v", err)
	}
	if b.site.MatchesSuccess(text) || b.site.MatchesAlreadySigned(text) {
		return newResult(Success, attempt, "sign-in confirmed by page text")
	}

	return newResult(UnknownError, attempt, "neither success nor already-signed marker appeared after click")
}
