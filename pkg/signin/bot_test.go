package signin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/config"
	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/logging"
)

// fakeBrowser scripts one attempt's worth of page behavior. textAfterClick
// takes effect once anything other than the login button has been clicked.
type fakeBrowser struct {
	visible        map[string]bool
	text           string
	textAfterClick string
	loginButton    string
	navErr         error
	clickErr       error

	clicks  []string
	clicked bool
	closed  bool
}

func (f *fakeBrowser) Navigate(url string, _ time.Duration) error { return f.navErr }

func (f *fakeBrowser) Fill(selector, value string, _ time.Duration) error { return nil }

func (f *fakeBrowser) Click(selector string, _ time.Duration) error {
	if f.clickErr != nil {
		return f.clickErr
	}
	f.clicks = append(f.clicks, selector)
	if selector != f.loginButton {
		f.clicked = true
	}
	return nil
}

func (f *fakeBrowser) WaitVisible(selector string, _ time.Duration) error {
	if f.visible[selector] {
		return nil
	}
	return errors.New("not visible")
}

func (f *fakeBrowser) PageText() (string, error) {
	if f.clicked && f.textAfterClick != "" {
		return f.textAfterClick, nil
	}
	return f.text, nil
}

func (f *fakeBrowser) Close() error {
	f.closed = true
	return nil
}

// signClicks counts clicks on sign-in control selectors, excluding the login
// button click every attempt makes.
func signClicks(f *fakeBrowser, site *Site) int {
	count := 0
	for _, clicked := range f.clicks {
		for _, sel := range site.SignControls {
			if clicked == sel {
				count++
			}
		}
	}
	return count
}

func testSettings(retry int) *config.Settings {
	return &config.Settings{
		Username:        "tester",
		Password:        "secret",
		RetryCount:      retry,
		LoginTimeout:    time.Second,
		PageLoadTimeout: time.Second,
	}
}

func newTestBot(settings *config.Settings, site *Site, factory SessionFactory) *Bot {
	b := NewBot(settings, site, factory, logging.Discard())
	b.settleDelay = 0
	b.selectorWait = time.Millisecond
	return b
}

// loggedInBrowser returns a fake whose login always succeeds.
func loggedInBrowser(site *Site) *fakeBrowser {
	return &fakeBrowser{
		visible:     map[string]bool{site.AuthMarker: true},
		loginButton: site.LoginButton,
	}
}

func TestAlreadySignedInShortCircuitsWithoutClick(t *testing.T) {
	site := DefaultSite()
	fake := loggedInBrowser(site)
	fake.text = "欢迎回来\n今日已签到\n退出"
	fake.visible[site.SignControls[0]] = true // control present, must still not be clicked

	bot := newTestBot(testSettings(3), site, func() (Browser, error) { return fake, nil })
	result, err := bot.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, AlreadySignedIn, result.Outcome)
	assert.Equal(t, 1, result.Attempt)
	assert.Zero(t, signClicks(fake, site))
	assert.True(t, fake.closed)
}

func TestAlreadySignedInIsIdempotent(t *testing.T) {
	site := DefaultSite()
	var fakes []*fakeBrowser
	factory := func() (Browser, error) {
		fake := loggedInBrowser(site)
		fake.text = "今日已签到"
		fakes = append(fakes, fake)
		return fake, nil
	}

	bot := newTestBot(testSettings(2), site, factory)

	for i := 0; i < 2; i++ {
		result, err := bot.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, AlreadySignedIn, result.Outcome)
	}

	require.Len(t, fakes, 2)
	for _, fake := range fakes {
		assert.Zero(t, signClicks(fake, site))
		assert.True(t, fake.closed)
	}
}

func TestLoginFailureRetriesExactlyRetryCount(t *testing.T) {
	site := DefaultSite()
	var fakes []*fakeBrowser
	factory := func() (Browser, error) {
		fake := &fakeBrowser{visible: map[string]bool{}} // auth marker never shows
		fakes = append(fakes, fake)
		return fake, nil
	}

	bot := newTestBot(testSettings(3), site, factory)
	result, err := bot.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, LoginFailed, result.Outcome)
	assert.Equal(t, 3, result.Attempt)

	// Every attempt got its own session, and every session was released.
	require.Len(t, fakes, 3)
	for _, fake := range fakes {
		assert.True(t, fake.closed)
	}
}

func TestControlFoundOnFinalAttempt(t *testing.T) {
	site := DefaultSite()
	attempts := 0
	factory := func() (Browser, error) {
		attempts++
		fake := loggedInBrowser(site)
		fake.text = "欢迎回来"
		if attempts == 3 {
			fake.visible[site.SignControls[0]] = true
			fake.textAfterClick = "恭喜，签到成功"
		}
		return fake, nil
	}

	bot := newTestBot(testSettings(3), site, factory)
	result, err := bot.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Success, result.Outcome)
	assert.Equal(t, 3, result.Attempt)
}

func TestSelectorFallbackFirstMatchWins(t *testing.T) {
	site := DefaultSite()
	fake := loggedInBrowser(site)
	fake.text = "欢迎回来"
	// Only a late candidate is present.
	fake.visible[site.SignControls[4]] = true
	fake.textAfterClick = "签到成功"

	bot := newTestBot(testSettings(1), site, func() (Browser, error) { return fake, nil })
	result, err := bot.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Success, result.Outcome)
	assert.Equal(t, []string{site.LoginButton, site.SignControls[4]}, fake.clicks)
}

func TestElementNotFoundAfterExhaustingSelectors(t *testing.T) {
	site := DefaultSite()
	factory := func() (Browser, error) {
		fake := loggedInBrowser(site)
		fake.text = "欢迎回来"
		return fake, nil
	}

	bot := newTestBot(testSettings(2), site, factory)
	result, err := bot.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, ElementNotFound, result.Outcome)
	assert.Equal(t, 2, result.Attempt)
}

func TestPageLoadTimeout(t *testing.T) {
	site := DefaultSite()
	factory := func() (Browser, error) {
		return &fakeBrowser{navErr: errors.New("net::ERR_TIMED_OUT")}, nil
	}

	bot := newTestBot(testSettings(2), site, factory)
	result, err := bot.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Timeout, result.Outcome)
	assert.Equal(t, 2, result.Attempt)
}

func TestClickWithoutConfirmationIsUnknownError(t *testing.T) {
	site := DefaultSite()
	fake := loggedInBrowser(site)
	fake.text = "欢迎回来"
	fake.visible[site.SignControls[0]] = true
	fake.textAfterClick = "页面维护中" // neither marker

	bot := newTestBot(testSettings(1), site, func() (Browser, error) { return fake, nil })
	result, err := bot.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, UnknownError, result.Outcome)
}

func TestAlreadyMarkerAfterClickCountsAsSuccess(t *testing.T) {
	site := DefaultSite()
	fake := loggedInBrowser(site)
	fake.text = "欢迎回来"
	fake.visible[site.SignControls[0]] = true
	fake.textAfterClick = "您今日已经签到"

	bot := newTestBot(testSettings(1), site, func() (Browser, error) { return fake, nil })
	result, err := bot.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Success, result.Outcome)
}

func TestEnvironmentFailureIsFatalNotRetried(t *testing.T) {
	site := DefaultSite()
	calls := 0
	factory := func() (Browser, error) {
		calls++
		return nil, errors.New("chromium executable not found")
	}

	bot := newTestBot(testSettings(3), site, factory)
	result, err := bot.Run(context.Background())

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestCancelledContextStopsBeforeFirstAttempt(t *testing.T) {
	site := DefaultSite()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bot := newTestBot(testSettings(3), site, func() (Browser, error) {
		t.Fatal("factory must not run after cancellation")
		return nil, nil
	})

	result, err := bot.Run(ctx)
	assert.Nil(t, result)
	assert.Error(t, err)
}

func TestTransientClassification(t *testing.T) {
	assert.True(t, Timeout.Transient())
	assert.True(t, ElementNotFound.Transient())
	assert.True(t, LoginFailed.Transient())
	assert.True(t, UnknownError.Transient())
	assert.False(t, Success.Transient())
	assert.False(t, AlreadySignedIn.Transient())
}

func TestResultIsTaggedAndTimestamped(t *testing.T) {
	site := DefaultSite()
	fake := loggedInBrowser(site)
	fake.text = "今日已签到"

	bot := newTestBot(testSettings(1), site, func() (Browser, error) { return fake, nil })
	before := time.Now()
	result, err := bot.Run(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.NotEmpty(t, result.Message)
	assert.False(t, result.Timestamp.Before(before))
	assert.True(t, result.Succeeded())
}
