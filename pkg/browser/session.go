package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session is one live browser with one page. All timeouts are per-call; a
// zero timeout uses Playwright's default.
type Session struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

func millis(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}
	return playwright.Float(float64(d.Milliseconds()))
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(url string, timeout time.Duration) error {
	opts := playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   millis(timeout),
	}
	if _, err := s.page.Goto(url, opts); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Fill sets the value of the input matching selector.
func (s *Session) Fill(selector, value string, timeout time.Duration) error {
	opts := playwright.PageFillOptions{Timeout: millis(timeout)}
	if err := s.page.Fill(selector, value, opts); err != nil {
		return fmt.Errorf("fill %q failed: %w", selector, err)
	}
	return nil
}

// Click clicks the element matching selector.
func (s *Session) Click(selector string, timeout time.Duration) error {
	opts := playwright.PageClickOptions{Timeout: millis(timeout)}
	if err := s.page.Click(selector, opts); err != nil {
		return fmt.Errorf("click %q failed: %w", selector, err)
	}
	return nil
}

// WaitVisible blocks until an element matching selector is visible.
func (s *Session) WaitVisible(selector string, timeout time.Duration) error {
	opts := playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: millis(timeout),
	}
	if _, err := s.page.WaitForSelector(selector, opts); err != nil {
		return fmt.Errorf("wait for %q failed: %w", selector, err)
	}
	return nil
}

// PageText returns the visible text of the current page. The DOM snapshot is
// parsed locally so marker matching never races against in-page scripts.
func (s *Session) PageText() (string, error) {
	content, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	text, err := VisibleText(content)
	if err != nil {
		return "", fmt.Errorf("failed to extract page text: %w", err)
	}
	return text, nil
}

// URL returns the current page URL.
func (s *Session) URL() string {
	return s.page.URL()
}

// Close releases the page, context and browser. Errors are swallowed so
// cleanup always completes.
func (s *Session) Close() error {
	_ = s.page.Close()
	_ = s.context.Close()
	_ = s.browser.Close()
	return nil
}
