package signin

import (
	"fmt"
	"os"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// Site describes where everything lives on the target forum: URLs, form
// selectors, the authenticated-state marker, the ordered fallback list of
// sign-in control selectors, and the text patterns that signal the two
// outcome states. Keeping this data-driven means a site layout change is a
// profile edit, not a code change.
//
// Marker patterns are glob expressions matched against the visible page text.
// Text scraping is fragile by nature; the fallback lists are the mitigation,
// not a guarantee.
type Site struct {
	LoginURL string `yaml:"login_url"`
	MainURL  string `yaml:"main_url"`

	UsernameField string `yaml:"username_field"`
	PasswordField string `yaml:"password_field"`
	LoginButton   string `yaml:"login_button"`

	// AuthMarker becomes visible only when logged in.
	AuthMarker string `yaml:"auth_marker"`

	// SignControls is evaluated in order; the first visible match wins.
	SignControls []string `yaml:"sign_controls"`

	SuccessMarkers []string `yaml:"success_markers"`
	AlreadyMarkers []string `yaml:"already_markers"`

	successGlobs []glob.Glob
	alreadyGlobs []glob.Glob
}

// DefaultSite returns the built-in profile for the Ideal Forum (55188.com).
func DefaultSite() *Site {
	s := &Site{
		LoginURL:      "https://passport.55188.com/index/login/",
		MainURL:       "https://www.55188.com",
		UsernameField: `input[placeholder="用户名/Email/手机号码"]`,
		PasswordField: `input[placeholder="密码"]`,
		LoginButton:   `button:has-text("立即登录")`,
		AuthMarker:    `text=退出`,
		SignControls: []string{
			`a:has-text("签到")`,
			`button:has-text("签到")`,
			`div:has-text("签到")`,
			`span:has-text("签到")`,
			`a[href*="sign"]`,
			`a[class*="sign"]`,
		},
		SuccessMarkers: []string{
			"*签到成功*",
			"*今日已签到*",
		},
		AlreadyMarkers: []string{
			"*今日已签到*",
			"*已签到*",
			"*您今日已经签到*",
			"*今天已经签到*",
			"*重复签到*",
		},
	}
	if err := s.Compile(); err != nil {
		// Built-in patterns are static; a compile failure is a programming
		// error, not a runtime condition.
		panic(err)
	}
	return s
}

// LoadSite reads a YAML profile from path, overlaying it on the defaults so
// a profile only needs the fields that differ.
func LoadSite(path string) (*Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site profile: %w", err)
	}

	s := DefaultSite()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse site profile: %w", err)
	}
	if err := s.Compile(); err != nil {
		return nil, err
	}
	return s, nil
}

// Compile validates and compiles the marker patterns. Must be called after
// any mutation of the marker lists.
func (s *Site) Compile() error {
	var err error
	if s.successGlobs, err = compileAll(s.SuccessMarkers); err != nil {
		return fmt.Errorf("invalid success marker: %w", err)
	}
	if s.alreadyGlobs, err = compileAll(s.AlreadyMarkers); err != nil {
		return fmt.Errorf("invalid already-signed marker: %w", err)
	}
	return nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// MatchesSuccess reports whether the page text shows a successful sign-in.
func (s *Site) MatchesSuccess(text string) bool {
	return matchAny(s.successGlobs, text)
}

// MatchesAlreadySigned reports whether the page text shows today's sign-in
// already happened.
func (s *Site) MatchesAlreadySigned(text string) bool {
	return matchAny(s.alreadyGlobs, text)
}

func matchAny(globs []glob.Glob, text string) bool {
	for _, g := range globs {
		if g.Match(text) {
			return true
		}
	}
	return false
}
