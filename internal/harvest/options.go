package harvest

import (
	"log/slog"
	"strings"
	"time"
)

// DefaultBaseURL is the web application the harvester signs in to
const DefaultBaseURL = "https://app.lumosity.com"

// Page is a page visited after login, with the time allowed for its API calls to settle
type Page struct {
	URL    string
	Settle time.Duration
}

// Options configures the browser engine and the harvester
type Options struct {
	BaseURL string
	Pages   []Page
	// FinalSettle is waited once after the last page
	FinalSettle time.Duration

	ActionTimeout           time.Duration
	NavigationTimeout       time.Duration
	SelectorTimeout         time.Duration
	OptionalSelectorTimeout time.Duration

	// APIMarkers are URL substrings identifying responses worth capturing
	APIMarkers []string

	Headless  bool
	ExecPath  string
	UserAgent string

	Logger *slog.Logger
}

// DefaultPages returns the post-login page sequence for base
func DefaultPages(base string) []Page {
	base = strings.TrimRight(base, "/")
	return []Page{
		{URL: base + "/stats", Settle: 5 * time.Second},
		{URL: base + "/stats/training", Settle: 3 * time.Second},
		{URL: base + "/stats/games", Settle: 3 * time.Second},
		{URL: base + "/profile", Settle: 3 * time.Second},
	}
}

// DefaultOptions returns the production settings
func DefaultOptions() Options {
	return Options{
		BaseURL:                 DefaultBaseURL,
		Pages:                   DefaultPages(DefaultBaseURL),
		FinalSettle:             2 * time.Second,
		ActionTimeout:           30 * time.Second,
		NavigationTimeout:       15 * time.Second,
		SelectorTimeout:         10 * time.Second,
		OptionalSelectorTimeout: 3 * time.Second,
		APIMarkers:              []string{"gateway/graphql", "lumosity.com/api"},
		Headless:                true,
	}
}

// withDefaults fills zero fields from DefaultOptions
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.BaseURL == "" {
		o.BaseURL = d.BaseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.Pages == nil {
		o.Pages = DefaultPages(o.BaseURL)
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = d.ActionTimeout
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = d.NavigationTimeout
	}
	if o.SelectorTimeout <= 0 {
		o.SelectorTimeout = d.SelectorTimeout
	}
	if o.OptionalSelectorTimeout <= 0 {
		o.OptionalSelectorTimeout = d.OptionalSelectorTimeout
	}
	if len(o.APIMarkers) == 0 {
		o.APIMarkers = d.APIMarkers
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// LoginURL is the sign-in page under BaseURL
func (o Options) LoginURL() string {
	return strings.TrimRight(o.BaseURL, "/") + "/login"
}
