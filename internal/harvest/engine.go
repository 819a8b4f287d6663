package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/jonathan/lpi-harvester/internal/types"
)

// blockedResources are suppressed in every session; API requests are never paused
var blockedResources = []network.ResourceType{
	network.ResourceTypeImage,
	network.ResourceTypeFont,
	network.ResourceTypeStylesheet,
}

// submitLogin clicks the first button labelled "log in", or the form's submit button
const submitLogin = `(() => {
	const button = Array.from(document.querySelectorAll('button')).find(b =>
		b.innerText.toLowerCase().includes('log in') || b.type === 'submit');
	if (!button) return false;
	button.click();
	return true;
})()`

// Engine is one headless Chrome shared by every session. It is safe for
// concurrent use; each session runs in its own browser context.
type Engine struct {
	opts Options
	log  *slog.Logger

	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
}

func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-web-security", true),
		chromedp.Flag("disable-features", "VizDisplayCompositor"),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-field-trial-config", true),
		chromedp.Flag("disable-ipc-flooding-protection", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("memory-pressure-off", true),
		chromedp.IgnoreCertErrors,
		chromedp.WindowSize(1280, 720),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	return allocOpts
}

// NewEngine launches the browser. ctx bounds the engine's lifetime; Close
// releases it earlier.
func NewEngine(ctx context.Context, opts Options) (*Engine, error) {
	opts = opts.withDefaults()
	log := opts.Logger

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions(opts)...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			log.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)

	// The first Run starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, &SessionError{Stage: StageLaunch, Message: "failed to start browser", Cause: err}
	}
	log.Info("browser launched", "headless", opts.Headless)

	return &Engine{
		opts:          opts,
		log:           log,
		cancelAlloc:   cancelAlloc,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
	}, nil
}

// Close shuts the browser down
func (e *Engine) Close() error {
	err := chromedp.Cancel(e.browserCtx)
	e.cancelBrowser()
	e.cancelAlloc()
	return err
}

// NewSession opens an isolated browser context with its own cookies and cache
func (e *Engine) NewSession(ctx context.Context) (Session, error) {
	sessCtx, cancel := chromedp.NewContext(e.browserCtx, chromedp.WithNewBrowserContext())
	s := &chromeSession{
		ctx:       sessCtx,
		cancel:    cancel,
		opts:      e.opts,
		log:       e.log,
		collector: newCollector(e.opts.APIMarkers),
	}

	// Allocate the tab before installing listeners so they attach to it.
	if err := s.open(ctx, e.opts.ActionTimeout); err != nil {
		cancel()
		return nil, &SessionError{Stage: StageLaunch, Message: "failed to open browser context", Cause: err}
	}

	chromedp.ListenTarget(sessCtx, s.onEvent)

	patterns := make([]*fetch.RequestPattern, 0, len(blockedResources))
	for _, rt := range blockedResources {
		patterns = append(patterns, &fetch.RequestPattern{
			URLPattern:   "*",
			ResourceType: rt,
			RequestStage: fetch.RequestStageRequest,
		})
	}
	if err := s.run(ctx, e.opts.ActionTimeout,
		network.Enable(),
		fetch.Enable().WithPatterns(patterns),
	); err != nil {
		_ = s.Close()
		return nil, &SessionError{Stage: StageLaunch, Message: "failed to enable network capture", Cause: err}
	}
	return s, nil
}

// chromeSession is a Session backed by one chromedp tab in its own browser context
type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options
	log    *slog.Logger

	collector *collector
}

// open allocates the session's tab. chromedp ties the tab's event loop to the
// context of the first Run, so that Run gets the session context itself and
// the timeout and ctx cancel the whole session instead.
func (s *chromeSession) open(ctx context.Context, timeout time.Duration) error {
	timer := time.AfterFunc(timeout, s.cancel)
	stop := context.AfterFunc(ctx, s.cancel)
	err := chromedp.Run(s.ctx)
	timer.Stop()
	stop()
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// run executes actions on the session's already open tab, bounded by timeout and by ctx
func (s *chromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// executor returns a context that sends CDP commands to this session's tab
func (s *chromeSession) executor() context.Context {
	return cdp.WithExecutor(s.ctx, chromedp.FromContext(s.ctx).Target)
}

func (s *chromeSession) onEvent(ev any) {
	switch ev := ev.(type) {
	case *fetch.EventRequestPaused:
		go func() {
			if err := fetch.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient).Do(s.executor()); err != nil {
				s.log.Debug("could not block request", "url", ev.Request.URL, "err", err)
			}
		}()

	case *network.EventResponseReceived:
		if ev.Response == nil {
			return
		}
		contentType := ev.Response.MimeType
		if v, ok := ev.Response.Headers["content-type"].(string); ok {
			contentType = v
		} else if v, ok := ev.Response.Headers["Content-Type"].(string); ok {
			contentType = v
		}
		s.collector.begin(string(ev.RequestID), ev.Response.URL, contentType)

	case *network.EventLoadingFailed:
		s.collector.drop(string(ev.RequestID))

	case *network.EventLoadingFinished:
		p, ok := s.collector.finish(string(ev.RequestID))
		if !ok {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(s.executor(), s.opts.ActionTimeout)
			defer cancel()
			body, err := network.GetResponseBody(ev.RequestID).Do(ctx)
			if err != nil {
				s.log.Debug("response body unavailable", "url", p.url, "err", err)
				s.collector.complete(p, nil)
				return
			}
			if s.collector.complete(p, body) {
				s.log.Debug("captured API response", "url", p.url)
			}
		}()
	}
}

// Login signs in with the two-step email form and checks the result for a credentials error
func (s *chromeSession) Login(ctx context.Context, account types.Account) error {
	if err := s.run(ctx, s.opts.NavigationTimeout, chromedp.Navigate(s.opts.LoginURL())); err != nil {
		return &SessionError{Stage: StageLogin, Message: "failed to open login page", Cause: err}
	}

	if err := s.run(ctx, s.opts.SelectorTimeout,
		chromedp.WaitVisible(`input#email-dummy`, chromedp.ByQuery),
		chromedp.Click(`input#email-dummy`, chromedp.ByQuery),
		chromedp.SendKeys(`input#email-dummy`, account.Identity, chromedp.ByQuery),
	); err != nil {
		return &SessionError{Stage: StageLogin, Message: "email field not found", Cause: err}
	}

	// Some variants of the form swap in a second, real email input.
	if err := s.run(ctx, s.opts.OptionalSelectorTimeout,
		chromedp.WaitVisible(`input#email`, chromedp.ByQuery),
		chromedp.SetValue(`input#email`, "", chromedp.ByQuery),
		chromedp.SendKeys(`input#email`, account.Identity, chromedp.ByQuery),
	); err != nil {
		if ctx.Err() != nil {
			return &SessionError{Stage: StageLogin, Message: "interrupted", Cause: ctx.Err()}
		}
		s.log.Debug("secondary email field not present", "account", account.Identity)
	}

	if err := s.run(ctx, s.opts.SelectorTimeout,
		chromedp.WaitVisible(`input#password`, chromedp.ByQuery),
		chromedp.Click(`input#password`, chromedp.ByQuery),
		chromedp.SendKeys(`input#password`, account.Secret, chromedp.ByQuery),
	); err != nil {
		return &SessionError{Stage: StageLogin, Message: "password field not found", Cause: err}
	}

	var clicked bool
	if err := s.run(ctx, s.opts.ActionTimeout, chromedp.Evaluate(submitLogin, &clicked)); err != nil {
		return &SessionError{Stage: StageLogin, Message: "failed to submit login form", Cause: err}
	}
	if !clicked {
		s.log.Warn("login button not found", "account", account.Identity)
	}

	// A slow redirect after submitting is common and not fatal.
	if err := s.run(ctx, s.opts.NavigationTimeout,
		chromedp.Sleep(500*time.Millisecond),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		if ctx.Err() != nil {
			return &SessionError{Stage: StageLogin, Message: "interrupted", Cause: ctx.Err()}
		}
		s.log.Warn("navigation after login timed out", "account", account.Identity, "err", err)
	}

	var location, html string
	if err := s.run(ctx, s.opts.SelectorTimeout,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		s.log.Debug("could not inspect page after login", "account", account.Identity, "err", err)
		return nil
	}
	if strings.Contains(location, "/login") {
		if message, rejected := loginRejection(html); rejected {
			return &SessionError{Stage: StageLogin, Message: message, Cause: ErrLoginRejected}
		}
	}
	return nil
}

// Visit navigates to a page and waits for its API calls to settle
func (s *chromeSession) Visit(ctx context.Context, page Page) error {
	if err := s.run(ctx, s.opts.NavigationTimeout, chromedp.Navigate(page.URL)); err != nil {
		return &SessionError{Stage: StageNavigate, Message: "could not load " + page.URL, Cause: err}
	}
	if err := sleep(ctx, page.Settle); err != nil {
		return &SessionError{Stage: StageNavigate, Message: "interrupted while waiting on " + page.URL, Cause: err}
	}
	return nil
}

// Responses returns the captured API responses in arrival order. It waits for
// bodies still being fetched; each fetch is bounded by ActionTimeout.
func (s *chromeSession) Responses() []types.CapturedResponse {
	return s.collector.responses()
}

// Close closes the tab and disposes its browser context
func (s *chromeSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancel()
	return err
}
