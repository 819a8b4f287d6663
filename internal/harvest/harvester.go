// Package harvest drives one isolated browser session per account and turns the
// API responses it captures into an AccountReport.
package harvest

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonathan/lpi-harvester/internal/extract"
	"github.com/jonathan/lpi-harvester/internal/normalize"
	"github.com/jonathan/lpi-harvester/internal/types"
)

// Browser hands out isolated sessions. Implementations must allow concurrent NewSession calls.
type Browser interface {
	NewSession(ctx context.Context) (Session, error)
}

// Session is one account's isolated browser context. Close must be called exactly once.
type Session interface {
	Login(ctx context.Context, account types.Account) error
	Visit(ctx context.Context, page Page) error
	// Responses blocks until pending response bodies are read or have failed
	Responses() []types.CapturedResponse
	Close() error
}

// Harvester collects one account's statistics
type Harvester struct {
	browser     Browser
	pages       []Page
	finalSettle time.Duration
	log         *slog.Logger
	now         func() time.Time
}

// New creates a Harvester that opens its sessions on browser
func New(browser Browser, opts Options) *Harvester {
	finalSettle := opts.FinalSettle
	opts = opts.withDefaults()
	return &Harvester{
		browser:     browser,
		pages:       opts.Pages,
		finalSettle: finalSettle,
		log:         opts.Logger,
		now:         time.Now,
	}
}

// WithClock replaces the clock used for extraction timestamps and the streak calendar
func (h *Harvester) WithClock(now func() time.Time) *Harvester {
	h.now = now
	return h
}

// Harvest signs in as account, visits the stats pages and normalizes what was captured.
//
// It never returns an error: every failure becomes the failure variant of the
// report. The session is closed on every path, including cancellation of ctx.
func (h *Harvester) Harvest(ctx context.Context, account types.Account) types.AccountReport {
	start := time.Now()
	log := h.log.With("account", account.Identity)
	log.Info("harvesting account")

	report, err := h.harvest(ctx, account, log)
	if err != nil {
		log.Error("harvest failed", "elapsed", time.Since(start).Round(100*time.Millisecond), "err", err)
		return types.NewFailureReport(account, err.Error(), h.now())
	}
	log.Info("harvest complete", "elapsed", time.Since(start).Round(100*time.Millisecond))
	return report
}

func (h *Harvester) harvest(ctx context.Context, account types.Account, log *slog.Logger) (types.AccountReport, error) {
	session, err := h.browser.NewSession(ctx)
	if err != nil {
		return types.AccountReport{}, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("failed to close session", "err", err)
		}
	}()

	log.Debug("logging in")
	if err := session.Login(ctx, account); err != nil {
		return types.AccountReport{}, err
	}

	for _, page := range h.pages {
		log.Debug("loading page", "url", page.URL)
		if err := session.Visit(ctx, page); err != nil {
			if ctx.Err() != nil {
				return types.AccountReport{}, err
			}
			log.Warn("could not load page", "url", page.URL, "err", err)
		}
	}

	if err := sleep(ctx, h.finalSettle); err != nil {
		return types.AccountReport{}, &SessionError{Stage: StageCapture, Message: "interrupted while waiting for API calls", Cause: err}
	}

	responses := session.Responses()
	log.Debug("processing responses", "responses", len(responses))
	data := extract.Extract(responses)
	return normalize.Normalize(data, account, h.now()), nil
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
