// Package batch runs the harvester over every account in bounded, sequential chunks.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jonathan/lpi-harvester/internal/accounts"
	"github.com/jonathan/lpi-harvester/internal/race"
	"github.com/jonathan/lpi-harvester/internal/types"
)

// Defaults for Options
const (
	DefaultConcurrency    = 3
	DefaultAccountTimeout = 120 * time.Second
	DefaultBatchTimeout   = 180 * time.Second
	DefaultOverallTimeout = 12 * time.Minute
	DefaultBatchPause     = 2 * time.Second
)

// Source supplies the accounts for a run
type Source interface {
	Accounts(ctx context.Context) ([]types.Account, error)
}

// Harvester produces one report per account and never fails
type Harvester interface {
	Harvest(ctx context.Context, account types.Account) types.AccountReport
}

// ResultsWriter persists the Results Set of a completed run, replacing any earlier one
type ResultsWriter interface {
	WriteResults(ctx context.Context, reports []types.AccountReport) error
}

// ProgressEvent reports a finished account
type ProgressEvent struct {
	RunID   uuid.UUID
	Batch   int
	Batches int
	Index   int
	Report  types.AccountReport
}

// ProgressCallback is called once per finished account, possibly from several goroutines
type ProgressCallback func(event ProgressEvent)

// Options configures an Orchestrator
type Options struct {
	Concurrency    int
	AccountTimeout time.Duration
	BatchTimeout   time.Duration
	OverallTimeout time.Duration
	BatchPause     time.Duration
	// StartInterval staggers session starts across the run; zero means no staggering
	StartInterval time.Duration

	Writers    []ResultsWriter
	OnProgress ProgressCallback
	Logger     *slog.Logger
	Now        func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.AccountTimeout <= 0 {
		o.AccountTimeout = DefaultAccountTimeout
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = DefaultBatchTimeout
	}
	if o.OverallTimeout <= 0 {
		o.OverallTimeout = DefaultOverallTimeout
	}
	if o.BatchPause < 0 {
		o.BatchPause = 0
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Result is the outcome of a completed run
type Result struct {
	RunID     uuid.UUID
	Reports   []types.AccountReport
	StartedAt time.Time
	Elapsed   time.Duration
}

// Orchestrator runs harvests in chunks of at most Concurrency accounts
type Orchestrator struct {
	harvester Harvester
	opts      Options
	log       *slog.Logger
}

// New creates an Orchestrator
func New(harvester Harvester, opts Options) *Orchestrator {
	opts = opts.withDefaults()
	return &Orchestrator{harvester: harvester, opts: opts, log: opts.Logger}
}

// Run loads the accounts from src and harvests them all.
//
// Individual account failures become failure reports and never fail the run.
// Run fails only when the accounts cannot be loaded or the whole run exceeds
// OverallTimeout; in both cases nothing is persisted. Persistence errors are
// logged and do not fail the run.
func (o *Orchestrator) Run(ctx context.Context, src Source) (*Result, error) {
	runID := uuid.New()
	log := o.log.With("run", runID.String())
	started := o.opts.Now()

	reports, err := race.Run(ctx, o.opts.OverallTimeout, "overall extraction", func(ctx context.Context) ([]types.AccountReport, error) {
		return o.run(ctx, src, runID, log)
	})
	if err != nil {
		log.Error("run failed", "err", err)
		return nil, err
	}

	result := &Result{
		RunID:     runID,
		Reports:   reports,
		StartedAt: started,
		Elapsed:   o.opts.Now().Sub(started),
	}
	log.Info("run complete", "accounts", len(reports), "elapsed", result.Elapsed.Round(100*time.Millisecond))

	o.persist(ctx, reports, log)
	return result, nil
}

func (o *Orchestrator) persist(ctx context.Context, reports []types.AccountReport, log *slog.Logger) {
	for _, w := range o.opts.Writers {
		if err := w.WriteResults(ctx, reports); err != nil {
			log.Error("failed to persist results", "writer", fmt.Sprintf("%T", w), "err", err)
			continue
		}
		log.Debug("results persisted", "writer", fmt.Sprintf("%T", w))
	}
}

func (o *Orchestrator) run(ctx context.Context, src Source, runID uuid.UUID, log *slog.Logger) ([]types.AccountReport, error) {
	list, err := src.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	if len(list) == 0 {
		return nil, accounts.ErrNoAccounts
	}

	size := min(o.opts.Concurrency, len(list))
	batches := (len(list) + size - 1) / size
	log.Info("processing accounts", "accounts", len(list), "concurrency", size, "batches", batches)

	limit := rate.Inf
	if o.opts.StartInterval > 0 {
		limit = rate.Every(o.opts.StartInterval)
	}
	starts := rate.NewLimiter(limit, 1)

	reports := make([]types.AccountReport, len(list))
	for start := 0; start < len(list); start += size {
		end := min(start+size, len(list))
		batch := start/size + 1
		batchStart := time.Now()
		log.Info("starting batch", "batch", batch, "of", batches, "accounts", end-start)

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				reports[i] = o.harvestSlot(ctx, list[i], starts)
				if o.opts.OnProgress != nil {
					o.opts.OnProgress(ProgressEvent{RunID: runID, Batch: batch, Batches: batches, Index: i, Report: reports[i]})
				}
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Info("batch complete", "batch", batch, "elapsed", time.Since(batchStart).Round(100*time.Millisecond))

		if end < len(list) {
			if err := pause(ctx, o.opts.BatchPause); err != nil {
				return nil, err
			}
		}
	}
	return reports, nil
}

// harvestSlot runs one account inside its account and batch-slot budgets.
// Losing either race yields a failure report; the harvest's own context is
// canceled so its session is still released.
func (o *Orchestrator) harvestSlot(ctx context.Context, account types.Account, starts *rate.Limiter) types.AccountReport {
	report, err := race.Run(ctx, o.opts.BatchTimeout, "batch slot for "+account.Identity,
		func(ctx context.Context) (types.AccountReport, error) {
			return race.Run(ctx, o.opts.AccountTimeout, "account "+account.Identity,
				func(ctx context.Context) (types.AccountReport, error) {
					if err := starts.Wait(ctx); err != nil {
						return types.AccountReport{}, err
					}
					return o.harvester.Harvest(ctx, account), nil
				})
		})
	if err != nil {
		o.log.Warn("account did not finish", "account", account.Identity, "err", err)
		return types.NewFailureReport(account, err.Error(), o.opts.Now())
	}
	return report
}

// pause waits between chunks
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
