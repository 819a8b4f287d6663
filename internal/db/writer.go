package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonathan/lpi-harvester/internal/types"
)

// DailyReportStore is the subset of DB used by ReportWriter
type DailyReportStore interface {
	UpsertDailyReport(ctx context.Context, day time.Time, reports []types.AccountReport) (*DailyReport, error)
}

// ReportWriter stores each completed run as the daily report of the day it finished
type ReportWriter struct {
	store DailyReportStore
	now   func() time.Time
	log   *slog.Logger
}

// NewReportWriter creates a ReportWriter backed by store
func NewReportWriter(store DailyReportStore, logger *slog.Logger) *ReportWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportWriter{store: store, now: time.Now, log: logger}
}

// WithClock replaces the clock that picks the report day
func (w *ReportWriter) WithClock(now func() time.Time) *ReportWriter {
	w.now = now
	return w
}

// WriteResults upserts reports as today's daily report
func (w *ReportWriter) WriteResults(ctx context.Context, reports []types.AccountReport) error {
	report, err := w.store.UpsertDailyReport(ctx, w.now(), reports)
	if err != nil {
		return err
	}
	w.log.Info("daily report saved", "date", report.ReportDate.Format(time.DateOnly), "users", report.UserCount)
	return nil
}
