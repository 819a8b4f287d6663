package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/lpi-harvester/internal/types"
)

// ReportDate truncates t to its calendar day. One daily report exists per day.
func ReportDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StreaksOf collects the streak blocks of the successful reports, in order
func StreaksOf(reports []types.AccountReport) []UserStreak {
	out := make([]UserStreak, 0, len(reports))
	for _, r := range reports {
		if !r.OK() {
			continue
		}
		out = append(out, UserStreak{Email: r.AccountInfo.Identity, Streaks: r.Streaks})
	}
	return out
}

// UpsertDailyReport stores reports as the daily report for day, replacing any
// report already stored for that calendar day. The matching streaks report is
// written in the same transaction.
func (db *DB) UpsertDailyReport(ctx context.Context, day time.Time, reports []types.AccountReport) (*DailyReport, error) {
	if reports == nil {
		reports = []types.AccountReport{}
	}
	statsJSON, err := json.Marshal(reports)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stats: %w", err)
	}
	streaks := StreaksOf(reports)
	streaksJSON, err := json.Marshal(streaks)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal streaks: %w", err)
	}

	date := ReportDate(day)

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	report := DailyReport{ReportDate: date, UserCount: len(reports), Stats: reports}
	err = tx.QueryRow(ctx,
		`INSERT INTO daily_reports (report_date, user_count, stats)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (report_date) DO UPDATE SET
			user_count = EXCLUDED.user_count,
			stats = EXCLUDED.stats,
			updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		date, len(reports), statsJSON,
	).Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert daily report: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO daily_streaks_reports (report_date, user_count, streaks)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (report_date) DO UPDATE SET
			user_count = EXCLUDED.user_count,
			streaks = EXCLUDED.streaks,
			updated_at = NOW()`,
		date, len(streaks), streaksJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert daily streaks report: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &report, nil
}

// GetDailyReport retrieves the report stored for day, or nil when there is none
func (db *DB) GetDailyReport(ctx context.Context, day time.Time) (*DailyReport, error) {
	var report DailyReport
	var statsJSON []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, report_date, user_count, stats, created_at, updated_at
		 FROM daily_reports WHERE report_date = $1`,
		ReportDate(day),
	).Scan(&report.ID, &report.ReportDate, &report.UserCount, &statsJSON, &report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get daily report: %w", err)
	}
	if err := json.Unmarshal(statsJSON, &report.Stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
	}
	return &report, nil
}

// ListDailyReports retrieves the most recent daily reports, newest first
func (db *DB) ListDailyReports(ctx context.Context, limit int) ([]DailyReportSummary, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, report_date, user_count, updated_at
		 FROM daily_reports ORDER BY report_date DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily reports: %w", err)
	}
	defer rows.Close()

	var reports []DailyReportSummary
	for rows.Next() {
		var r DailyReportSummary
		if err := rows.Scan(&r.ID, &r.ReportDate, &r.UserCount, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan daily report: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list daily reports: %w", err)
	}
	return reports, nil
}

// GetDailyStreaksReport retrieves the streaks report stored for day, or nil when there is none
func (db *DB) GetDailyStreaksReport(ctx context.Context, day time.Time) (*DailyStreaksReport, error) {
	var report DailyStreaksReport
	var streaksJSON []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, report_date, user_count, streaks, updated_at
		 FROM daily_streaks_reports WHERE report_date = $1`,
		ReportDate(day),
	).Scan(&report.ID, &report.ReportDate, &report.UserCount, &streaksJSON, &report.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get daily streaks report: %w", err)
	}
	if err := json.Unmarshal(streaksJSON, &report.Streaks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal streaks: %w", err)
	}
	return &report, nil
}
