package observability

import (
	"time"

	"github.com/jonathan/lpi-harvester/internal/types"
)

// AccountLine is the one-line outcome of a single account
type AccountLine struct {
	Identity       string
	OK             bool
	Error          string
	OverallLPI     types.Metric
	DaysPlayed     int
	DaysInMonth    int
	CompletionRate string
}

// RunStats summarises a Results Set
type RunStats struct {
	Total     int
	Succeeded int
	Failed    int
	Elapsed   time.Duration
	Accounts  []AccountLine
}

// Summarize computes the statistics of a run's reports, in report order
func Summarize(reports []types.AccountReport, elapsed time.Duration) RunStats {
	stats := RunStats{
		Total:    len(reports),
		Elapsed:  elapsed,
		Accounts: make([]AccountLine, 0, len(reports)),
	}
	for _, r := range reports {
		line := AccountLine{Identity: r.AccountInfo.Identity, OK: r.OK()}
		if line.OK {
			stats.Succeeded++
			info := r.Streaks.MonthInfo
			line.OverallLPI = r.LPI.Overall
			line.DaysPlayed = info.DaysPlayed
			line.DaysInMonth = info.DaysInMonth
			line.CompletionRate = info.CompletionRate
		} else {
			stats.Failed++
			line.Error = r.Error
		}
		stats.Accounts = append(stats.Accounts, line)
	}
	return stats
}

// SuccessRate is the share of successful accounts as a percentage
func (s RunStats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total) * 100
}
