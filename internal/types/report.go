package types

import (
	"encoding/json"
	"strconv"
	"time"
)

// NotAvailable is the sentinel written in place of missing scalar values.
const NotAvailable = "N/A"

// Metric is a number that renders as "N/A" when missing or zero.
type Metric struct {
	Value float64
	Valid bool
}

// MetricOf converts an optional number into a Metric. Zero counts as missing.
func MetricOf(v *float64) Metric {
	if v == nil || *v == 0 {
		return Metric{}
	}
	return Metric{Value: *v, Valid: true}
}

// MarshalJSON writes the number or the "N/A" sentinel.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return json.Marshal(NotAvailable)
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON accepts a number or any string (treated as missing).
func (m *Metric) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		*m = Metric{}
		return nil
	}
	if string(data) == "null" {
		*m = Metric{}
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*m = Metric{Value: v, Valid: true}
	return nil
}

// AccountInfo identifies the account a report belongs to. The secret is never included.
type AccountInfo struct {
	Identity    string    `json:"email"`
	CohortLabel string    `json:"study"`
	ExtractedAt time.Time `json:"extractedAt"`
}

// AccountReport is the output unit for one account. Exactly one of Stats or Error is set.
type AccountReport struct {
	AccountInfo AccountInfo `json:"accountInfo"`
	*AccountStats
	Error   string `json:"error,omitempty"`
	Success *bool  `json:"success,omitempty"`
}

// OK reports whether the report is the success variant.
func (r AccountReport) OK() bool {
	return r.AccountStats != nil && r.Error == ""
}

// NewFailureReport builds the failure variant of a report.
func NewFailureReport(account Account, message string, at time.Time) AccountReport {
	success := false
	return AccountReport{
		AccountInfo: AccountInfo{
			Identity:    account.Identity,
			CohortLabel: account.CohortLabel,
			ExtractedAt: at.UTC(),
		},
		Error:   message,
		Success: &success,
	}
}

// AccountStats is the body of a successful report.
type AccountStats struct {
	Summary      Summary         `json:"summary"`
	LPI          LPIView         `json:"lpi"`
	Rankings     Rankings        `json:"rankings"`
	Streaks      StreakView      `json:"streaks"`
	Percentiles  PercentileView  `json:"percentiles"`
	Training     TrainingView    `json:"training"`
	FitTest      *FitTestResults `json:"fitTest"`
	GameProgress []GameProgress  `json:"gameProgress"`
	DailyStats   *DailyStats     `json:"dailyStats"`
	Achievements *Achievements   `json:"achievements"`
	Comparison   ComparisonView  `json:"comparison"`
}

// Summary is the user overview.
type Summary struct {
	User        string `json:"user"`
	FullName    string `json:"fullName"`
	Premium     bool   `json:"premium"`
	AgeCohort   string `json:"ageCohort"`
	MemberSince string `json:"memberSince,omitempty"`
	AccountType string `json:"accountType,omitempty"`
}

// LPIView holds overall LPI values and the per-area breakdown keyed by area slug.
type LPIView struct {
	Overall Metric               `json:"overall"`
	Best    Metric               `json:"best"`
	First   Metric               `json:"first"`
	ByArea  map[string]AreaScore `json:"byArea"`
}

// AreaScore is the normalised LPI for one area.
type AreaScore struct {
	Name        string   `json:"name"`
	Current     *float64 `json:"current"`
	First       *float64 `json:"first"`
	Best        *float64 `json:"best"`
	PlayCount   int      `json:"playCount"`
	Improvement float64  `json:"improvement"`
}

// Rankings are the top-N game views.
type Rankings struct {
	TopGames     []RankedGame   `json:"topGames"`
	MostImproved []ImprovedRank `json:"mostImproved"`
}

// RankedGame is one entry in the top games list.
type RankedGame struct {
	Rank         int      `json:"rank"`
	Game         string   `json:"game"`
	Name         string   `json:"name"`
	Area         string   `json:"area"`
	AreaName     string   `json:"areaName"`
	LPI          float64  `json:"lpi"`
	FirstLPI     *float64 `json:"firstLpi"`
	BestLPI      *float64 `json:"bestLpi"`
	PlayCount    int      `json:"playCount"`
	Improvement  float64  `json:"improvement"`
	LastPlayedAt string   `json:"lastPlayedAt,omitempty"`
}

// ImprovedRank is one entry in the most improved list.
type ImprovedRank struct {
	Rank            int      `json:"rank"`
	Game            string   `json:"game"`
	Name            string   `json:"name"`
	Area            string   `json:"area"`
	AreaName        string   `json:"areaName"`
	Improvement     float64  `json:"improvement"`
	PercentIncrease *float64 `json:"percentIncrease"`
	PlayCount       int      `json:"playCount"`
}

// StreakView is the streak block of a report.
type StreakView struct {
	Current        int             `json:"current"`
	Best           int             `json:"best"`
	Total          int             `json:"total"`
	MonthlyStreaks MonthlyCalendar `json:"monthlyStreaks"`
	MonthInfo      MonthInfo       `json:"monthInfo"`
}

// MonthInfo describes the calendar month of MonthlyStreaks.
type MonthInfo struct {
	Year           int    `json:"year"`
	Month          int    `json:"month"`
	MonthName      string `json:"monthName"`
	Today          int    `json:"today"`
	DaysInMonth    int    `json:"daysInMonth"`
	DaysPlayed     int    `json:"daysPlayed"`
	DaysMissed     int    `json:"daysMissed"`
	FutureDays     int    `json:"futureDays"`
	CompletionRate string `json:"completionRate"`
}

// PercentileView holds cohort percentiles.
type PercentileView struct {
	Overall Metric                     `json:"overall"`
	Best    Metric                     `json:"best"`
	ByArea  map[string]AreaPercentiles `json:"byArea"`
}

// AreaPercentiles renders area percentiles as "NN%" strings.
type AreaPercentiles struct {
	Name    string `json:"name"`
	Current string `json:"current"`
	Best    string `json:"best"`
}

// TrainingView is the training block of a report.
type TrainingView struct {
	TotalSessions      int               `json:"totalSessions"`
	TotalTimeMinutes   float64           `json:"totalTimeMinutes"`
	AverageSessionTime float64           `json:"averageSessionTime"`
	TotalGamesPlayed   int               `json:"totalGamesPlayed"`
	RecentSessions     []TrainingSession `json:"recentSessions"`
}

// ComparisonView is the cohort ranking block of a report.
type ComparisonView struct {
	AgeCohort  string `json:"ageCohort"`
	Rank       Metric `json:"rank"`
	BestRank   Metric `json:"bestRank"`
	TotalUsers Metric `json:"totalUsers"`
}
