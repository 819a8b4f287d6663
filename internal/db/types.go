package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/lpi-harvester/internal/types"
)

// DailyReport is the stored Results Set for one calendar day
type DailyReport struct {
	ID         uuid.UUID             `json:"id"`
	ReportDate time.Time             `json:"report_date"`
	UserCount  int                   `json:"user_count"`
	Stats      []types.AccountReport `json:"stats"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// DailyReportSummary is a lightweight view of a daily report for listing
type DailyReportSummary struct {
	ID         uuid.UUID `json:"id"`
	ReportDate time.Time `json:"report_date"`
	UserCount  int       `json:"user_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DailyStreaksReport holds the streak block of every successful account for one day
type DailyStreaksReport struct {
	ID         uuid.UUID    `json:"id"`
	ReportDate time.Time    `json:"report_date"`
	UserCount  int          `json:"user_count"`
	Streaks    []UserStreak `json:"streaks"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// UserStreak is one account's entry in a DailyStreaksReport
type UserStreak struct {
	Email   string           `json:"email"`
	Streaks types.StreakView `json:"streaks"`
}
