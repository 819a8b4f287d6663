// Package observability provides formatted run summaries for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/lpi-harvester/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if utf8.RuneCountInString(line) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRunSummary outputs the totals and the per-account outcome of a run.
func (p *Printer) PrintRunSummary(stats RunStats) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Accounts:   %d\n", stats.Total))
	sb.WriteString(fmt.Sprintf("Succeeded:  %d (%.0f%%)\n", stats.Succeeded, stats.SuccessRate()))
	sb.WriteString(fmt.Sprintf("Failed:     %d\n", stats.Failed))
	if stats.Elapsed > 0 {
		sb.WriteString(fmt.Sprintf("Elapsed:    %s\n", stats.Elapsed.Round(100*time.Millisecond)))
	}

	if len(stats.Accounts) > 0 {
		sb.WriteString("\n")
	}
	for _, a := range stats.Accounts {
		if !a.OK {
			sb.WriteString(fmt.Sprintf("✗ %s\n", a.Identity))
			sb.WriteString(fmt.Sprintf("  %s\n", a.Error))
			continue
		}
		sb.WriteString(fmt.Sprintf("✓ %s\n", a.Identity))
		sb.WriteString(fmt.Sprintf("  LPI %s  played %d/%d days (%s)\n",
			formatMetric(a.OverallLPI), a.DaysPlayed, a.DaysInMonth, a.CompletionRate))
	}

	p.printBox("HARVEST SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAccountReport outputs the highlights of one successful report.
func (p *Printer) PrintAccountReport(report types.AccountReport) {
	if !report.OK() {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("User:     %s\n", report.Summary.User))
	sb.WriteString(fmt.Sprintf("Cohort:   %s\n", report.Summary.AgeCohort))
	sb.WriteString(fmt.Sprintf("LPI:      %s (best %s)\n", formatMetric(report.LPI.Overall), formatMetric(report.LPI.Best)))

	info := report.Streaks.MonthInfo
	sb.WriteString(fmt.Sprintf("Streak:   current %d, best %d\n", report.Streaks.Current, report.Streaks.Best))
	sb.WriteString(fmt.Sprintf("%s:  %s\n", info.MonthName[:min(3, len(info.MonthName))], calendarLine(report.Streaks.MonthlyStreaks)))
	sb.WriteString("\n")

	games := report.Rankings.TopGames
	if len(games) > 0 {
		sb.WriteString("Top Games:\n")
		count := min(len(games), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  %d. %s (%.0f)\n", games[i].Rank, games[i].Name, games[i].LPI))
		}
		if len(games) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(games)-maxItemsToShow))
		}
	}

	p.printBox(strings.ToUpper(report.AccountInfo.Identity), strings.TrimSuffix(sb.String(), "\n"))
}

// calendarLine renders a month as one character per day
func calendarLine(c types.MonthlyCalendar) string {
	var sb strings.Builder
	for _, d := range c.Days {
		switch d {
		case types.DayPlayed:
			sb.WriteString("●")
		case types.DayMissed:
			sb.WriteString("○")
		default:
			sb.WriteString("·")
		}
	}
	return sb.String()
}

func formatMetric(m types.Metric) string {
	if !m.Valid {
		return types.NotAvailable
	}
	return fmt.Sprintf("%.0f", m.Value)
}
