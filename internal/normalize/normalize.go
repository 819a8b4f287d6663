// Package normalize turns a RelevantData record into the report written for an account.
package normalize

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/lpi-harvester/internal/streaks"
	"github.com/jonathan/lpi-harvester/internal/types"
)

const (
	// TopGamesLimit is the number of games kept in rankings.topGames
	TopGamesLimit = 10
	// MostImprovedLimit is the number of games kept in rankings.mostImproved
	MostImprovedLimit = 5

	unknown = "Unknown"
)

// Normalize builds the success report for account from data.
// now is the extraction time and decides which month the streak calendar covers.
func Normalize(data types.RelevantData, account types.Account, now time.Time) types.AccountReport {
	stats := &types.AccountStats{
		Summary:      summary(data.UserInfo),
		LPI:          lpi(data.LPISummary),
		Rankings:     rankings(data.GameRankings, data.MostImprovedGames),
		Streaks:      streakView(data.StreakHistory, data.DetailedStreaks, now),
		Percentiles:  percentiles(data.Comparisons),
		Training:     training(data.TrainingHistory),
		FitTest:      data.FitTestResults,
		GameProgress: data.GameProgress,
		DailyStats:   data.DailyStats,
		Achievements: data.Achievements,
		Comparison:   comparison(data.Comparisons),
	}
	if stats.GameProgress == nil {
		stats.GameProgress = []types.GameProgress{}
	}

	return types.AccountReport{
		AccountInfo: types.AccountInfo{
			Identity:    account.Identity,
			CohortLabel: account.CohortLabel,
			ExtractedAt: now.UTC(),
		},
		AccountStats: stats,
	}
}

// CompletionRate formats played / (played + missed) as a rounded percentage
func CompletionRate(played, missed int) string {
	if played+missed == 0 {
		return "0%"
	}
	rate := math.Round(float64(played) / float64(played+missed) * 100)
	return fmt.Sprintf("%d%%", int(rate))
}

func summary(u *types.UserInfo) types.Summary {
	if u == nil {
		return types.Summary{User: unknown, AgeCohort: unknown}
	}
	s := types.Summary{
		User:        u.FirstName,
		FullName:    strings.TrimSpace(u.FirstName + " " + u.LastName),
		Premium:     u.HasPremium,
		AgeCohort:   u.AgeCohort,
		MemberSince: u.MemberSince,
		AccountType: u.AccountType,
	}
	if s.User == "" {
		s.User = unknown
	}
	if s.AgeCohort == "" {
		s.AgeCohort = unknown
	}
	return s
}

func improvement(first, best *float64) float64 {
	if first == nil || best == nil || *first == 0 || *best == 0 {
		return 0
	}
	return *best - *first
}

func lpi(s *types.LPISummary) types.LPIView {
	view := types.LPIView{ByArea: map[string]types.AreaScore{}}
	if s == nil {
		return view
	}
	view.Overall = types.MetricOf(s.OverallLPI)
	view.Best = types.MetricOf(s.BestOverallLPI)
	view.First = types.MetricOf(s.FirstOverallLPI)
	for _, area := range s.ByArea {
		if area.LPI == nil {
			continue
		}
		view.ByArea[area.AreaSlug] = types.AreaScore{
			Name:        area.AreaName,
			Current:     area.LPI,
			First:       area.FirstLPI,
			Best:        area.BestLPI,
			PlayCount:   area.PlayCount,
			Improvement: improvement(area.FirstLPI, area.BestLPI),
		}
	}
	return view
}

func rankings(games []types.GameRanking, improved []types.ImprovedGame) types.Rankings {
	out := types.Rankings{
		TopGames:     []types.RankedGame{},
		MostImproved: []types.ImprovedRank{},
	}

	byLPI := append([]types.GameRanking(nil), games...)
	sort.SliceStable(byLPI, func(i, j int) bool { return byLPI[i].LPI > byLPI[j].LPI })
	for i, g := range byLPI {
		if i == TopGamesLimit {
			break
		}
		out.TopGames = append(out.TopGames, types.RankedGame{
			Rank:         i + 1,
			Game:         g.GameSlug,
			Name:         g.GameName,
			Area:         g.AreaSlug,
			AreaName:     g.AreaName,
			LPI:          g.LPI,
			FirstLPI:     g.FirstLPI,
			BestLPI:      g.BestLPI,
			PlayCount:    g.PlayCount,
			Improvement:  g.Improvement,
			LastPlayedAt: g.LastPlayedAt,
		})
	}

	byIncrease := append([]types.ImprovedGame(nil), improved...)
	sort.SliceStable(byIncrease, func(i, j int) bool { return byIncrease[i].LPIIncrease > byIncrease[j].LPIIncrease })
	for i, g := range byIncrease {
		if i == MostImprovedLimit {
			break
		}
		out.MostImproved = append(out.MostImproved, types.ImprovedRank{
			Rank:            i + 1,
			Game:            g.GameSlug,
			Name:            g.GameName,
			Area:            g.AreaSlug,
			AreaName:        g.AreaName,
			Improvement:     g.LPIIncrease,
			PercentIncrease: g.PercentIncrease,
			PlayCount:       g.PlayCount,
		})
	}
	return out
}

func streakView(history *types.StreakSummary, detailed []types.StreakInterval, now time.Time) types.StreakView {
	year, month := now.Year(), now.Month()
	calendar := streaks.Reconstruct(detailed, year, month, now)
	played, missed, future := calendar.Counts()

	view := types.StreakView{
		MonthlyStreaks: calendar,
		MonthInfo: types.MonthInfo{
			Year:           year,
			Month:          int(month),
			MonthName:      month.String(),
			Today:          now.Day(),
			DaysInMonth:    calendar.Len(),
			DaysPlayed:     played,
			DaysMissed:     missed,
			FutureDays:     future,
			CompletionRate: CompletionRate(played, missed),
		},
	}
	if history != nil {
		if history.CurrentStreak != nil {
			view.Current = history.CurrentStreak.Length
		}
		if history.BestStreak != nil {
			view.Best = history.BestStreak.Length
		}
		view.Total = history.TotalStreaks
	}
	return view
}

func percent(v *float64) string {
	if v == nil {
		return types.NotAvailable
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + "%"
}

func percentiles(c *types.CohortComparison) types.PercentileView {
	view := types.PercentileView{ByArea: map[string]types.AreaPercentiles{}}
	if c == nil {
		return view
	}
	view.Overall = types.MetricOf(c.OverallPercentile)
	view.Best = types.MetricOf(c.BestOverallPercentile)
	for _, area := range c.PercentileByArea {
		if area.Percentile == nil || *area.Percentile <= 0 {
			continue
		}
		view.ByArea[area.AreaSlug] = types.AreaPercentiles{
			Name:    area.AreaName,
			Current: percent(area.Percentile),
			Best:    percent(area.BestPercentile),
		}
	}
	return view
}

func training(h *types.TrainingHistory) types.TrainingView {
	if h == nil {
		return types.TrainingView{RecentSessions: []types.TrainingSession{}}
	}
	view := types.TrainingView{
		TotalSessions:      h.TotalSessions,
		TotalTimeMinutes:   h.TotalTimeMinutes,
		AverageSessionTime: h.AverageSessionTime,
		TotalGamesPlayed:   h.TotalGamesPlayed,
		RecentSessions:     h.RecentSessions,
	}
	if view.RecentSessions == nil {
		view.RecentSessions = []types.TrainingSession{}
	}
	return view
}

func comparison(c *types.CohortComparison) types.ComparisonView {
	if c == nil {
		return types.ComparisonView{AgeCohort: types.NotAvailable}
	}
	view := types.ComparisonView{
		AgeCohort:  c.AgeCohort,
		Rank:       types.MetricOf(c.Rank),
		BestRank:   types.MetricOf(c.BestRank),
		TotalUsers: types.MetricOf(c.TotalUsers),
	}
	if view.AgeCohort == "" {
		view.AgeCohort = types.NotAvailable
	}
	return view
}
