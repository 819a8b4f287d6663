package normalize

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/lpi-harvester/internal/types"
)

func f(v float64) *float64 { return &v }

var (
	testAccount = types.Account{Identity: "a@example.com", Secret: "hunter2", CohortLabel: "cohort-1"}
	testNow     = time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC)
)

func TestCompletionRate(t *testing.T) {
	tests := []struct {
		played, missed int
		want           string
	}{
		{0, 0, "0%"},
		{10, 5, "67%"},
		{1, 2, "33%"},
		{1, 1, "50%"},
		{5, 0, "100%"},
		{0, 15, "0%"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.played, tt.missed), func(t *testing.T) {
			assert.Equal(t, tt.want, CompletionRate(tt.played, tt.missed))
		})
	}
}

func TestNormalize_EmptyData(t *testing.T) {
	report := Normalize(types.RelevantData{}, testAccount, testNow)

	require.True(t, report.OK())
	assert.Equal(t, "a@example.com", report.AccountInfo.Identity)
	assert.Equal(t, "cohort-1", report.AccountInfo.CohortLabel)
	assert.Equal(t, testNow, report.AccountInfo.ExtractedAt)

	assert.Equal(t, "Unknown", report.Summary.User)
	assert.Equal(t, "", report.Summary.FullName)
	assert.Equal(t, "Unknown", report.Summary.AgeCohort)
	assert.False(t, report.LPI.Overall.Valid)
	assert.Empty(t, report.LPI.ByArea)
	assert.NotNil(t, report.Rankings.TopGames)
	assert.NotNil(t, report.Rankings.MostImproved)
	assert.Equal(t, types.NotAvailable, report.Comparison.AgeCohort)
	assert.NotNil(t, report.Training.RecentSessions)
	assert.NotNil(t, report.GameProgress)

	info := report.Streaks.MonthInfo
	assert.Equal(t, 2024, info.Year)
	assert.Equal(t, 3, info.Month)
	assert.Equal(t, "March", info.MonthName)
	assert.Equal(t, 15, info.Today)
	assert.Equal(t, 31, info.DaysInMonth)
	assert.Equal(t, 0, info.DaysPlayed)
	assert.Equal(t, 15, info.DaysMissed)
	assert.Equal(t, 16, info.FutureDays)
	assert.Equal(t, "0%", info.CompletionRate)
}

func TestNormalize_EmptyDataJSON(t *testing.T) {
	report := Normalize(types.RelevantData{}, testAccount, testNow)
	data, err := json.Marshal(report)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.NotContains(t, string(data), "hunter2")
	assert.NotContains(t, doc, "error")
	assert.NotContains(t, doc, "success")

	lpi := doc["lpi"].(map[string]any)
	assert.Equal(t, "N/A", lpi["overall"])
	comparison := doc["comparison"].(map[string]any)
	assert.Equal(t, "N/A", comparison["rank"])
	assert.Equal(t, "2024-03-15T14:30:00Z", doc["accountInfo"].(map[string]any)["extractedAt"])
}

func TestNormalize_Streaks(t *testing.T) {
	interval := types.StreakInterval{StartDate: "2024-03-10", EndDate: "2024-03-12", Length: 3}
	data := types.RelevantData{
		StreakHistory: &types.StreakSummary{
			CurrentStreak: &interval,
			BestStreak:    &types.StreakInterval{Length: 9},
			TotalStreaks:  4,
		},
		DetailedStreaks: []types.StreakInterval{interval},
	}

	report := Normalize(data, testAccount, testNow)
	s := report.Streaks
	assert.Equal(t, 3, s.Current)
	assert.Equal(t, 9, s.Best)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, types.DayPlayed, s.MonthlyStreaks.Day(11))
	assert.Equal(t, types.DayMissed, s.MonthlyStreaks.Day(9))
	assert.Equal(t, types.DayFuture, s.MonthlyStreaks.Day(16))
	assert.Equal(t, 3, s.MonthInfo.DaysPlayed)
	assert.Equal(t, 12, s.MonthInfo.DaysMissed)
	assert.Equal(t, "20%", s.MonthInfo.CompletionRate)
}

func TestNormalize_SummaryAndLPI(t *testing.T) {
	data := types.RelevantData{
		UserInfo: &types.UserInfo{ID: "1", FirstName: "Ada", LastName: "Lovelace", HasPremium: true, AgeCohort: "30-34"},
		LPISummary: &types.LPISummary{
			OverallLPI:      f(812),
			BestOverallLPI:  f(900),
			FirstOverallLPI: f(0),
			ByArea: []types.AreaLPI{
				{AreaSlug: "memory", AreaName: "Memory", LPI: f(800), FirstLPI: f(600), BestLPI: f(850), PlayCount: 12},
				{AreaSlug: "speed", AreaName: "Speed", LPI: nil},
				{AreaSlug: "math", AreaName: "Math", LPI: f(700), FirstLPI: nil, BestLPI: f(750)},
			},
		},
	}

	report := Normalize(data, testAccount, testNow)
	assert.Equal(t, "Ada", report.Summary.User)
	assert.Equal(t, "Ada Lovelace", report.Summary.FullName)
	assert.True(t, report.Summary.Premium)
	assert.Equal(t, "30-34", report.Summary.AgeCohort)

	assert.Equal(t, types.Metric{Value: 812, Valid: true}, report.LPI.Overall)
	assert.Equal(t, types.Metric{Value: 900, Valid: true}, report.LPI.Best)
	assert.False(t, report.LPI.First.Valid, "zero LPI renders as N/A")

	require.Len(t, report.LPI.ByArea, 2, "areas without an LPI are omitted")
	assert.Equal(t, 250.0, report.LPI.ByArea["memory"].Improvement)
	assert.Equal(t, 12, report.LPI.ByArea["memory"].PlayCount)
	assert.Equal(t, 0.0, report.LPI.ByArea["math"].Improvement)
}

func TestNormalize_TopGamesStableAndLimited(t *testing.T) {
	var games []types.GameRanking
	for i := 0; i < 12; i++ {
		lpi := 100.0
		if i == 5 {
			lpi = 200
		}
		games = append(games, types.GameRanking{GameSlug: fmt.Sprintf("g%02d", i), LPI: lpi})
	}

	report := Normalize(types.RelevantData{GameRankings: games}, testAccount, testNow)
	top := report.Rankings.TopGames
	require.Len(t, top, TopGamesLimit)
	assert.Equal(t, "g05", top[0].Game)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, "g00", top[1].Game, "ties keep input order")
	assert.Equal(t, "g01", top[2].Game)
	assert.Equal(t, "g09", top[9].Game)
	assert.Equal(t, 10, top[9].Rank)
}

func TestNormalize_MostImproved(t *testing.T) {
	var improved []types.ImprovedGame
	for i, inc := range []float64{3, 9, 1, 7, 5, 8, 2} {
		improved = append(improved, types.ImprovedGame{GameSlug: fmt.Sprintf("g%d", i), LPIIncrease: inc})
	}

	report := Normalize(types.RelevantData{MostImprovedGames: improved}, testAccount, testNow)
	got := report.Rankings.MostImproved
	require.Len(t, got, MostImprovedLimit)

	var order []string
	for _, g := range got {
		order = append(order, g.Game)
	}
	assert.Equal(t, []string{"g1", "g5", "g3", "g4", "g0"}, order)
	assert.Equal(t, 9.0, got[0].Improvement)
}

func TestNormalize_PercentilesAndComparison(t *testing.T) {
	data := types.RelevantData{
		Comparisons: &types.CohortComparison{
			AgeCohort:         "20-24",
			OverallPercentile: f(64),
			PercentileByArea: []types.AreaPercentile{
				{AreaSlug: "memory", AreaName: "Memory", Percentile: f(70), BestPercentile: f(72.5)},
				{AreaSlug: "speed", AreaName: "Speed", Percentile: f(0)},
				{AreaSlug: "math", AreaName: "Math", Percentile: f(10)},
			},
			Rank:       f(42),
			TotalUsers: f(1000),
		},
	}

	report := Normalize(data, testAccount, testNow)
	assert.Equal(t, types.Metric{Value: 64, Valid: true}, report.Percentiles.Overall)
	assert.False(t, report.Percentiles.Best.Valid)

	require.Len(t, report.Percentiles.ByArea, 2)
	assert.Equal(t, types.AreaPercentiles{Name: "Memory", Current: "70%", Best: "72.5%"}, report.Percentiles.ByArea["memory"])
	assert.Equal(t, types.NotAvailable, report.Percentiles.ByArea["math"].Best)

	assert.Equal(t, "20-24", report.Comparison.AgeCohort)
	assert.Equal(t, 42.0, report.Comparison.Rank.Value)
	assert.False(t, report.Comparison.BestRank.Valid)
	assert.Equal(t, 1000.0, report.Comparison.TotalUsers.Value)
}

func TestNormalize_PassThroughSections(t *testing.T) {
	data := types.RelevantData{
		TrainingHistory: &types.TrainingHistory{TotalSessions: 3, TotalGamesPlayed: 9},
		FitTestResults:  &types.FitTestResults{OverallScore: f(10)},
		Achievements:    &types.Achievements{Total: 2},
		DailyStats:      &types.DailyStats{Today: json.RawMessage(`{"games":1}`)},
		GameProgress:    []types.GameProgress{{GameSlug: "a"}},
	}

	report := Normalize(data, testAccount, testNow)
	assert.Equal(t, 3, report.Training.TotalSessions)
	assert.Equal(t, 9, report.Training.TotalGamesPlayed)
	assert.NotNil(t, report.Training.RecentSessions)
	assert.Same(t, data.FitTestResults, report.FitTest)
	assert.Same(t, data.Achievements, report.Achievements)
	assert.Same(t, data.DailyStats, report.DailyStats)
	assert.Len(t, report.GameProgress, 1)
}

func TestNormalize_ExtractedAtIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2024, time.March, 1, 1, 0, 0, 0, loc)

	report := Normalize(types.RelevantData{}, testAccount, now)
	assert.Equal(t, time.UTC, report.AccountInfo.ExtractedAt.Location())
	assert.True(t, report.AccountInfo.ExtractedAt.Equal(now))
	// The calendar follows the local date, which is March 1st.
	assert.Equal(t, 3, report.Streaks.MonthInfo.Month)
	assert.Equal(t, 1, report.Streaks.MonthInfo.Today)
}
