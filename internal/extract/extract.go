// Package extract folds captured API responses into a single RelevantData record.
package extract

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/jonathan/lpi-harvester/internal/types"
)

// object is a JSON object decoded one level deep
type object map[string]json.RawMessage

// Extract folds responses, in capture order, into one RelevantData.
//
// The fold never fails. Bodies without a data object are skipped, and a
// section that does not decode is dropped without affecting the others.
func Extract(responses []types.CapturedResponse) types.RelevantData {
	var rd types.RelevantData
	for _, resp := range responses {
		raw, me, ok := meSection(resp.Body)
		if !ok {
			continue
		}
		mergeUser(&rd, raw)
		if summary, ok := asObject(me, "lpiSummary"); ok {
			mergeLPISummary(&rd, summary)
		}
		mergeStreakHistory(&rd, me)
		mergeFirstSeen(&rd, me)
		mergeGameProgress(&rd, me)
	}
	return rd
}

// meSection returns body.data.me both raw and split into sections.
// Responses carrying only data.user have nothing the fold keeps.
func meSection(body json.RawMessage) (json.RawMessage, object, bool) {
	var envelope object
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, nil, false
	}
	data, ok := asObject(envelope, "data")
	if !ok {
		return nil, nil, false
	}
	raw, ok := present(data, "me")
	if !ok {
		return nil, nil, false
	}
	var me object
	if err := json.Unmarshal(raw, &me); err != nil {
		return nil, nil, false
	}
	return raw, me, true
}

// present reports whether key exists and is not JSON null
func present(obj object, key string) (json.RawMessage, bool) {
	raw, ok := obj[key]
	if !ok {
		return nil, false
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

func asObject(obj object, key string) (object, bool) {
	raw, ok := present(obj, key)
	if !ok {
		return nil, false
	}
	var out object
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

// decode unmarshals obj[key] into a T; missing, null and malformed values all report false
func decode[T any](obj object, key string) (T, bool) {
	var out T
	raw, ok := present(obj, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false
	}
	return out, true
}

// orSlug mirrors the remote app's habit of omitting display names
func orSlug(name, slug string) string {
	if name != "" {
		return name
	}
	return slug
}

func truthy(v *float64) bool {
	return v != nil && *v != 0
}

// mergeUser overwrites the profile whenever a response carries id and first name
func mergeUser(rd *types.RelevantData, me json.RawMessage) {
	var u wireUser
	if err := json.Unmarshal(me, &u); err != nil {
		return
	}
	if u.ID == "" || u.FirstName == "" {
		return
	}
	rd.UserInfo = &types.UserInfo{
		ID:             string(u.ID),
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		AgeCohort:      u.AgeCohort,
		HasPremium:     u.HasPremium,
		MemberSince:    u.MemberSince,
		Timezone:       u.Timezone,
		ProfilePicture: u.ProfilePicture,
		AccountType:    u.AccountType,
	}
}

func mergeLPISummary(rd *types.RelevantData, summary object) {
	if rd.LPISummary == nil {
		rd.LPISummary = &types.LPISummary{}
	}
	s := rd.LPISummary

	// Scalars overwrite whenever the key is sent, even as null.
	if raw, ok := summary["overallLpi"]; ok {
		s.OverallLPI = number(raw)
	}
	if raw, ok := summary["bestOverallLpi"]; ok {
		s.BestOverallLPI = number(raw)
	}
	if raw, ok := summary["firstOverallLpi"]; ok {
		s.FirstOverallLPI = number(raw)
	}
	if updated, ok := decode[string](summary, "updatedAt"); ok {
		s.UpdatedAt = updated
	}

	if areas, ok := decode[[]wireArea](summary, "lpisByArea"); ok && (s.ByArea == nil || len(areas) > len(s.ByArea)) {
		s.ByArea = make([]types.AreaLPI, 0, len(areas))
		for _, a := range areas {
			s.ByArea = append(s.ByArea, types.AreaLPI{
				AreaSlug:     a.AreaSlug,
				AreaName:     orSlug(a.AreaName, a.AreaSlug),
				LPI:          a.LPI,
				FirstLPI:     a.FirstLPI,
				BestLPI:      a.BestLPI,
				UpdatedAt:    a.UpdatedAt,
				PlayCount:    a.PlayCount,
				AverageScore: a.AverageScore,
			})
		}
	}

	// Length is compared against the stored list, which has already been filtered.
	if games, ok := decode[[]wireGameLPI](summary, "lpisByGame"); ok && (rd.GameRankings == nil || len(games) > len(rd.GameRankings)) {
		rd.GameRankings = gameRankings(games)
	}

	if improved, ok := decode[[]wireImproved](summary, "mostImprovedGames"); ok && (rd.MostImprovedGames == nil || len(improved) > len(rd.MostImprovedGames)) {
		rd.MostImprovedGames = mostImproved(improved)
	}

	if cohorts, ok := decode[[]wireCohortComparison](summary, "ageCohortComparisons"); ok {
		mergeComparisons(rd, cohorts)
	}
}

func number(raw json.RawMessage) *float64 {
	var v *float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func gameRef(g *wireGameRef) wireGameRef {
	if g == nil {
		return wireGameRef{}
	}
	return *g
}

func gameRankings(games []wireGameLPI) []types.GameRanking {
	out := make([]types.GameRanking, 0, len(games))
	for _, g := range games {
		if g.LPI == nil || *g.LPI <= 0 {
			continue
		}
		ref := gameRef(g.Game)
		ranking := types.GameRanking{
			GameSlug:     ref.Slug,
			GameName:     orSlug(ref.Name, ref.Slug),
			AreaSlug:     ref.AreaSlug,
			AreaName:     orSlug(ref.AreaName, ref.AreaSlug),
			LPI:          *g.LPI,
			FirstLPI:     g.FirstLPI,
			BestLPI:      g.BestLPI,
			PlayCount:    g.PlayCount,
			LastPlayedAt: g.LastPlayedAt,
			AverageScore: g.AverageScore,
			BestScore:    g.BestScore,
			FirstScore:   g.FirstScore,
			RecentScores: g.RecentScores,
		}
		if ranking.RecentScores == nil {
			ranking.RecentScores = []float64{}
		}
		if truthy(g.BestLPI) && truthy(g.FirstLPI) {
			ranking.Improvement = *g.BestLPI - *g.FirstLPI
		}
		out = append(out, ranking)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LPI > out[j].LPI })
	return out
}

func mostImproved(games []wireImproved) []types.ImprovedGame {
	out := make([]types.ImprovedGame, 0, len(games))
	for _, g := range games {
		if g.LPIIncrease == nil || *g.LPIIncrease <= 0 {
			continue
		}
		ref := gameRef(g.Game)
		out = append(out, types.ImprovedGame{
			GameSlug:        ref.Slug,
			GameName:        orSlug(ref.Name, ref.Slug),
			AreaSlug:        ref.AreaSlug,
			AreaName:        orSlug(ref.AreaName, ref.AreaSlug),
			LPIIncrease:     *g.LPIIncrease,
			PercentIncrease: g.PercentIncrease,
			Bucket:          g.Bucket,
			PlayCount:       g.PlayCount,
			FirstLPI:        g.FirstLPI,
			CurrentLPI:      g.CurrentLPI,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LPIIncrease > out[j].LPIIncrease })
	return out
}

// mergeComparisons keeps the entry for the user's age cohort. Once a comparison is
// stored, only a candidate list with more than one cohort may replace it.
func mergeComparisons(rd *types.RelevantData, cohorts []wireCohortComparison) {
	current := 0
	if rd.Comparisons != nil {
		current = 1
	}
	if len(cohorts) <= current {
		return
	}

	cohort := types.DefaultAgeCohort
	if rd.UserInfo != nil && rd.UserInfo.AgeCohort != "" {
		cohort = rd.UserInfo.AgeCohort
	}
	for _, c := range cohorts {
		if c.AgeCohortSlug != cohort {
			continue
		}
		cmp := &types.CohortComparison{
			AgeCohort:             cohort,
			OverallPercentile:     c.OverallPercentile,
			BestOverallPercentile: c.BestOverallPercentile,
			PercentileByArea:      make([]types.AreaPercentile, 0, len(c.PercentileByArea)),
			TotalUsers:            c.TotalUsers,
			Rank:                  c.Rank,
			BestRank:              c.BestRank,
		}
		for _, a := range c.PercentileByArea {
			cmp.PercentileByArea = append(cmp.PercentileByArea, types.AreaPercentile{
				AreaSlug:       a.AreaSlug,
				AreaName:       orSlug(a.AreaName, a.AreaSlug),
				Percentile:     a.Percentile,
				BestPercentile: a.BestPercentile,
			})
		}
		rd.Comparisons = cmp
		return
	}
}

func streakInterval(s wireStreak) types.StreakInterval {
	iv := types.StreakInterval{
		StartDate:    s.StartDate,
		EndDate:      s.EndDate,
		Length:       s.Length,
		IsActive:     s.IsActive,
		TrainingDays: make([]types.TrainingDay, 0, len(s.TrainingDays)),
	}
	for _, d := range s.TrainingDays {
		summary := d.GamesSummary
		if summary == nil {
			summary = []json.RawMessage{}
		}
		iv.TrainingDays = append(iv.TrainingDays, types.TrainingDay{
			Date:         d.Date,
			GamesPlayed:  d.GamesPlayed,
			TotalTime:    d.TotalTime,
			LPIGained:    d.LPIGained,
			SessionCount: d.SessionCount,
			GamesSummary: summary,
		})
	}
	return iv
}

// mergeStreakHistory overwrites the streak summary on every response that carries
// one; the detailed interval list follows the longer-list rule.
func mergeStreakHistory(rd *types.RelevantData, me object) {
	history, ok := decode[wireStreakHistory](me, "streakHistory")
	if !ok {
		return
	}

	intervals := make([]types.StreakInterval, 0, len(history.Streaks))
	for _, s := range history.Streaks {
		intervals = append(intervals, streakInterval(s))
	}

	summary := &types.StreakSummary{
		TotalStreaks:      len(intervals),
		AllStreaks:        intervals,
		StreakDays:        history.StreakDays,
		LongestStreakDays: history.LongestStreakDays,
	}
	if n := len(intervals); n > 0 {
		last := intervals[n-1]
		summary.CurrentStreak = &last
	}
	if history.BestStreak != nil {
		best := streakInterval(*history.BestStreak)
		summary.BestStreak = &best
	}
	rd.StreakHistory = summary

	if len(intervals) > 0 && (rd.DetailedStreaks == nil || len(intervals) > len(rd.DetailedStreaks)) {
		rd.DetailedStreaks = intervals
	}
}

// mergeFirstSeen fills the sections that are captured at most once per session
func mergeFirstSeen(rd *types.RelevantData, me object) {
	if rd.FitTestResults == nil {
		if ft, ok := decode[wireFitTest](me, "fitTest"); ok {
			rd.FitTestResults = fitTest(ft)
		}
	}
	if rd.TrainingHistory == nil {
		if th, ok := decode[wireTrainingHistory](me, "trainingHistory"); ok {
			rd.TrainingHistory = trainingHistory(th)
		}
	}
	if rd.DailyStats == nil {
		if ds, ok := decode[types.DailyStats](me, "dailyStats"); ok {
			rd.DailyStats = &ds
		}
	}
	if rd.Achievements == nil {
		if a, ok := decode[wireAchievements](me, "achievements"); ok {
			rd.Achievements = achievements(a)
		}
	}
}

func fitTest(ft wireFitTest) *types.FitTestResults {
	out := &types.FitTestResults{
		CompletedAt:       ft.CompletedAt,
		OverallScore:      ft.OverallScore,
		OverallPercentile: ft.OverallPercentile,
		Percentiles:       make([]types.FitTestPercentile, 0, len(ft.Percentiles)),
	}
	for _, p := range ft.Percentiles {
		var play types.GamePlay
		if p.GamePlay != nil {
			play = types.GamePlay{
				Score:      p.GamePlay.Score,
				LPI:        p.GamePlay.LPI,
				FinishedAt: p.GamePlay.FinishedAt,
				Duration:   p.GamePlay.Duration,
				Accuracy:   p.GamePlay.Accuracy,
			}
		}
		out.Percentiles = append(out.Percentiles, types.FitTestPercentile{
			GameSlug:   p.GameSlug,
			GameName:   orSlug(p.GameName, p.GameSlug),
			AreaSlug:   p.AreaSlug,
			AreaName:   orSlug(p.AreaName, p.AreaSlug),
			Percentile: p.Percentile,
			Score:      p.Score,
			GamePlay:   play,
		})
	}
	return out
}

func trainingHistory(th wireTrainingHistory) *types.TrainingHistory {
	out := &types.TrainingHistory{
		TotalSessions:      th.TotalSessions,
		TotalTimeMinutes:   th.TotalTimeMinutes,
		AverageSessionTime: th.AverageSessionTime,
		TotalGamesPlayed:   th.TotalGamesPlayed,
		RecentSessions:     make([]types.TrainingSession, 0, len(th.RecentSessions)),
	}
	for _, s := range th.RecentSessions {
		session := types.TrainingSession{
			Date:         s.Date,
			GamesPlayed:  s.GamesPlayed,
			TotalTime:    s.TotalTime,
			LPIChange:    s.LPIChange,
			SessionType:  s.SessionType,
			GamesDetails: make([]types.SessionGame, 0, len(s.Games)),
		}
		for _, g := range s.Games {
			session.GamesDetails = append(session.GamesDetails, types.SessionGame{
				Slug:      g.Slug,
				Name:      orSlug(g.Name, g.Slug),
				Score:     g.Score,
				LPI:       g.LPI,
				TimeSpent: g.TimeSpent,
				Accuracy:  g.Accuracy,
			})
		}
		out.RecentSessions = append(out.RecentSessions, session)
	}
	return out
}

func achievements(a wireAchievements) *types.Achievements {
	out := &types.Achievements{
		Total:     a.Total,
		Earned:    make([]types.Achievement, 0, len(a.Earned)),
		Available: make([]types.Achievement, 0, len(a.Available)),
	}
	for _, e := range a.Earned {
		out.Earned = append(out.Earned, types.Achievement{
			ID:          string(e.ID),
			Name:        e.Name,
			Description: e.Description,
			EarnedAt:    e.EarnedAt,
			Category:    e.Category,
		})
	}
	for _, e := range a.Available {
		out.Available = append(out.Available, types.Achievement{
			ID:          string(e.ID),
			Name:        e.Name,
			Description: e.Description,
			Category:    e.Category,
			Progress:    e.Progress,
		})
	}
	return out
}

func mergeGameProgress(rd *types.RelevantData, me object) {
	games, ok := decode[[]wireGameProgress](me, "gameProgressHistory")
	if !ok || (rd.GameProgress != nil && len(games) <= len(rd.GameProgress)) {
		return
	}
	out := make([]types.GameProgress, 0, len(games))
	for _, g := range games {
		progress := types.GameProgress{
			GameSlug:     g.GameSlug,
			GameName:     orSlug(g.GameName, g.GameSlug),
			AreaSlug:     g.AreaSlug,
			AreaName:     orSlug(g.AreaName, g.AreaSlug),
			ProgressData: make([]types.ProgressPoint, 0, len(g.ProgressData)),
		}
		for _, p := range g.ProgressData {
			progress.ProgressData = append(progress.ProgressData, types.ProgressPoint{
				Date:       p.Date,
				LPI:        p.LPI,
				Score:      p.Score,
				Percentile: p.Percentile,
				PlayNumber: p.PlayNumber,
			})
		}
		out = append(out, progress)
	}
	rd.GameProgress = out
}
