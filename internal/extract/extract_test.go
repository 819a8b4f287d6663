package extract

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/lpi-harvester/internal/types"
)

func response(t *testing.T, body string) types.CapturedResponse {
	t.Helper()
	require.True(t, json.Valid([]byte(body)), "test body must be valid JSON: %s", body)
	return types.CapturedResponse{
		SourceURL: "https://app.lumosity.com/gateway/graphql",
		Body:      json.RawMessage(body),
	}
}

func TestExtract_EmptyInput(t *testing.T) {
	for _, in := range [][]types.CapturedResponse{nil, {}} {
		got := Extract(in)
		assert.Empty(t, cmp.Diff(types.RelevantData{}, got))
	}
}

func TestExtract_SkipsBodiesWithoutData(t *testing.T) {
	got := Extract([]types.CapturedResponse{
		response(t, `{}`),
		response(t, `{"data":null}`),
		response(t, `{"errors":[{"message":"nope"}]}`),
		response(t, `{"data":{"user":{"id":"1"}}}`),
		response(t, `[1,2,3]`),
		{SourceURL: "x", Body: json.RawMessage(`not json`)},
	})
	assert.Empty(t, cmp.Diff(types.RelevantData{}, got))
}

func TestExtract_UserInfo(t *testing.T) {
	tests := []struct {
		name   string
		bodies []string
		want   *types.UserInfo
	}{
		{
			name:   "string id",
			bodies: []string{`{"data":{"me":{"id":"u1","firstName":"Ada","lastName":"L","ageCohort":"30-34","hasPremium":true}}}`},
			want:   &types.UserInfo{ID: "u1", FirstName: "Ada", LastName: "L", AgeCohort: "30-34", HasPremium: true},
		},
		{
			name:   "numeric id",
			bodies: []string{`{"data":{"me":{"id":42,"firstName":"Ada"}}}`},
			want:   &types.UserInfo{ID: "42", FirstName: "Ada"},
		},
		{
			name:   "missing first name is ignored",
			bodies: []string{`{"data":{"me":{"id":"u1"}}}`},
			want:   nil,
		},
		{
			name: "last complete profile wins",
			bodies: []string{
				`{"data":{"me":{"id":"u1","firstName":"Ada"}}}`,
				`{"data":{"me":{"id":"u1","firstName":"Grace"}}}`,
				`{"data":{"me":{"id":"u1"}}}`,
			},
			want: &types.UserInfo{ID: "u1", FirstName: "Grace"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in []types.CapturedResponse
			for _, b := range tt.bodies {
				in = append(in, response(t, b))
			}
			got := Extract(in)
			assert.Empty(t, cmp.Diff(tt.want, got.UserInfo))
		})
	}
}

func TestExtract_LPISummaryKeepsLongerAreaList(t *testing.T) {
	got := Extract([]types.CapturedResponse{
		response(t, `{"data":{"me":{"lpiSummary":{"overallLpi":500,"lpisByArea":[
			{"areaSlug":"memory","areaName":"Memory","lpi":510},
			{"areaSlug":"speed","lpi":490}
		]}}}}`),
		response(t, `{"data":{"me":{"lpiSummary":{"overallLpi":520,"lpisByArea":[
			{"areaSlug":"memory","areaName":"Memory","lpi":530}
		]}}}}`),
	})

	require.NotNil(t, got.LPISummary)
	require.NotNil(t, got.LPISummary.OverallLPI)
	assert.Equal(t, 520.0, *got.LPISummary.OverallLPI, "scalars are last-write-wins")

	require.Len(t, got.LPISummary.ByArea, 2, "shorter list must not replace the longer one")
	assert.Equal(t, 510.0, *got.LPISummary.ByArea[0].LPI)
	assert.Equal(t, "speed", got.LPISummary.ByArea[1].AreaName, "missing area name falls back to slug")
}

func TestExtract_LPISummaryLongerListReplaces(t *testing.T) {
	got := Extract([]types.CapturedResponse{
		response(t, `{"data":{"me":{"lpiSummary":{"lpisByArea":[{"areaSlug":"memory","lpi":1}]}}}}`),
		response(t, `{"data":{"me":{"lpiSummary":{"lpisByArea":[{"areaSlug":"memory","lpi":2},{"areaSlug":"speed","lpi":3}]}}}}`),
	})
	require.Len(t, got.LPISummary.ByArea, 2)
	assert.Equal(t, 2.0, *got.LPISummary.ByArea[0].LPI)
}

func TestExtract_GameRankings(t *testing.T) {
	got := Extract([]types.CapturedResponse{
		response(t, `{"data":{"me":{"lpiSummary":{"lpisByGame":[
			{"game":{"slug":"a","name":"Alpha","areaSlug":"memory"},"lpi":300,"firstLpi":100,"bestLpi":350,"playCount":4},
			{"game":{"slug":"b"},"lpi":0},
			{"game":{"slug":"c"},"lpi":400,"firstLpi":0,"bestLpi":420},
			{"game":{"slug":"d"},"lpi":300}
		]}}}}`),
	})

	require.Len(t, got.GameRankings, 3, "games without a positive LPI are dropped")
	assert.Equal(t, "c", got.GameRankings[0].GameSlug)
	assert.Equal(t, "a", got.GameRankings[1].GameSlug, "ties keep their original order")
	assert.Equal(t, "d", got.GameRankings[2].GameSlug)

	assert.Equal(t, 250.0, got.GameRankings[1].Improvement)
	assert.Equal(t, 0.0, got.GameRankings[0].Improvement, "improvement needs both first and best LPI")
	assert.Equal(t, "Alpha", got.GameRankings[1].GameName)
	assert.Equal(t, "memory", got.GameRankings[1].AreaName)
	assert.NotNil(t, got.GameRankings[2].RecentScores)
}

func TestExtract_GameRankingsCompareRawLengthToFilteredList(t *testing.T) {
	got := Extract([]types.CapturedResponse{
		response(t, `{"data":{"me":{"lpiSummary":{"lpisByGame":[
			{"game":{"slug":"a"},"lpi":10},{"game":{"slug":"b"},"lpi":20}
		]}}}}`),
		// Three raw entries beat the two stored ones even though only one survives the filter.
		response(t, `{"data":{"me":{"lpiSummary":{"lpisByGame":[
			{"game":{"slug":"x"},"lpi":5},{"game":{"slug":"y"},"lpi":0},{"game":{"slug":"z"},"lpi":0}
		]}}}}`),
	})
	require.Len(t, got.GameRankings, 1)
	assert.Equal(t, "x", got.GameRankings[0].GameSlug)
}

func TestExtract_MostImproved(t *testing.T) {
	got := Extract([]types.CapturedResponse{
		response(t, `{"data":{"me":{"lpiSummary":{"mostImprovedGames":[
			{"game":{"slug":"a"},"lpiIncrease":5},
			{"game":{"slug":"b"},"lpiIncrease":-2},
			{"game":{"slug":"c"},"lpiIncrease":50,"percentIncrease":12.5}
		]}}}}`),
	})
	require.Len(t, got.MostImprovedGames, 2)
	assert.Equal(t, "c", got.MostImprovedGames[0].GameSlug)
	assert.Equal(t, 12.5, *got.MostImprovedGames[0].PercentIncrease)
}

func TestExtract_Comparisons(t *testing.T) {
	cohorts := `"ageCohortComparisons":[
		{"ageCohortSlug":"20-24","overallPercentile":50,"rank":100},
		{"ageCohortSlug":"30-34","overallPercentile":80,"rank":10,
		 "percentileByArea":[{"areaSlug":"memory","percentile":70,"bestPercentile":75}]}
	]`

	t.Run("uses the user's cohort", func(t *testing.T) {
		got := Extract([]types.CapturedResponse{
			response(t, `{"data":{"me":{"id":"u","firstName":"A","ageCohort":"30-34","lpiSummary":{`+cohorts+`}}}}`),
		})
		require.NotNil(t, got.Comparisons)
		assert.Equal(t, "30-34", got.Comparisons.AgeCohort)
		assert.Equal(t, 80.0, *got.Comparisons.OverallPercentile)
		require.Len(t, got.Comparisons.PercentileByArea, 1)
		assert.Equal(t, "memory", got.Comparisons.PercentileByArea[0].AreaName)
	})

	t.Run("defaults the cohort", func(t *testing.T) {
		got := Extract([]types.CapturedResponse{
			response(t, `{"data":{"me":{"lpiSummary":{`+cohorts+`}}}}`),
		})
		require.NotNil(t, got.Comparisons)
		assert.Equal(t, types.DefaultAgeCohort, got.Comparisons.AgeCohort)
		assert.NotNil(t, got.Comparisons.PercentileByArea)
	})

	t.Run("single entry does not replace a stored comparison", func(t *testing.T) {
		got := Extract([]types.CapturedResponse{
			response(t, `{"data":{"me":{"lpiSummary":{`+cohorts+`}}}}`),
			response(t, `{"data":{"me":{"lpiSummary":{"ageCohortComparisons":[{"ageCohortSlug":"20-24","overallPercentile":99}]}}}}`),
		})
		assert.Equal(t, 50.0, *got.Comparisons.OverallPercentile)
	})

	t.Run("no matching cohort", func(t *testing.T) {
		got := Extract([]types.CapturedResponse{
			response(t, `{"data":{"me":{"lpiSummary":{"ageCohortComparisons":[{"ageCohortSlug":"60+"}]}}}}`),
		})
		assert.Nil(t, got.Comparisons)
	})
}

func TestExtract_StreakHistory(t *testing.T) {
	got := Extract([]types.CapturedResponse{
		response(t, `{"data":{"me":{"streakHistory":{
			"streaks":[
				{"startDate":"2024-03-01","endDate":"2024-03-03","length":3},
				{"startDate":"2024-03-10","endDate":"2024-03-12","length":3,"isActive":true,
				 "trainingDays":[{"date":"2024-03-10","gamesPlayed":3}]}
			],
			"bestStreak":{"startDate":"2024-01-01","endDate":"2024-01-09","length":9},
			"streakDays":6}}}}`),
		response(t, `{"data":{"me":{"streakHistory":{
			"streaks":[{"startDate":"2024-03-10","endDate":"2024-03-13","length":4}]}}}}`),
	})

	require.NotNil(t, got.StreakHistory)
	assert.Equal(t, 1, got.StreakHistory.TotalStreaks, "summary is last-write-wins")
	require.NotNil(t, got.StreakHistory.CurrentStreak)
	assert.Equal(t, 4, got.StreakHistory.CurrentStreak.Length)
	assert.Nil(t, got.StreakHistory.BestStreak)

	require.Len(t, got.DetailedStreaks, 2, "detailed list keeps the longer snapshot")
	assert.True(t, got.DetailedStreaks[1].IsActive)
	require.Len(t, got.DetailedStreaks[1].TrainingDays, 1)
	assert.Equal(t, 3, got.DetailedStreaks[1].TrainingDays[0].GamesPlayed)
	assert.NotNil(t, got.DetailedStreaks[1].TrainingDays[0].GamesSummary)
	assert.NotNil(t, got.DetailedStreaks[0].TrainingDays)
}

func TestExtract_EmptyStreakListKeepsDetail(t *testing.T) {
	got := Extract([]types.CapturedResponse{
		response(t, `{"data":{"me":{"streakHistory":{"streaks":[]}}}}`),
	})
	require.NotNil(t, got.StreakHistory)
	assert.Nil(t, got.StreakHistory.CurrentStreak)
	assert.Zero(t, got.StreakHistory.TotalStreaks)
	assert.Nil(t, got.DetailedStreaks)
}

func TestExtract_FirstSeenWins(t *testing.T) {
	got := Extract([]types.CapturedResponse{
		response(t, `{"data":{"me":{
			"fitTest":{"overallScore":10,"percentiles":[{"gameSlug":"g","percentile":40,"gamePlay":{"score":7}}]},
			"trainingHistory":{"totalSessions":3,"recentSessions":[{"date":"2024-03-01","games":[{"slug":"g"}]}]},
			"dailyStats":{"today":{"games":1}},
			"achievements":{"total":2,"earned":[{"id":1,"name":"First"}],"available":[{"id":"b","name":"Next","progress":{"done":1}}]}
		}}}`),
		response(t, `{"data":{"me":{
			"fitTest":{"overallScore":99},
			"trainingHistory":{"totalSessions":99},
			"dailyStats":{"today":{"games":99}},
			"achievements":{"total":99}
		}}}`),
	})

	require.NotNil(t, got.FitTestResults)
	assert.Equal(t, 10.0, *got.FitTestResults.OverallScore)
	require.Len(t, got.FitTestResults.Percentiles, 1)
	assert.Equal(t, "g", got.FitTestResults.Percentiles[0].GameName)
	assert.Equal(t, 7.0, *got.FitTestResults.Percentiles[0].GamePlay.Score)

	require.NotNil(t, got.TrainingHistory)
	assert.Equal(t, 3, got.TrainingHistory.TotalSessions)
	require.Len(t, got.TrainingHistory.RecentSessions, 1)
	assert.Equal(t, "g", got.TrainingHistory.RecentSessions[0].GamesDetails[0].Name)

	require.NotNil(t, got.DailyStats)
	assert.JSONEq(t, `{"games":1}`, string(got.DailyStats.Today))

	require.NotNil(t, got.Achievements)
	assert.Equal(t, 2, got.Achievements.Total)
	assert.Equal(t, "1", got.Achievements.Earned[0].ID)
	assert.JSONEq(t, `{"done":1}`, string(got.Achievements.Available[0].Progress))
}

func TestExtract_GameProgressHistory(t *testing.T) {
	got := Extract([]types.CapturedResponse{
		response(t, `{"data":{"me":{"gameProgressHistory":[
			{"gameSlug":"a","progressData":[{"date":"2024-03-01","lpi":100,"playNumber":1}]},
			{"gameSlug":"b"}
		]}}}`),
		response(t, `{"data":{"me":{"gameProgressHistory":[{"gameSlug":"c"}]}}}`),
	})
	require.Len(t, got.GameProgress, 2)
	assert.Equal(t, "a", got.GameProgress[0].GameName)
	assert.Equal(t, 1, got.GameProgress[0].ProgressData[0].PlayNumber)
	assert.NotNil(t, got.GameProgress[1].ProgressData)
}

func TestExtract_MalformedSectionIsIsolated(t *testing.T) {
	got := Extract([]types.CapturedResponse{
		response(t, `{"data":{"me":{
			"id":"u1","firstName":"Ada",
			"fitTest":"oops",
			"lpiSummary":{"overallLpi":500,"lpisByArea":{"not":"a list"},"lpisByGame":[{"game":{"slug":"a"},"lpi":10}]},
			"streakHistory":{"streaks":[{"startDate":"2024-03-01","endDate":"2024-03-02"}]}
		}}}`),
	})

	assert.Nil(t, got.FitTestResults)
	require.NotNil(t, got.UserInfo)
	require.NotNil(t, got.LPISummary)
	assert.Nil(t, got.LPISummary.ByArea)
	assert.Equal(t, 500.0, *got.LPISummary.OverallLPI)
	assert.Len(t, got.GameRankings, 1)
	assert.Len(t, got.DetailedStreaks, 1)
}

func TestExtract_IsPureFold(t *testing.T) {
	in := []types.CapturedResponse{
		response(t, `{"data":{"me":{"id":"u1","firstName":"Ada","lpiSummary":{"overallLpi":1}}}}`),
	}
	assert.Empty(t, cmp.Diff(Extract(in), Extract(in)))
}

func TestFlexString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"abc"`, "abc"},
		{`123`, "123"},
		{`1.5`, "1.5"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var f flexString
		require.NoError(t, json.Unmarshal([]byte(tt.in), &f))
		assert.Equal(t, tt.want, string(f))
	}

	var f flexString
	assert.Error(t, json.Unmarshal([]byte(`true`), &f))
}
