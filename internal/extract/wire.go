package extract

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Wire shapes of the sections found under data.me. Only the fields the
// harvester keeps are declared; everything else in the payload is ignored.

// flexString accepts a JSON string or number (ids come as either)
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = flexString(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

type wireUser struct {
	ID             flexString `json:"id"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email"`
	AgeCohort      string     `json:"ageCohort"`
	HasPremium     bool       `json:"hasPremium"`
	MemberSince    string     `json:"memberSince"`
	Timezone       string     `json:"timezone"`
	ProfilePicture string     `json:"profilePicture"`
	AccountType    string     `json:"accountType"`
}

type wireArea struct {
	AreaSlug     string   `json:"areaSlug"`
	AreaName     string   `json:"areaName"`
	LPI          *float64 `json:"lpi"`
	FirstLPI     *float64 `json:"firstLpi"`
	BestLPI      *float64 `json:"bestLpi"`
	UpdatedAt    string   `json:"updatedAt"`
	PlayCount    int      `json:"playCount"`
	AverageScore *float64 `json:"averageScore"`
}

type wireGameRef struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	AreaSlug string `json:"areaSlug"`
	AreaName string `json:"areaName"`
}

type wireGameLPI struct {
	Game         *wireGameRef `json:"game"`
	LPI          *float64     `json:"lpi"`
	FirstLPI     *float64     `json:"firstLpi"`
	BestLPI      *float64     `json:"bestLpi"`
	PlayCount    int          `json:"playCount"`
	LastPlayedAt string       `json:"lastPlayedAt"`
	AverageScore *float64     `json:"averageScore"`
	BestScore    *float64     `json:"bestScore"`
	FirstScore   *float64     `json:"firstScore"`
	RecentScores []float64    `json:"recentScores"`
}

type wireImproved struct {
	Game            *wireGameRef `json:"game"`
	LPIIncrease     *float64     `json:"lpiIncrease"`
	PercentIncrease *float64     `json:"percentIncrease"`
	Bucket          string       `json:"bucket"`
	PlayCount       int          `json:"playCount"`
	FirstLPI        *float64     `json:"firstLpi"`
	CurrentLPI      *float64     `json:"currentLpi"`
}

type wireCohortComparison struct {
	AgeCohortSlug         string   `json:"ageCohortSlug"`
	OverallPercentile     *float64 `json:"overallPercentile"`
	BestOverallPercentile *float64 `json:"bestOverallPercentile"`
	PercentileByArea      []struct {
		AreaSlug       string   `json:"areaSlug"`
		AreaName       string   `json:"areaName"`
		Percentile     *float64 `json:"percentile"`
		BestPercentile *float64 `json:"bestPercentile"`
	} `json:"percentileByArea"`
	TotalUsers *float64 `json:"totalUsers"`
	Rank       *float64 `json:"rank"`
	BestRank   *float64 `json:"bestRank"`
}

type wireTrainingDay struct {
	Date         string            `json:"date"`
	GamesPlayed  int               `json:"gamesPlayed"`
	TotalTime    float64           `json:"totalTime"`
	LPIGained    float64           `json:"lpiGained"`
	SessionCount int               `json:"sessionCount"`
	GamesSummary []json.RawMessage `json:"gamesSummary"`
}

type wireStreak struct {
	StartDate    string            `json:"startDate"`
	EndDate      string            `json:"endDate"`
	Length       int               `json:"length"`
	IsActive     bool              `json:"isActive"`
	TrainingDays []wireTrainingDay `json:"trainingDays"`
}

type wireStreakHistory struct {
	Streaks           []wireStreak `json:"streaks"`
	BestStreak        *wireStreak  `json:"bestStreak"`
	StreakDays        int          `json:"streakDays"`
	LongestStreakDays int          `json:"longestStreakDays"`
}

type wireGamePlay struct {
	Score      *float64 `json:"score"`
	LPI        *float64 `json:"lpi"`
	FinishedAt string   `json:"finishedAt"`
	Duration   *float64 `json:"duration"`
	Accuracy   *float64 `json:"accuracy"`
}

type wireFitTest struct {
	CompletedAt       string   `json:"completedAt"`
	OverallScore      *float64 `json:"overallScore"`
	OverallPercentile *float64 `json:"overallPercentile"`
	Percentiles       []struct {
		GameSlug   string        `json:"gameSlug"`
		GameName   string        `json:"gameName"`
		AreaSlug   string        `json:"areaSlug"`
		AreaName   string        `json:"areaName"`
		Percentile *float64      `json:"percentile"`
		Score      *float64      `json:"score"`
		GamePlay   *wireGamePlay `json:"gamePlay"`
	} `json:"percentiles"`
}

type wireSessionGame struct {
	Slug      string   `json:"slug"`
	Name      string   `json:"name"`
	Score     *float64 `json:"score"`
	LPI       *float64 `json:"lpi"`
	TimeSpent *float64 `json:"timeSpent"`
	Accuracy  *float64 `json:"accuracy"`
}

type wireTrainingHistory struct {
	TotalSessions      int     `json:"totalSessions"`
	TotalTimeMinutes   float64 `json:"totalTimeMinutes"`
	AverageSessionTime float64 `json:"averageSessionTime"`
	TotalGamesPlayed   int     `json:"totalGamesPlayed"`
	RecentSessions     []struct {
		Date        string            `json:"date"`
		GamesPlayed int               `json:"gamesPlayed"`
		TotalTime   float64           `json:"totalTime"`
		LPIChange   float64           `json:"lpiChange"`
		SessionType string            `json:"sessionType"`
		Games       []wireSessionGame `json:"games"`
	} `json:"recentSessions"`
}

type wireGameProgress struct {
	GameSlug     string `json:"gameSlug"`
	GameName     string `json:"gameName"`
	AreaSlug     string `json:"areaSlug"`
	AreaName     string `json:"areaName"`
	ProgressData []struct {
		Date       string   `json:"date"`
		LPI        *float64 `json:"lpi"`
		Score      *float64 `json:"score"`
		Percentile *float64 `json:"percentile"`
		PlayNumber int      `json:"playNumber"`
	} `json:"progressData"`
}

type wireAchievement struct {
	ID          flexString      `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	EarnedAt    string          `json:"earnedAt"`
	Category    string          `json:"category"`
	Progress    json.RawMessage `json:"progress"`
}

type wireAchievements struct {
	Total     int               `json:"total"`
	Earned    []wireAchievement `json:"earned"`
	Available []wireAchievement `json:"available"`
}
