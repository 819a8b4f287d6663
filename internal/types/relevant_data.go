package types

import "encoding/json"

// DefaultAgeCohort is used for cohort comparisons when the user's cohort is unknown.
const DefaultAgeCohort = "20-24"

// RelevantData is the reconciled record built from all responses captured for one account.
// Every field is optional; nil means the remote application never sent it.
type RelevantData struct {
	UserInfo          *UserInfo         `json:"userInfo"`
	LPISummary        *LPISummary       `json:"lpiSummary"`
	StreakHistory     *StreakSummary    `json:"streakHistory"`
	DetailedStreaks   []StreakInterval  `json:"detailedStreaks"`
	FitTestResults    *FitTestResults   `json:"fitTestResults"`
	GameRankings      []GameRanking     `json:"gameRankings"`
	MostImprovedGames []ImprovedGame    `json:"mostImprovedGames"`
	Comparisons       *CohortComparison `json:"comparisons"`
	TrainingHistory   *TrainingHistory  `json:"trainingHistory"`
	GameProgress      []GameProgress    `json:"gameProgressHistory"`
	DailyStats        *DailyStats       `json:"dailyStats"`
	Achievements      *Achievements     `json:"achievements"`
}

// UserInfo is the static profile of the signed-in user.
type UserInfo struct {
	ID             string `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email,omitempty"`
	AgeCohort      string `json:"ageCohort,omitempty"`
	HasPremium     bool   `json:"hasPremium"`
	MemberSince    string `json:"memberSince,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	AccountType    string `json:"accountType,omitempty"`
}

// LPISummary holds the overall scores and the per-area breakdown.
type LPISummary struct {
	OverallLPI      *float64  `json:"overallLpi,omitempty"`
	BestOverallLPI  *float64  `json:"bestOverallLpi,omitempty"`
	FirstOverallLPI *float64  `json:"firstOverallLpi,omitempty"`
	UpdatedAt       string    `json:"updatedAt,omitempty"`
	ByArea          []AreaLPI `json:"lpisByArea,omitempty"`
}

// AreaLPI is the score for one cognitive area.
type AreaLPI struct {
	AreaSlug     string   `json:"areaSlug"`
	AreaName     string   `json:"areaName"`
	LPI          *float64 `json:"lpi"`
	FirstLPI     *float64 `json:"firstLpi"`
	BestLPI      *float64 `json:"bestLpi"`
	UpdatedAt    string   `json:"updatedAt,omitempty"`
	PlayCount    int      `json:"playCount"`
	AverageScore *float64 `json:"averageScore,omitempty"`
}

// StreakSummary is the latest streak overview sent by the application.
type StreakSummary struct {
	CurrentStreak     *StreakInterval  `json:"currentStreak"`
	BestStreak        *StreakInterval  `json:"bestStreak"`
	TotalStreaks      int              `json:"totalStreaks"`
	AllStreaks        []StreakInterval `json:"allStreaks"`
	StreakDays        int              `json:"streakDays"`
	LongestStreakDays int              `json:"longestStreakDays"`
}

// StreakInterval is a contiguous date range of recorded activity.
// Dates are kept as sent; the streaks package parses them at day granularity.
type StreakInterval struct {
	StartDate    string        `json:"startDate"`
	EndDate      string        `json:"endDate"`
	Length       int           `json:"length"`
	IsActive     bool          `json:"isActive"`
	TrainingDays []TrainingDay `json:"trainingDays"`
}

// TrainingDay is the per-day detail inside a streak.
type TrainingDay struct {
	Date         string            `json:"date"`
	GamesPlayed  int               `json:"gamesPlayed"`
	TotalTime    float64           `json:"totalTime"`
	LPIGained    float64           `json:"lpiGained"`
	SessionCount int               `json:"sessionCount"`
	GamesSummary []json.RawMessage `json:"gamesSummary"`
}

// FitTestResults is the one-off baseline assessment.
type FitTestResults struct {
	CompletedAt       string              `json:"completedAt,omitempty"`
	OverallScore      *float64            `json:"overallScore"`
	OverallPercentile *float64            `json:"overallPercentile"`
	Percentiles       []FitTestPercentile `json:"percentiles"`
}

// FitTestPercentile is the fit test result for a single game.
type FitTestPercentile struct {
	GameSlug   string   `json:"gameSlug"`
	GameName   string   `json:"gameName"`
	AreaSlug   string   `json:"areaSlug"`
	AreaName   string   `json:"areaName"`
	Percentile *float64 `json:"percentile"`
	Score      *float64 `json:"score"`
	GamePlay   GamePlay `json:"gamePlay"`
}

// GamePlay describes a single play of a game.
type GamePlay struct {
	Score      *float64 `json:"score"`
	LPI        *float64 `json:"lpi"`
	FinishedAt string   `json:"finishedAt,omitempty"`
	Duration   *float64 `json:"duration"`
	Accuracy   *float64 `json:"accuracy"`
}

// GameRanking is a per-game LPI entry.
type GameRanking struct {
	GameSlug     string    `json:"gameSlug"`
	GameName     string    `json:"gameName"`
	AreaSlug     string    `json:"areaSlug"`
	AreaName     string    `json:"areaName"`
	LPI          float64   `json:"lpi"`
	FirstLPI     *float64  `json:"firstLpi"`
	BestLPI      *float64  `json:"bestLpi"`
	PlayCount    int       `json:"playCount"`
	LastPlayedAt string    `json:"lastPlayedAt,omitempty"`
	AverageScore *float64  `json:"averageScore"`
	BestScore    *float64  `json:"bestScore"`
	FirstScore   *float64  `json:"firstScore"`
	RecentScores []float64 `json:"recentScores"`
	Improvement  float64   `json:"improvement"`
}

// ImprovedGame is a game the user has improved at the most.
type ImprovedGame struct {
	GameSlug        string   `json:"gameSlug"`
	GameName        string   `json:"gameName"`
	AreaSlug        string   `json:"areaSlug"`
	AreaName        string   `json:"areaName"`
	LPIIncrease     float64  `json:"lpiIncrease"`
	PercentIncrease *float64 `json:"percentIncrease"`
	Bucket          string   `json:"bucket,omitempty"`
	PlayCount       int      `json:"playCount"`
	FirstLPI        *float64 `json:"firstLpi"`
	CurrentLPI      *float64 `json:"currentLpi"`
}

// CohortComparison is the user's percentile standing within an age cohort.
type CohortComparison struct {
	AgeCohort             string           `json:"ageCohort"`
	OverallPercentile     *float64         `json:"overallPercentile"`
	BestOverallPercentile *float64         `json:"bestOverallPercentile"`
	PercentileByArea      []AreaPercentile `json:"percentileByArea"`
	TotalUsers            *float64         `json:"totalUsers"`
	Rank                  *float64         `json:"rank"`
	BestRank              *float64         `json:"bestRank"`
}

// AreaPercentile is the cohort percentile for one area.
type AreaPercentile struct {
	AreaSlug       string   `json:"areaSlug"`
	AreaName       string   `json:"areaName"`
	Percentile     *float64 `json:"percentile"`
	BestPercentile *float64 `json:"bestPercentile"`
}

// TrainingHistory aggregates the user's training sessions.
type TrainingHistory struct {
	TotalSessions      int               `json:"totalSessions"`
	TotalTimeMinutes   float64           `json:"totalTimeMinutes"`
	AverageSessionTime float64           `json:"averageSessionTime"`
	TotalGamesPlayed   int               `json:"totalGamesPlayed"`
	RecentSessions     []TrainingSession `json:"recentSessions"`
}

// TrainingSession is one recent training session.
type TrainingSession struct {
	Date         string        `json:"date"`
	GamesPlayed  int           `json:"gamesPlayed"`
	TotalTime    float64       `json:"totalTime"`
	LPIChange    float64       `json:"lpiChange"`
	SessionType  string        `json:"sessionType,omitempty"`
	GamesDetails []SessionGame `json:"gamesDetails"`
}

// SessionGame is a game played within a training session.
type SessionGame struct {
	Slug      string   `json:"slug"`
	Name      string   `json:"name"`
	Score     *float64 `json:"score"`
	LPI       *float64 `json:"lpi"`
	TimeSpent *float64 `json:"timeSpent"`
	Accuracy  *float64 `json:"accuracy"`
}

// GameProgress is the LPI history of a single game.
type GameProgress struct {
	GameSlug     string          `json:"gameSlug"`
	GameName     string          `json:"gameName"`
	AreaSlug     string          `json:"areaSlug"`
	AreaName     string          `json:"areaName"`
	ProgressData []ProgressPoint `json:"progressData"`
}

// ProgressPoint is one play in a game's history.
type ProgressPoint struct {
	Date       string   `json:"date"`
	LPI        *float64 `json:"lpi"`
	Score      *float64 `json:"score"`
	Percentile *float64 `json:"percentile"`
	PlayNumber int      `json:"playNumber"`
}

// DailyStats are rolling activity windows. Their inner shape is passed through untouched.
type DailyStats struct {
	Today     json.RawMessage `json:"today,omitempty"`
	Yesterday json.RawMessage `json:"yesterday,omitempty"`
	ThisWeek  json.RawMessage `json:"thisWeek,omitempty"`
	LastWeek  json.RawMessage `json:"lastWeek,omitempty"`
	ThisMonth json.RawMessage `json:"thisMonth,omitempty"`
	LastMonth json.RawMessage `json:"lastMonth,omitempty"`
}

// Achievements lists earned and available achievements.
type Achievements struct {
	Total     int           `json:"total"`
	Earned    []Achievement `json:"earned"`
	Available []Achievement `json:"available"`
}

// Achievement is a single badge.
type Achievement struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	EarnedAt    string          `json:"earnedAt,omitempty"`
	Category    string          `json:"category,omitempty"`
	Progress    json.RawMessage `json:"progress,omitempty"`
}
