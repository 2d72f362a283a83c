// Package domain defines the persistence models and shared value types of the
// reporting engine. These types are mapped with GORM and are shared across the
// repository, analytics, and service layers.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// WeeklyReport is the relationship-score report of one couple for one ISO
// week. Identity is (CoupleID, WeekStart); WeekStart is always a Monday
// encoded as UTC midnight of the local calendar date.
//
// Fields:
//   - OverallScore: clamped to [0,100], rounded to 3 decimals.
//   - Reason: human-readable list of the contributions that moved the score.
//   - ExpertSolutions: reserved, always 0.
//   - BaselineSource: which lookup step produced the starting score.
type WeeklyReport struct {
	ID                  string    `json:"id"                   gorm:"type:char(36);primaryKey"`
	CoupleID            string    `json:"couple_id"            gorm:"type:char(36);not null;uniqueIndex:ux_weekly_couple_week,priority:1"`
	WeekStart           time.Time `json:"week_start"           gorm:"not null;uniqueIndex:ux_weekly_couple_week,priority:2"`
	OverallScore        float64   `json:"overall_score"        gorm:"not null"`
	Reason              string    `json:"reason"               gorm:"type:text;not null"`
	CardsSent           int       `json:"cards_sent"           gorm:"not null;default:0"`
	ChallengesCompleted int       `json:"challenges_completed" gorm:"not null;default:0"`
	ChallengesFailed    int       `json:"challenges_failed"    gorm:"not null;default:0"`
	DiagnosisCount      int       `json:"diagnosis_count"      gorm:"not null;default:0"`
	ExpertSolutions     int       `json:"expert_solutions"     gorm:"not null;default:0"`
	BaselineScore       float64   `json:"baseline_score"       gorm:"not null"`
	BaselineSource      string    `json:"baseline_source"      gorm:"type:varchar(32);not null"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName returns the database table name for WeeklyReport.
func (WeeklyReport) TableName() string { return "weekly_reports" }

// MonthlyTrackReport is the emotional-track report of one user for one
// calendar month. Identity is (UserID, MonthStart); MonthStart is the 1st of
// the month encoded as UTC midnight.
type MonthlyTrackReport struct {
	ID              string                             `json:"id"                gorm:"type:char(36);primaryKey"`
	UserID          string                             `json:"user_id"           gorm:"type:varchar(64);not null;uniqueIndex:ux_monthly_user_month,priority:1"`
	MonthStart      time.Time                          `json:"month_start"       gorm:"not null;uniqueIndex:ux_monthly_user_month,priority:2"`
	EmotionStats    datatypes.JSONType[map[string]int] `json:"emotion_stats"`
	TriggerStats    datatypes.JSONType[map[string]int] `json:"trigger_stats"`
	AIAnalysis      datatypes.JSONType[Narrative]      `json:"ai_analysis"`
	TotalDiaryCount int                                `json:"total_diary_count" gorm:"not null;default:0"`
	ValidDiaryCount int                                `json:"valid_diary_count" gorm:"not null;default:0"`
	NarrativeSource string                             `json:"narrative_source"  gorm:"type:varchar(16);not null"`
	CreatedAt       time.Time                          `json:"created_at"`
	UpdatedAt       time.Time                          `json:"updated_at"`
}

// TableName returns the database table name for MonthlyTrackReport.
func (MonthlyTrackReport) TableName() string { return "monthly_track_reports" }

// Narrative is the persisted {summary, comparison, suggestions, metrics}
// bundle. It is always fully populated before it reaches the repository.
type Narrative struct {
	Summary     string           `json:"summary"`
	Comparison  string           `json:"comparison"`
	Suggestions []string         `json:"suggestions"`
	Metrics     NarrativeMetrics `json:"metrics"`
}

// NarrativeMetrics embeds the locally computed statistics into the narrative.
type NarrativeMetrics struct {
	EmotionStats map[string]int `json:"emotionStats"`
	TriggerStats map[string]int `json:"triggerStats"`
	ExtendedStats
}

// ExtendedStats are the diary text statistics of one month.
type ExtendedStats struct {
	DayOfWeekStats       map[string]int `json:"dayOfWeekStats"`
	TimeOfDayStats       map[string]int `json:"timeOfDayStats"`
	AverageCommentLength float64        `json:"averageCommentLength"`
	PositivityRatio      float64        `json:"positivityRatio"`
	TopKeywords          []TermCount    `json:"topKeywords"`
	TopEmojis            []TermCount    `json:"topEmojis"`
}

// TermCount is one ranked token or emoji with its frequency.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Narrative sources recorded on MonthlyTrackReport.NarrativeSource.
const (
	NarrativeSourceGenerated = "generated"
	NarrativeSourceFreeform  = "freeform"
	NarrativeSourceFallback  = "fallback"
)

// WeekLabel identifies one available weekly report for navigation.
// Year/Month/WeekOfMonth follow the calendar of WeekStart; ISOYear/ISOWeek
// are what the read API accepts.
type WeekLabel struct {
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	WeekOfMonth int       `json:"week_of_month"`
	ISOYear     int       `json:"iso_year"`
	ISOWeek     int       `json:"iso_week"`
	WeekStart   time.Time `json:"week_start"`
}
