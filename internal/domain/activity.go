package domain

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Couple status values. Only active couples receive weekly reports.
const (
	CoupleStatusActive   = "active"
	CoupleStatusPending  = "pending"
	CoupleStatusArchived = "archived"
)

// Couple is the read model of a paired relationship owned by the pairing
// workflow. The analytics engine never writes it.
type Couple struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Status    string    `json:"status"     gorm:"type:varchar(16);not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Couple.
func (Couple) TableName() string { return "couples" }

// Member is a user as seen by the analytics engine: the couple they belong
// to, their denormalized relationship temperature, and the date their
// monthly tracking subscription started.
//
// Temperature mirrors the latest weekly OverallScore of the couple and is
// written only inside the weekly report transaction.
type Member struct {
	ID           string     `json:"id"                      gorm:"type:varchar(64);primaryKey"`
	CoupleID     *string    `json:"couple_id,omitempty"     gorm:"type:char(36);index"`
	Nickname     string     `json:"nickname"                gorm:"type:varchar(64)"`
	Temperature  float64    `json:"temperature"             gorm:"not null;default:0"`
	SubscribedAt *time.Time `json:"subscribed_at,omitempty" gorm:"index"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Member.
func (Member) TableName() string { return "members" }

// CardSend records one emotion card sent between partners.
type CardSend struct {
	ID       string    `gorm:"type:char(36);primaryKey"`
	CoupleID string    `gorm:"type:char(36);not null;index:idx_card_couple_sent,priority:1"`
	SenderID string    `gorm:"type:varchar(64);not null"`
	Emotion  string    `gorm:"type:varchar(32)"`
	SentAt   time.Time `gorm:"not null;index:idx_card_couple_sent,priority:2"`
}

// TableName returns the database table name for CardSend.
func (CardSend) TableName() string { return "card_sends" }

// Challenge status values.
const (
	ChallengeInProgress = "in_progress"
	ChallengeCompleted  = "completed"
	ChallengeFailed     = "failed"
)

// Challenge is a shared couple challenge. EndedAt is set once the challenge
// reaches a terminal status.
type Challenge struct {
	ID        string     `gorm:"type:char(36);primaryKey"`
	CoupleID  string     `gorm:"type:char(36);not null;index"`
	Title     string     `gorm:"type:varchar(255)"`
	Status    string     `gorm:"type:varchar(16);not null"`
	StartedAt time.Time  `gorm:"not null;index"`
	EndedAt   *time.Time `gorm:"index"`
}

// TableName returns the database table name for Challenge.
func (Challenge) TableName() string { return "challenges" }

// Assessment kinds.
const (
	AssessmentBaseline = "baseline"
	AssessmentRegular  = "regular"
)

// Assessment is a relationship self-assessment ("diagnosis") submission.
type Assessment struct {
	ID          string    `gorm:"type:char(36);primaryKey"`
	CoupleID    string    `gorm:"type:char(36);not null;index:idx_assess_couple_at,priority:1"`
	UserID      string    `gorm:"type:varchar(64);not null"`
	Kind        string    `gorm:"type:varchar(16);not null"`
	Score       float64   `gorm:"not null"`
	SubmittedAt time.Time `gorm:"not null;index:idx_assess_couple_at,priority:2"`
}

// TableName returns the database table name for Assessment.
func (Assessment) TableName() string { return "assessments" }

// DiaryEntry is one free-text diary record. Triggers is kept as raw JSON so a
// malformed payload never breaks a scan; use TriggerNames to read it.
type DiaryEntry struct {
	ID        string         `gorm:"type:char(36);primaryKey"`
	UserID    string         `gorm:"type:varchar(64);not null;index:idx_diary_user_created,priority:1"`
	Comment   string         `gorm:"type:text"`
	Emotion   string         `gorm:"type:varchar(32)"`
	Triggers  datatypes.JSON `gorm:"type:json"`
	CreatedAt time.Time      `gorm:"index:idx_diary_user_created,priority:2"`
}

// TableName returns the database table name for DiaryEntry.
func (DiaryEntry) TableName() string { return "diary_entries" }

// TriggerNames decodes the trigger list leniently. Anything that is not a
// JSON array of strings yields nil; blank names are dropped.
func (d DiaryEntry) TriggerNames() []string {
	if len(d.Triggers) == 0 {
		return nil
	}
	var raw []string
	if err := json.Unmarshal(d.Triggers, &raw); err != nil {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ActivityKind names one stream of the activity store.
type ActivityKind string

const (
	KindCardSent            ActivityKind = "card_sent"
	KindChallengeStarted    ActivityKind = "challenge_started"
	KindChallengeCompleted  ActivityKind = "challenge_completed"
	KindChallengeFailed     ActivityKind = "challenge_failed"
	KindAssessmentSubmitted ActivityKind = "assessment_submitted"
	KindDiaryEntry          ActivityKind = "diary_entry"
)

// CoupleKinds are the kinds keyed by couple id.
var CoupleKinds = []ActivityKind{
	KindCardSent, KindChallengeStarted, KindChallengeCompleted,
	KindChallengeFailed, KindAssessmentSubmitted,
}

// ActivityRecord is the uniform shape the metric calculator consumes.
// Diary-only fields are zero for other kinds.
type ActivityRecord struct {
	Kind      ActivityKind
	SubjectID string
	At        time.Time

	// assessment_submitted
	AssessmentKind string
	Score          float64

	// diary_entry
	Comment  string
	Emotion  string
	Triggers []string
}
