// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file reads the activity store and the couple/member
// read model. Apart from member temperatures, nothing here writes.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-couple-reports/internal/domain"
)

// ErrUnknownKind is returned by ListActivities for an unsupported kind.
var ErrUnknownKind = errors.New("unknown activity kind")

// ErrPartialTemperatureUpdate means fewer members were updated than the
// couple has. Callers run UpdateTemperatures inside a transaction so the
// error rolls back the report write as well.
var ErrPartialTemperatureUpdate = errors.New("temperature update did not reach every member")

// ListActivities returns the records of one kind for a subject whose
// timestamp falls in [start, end), ordered by timestamp ascending. Couple
// kinds are keyed by couple id, diary entries by user id.
func ListActivities(ctx context.Context, db *gorm.DB, subjectID string, kind domain.ActivityKind, start, end time.Time) ([]domain.ActivityRecord, error) {
	// Bounds are compared in UTC; sqlite compares timestamps textually.
	start, end = start.UTC(), end.UTC()
	q := db.WithContext(ctx)
	switch kind {
	case domain.KindCardSent:
		var rows []domain.CardSend
		err := q.Where("couple_id = ? AND sent_at >= ? AND sent_at < ?", subjectID, start, end).
			Order("sent_at asc").Find(&rows).Error
		out := make([]domain.ActivityRecord, 0, len(rows))
		for _, r := range rows {
			out = append(out, domain.ActivityRecord{Kind: kind, SubjectID: r.CoupleID, At: r.SentAt})
		}
		return out, err

	case domain.KindChallengeStarted:
		var rows []domain.Challenge
		err := q.Where("couple_id = ? AND started_at >= ? AND started_at < ?", subjectID, start, end).
			Order("started_at asc").Find(&rows).Error
		out := make([]domain.ActivityRecord, 0, len(rows))
		for _, r := range rows {
			out = append(out, domain.ActivityRecord{Kind: kind, SubjectID: r.CoupleID, At: r.StartedAt})
		}
		return out, err

	case domain.KindChallengeCompleted, domain.KindChallengeFailed:
		status := domain.ChallengeCompleted
		if kind == domain.KindChallengeFailed {
			status = domain.ChallengeFailed
		}
		var rows []domain.Challenge
		err := q.Where("couple_id = ? AND status = ? AND ended_at >= ? AND ended_at < ?", subjectID, status, start, end).
			Order("ended_at asc").Find(&rows).Error
		out := make([]domain.ActivityRecord, 0, len(rows))
		for _, r := range rows {
			if r.EndedAt == nil {
				continue
			}
			out = append(out, domain.ActivityRecord{Kind: kind, SubjectID: r.CoupleID, At: *r.EndedAt})
		}
		return out, err

	case domain.KindAssessmentSubmitted:
		var rows []domain.Assessment
		err := q.Where("couple_id = ? AND submitted_at >= ? AND submitted_at < ?", subjectID, start, end).
			Order("submitted_at asc").Find(&rows).Error
		out := make([]domain.ActivityRecord, 0, len(rows))
		for _, r := range rows {
			out = append(out, domain.ActivityRecord{
				Kind: kind, SubjectID: r.CoupleID, At: r.SubmittedAt,
				AssessmentKind: r.Kind, Score: r.Score,
			})
		}
		return out, err

	case domain.KindDiaryEntry:
		var rows []domain.DiaryEntry
		err := q.Where("user_id = ? AND created_at >= ? AND created_at < ?", subjectID, start, end).
			Order("created_at asc").Find(&rows).Error
		out := make([]domain.ActivityRecord, 0, len(rows))
		for _, r := range rows {
			out = append(out, domain.ActivityRecord{
				Kind: kind, SubjectID: r.UserID, At: r.CreatedAt,
				Comment: r.Comment, Emotion: r.Emotion, Triggers: r.TriggerNames(),
			})
		}
		return out, err
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// ListCoupleActivities returns every couple-keyed kind in the window, each
// kind's records in timestamp order.
func ListCoupleActivities(ctx context.Context, db *gorm.DB, coupleID string, start, end time.Time) ([]domain.ActivityRecord, error) {
	var out []domain.ActivityRecord
	for _, k := range domain.CoupleKinds {
		recs, err := ListActivities(ctx, db, coupleID, k, start, end)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", k, err)
		}
		out = append(out, recs...)
	}
	return out, nil
}

// EarliestBaselineAssessment returns the first baseline-kind assessment a
// couple submitted, or ErrNotFound.
func EarliestBaselineAssessment(ctx context.Context, db *gorm.DB, coupleID string) (*domain.Assessment, error) {
	var a domain.Assessment
	err := db.WithContext(ctx).
		Where("couple_id = ? AND kind = ?", coupleID, domain.AssessmentBaseline).
		Order("submitted_at asc").
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListActiveCouples returns the couples eligible for weekly reports.
func ListActiveCouples(ctx context.Context, db *gorm.DB) ([]domain.Couple, error) {
	var out []domain.Couple
	err := db.WithContext(ctx).
		Where("status = ?", domain.CoupleStatusActive).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// GetMember fetches one member by id, or ErrNotFound.
func GetMember(ctx context.Context, db *gorm.DB, id string) (*domain.Member, error) {
	var m domain.Member
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListSubscribedMembers returns members with a subscription start date,
// i.e. the subjects of the monthly job.
func ListSubscribedMembers(ctx context.Context, db *gorm.DB) ([]domain.Member, error) {
	var out []domain.Member
	err := db.WithContext(ctx).
		Where("subscribed_at IS NOT NULL").
		Order("id asc").
		Find(&out).Error
	return out, err
}

// CountCoupleMembers returns how many members belong to coupleID.
func CountCoupleMembers(ctx context.Context, db *gorm.DB, coupleID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("couple_id = ?", coupleID).
		Count(&n).Error
	return n, err
}

// UpdateTemperatures sets the temperature of every member of coupleID and
// returns ErrPartialTemperatureUpdate unless exactly want rows changed.
func UpdateTemperatures(ctx context.Context, db *gorm.DB, coupleID string, score float64, want int64) error {
	res := db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("couple_id = ?", coupleID).
		Updates(map[string]any{"temperature": score, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != want {
		return fmt.Errorf("%w: updated %d of %d", ErrPartialTemperatureUpdate, res.RowsAffected, want)
	}
	return nil
}
