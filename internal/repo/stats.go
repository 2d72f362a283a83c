// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-couple-reports/internal/domain"
)

// WeeklyStats returns aggregate metadata for a couple's weekly reports: the
// total number of rows and the maximum UpdatedAt timestamp among those rows.
//
// When the couple has no reports, the returned count is 0 and maxUpdatedAt
// is nil. A re-run that overwrites a report bumps maxUpdatedAt, which is
// what invalidates list ETags.
func WeeklyStats(ctx context.Context, db *gorm.DB, coupleID string) (count int64, maxUpdatedAt *time.Time, err error) {
	return tableStats(db.WithContext(ctx).Model(&domain.WeeklyReport{}).Where("couple_id = ?", coupleID))
}

// MonthlyStats returns aggregate metadata for a user's monthly reports: the
// total number of rows and the maximum UpdatedAt timestamp among those rows.
func MonthlyStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxUpdatedAt *time.Time, err error) {
	return tableStats(db.WithContext(ctx).Model(&domain.MonthlyTrackReport{}).Where("user_id = ?", userID))
}

func tableStats(q *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
