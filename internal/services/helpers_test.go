package services

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-couple-reports/internal/domain"
	"github.com/tbourn/go-couple-reports/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func mustCreate(t *testing.T, db *gorm.DB, rows ...any) {
	t.Helper()
	for _, r := range rows {
		if err := db.Create(r).Error; err != nil {
			t.Fatalf("seed %T: %v", r, err)
		}
	}
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func seedCouple(t *testing.T, db *gorm.DB, coupleID string, memberIDs ...string) {
	t.Helper()
	mustCreate(t, db, &domain.Couple{ID: coupleID, Status: domain.CoupleStatusActive})
	for _, id := range memberIDs {
		mustCreate(t, db, &domain.Member{ID: id, CoupleID: strPtr(coupleID)})
	}
}

func diaryRow(userID string, at time.Time, comment, emotion string, triggers ...string) *domain.DiaryEntry {
	raw, _ := json.Marshal(triggers)
	return &domain.DiaryEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Comment:   comment,
		Emotion:   emotion,
		Triggers:  datatypes.JSON(raw),
		CreatedAt: at,
	}
}
