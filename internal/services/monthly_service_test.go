package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-couple-reports/internal/domain"
	"github.com/tbourn/go-couple-reports/internal/genai"
	"github.com/tbourn/go-couple-reports/internal/narrative"
	"github.com/tbourn/go-couple-reports/internal/periods"
	"github.com/tbourn/go-couple-reports/internal/repo"
)

var testMonth = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func seedMember(t *testing.T, db *gorm.DB, id string, subscribed *time.Time) {
	t.Helper()
	mustCreate(t, db, &domain.Member{ID: id, SubscribedAt: subscribed})
}

// seedDiaries writes n qualifying entries on consecutive days from day.
func seedDiaries(t *testing.T, db *gorm.DB, userID string, from time.Time, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		mustCreate(t, db, diaryRow(userID, from.AddDate(0, 0, i).Add(20*time.Hour), fmt.Sprintf("오늘 산책을 했다 %d", i), "행복", "데이트"))
	}
}

func TestMonthly_Generate_StructuredNarrative(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	seedDiaries(t, db, "u1", testMonth, 6)
	mustCreate(t, db, diaryRow("u1", testMonth.AddDate(0, 0, 10), "", "")) // not qualifying

	var prompt string
	client := genai.ClientFunc(func(_ context.Context, p string) (string, error) {
		prompt = p
		return `{"summary":"평온한 한 달","comparison":"","suggestions":["a","b","c"],"metrics":{}}`, nil
	})
	svc := &MonthlyReportService{DB: db, Location: time.UTC, Narrator: narrative.New(client), MinDiaries: 6}

	r, err := svc.Generate(ctx, "u1", testMonth, periods.MonthWindow(testMonth, time.UTC))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if r.TotalDiaryCount != 7 || r.ValidDiaryCount != 6 {
		t.Fatalf("counts = %d/%d; want 7/6", r.TotalDiaryCount, r.ValidDiaryCount)
	}
	if r.NarrativeSource != domain.NarrativeSourceGenerated {
		t.Fatalf("source = %q", r.NarrativeSource)
	}
	n := r.AIAnalysis.Data()
	if n.Summary != "평온한 한 달" || len(n.Suggestions) != 3 {
		t.Fatalf("narrative = %+v", n)
	}
	if n.Metrics.EmotionStats["행복"] != 6 || r.EmotionStats.Data()["행복"] != 6 || r.TriggerStats.Data()["데이트"] != 6 {
		t.Fatalf("stats not persisted: %+v", r)
	}
	if !strings.Contains(prompt, "지난달 데이터: 없음") {
		t.Fatalf("prompt should say there is no prior month")
	}
}

func TestMonthly_Generate_RefusesBelowMinimum(t *testing.T) {
	db := newSvcDB(t)
	seedDiaries(t, db, "u1", testMonth, 5)
	svc := &MonthlyReportService{DB: db, MinDiaries: 6}

	_, err := svc.Generate(context.Background(), "u1", testMonth, periods.MonthWindow(testMonth, time.UTC))
	if !errors.Is(err, ErrNotEnoughDiaries) {
		t.Fatalf("expected ErrNotEnoughDiaries, got %v", err)
	}
	var n int64
	db.Model(&domain.MonthlyTrackReport{}).Count(&n)
	if n != 0 {
		t.Fatalf("no row may be written, found %d", n)
	}
}

func TestMonthly_Generate_UsesPriorMonthAndFallback(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	seedDiaries(t, db, "u1", testMonth, 6)
	if _, err := repo.UpsertMonthly(ctx, db, &domain.MonthlyTrackReport{
		UserID: "u1", MonthStart: testMonth.AddDate(0, -1, 0),
		EmotionStats:    datatypes.NewJSONType(map[string]int{"불안": 4}),
		TriggerStats:    datatypes.NewJSONType(map[string]int{"일": 2}),
		NarrativeSource: domain.NarrativeSourceFallback,
	}); err != nil {
		t.Fatalf("seed prior: %v", err)
	}

	var prompt string
	client := genai.ClientFunc(func(_ context.Context, p string) (string, error) {
		prompt = p
		return "", genai.Wrap(genai.KindRateLimited, 429, errors.New("quota"))
	})
	svc := &MonthlyReportService{DB: db, Narrator: narrative.New(client)}

	r, err := svc.Generate(ctx, "u1", testMonth, periods.MonthWindow(testMonth, time.UTC))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(prompt, "지난달 감정 통계") || !strings.Contains(prompt, "불안") {
		t.Fatalf("prompt should carry the prior month: %s", prompt)
	}
	n := r.AIAnalysis.Data()
	if r.NarrativeSource != domain.NarrativeSourceFallback || len(n.Suggestions) != 3 {
		t.Fatalf("expected complete fallback, got %+v", r)
	}
	if !strings.Contains(n.Comparison, "'불안'에서 '행복'") {
		t.Fatalf("comparison should name the change, got %q", n.Comparison)
	}
}

func TestMonthly_GenerateForMember_ClampsToSubscription(t *testing.T) {
	db := newSvcDB(t)
	sub := testMonth.AddDate(0, 0, 10)
	seedMember(t, db, "u1", &sub)
	seedDiaries(t, db, "u1", testMonth, 10)                  // days 1-10, before subscription
	seedDiaries(t, db, "u1", testMonth.AddDate(0, 0, 10), 6) // days 11-16

	svc := &MonthlyReportService{DB: db, MinDiaries: 6}
	r, err := svc.GenerateForMember(context.Background(), domain.Member{ID: "u1", SubscribedAt: &sub}, testMonth)
	if err != nil {
		t.Fatalf("GenerateForMember: %v", err)
	}
	if r.TotalDiaryCount != 6 {
		t.Fatalf("pre-subscription entries must be ignored, total = %d", r.TotalDiaryCount)
	}

	if _, err := svc.GenerateForMember(context.Background(), domain.Member{ID: "u1"}, testMonth); !errors.Is(err, ErrNotSubscribed) {
		t.Fatalf("expected ErrNotSubscribed, got %v", err)
	}
}

func TestMonthly_ProgressAndGenerateNow(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	sub := testMonth.AddDate(0, -2, 0)
	seedMember(t, db, "u1", &sub)
	seedDiaries(t, db, "u1", testMonth, 3)

	now := testMonth.AddDate(0, 0, 20)
	svc := &MonthlyReportService{DB: db, MinDiaries: 4, Now: func() time.Time { return now }}

	p, err := svc.Progress(ctx, "u1")
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if p.Valid != 3 || p.MinRequired != 4 || p.CanGenerate || !p.MonthStart.Equal(testMonth) {
		t.Fatalf("progress = %+v", p)
	}
	if _, err := svc.GenerateNow(ctx, "u1"); !errors.Is(err, ErrNotEnoughDiaries) {
		t.Fatalf("expected ErrNotEnoughDiaries, got %v", err)
	}

	seedDiaries(t, db, "u1", testMonth.AddDate(0, 0, 5), 1)
	r, err := svc.GenerateNow(ctx, "u1")
	if err != nil {
		t.Fatalf("GenerateNow: %v", err)
	}
	if !r.MonthStart.Equal(testMonth) || r.ValidDiaryCount != 4 {
		t.Fatalf("report = %+v", r)
	}

	if _, err := svc.Progress(ctx, "ghost"); !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}
}
