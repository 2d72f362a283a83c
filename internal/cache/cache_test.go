package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"

	"github.com/tbourn/go-couple-reports/internal/domain"
)

func TestKeys(t *testing.T) {
	ws := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	if got := WeeklyKey("c1", ws); got != "report:weekly:c1:2025-03-03" {
		t.Fatalf("WeeklyKey = %q", got)
	}
	ms := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if got := MonthlyKey("u1", ms); got != "report:monthly:u1:2025-03" {
		t.Fatalf("MonthlyKey = %q", got)
	}
}

func TestNoop_AlwaysMisses(t *testing.T) {
	var c ReportCache = Noop{}
	ctx := context.Background()
	if err := c.SetWeekly(ctx, &domain.WeeklyReport{CoupleID: "c1"}); err != nil {
		t.Fatalf("SetWeekly: %v", err)
	}
	if r, err := c.GetWeekly(ctx, "c1", time.Time{}); r != nil || err != nil {
		t.Fatalf("GetWeekly = (%v, %v)", r, err)
	}
	if r, err := c.GetMonthly(ctx, "u1", time.Time{}); r != nil || err != nil {
		t.Fatalf("GetMonthly = (%v, %v)", r, err)
	}
	if err := c.InvalidateMonthly(ctx, "u1", time.Time{}); err != nil {
		t.Fatalf("InvalidateMonthly: %v", err)
	}
}

func TestRedis_UnreachableServerSurfacesError(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	c := NewRedis(client, 0)

	if _, err := c.GetWeekly(context.Background(), "c1", time.Now()); err == nil {
		t.Fatalf("expected dial error")
	}
	if _, err := Connect(context.Background(), Options{Addr: "127.0.0.1:1"}); err == nil {
		t.Fatalf("Connect should fail against a closed port")
	}
}

// Runs against a real server when REDIS_TEST_ADDR is set.
func TestRedis_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	client, err := Connect(ctx, Options{Addr: addr, DB: 15})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	c := NewRedis(client, time.Minute)

	ms := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	in := &domain.MonthlyTrackReport{
		ID: "m1", UserID: "u-cache", MonthStart: ms,
		AIAnalysis:      datatypes.NewJSONType(domain.Narrative{Summary: "요약", Suggestions: []string{"a", "b", "c"}}),
		NarrativeSource: domain.NarrativeSourceGenerated,
	}
	if err := c.SetMonthly(ctx, in); err != nil {
		t.Fatalf("SetMonthly: %v", err)
	}
	got, err := c.GetMonthly(ctx, "u-cache", ms)
	if err != nil || got == nil || got.AIAnalysis.Data().Summary != "요약" {
		t.Fatalf("GetMonthly = (%+v, %v)", got, err)
	}
	if err := c.InvalidateMonthly(ctx, "u-cache", ms); err != nil {
		t.Fatalf("InvalidateMonthly: %v", err)
	}
	if got, err := c.GetMonthly(ctx, "u-cache", ms); got != nil || err != nil {
		t.Fatalf("expected miss after invalidate, got (%v, %v)", got, err)
	}
}
