package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tbourn/go-couple-reports/internal/domain"
	"github.com/tbourn/go-couple-reports/internal/services"
)

type fakeSubjects struct {
	couples []domain.Couple
	members []domain.Member
	err     error
}

func (f fakeSubjects) ActiveCouples(context.Context) ([]domain.Couple, error) {
	return f.couples, f.err
}

func (f fakeSubjects) SubscribedMembers(context.Context) ([]domain.Member, error) {
	return f.members, f.err
}

type fakeWeekly struct {
	mu     sync.Mutex
	calls  []string
	weeks  []time.Time
	fail   map[string]error
	panics map[string]bool

	// entered/release, when set, make every call block until release closes.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeWeekly) RunForCouple(_ context.Context, coupleID string, weekStart time.Time) (*domain.WeeklyReport, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, coupleID)
	f.weeks = append(f.weeks, weekStart)
	if f.panics[coupleID] {
		panic("runner crashed on " + coupleID)
	}
	if err := f.fail[coupleID]; err != nil {
		return nil, err
	}
	return &domain.WeeklyReport{CoupleID: coupleID, WeekStart: weekStart}, nil
}

type fakeMonthly struct {
	months []time.Time
	fail   map[string]error
	panics map[string]bool
}

func (f *fakeMonthly) GenerateForMember(_ context.Context, m domain.Member, monthStart time.Time) (*domain.MonthlyTrackReport, error) {
	f.months = append(f.months, monthStart)
	if f.panics[m.ID] {
		panic("narrative template missing for " + m.ID)
	}
	if err := f.fail[m.ID]; err != nil {
		return nil, err
	}
	return &domain.MonthlyTrackReport{UserID: m.ID, MonthStart: monthStart}, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRunWeekly_TargetsPreviousWeekAndIsolatesFailures(t *testing.T) {
	w := &fakeWeekly{fail: map[string]error{"c2": errors.New("boom")}}
	c := &Coordinator{
		Weekly:   w,
		Subjects: fakeSubjects{couples: []domain.Couple{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}},
		Location: time.UTC,
	}

	failedBefore := testutil.ToFloat64(jobSubjects.WithLabelValues(JobWeekly, "failed"))

	// Monday 2024-03-11 00:05 triggers the week of 2024-03-04.
	sum, err := c.RunWeekly(context.Background(), time.Date(2024, 3, 11, 0, 5, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("RunWeekly: %v", err)
	}
	if !sum.Period.Equal(day(2024, 3, 4)) {
		t.Fatalf("period = %v", sum.Period)
	}
	if sum.Subjects != 3 || sum.Succeeded != 2 || sum.Failed != 1 || sum.Skipped != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(w.calls) != 3 || w.calls[2] != "c3" {
		t.Fatalf("calls = %v, want all three couples", w.calls)
	}
	for _, wk := range w.weeks {
		if !wk.Equal(day(2024, 3, 4)) {
			t.Fatalf("week passed to runner = %v", wk)
		}
	}
	if got := testutil.ToFloat64(jobSubjects.WithLabelValues(JobWeekly, "failed")) - failedBefore; got != 1 {
		t.Fatalf("failed subjects metric delta = %v, want 1", got)
	}
	if c.State(JobWeekly) != Idle {
		t.Fatalf("state after run = %v", c.State(JobWeekly))
	}
}

func TestRunWeekly_UsesReportLocation(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	w := &fakeWeekly{}
	c := &Coordinator{Weekly: w, Subjects: fakeSubjects{couples: []domain.Couple{{ID: "c1"}}}, Location: seoul}

	// Sunday 20:00 UTC is already Monday 05:00 in Seoul.
	sum, err := c.RunWeekly(context.Background(), time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("RunWeekly: %v", err)
	}
	if !sum.Period.Equal(day(2024, 3, 4)) {
		t.Fatalf("period = %v, want 2024-03-04", sum.Period)
	}
}

func TestRun_PanickingSubjectDoesNotStopBatch(t *testing.T) {
	w := &fakeWeekly{panics: map[string]bool{"a": true}}
	c := &Coordinator{
		Weekly:   w,
		Subjects: fakeSubjects{couples: []domain.Couple{{ID: "a"}, {ID: "b"}}},
		Location: time.UTC,
	}
	sum, err := c.RunWeekly(context.Background(), time.Date(2024, 3, 11, 0, 5, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("RunWeekly: %v", err)
	}
	if len(w.calls) != 2 || w.calls[1] != "b" {
		t.Fatalf("calls = %v, want both couples", w.calls)
	}
	if sum.Succeeded != 1 || sum.Failed != 1 {
		t.Fatalf("weekly summary = %+v", sum)
	}
	if c.State(JobWeekly) != Idle {
		t.Fatalf("guard not released after panic: %v", c.State(JobWeekly))
	}

	m := &fakeMonthly{panics: map[string]bool{"u1": true}}
	c = &Coordinator{
		Monthly:  m,
		Subjects: fakeSubjects{members: []domain.Member{{ID: "u1"}, {ID: "u2"}}},
		Location: time.UTC,
	}
	sum, err = c.RunMonthly(context.Background(), time.Date(2024, 4, 1, 1, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("RunMonthly: %v", err)
	}
	if len(m.months) != 2 || sum.Succeeded != 1 || sum.Failed != 1 {
		t.Fatalf("monthly summary = %+v, runs = %d", sum, len(m.months))
	}
}

func TestIsolate(t *testing.T) {
	boom := errors.New("boom")
	if err := isolate(func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("returned error lost: %v", err)
	}
	err := isolate(func() error { panic("kaboom") })
	if !errors.Is(err, ErrSubjectPanicked) || !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("panic not converted: %v", err)
	}
}

func TestRunMonthly_SkipsMembersBelowMinimum(t *testing.T) {
	m := &fakeMonthly{fail: map[string]error{
		"u2": services.ErrNotEnoughDiaries,
		"u3": errors.New("db down"),
	}}
	c := &Coordinator{
		Monthly:  m,
		Subjects: fakeSubjects{members: []domain.Member{{ID: "u1"}, {ID: "u2"}, {ID: "u3"}, {ID: "u4"}}},
		Location: time.UTC,
	}

	sum, err := c.RunMonthly(context.Background(), time.Date(2024, 1, 1, 0, 10, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("RunMonthly: %v", err)
	}
	if !sum.Period.Equal(day(2023, 12, 1)) {
		t.Fatalf("period = %v, want 2023-12-01", sum.Period)
	}
	if sum.Succeeded != 2 || sum.Skipped != 1 || sum.Failed != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(m.months) != 4 {
		t.Fatalf("runner called %d times, want 4", len(m.months))
	}
}

func TestRun_SubjectListErrorFailsJob(t *testing.T) {
	c := &Coordinator{Weekly: &fakeWeekly{}, Subjects: fakeSubjects{err: errors.New("no db")}}
	before := testutil.ToFloat64(jobRuns.WithLabelValues(JobWeekly, "failed"))

	if _, err := c.Run(context.Background(), JobWeekly); err == nil {
		t.Fatalf("expected error")
	}
	if got := testutil.ToFloat64(jobRuns.WithLabelValues(JobWeekly, "failed")) - before; got != 1 {
		t.Fatalf("failed runs delta = %v", got)
	}
	if c.State(JobWeekly) != Idle {
		t.Fatalf("guard not released")
	}
}

func TestRun_UnknownJob(t *testing.T) {
	c := &Coordinator{}
	if _, err := c.Run(context.Background(), "daily"); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("err = %v, want ErrUnknownJob", err)
	}
	if c.State("daily") != Idle {
		t.Fatalf("unknown job state should be idle")
	}
}

func TestRun_UsesClock(t *testing.T) {
	w := &fakeWeekly{}
	c := &Coordinator{
		Weekly:   w,
		Subjects: fakeSubjects{couples: []domain.Couple{{ID: "c1"}}},
		Now:      func() time.Time { return time.Date(2024, 12, 31, 12, 0, 0, 0, time.UTC) },
	}
	sum, err := c.Run(context.Background(), JobWeekly)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sum.Period.Equal(day(2024, 12, 23)) {
		t.Fatalf("period = %v, want 2024-12-23", sum.Period)
	}
}

func TestGuard_RejectsOverlappingRun(t *testing.T) {
	w := &fakeWeekly{entered: make(chan struct{}), release: make(chan struct{})}
	c := &Coordinator{
		Weekly:   w,
		Monthly:  &fakeMonthly{},
		Subjects: fakeSubjects{couples: []domain.Couple{{ID: "c1"}}, members: []domain.Member{{ID: "u1"}}},
		Location: time.UTC,
	}
	skippedBefore := testutil.ToFloat64(jobRuns.WithLabelValues(JobWeekly, "skipped"))

	done := make(chan error, 1)
	go func() {
		_, err := c.Run(context.Background(), JobWeekly)
		done <- err
	}()
	<-w.entered

	if c.State(JobWeekly) != Running {
		t.Fatalf("state = %v, want running", c.State(JobWeekly))
	}
	if _, err := c.Run(context.Background(), JobWeekly); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second trigger err = %v, want ErrAlreadyRunning", err)
	}
	// The other job has its own guard.
	if _, err := c.Run(context.Background(), JobMonthly); err != nil {
		t.Fatalf("monthly during weekly: %v", err)
	}

	close(w.release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
	if c.State(JobWeekly) != Idle {
		t.Fatalf("state after run = %v", c.State(JobWeekly))
	}
	if got := testutil.ToFloat64(jobRuns.WithLabelValues(JobWeekly, "skipped")) - skippedBefore; got != 1 {
		t.Fatalf("skipped runs delta = %v", got)
	}
	if len(w.calls) != 1 {
		t.Fatalf("runner calls = %d, want 1", len(w.calls))
	}
}

func TestGuard_ZeroValueIdle(t *testing.T) {
	var g Guard
	if g.State() != Idle || g.State().String() != "idle" {
		t.Fatalf("zero guard not idle")
	}
	if !g.TryAcquire() || g.TryAcquire() {
		t.Fatalf("acquire semantics broken")
	}
	if g.State().String() != "running" {
		t.Fatalf("state = %v", g.State())
	}
	g.Release()
	if !g.TryAcquire() {
		t.Fatalf("reacquire after release failed")
	}
}

func TestNewCron_RejectsBadSpec(t *testing.T) {
	c := &Coordinator{Location: time.UTC}
	if _, err := NewCron(c, Specs{Weekly: "not a spec", Monthly: "0 0 1 * *"}); err == nil {
		t.Fatalf("expected error for bad spec")
	}
	cr, err := NewCron(c, Specs{Weekly: "0 0 * * 1", Monthly: "0 0 1 * *"})
	if err != nil {
		t.Fatalf("NewCron: %v", err)
	}
	if n := len(cr.Entries()); n != 2 {
		t.Fatalf("entries = %d, want 2", n)
	}
}

func TestNewCron_PurgeEntry(t *testing.T) {
	var purgedAt time.Time
	at := time.Date(2025, 3, 4, 3, 30, 0, 0, time.UTC)
	c := &Coordinator{
		Location: time.UTC,
		Now:      func() time.Time { return at },
		Purge: func(_ context.Context, now time.Time) (int64, error) {
			purgedAt = now
			return 3, nil
		},
	}
	specs := Specs{Weekly: "0 0 * * 1", Monthly: "0 0 1 * *", Purge: "30 3 * * *"}
	cr, err := NewCron(c, specs)
	if err != nil {
		t.Fatalf("NewCron: %v", err)
	}
	if n := len(cr.Entries()); n != 3 {
		t.Fatalf("entries = %d, want 3", n)
	}
	c.purge()
	if !purgedAt.Equal(at) {
		t.Fatalf("purge clock = %v, want %v", purgedAt, at)
	}

	// Without a Purge func the spec is ignored.
	cr, err = NewCron(&Coordinator{}, specs)
	if err != nil {
		t.Fatalf("NewCron: %v", err)
	}
	if n := len(cr.Entries()); n != 2 {
		t.Fatalf("entries without purge func = %d, want 2", n)
	}
}
