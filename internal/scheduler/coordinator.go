// Package scheduler runs the weekly and monthly report jobs.
//
// Each job has its own Guard, so a weekly run and a monthly run may overlap
// but two runs of the same job never do: a trigger that finds its job
// Running is logged and dropped. Subjects inside a run are processed one at
// a time and a failing subject never stops the rest of the batch.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-couple-reports/internal/domain"
	"github.com/tbourn/go-couple-reports/internal/periods"
	"github.com/tbourn/go-couple-reports/internal/repo"
	"github.com/tbourn/go-couple-reports/internal/services"
)

// Job names.
const (
	JobWeekly  = "weekly"
	JobMonthly = "monthly"
)

var (
	// ErrAlreadyRunning is returned when a job is triggered while running.
	ErrAlreadyRunning = errors.New("job already running")

	// ErrUnknownJob is returned by Run for a name other than JobWeekly or
	// JobMonthly.
	ErrUnknownJob = errors.New("unknown job")

	// ErrSubjectPanicked wraps a panic raised while processing one subject.
	ErrSubjectPanicked = errors.New("subject panicked")
)

// WeeklyRunner produces one couple's weekly report.
type WeeklyRunner interface {
	RunForCouple(ctx context.Context, coupleID string, weekStart time.Time) (*domain.WeeklyReport, error)
}

// MonthlyRunner produces one member's monthly report.
type MonthlyRunner interface {
	GenerateForMember(ctx context.Context, m domain.Member, monthStart time.Time) (*domain.MonthlyTrackReport, error)
}

// Subjects enumerates the eligible subjects of each job.
type Subjects interface {
	ActiveCouples(ctx context.Context) ([]domain.Couple, error)
	SubscribedMembers(ctx context.Context) ([]domain.Member, error)
}

// DBSubjects reads subjects from the couple/member tables.
type DBSubjects struct {
	DB *gorm.DB
}

func (s DBSubjects) ActiveCouples(ctx context.Context) ([]domain.Couple, error) {
	return repo.ListActiveCouples(ctx, s.DB)
}

func (s DBSubjects) SubscribedMembers(ctx context.Context) ([]domain.Member, error) {
	return repo.ListSubscribedMembers(ctx, s.DB)
}

// Summary is the outcome of one job run.
type Summary struct {
	Job       string        `json:"job"`
	Period    time.Time     `json:"period"`
	Subjects  int           `json:"subjects"`
	Succeeded int           `json:"succeeded"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Coordinator owns the job guards and runs the batches.
type Coordinator struct {
	Weekly   WeeklyRunner
	Monthly  MonthlyRunner
	Subjects Subjects
	Location *time.Location

	// Now is the trigger clock; nil means time.Now.
	Now func() time.Time

	// Purge removes expired idempotency keys. Optional.
	Purge func(ctx context.Context, now time.Time) (int64, error)

	weekly  Guard
	monthly Guard
}

// Run triggers job by name at the current time.
func (c *Coordinator) Run(ctx context.Context, job string) (Summary, error) {
	switch job {
	case JobWeekly:
		return c.RunWeekly(ctx, c.now())
	case JobMonthly:
		return c.RunMonthly(ctx, c.now())
	}
	return Summary{}, fmt.Errorf("%w: %q", ErrUnknownJob, job)
}

// State reports the state of job; unknown names are Idle.
func (c *Coordinator) State(job string) JobState {
	switch job {
	case JobWeekly:
		return c.weekly.State()
	case JobMonthly:
		return c.monthly.State()
	}
	return Idle
}

// RunWeekly reports on the week before the one containing at, for every
// active couple.
func (c *Coordinator) RunWeekly(ctx context.Context, at time.Time) (Summary, error) {
	weekStart := periods.PreviousWeek(at, c.Location)
	return c.run(ctx, &c.weekly, JobWeekly, weekStart, func(ctx context.Context, sum *Summary) error {
		couples, err := c.Subjects.ActiveCouples(ctx)
		if err != nil {
			return fmt.Errorf("list couples: %w", err)
		}
		sum.Subjects = len(couples)
		for _, cp := range couples {
			err := isolate(func() error {
				_, err := c.Weekly.RunForCouple(ctx, cp.ID, weekStart)
				return err
			})
			c.record(sum, JobWeekly, "couple_id", cp.ID, err)
		}
		return nil
	})
}

// RunMonthly reports on the month before the one containing at, for every
// subscribed member. Members below the diary minimum are skipped.
func (c *Coordinator) RunMonthly(ctx context.Context, at time.Time) (Summary, error) {
	monthStart := periods.PreviousMonth(at, c.Location)
	return c.run(ctx, &c.monthly, JobMonthly, monthStart, func(ctx context.Context, sum *Summary) error {
		members, err := c.Subjects.SubscribedMembers(ctx)
		if err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		sum.Subjects = len(members)
		for _, m := range members {
			err := isolate(func() error {
				_, err := c.Monthly.GenerateForMember(ctx, m, monthStart)
				return err
			})
			c.record(sum, JobMonthly, "user_id", m.ID, err)
		}
		return nil
	})
}

func (c *Coordinator) run(ctx context.Context, g *Guard, job string, period time.Time, body func(context.Context, *Summary) error) (Summary, error) {
	sum := Summary{Job: job, Period: period}
	if !g.TryAcquire() {
		jobRuns.WithLabelValues(job, "skipped").Inc()
		log.Warn().Str("component", "scheduler").Str("job", job).Msg("previous run still in progress; trigger skipped")
		return sum, ErrAlreadyRunning
	}
	defer g.Release()

	ctx, span := otel.Tracer("scheduler").Start(ctx, "job."+job)
	defer span.End()
	span.SetAttributes(attribute.String("period", period.Format(time.DateOnly)))

	start := time.Now()
	log.Info().Str("component", "scheduler").Str("job", job).Str("period", period.Format(time.DateOnly)).Msg("job started")

	err := body(ctx, &sum)
	sum.Duration = time.Since(start)
	jobDuration.WithLabelValues(job).Observe(sum.Duration.Seconds())

	if err != nil {
		jobRuns.WithLabelValues(job, "failed").Inc()
		span.RecordError(err)
		log.Error().Err(err).Str("component", "scheduler").Str("job", job).Msg("job failed")
		return sum, err
	}
	jobRuns.WithLabelValues(job, "completed").Inc()
	span.SetAttributes(
		attribute.Int("subjects", sum.Subjects),
		attribute.Int("failed", sum.Failed),
	)
	log.Info().
		Str("component", "scheduler").
		Str("job", job).
		Int("subjects", sum.Subjects).
		Int("succeeded", sum.Succeeded).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Dur("duration", sum.Duration).
		Msg("job finished")
	return sum, nil
}

// isolate runs one subject's work and turns a panic into an error, so the
// rest of the batch still runs.
func isolate(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrSubjectPanicked, rec, debug.Stack())
		}
	}()
	return fn()
}

// record tallies one subject's outcome. Errors are logged and swallowed.
func (c *Coordinator) record(sum *Summary, job, idKey, id string, err error) {
	switch {
	case err == nil:
		sum.Succeeded++
		jobSubjects.WithLabelValues(job, "succeeded").Inc()
	case errors.Is(err, services.ErrNotEnoughDiaries):
		sum.Skipped++
		jobSubjects.WithLabelValues(job, "skipped").Inc()
		log.Debug().Str("component", "scheduler").Str("job", job).Str(idKey, id).Msg("not enough diaries; skipped")
	default:
		sum.Failed++
		jobSubjects.WithLabelValues(job, "failed").Inc()
		log.Error().Err(err).Str("component", "scheduler").Str("job", job).Str(idKey, id).Msg("subject failed")
	}
}

func (c *Coordinator) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
