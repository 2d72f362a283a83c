package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-couple-reports/internal/domain"
	"github.com/tbourn/go-couple-reports/internal/http/middleware"
	"github.com/tbourn/go-couple-reports/internal/scheduler"
	"github.com/tbourn/go-couple-reports/internal/services"
)

//
// Service contracts (context-aware)
//

// ReportReader serves stored reports to the calling member.
type ReportReader interface {
	GetWeeklyReport(ctx context.Context, userID string, isoYear, isoWeek int) (*domain.WeeklyReport, error)
	AvailableWeeks(ctx context.Context, userID string) ([]domain.WeekLabel, error)
	ListWeekly(ctx context.Context, userID string, page, pageSize int) ([]domain.WeeklyReport, int64, error)
	WeeklyVersion(ctx context.Context, userID string) (services.Version, error)

	GetMonthlyReport(ctx context.Context, userID string, year, month int) (*domain.MonthlyTrackReport, error)
	MonthlyReportByID(ctx context.Context, userID, id string) (*domain.MonthlyTrackReport, error)
	ListMonthly(ctx context.Context, userID string, page, pageSize int) ([]domain.MonthlyTrackReport, int64, error)
	MonthlyVersion(ctx context.Context, userID string) (services.Version, error)
}

// MonthlyGenerator builds the caller's current-month report on demand.
type MonthlyGenerator interface {
	GenerateNow(ctx context.Context, userID string) (*domain.MonthlyTrackReport, error)
	Progress(ctx context.Context, userID string) (services.Progress, error)
}

// ReplayStore remembers which report an Idempotency-Key produced.
type ReplayStore interface {
	Find(ctx context.Context, userID, scope, key string) (resourceID string, err error)
	Save(ctx context.Context, userID, scope, key, resourceID string, status int) error
}

// JobRunner triggers and inspects the batch jobs.
type JobRunner interface {
	Run(ctx context.Context, job string) (scheduler.Summary, error)
	State(job string) scheduler.JobState
}

//
// Handler wiring
//

// Handlers groups the report and admin endpoints. Any dependency may be nil
// when the matching routes are not mounted.
type Handlers struct {
	reports   ReportReader
	generator MonthlyGenerator
	replays   ReplayStore
	jobs      JobRunner

	// jobTimeout bounds background job runs started from the admin API.
	jobTimeout time.Duration
}

// New constructs a Handlers instance bound to the given services.
func New(reports ReportReader, generator MonthlyGenerator, replays ReplayStore, jobs JobRunner) *Handlers {
	return &Handlers{
		reports:    reports,
		generator:  generator,
		replays:    replays,
		jobs:       jobs,
		jobTimeout: 2 * time.Hour,
	}
}

// WithJobTimeout overrides the bound on background job runs.
func (h *Handlers) WithJobTimeout(d time.Duration) *Handlers {
	if d > 0 {
		h.jobTimeout = d
	}
	return h
}

// userID returns the member id resolved by the authentication middleware.
func userID(c *gin.Context) string {
	return middleware.UserID(c)
}

// failService maps a service error onto the error envelope.
func failService(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, services.ErrInvalidPeriod):
		fail(c, http.StatusBadRequest, ErrCodeInvalidPeriod, "invalid report period")
	case errors.Is(err, services.ErrReportNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "report not found")
	case errors.Is(err, services.ErrMemberNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "member not found")
	case errors.Is(err, services.ErrNotInCouple):
		fail(c, http.StatusConflict, ErrCodeNotInCouple, "member is not in a couple")
	case errors.Is(err, services.ErrNotSubscribed):
		fail(c, http.StatusConflict, ErrCodeNotSubscribed, "monthly tracking is not enabled for this member")
	case errors.Is(err, services.ErrNotEnoughDiaries):
		fail(c, http.StatusUnprocessableEntity, ErrCodeNotEnoughDiaries, "not enough qualifying diary entries this month")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		fail(c, http.StatusServiceUnavailable, fallbackCode, "request timed out")
	default:
		fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}
