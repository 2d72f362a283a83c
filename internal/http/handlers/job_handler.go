// Admin job HTTP handlers.
//
// Operators can trigger the weekly and monthly jobs outside their schedule.
// Manual runs share the scheduler's guards, so a trigger while the job is
// running is refused with 409 instead of starting a second run.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-couple-reports/internal/scheduler"
	"github.com/tbourn/go-couple-reports/internal/sysutil"
)

// JobStatusResponse reports a job's state.
type JobStatusResponse struct {
	Job   string `json:"job"   example:"weekly"`
	State string `json:"state" example:"idle"`
}

// JobRunResponse is returned by synchronous runs.
type JobRunResponse struct {
	Job       string  `json:"job"`
	Period    string  `json:"period"      example:"2025-03-03"`
	Subjects  int     `json:"subjects"`
	Succeeded int     `json:"succeeded"`
	Skipped   int     `json:"skipped"`
	Failed    int     `json:"failed"`
	Seconds   float64 `json:"duration_seconds"`
}

func knownJob(job string) bool {
	return job == scheduler.JobWeekly || job == scheduler.JobMonthly
}

// GetJobStatus godoc
// @ID          getJobStatus
// @Summary     Job state
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Token  header  string  true  "Admin token"
// @Param       job            path    string  true  "Job name"  Enums(weekly, monthly)
// @Success     200  {object}  handlers.JobStatusResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown job"
// @Router      /admin/jobs/{job} [get]
func (h *Handlers) GetJobStatus(c *gin.Context) {
	job := c.Param("job")
	if !knownJob(job) {
		fail(c, http.StatusNotFound, ErrCodeUnknownJob, "unknown job")
		return
	}
	ok(c, http.StatusOK, JobStatusResponse{Job: job, State: h.jobs.State(job).String()})
}

// RunJob godoc
// @ID          runJob
// @Summary     Trigger a report job
// @Description Runs the weekly or monthly job for the previous period. By default the run continues in the background and 202 is returned; with wait=true the request blocks and returns the run summary.
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Token  header  string  true   "Admin token"
// @Param       job            path    string  true   "Job name"  Enums(weekly, monthly)
// @Param       wait           query   bool    false  "Block until the run finishes"
// @Success     200  {object}  handlers.JobRunResponse
// @Success     202  {object}  handlers.JobStatusResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown job"
// @Failure     409  {object}  handlers.ErrorResponse  "Job already running"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/jobs/{job}/run [post]
func (h *Handlers) RunJob(c *gin.Context) {
	job := c.Param("job")
	if !knownJob(job) {
		fail(c, http.StatusNotFound, ErrCodeUnknownJob, "unknown job")
		return
	}
	if h.jobs.State(job) == scheduler.Running {
		fail(c, http.StatusConflict, ErrCodeJobRunning, "job already running")
		return
	}

	if sysutil.IsTruthy(c.Query("wait")) {
		sum, err := h.jobs.Run(c.Request.Context(), job)
		switch {
		case errors.Is(err, scheduler.ErrAlreadyRunning):
			fail(c, http.StatusConflict, ErrCodeJobRunning, "job already running")
		case err != nil:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		default:
			ok(c, http.StatusOK, JobRunResponse{
				Job:       sum.Job,
				Period:    sum.Period.Format("2006-01-02"),
				Subjects:  sum.Subjects,
				Succeeded: sum.Succeeded,
				Skipped:   sum.Skipped,
				Failed:    sum.Failed,
				Seconds:   sum.Duration.Seconds(),
			})
		}
		return
	}

	// The run outlives the request, so it gets its own context.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.jobTimeout)
		defer cancel()
		if _, err := h.jobs.Run(ctx, job); err != nil && !errors.Is(err, scheduler.ErrAlreadyRunning) {
			log.Error().Err(err).Str("component", "admin").Str("job", job).Msg("manual run failed")
		}
	}()
	ok(c, http.StatusAccepted, JobStatusResponse{Job: job, State: scheduler.Running.String()})
}
