// Monthly report HTTP handlers.
//
// Endpoints, all scoped to the caller:
//   - GET  /monthly-reports            (one month, or the latest)
//   - GET  /monthly-reports/history    (paginated, ETag support)
//   - GET  /monthly-reports/progress   (current month's diary counts)
//   - POST /monthly-reports/generate   (build the current month now)
//
// Idempotency:
// If the client sends an Idempotency-Key and a previous generate with the same
// key succeeded, the stored report is returned with `Idempotency-Replayed:
// true` and nothing is recomputed.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-couple-reports/internal/domain"
	"github.com/tbourn/go-couple-reports/internal/http/middleware"
	"github.com/tbourn/go-couple-reports/internal/repo"
	"github.com/tbourn/go-couple-reports/internal/services"
	"github.com/tbourn/go-couple-reports/internal/utils"
)

// MonthlyHistoryResponse wraps a page of monthly reports.
type MonthlyHistoryResponse struct {
	Reports    []domain.MonthlyTrackReport `json:"reports"`
	Pagination Pagination                  `json:"pagination"`
}

// GetMonthlyReport godoc
// @ID          getMonthlyReport
// @Summary     Get a monthly emotional-track report
// @Description Returns the caller's report for (year, month). Without both parameters the most recent report is returned.
// @Tags        Monthly reports
// @Produce     json
// @Security    BearerAuth
//
// @Param       X-User-ID  header  string  false "User ID (dev mode only)"  example(user123)
// @Param       year       query   int     false "Calendar year"            example(2025)
// @Param       month      query   int     false "Month (1-12)"             minimum(1) maximum(12) example(3)
//
// @Success     200  {object}  domain.MonthlyTrackReport
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid period"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "No report for the period"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /monthly-reports [get]
func (h *Handlers) GetMonthlyReport(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	year, month, present, valid := periodQuery(c, "year", "month")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeInvalidPeriod, "year and month must both be integers")
		return
	}

	if !present {
		items, _, err := h.reports.ListMonthly(ctx, uid, 1, 1)
		if err != nil {
			failService(c, err, ErrCodeInternal)
			return
		}
		if len(items) == 0 {
			failService(c, services.ErrReportNotFound, ErrCodeInternal)
			return
		}
		ok(c, http.StatusOK, items[0])
		return
	}

	r, err := h.reports.GetMonthlyReport(ctx, uid, year, month)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, r)
}

// ListMonthlyHistory godoc
// @ID          listMonthlyHistory
// @Summary     List monthly reports (paginated)
// @Description Returns a page of the caller's monthly reports, newest month first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Monthly reports
// @Produce     json
// @Security    BearerAuth
//
// @Param       X-User-ID      header  string  false "User ID (dev mode only)"     example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"              minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.MonthlyHistoryResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /monthly-reports/history [get]
func (h *Handlers) ListMonthlyHistory(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := utils.ClampPage(c.Query("page"), c.Query("page_size"))

	if v, err := h.reports.MonthlyVersion(ctx, uid); err == nil {
		if notModified(c, "monthly", uid, v.Count, v.MaxUpdatedAt) {
			return
		}
	}

	items, total, err := h.reports.ListMonthly(ctx, uid, page, pageSize)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, MonthlyHistoryResponse{
		Reports:    items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetMonthlyProgress godoc
// @ID          getMonthlyProgress
// @Summary     Current month diary progress
// @Description Counts the caller's diary entries this month (inside the subscription window) against the minimum needed for a report.
// @Tags        Monthly reports
// @Produce     json
// @Security    BearerAuth
//
// @Param       X-User-ID  header  string  false "User ID (dev mode only)"  example(user123)
//
// @Success     200  {object}  services.Progress
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown member"
// @Failure     409  {object}  handlers.ErrorResponse  "Tracking not enabled"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /monthly-reports/progress [get]
func (h *Handlers) GetMonthlyProgress(c *gin.Context) {
	p, err := h.generator.Progress(c.Request.Context(), userID(c))
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, p)
}

// GenerateMonthlyReport godoc
// @ID          generateMonthlyReport
// @Summary     Generate the current month's report now
// @Description Builds (or rebuilds) the caller's report for the current month. Requires the minimum number of qualifying diary entries.
// @Description Supports idempotency via the Idempotency-Key header (same key → same report, no recomputation).
// @Tags        Monthly reports
// @Produce     json
// @Security    BearerAuth
//
// @Param       X-User-ID        header  string  false "User ID (dev mode only)"                     example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
//
// @Success     200  {object}  domain.MonthlyTrackReport
// @Header      200  {string}  Idempotency-Replayed  "true when served from a previous request"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad Idempotency-Key"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown member"
// @Failure     409  {object}  handlers.ErrorResponse  "Tracking not enabled"
// @Failure     422  {object}  handlers.ErrorResponse  "Not enough diary entries"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /monthly-reports/generate [post]
func (h *Handlers) GenerateMonthlyReport(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	scope := middleware.IdempotencyScope(c)
	idemKey, _ := middleware.GetIdempotencyKey(c)

	// Replay path.
	if idemKey != "" && h.replays != nil {
		id, err := h.replays.Find(ctx, uid, scope, idemKey)
		switch {
		case err == nil:
			if prev, err := h.reports.MonthlyReportByID(ctx, uid, id); err == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusOK, prev)
				return
			}
		case !errors.Is(err, repo.ErrNotFound):
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
		}
	}

	r, err := h.generator.GenerateNow(ctx, uid)
	if err != nil {
		failService(c, err, ErrCodeGenerateFailed)
		return
	}

	// Store path, best effort.
	if idemKey != "" && h.replays != nil {
		if err := h.replays.Save(ctx, uid, scope, idemKey, r.ID, http.StatusOK); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record failed")
		}
	}

	ok(c, http.StatusOK, r)
}
