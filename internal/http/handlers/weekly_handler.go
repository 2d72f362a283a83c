// Weekly report HTTP handlers.
//
// Endpoints, all scoped to the caller's couple:
//   - GET /weekly-reports            (one week by ISO year/week, or the latest)
//   - GET /weekly-reports/weeks      (weeks that have a report, for navigation)
//   - GET /weekly-reports/history    (paginated, ETag support)
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-couple-reports/internal/domain"
	"github.com/tbourn/go-couple-reports/internal/services"
	"github.com/tbourn/go-couple-reports/internal/utils"
)

//
// DTOs
//

// WeeksResponse lists the weeks a couple has reports for, newest first.
type WeeksResponse struct {
	Weeks []domain.WeekLabel `json:"weeks"`
}

// WeeklyHistoryResponse wraps a page of weekly reports.
type WeeklyHistoryResponse struct {
	Reports    []domain.WeeklyReport `json:"reports"`
	Pagination Pagination            `json:"pagination"`
}

// periodQuery reads a pair of integer query params. Both absent means "latest"
// (present=false); exactly one present or a non-integer is an error.
func periodQuery(c *gin.Context, a, b string) (x, y int, present bool, valid bool) {
	ra, rb := c.Query(a), c.Query(b)
	if ra == "" && rb == "" {
		return 0, 0, false, true
	}
	var errA, errB error
	x, errA = strconv.Atoi(ra)
	y, errB = strconv.Atoi(rb)
	if errA != nil || errB != nil {
		return 0, 0, true, false
	}
	return x, y, true, true
}

//
// Handlers
//

// GetWeeklyReport godoc
// @ID          getWeeklyReport
// @Summary     Get a weekly couple report
// @Description Returns the caller's couple report for ISO week (year, week). Without both parameters the most recent report is returned.
// @Tags        Weekly reports
// @Produce     json
// @Security    BearerAuth
//
// @Param       X-User-ID  header  string  false "User ID (dev mode only)"  example(user123)
// @Param       year       query   int     false "ISO year"                 example(2025)
// @Param       week       query   int     false "ISO week (1-53)"          minimum(1) maximum(53) example(10)
//
// @Success     200  {object}  domain.WeeklyReport
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid period"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "No report for the period"
// @Failure     409  {object}  handlers.ErrorResponse  "Member is not in a couple"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /weekly-reports [get]
func (h *Handlers) GetWeeklyReport(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	year, week, present, valid := periodQuery(c, "year", "week")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeInvalidPeriod, "year and week must both be integers")
		return
	}

	if !present {
		items, _, err := h.reports.ListWeekly(ctx, uid, 1, 1)
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

	r, err := h.reports.GetWeeklyReport(ctx, uid, year, week)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, r)
}

// ListAvailableWeeks godoc
// @ID          listAvailableWeeks
// @Summary     List weeks with a report
// @Description Returns calendar labels (year, month, week of month) and ISO identifiers of every week the caller's couple has a report for.
// @Tags        Weekly reports
// @Produce     json
// @Security    BearerAuth
//
// @Param       X-User-ID  header  string  false "User ID (dev mode only)"  example(user123)
//
// @Success     200  {object}  handlers.WeeksResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     409  {object}  handlers.ErrorResponse  "Member is not in a couple"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /weekly-reports/weeks [get]
func (h *Handlers) ListAvailableWeeks(c *gin.Context) {
	weeks, err := h.reports.AvailableWeeks(c.Request.Context(), userID(c))
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	if weeks == nil {
		weeks = []domain.WeekLabel{}
	}
	ok(c, http.StatusOK, WeeksResponse{Weeks: weeks})
}

// ListWeeklyHistory godoc
// @ID          listWeeklyHistory
// @Summary     List weekly reports (paginated)
// @Description Returns a page of the caller's couple reports, newest week first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Weekly reports
// @Produce     json
// @Security    BearerAuth
//
// @Param       X-User-ID      header  string  false "User ID (dev mode only)"     example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"              minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.WeeklyHistoryResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     409  {object} handlers.ErrorResponse "Member is not in a couple"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /weekly-reports/history [get]
func (h *Handlers) ListWeeklyHistory(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := utils.ClampPage(c.Query("page"), c.Query("page_size"))

	if v, err := h.reports.WeeklyVersion(ctx, uid); err == nil {
		if notModified(c, "weekly", uid, v.Count, v.MaxUpdatedAt) {
			return
		}
	}

	items, total, err := h.reports.ListWeekly(ctx, uid, page, pageSize)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, WeeklyHistoryResponse{
		Reports:    items,
		Pagination: newPagination(page, pageSize, total),
	})
}
