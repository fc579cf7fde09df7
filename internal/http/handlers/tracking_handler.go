// Tracking HTTP handlers.
//
// Read-only views over the per-message process tracking table:
//   - GET /tracking               (list, paginated, ETag support)
//   - GET /tracking/{messageId}   (one record)
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-intake/internal/domain"
	"github.com/tbourn/go-chat-intake/internal/repo"
	"github.com/tbourn/go-chat-intake/internal/services"
	"github.com/tbourn/go-chat-intake/internal/utils"
)

// ListTrackingResponse wraps a page of tracking records.
type ListTrackingResponse struct {
	Records    []domain.ProcessTracking `json:"records"`
	Pagination Pagination               `json:"pagination"`
}

// finishedFilter parses the optional finished query parameter.
func finishedFilter(c *gin.Context) (*bool, error) {
	raw, present := c.GetQuery("finished")
	if !present || raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func filterLabel(finished *bool) string {
	if finished == nil {
		return "all"
	}
	return strconv.FormatBool(*finished)
}

// GetTracking godoc
// @ID          getTracking
// @Summary     Get a tracking record
// @Description Returns the pipeline progress of one platform message.
// @Tags        Tracking
// @Produce     json
//
// @Param       messageId  path  string  true  "Platform message id"  example(3865123456789)
//
// @Success     200  {object}  domain.ProcessTracking
// @Failure     404  {object}  handlers.ErrorResponse  "Record not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tracking/{messageId} [get]
func (h *Handlers) GetTracking(c *gin.Context) {
	rec, err := h.tracking.Get(c.Request.Context(), c.Param("messageId"))
	switch {
	case errors.Is(err, services.ErrTrackingNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "tracking record not found")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeLookupFailed, err.Error())
	default:
		ok(c, http.StatusOK, rec)
	}
}

// ListTracking godoc
// @ID          listTracking
// @Summary     List tracking records (paginated)
// @Description Returns tracking records, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Tracking
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"tracking:all:3:1700000000\")
// @Param       finished       query   bool    false "Only finished (true) or open (false) records"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListTrackingResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /tracking [get]
func (h *Handlers) ListTracking(c *gin.Context) {
	ctx := c.Request.Context()
	finished, err := finishedFilter(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "finished must be a boolean")
		return
	}
	page, pageSize := utils.PageParams(c.Query("page"), c.Query("page_size"))

	// ETag pre-check (best effort).
	if h.db != nil {
		count, maxTS, err := repo.TrackingStats(ctx, h.db, finished)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"tracking:%s:%d:%d"`, filterLabel(finished), count, ts)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				notModified(c, etag)
				return
			}
			c.Header("ETag", etag)
		}
	}

	items, total, err := h.tracking.ListPage(ctx, finished, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListTrackingResponse{
		Records: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
