// Push intake handler.
//
// The chat platform can push events instead of being polled:
//   - POST /openapi/sainiu/getInfo   (one event per request)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-intake/internal/domain"
	"github.com/tbourn/go-chat-intake/internal/observability"
	"github.com/tbourn/go-chat-intake/internal/services"
)

// PushResponse acknowledges a pushed event.
type PushResponse struct {
	Status  string `json:"status" example:"success"`
	Outcome string `json:"outcome" example:"processed"`
}

// PushEvent godoc
// @ID          pushEvent
// @Summary     Push one inbound chat event
// @Description Runs a platform event through the intake pipeline. Duplicates, filtered events and buffered text bursts are acknowledged with 200.
// @Tags        Intake
// @Accept      json
// @Produce     json
//
// @Param       body  body  domain.InboundEvent  true  "Platform event"
//
// @Success     200  {object}  handlers.PushResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed or incomplete event"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Processing failed"
// @Router      /openapi/sainiu/getInfo [post]
func (h *Handlers) PushEvent(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return
	}
	ev, err := domain.DecodeEvent(raw)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeInvalidEvent, "invalid JSON event")
		return
	}

	switch outcome := h.intake.Ingest(c.Request.Context(), ev, services.SourcePush); outcome {
	case observability.OutcomeInvalid:
		fail(c, http.StatusBadRequest, ErrCodeInvalidEvent, "messageId and buyerUid are required")
	case observability.OutcomeFailed:
		fail(c, http.StatusInternalServerError, ErrCodeProcessFailed, "event processing failed")
	default:
		ok(c, http.StatusOK, PushResponse{Status: "success", Outcome: outcome})
	}
}
