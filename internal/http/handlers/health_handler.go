// Health and debug handlers.
//
//   - GET /health     (liveness)
//   - GET /debug/kv   (key-value store reachability)
//   - GET /debug/db   (database reachability)
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const probeTimeout = 2 * time.Second

var errNoDB = errors.New("database not configured")

// ProbeResponse reports the state of one dependency.
type ProbeResponse struct {
	Status  string `json:"status" example:"ok"`
	Backend string `json:"backend,omitempty" example:"kv"`
}

// Health godoc
// @ID       health
// @Summary  Liveness probe
// @Tags     Health
// @Produce  json
// @Success  200  {object}  handlers.ProbeResponse
// @Router   /health [get]
func (h *Handlers) Health(c *gin.Context) {
	ok(c, http.StatusOK, ProbeResponse{Status: "ok"})
}

// DebugKV godoc
// @ID       debugKV
// @Summary  Ping the key-value store
// @Tags     Health
// @Produce  json
// @Success  200  {object}  handlers.ProbeResponse
// @Failure  503  {object}  handlers.ErrorResponse  "Store unreachable"
// @Router   /debug/kv [get]
func (h *Handlers) DebugKV(c *gin.Context) {
	h.probe(c, "kv", func(ctx context.Context) error {
		if h.kv == nil {
			return errors.New("kv store not configured")
		}
		return h.kv.Ping(ctx)
	})
}

// DebugDB godoc
// @ID       debugDB
// @Summary  Ping the database
// @Tags     Health
// @Produce  json
// @Success  200  {object}  handlers.ProbeResponse
// @Failure  503  {object}  handlers.ErrorResponse  "Database unreachable"
// @Router   /debug/db [get]
func (h *Handlers) DebugDB(c *gin.Context) {
	h.probe(c, "db", func(ctx context.Context) error {
		if h.db == nil {
			return errNoDB
		}
		sqlDB, err := h.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
}

func (h *Handlers) probe(c *gin.Context, backend string, ping func(context.Context) error) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()
	if err := ping(ctx); err != nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, backend+": "+err.Error())
		return
	}
	ok(c, http.StatusOK, ProbeResponse{Status: "ok", Backend: backend})
}
