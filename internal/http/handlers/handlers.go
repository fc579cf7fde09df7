// Package handlers provides the HTTP handlers of the intake service.
//
// Handlers are transport-thin: they validate input, call the pipeline and
// catalog services, and translate results into HTTP responses.
package handlers

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-chat-intake/internal/domain"
	"github.com/tbourn/go-chat-intake/internal/services"
)

//
// Service contracts (context-aware)
//

// Intake runs one inbound event through the pipeline and reports the outcome
// label (processed, buffered, duplicate, filtered, invalid, failed).
type Intake interface {
	Ingest(ctx context.Context, ev domain.InboundEvent, source string) string
}

// TrackingService reads per-message tracking records.
type TrackingService interface {
	// Get returns the record for one platform message id.
	Get(ctx context.Context, messageID string) (*domain.ProcessTracking, error)
	// ListPage returns a page of records and the total count. A nil finished
	// lists every record.
	ListPage(ctx context.Context, finished *bool, page, pageSize int) ([]domain.ProcessTracking, int64, error)
}

// CatalogService answers stock questions by merchant code.
type CatalogService interface {
	Inventory(ctx context.Context, merchantCode string) (*domain.Product, error)
	CheckStock(ctx context.Context, codes []string) ([]services.StockStatus, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

//
// Handler wiring
//

// Handlers groups the push, tracking, inventory and health endpoints.
type Handlers struct {
	intake   Intake
	tracking TrackingService
	catalog  CatalogService
	kv       Pinger
	db       *gorm.DB
}

// New constructs a Handlers bound to the given services. db backs the
// tracking ETag pre-check and the database health probe; it may be nil.
func New(intake Intake, tracking TrackingService, catalog CatalogService, kv Pinger, db *gorm.DB) *Handlers {
	return &Handlers{intake: intake, tracking: tracking, catalog: catalog, kv: kv, db: db}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}
