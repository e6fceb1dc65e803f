package ledger

import (
	"time"

	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/pagination"
)

// FlushRecord is one stored flush of the publish batch
type FlushRecord struct {
	ID           string    `json:"id"`
	Exchange     string    `json:"exchange"`
	MessageCount int       `json:"message_count"`
	DurationMs   float64   `json:"duration_ms"`
	FlushedAt    time.Time `json:"flushed_at"`
}

// PaginatedFlushListResponse is a page of flush records
type PaginatedFlushListResponse struct {
	Success    bool            `json:"success"`
	Flushes    []FlushRecord   `json:"flushes"`
	Pagination pagination.Meta `json:"pagination"`
}
