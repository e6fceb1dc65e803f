package ledger

import (
	"context"
	"time"
)

// RepositoryInterface defines the contract for flush record storage
type RepositoryInterface interface {
	RecordFlush(ctx context.Context, rec FlushRecord) error
	ListFlushes(ctx context.Context, exchange string, limit, offset int) ([]FlushRecord, int, error)
	DeleteFlushesBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountFlushesBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
