package ledger

import (
	"context"

	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/messaging"
	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/pagination"
)

// ServiceInterface defines the contract for flush history operations
type ServiceInterface interface {
	RecordFlush(ctx context.Context, result messaging.FlushResult) error
	ListFlushesWithPagination(ctx context.Context, exchange string, params pagination.Params) (*PaginatedFlushListResponse, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
