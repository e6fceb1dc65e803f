package ledger

import (
	"context"
	"fmt"

	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/messaging"
	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/pagination"
)

type Service struct {
	repo RepositoryInterface
}

func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// RecordFlush stores a successful flush. It satisfies messaging.FlushObserver.
func (s *Service) RecordFlush(ctx context.Context, result messaging.FlushResult) error {
	if result.ID == "" {
		return ErrMissingID
	}
	if result.Messages < 0 {
		return ErrInvalidCount
	}

	rec := FlushRecord{
		ID:           result.ID,
		Exchange:     result.Exchange,
		MessageCount: result.Messages,
		DurationMs:   float64(result.Duration.Microseconds()) / 1000,
		FlushedAt:    result.FlushedAt,
	}
	if err := s.repo.RecordFlush(ctx, rec); err != nil {
		return fmt.Errorf("failed to record flush: %w", err)
	}
	return nil
}

// ListFlushesWithPagination returns one page of flush history
func (s *Service) ListFlushesWithPagination(ctx context.Context, exchange string, params pagination.Params) (*PaginatedFlushListResponse, error) {
	if len(exchange) > 255 {
		return nil, ErrInvalidExchange
	}
	params.Validate()

	records, total, err := s.repo.ListFlushes(ctx, exchange, params.Limit, params.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list flushes: %w", err)
	}

	return &PaginatedFlushListResponse{
		Success:    true,
		Flushes:    records,
		Pagination: params.Meta(total),
	}, nil
}

var _ messaging.FlushObserver = (*Service)(nil)
