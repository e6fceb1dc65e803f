package publish

import "context"

// ServiceInterface defines the batch operations exposed over HTTP
type ServiceInterface interface {
	Publish(ctx context.Context, req PublishMessageRequest) (*BatchStatus, error)
	Status(ctx context.Context) (*BatchStatus, error)
	Flush(ctx context.Context) (*FlushSummary, error)
	Reset(ctx context.Context) (int, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
