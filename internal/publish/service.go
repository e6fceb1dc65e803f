package publish

import (
	"context"
	"fmt"

	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/messaging"
)

// maxRoutingKey is the AMQP short string limit
const maxRoutingKey = 255

// BatchProvider is the part of messaging.Service the API drives.
type BatchProvider interface {
	messaging.BatchPublisher
	PublishBatch() (*messaging.PublishBatch, error)
	DiscardPublishBatch() (int, error)
	Config() messaging.Config
}

type Service struct {
	provider  BatchProvider
	collector *messaging.Collector
	cfg       messaging.Config
}

func NewService(provider BatchProvider) *Service {
	cfg := provider.Config()
	return &Service{
		provider:  provider,
		collector: messaging.NewCollector(provider, cfg),
		cfg:       cfg,
	}
}

// Publish appends one message. A full batch is flushed by the collector.
func (s *Service) Publish(ctx context.Context, req PublishMessageRequest) (*BatchStatus, error) {
	if len(req.Payload) == 0 {
		return nil, ErrMissingPayload
	}
	key := req.RoutingKey
	if key == "" {
		key = s.cfg.RoutingKey
	}
	if key == "" {
		return nil, ErrMissingRoutingKey
	}
	if len(key) > maxRoutingKey {
		return nil, ErrRoutingKeyTooLong
	}

	pub, err := messaging.NewPublishing(req.Payload)
	if err != nil {
		return nil, err
	}
	if len(req.Headers) > 0 {
		pub.Headers = make(map[string]interface{}, len(req.Headers))
		for k, v := range req.Headers {
			pub.Headers[k] = v
		}
	}

	if err := s.collector.AddWithKey(ctx, key, pub); err != nil {
		return nil, err
	}
	return s.Status(ctx)
}

// Status reports the number of pending messages
func (s *Service) Status(ctx context.Context) (*BatchStatus, error) {
	batch, err := s.provider.PublishBatch()
	if err != nil {
		return nil, err
	}
	return &BatchStatus{Exchange: s.cfg.Exchange, Pending: batch.Len()}, nil
}

func (s *Service) Flush(ctx context.Context) (*FlushSummary, error) {
	res, err := s.collector.Flush(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to flush batch: %w", err)
	}
	return &FlushSummary{
		ID:         res.ID,
		Exchange:   res.Exchange,
		Messages:   res.Messages,
		DurationMs: float64(res.Duration.Microseconds()) / 1000,
	}, nil
}

// Reset discards the pending batch and returns the number of dropped messages
func (s *Service) Reset(ctx context.Context) (int, error) {
	return s.provider.DiscardPublishBatch()
}
