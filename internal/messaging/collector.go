package messaging

import (
	"context"
	"fmt"
	"log"
)

// BatchPublisher is the part of Service a Collector needs.
type BatchPublisher interface {
	AddToBatch(msg PendingMessage) (int, error)
	FlushPublishBatch(ctx context.Context) (FlushResult, error)
}

// Collector gathers the output of one producer into the service's batch and
// flushes it once BatchSize messages are pending.
type Collector struct {
	publisher  BatchPublisher
	exchange   string
	routingKey string
	batchSize  int
}

// NewCollector creates a collector publishing to the exchange and routing key of cfg.
func NewCollector(publisher BatchPublisher, cfg Config) *Collector {
	return &Collector{
		publisher:  publisher,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		batchSize:  cfg.BatchSize,
	}
}

// Add collects an item using the collector's routing key.
func (c *Collector) Add(ctx context.Context, item interface{}) error {
	return c.AddWithKey(ctx, c.routingKey, item)
}

// AddWithKey collects an item under an explicit routing key. An error means
// the item was not queued.
func (c *Collector) AddWithKey(ctx context.Context, routingKey string, item interface{}) error {
	pub, err := NewPublishing(item)
	if err != nil {
		return err
	}

	n, err := c.publisher.AddToBatch(PendingMessage{
		Exchange:   c.exchange,
		RoutingKey: routingKey,
		Publishing: pub,
	})
	if err != nil {
		return fmt.Errorf("failed to collect message for %s: %w", routingKey, err)
	}

	// The item is queued either way; a failed flush stays pending for the
	// next full batch or an explicit Flush.
	if c.batchSize > 0 && n >= c.batchSize {
		if _, err := c.publisher.FlushPublishBatch(ctx); err != nil {
			log.Printf("[WARN] Automatic flush of %d messages to %q failed: %v", n, c.exchange, err)
		}
	}
	return nil
}

// Flush publishes everything collected so far.
func (c *Collector) Flush(ctx context.Context) (FlushResult, error) {
	return c.publisher.FlushPublishBatch(ctx)
}
