package messaging

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// PendingMessage is one outbound message waiting in a batch.
type PendingMessage struct {
	Exchange   string
	RoutingKey string
	Mandatory  bool
	Publishing amqp.Publishing
}

// PublishBatch accumulates messages until it is flushed or reset.
// Mutation goes through the service's BatchGuard; the read methods are safe
// to call from any goroutine.
type PublishBatch struct {
	ch       RawChannel
	confirms bool

	mu       sync.RWMutex
	messages []PendingMessage
}

func newPublishBatch(ch RawChannel, confirms bool) *PublishBatch {
	return &PublishBatch{
		ch:       ch,
		confirms: confirms,
		messages: make([]PendingMessage, 0),
	}
}

// Channel returns the channel the batch is flushed through.
func (b *PublishBatch) Channel() RawChannel {
	return b.ch
}

// Len returns the number of pending messages.
func (b *PublishBatch) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.messages)
}

// Messages returns a copy of the pending messages in append order.
func (b *PublishBatch) Messages() []PendingMessage {
	b.mu.RLock()
	defer b.mu.RUnlock()

	msgs := make([]PendingMessage, len(b.messages))
	copy(msgs, b.messages)
	return msgs
}

func (b *PublishBatch) add(msg PendingMessage) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg)
	return len(b.messages)
}

// publish sends every pending message in order and returns how many were
// accepted. With confirms enabled it waits for the broker to ack all of them.
func (b *PublishBatch) publish(ctx context.Context) (int, error) {
	msgs := b.Messages()

	if !b.confirms {
		for i, m := range msgs {
			err := b.ch.PublishWithContext(ctx, m.Exchange, m.RoutingKey, m.Mandatory, false, m.Publishing)
			if err != nil {
				return i, fmt.Errorf("failed to publish message %d of %d to %s: %w", i+1, len(msgs), m.RoutingKey, err)
			}
		}
		return len(msgs), nil
	}

	pending := make([]*amqp.DeferredConfirmation, 0, len(msgs))
	for i, m := range msgs {
		dc, err := b.ch.PublishWithDeferredConfirmWithContext(ctx, m.Exchange, m.RoutingKey, m.Mandatory, false, m.Publishing)
		if err != nil {
			return i, fmt.Errorf("failed to publish message %d of %d to %s: %w", i+1, len(msgs), m.RoutingKey, err)
		}
		pending = append(pending, dc)
	}

	for i, dc := range pending {
		// nil when the channel is not in confirm mode
		if dc == nil {
			continue
		}
		acked, err := dc.WaitContext(ctx)
		if err != nil {
			return i, fmt.Errorf("failed waiting for confirmation of message %d: %w", i+1, err)
		}
		if !acked {
			return i, fmt.Errorf("%w: message %d of %d", ErrNacked, i+1, len(msgs))
		}
	}
	return len(msgs), nil
}
