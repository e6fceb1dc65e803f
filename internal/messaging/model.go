package messaging

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Model is the channel handle handed to publishers. It wraps the raw channel
// with the declarations a binding needs and never owns a second channel.
type Model struct {
	ch       RawChannel
	exchange string
}

func newModel(ch RawChannel, exchange string) *Model {
	return &Model{ch: ch, exchange: exchange}
}

// Raw returns the channel this model publishes through.
func (m *Model) Raw() RawChannel {
	return m.ch
}

// Exchange returns the exchange bound to this model.
func (m *Model) Exchange() string {
	return m.exchange
}

// DeclareExchange declares a durable exchange of the given kind.
func (m *Model) DeclareExchange(name, kind string) error {
	err := m.ch.ExchangeDeclare(
		name,  // name
		kind,  // type
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", name, err)
	}
	return nil
}

// DeclareQueue declares a non-exclusive queue.
func (m *Model) DeclareQueue(name string, durable bool) (amqp.Queue, error) {
	q, err := m.ch.QueueDeclare(
		name,    // name
		durable, // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	return q, nil
}

// DeclareQueuePassive checks that a queue exists without creating it.
// A missing queue closes the channel on the broker side.
func (m *Model) DeclareQueuePassive(name string) (amqp.Queue, error) {
	q, err := m.ch.QueueDeclarePassive(name, false, false, false, false, nil)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("queue %s does not exist: %w", name, err)
	}
	return q, nil
}

// BindQueue binds a queue to the model's exchange.
func (m *Model) BindQueue(queue, routingKey string) error {
	if m.exchange == "" {
		return fmt.Errorf("cannot bind queue %s to the default exchange", queue)
	}
	if err := m.ch.QueueBind(queue, routingKey, m.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s to %s: %w", queue, m.exchange, err)
	}
	return nil
}

// SetPrefetch limits unacknowledged deliveries on the channel.
func (m *Model) SetPrefetch(count int) error {
	if err := m.ch.Qos(count, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch count %d: %w", count, err)
	}
	return nil
}

// Publish sends a single message immediately, bypassing the batch.
func (m *Model) Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	err := m.ch.PublishWithContext(
		ctx,
		m.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", routingKey, err)
	}
	return nil
}
