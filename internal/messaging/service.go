package messaging

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/rabbitmq-binding/messaging")

type serviceState int

const (
	stateNew serviceState = iota
	stateOpen
	stateClosed
)

// MetricsRecorder receives batch activity.
type MetricsRecorder interface {
	RecordBatchAppend(ctx context.Context, exchange string)
	RecordBatchReset(ctx context.Context, exchange string, discarded int)
	RecordBatchFlush(ctx context.Context, exchange string, size int, durationMs float64, success bool)
}

// FlushResult describes one successful flush.
type FlushResult struct {
	ID        string        `json:"id"`
	Exchange  string        `json:"exchange"`
	Messages  int           `json:"messages"`
	Duration  time.Duration `json:"duration"`
	FlushedAt time.Time     `json:"flushed_at"`
}

// FlushObserver is notified after every successful flush.
type FlushObserver interface {
	RecordFlush(ctx context.Context, result FlushResult) error
}

// Option configures a Service.
type Option func(*Service)

// WithDialer replaces the broker dialer.
func WithDialer(d Dialer) Option {
	return func(s *Service) { s.dial = d }
}

// WithMetrics records batch metrics.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithFlushObserver registers an observer for successful flushes.
func WithFlushObserver(o FlushObserver) Option {
	return func(s *Service) { s.observers = append(s.observers, o) }
}

// Service owns one broker connection, the single channel opened on it and
// the publish batch flushed through that channel.
type Service struct {
	cfg       Config
	dial      Dialer
	metrics   MetricsRecorder
	observers []FlushObserver

	mu    sync.RWMutex
	state serviceState
	conn  Connection
	raw   RawChannel
	model *Model

	batch atomic.Pointer[PublishBatch]
	guard *BatchGuard
}

// NewService creates an unopened service. Handles are unavailable until Open succeeds.
func NewService(cfg Config, opts ...Option) *Service {
	s := &Service{
		cfg:  cfg.withDefaults(),
		dial: DialAMQP,
	}
	s.guard = &BatchGuard{svc: s}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Open connects to the broker, opens the channel and installs an empty batch.
func (s *Service) Open(ctx context.Context) error {
	s.guard.mu.Lock()
	defer s.guard.mu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateOpen:
		return ErrAlreadyOpen
	case stateClosed:
		return ErrClosed
	}
	if s.cfg.URL == "" {
		return ErrMissingURL
	}

	log.Printf("Connecting to RabbitMQ at: %s", MaskURL(s.cfg.URL))

	conn, err := s.dial(ctx, s.cfg.URL, amqpConfig(s.cfg))
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := s.setupChannel(ch); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	s.conn = conn
	s.raw = ch
	s.model = newModel(ch, s.cfg.Exchange)
	s.batch.Store(newPublishBatch(ch, s.cfg.PublisherConfirms))
	s.state = stateOpen

	log.Printf("✓ Connected to RabbitMQ (exchange: %q, confirms: %t)", s.cfg.Exchange, s.cfg.PublisherConfirms)
	return nil
}

func (s *Service) setupChannel(ch RawChannel) error {
	if s.cfg.PublisherConfirms {
		if err := ch.Confirm(false); err != nil {
			return fmt.Errorf("failed to enable publisher confirms: %w", err)
		}
	}

	m := newModel(ch, s.cfg.Exchange)
	if s.cfg.DeclareExchange && s.cfg.Exchange != "" {
		if err := m.DeclareExchange(s.cfg.Exchange, s.cfg.ExchangeType); err != nil {
			return err
		}
	}
	if s.cfg.Prefetch > 0 {
		if err := m.SetPrefetch(s.cfg.Prefetch); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ready(accessor string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkState(accessor)
}

func (s *Service) checkState(accessor string) error {
	switch s.state {
	case stateNew:
		return uninitialized(accessor)
	case stateClosed:
		return fmt.Errorf("%w: %s requested after Close", ErrClosed, accessor)
	}
	return nil
}

// ChannelHandle returns the model for the open channel.
func (s *Service) ChannelHandle() (*Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkState("channel handle"); err != nil {
		return nil, err
	}
	return s.model, nil
}

// RawChannel returns the channel behind ChannelHandle.
func (s *Service) RawChannel() (RawChannel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkState("raw channel"); err != nil {
		return nil, err
	}
	return s.raw, nil
}

// PublishBatch returns the current batch. A reset replaces it, so hold on
// to the returned value only as a snapshot.
func (s *Service) PublishBatch() (*PublishBatch, error) {
	if err := s.ready("publish batch"); err != nil {
		return nil, err
	}
	return s.batch.Load(), nil
}

// PublishBatchGuard returns the guard that serializes batch mutation.
func (s *Service) PublishBatchGuard() *BatchGuard {
	return s.guard
}

// ResetPublishBatch discards every pending message.
func (s *Service) ResetPublishBatch() error {
	_, err := s.DiscardPublishBatch()
	return err
}

// DiscardPublishBatch resets the batch and reports how many messages were dropped.
func (s *Service) DiscardPublishBatch() (int, error) {
	var discarded int
	err := s.guard.Do(func(lb *LockedBatch) error {
		discarded = lb.Reset()
		return nil
	})
	if err != nil {
		return 0, err
	}

	if discarded > 0 {
		log.Printf("Discarded %d pending messages for exchange %q", discarded, s.cfg.Exchange)
	}
	if s.metrics != nil {
		s.metrics.RecordBatchReset(context.Background(), s.cfg.Exchange, discarded)
	}
	return discarded, nil
}

// AddToBatch appends a message and returns the pending count.
func (s *Service) AddToBatch(msg PendingMessage) (int, error) {
	var n int
	err := s.guard.Do(func(lb *LockedBatch) error {
		n = lb.Add(msg)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.RecordBatchAppend(context.Background(), s.cfg.Exchange)
	}
	return n, nil
}

// FlushPublishBatch publishes every pending message and then resets the
// batch. When publishing fails only the messages the broker did not accept
// stay pending, so a retry does not send the rest twice.
func (s *Service) FlushPublishBatch(ctx context.Context) (FlushResult, error) {
	ctx, span := tracer.Start(ctx, "messaging.FlushPublishBatch",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination.name", s.cfg.Exchange),
		),
	)
	defer span.End()

	start := time.Now()
	var result FlushResult
	err := s.guard.Do(func(lb *LockedBatch) error {
		size := lb.Len()
		span.SetAttributes(attribute.Int("messaging.batch.message_count", size))

		sent, err := lb.Publish(ctx)
		if err != nil {
			// the broker already has the first sent messages
			lb.Drop(sent)
			span.SetAttributes(attribute.Int("messaging.batch.sent_count", sent))
			if s.metrics != nil {
				s.metrics.RecordBatchFlush(ctx, s.cfg.Exchange, size, msSince(start), false)
			}
			return err
		}
		lb.Reset()

		result = FlushResult{
			ID:        uuid.NewString(),
			Exchange:  s.cfg.Exchange,
			Messages:  size,
			Duration:  time.Since(start),
			FlushedAt: time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "flush failed")
		return FlushResult{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordBatchFlush(ctx, s.cfg.Exchange, result.Messages, msSince(start), true)
	}
	if result.Messages == 0 {
		span.SetStatus(codes.Ok, "empty batch")
		return result, nil
	}

	log.Printf("Flushed %d messages to exchange %q", result.Messages, s.cfg.Exchange)
	for _, o := range s.observers {
		if err := o.RecordFlush(ctx, result); err != nil {
			log.Printf("[ERROR] Failed to record flush %s: %v", result.ID, err)
		}
	}
	span.SetStatus(codes.Ok, "flushed")
	return result, nil
}

// Close closes the channel and then the connection. The service cannot be
// reopened.
func (s *Service) Close() error {
	s.guard.mu.Lock()
	defer s.guard.mu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateOpen {
		s.state = stateClosed
		return nil
	}
	s.state = stateClosed

	if b := s.batch.Load(); b != nil && b.Len() > 0 {
		log.Printf("Warning: closing RabbitMQ service with %d unflushed messages", b.Len())
	}

	if err := s.raw.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		log.Printf("Error closing RabbitMQ channel: %v", err)
	}
	if err := s.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("failed to close RabbitMQ connection: %w", err)
	}
	log.Println("✓ RabbitMQ connection closed")
	return nil
}

// IsOpen reports whether the service is open and its channel still alive.
func (s *Service) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == stateOpen && !s.raw.IsClosed()
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
