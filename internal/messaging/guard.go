package messaging

import (
	"context"
	"sync"
)

// BatchGuard serializes every mutation of a service's publish batch.
// A service owns exactly one guard for its whole lifetime.
type BatchGuard struct {
	mu  sync.Mutex
	svc *Service
}

// Do runs fn while holding the guard. Append, reset and flush sequences run
// inside a single Do are never interleaved with other mutations.
func (g *BatchGuard) Do(fn func(*LockedBatch) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.svc.ready("publish batch"); err != nil {
		return err
	}
	lb := &LockedBatch{svc: g.svc}
	defer func() { lb.svc = nil }()
	return fn(lb)
}

// LockedBatch is the view of the batch available inside BatchGuard.Do.
// It must not be retained after fn returns.
type LockedBatch struct {
	svc *Service
}

// Batch returns the current batch.
func (lb *LockedBatch) Batch() *PublishBatch {
	return lb.svc.batch.Load()
}

// Len returns the number of pending messages.
func (lb *LockedBatch) Len() int {
	return lb.Batch().Len()
}

// Add appends a message and returns the new pending count.
func (lb *LockedBatch) Add(msg PendingMessage) int {
	return lb.Batch().add(msg)
}

// Reset replaces the batch with an empty one and returns how many messages
// were discarded.
func (lb *LockedBatch) Reset() int {
	old := lb.svc.batch.Swap(newPublishBatch(lb.svc.raw, lb.svc.cfg.PublisherConfirms))
	if old == nil {
		return 0
	}
	return old.Len()
}

// Drop removes the first n messages and keeps the rest pending.
func (lb *LockedBatch) Drop(n int) {
	if n <= 0 {
		return
	}
	msgs := lb.Batch().Messages()
	if n >= len(msgs) {
		lb.Reset()
		return
	}
	next := newPublishBatch(lb.svc.raw, lb.svc.cfg.PublisherConfirms)
	next.messages = append(next.messages, msgs[n:]...)
	lb.svc.batch.Store(next)
}

// Publish sends the pending messages without resetting the batch.
func (lb *LockedBatch) Publish(ctx context.Context) (int, error) {
	return lb.Batch().publish(ctx)
}
