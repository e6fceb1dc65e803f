package ledger

import (
	"context"
	"errors"
	"time"
)

type mockRepository struct {
	recordFunc      func(ctx context.Context, rec FlushRecord) error
	listFunc        func(ctx context.Context, exchange string, limit, offset int) ([]FlushRecord, int, error)
	deleteFunc      func(ctx context.Context, cutoff time.Time) (int64, error)
	countBeforeFunc func(ctx context.Context, cutoff time.Time) (int, error)
}

func (m *mockRepository) RecordFlush(ctx context.Context, rec FlushRecord) error {
	if m.recordFunc != nil {
		return m.recordFunc(ctx, rec)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) ListFlushes(ctx context.Context, exchange string, limit, offset int) ([]FlushRecord, int, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, exchange, limit, offset)
	}
	return nil, 0, errors.New("not implemented")
}

func (m *mockRepository) DeleteFlushesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, cutoff)
	}
	return 0, errors.New("not implemented")
}

func (m *mockRepository) CountFlushesBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if m.countBeforeFunc != nil {
		return m.countBeforeFunc(ctx, cutoff)
	}
	return 0, errors.New("not implemented")
}
