package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/elgris/sqrl"
)

const flushTable = "broker.flush_records"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) RecordFlush(ctx context.Context, rec FlushRecord) error {
	query, args, err := sq.Insert(flushTable).
		Columns("id", "exchange", "message_count", "duration_ms", "flushed_at").
		Values(rec.ID, rec.Exchange, rec.MessageCount, rec.DurationMs, rec.FlushedAt).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert flush record: %w", err)
	}
	return nil
}

// ListFlushes returns one page of records, newest first, and the total count.
// An empty exchange matches every exchange.
func (r *Repository) ListFlushes(ctx context.Context, exchange string, limit, offset int) ([]FlushRecord, int, error) {
	countQ := sq.Select("COUNT(*)").From(flushTable)
	listQ := sq.Select("id", "exchange", "message_count", "duration_ms", "flushed_at").
		From(flushTable).
		OrderBy("flushed_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))
	if exchange != "" {
		countQ = countQ.Where(sq.Eq{"exchange": exchange})
		listQ = listQ.Where(sq.Eq{"exchange": exchange})
	}

	query, args, err := countQ.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count flush records: %w", err)
	}

	query, args, err = listQ.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query flush records: %w", err)
	}
	defer rows.Close()

	records := []FlushRecord{}
	for rows.Next() {
		var rec FlushRecord
		if err := rows.Scan(&rec.ID, &rec.Exchange, &rec.MessageCount, &rec.DurationMs, &rec.FlushedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan flush record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating flush records: %w", err)
	}

	return records, total, nil
}

func (r *Repository) CountFlushesBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query, args, err := sq.Select("COUNT(*)").
		From(flushTable).
		Where("flushed_at < ?", cutoff).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count expired flush records: %w", err)
	}
	return count, nil
}

func (r *Repository) DeleteFlushesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := sq.Delete(flushTable).
		Where("flushed_at < ?", cutoff).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired flush records: %w", err)
	}
	return res.RowsAffected()
}
