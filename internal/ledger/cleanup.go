package ledger

import (
	"context"
	"fmt"
	"log"
	"time"
)

// DefaultRetention keeps flush history for 90 days
const DefaultRetention = 90 * 24 * time.Hour

// CleanupService removes flush records older than the retention period
type CleanupService struct {
	repo      RepositoryInterface
	retention time.Duration
	now       func() time.Time
}

// NewCleanupService creates a cleanup service; a non-positive retention uses DefaultRetention
func NewCleanupService(repo RepositoryInterface, retention time.Duration) *CleanupService {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &CleanupService{repo: repo, retention: retention, now: time.Now}
}

// Cutoff returns the instant before which records expire
func (s *CleanupService) Cutoff() time.Time {
	return s.now().Add(-s.retention)
}

// GetExpiredFlushesCount returns how many records are eligible for deletion
func (s *CleanupService) GetExpiredFlushesCount(ctx context.Context) (int, error) {
	count, err := s.repo.CountFlushesBefore(ctx, s.Cutoff())
	if err != nil {
		return 0, fmt.Errorf("failed to count expired flushes: %w", err)
	}
	return count, nil
}

// CleanupExpiredFlushes deletes every record older than the retention period
func (s *CleanupService) CleanupExpiredFlushes(ctx context.Context) (int64, error) {
	cutoff := s.Cutoff()
	log.Printf("Starting cleanup of flush records before %s", cutoff.Format(time.RFC3339))

	deleted, err := s.repo.DeleteFlushesBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up flushes: %w", err)
	}

	log.Printf("✓ Deleted %d expired flush records", deleted)
	return deleted, nil
}
