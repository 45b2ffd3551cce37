package activity

import (
	"context"
	"log/slog"
	"time"
)

// Service records request activity. Recording never propagates an error:
// losing a log line must not fail the request it describes.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record persists one entry, logging any storage failure.
func (s *Service) Record(ctx context.Context, e Entry) {
	if e.RequestTime.IsZero() {
		e.RequestTime = time.Now()
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		s.logger.Warn("record activity", slog.String("path", e.Path), slog.Any("error", err))
	}
}

// Prune removes entries older than retention and reports how many were
// dropped.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.DeleteOlderThan(ctx, time.Now().Add(-retention))
}
