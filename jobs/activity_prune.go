package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gatehouse-api/gatehouse/internal/activity"
	jobmetrics "github.com/gatehouse-api/gatehouse/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const defaultRetentionDays = 90

// ActivityPruneJob trims request log entries past the retention window.
type ActivityPruneJob struct {
	Activity *activity.Service
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewActivityPruneJob wires dependencies for the prune handler.
func NewActivityPruneJob(activitySvc *activity.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *ActivityPruneJob {
	return &ActivityPruneJob{Activity: activitySvc, Logger: logger, Metrics: metrics}
}

// Handle processes activity prune tasks.
func (j *ActivityPruneJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Activity == nil {
		return errors.New("activity prune: handler not configured")
	}
	var payload ActivityPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RetentionDays <= 0 {
		payload.RetentionDays = defaultRetentionDays
	}

	tracker := j.metrics().Track(TaskActivityPrune)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	retention := time.Duration(payload.RetentionDays) * 24 * time.Hour
	deleted, err := j.Activity.Prune(ctx, retention)
	if err != nil {
		resultErr = err
		j.logger().Error("prune activity logs", slog.Any("error", err))
		return resultErr
	}
	j.logger().Info("pruned activity logs",
		slog.Int("retention_days", payload.RetentionDays),
		slog.Int64("deleted", deleted))
	return resultErr
}

func (j *ActivityPruneJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ActivityPruneJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
