package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskActivityPrune is the task type for trimming old activity logs.
	TaskActivityPrune = "activity:prune"
)

// ActivityPrunePayload configures one prune run.
type ActivityPrunePayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewActivityPruneTask constructs an Asynq task.
func NewActivityPruneTask(payload ActivityPrunePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskActivityPrune, data), nil
}
