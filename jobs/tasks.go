package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportWarmup primes the report cache for one stored file set, or
	// for every stored set when the payload carries no id.
	TaskReportWarmup = "reports:warmup"
)

// ReportWarmupPayload selects the file set to warm.
type ReportWarmupPayload struct {
	FileSetID string `json:"fileSetId,omitempty"`
}

// NewReportWarmupTask constructs an Asynq task. An empty id warms every
// stored file set.
func NewReportWarmupTask(fileSetID string) (*asynq.Task, error) {
	data, err := json.Marshal(ReportWarmupPayload{FileSetID: fileSetID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, data), nil
}
