// Package jobs contains the background worker and its task definitions.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypePDFSweep removes generated PDFs whose quote no longer exists.
	TaskTypePDFSweep = "pdf:sweep"
)

// PDFSweepPayload bounds a sweep run. MinAge protects files that are still
// being written by an in-flight generation.
type PDFSweepPayload struct {
	MinAge time.Duration `json:"min_age"`
}

// NewPDFSweepTask constructs a pdf:sweep task.
func NewPDFSweepTask(payload PDFSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePDFSweep, data), nil
}
