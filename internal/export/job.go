package export

import (
	"time"

	"github.com/google/uuid"

	"fluxproc/internal/exporter"
	"fluxproc/internal/procedure"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Job is one export of a procedure's result set.
type Job struct {
	// ID is a UUID v4 and names the stored object.
	ID        string
	Procedure string
	Params    []procedure.Param
	Format    exporter.Format

	Submitted time.Time
	Started   time.Time
	Finished  time.Time

	Status Status
	Err    error
	Stats  exporter.Stats

	// Key is the storage key of the document; Location is its URL.
	Key      string
	Location string
}

// NewJob returns a pending job. An empty format selects CSV.
func NewJob(proc string, params []procedure.Param, format exporter.Format) *Job {
	if format == "" {
		format = exporter.FormatCSV
	}
	return &Job{
		ID:        uuid.New().String(),
		Procedure: proc,
		Params:    params,
		Format:    format,
		Submitted: time.Now(),
		Status:    StatusPending,
	}
}
