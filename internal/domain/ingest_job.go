package domain

import "time"

// IngestJobStatus represents the status of a document ingest job
type IngestJobStatus string

const (
	IngestJobStatusPending    IngestJobStatus = "pending"
	IngestJobStatusProcessing IngestJobStatus = "processing"
	IngestJobStatusCompleted  IngestJobStatus = "completed"
	IngestJobStatusFailed     IngestJobStatus = "failed"
)

// IngestJob tracks the background chunk-and-embed work for one uploaded
// document. The raw extracted text rides on the job so the worker does not
// depend on object storage being configured.
type IngestJob struct {
	ID          string
	DocumentID  string
	RawText     string
	Status      IngestJobStatus
	Retries     int
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// IsValidIngestJobStatus checks if an IngestJobStatus is valid
func IsValidIngestJobStatus(s IngestJobStatus) bool {
	switch s {
	case IngestJobStatusPending, IngestJobStatusProcessing, IngestJobStatusCompleted, IngestJobStatusFailed:
		return true
	}
	return false
}
