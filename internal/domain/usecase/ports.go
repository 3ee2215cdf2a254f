package usecase

import (
	"context"
	"time"

	"mediaflow/internal/domain/entity"
	"mediaflow/internal/provider"
)

// JobRepository is the relational store for job rows.
type JobRepository interface {
	CreateJob(ctx context.Context, job *entity.ProcessingJob) error
	SaveJob(ctx context.Context, job *entity.ProcessingJob) error
	GetJob(ctx context.Context, jobID string) (*entity.ProcessingJob, error)
}

// LedgerRepository persists cost records and quota rows. DeductQuota
// must clamp at zero atomically at the storage layer.
type LedgerRepository interface {
	GetQuota(ctx context.Context, userID string) (*entity.UserQuota, error)
	DeductQuota(ctx context.Context, userID string, amount float64) error
	CreateCostRecord(ctx context.Context, record *entity.CostRecord) error
}

// BlobStore holds uploaded media and result artifacts.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// StatusCache mirrors job status for the hot read path.
type StatusCache interface {
	SetStatus(ctx context.Context, jobID, status string, progress int) error
	GetStatus(ctx context.Context, jobID string) (string, int, error)
}

// Notifier fans job events out to live subscribers, webhooks, and the
// broker topic. Fire-and-forget.
type Notifier interface {
	Publish(ctx context.Context, jobID, webhookURL string, event entity.JobEvent)
}

// Transcriber resolves one media reference to normalized segments,
// reporting which provider produced them.
type Transcriber interface {
	Transcribe(ctx context.Context, req provider.Request, preferred string, onProgress func(provider string)) ([]entity.TranscriptionSegment, string, error)
}

// AnalyticsSource is the external collaborator producing viewing
// statistics. Its absence or failure never fails a job.
type AnalyticsSource interface {
	Collect(ctx context.Context, jobID string, durationSeconds float64) (*entity.VideoAnalytics, error)
}
