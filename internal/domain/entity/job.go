package entity

import (
	"time"

	"gorm.io/gorm"
)

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether a status admits no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageProcessing StageStatus = "processing"
	StageCompleted  StageStatus = "completed"
	StageFailed     StageStatus = "failed"
)

// Stage names the pipeline phases tracked per job.
type Stage string

const (
	StageTranscription Stage = "transcription"
	StageSentiment     Stage = "sentiment"
	StageChapters      Stage = "chapters"
	StageAnalytics     Stage = "analytics"
)

// Capabilities is the requested analysis feature set for one job.
// Transcription is mandatory; everything else is optional.
type Capabilities struct {
	Transcription bool `json:"transcription"`
	Sentiment     bool `json:"sentiment"`
	Chapters      bool `json:"chapters"`
	Diarization   bool `json:"speakerDiarization"`
	Keywords      bool `json:"keywords"`
	Entities      bool `json:"entities"`
	Analytics     bool `json:"analytics"`
}

// ProcessingJob is one end-to-end media analysis request.
type ProcessingJob struct {
	JobID     string `gorm:"primaryKey;type:uuid" json:"jobId"`
	UserID    string `gorm:"not null;index" json:"userId"`
	ProjectID string `gorm:"not null" json:"projectId"`
	MediaKey  string `gorm:"not null" json:"mediaKey"`

	Transcription bool `json:"transcription"`
	Sentiment     bool `json:"sentiment"`
	Chapters      bool `json:"chapters"`
	Diarization   bool `json:"speakerDiarization"`
	Keywords      bool `json:"keywords"`
	Entities      bool `json:"entities"`
	Analytics     bool `json:"analytics"`

	PreferredProvider string `json:"preferredProvider,omitempty"`
	Language          string `json:"language,omitempty"`
	WebhookURL        string `json:"webhookUrl,omitempty"`

	Status   JobStatus `gorm:"not null;type:text" json:"status"`
	Progress int       `gorm:"not null;default:0" json:"progress"`

	TranscriptionStage StageStatus `gorm:"not null;type:text" json:"transcriptionStage"`
	SentimentStage     StageStatus `gorm:"not null;type:text" json:"sentimentStage"`
	ChaptersStage      StageStatus `gorm:"not null;type:text" json:"chaptersStage"`
	AnalyticsStage     StageStatus `gorm:"not null;type:text" json:"analyticsStage"`

	ProviderUsed string `json:"providerUsed,omitempty"`
	SegmentCount int    `json:"segmentCount,omitempty"`
	Error        string `json:"error,omitempty"`

	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// CapabilitySet collects the job's capability flags back into one value.
func (j *ProcessingJob) CapabilitySet() Capabilities {
	return Capabilities{
		Transcription: j.Transcription,
		Sentiment:     j.Sentiment,
		Chapters:      j.Chapters,
		Diarization:   j.Diarization,
		Keywords:      j.Keywords,
		Entities:      j.Entities,
		Analytics:     j.Analytics,
	}
}

// StageOf returns the recorded sub-status for one pipeline stage.
func (j *ProcessingJob) StageOf(stage Stage) StageStatus {
	switch stage {
	case StageTranscription:
		return j.TranscriptionStage
	case StageSentiment:
		return j.SentimentStage
	case StageChapters:
		return j.ChaptersStage
	case StageAnalytics:
		return j.AnalyticsStage
	}
	return ""
}

// SetStage records the sub-status for one pipeline stage.
func (j *ProcessingJob) SetStage(stage Stage, status StageStatus) {
	switch stage {
	case StageTranscription:
		j.TranscriptionStage = status
	case StageSentiment:
		j.SentimentStage = status
	case StageChapters:
		j.ChaptersStage = status
	case StageAnalytics:
		j.AnalyticsStage = status
	}
}
