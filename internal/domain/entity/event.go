package entity

import "time"

// EventType classifies notifications emitted during job execution.
// The same shapes are delivered to live subscribers, webhooks, and
// the broker topic.
type EventType string

const (
	EventStatus                EventType = "status"
	EventTranscriptionComplete EventType = "transcription_complete"
	EventChaptersComplete      EventType = "chapters_complete"
	EventAnalyticsUpdate       EventType = "analytics_update"
	EventProcessingComplete    EventType = "processing_complete"
	EventProcessingError       EventType = "processing_error"
)

// JobEvent is one notification about a job's state or progress.
type JobEvent struct {
	Type      EventType `json:"type"`
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status,omitempty"`
	Progress  int       `json:"progress,omitempty"`
	Stage     Stage     `json:"stage,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// JobResult is the artifact written to the blob store when a job
// finishes: everything the pipeline produced for the media.
type JobResult struct {
	JobID        string                 `json:"jobId"`
	ProviderUsed string                 `json:"providerUsed"`
	Language     string                 `json:"language,omitempty"`
	Segments     []TranscriptionSegment `json:"segments"`
	Chapters     []VideoChapter         `json:"chapters,omitempty"`
	Analytics    *VideoAnalytics        `json:"analytics,omitempty"`
	GeneratedAt  time.Time              `json:"generatedAt"`
}
