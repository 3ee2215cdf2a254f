package usecase

import (
	"context"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/google/uuid"

	"mediaflow/internal/domain/entity"
	"mediaflow/internal/provider"
	"mediaflow/pkg/utils"
)

const (
	mediaURLExpiry  = time.Hour
	resultURLExpiry = 24 * time.Hour
	pipelineTimeout = 30 * time.Minute

	progressTranscribed = 40
	progressChapters    = 60
	progressAnalytics   = 80
	progressDone        = 100
)

// SubmitRequest carries one media analysis submission.
type SubmitRequest struct {
	UserID            string
	ProjectID         string
	FileName          string
	Media             []byte
	Capabilities      entity.Capabilities
	PreferredProvider string
	Language          string
	WebhookURL        string
}

// Orchestrator is the public entry point: it validates a request,
// reserves quota, persists the job, and spawns the end-to-end
// pipeline. Each job runs as one independent goroutine; stages within
// a job are strictly sequential.
type Orchestrator struct {
	jobs       JobRepository
	ledger     *Ledger
	blobs      BlobStore
	cache      StatusCache
	notifier   Notifier
	transcribe Transcriber
	chapters   *ChapterGenerator
	analytics  AnalyticsSource
	state      *StateMachine
}

func NewOrchestrator(jobs JobRepository, ledger *Ledger, blobs BlobStore, cache StatusCache, notifier Notifier, transcriber Transcriber, analytics AnalyticsSource) *Orchestrator {
	return &Orchestrator{
		jobs:       jobs,
		ledger:     ledger,
		blobs:      blobs,
		cache:      cache,
		notifier:   notifier,
		transcribe: transcriber,
		chapters:   NewChapterGenerator(),
		analytics:  analytics,
		state:      NewStateMachine(jobs, cache, notifier),
	}
}

// Submit validates the request, checks quota against a conservative
// estimate, persists the job in queued state, and starts the pipeline
// in the background. Returns the job ID immediately.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if err := validate(req); err != nil {
		return "", err
	}

	estimate := o.ledger.Estimate(req.Capabilities, int64(len(req.Media)))
	if err := o.ledger.CheckQuota(ctx, req.UserID, estimate); err != nil {
		return "", err
	}

	jobID := uuid.New().String()
	mediaKey := path.Join("jobs", jobID, "source", req.FileName)

	if err := o.blobs.Put(ctx, mediaKey, req.Media, "application/octet-stream"); err != nil {
		return "", fmt.Errorf("store media for job %s: %w", jobID, err)
	}

	job := &entity.ProcessingJob{
		JobID:     jobID,
		UserID:    req.UserID,
		ProjectID: req.ProjectID,
		MediaKey:  mediaKey,

		Transcription: req.Capabilities.Transcription,
		Sentiment:     req.Capabilities.Sentiment,
		Chapters:      req.Capabilities.Chapters,
		Diarization:   req.Capabilities.Diarization,
		Keywords:      req.Capabilities.Keywords,
		Entities:      req.Capabilities.Entities,
		Analytics:     req.Capabilities.Analytics,

		PreferredProvider: req.PreferredProvider,
		Language:          req.Language,
		WebhookURL:        req.WebhookURL,

		Status:             entity.StatusQueued,
		Progress:           0,
		TranscriptionStage: entity.StagePending,
		SentimentStage:     entity.StagePending,
		ChaptersStage:      entity.StagePending,
		AnalyticsStage:     entity.StagePending,

		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := o.jobs.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("persist job: %w", err)
	}
	if o.cache != nil {
		if err := o.cache.SetStatus(ctx, jobID, string(job.Status), 0); err != nil {
			log.Printf("status cache update failed for job %s: %v", jobID, err)
		}
	}

	go o.runPipeline(job)

	return jobID, nil
}

func validate(req SubmitRequest) error {
	if req.UserID == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}
	if req.ProjectID == "" {
		return fmt.Errorf("%w: projectId is required", ErrInvalidRequest)
	}
	if len(req.Media) == 0 {
		return fmt.Errorf("%w: media payload is empty", ErrInvalidRequest)
	}
	if !req.Capabilities.Transcription {
		return fmt.Errorf("%w: transcription is the mandatory first stage", ErrInvalidRequest)
	}
	return nil
}

// runPipeline drives one job end to end. Transcription failure fails
// the job; chapter and analytics failures are recorded per stage but
// leave the job on track for completion, preserving partial results.
func (o *Orchestrator) runPipeline(job *entity.ProcessingJob) {
	ctx, cancel := context.WithTimeout(context.Background(), pipelineTimeout)
	defer cancel()

	jobID := job.JobID
	caps := job.CapabilitySet()

	stages := map[entity.Stage]entity.StageStatus{entity.StageTranscription: entity.StageProcessing}
	if caps.Sentiment {
		stages[entity.StageSentiment] = entity.StageProcessing
	}
	if _, err := o.state.Advance(ctx, jobID, entity.StatusProcessing, 10, stages, ""); err != nil {
		log.Printf("job %s: start transition failed: %v", jobID, err)
		return
	}

	segments, providerUsed, err := o.resolveTranscription(ctx, job)
	if err != nil {
		o.fail(ctx, job, entity.StageTranscription, err)
		return
	}

	stages = map[entity.Stage]entity.StageStatus{entity.StageTranscription: entity.StageCompleted}
	if caps.Sentiment {
		// A fallback provider may not perform sentiment analysis; the
		// stage only completes when the segments actually carry labels.
		if hasSentiment(segments) {
			stages[entity.StageSentiment] = entity.StageCompleted
		} else {
			stages[entity.StageSentiment] = entity.StageFailed
		}
	}
	if _, err := o.state.Advance(ctx, jobID, entity.StatusProcessing, progressTranscribed, stages, "", func(j *entity.ProcessingJob) {
		j.ProviderUsed = providerUsed
		j.SegmentCount = len(segments)
	}); err != nil {
		log.Printf("job %s: transcription transition failed: %v", jobID, err)
		return
	}
	o.notifier.Publish(ctx, jobID, job.WebhookURL, entity.JobEvent{
		Type:      entity.EventTranscriptionComplete,
		Status:    entity.StatusProcessing,
		Progress:  progressTranscribed,
		Stage:     entity.StageTranscription,
		Provider:  providerUsed,
		Timestamp: time.Now().UTC(),
	})

	result := &entity.JobResult{
		JobID:        jobID,
		ProviderUsed: providerUsed,
		Language:     job.Language,
		Segments:     segments,
		GeneratedAt:  time.Now().UTC(),
	}

	if caps.Chapters {
		result.Chapters = o.runChapterStage(ctx, job, segments)
	}
	if caps.Analytics {
		result.Analytics = o.runAnalyticsStage(ctx, job, segments)
	}

	o.storeResult(ctx, job, result)

	if _, err := o.ledger.Charge(ctx, job, providerUsed, "transcription", len(segments)); err != nil {
		// The work is done and durably recorded; a billing hiccup is
		// logged for reconciliation rather than failing the job.
		log.Printf("job %s: charge failed: %v", jobID, err)
	}

	if _, err := o.state.Advance(ctx, jobID, entity.StatusCompleted, progressDone, nil, ""); err != nil {
		log.Printf("job %s: completion transition failed: %v", jobID, err)
		return
	}
	o.notifier.Publish(ctx, jobID, job.WebhookURL, entity.JobEvent{
		Type:      entity.EventProcessingComplete,
		Status:    entity.StatusCompleted,
		Progress:  progressDone,
		Provider:  providerUsed,
		Timestamp: time.Now().UTC(),
	})
}

// resolveTranscription signs a media URL and drives the provider
// fallback chain, surfacing poll liveness as progress events.
func (o *Orchestrator) resolveTranscription(ctx context.Context, job *entity.ProcessingJob) ([]entity.TranscriptionSegment, string, error) {
	mediaURL, err := o.blobs.SignedURL(ctx, job.MediaKey, mediaURLExpiry)
	if err != nil {
		return nil, "", fmt.Errorf("sign media url: %w", err)
	}

	req := provider.Request{
		MediaURL:     mediaURL,
		Language:     job.Language,
		Capabilities: job.CapabilitySet(),
	}

	onProgress := func(providerName string) {
		o.notifier.Publish(ctx, job.JobID, job.WebhookURL, entity.JobEvent{
			Type:      entity.EventStatus,
			Status:    entity.StatusProcessing,
			Progress:  10,
			Stage:     entity.StageTranscription,
			Provider:  providerName,
			Message:   "transcription in progress",
			Timestamp: time.Now().UTC(),
		})
	}

	return o.transcribe.Transcribe(ctx, req, job.PreferredProvider, onProgress)
}

// runChapterStage is best-effort: a failure marks the stage failed and
// the job continues with its transcription intact.
func (o *Orchestrator) runChapterStage(ctx context.Context, job *entity.ProcessingJob, segments []entity.TranscriptionSegment) []entity.VideoChapter {
	jobID := job.JobID

	if _, err := o.state.Advance(ctx, jobID, entity.StatusProcessing, progressTranscribed, map[entity.Stage]entity.StageStatus{entity.StageChapters: entity.StageProcessing}, ""); err != nil {
		log.Printf("job %s: chapter stage transition failed: %v", jobID, err)
		return nil
	}

	chapters := o.chapters.Generate(segments)

	stageStatus := entity.StageCompleted
	if len(chapters) == 0 {
		stageStatus = entity.StageFailed
	}
	if _, err := o.state.Advance(ctx, jobID, entity.StatusProcessing, progressChapters, map[entity.Stage]entity.StageStatus{entity.StageChapters: stageStatus}, ""); err != nil {
		log.Printf("job %s: chapter stage transition failed: %v", jobID, err)
		return chapters
	}

	if stageStatus == entity.StageCompleted {
		o.notifier.Publish(ctx, jobID, job.WebhookURL, entity.JobEvent{
			Type:      entity.EventChaptersComplete,
			Status:    entity.StatusProcessing,
			Progress:  progressChapters,
			Stage:     entity.StageChapters,
			Timestamp: time.Now().UTC(),
		})
	}
	return chapters
}

// runAnalyticsStage delegates to the external analytics collaborator.
// Best-effort like chapters.
func (o *Orchestrator) runAnalyticsStage(ctx context.Context, job *entity.ProcessingJob, segments []entity.TranscriptionSegment) *entity.VideoAnalytics {
	jobID := job.JobID

	if _, err := o.state.Advance(ctx, jobID, entity.StatusProcessing, progressChapters, map[entity.Stage]entity.StageStatus{entity.StageAnalytics: entity.StageProcessing}, ""); err != nil {
		log.Printf("job %s: analytics stage transition failed: %v", jobID, err)
		return nil
	}

	var analytics *entity.VideoAnalytics
	var err error
	if o.analytics != nil {
		duration := 0.0
		if len(segments) > 0 {
			duration = segments[len(segments)-1].End
		}
		analytics, err = o.analytics.Collect(ctx, jobID, duration)
	} else {
		err = fmt.Errorf("no analytics source configured")
	}

	stageStatus := entity.StageCompleted
	if err != nil {
		log.Printf("job %s: analytics collection failed: %v", jobID, err)
		stageStatus = entity.StageFailed
		analytics = nil
	}

	if _, advErr := o.state.Advance(ctx, jobID, entity.StatusProcessing, progressAnalytics, map[entity.Stage]entity.StageStatus{entity.StageAnalytics: stageStatus}, ""); advErr != nil {
		log.Printf("job %s: analytics stage transition failed: %v", jobID, advErr)
		return analytics
	}

	if stageStatus == entity.StageCompleted {
		o.notifier.Publish(ctx, jobID, job.WebhookURL, entity.JobEvent{
			Type:      entity.EventAnalyticsUpdate,
			Status:    entity.StatusProcessing,
			Progress:  progressAnalytics,
			Stage:     entity.StageAnalytics,
			Timestamp: time.Now().UTC(),
		})
	}
	return analytics
}

// storeResult writes the result artifact next to the source media.
// A storage failure is logged; the job still completes because the
// segments are embedded in the notification path and retrievable via
// reprocessing.
func (o *Orchestrator) storeResult(ctx context.Context, job *entity.ProcessingJob, result *entity.JobResult) {
	body, err := utils.ToRawMessage(result)
	if err != nil {
		log.Printf("job %s: marshal result: %v", job.JobID, err)
		return
	}
	key := resultKey(job.JobID)
	if err := o.blobs.Put(ctx, key, body, "application/json"); err != nil {
		log.Printf("job %s: store result artifact: %v", job.JobID, err)
	}
}

// fail moves the job to its terminal failed state with the stage named
// in the error message.
func (o *Orchestrator) fail(ctx context.Context, job *entity.ProcessingJob, stage entity.Stage, cause error) {
	jobID := job.JobID
	msg := fmt.Sprintf("%s: %v", stage, cause)

	if _, err := o.state.Advance(ctx, jobID, entity.StatusFailed, KeepProgress, map[entity.Stage]entity.StageStatus{stage: entity.StageFailed}, msg); err != nil {
		log.Printf("job %s: failure transition failed: %v", jobID, err)
		return
	}
	o.notifier.Publish(ctx, jobID, job.WebhookURL, entity.JobEvent{
		Type:      entity.EventProcessingError,
		Status:    entity.StatusFailed,
		Stage:     stage,
		Message:   msg,
		Timestamp: time.Now().UTC(),
	})
}

// GetJob returns the job document plus a signed result URL once the
// job has completed.
func (o *Orchestrator) GetJob(ctx context.Context, jobID string) (*entity.ProcessingJob, string, error) {
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, "", err
	}

	var resultURL string
	if job.Status == entity.StatusCompleted {
		resultURL, err = o.blobs.SignedURL(ctx, resultKey(jobID), resultURLExpiry)
		if err != nil {
			log.Printf("job %s: sign result url: %v", jobID, err)
			resultURL = ""
		}
	}
	return job, resultURL, nil
}

// GetStatus serves the hot status path from the cache, falling back to
// the job row.
func (o *Orchestrator) GetStatus(ctx context.Context, jobID string) (string, int, error) {
	if o.cache != nil {
		if status, progress, err := o.cache.GetStatus(ctx, jobID); err == nil {
			return status, progress, nil
		}
	}
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return "", 0, err
	}
	return string(job.Status), job.Progress, nil
}

func resultKey(jobID string) string {
	return path.Join("jobs", jobID, "result.json")
}

func hasSentiment(segments []entity.TranscriptionSegment) bool {
	for _, s := range segments {
		if s.Sentiment != "" {
			return true
		}
	}
	return false
}
