package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"mediaflow/internal/domain/entity"
)

// KeepProgress passed as the progress argument leaves the recorded
// value untouched (used on failure paths).
const KeepProgress = -1

// StateMachine owns every mutation of a job row. Each call persists
// the transition before any notification is emitted: the row is the
// durability boundary, notification is best-effort. Exactly one
// goroutine advances a given job, so transitions are strictly ordered.
type StateMachine struct {
	jobs     JobRepository
	cache    StatusCache
	notifier Notifier
}

func NewStateMachine(jobs JobRepository, cache StatusCache, notifier Notifier) *StateMachine {
	return &StateMachine{jobs: jobs, cache: cache, notifier: notifier}
}

// Advance applies one transition: new status, progress, and per-stage
// sub-status updates. Status moves only forward
// (queued → processing → completed|failed), terminal states are
// entered exactly once, and progress never decreases. A failed status
// requires a non-empty error message. Any apply funcs run against the
// freshly loaded row before it is saved, so result metadata recorded
// during a transition lands in the same write.
func (m *StateMachine) Advance(ctx context.Context, jobID string, status entity.JobStatus, progress int, stages map[entity.Stage]entity.StageStatus, errMsg string, apply ...func(*entity.ProcessingJob)) (*entity.ProcessingJob, error) {
	job, err := m.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is already %s", ErrTerminalState, jobID, job.Status)
	}
	if !validTransition(job.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, status)
	}
	if progress != KeepProgress && progress < job.Progress {
		return nil, fmt.Errorf("%w: %d -> %d", ErrProgressRegression, job.Progress, progress)
	}
	if status == entity.StatusFailed && errMsg == "" {
		return nil, fmt.Errorf("failed status requires an error message")
	}

	job.Status = status
	if progress != KeepProgress {
		job.Progress = progress
	}
	for stage, s := range stages {
		job.SetStage(stage, s)
	}
	if errMsg != "" {
		job.Error = errMsg
	}
	for _, fn := range apply {
		fn(job)
	}
	if status.IsTerminal() {
		now := time.Now()
		job.CompletedAt = &now
	}

	if err := m.jobs.SaveJob(ctx, job); err != nil {
		// Do not advance past a transition that failed to persist;
		// subscribers must never see progress with no durable backing.
		return nil, fmt.Errorf("persist transition for job %s: %w", jobID, err)
	}

	if m.cache != nil {
		if err := m.cache.SetStatus(ctx, jobID, string(job.Status), job.Progress); err != nil {
			log.Printf("status cache update failed for job %s: %v", jobID, err)
		}
	}

	m.notifier.Publish(ctx, jobID, job.WebhookURL, entity.JobEvent{
		Type:      entity.EventStatus,
		Status:    job.Status,
		Progress:  job.Progress,
		Message:   job.Error,
		Timestamp: time.Now().UTC(),
	})

	return job, nil
}

// validTransition enforces the forward-only job state machine.
func validTransition(from, to entity.JobStatus) bool {
	switch from {
	case entity.StatusQueued:
		return to == entity.StatusProcessing || to == entity.StatusFailed
	case entity.StatusProcessing:
		return to == entity.StatusProcessing || to == entity.StatusCompleted || to == entity.StatusFailed
	default:
		return false
	}
}
