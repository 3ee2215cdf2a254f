package usecase

import (
	"context"
	"fmt"
	"time"

	"mediaflow/internal/domain/entity"
)

// Cost model: a base rate per produced transcription segment plus
// additive per-segment surcharges for optional capabilities, and a
// flat fee for chapter generation.
const (
	BaseRatePerSegment      = 0.01
	SentimentPerSegment     = 0.002
	DiarizationPerSegment   = 0.002
	EntitiesPerSegment      = 0.003
	ChapterFlatFee          = 0.5
	estimateSegmentsPerMiB  = 8
	estimateSegmentsMinimum = 10
)

// Ledger computes operation cost, guards user quota, and records every
// billable operation. CheckQuota is advisory (a rough pre-flight
// estimate); Charge is the authoritative deduction once the real
// segment count is known.
type Ledger struct {
	repo LedgerRepository
}

func NewLedger(repo LedgerRepository) *Ledger {
	return &Ledger{repo: repo}
}

// Cost computes the price of one transcription run that produced the
// given number of segments.
func Cost(caps entity.Capabilities, segments int) float64 {
	perSegment := BaseRatePerSegment
	if caps.Sentiment {
		perSegment += SentimentPerSegment
	}
	if caps.Diarization {
		perSegment += DiarizationPerSegment
	}
	if caps.Entities {
		perSegment += EntitiesPerSegment
	}

	cost := perSegment * float64(segments)
	if caps.Chapters {
		cost += ChapterFlatFee
	}
	return cost
}

// Estimate predicts cost from the media size before any provider has
// run. Segment counts are unknown up front, so a size-proportional
// guess keeps the pre-flight check conservative without blocking
// affordable work.
func (l *Ledger) Estimate(caps entity.Capabilities, mediaBytes int64) float64 {
	segments := int(mediaBytes / (1 << 20) * estimateSegmentsPerMiB)
	if segments < estimateSegmentsMinimum {
		segments = estimateSegmentsMinimum
	}
	return Cost(caps, segments)
}

// CheckQuota rejects submissions whose estimate exceeds the user's
// remaining budget. Advisory only: the authoritative enforcement is
// the atomic deduction in Charge.
func (l *Ledger) CheckQuota(ctx context.Context, userID string, estimate float64) error {
	quota, err := l.repo.GetQuota(ctx, userID)
	if err != nil {
		return fmt.Errorf("load quota for %s: %w", userID, err)
	}
	if quota.Remaining < estimate {
		return fmt.Errorf("%w: estimated %.4f, remaining %.4f", ErrInsufficientQuota, estimate, quota.Remaining)
	}
	return nil
}

// Charge records the billable operation and deducts the actual cost,
// clamped at zero by the storage layer.
func (l *Ledger) Charge(ctx context.Context, job *entity.ProcessingJob, providerName, operation string, segments int) (float64, error) {
	cost := Cost(job.CapabilitySet(), segments)

	record := &entity.CostRecord{
		JobID:     job.JobID,
		UserID:    job.UserID,
		ProjectID: job.ProjectID,
		Provider:  providerName,
		Operation: operation,
		Amount:    cost,
		CreatedAt: time.Now(),
	}
	if err := l.repo.CreateCostRecord(ctx, record); err != nil {
		return 0, fmt.Errorf("record cost for job %s: %w", job.JobID, err)
	}

	if err := l.repo.DeductQuota(ctx, job.UserID, cost); err != nil {
		return 0, fmt.Errorf("deduct quota for %s: %w", job.UserID, err)
	}
	return cost, nil
}
