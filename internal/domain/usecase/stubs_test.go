package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mediaflow/internal/domain/entity"
)

// memJobRepo is an in-memory JobRepository returning copies, the way
// a row store would.
type memJobRepo struct {
	mu       sync.Mutex
	jobs     map[string]entity.ProcessingJob
	failSave bool
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[string]entity.ProcessingJob)}
}

func (r *memJobRepo) CreateJob(_ context.Context, job *entity.ProcessingJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.JobID] = *job
	return nil
}

func (r *memJobRepo) SaveJob(_ context.Context, job *entity.ProcessingJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave {
		return errors.New("storage unavailable")
	}
	r.jobs[job.JobID] = *job
	return nil
}

func (r *memJobRepo) GetJob(_ context.Context, jobID string) (*entity.ProcessingJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	copied := job
	return &copied, nil
}

func (r *memJobRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// memLedgerRepo clamps deductions at zero exactly like the SQL UPDATE.
type memLedgerRepo struct {
	mu      sync.Mutex
	quotas  map[string]*entity.UserQuota
	records []entity.CostRecord
}

func newMemLedgerRepo(userID string, remaining float64) *memLedgerRepo {
	return &memLedgerRepo{
		quotas: map[string]*entity.UserQuota{
			userID: {UserID: userID, Remaining: remaining},
		},
	}
}

func (r *memLedgerRepo) GetQuota(_ context.Context, userID string) (*entity.UserQuota, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	quota, ok := r.quotas[userID]
	if !ok {
		return nil, fmt.Errorf("quota not found: %s", userID)
	}
	copied := *quota
	return &copied, nil
}

func (r *memLedgerRepo) DeductQuota(_ context.Context, userID string, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	quota, ok := r.quotas[userID]
	if !ok {
		return fmt.Errorf("quota not found: %s", userID)
	}
	quota.Remaining -= amount
	if quota.Remaining < 0 {
		quota.Remaining = 0
	}
	return nil
}

func (r *memLedgerRepo) CreateCostRecord(_ context.Context, record *entity.CostRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *memLedgerRepo) remaining(userID string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quotas[userID].Remaining
}

func (r *memLedgerRepo) costRecords() []entity.CostRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.CostRecord(nil), r.records...)
}

// memBlob is an in-memory BlobStore.
type memBlob struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBlob() *memBlob {
	return &memBlob{objects: make(map[string][]byte)}
}

func (b *memBlob) Put(_ context.Context, key string, data []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = append([]byte(nil), data...)
	return nil
}

func (b *memBlob) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://blobs.test/" + key + "?signed=1", nil
}

func (b *memBlob) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

func (b *memBlob) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok
}

// eventRecorder captures the fan-out traffic in publish order.
type eventRecorder struct {
	mu     sync.Mutex
	events []entity.JobEvent
}

func (r *eventRecorder) Publish(_ context.Context, jobID, _ string, event entity.JobEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.JobID = jobID
	r.events = append(r.events, event)
}

func (r *eventRecorder) all() []entity.JobEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.JobEvent(nil), r.events...)
}

func (r *eventRecorder) typeOrder() []entity.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// stubAnalytics scripts the external analytics collaborator.
type stubAnalytics struct {
	stats *entity.VideoAnalytics
	err   error
}

func (s *stubAnalytics) Collect(_ context.Context, _ string, _ float64) (*entity.VideoAnalytics, error) {
	return s.stats, s.err
}
