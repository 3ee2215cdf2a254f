package psql

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"mediaflow/internal/domain/entity"
)

type GormJobRepo struct {
	DB *gorm.DB
}

func NewGormJobRepo(db *gorm.DB) *GormJobRepo {
	return &GormJobRepo{DB: db}
}

func (r *GormJobRepo) CreateJob(ctx context.Context, job *entity.ProcessingJob) error {
	return r.DB.WithContext(ctx).Create(job).Error
}

// SaveJob persists the full job document. Jobs have a single writer so
// a plain save carries no lost-update risk.
func (r *GormJobRepo) SaveJob(ctx context.Context, job *entity.ProcessingJob) error {
	return r.DB.WithContext(ctx).Save(job).Error
}

func (r *GormJobRepo) GetJob(ctx context.Context, jobID string) (*entity.ProcessingJob, error) {
	job := &entity.ProcessingJob{}
	if err := r.DB.WithContext(ctx).First(job, "job_id = ?", jobID).Error; err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	return job, nil
}
