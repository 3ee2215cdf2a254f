package psql

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"mediaflow/internal/domain/entity"
)

type GormLedgerRepo struct {
	DB *gorm.DB
}

func NewGormLedgerRepo(db *gorm.DB) *GormLedgerRepo {
	return &GormLedgerRepo{DB: db}
}

func (r *GormLedgerRepo) GetQuota(ctx context.Context, userID string) (*entity.UserQuota, error) {
	quota := &entity.UserQuota{}
	if err := r.DB.WithContext(ctx).First(quota, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("quota not found: %w", err)
	}
	return quota, nil
}

// DeductQuota decrements the user's remaining budget, clamped at zero.
// One conditional UPDATE, so concurrent charges for the same user
// cannot lose each other's deduction.
func (r *GormLedgerRepo) DeductQuota(ctx context.Context, userID string, amount float64) error {
	result := r.DB.WithContext(ctx).
		Model(&entity.UserQuota{}).
		Where("user_id = ?", userID).
		Update("remaining", gorm.Expr("GREATEST(remaining - ?, 0)", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("quota not found for user %s", userID)
	}
	return nil
}

func (r *GormLedgerRepo) CreateCostRecord(ctx context.Context, record *entity.CostRecord) error {
	return r.DB.WithContext(ctx).Create(record).Error
}
