package entity

import "time"

// CostRecord is one billable operation. Append-only, never mutated.
type CostRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	JobID     string    `gorm:"not null;index;type:uuid" json:"jobId"`
	UserID    string    `gorm:"not null;index" json:"userId"`
	ProjectID string    `gorm:"not null" json:"projectId"`
	Provider  string    `gorm:"not null" json:"provider"`
	Operation string    `gorm:"not null" json:"operation"`
	Amount    float64   `gorm:"not null" json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserQuota is a user's remaining spend budget in monetary units.
// Remaining is clamped at zero and only ever decremented by a single
// atomic UPDATE at the storage layer.
type UserQuota struct {
	UserID    string    `gorm:"primaryKey" json:"userId"`
	Remaining float64   `gorm:"not null" json:"remaining"`
	Tier      string    `gorm:"not null;default:free" json:"tier"`
	UpdatedAt time.Time `json:"updatedAt"`
}
