package models

import (
	"time"

	"gorm.io/gorm"
)

// Reviewer is the person an assignment's reminders are delivered to
type Reviewer struct {
	Username    string    `gorm:"primaryKey;size:30;not null" json:"username"`
	DisplayName string    `gorm:"size:100;not null" json:"display_name"`
	Email       string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

// BeforeCreate hook is called before creating a new reviewer
func (r *Reviewer) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}
	if r.DisplayName == "" {
		r.DisplayName = r.Username
	}
	return nil
}

// TableName specifies the table name for the Reviewer model
func (Reviewer) TableName() string {
	return "reviewer"
}
