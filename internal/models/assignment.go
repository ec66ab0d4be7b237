package models

import (
	"time"

	"gorm.io/gorm"
)

// AssignmentStatus represents where an assignment is in the review workflow
type AssignmentStatus string

const (
	StatusPending    AssignmentStatus = "pending"
	StatusInProgress AssignmentStatus = "in_progress"
	StatusSubmitted  AssignmentStatus = "submitted"
	StatusCompleted  AssignmentStatus = "completed"
	StatusCancelled  AssignmentStatus = "cancelled"
)

// Assignment represents a piece of reviewable work handed to a reviewer.
// Only assignments in StatusInProgress are visible to the reminder scheduler.
type Assignment struct {
	ID              string           `gorm:"primaryKey;size:50" json:"id"`
	Title           string           `gorm:"size:255;not null" json:"title"`
	Status          AssignmentStatus `gorm:"size:20;not null;index" json:"status"`
	DueAt           time.Time        `gorm:"not null;index" json:"due_at"`
	ReviewerID      string           `gorm:"size:30;not null;index" json:"reviewer_id"`
	Reviewer        Reviewer         `gorm:"foreignKey:ReviewerID;references:Username" json:"reviewer"`
	Notified24h     bool             `gorm:"column:notified_24h;not null;default:false" json:"notified_24h"`
	Notified6h      bool             `gorm:"column:notified_6h;not null;default:false" json:"notified_6h"`
	NotifiedOverdue bool             `gorm:"column:notified_overdue;not null;default:false" json:"notified_overdue"`
	CreatedAt       time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"not null" json:"updated_at"`
}

// BeforeCreate hook is called before creating a new assignment
func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	return nil
}

// TableName specifies the table name for the Assignment model
func (Assignment) TableName() string {
	return "assignment"
}
