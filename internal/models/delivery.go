package models

import (
	"time"

	"gorm.io/datatypes"
)

// ReminderDelivery records a reminder that was sent and whose flag was persisted
type ReminderDelivery struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	AssignmentID string         `gorm:"size:50;not null;uniqueIndex:idx_delivery_assignment_threshold" json:"assignment_id"`
	Threshold    string         `gorm:"size:20;not null;uniqueIndex:idx_delivery_assignment_threshold" json:"threshold"`
	Recipient    string         `gorm:"size:255;not null" json:"recipient"`
	Payload      datatypes.JSON `json:"payload"`
	SentAt       time.Time      `gorm:"not null;index" json:"sent_at"`
}

// TableName specifies the table name for the ReminderDelivery model
func (ReminderDelivery) TableName() string {
	return "reminder_delivery"
}
