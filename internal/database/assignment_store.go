package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"reviewreminder/internal/models"
	"reviewreminder/internal/reminder"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// flagColumns maps each threshold to the assignment column that records it
var flagColumns = map[reminder.Threshold]string{
	reminder.Threshold24h:     "notified_24h",
	reminder.Threshold6h:      "notified_6h",
	reminder.ThresholdOverdue: "notified_overdue",
}

// AssignmentStore is the gorm-backed reminder.Store
type AssignmentStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAssignmentStore(db *gorm.DB) *AssignmentStore {
	return &AssignmentStore{db: db, now: time.Now}
}

// ListActive returns every in-progress assignment with its reviewer
func (s *AssignmentStore) ListActive(ctx context.Context) ([]reminder.Assignment, error) {
	var rows []models.Assignment
	err := s.db.WithContext(ctx).
		Preload("Reviewer").
		Where("status = ?", models.StatusInProgress).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active assignments: %w", err)
	}

	out := make([]reminder.Assignment, 0, len(rows))
	for _, row := range rows {
		out = append(out, toReminderAssignment(row))
	}
	return out, nil
}

// SetFlagIfUnset flips the threshold's flag only while it is still false and
// the assignment is still in progress, and records the delivery in the same
// transaction. A zero-row update is not an error.
func (s *AssignmentStore) SetFlagIfUnset(ctx context.Context, n reminder.Notification) (bool, error) {
	column, ok := flagColumns[n.Threshold]
	if !ok {
		return false, fmt.Errorf("no flag column for threshold %s", n.Threshold)
	}
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return false, fmt.Errorf("failed to encode payload for assignment %s: %w", n.AssignmentID, err)
	}

	now := s.now()
	changed := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Assignment{}).
			Where("id = ? AND status = ? AND "+column+" = ?", n.AssignmentID, models.StatusInProgress, false).
			Updates(map[string]interface{}{
				column:       true,
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		changed = true

		return tx.Create(&models.ReminderDelivery{
			AssignmentID: n.AssignmentID,
			Threshold:    n.Threshold.String(),
			Recipient:    n.Recipient.Address,
			Payload:      datatypes.JSON(payload),
			SentAt:       now,
		}).Error
	})
	if err != nil {
		return false, fmt.Errorf("failed to set %s for assignment %s: %w", column, n.AssignmentID, err)
	}
	return changed, nil
}

func toReminderAssignment(row models.Assignment) reminder.Assignment {
	return reminder.Assignment{
		ID:    row.ID,
		DueAt: row.DueAt,
		Flags: reminder.Flags{
			Notified24h:     row.Notified24h,
			Notified6h:      row.Notified6h,
			NotifiedOverdue: row.NotifiedOverdue,
		},
		Recipient: reminder.Recipient{
			Name:    row.Reviewer.DisplayName,
			Address: row.Reviewer.Email,
		},
	}
}
