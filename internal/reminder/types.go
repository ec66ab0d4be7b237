package reminder

import (
	"context"
	"fmt"
	"time"
)

// Recipient is who a reminder is delivered to.
type Recipient struct {
	Name    string
	Address string
}

// Assignment is the scheduler's view of an active assignment.
type Assignment struct {
	ID        string
	DueAt     time.Time
	Flags     Flags
	Recipient Recipient
}

// Payload keys sent with every notification.
const (
	PayloadAssignmentID   = "assignment_id"
	PayloadRecipientName  = "recipient_name"
	PayloadDueAt          = "due_at"
	PayloadIdempotencyKey = "idempotency_key"
)

// Payload is the event data handed to the Notifier.
type Payload map[string]string

// Notification is one planned reminder for an (assignment, threshold) pair.
type Notification struct {
	AssignmentID string
	Threshold    Threshold
	Recipient    Recipient
	EventType    EventType
	Payload      Payload
}

// IdempotencyKey identifies the (assignment, threshold) pair so a downstream
// consumer can drop a duplicate send.
func IdempotencyKey(assignmentID string, eventType EventType) string {
	return fmt.Sprintf("%s:%s", assignmentID, eventType)
}

// Store is the assignment storage the scheduler reads and conditionally updates.
type Store interface {
	// ListActive returns a snapshot of every assignment in the active status.
	ListActive(ctx context.Context) ([]Assignment, error)
	// SetFlagIfUnset sets the flag for n.Threshold on n.AssignmentID only if
	// it is still unset and the assignment is still active. It reports
	// whether a transition happened and must be safe under concurrent calls.
	SetFlagIfUnset(ctx context.Context, n Notification) (bool, error)
}

// Notifier delivers a reminder. A nil error means the reminder went out.
type Notifier interface {
	Send(ctx context.Context, address string, eventType EventType, payload Payload) error
}
