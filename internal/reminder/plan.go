package reminder

import "time"

// Plan evaluates every assignment at now and returns the notifications to
// send, at most one per assignment. It has no side effects.
func Plan(now time.Time, assignments []Assignment) []Notification {
	var out []Notification
	for _, a := range assignments {
		t := Evaluate(now, a.DueAt, a.Flags)
		if t == ThresholdNone {
			continue
		}
		out = append(out, newNotification(a, t))
	}
	return out
}

func newNotification(a Assignment, t Threshold) Notification {
	eventType := t.EventType()
	return Notification{
		AssignmentID: a.ID,
		Threshold:    t,
		Recipient:    a.Recipient,
		EventType:    eventType,
		Payload: Payload{
			PayloadAssignmentID:   a.ID,
			PayloadRecipientName:  a.Recipient.Name,
			PayloadDueAt:          a.DueAt.UTC().Format(time.RFC3339),
			PayloadIdempotencyKey: IdempotencyKey(a.ID, eventType),
		},
	}
}
