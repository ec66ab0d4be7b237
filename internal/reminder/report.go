package reminder

import "time"

// Outcome is what happened to a single planned notification.
type Outcome string

const (
	// OutcomeNotified: sent and flag persisted.
	OutcomeNotified Outcome = "notified"
	// OutcomeAlreadySet: sent, but the conditional flag update matched no
	// row (flag set concurrently or assignment left the active status).
	OutcomeAlreadySet Outcome = "already_set"
	// OutcomeFlagFailed: sent, but persisting the flag failed. The next
	// cycle may send it again.
	OutcomeFlagFailed Outcome = "flag_failed"
	// OutcomeSendFailed: the notifier failed; flag left unset.
	OutcomeSendFailed Outcome = "send_failed"
)

// Status is the coarse health of a cycle for monitoring.
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// ItemResult is the outcome of one notification within a cycle.
type ItemResult struct {
	AssignmentID string    `json:"assignment_id"`
	Threshold    string    `json:"threshold"`
	EventType    EventType `json:"event_type"`
	Outcome      Outcome   `json:"outcome"`
	Error        string    `json:"error,omitempty"`
}

// CycleReport summarizes one cycle.
type CycleReport struct {
	ID         string       `json:"id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Evaluated  int          `json:"evaluated"`
	Attempted  int          `json:"attempted"`
	Notified   int          `json:"notified"`
	Failed     int          `json:"failed"`
	FlagErrors int          `json:"flag_errors"`
	Status     Status       `json:"status"`
	Error      string       `json:"error,omitempty"`
	Items      []ItemResult `json:"items,omitempty"`
}

// Add folds one item result into the report and returns the new report.
func (r CycleReport) Add(item ItemResult) CycleReport {
	r.Attempted++
	switch item.Outcome {
	case OutcomeNotified, OutcomeAlreadySet:
		r.Notified++
	case OutcomeFlagFailed:
		r.Notified++
		r.FlagErrors++
	case OutcomeSendFailed:
		r.Failed++
	}
	r.Items = append(r.Items, item)
	return r
}

// finish stamps the end time and derives the status.
func (r CycleReport) finish(at time.Time, err error) CycleReport {
	r.FinishedAt = at
	switch {
	case err != nil:
		r.Status = StatusFailed
		r.Error = err.Error()
	case r.Failed > 0 || r.FlagErrors > 0:
		r.Status = StatusPartial
	default:
		r.Status = StatusOK
	}
	return r
}

// OK reports whether the cycle completed. Per-item failures still count as
// a completed cycle.
func (r CycleReport) OK() bool {
	return r.Status != StatusFailed
}

// Duration is how long the cycle took.
func (r CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
