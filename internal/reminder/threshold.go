package reminder

import (
	"math"
	"time"
)

// Threshold is one of the fixed points in an assignment's remaining time
// that triggers a one-time reminder.
type Threshold int

const (
	ThresholdNone Threshold = iota
	Threshold24h
	Threshold6h
	ThresholdOverdue
)

// EventType is the tag handed to the Notifier for each threshold.
type EventType string

const (
	EventDue24h   EventType = "review_due_24h"
	EventDue6h    EventType = "review_due_6h"
	EventOverdue  EventType = "review_overdue"
	eventTypeNone EventType = ""
)

func (t Threshold) String() string {
	switch t {
	case Threshold24h:
		return "24h"
	case Threshold6h:
		return "6h"
	case ThresholdOverdue:
		return "overdue"
	default:
		return "none"
	}
}

// EventType returns the notifier tag for the threshold.
func (t Threshold) EventType() EventType {
	switch t {
	case Threshold24h:
		return EventDue24h
	case Threshold6h:
		return EventDue6h
	case ThresholdOverdue:
		return EventOverdue
	default:
		return eventTypeNone
	}
}

// Flags mirrors the three per-threshold notification flags of an assignment.
type Flags struct {
	Notified24h     bool
	Notified6h      bool
	NotifiedOverdue bool
}

// IsSet reports whether the flag for t is already true.
func (f Flags) IsSet(t Threshold) bool {
	switch t {
	case Threshold24h:
		return f.Notified24h
	case Threshold6h:
		return f.Notified6h
	case ThresholdOverdue:
		return f.NotifiedOverdue
	default:
		return false
	}
}

// With returns a copy of f with the flag for t set.
func (f Flags) With(t Threshold) Flags {
	switch t {
	case Threshold24h:
		f.Notified24h = true
	case Threshold6h:
		f.Notified6h = true
	case ThresholdOverdue:
		f.NotifiedOverdue = true
	}
	return f
}

// HoursLeft returns the time until due rounded half-up to whole hours.
// The difference is taken in milliseconds before rounding, so 23h30m rounds
// to 24 and -30m rounds to 0.
func HoursLeft(now, dueAt time.Time) int {
	ms := float64(dueAt.Sub(now).Milliseconds())
	return int(math.Floor(ms/float64(time.Hour.Milliseconds()) + 0.5))
}

// Evaluate returns the threshold an assignment has reached at now, or
// ThresholdNone. Checks run in the order 24h, 6h, overdue and the first
// unfired match wins.
//
// The 24h and 6h checks compare exact rounded hours, so a scan cadence that
// steps over the hour window never fires that threshold.
func Evaluate(now time.Time, dueAt time.Time, flags Flags) Threshold {
	hoursLeft := HoursLeft(now, dueAt)

	if hoursLeft == 24 && !flags.Notified24h {
		return Threshold24h
	}
	if hoursLeft == 6 && !flags.Notified6h {
		return Threshold6h
	}
	if hoursLeft < 0 && !flags.NotifiedOverdue {
		return ThresholdOverdue
	}
	return ThresholdNone
}
