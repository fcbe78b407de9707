package domain

import "strings"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, true
	case StatusConfirmed:
		return StatusConfirmed, true
	case StatusCompleted:
		return StatusCompleted, true
	case StatusCancelled:
		return StatusCancelled, true
	}
	return "", false
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Editable reports whether date/time/employee/service may still change.
func (s Status) Editable() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) CanTransitionTo(next Status) bool {
	if s.IsTerminal() {
		return false
	}
	switch next {
	case StatusConfirmed:
		return s == StatusPending
	case StatusCompleted, StatusCancelled:
		return s == StatusPending || s == StatusConfirmed
	case StatusPending:
		return s == StatusPending
	}
	return false
}
