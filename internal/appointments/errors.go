package appointments

import "errors"

var (
	// ErrSlotTaken is the domain conflict for an hour that is no longer in
	// the offer set. Distinct from connectivity failures; always actionable
	// by picking a different slot.
	ErrSlotTaken = errors.New("slot no longer available")

	// ErrTerminalStatus rejects any action on a completed or cancelled
	// appointment.
	ErrTerminalStatus = errors.New("appointment is in a terminal status")

	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPermission        = errors.New("action not allowed for this role")
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}
