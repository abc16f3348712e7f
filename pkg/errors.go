package pkg

import "errors"

// Error taxonomy shared by the dialogue core and its collaborators
var (
	// ErrMalformedInput is returned when a turn carries no usable text
	ErrMalformedInput = errors.New("malformed input")
	// ErrSessionNotFound is returned by lookups of unknown sessions
	ErrSessionNotFound = errors.New("session not found")
	// ErrCollaboratorUnavailable wraps speech, completion, calendar and CRM failures
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	// ErrClassificationDegraded marks an escalation that produced nothing usable
	ErrClassificationDegraded = errors.New("classification degraded")
	// ErrActionFailure marks a booking action the collaborator rejected
	ErrActionFailure = errors.New("action failure")
	// ErrSessionConflict is returned when creating a session whose id is taken
	ErrSessionConflict = errors.New("session conflict")

	// ErrSlotUnavailable is returned when a requested slot is taken or closed
	ErrSlotUnavailable = errors.New("slot unavailable")
	// ErrAppointmentNotFound is returned when no active appointment matches
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrCallNotFound is returned for unknown call records
	ErrCallNotFound = errors.New("call not found")
)
