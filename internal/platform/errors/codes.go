// Package errors provides structured error handling for session rule
// violations and transport failures.
package errors

// Code is a machine-readable error code carried on Error frames.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Join and session lookup errors
	CodeInvalidJoinCode  Code = "INVALID_JOIN_CODE"
	CodeSessionNotFound  Code = "SESSION_NOT_FOUND"
	CodeSessionFull      Code = "SESSION_FULL"
	CodeAlreadyStarted   Code = "ALREADY_STARTED"

	// Event validation errors
	CodeParticipantNotFound Code = "PARTICIPANT_NOT_FOUND"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeValidationFailed    Code = "VALIDATION_FAILED"

	// Transport errors
	CodeMalformedMessage   Code = "MALFORMED_MESSAGE"
	CodeConnectionLost     Code = "CONNECTION_LOST"
	CodeHandoverInProgress Code = "HANDOVER_IN_PROGRESS"
)

// Retryable reports whether the caller may reasonably retry the same
// operation. Validation outcomes are final for the state they were judged
// against; transport conditions are transient.
func (c Code) Retryable() bool {
	switch c {
	case CodeConnectionLost, CodeHandoverInProgress:
		return true
	default:
		return false
	}
}
