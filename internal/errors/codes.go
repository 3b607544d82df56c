// Package errors provides structured error handling for the sync client.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Connection errors
	CodeAuthTokenMissing   Code = "AUTH_TOKEN_MISSING"
	CodeConnectInProgress  Code = "CONNECT_IN_PROGRESS"
	CodeTransportFailure   Code = "TRANSPORT_FAILURE"
	CodeReconnectExhausted Code = "RECONNECT_EXHAUSTED"
	CodeNotConnected       Code = "NOT_CONNECTED"

	// Command errors
	CodeCommandFailed  Code = "COMMAND_FAILED"
	CodeCommandTimeout Code = "COMMAND_TIMEOUT"

	// Event errors
	CodeEventMalformed Code = "EVENT_MALFORMED"

	// Replay errors
	CodeReplayInvalidSpeed Code = "REPLAY_INVALID_SPEED"
	CodeReplayEmptyLog     Code = "REPLAY_EMPTY_LOG"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)
