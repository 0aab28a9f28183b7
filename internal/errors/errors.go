// Package errors provides standardized error codes for stagehand.
//
// Error codes follow the format {domain}.{error} where:
//   - domain: The subsystem that generated the error (server, listener, library, ...)
//   - error: The specific error type within that domain
//
// Codes are stable and show up in logs and on the control socket. The message of a
// CodedError is what remotes and the host UI display.
package errors

import (
	"errors"
	"fmt"
)

// Error codes by domain.
const (
	// Server domain - the HTTP/WebSocket listener
	CodeServerAlreadyRunning = "server.already_running" // Start requested while serving
	CodeServerBindFailed     = "server.bind_failed"     // Port could not be bound
	CodeServerNotRunning     = "server.not_running"     // Stop or send with no server
	CodeServerUpgradeFailed  = "server.upgrade_failed"  // WebSocket upgrade failed
	CodeServerSendFailed     = "server.send_failed"     // Failed to send message

	// Protocol domain - message decoding
	CodeProtocolInvalidMessage = "protocol.invalid_message" // Malformed frame or bad field
	CodeProtocolUnknownType    = "protocol.unknown_type"    // Well-formed frame with unknown type

	// Input domain - remote input limits
	CodeInputRateLimited = "input.rate_limited" // Too many messages per second

	// Listener domain - the supervised child process
	CodeListenerSpawnFailed = "listener.spawn_failed" // Process could not be started
	CodeListenerCrashed     = "listener.crashed"      // Process exited unexpectedly
	CodeListenerIPCFailed   = "listener.ipc_failed"   // Host/listener channel broke

	// Relay domain - bridge calls into the command handler
	CodeRelayFailed = "relay.failed" // Handler returned an error

	// Library domain - songs, scripture, themes and schedule storage
	CodeLibraryNotFound    = "library.not_found"    // Requested record does not exist
	CodeLibraryQueryFailed = "library.query_failed" // Database query failed
	CodeLibraryOpenFailed  = "library.open_failed"  // Database open or migrate failed

	// Presenter domain - live output state
	CodePresenterNothingLive = "presenter.nothing_live" // Navigate with nothing on screen
	CodePresenterInvalidItem = "presenter.invalid_item" // Item cannot be presented

	// Keep-awake domain - display sleep inhibition while presenting
	CodeKeepAwakeUnsupported   = "keepawake.unsupported"    // No inhibitor available on this host
	CodeKeepAwakeAcquireFailed = "keepawake.acquire_failed" // Inhibitor could not be started
	CodeKeepAwakeDisabled      = "keepawake.disabled"       // Host runs without --keep-awake

	// General domain - catch-all errors
	CodeUnknown  = "error.unknown"  // Unknown error
	CodeInternal = "error.internal" // Internal error
)

// CodedError wraps an error with a stable error code.
// This allows errors to carry both a code for programmatic handling
// and a message for human consumption.
type CodedError struct {
	Code    string // Stable error code (e.g., "library.not_found")
	Message string // Human-readable error message
	Cause   error  // Underlying error (may be nil)
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CodedError) Unwrap() error {
	return e.Cause
}

// New creates a new CodedError with the given code and message.
func New(code, message string) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new CodedError wrapping an existing error.
func Wrap(code, message string, cause error) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// GetCode extracts the error code from an error.
// Falls back to CodeUnknown for errors that carry no code.
func GetCode(err error) string {
	if err == nil {
		return ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}

	return CodeUnknown
}

// GetMessage extracts a human-readable message from an error.
// If the error is a CodedError, returns its message.
// Otherwise, returns the error's Error() string.
func GetMessage(err error) string {
	if err == nil {
		return ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Message
	}

	return err.Error()
}

// ToCodeAndMessage extracts both code and message from an error.
func ToCodeAndMessage(err error) (code, message string) {
	if err == nil {
		return "", ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code, coded.Message
	}

	return CodeUnknown, err.Error()
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code string) bool {
	return GetCode(err) == code
}

// Common error constructors.

// AlreadyRunning creates a "server.already_running" error. Its message is sent
// verbatim to the host, so keep it stable.
func AlreadyRunning() *CodedError {
	return New(CodeServerAlreadyRunning, "Server already running")
}

// BindFailed creates a "server.bind_failed" error for addr.
func BindFailed(addr string, cause error) *CodedError {
	return Wrap(CodeServerBindFailed, fmt.Sprintf("failed to listen on %s", addr), cause)
}

// NotRunning creates a "server.not_running" error.
func NotRunning() *CodedError {
	return New(CodeServerNotRunning, "remote server is not running")
}

// InvalidMessage creates a "protocol.invalid_message" error.
func InvalidMessage(reason string) *CodedError {
	return New(CodeProtocolInvalidMessage, reason)
}

// UnknownType creates a "protocol.unknown_type" error. The message is the text
// remotes see in their error frame.
func UnknownType(messageType string) *CodedError {
	return New(CodeProtocolUnknownType, "Unknown message type: "+messageType)
}

// RateLimited creates an "input.rate_limited" error.
func RateLimited() *CodedError {
	return New(CodeInputRateLimited, "Too many messages, slow down")
}

// SpawnFailed creates a "listener.spawn_failed" error.
func SpawnFailed(cause error) *CodedError {
	return Wrap(CodeListenerSpawnFailed, "failed to start remote listener", cause)
}

// ListenerCrashed creates a "listener.crashed" error.
func ListenerCrashed(cause error) *CodedError {
	return Wrap(CodeListenerCrashed, "remote listener exited unexpectedly", cause)
}

// IPCFailed creates a "listener.ipc_failed" error.
func IPCFailed(op string, cause error) *CodedError {
	return Wrap(CodeListenerIPCFailed, fmt.Sprintf("listener channel %s failed", op), cause)
}

// RelayFailed creates a "relay.failed" error for a handler operation.
func RelayFailed(op string, cause error) *CodedError {
	msg := fmt.Sprintf("%s failed", op)
	if cause != nil {
		msg = fmt.Sprintf("%s failed: %s", op, GetMessage(cause))
	}
	return Wrap(CodeRelayFailed, msg, cause)
}

// NotFound creates a "library.not_found" error.
func NotFound(resource string) *CodedError {
	return New(CodeLibraryNotFound, fmt.Sprintf("%s not found", resource))
}

// QueryFailed creates a "library.query_failed" error.
func QueryFailed(what string, cause error) *CodedError {
	return Wrap(CodeLibraryQueryFailed, fmt.Sprintf("failed to load %s", what), cause)
}

// NothingLive creates a "presenter.nothing_live" error.
func NothingLive() *CodedError {
	return New(CodePresenterNothingLive, "nothing is live")
}

// InvalidItem creates a "presenter.invalid_item" error.
func InvalidItem(reason string) *CodedError {
	return New(CodePresenterInvalidItem, fmt.Sprintf("invalid item: %s", reason))
}

// Internal creates an "error.internal" error.
func Internal(message string, cause error) *CodedError {
	return Wrap(CodeInternal, message, cause)
}
