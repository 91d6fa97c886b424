package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Corpus Error Constructors ---

// MalformedAnnotation creates an AppError for an annotation record that
// cannot be turned into valid intervals.
func MalformedAnnotation(meetingID, record, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeMalformedAnnotation,
		Message: fmt.Sprintf("malformed annotation %s for meeting %s: %s", record, meetingID, reason),
		Details: map[string]any{"meeting": meetingID, "record": record},
	}
}

// MissingAudioChannel creates an AppError for a channel file that could not
// contribute audio.
func MissingAudioChannel(meetingID, channel string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeMissingAudioChannel,
		Message: fmt.Sprintf("audio channel %s of meeting %s is unavailable", channel, meetingID),
		Details: map[string]any{"meeting": meetingID, "channel": channel},
		Cause:   cause,
	}
}

// EmptySpeakerStream creates an AppError for a speaker without audio.
func EmptySpeakerStream(meetingID, speakerID string) *AppError {
	return &AppError{
		Code:    ErrCodeEmptySpeakerStream,
		Message: fmt.Sprintf("speaker %s of meeting %s has no audio", speakerID, meetingID),
		Details: map[string]any{"meeting": meetingID, "speaker": speakerID},
	}
}

// ShapeMismatch creates an AppError for feature matrices that do not fill
// whole speaker groups.
func ShapeMismatch(total, speakers int) *AppError {
	return &AppError{
		Code:    ErrCodeShapeMismatch,
		Message: fmt.Sprintf("feature matrix count %d is not a multiple of speaker count %d", total, speakers),
		Details: map[string]any{"total": total, "speakers": speakers, "remainder": remainder(total, speakers)},
	}
}

func remainder(total, speakers int) int {
	if speakers <= 0 {
		return total
	}
	return total % speakers
}

// --- Common Error Constructors ---

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		Retryable: false, Details: details,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Retryable: false, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// Internal creates a new AppError for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		Retryable: false, Cause: cause,
	}
}

// Storage creates a new AppError for a failed artifact store operation.
func Storage(operation, path string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeStorage, Message: fmt.Sprintf("storage %s failed for %s", operation, path),
		Retryable: true, Details: map[string]any{"operation": operation, "path": path}, Cause: cause,
	}
}

// --- Inspection ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err wraps an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsRetryable reports whether err wraps a retryable AppError.
func IsRetryable(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Retryable
}
