package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Corpus preparation errors
const (
	// ErrCodeMalformedAnnotation indicates an annotation interval with a
	// missing, non-numeric or out-of-order bound.
	ErrCodeMalformedAnnotation ErrorCode = "MALFORMED_ANNOTATION"
	// ErrCodeMissingAudioChannel indicates a channel file that is absent,
	// unreadable or incompatible with the other channels of its meeting.
	ErrCodeMissingAudioChannel ErrorCode = "MISSING_AUDIO_CHANNEL"
	// ErrCodeEmptySpeakerStream indicates a speaker whose sliced audio has
	// zero duration.
	ErrCodeEmptySpeakerStream ErrorCode = "EMPTY_SPEAKER_STREAM"
	// ErrCodeShapeMismatch indicates feature matrices that cannot be
	// assembled into fixed-shape tensors.
	ErrCodeShapeMismatch ErrorCode = "SHAPE_MISMATCH"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeStorage indicates a failure of the artifact store.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeStorage:  true,
	ErrCodeInternal: false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
