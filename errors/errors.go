package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified error type.
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

// Is reports whether target is an AppError with the same code, so that
// sentinel values can be matched with errors.Is regardless of details.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

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

// CodeOf returns the code of the first AppError in err's chain, or the
// empty code when there is none.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// --- Constructors ---

// PrematureEndOfData creates an error for a source exhausted before its byte budget.
func PrematureEndOfData(expected, received int64) *AppError {
	return &AppError{
		Code: ErrCodePrematureEndOfData, Message: "premature end-of-data encountered",
		Details: map[string]any{"expected": expected, "received": received},
	}
}

// UnexpectedExtraData creates an error for a source that yielded more than its byte budget.
func UnexpectedExtraData(expected, received int64) *AppError {
	return &AppError{
		Code: ErrCodeUnexpectedExtraData, Message: "superfluous data received",
		Details: map[string]any{"expected": expected, "received": received},
	}
}

// SeekFailed creates an error for a failed positioning of the source.
func SeekFailed(offset int64, cause error) *AppError {
	return &AppError{
		Code: ErrCodeSeekFailed, Message: fmt.Sprintf("unable to seek to offset %d", offset),
		Details: map[string]any{"offset": offset}, Cause: cause,
	}
}

// LinkMisuse creates an error for an attempt to break the simple-path shape of a chain.
func LinkMisuse(reason string) *AppError {
	return &AppError{Code: ErrCodeLinkMisuse, Message: reason}
}

// ProcessAfterEnd creates an error for a push that follows the end-of-data marker.
func ProcessAfterEnd() *AppError {
	return &AppError{Code: ErrCodeProcessAfterEnd, Message: "block pushed after end-of-data"}
}

// NoUpstream creates an error for a run started on a sink that has no feed.
func NoUpstream() *AppError {
	return &AppError{Code: ErrCodeNoUpstream, Message: "sink has no upstream node to drive"}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		Details: details,
	}
}

// ConnectionFailed creates a new AppError for a failed connection to a remote endpoint.
func ConnectionFailed(endpoint string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeConnectionFailed, Message: fmt.Sprintf("Unable to connect to %s.", endpoint),
		Retryable: true, Details: map[string]any{"endpoint": endpoint}, Cause: cause,
	}
}

// CipherFailure creates a new AppError for an encryption or decryption failure.
func CipherFailure(reason string, cause error) *AppError {
	return &AppError{Code: ErrCodeCipherFailure, Message: reason, Cause: cause}
}

// CodecFailure creates a new AppError for a compression or decompression failure.
func CodecFailure(codec string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeCodecFailure, Message: fmt.Sprintf("%s codec failed", codec),
		Details: map[string]any{"codec": codec}, Cause: cause,
	}
}

// Internal creates a new AppError for an unexpected internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		Cause: cause,
	}
}
