package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Byte accounting errors raised by bounded and segment readers.
const (
	// ErrCodePrematureEndOfData indicates the source ended before the byte budget was met.
	ErrCodePrematureEndOfData ErrorCode = "PREMATURE_END_OF_DATA"
	// ErrCodeUnexpectedExtraData indicates the source yielded more bytes than the budget allows.
	ErrCodeUnexpectedExtraData ErrorCode = "UNEXPECTED_EXTRA_DATA"
	// ErrCodeSeekFailed indicates the source could not be positioned at the requested offset.
	ErrCodeSeekFailed ErrorCode = "SEEK_FAILED"
)

// Composition and protocol errors
const (
	// ErrCodeLinkMisuse indicates an attempt to link an already linked node.
	ErrCodeLinkMisuse ErrorCode = "LINK_MISUSE"
	// ErrCodeProcessAfterEnd indicates a block was pushed after the end-of-data marker.
	ErrCodeProcessAfterEnd ErrorCode = "PROCESS_AFTER_END"
	// ErrCodeNoUpstream indicates a run was started on a sink with no feed.
	ErrCodeNoUpstream ErrorCode = "NO_UPSTREAM"
)

// Validation and resource errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeConnectionFailed indicates a failed connection to a remote endpoint.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Stage errors
const (
	// ErrCodeCipherFailure indicates an encryption or decryption failure.
	ErrCodeCipherFailure ErrorCode = "CIPHER_FAILURE"
	// ErrCodeCodecFailure indicates a compression or decompression failure.
	ErrCodeCodecFailure ErrorCode = "CODEC_FAILURE"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Only transport-level failures are worth a second attempt. The pipeline
// itself never retries; the flag is advisory for callers.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeConnectionFailed: true,
	ErrCodeTimeout:          true,
	ErrCodeInternal:         false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
