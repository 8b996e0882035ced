package pipeline

import (
	"github.com/kbukum/iopipe/errors"
)

// Sentinels for errors.Is. Matching is by error code, so any AppError with
// the same code satisfies the check regardless of its message or details.
var (
	ErrPrematureEndOfData  = errors.New(errors.ErrCodePrematureEndOfData, "premature end-of-data")
	ErrUnexpectedExtraData = errors.New(errors.ErrCodeUnexpectedExtraData, "unexpected extra data")
	ErrSeekFailure         = errors.New(errors.ErrCodeSeekFailed, "seek failed")
	ErrLinkMisuse          = errors.New(errors.ErrCodeLinkMisuse, "link misuse")
	ErrProcessAfterEnd     = errors.New(errors.ErrCodeProcessAfterEnd, "process after end-of-data")
	ErrNoUpstream          = errors.New(errors.ErrCodeNoUpstream, "no upstream")
	ErrInvalidInput        = errors.New(errors.ErrCodeInvalidInput, "invalid input")
)
