package wheel

import "errors"

var (
	ErrIndexOutOfRange    = errors.New("slice index out of range")
	ErrNotSpinning        = errors.New("no spin in progress")
	ErrSpinConfig         = errors.New("invalid spin config")
	ErrSelectionExhausted = errors.New("weighted selection exhausted the table")
	ErrCompletionMismatch = errors.New("completed slice differs from the drawn slice")
	ErrStaleSpin          = errors.New("completion for a spin that already ended")
)

// RejectReason tells why Spin refused to start.
type RejectReason string

const (
	RejectInvalidTable       RejectReason = "invalid_table"
	RejectAlreadySpinning    RejectReason = "already_spinning"
	RejectOffsetExceedsSlice RejectReason = "offset_exceeds_slice"
)

// SpinRejected is returned by Spin when a precondition fails.
// The package-level values below are returned as-is, so errors.Is works on them.
type SpinRejected struct {
	Reason RejectReason
}

func (e *SpinRejected) Error() string {
	return "spin rejected: " + string(e.Reason)
}

var (
	ErrInvalidTable       = &SpinRejected{Reason: RejectInvalidTable}
	ErrAlreadySpinning    = &SpinRejected{Reason: RejectAlreadySpinning}
	ErrOffsetExceedsSlice = &SpinRejected{Reason: RejectOffsetExceedsSlice}
)
