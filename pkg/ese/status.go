package ese

import "errors"

// Status is the closed set of outcomes reported to callers that need a
// numeric result (driver registration layers, HAL shims).
type Status int

const (
	StatusSuccess Status = iota
	StatusFailed
	StatusBusy
	StatusNotInitialised
	StatusInvalidParameter
)

// String returns the HAL-style name of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailed:
		return "FAILED"
	case StatusBusy:
		return "BUSY"
	case StatusNotInitialised:
		return "NOT_INITIALISED"
	case StatusInvalidParameter:
		return "INVALID_PARAMETER"
	default:
		return "UNKNOWN"
	}
}

// StatusOf maps an error returned by a Session to its Status.
// A nil error is StatusSuccess. Errors that do not wrap one of the
// package sentinels are reported as StatusFailed.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrInvalidParameter):
		return StatusInvalidParameter
	case errors.Is(err, ErrNotInitialised):
		return StatusNotInitialised
	case errors.Is(err, ErrBusy):
		return StatusBusy
	default:
		return StatusFailed
	}
}
