package ese

import "errors"

// Session errors. Every error returned by a Session matches exactly one of
// these with errors.Is, which is what StatusOf relies on.
var (
	// ErrFailed is returned when the transport failed to open or to exchange a frame.
	// The underlying cause is wrapped alongside it.
	ErrFailed = errors.New("ese: transport failure")

	// ErrBusy is returned by Init on an already open session, and by Transceive
	// while another exchange is in flight.
	ErrBusy = errors.New("ese: session busy")

	// ErrNotInitialised is returned by Transceive and Close on a closed session.
	ErrNotInitialised = errors.New("ese: session not initialised")

	// ErrInvalidParameter is returned when a command is empty or does not fit
	// the session scratch buffer.
	ErrInvalidParameter = errors.New("ese: invalid parameter")
)
