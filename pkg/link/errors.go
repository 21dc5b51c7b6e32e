package link

import "errors"

// Link errors.
var (
	// ErrClosed is returned when a frame is sent on a closed link.
	ErrClosed = errors.New("link: closed")

	// ErrResponseTooLarge is returned when the secure element answers with more
	// bytes than the session buffer holds.
	ErrResponseTooLarge = errors.New("link: response too large")

	// ErrCommandTooLarge is returned when chained frames exceed the largest
	// command the link can carry.
	ErrCommandTooLarge = errors.New("link: command too large")

	// ErrNoReader is returned when no PC/SC reader matches the device identifier.
	ErrNoReader = errors.New("link: no matching reader")

	// ErrBadFrame is returned when the socket peer sends a malformed frame.
	ErrBadFrame = errors.New("link: malformed frame")
)
