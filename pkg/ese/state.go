package ese

// SESSION LIFECYCLE:
//
//	CLOSED --Init ok--> OPEN --Transceive--> BUSY --done--> IDLE
//	   ^                  |                   |               |
//	   +------Close-------+-------------------+---------------+
//
// OPEN and IDLE gate Transceive identically. OPEN only records that the link
// has never carried an exchange since it was opened.

// State is the lifecycle state of a Session.
type State int

const (
	// StateClosed is the initial and terminal state. No link is held.
	StateClosed State = iota

	// StateOpen means the link is open and no exchange has run yet.
	StateOpen

	// StateIdle means the link is open and the previous exchange has completed.
	StateIdle

	// StateBusy means an exchange is running on the link.
	StateBusy
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateIdle:
		return "Idle"
	case StateBusy:
		return "Busy"
	default:
		return "Unknown"
	}
}

// IsOpen returns true if a link is held in this state.
func (s State) IsOpen() bool {
	return s != StateClosed
}

// CanTransceive returns true if an exchange may start in this state.
func (s State) CanTransceive() bool {
	return s == StateOpen || s == StateIdle
}
