package ese

// TRANSPORT BOUNDARY:
// The session never touches the wire. Block framing, error detection and
// retransmission belong to the Link, which exchanges exactly one bounded
// frame per call. The session only decides how many command bytes go into
// each call and whether that call closes the command (final).
//
// A successful TransceiveFrame call is all-or-nothing: the whole payload was
// delivered. The session advances its offset by len(payload) on success and
// never resumes a partially delivered frame.

// Params holds the protocol parameters negotiated by the link when it was opened.
type Params struct {
	// IFSC is the maximum number of command bytes the secure element accepts
	// in a single frame.
	IFSC int

	// IFSD is the maximum number of response bytes the link can deliver for a
	// command. Zero means the link did not negotiate one.
	IFSD int
}

// ResponseCapacity returns the size of the buffer handed to the link for
// a response. It falls back to IFSC when no IFSD was negotiated.
func (p Params) ResponseCapacity() int {
	if p.IFSD > 0 {
		return p.IFSD
	}
	return p.IFSC
}

// Link is an open channel to the secure element.
type Link interface {
	// TransceiveFrame sends payload as one frame. When final is false the
	// secure element is told more of the same command follows. The response,
	// if any, is written into rsp and its length returned.
	TransceiveFrame(payload []byte, final bool, rsp []byte) (int, error)

	// Params returns the parameters negotiated when the link was opened.
	Params() Params

	// Close releases the channel.
	Close() error
}

// Driver opens links to a secure element identified by a device string
// (a device node, a reader name, a socket address...).
type Driver interface {
	Open(device string) (Link, error)
}

// DriverFunc adapts a plain function to the Driver interface.
type DriverFunc func(device string) (Link, error)

// Open calls f(device).
func (f DriverFunc) Open(device string) (Link, error) {
	return f(device)
}

// Properties is a read-only key/value configuration source.
type Properties interface {
	GetString(key, def string) string
}
