// Package link provides ese.Driver implementations for secure elements that
// are reached through an APDU-level channel instead of a raw block link.
//
// PC/SC readers and socket-attached simulators take whole APDUs: the reader
// (or the simulator) runs T=1 itself. Chain bridges the gap. It accepts the
// frames produced by ese.Session, keeps the non-final ones, and hands the
// reassembled APDU to an Exchanger when the final frame arrives.
package link

import (
	"fmt"
	"sync"

	"github.com/gregLibert/ese-session/pkg/ese"
)

const (
	// DefaultIFSC is the information field size assumed when none is configured.
	DefaultIFSC = 254

	// DefaultIFSD fits a short response: 256 data bytes plus SW1 SW2.
	DefaultIFSD = 258
)

// Exchanger sends one complete APDU and returns the complete response.
type Exchanger interface {
	Exchange(apdu []byte) ([]byte, error)
	Close() error
}

// Chain adapts an Exchanger to ese.Link.
type Chain struct {
	ex     Exchanger
	params ese.Params

	mu      sync.Mutex
	pending []byte
	closed  bool
}

// NewChain wraps ex. Zero parameters are replaced by DefaultIFSC and DefaultIFSD.
func NewChain(ex Exchanger, params ese.Params) *Chain {
	return &Chain{ex: ex, params: withDefaults(params)}
}

func withDefaults(p ese.Params) ese.Params {
	if p.IFSC <= 0 {
		p.IFSC = DefaultIFSC
	}
	if p.IFSD <= 0 {
		p.IFSD = DefaultIFSD
	}
	return p
}

// TransceiveFrame implements ese.Link.
// Non-final frames are buffered and report an empty response.
func (c *Chain) TransceiveFrame(payload []byte, final bool, rsp []byte) (int, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return -1, ErrClosed
	}
	if len(c.pending)+len(payload) > ese.MaxCommandSize {
		c.pending = nil
		c.mu.Unlock()
		return -1, ErrCommandTooLarge
	}
	c.pending = append(c.pending, payload...)
	if !final {
		c.mu.Unlock()
		return 0, nil
	}
	apdu := c.pending
	c.pending = nil
	c.mu.Unlock()

	out, err := c.ex.Exchange(apdu)
	if err != nil {
		return -1, err
	}
	if len(out) > len(rsp) {
		return -1, fmt.Errorf("%w: %d bytes for a buffer of %d", ErrResponseTooLarge, len(out), len(rsp))
	}
	return copy(rsp, out), nil
}

// Params implements ese.Link.
func (c *Chain) Params() ese.Params {
	return c.params
}

// Close implements ese.Link. It closes the Exchanger once.
func (c *Chain) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.pending = nil
	c.mu.Unlock()

	return c.ex.Close()
}
