// Package esetest provides an in-memory secure element link for tests.
//
// A Link records every frame it is handed, reassembles the frames of a
// command and answers the final frame through a Responder. Hooks allow tests
// to fail or hold a given frame, which is how busy and failure paths of
// ese.Session are exercised without hardware.
package esetest

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gregLibert/ese-session/pkg/ese"
)

// ErrInjected is the default error returned by FailFrame.
var ErrInjected = errors.New("esetest: injected link failure")

// ErrClosed is returned by a Link used after Close.
var ErrClosed = errors.New("esetest: link closed")

// Frame is one TransceiveFrame call as seen by the link.
type Frame struct {
	Payload []byte
	Final   bool
}

// Responder produces the response to a fully reassembled command.
type Responder func(cmd []byte) ([]byte, error)

// Link is a scripted ese.Link.
type Link struct {
	params  ese.Params
	respond Responder

	mu       sync.Mutex
	frames   []Frame
	pending  []byte
	commands [][]byte
	closes   int
	hook     func(index int, f Frame) error
}

// NewLink creates a link with the given negotiated parameters.
// A nil responder answers every command with 90 00.
func NewLink(params ese.Params, respond Responder) *Link {
	if respond == nil {
		respond = func([]byte) ([]byte, error) { return []byte{0x90, 0x00}, nil }
	}
	return &Link{params: params, respond: respond}
}

// OnFrame installs a hook run before each frame is processed. index counts
// frames from 1 over the life of the link. A non-nil error fails the frame.
func (l *Link) OnFrame(hook func(index int, f Frame) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hook = hook
}

// FailFrame makes the n-th frame (1-based) fail with err, or ErrInjected if err is nil.
func (l *Link) FailFrame(n int, err error) {
	if err == nil {
		err = ErrInjected
	}
	l.OnFrame(func(index int, _ Frame) error {
		if index == n {
			return err
		}
		return nil
	})
}

// TransceiveFrame implements ese.Link.
func (l *Link) TransceiveFrame(payload []byte, final bool, rsp []byte) (int, error) {
	l.mu.Lock()
	if l.closes > 0 {
		l.mu.Unlock()
		return -1, ErrClosed
	}
	f := Frame{Payload: append([]byte(nil), payload...), Final: final}
	l.frames = append(l.frames, f)
	index := len(l.frames)
	hook := l.hook
	l.mu.Unlock()

	if hook != nil {
		if err := hook(index, f); err != nil {
			l.mu.Lock()
			l.pending = nil
			l.mu.Unlock()
			return -1, err
		}
	}

	l.mu.Lock()
	l.pending = append(l.pending, f.Payload...)
	if !final {
		l.mu.Unlock()
		return 0, nil
	}
	cmd := l.pending
	l.pending = nil
	l.commands = append(l.commands, cmd)
	l.mu.Unlock()

	out, err := l.respond(cmd)
	if err != nil {
		return -1, err
	}
	if len(out) > len(rsp) {
		return -1, fmt.Errorf("esetest: response of %d bytes exceeds buffer of %d", len(out), len(rsp))
	}
	return copy(rsp, out), nil
}

// Params implements ese.Link.
func (l *Link) Params() ese.Params {
	return l.params
}

// Close implements ese.Link.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closes++
	return nil
}

// Frames returns a copy of every frame received so far.
func (l *Link) Frames() []Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Frame(nil), l.frames...)
}

// FrameLengths returns the payload length of every frame received so far.
func (l *Link) FrameLengths() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	lens := make([]int, len(l.frames))
	for i, f := range l.frames {
		lens[i] = len(f.Payload)
	}
	return lens
}

// Commands returns every command reassembled from a final frame.
func (l *Link) Commands() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]byte(nil), l.commands...)
}

// Closes returns how many times Close was called.
func (l *Link) Closes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closes
}

// Driver is an ese.Driver handing out a fixed Link.
type Driver struct {
	// Link is returned by Open. A nil Link makes Open fail.
	Link *Link

	// Err, when set, is returned by Open.
	Err error

	// LeakOnError makes a failing Open return Link alongside Err, the way a
	// driver that acquired the device before failing would.
	LeakOnError bool

	mu     sync.Mutex
	opened []string
}

// Open implements ese.Driver.
func (d *Driver) Open(device string) (ese.Link, error) {
	d.mu.Lock()
	d.opened = append(d.opened, device)
	d.mu.Unlock()

	if d.Err != nil {
		if d.LeakOnError && d.Link != nil {
			return d.Link, d.Err
		}
		return nil, d.Err
	}
	if d.Link == nil {
		return nil, errors.New("esetest: no link configured")
	}
	return d.Link, nil
}

// Opened returns the device identifiers passed to Open.
func (d *Driver) Opened() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.opened...)
}

// Script answers commands from a table keyed by upper-case hex command.
// Spaces in keys and values are ignored. Unknown commands get 6D 00.
func Script(table map[string]string) Responder {
	normalized := make(map[string][]byte, len(table))
	for k, v := range table {
		normalized[cleanHex(k)] = mustHex(v)
	}
	return func(cmd []byte) ([]byte, error) {
		if rsp, ok := normalized[strings.ToUpper(hex.EncodeToString(cmd))]; ok {
			return rsp, nil
		}
		return []byte{0x6D, 0x00}, nil
	}
}

func cleanHex(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, " ", ""))
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(cleanHex(s))
	if err != nil {
		panic(fmt.Sprintf("esetest: invalid hex %q: %v", s, err))
	}
	return b
}
