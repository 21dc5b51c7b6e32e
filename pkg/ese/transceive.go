package ese

import (
	"fmt"
)

// CHUNKING:
// A command longer than the negotiated IFSC cannot be handed to the link in
// one call. It is cut into consecutive frames of exactly IFSC bytes, sent as
// non-final, followed by one final frame carrying the remainder:
//
//	len=300, IFSC=254  ->  [254 non-final] [46 final]
//	len=254, IFSC=254  ->  [254 final]
//	len=600, IFSC=254  ->  [254 non-final] [254 non-final] [92 final]
//
// The final flag tells the link to close the block chain and collect the
// response. Only the response reported for the final frame is returned.
// The first link error abandons the whole command; nothing is retried here.

// SplitFrames partitions cmd into the frames sent for an IFSC of ifsc.
// All frames but the last hold exactly ifsc bytes. The frames alias cmd.
// It returns nil if ifsc is not positive.
func SplitFrames(cmd []byte, ifsc int) [][]byte {
	if ifsc <= 0 {
		return nil
	}

	frames := make([][]byte, 0, len(cmd)/ifsc+1)
	off := 0
	for len(cmd)-off > ifsc {
		frames = append(frames, cmd[off:off+ifsc:off+ifsc])
		off += ifsc
	}
	return append(frames, cmd[off:len(cmd):len(cmd)])
}

// Transceive sends cmd to the secure element and returns its response.
// The returned slice is owned by the caller. cmd is copied and not retained.
//
// Errors, checked in this order:
//   - ErrInvalidParameter: cmd is empty or longer than the scratch buffer.
//   - ErrNotInitialised: the session is closed.
//   - ErrBusy: another exchange is in flight.
//   - ErrFailed: the link rejected a frame (wrapping the cause).
//
// Whatever the outcome, the session is never left busy.
func (s *Session) Transceive(cmd []byte) ([]byte, error) {
	if len(cmd) == 0 {
		if s.log != nil {
			s.log.Error("transceive: no command data")
		}
		return nil, fmt.Errorf("%w: empty command", ErrInvalidParameter)
	}
	if len(cmd) > s.maxCmd {
		return nil, fmt.Errorf("%w: command of %d bytes exceeds %d", ErrInvalidParameter, len(cmd), s.maxCmd)
	}

	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		if s.log != nil {
			s.log.Error("transceive: secure element not initialised")
		}
		return nil, ErrNotInitialised
	case StateBusy:
		s.mu.Unlock()
		if s.log != nil {
			s.log.Error("transceive: secure element busy")
		}
		return nil, ErrBusy
	}

	s.state = StateBusy
	link, gen := s.link, s.gen
	s.cmd = append(s.cmd[:0], cmd...)
	pending := s.cmd
	s.mu.Unlock()

	rsp, frames, err := s.exchange(link, pending)

	s.mu.Lock()
	// Close may have run meanwhile, possibly followed by a new Init.
	if s.gen == gen {
		if s.state == StateBusy {
			s.state = StateIdle
		}
		s.stats.Exchanges++
		s.stats.Frames += uint64(frames)
		if err != nil {
			s.stats.Failures++
		} else {
			s.stats.BytesSent += uint64(len(pending))
		}
	}
	s.mu.Unlock()

	if err != nil {
		if s.log != nil {
			s.log.Errorf("transceive failed: %v", err)
		}
		return nil, err
	}

	if s.log != nil {
		s.log.Debugf("transceive: %d bytes in %d frame(s), %d bytes back", len(pending), frames, len(rsp))
	}
	return rsp, nil
}

// Transmit is Transceive under the name expected by APDU clients.
func (s *Session) Transmit(cmd []byte) ([]byte, error) {
	return s.Transceive(cmd)
}

// exchange drives the frames of cmd over link. It returns the response, the
// number of frames the link accepted and the first error.
func (s *Session) exchange(link Link, cmd []byte) ([]byte, int, error) {
	params := link.Params()
	if params.IFSC <= 0 {
		return nil, 0, fmt.Errorf("%w: link negotiated IFSC %d", ErrFailed, params.IFSC)
	}

	rsp := make([]byte, params.ResponseCapacity())
	frames := SplitFrames(cmd, params.IFSC)

	sent := 0
	for i, frame := range frames {
		final := i == len(frames)-1

		n, err := link.TransceiveFrame(frame, final, rsp)
		if err != nil {
			return nil, i, fmt.Errorf("%w: frame %d/%d: %w", ErrFailed, i+1, len(frames), err)
		}
		if n < 0 || n > len(rsp) {
			return nil, i, fmt.Errorf("%w: frame %d/%d: response length %d out of range [0, %d]",
				ErrFailed, i+1, len(frames), n, len(rsp))
		}

		// The link contract is all-or-nothing per frame.
		sent += len(frame)

		if final {
			if sent != len(cmd) {
				return nil, i + 1, fmt.Errorf("%w: sent %d of %d bytes", ErrFailed, sent, len(cmd))
			}
			return rsp[:n:n], i + 1, nil
		}
	}

	// SplitFrames always yields a final frame.
	return nil, len(frames), fmt.Errorf("%w: no final frame", ErrFailed)
}
