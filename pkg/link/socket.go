package link

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/gregLibert/ese-session/pkg/ese"
	"github.com/pion/logging"
)

// SOCKET FRAMING:
// Secure element simulators (vpcd-style virtual cards) listen on a stream
// socket. Every message is a 2-byte big-endian length followed by that many
// bytes. A one-byte message is a control code, anything longer is an APDU.
// Each message is written with a single Write so packet-oriented conns
// carry it whole.

// Control codes sent as one-byte messages.
const (
	CtrlPowerOff byte = 0x00
	CtrlPowerOn  byte = 0x01
	CtrlReset    byte = 0x02
)

// maxMessage is the largest payload a 16-bit length can announce.
const maxMessage = 0xFFFF

// SocketDriver opens secure elements reachable over a stream connection.
// The device identifier is the address passed to Dial.
type SocketDriver struct {
	// Params are reported to the session. Zero values take DefaultIFSC and DefaultIFSD.
	Params ese.Params

	// Dial connects to the simulator.
	// Default: net.Dial("tcp", address)
	Dial func(address string) (net.Conn, error)

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Open implements ese.Driver. The card is powered on before the link is returned.
func (d SocketDriver) Open(address string) (ese.Link, error) {
	dial := d.Dial
	if dial == nil {
		dial = func(a string) (net.Conn, error) { return net.Dial("tcp", a) }
	}

	conn, err := dial(address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}

	s := &socketExchanger{
		conn: conn,
		r:    bufio.NewReaderSize(conn, 2+maxMessage),
	}
	if d.LoggerFactory != nil {
		s.log = d.LoggerFactory.NewLogger("link-socket")
	}

	if err := s.write([]byte{CtrlPowerOn}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("power on: %w", err)
	}
	if s.log != nil {
		s.log.Infof("connected to %s", address)
	}

	return NewChain(s, d.Params), nil
}

type socketExchanger struct {
	conn net.Conn
	r    *bufio.Reader
	log  logging.LeveledLogger

	mu sync.Mutex
}

func (s *socketExchanger) Exchange(apdu []byte) ([]byte, error) {
	if len(apdu) < 2 {
		return nil, fmt.Errorf("%w: %d-byte APDU collides with control codes", ErrBadFrame, len(apdu))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(apdu); err != nil {
		return nil, err
	}
	rsp, err := s.read()
	if err != nil {
		return nil, err
	}
	if len(rsp) < 2 {
		return nil, fmt.Errorf("%w: response of %d bytes", ErrBadFrame, len(rsp))
	}
	if s.log != nil {
		s.log.Tracef("%X -> %X", apdu, rsp)
	}
	return rsp, nil
}

func (s *socketExchanger) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write([]byte{CtrlPowerOff}); err != nil && s.log != nil {
		s.log.Warnf("power off: %v", err)
	}
	return s.conn.Close()
}

func (s *socketExchanger) write(payload []byte) error {
	if len(payload) > maxMessage {
		return fmt.Errorf("%w: %d bytes", ErrCommandTooLarge, len(payload))
	}
	msg := make([]byte, 2+len(payload))
	binary.BigEndian.PutUint16(msg, uint16(len(payload)))
	copy(msg[2:], payload)

	if _, err := s.conn.Write(msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (s *socketExchanger) read() ([]byte, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(s.r, hdr[:]); err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}
	msg := make([]byte, binary.BigEndian.Uint16(hdr[:]))
	if _, err := io.ReadFull(s.r, msg); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return msg, nil
}
