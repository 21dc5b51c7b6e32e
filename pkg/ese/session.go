package ese

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/logging"
)

const (
	// ConfigKeyDevNode is the configuration key holding the secure element device identifier.
	ConfigKeyDevNode = "ST_ESE_DEV_NODE"

	// DefaultDevNode is used when the configuration does not name a device.
	DefaultDevNode = "/dev/st54j"

	// MaxCommandSize bounds the session scratch buffer: an extended case 4
	// APDU, Header(4) + Lc(3) + Data(65535) + Le(2).
	MaxCommandSize = 4 + 3 + 65535 + 2
)

// ErrNoDriver is returned by New when the configuration has no Driver.
var ErrNoDriver = errors.New("ese: no driver configured")

// Config configures a Session.
type Config struct {
	// Driver opens the link to the secure element.
	// Required.
	Driver Driver

	// Properties is consulted by Init for ConfigKeyDevNode.
	// If nil, DefaultDevNode is used.
	Properties Properties

	// Device, when set, overrides the device identifier from Properties.
	Device string

	// MaxCommandSize bounds the length of a single command.
	// Default: MaxCommandSize
	MaxCommandSize int

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Stats counts the traffic carried since the session was last opened.
type Stats struct {
	Exchanges uint64
	Failures  uint64
	Frames    uint64
	BytesSent uint64
}

// Session owns the link to one secure element and serialises access to it.
// A Session is safe for concurrent use, but at most one exchange runs at a
// time: concurrent callers are rejected with ErrBusy rather than queued.
type Session struct {
	driver Driver
	props  Properties
	device string
	maxCmd int
	log    logging.LeveledLogger

	mu    sync.Mutex
	state State
	link  Link
	gen   uint64 // bumped whenever the link changes
	cmd   []byte // private copy of the last command
	stats Stats
}

// New creates a closed Session. Call Init to open the link.
func New(config Config) (*Session, error) {
	if config.Driver == nil {
		return nil, ErrNoDriver
	}

	s := &Session{
		driver: config.Driver,
		props:  config.Properties,
		device: config.Device,
		maxCmd: config.MaxCommandSize,
		state:  StateClosed,
	}
	if s.maxCmd <= 0 || s.maxCmd > MaxCommandSize {
		s.maxCmd = MaxCommandSize
	}

	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("ese")
	}

	return s, nil
}

// Init opens the link to the secure element.
// It returns ErrBusy if the session is already open, and an error matching
// ErrFailed if the driver cannot open the device. A failed Init leaves the
// session closed.
func (s *Session) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateClosed {
		if s.log != nil {
			s.log.Debugf("init rejected, session is %s", s.state)
		}
		return ErrBusy
	}

	s.wipe()

	device := s.resolveDevice()
	if s.log != nil {
		s.log.Debugf("opening secure element on %s", device)
	}

	link, err := s.driver.Open(device)
	if err != nil || link == nil {
		if link != nil {
			_ = link.Close()
		}
		s.wipe()
		if err == nil {
			err = errors.New("driver returned no link")
		}
		if s.log != nil {
			s.log.Errorf("open %s failed: %v", device, err)
		}
		return fmt.Errorf("%w: open %s: %w", ErrFailed, device, err)
	}

	s.link = link
	s.gen++
	s.state = StateOpen

	if s.log != nil {
		p := link.Params()
		s.log.Infof("secure element open on %s (IFSC=%d, IFSD=%d)", device, p.IFSC, p.IFSD)
	}
	return nil
}

// IsOpen returns true unless the session is closed.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsOpen()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns the traffic counters of the current session.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close releases the link and resets the session.
// It returns ErrNotInitialised if the session is already closed.
//
// Close does not cancel an exchange in flight. That exchange completes on the
// released link and the session stays closed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		if s.log != nil {
			s.log.Debug("close rejected, session not initialised")
		}
		return ErrNotInitialised
	}

	if s.link != nil {
		if err := s.link.Close(); err != nil && s.log != nil {
			s.log.Warnf("link close: %v", err)
		}
	}

	s.wipe()

	if s.log != nil {
		s.log.Info("secure element closed")
	}
	return nil
}

// wipe resets every session field to its closed value. Must hold s.mu.
func (s *Session) wipe() {
	// An exchange in flight still reads the scratch buffer; only clear it
	// when nobody else holds it.
	if s.state != StateBusy {
		clear(s.cmd)
	}
	s.cmd = nil
	s.link = nil
	s.gen++
	s.stats = Stats{}
	s.state = StateClosed
}

func (s *Session) resolveDevice() string {
	if s.device != "" {
		return s.device
	}
	if s.props == nil {
		return DefaultDevNode
	}
	return s.props.GetString(ConfigKeyDevNode, DefaultDevNode)
}
