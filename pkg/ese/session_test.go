package ese_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/gregLibert/ese-session/pkg/ese"
	"github.com/gregLibert/ese-session/pkg/ese/esetest"
	"github.com/pion/logging"
)

type mapProps map[string]string

func (m mapProps) GetString(key, def string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

func newSession(t *testing.T, cfg ese.Config) *ese.Session {
	t.Helper()
	s, err := ese.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func openSession(t *testing.T, params ese.Params, respond esetest.Responder) (*ese.Session, *esetest.Link) {
	t.Helper()
	l := esetest.NewLink(params, respond)
	s := newSession(t, ese.Config{Driver: &esetest.Driver{Link: l}})
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s, l
}

func TestNew_RequiresDriver(t *testing.T) {
	if _, err := ese.New(ese.Config{}); !errors.Is(err, ese.ErrNoDriver) {
		t.Errorf("New without driver: got %v, want ErrNoDriver", err)
	}
}

func TestInit_DeviceResolution(t *testing.T) {
	tests := []struct {
		name string
		cfg  ese.Config
		want string
	}{
		{
			name: "Default device node",
			cfg:  ese.Config{},
			want: ese.DefaultDevNode,
		},
		{
			name: "Device node from properties",
			cfg:  ese.Config{Properties: mapProps{ese.ConfigKeyDevNode: "/dev/st54k"}},
			want: "/dev/st54k",
		},
		{
			name: "Properties without the key",
			cfg:  ese.Config{Properties: mapProps{"OTHER": "x"}},
			want: ese.DefaultDevNode,
		},
		{
			name: "Explicit device wins",
			cfg: ese.Config{
				Properties: mapProps{ese.ConfigKeyDevNode: "/dev/st54k"},
				Device:     "/dev/spidev0.0",
			},
			want: "/dev/spidev0.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &esetest.Driver{Link: esetest.NewLink(ese.Params{IFSC: 254}, nil)}
			tt.cfg.Driver = d
			s := newSession(t, tt.cfg)

			if err := s.Init(); err != nil {
				t.Fatalf("Init: %v", err)
			}
			if got := d.Opened(); len(got) != 1 || got[0] != tt.want {
				t.Errorf("opened %v, want [%s]", got, tt.want)
			}
			if s.State() != ese.StateOpen {
				t.Errorf("state = %s, want Open", s.State())
			}
		})
	}
}

func TestInit_Failure(t *testing.T) {
	cause := errors.New("no such device")

	t.Run("Driver returns no link", func(t *testing.T) {
		s := newSession(t, ese.Config{Driver: &esetest.Driver{Err: cause}})

		err := s.Init()
		if !errors.Is(err, ese.ErrFailed) || !errors.Is(err, cause) {
			t.Fatalf("Init: got %v, want ErrFailed wrapping cause", err)
		}
		if ese.StatusOf(err) != ese.StatusFailed {
			t.Errorf("status = %s, want FAILED", ese.StatusOf(err))
		}
		if s.IsOpen() || s.State() != ese.StateClosed {
			t.Errorf("session left %s after failed init", s.State())
		}
	})

	t.Run("Partially acquired link is released", func(t *testing.T) {
		l := esetest.NewLink(ese.Params{IFSC: 254}, nil)
		s := newSession(t, ese.Config{Driver: &esetest.Driver{Link: l, Err: cause, LeakOnError: true}})

		if err := s.Init(); !errors.Is(err, ese.ErrFailed) {
			t.Fatalf("Init: got %v, want ErrFailed", err)
		}
		if l.Closes() != 1 {
			t.Errorf("link closed %d times, want 1", l.Closes())
		}
		if s.State() != ese.StateClosed {
			t.Errorf("state = %s, want Closed", s.State())
		}
		if err := s.Close(); !errors.Is(err, ese.ErrNotInitialised) {
			t.Errorf("Close after failed init: got %v, want ErrNotInitialised", err)
		}
	})

	t.Run("Retry after failure", func(t *testing.T) {
		d := &esetest.Driver{Err: cause}
		s := newSession(t, ese.Config{Driver: d})

		_ = s.Init()
		d.Err = nil
		d.Link = esetest.NewLink(ese.Params{IFSC: 254}, nil)

		if err := s.Init(); err != nil {
			t.Fatalf("second Init: %v", err)
		}
		if s.State() != ese.StateOpen {
			t.Errorf("state = %s, want Open", s.State())
		}
	})
}

func TestInit_RejectedWhenNotClosed(t *testing.T) {
	s, l := openSession(t, ese.Params{IFSC: 254}, nil)

	if err := s.Init(); !errors.Is(err, ese.ErrBusy) {
		t.Errorf("Init on Open: got %v, want ErrBusy", err)
	}
	if s.State() != ese.StateOpen {
		t.Errorf("state = %s after rejected init, want Open", s.State())
	}

	if _, err := s.Transceive([]byte{0x00, 0xA4, 0x04, 0x00}); err != nil {
		t.Fatalf("Transceive: %v", err)
	}
	if err := s.Init(); !errors.Is(err, ese.ErrBusy) {
		t.Errorf("Init on Idle: got %v, want ErrBusy", err)
	}
	if s.State() != ese.StateIdle {
		t.Errorf("state = %s after rejected init, want Idle", s.State())
	}
	if l.Closes() != 0 {
		t.Errorf("rejected init closed the link")
	}
}

func TestClose(t *testing.T) {
	t.Run("Closed session", func(t *testing.T) {
		s := newSession(t, ese.Config{Driver: &esetest.Driver{}})

		err := s.Close()
		if !errors.Is(err, ese.ErrNotInitialised) {
			t.Fatalf("Close: got %v, want ErrNotInitialised", err)
		}
		if ese.StatusOf(err) != ese.StatusNotInitialised {
			t.Errorf("status = %s", ese.StatusOf(err))
		}
		if s.State() != ese.StateClosed {
			t.Errorf("state = %s, want Closed", s.State())
		}
	})

	t.Run("Open session", func(t *testing.T) {
		s, l := openSession(t, ese.Params{IFSC: 254}, nil)

		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if s.IsOpen() {
			t.Error("IsOpen() = true after Close")
		}
		if l.Closes() != 1 {
			t.Errorf("link closed %d times, want 1", l.Closes())
		}
	})

	t.Run("Idle session, closed twice", func(t *testing.T) {
		s, l := openSession(t, ese.Params{IFSC: 254}, nil)
		if _, err := s.Transceive([]byte{0x80, 0xCA, 0x9F, 0x7F, 0x00}); err != nil {
			t.Fatalf("Transceive: %v", err)
		}

		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if err := s.Close(); !errors.Is(err, ese.ErrNotInitialised) {
			t.Errorf("second Close: got %v, want ErrNotInitialised", err)
		}
		if l.Closes() != 1 {
			t.Errorf("link closed %d times, want exactly 1", l.Closes())
		}
		if s.Stats() != (ese.Stats{}) {
			t.Errorf("stats not reset: %+v", s.Stats())
		}
	})

	t.Run("Reopen after close", func(t *testing.T) {
		s, _ := openSession(t, ese.Params{IFSC: 254}, nil)
		_ = s.Close()

		if err := s.Init(); err != nil {
			t.Fatalf("Init after Close: %v", err)
		}
		if s.State() != ese.StateOpen {
			t.Errorf("state = %s, want Open", s.State())
		}
	})
}

func TestIsOpen(t *testing.T) {
	s := newSession(t, ese.Config{Driver: &esetest.Driver{Link: esetest.NewLink(ese.Params{IFSC: 254}, nil)}})

	if s.IsOpen() {
		t.Error("new session reports open")
	}
	_ = s.Init()
	if !s.IsOpen() {
		t.Error("initialised session reports closed")
	}
	_ = s.Close()
	if s.IsOpen() {
		t.Error("closed session reports open")
	}
}

func TestSession_Logging(t *testing.T) {
	var buf bytes.Buffer
	factory := logging.NewDefaultLoggerFactory()
	factory.Writer = &buf
	factory.DefaultLogLevel = logging.LogLevelDebug

	l := esetest.NewLink(ese.Params{IFSC: 32, IFSD: 258}, nil)
	s := newSession(t, ese.Config{Driver: &esetest.Driver{Link: l}, LoggerFactory: factory})

	_ = s.Init()
	_, _ = s.Transceive(make([]byte, 40))
	_ = s.Close()

	out := buf.String()
	for _, want := range []string{"IFSC=32", "40 bytes in 2 frame(s)", "secure element closed"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
