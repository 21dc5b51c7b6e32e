package ese

import (
	"errors"
	"fmt"
	"testing"
)

func TestStatusOf(t *testing.T) {
	cause := errors.New("spi write timeout")

	tests := []struct {
		name string
		err  error
		want Status
	}{
		{"nil is success", nil, StatusSuccess},
		{"busy", ErrBusy, StatusBusy},
		{"not initialised", ErrNotInitialised, StatusNotInitialised},
		{"invalid parameter (wrapped)", fmt.Errorf("%w: empty command", ErrInvalidParameter), StatusInvalidParameter},
		{"transport failure with cause", fmt.Errorf("%w: frame 1/3: %w", ErrFailed, cause), StatusFailed},
		{"foreign error", cause, StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Errorf("StatusOf(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestStatus_String(t *testing.T) {
	tests := map[Status]string{
		StatusSuccess:          "SUCCESS",
		StatusFailed:           "FAILED",
		StatusBusy:             "BUSY",
		StatusNotInitialised:   "NOT_INITIALISED",
		StatusInvalidParameter: "INVALID_PARAMETER",
		Status(42):             "UNKNOWN",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}

func TestState_Gates(t *testing.T) {
	tests := []struct {
		state         State
		isOpen        bool
		canTransceive bool
	}{
		{StateClosed, false, false},
		{StateOpen, true, true},
		{StateIdle, true, true},
		{StateBusy, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := tt.state.IsOpen(); got != tt.isOpen {
				t.Errorf("IsOpen() = %v, want %v", got, tt.isOpen)
			}
			if got := tt.state.CanTransceive(); got != tt.canTransceive {
				t.Errorf("CanTransceive() = %v, want %v", got, tt.canTransceive)
			}
		})
	}
}

func TestParams_ResponseCapacity(t *testing.T) {
	if got := (Params{IFSC: 254, IFSD: 258}).ResponseCapacity(); got != 258 {
		t.Errorf("with IFSD: got %d, want 258", got)
	}
	if got := (Params{IFSC: 254}).ResponseCapacity(); got != 254 {
		t.Errorf("without IFSD: got %d, want 254", got)
	}
}
