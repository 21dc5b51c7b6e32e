package iso7816

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gregLibert/ese-session/pkg/tlv"
)

// scriptedCard answers each command with the next queued response and
// records what it received.
type scriptedCard struct {
	responses [][]byte
	received  [][]byte
	err       error
}

func (c *scriptedCard) Transmit(cmd []byte) ([]byte, error) {
	c.received = append(c.received, append([]byte(nil), cmd...))
	if c.err != nil {
		return nil, c.err
	}
	if len(c.responses) == 0 {
		return tlv.Hex("6F00"), nil
	}
	rsp := c.responses[0]
	c.responses = c.responses[1:]
	return rsp, nil
}

func TestClient_Send(t *testing.T) {
	cplc := NewCommandAPDU(GlobalPlatformClass, MustInstruction(INS_GET_DATA), 0x9F, 0x7F, nil, MaxShortLe)
	ch2, _ := NewGlobalPlatformClass(false, SMNone, 2)
	onChannel2 := NewCommandAPDU(ch2, MustInstruction(INS_GET_DATA), 0x9F, 0x7F, nil, MaxShortLe)

	tests := []struct {
		name      string
		cmd       *CommandAPDU
		responses []string
		wantSent  []string
		wantData  []byte
		wantSW    StatusWord
	}{
		{
			name:      "Direct answer",
			cmd:       cplc,
			responses: []string{"0102 9000"},
			wantSent:  []string{"80CA9F7F00"},
			wantData:  tlv.Hex("0102"),
			wantSW:    SW_NO_ERROR,
		},
		{
			name:      "61XX chain accumulates data",
			cmd:       cplc,
			responses: []string{"01 6102", "0203 6101", "04 9000"},
			wantSent:  []string{"80CA9F7F00", "00C0000002", "00C0000001"},
			wantData:  tlv.Hex("01020304"),
			wantSW:    SW_NO_ERROR,
		},
		{
			name:      "6CXX re-sends with the announced Le",
			cmd:       cplc,
			responses: []string{"6C2D", "AA 9000"},
			wantSent:  []string{"80CA9F7F00", "80CA9F7F2D"},
			wantData:  tlv.Hex("AA"),
			wantSW:    SW_NO_ERROR,
		},
		{
			name:      "GET RESPONSE stays on the logical channel",
			cmd:       onChannel2,
			responses: []string{"6101", "FF 9000"},
			wantSent:  []string{"82CA9F7F00", "02C0000001"},
			wantData:  tlv.Hex("FF"),
			wantSW:    SW_NO_ERROR,
		},
		{
			name:      "Error status ends the exchange",
			cmd:       cplc,
			responses: []string{"6A88"},
			wantSent:  []string{"80CA9F7F00"},
			wantSW:    SW_ERR_REF_DATA_NOT_FOUND,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := &scriptedCard{}
			for _, r := range tt.responses {
				card.responses = append(card.responses, tlv.Hex(r))
			}

			trace, err := NewClient(card).Send(tt.cmd)
			if err != nil {
				t.Fatalf("Send: %v", err)
			}

			var sent []string
			for _, c := range card.received {
				sent = append(sent, fmt.Sprintf("%X", c))
			}
			if diff := cmp.Diff(tt.wantSent, sent); diff != "" {
				t.Errorf("commands mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantData, trace.Data()); diff != "" {
				t.Errorf("data mismatch (-want +got):\n%s", diff)
			}
			if trace.Status() != tt.wantSW {
				t.Errorf("Status() = %04X, want %04X", uint16(trace.Status()), uint16(tt.wantSW))
			}
			if len(trace) != len(tt.wantSent) {
				t.Errorf("trace has %d transactions, want %d", len(trace), len(tt.wantSent))
			}
		})
	}
}

func TestClient_MaxAutoSteps(t *testing.T) {
	card := &scriptedCard{}
	for i := 0; i < 10; i++ {
		card.responses = append(card.responses, tlv.Hex("00 6101"))
	}

	client := &Client{Card: card, MaxAutoSteps: 3}
	trace, err := client.Send(SelectByAID(BasicClass, tlv.Hex("A000000151000000")))
	if !errors.Is(err, ErrTooManySteps) {
		t.Fatalf("Send() error = %v, want ErrTooManySteps", err)
	}
	if len(trace) != 3 || len(card.received) != 3 {
		t.Errorf("got %d transactions and %d transmissions, want 3", len(trace), len(card.received))
	}
}

func TestClient_Errors(t *testing.T) {
	t.Run("Transmit failure", func(t *testing.T) {
		linkErr := errors.New("link down")
		_, err := NewClient(&scriptedCard{err: linkErr}).Send(SelectMF(BasicClass))
		if !errors.Is(err, linkErr) {
			t.Errorf("Send() error = %v, want %v", err, linkErr)
		}
	})

	t.Run("Truncated response", func(t *testing.T) {
		card := &scriptedCard{responses: [][]byte{{0x90}}}
		if _, err := NewClient(card).Send(SelectMF(BasicClass)); err == nil {
			t.Error("a one-byte response should fail")
		}
	})

	t.Run("Unencodable command", func(t *testing.T) {
		card := &scriptedCard{}
		cmd := NewCommandAPDU(BasicClass, MustInstruction(INS_GET_DATA), 0, 0, nil, -1)
		if _, err := NewClient(card).Send(cmd); err == nil {
			t.Error("negative Ne should fail")
		}
		if len(card.received) != 0 {
			t.Error("nothing should reach the card")
		}
	})
}
