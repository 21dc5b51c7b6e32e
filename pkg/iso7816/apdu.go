package iso7816

import (
	"encoding/binary"
	"fmt"
)

// COMMAND APDU, ISO/IEC 7816-3 clause 12.1.
//
//	CLA INS P1 P2 [Lc Data] [Le]
//
//	case 1  header only
//	case 2  header Le
//	case 3  header Lc Data
//	case 4  header Lc Data Le
//
// Short form: Lc on 1 byte (1..255), Le on 1 byte (00 means 256).
// Extended form, used when Nc > 255 or Ne > 256: Lc is 00 followed by 2 bytes;
// Le is 2 bytes after data, or 00 plus 2 bytes when there is no data
// (0000 means 65536).
//
// RESPONSE APDU: [Data] SW1 SW2.

// APDU length limits.
const (
	// MaxShortLc is the largest Nc of the short form.
	MaxShortLc = 255

	// MaxShortLe is the largest Ne of the short form, encoded as 00.
	MaxShortLe = 256

	// MaxExtendedLc is the largest Nc of the extended form.
	MaxExtendedLc = 65535

	// MaxExtendedLe is the largest Ne of the extended form, encoded as 0000.
	MaxExtendedLe = 65536

	// MaxAPDUBufferSize holds the largest extended case 4 command plus one spare byte.
	MaxAPDUBufferSize = 4 + 3 + MaxExtendedLc + 2 + 1
)

// CommandAPDU is a command sent to the card.
type CommandAPDU struct {
	Class       Class
	Instruction Instruction
	P1, P2      byte
	Data        []byte
	Ne          int // expected response length, 0 for none
}

// NewCommandAPDU builds a command.
func NewCommandAPDU(cla Class, ins Instruction, p1, p2 byte, data []byte, ne int) *CommandAPDU {
	return &CommandAPDU{
		Class:       cla,
		Instruction: ins,
		P1:          p1,
		P2:          p2,
		Data:        data,
		Ne:          ne,
	}
}

// IsExtended reports whether the command needs the extended length form.
func (c *CommandAPDU) IsExtended() bool {
	return len(c.Data) > MaxShortLc || c.Ne > MaxShortLe
}

// Bytes encodes the command, picking the short or extended form.
func (c *CommandAPDU) Bytes() ([]byte, error) {
	nc, ne := len(c.Data), c.Ne
	if nc > MaxExtendedLc {
		return nil, fmt.Errorf("data too long: %d bytes (max %d)", nc, MaxExtendedLc)
	}
	if ne < 0 || ne > MaxExtendedLe {
		return nil, fmt.Errorf("invalid Ne %d (max %d)", ne, MaxExtendedLe)
	}

	cla, err := c.Class.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode Class: %w", err)
	}

	out := make([]byte, 0, 4+3+nc+3)
	out = append(out, cla, byte(c.Instruction.Raw), c.P1, c.P2)

	if !c.IsExtended() {
		if nc > 0 {
			out = append(out, byte(nc))
			out = append(out, c.Data...)
		}
		if ne > 0 {
			out = append(out, byte(ne)) // 256 wraps to 00
		}
		return out, nil
	}

	if nc > 0 {
		out = append(out, 0x00)
		out = binary.BigEndian.AppendUint16(out, uint16(nc))
		out = append(out, c.Data...)
	}
	if ne > 0 {
		if nc == 0 {
			out = append(out, 0x00)
		}
		out = binary.BigEndian.AppendUint16(out, uint16(ne)) // 65536 wraps to 0000
	}
	return out, nil
}

// ParseCommandAPDU decodes a raw command of any case.
func ParseCommandAPDU(raw []byte) (*CommandAPDU, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("command too short: length %d", len(raw))
	}

	cla, err := NewClass(raw[0])
	if err != nil {
		return nil, err
	}
	ins, err := NewInstruction(InsCode(raw[1]))
	if err != nil {
		return nil, err
	}
	cmd := NewCommandAPDU(cla, ins, raw[2], raw[3], nil, 0)

	body := raw[4:]
	switch {
	case len(body) == 0:
		return cmd, nil

	case len(body) == 1:
		cmd.Ne = shortLe(body[0])
		return cmd, nil

	case body[0] != 0:
		nc := int(body[0])
		switch len(body) {
		case 1 + nc:
		case 2 + nc:
			cmd.Ne = shortLe(body[1+nc])
		default:
			return nil, fmt.Errorf("short Lc %d does not match body length %d", nc, len(body))
		}
		cmd.Data = body[1 : 1+nc]
		return cmd, nil

	case len(body) == 3:
		cmd.Ne = extendedLe(body[1:3])
		return cmd, nil

	case len(body) > 3:
		nc := int(binary.BigEndian.Uint16(body[1:3]))
		if nc == 0 {
			return nil, fmt.Errorf("extended Lc of zero")
		}
		switch len(body) {
		case 3 + nc:
		case 5 + nc:
			cmd.Ne = extendedLe(body[3+nc:])
		default:
			return nil, fmt.Errorf("extended Lc %d does not match body length %d", nc, len(body))
		}
		cmd.Data = body[3 : 3+nc]
		return cmd, nil

	default:
		return nil, fmt.Errorf("malformed body of %d bytes", len(body))
	}
}

func shortLe(b byte) int {
	if b == 0 {
		return MaxShortLe
	}
	return int(b)
}

func extendedLe(b []byte) int {
	if n := int(binary.BigEndian.Uint16(b)); n != 0 {
		return n
	}
	return MaxExtendedLe
}

// String summarises the command header and lengths.
func (c *CommandAPDU) String() string {
	return fmt.Sprintf("%s | CLA: %02X | P1: %02X, P2: %02X | Lc: %d | Le: %d",
		c.Instruction.Raw.Name(c.Class), c.Class.Raw, c.P1, c.P2, len(c.Data), c.Ne)
}

// ResponseAPDU is the reply of the card.
type ResponseAPDU struct {
	Data   []byte
	Status StatusWord
}

// ParseResponseAPDU splits raw into data and status word. At least SW1 SW2
// must be present.
func ParseResponseAPDU(raw []byte) (*ResponseAPDU, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("response too short: length %d", len(raw))
	}

	n := len(raw) - 2
	return &ResponseAPDU{
		Data:   raw[:n:n],
		Status: NewStatusWord(raw[n], raw[n+1]),
	}, nil
}

// Bytes encodes the response.
func (r *ResponseAPDU) Bytes() []byte {
	out := make([]byte, 0, len(r.Data)+2)
	out = append(out, r.Data...)
	return binary.BigEndian.AppendUint16(out, uint16(r.Status))
}

// String summarises the response.
func (r *ResponseAPDU) String() string {
	return fmt.Sprintf("Data (%d bytes) | Status: %s", len(r.Data), r.Status.Verbose())
}
