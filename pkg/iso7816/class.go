package iso7816

import (
	"fmt"

	"github.com/gregLibert/ese-session/pkg/bits"
)

// CLASS BYTE (CLA), ISO/IEC 7816-4 clause 5.4.1 and GlobalPlatform 11.1.4.
//
//	b8      0 interindustry, 1 proprietary
//	b7      0 first range (channels 0-3), 1 further range (channels 4-19)
//	b5      command chaining, more commands follow
//
//	first range    b4-b3 secure messaging, b2-b1 channel
//	further range  b6 secure messaging, b4-b1 channel minus 4
//
// GlobalPlatform commands use the proprietary class with the interindustry
// layout underneath: 80 is channel 0 without secure messaging, 84 adds it.

// SecureMessaging is the secure messaging indication of a CLA byte.
type SecureMessaging int

const (
	// SMNone: no secure messaging or no indication.
	SMNone SecureMessaging = 0
	// SMProprietary: proprietary format. First range only.
	SMProprietary SecureMessaging = 1
	// SMHeaderNoProc: ISO secure messaging, header not processed.
	SMHeaderNoProc SecureMessaging = 2
	// SMHeaderAuth: ISO secure messaging, header authenticated. First range only.
	SMHeaderAuth SecureMessaging = 3
)

func (sm SecureMessaging) String() string {
	switch sm {
	case SMNone:
		return "none"
	case SMProprietary:
		return "proprietary"
	case SMHeaderNoProc:
		return "ISO, header not processed"
	case SMHeaderAuth:
		return "ISO, header authenticated"
	default:
		return fmt.Sprintf("SecureMessaging(%d)", int(sm))
	}
}

// Class is a decoded CLA byte.
type Class struct {
	Raw             byte
	IsProprietary   bool
	IsChained       bool
	SecureMessaging SecureMessaging
	Channel         uint8 // 0-19
}

var (
	// BasicClass is CLA 00: interindustry, basic channel.
	BasicClass = Class{Raw: 0x00}

	// GlobalPlatformClass is CLA 80: GlobalPlatform commands on the basic channel.
	GlobalPlatformClass = Class{Raw: 0x80, IsProprietary: true}
)

// NewClass decodes a raw CLA byte. 0xFF is reserved for PPS and rejected.
func NewClass(cla byte) (Class, error) {
	if cla == 0xFF {
		return Class{}, fmt.Errorf("invalid CLA value: 0xFF is reserved")
	}

	c := Class{
		Raw:           cla,
		IsProprietary: bits.IsSet(cla, 8),
		IsChained:     bits.IsSet(cla, 5),
	}

	if bits.IsSet(cla, 7) {
		c.Channel = bits.GetRange(cla, 4, 1) + 4
		if bits.IsSet(cla, 6) {
			c.SecureMessaging = SMHeaderNoProc
		}
		return c, nil
	}

	c.SecureMessaging = SecureMessaging(bits.GetRange(cla, 4, 3))
	c.Channel = bits.GetRange(cla, 2, 1)
	return c, nil
}

// NewInterindustryClass builds an interindustry CLA. The first or further
// range is picked from the channel number.
func NewInterindustryClass(isChained bool, sm SecureMessaging, channel uint8) (Class, error) {
	return newClass(false, isChained, sm, channel)
}

// NewGlobalPlatformClass builds a proprietary CLA with the interindustry
// layout, as used by GlobalPlatform card management commands.
func NewGlobalPlatformClass(isChained bool, sm SecureMessaging, channel uint8) (Class, error) {
	return newClass(true, isChained, sm, channel)
}

func newClass(proprietary, isChained bool, sm SecureMessaging, channel uint8) (Class, error) {
	if channel > 19 {
		return Class{}, fmt.Errorf("channel %d out of range (max 19)", channel)
	}
	if channel >= 4 && (sm == SMProprietary || sm == SMHeaderAuth) {
		return Class{}, fmt.Errorf("SM indicator %d not supported for further interindustry range (ch 4-19)", sm)
	}

	c := Class{
		IsProprietary:   proprietary,
		IsChained:       isChained,
		SecureMessaging: sm,
		Channel:         channel,
	}
	c.Raw = c.layout()
	return c, nil
}

// layout computes the CLA byte from the decoded fields.
func (c Class) layout() byte {
	var b byte
	if c.IsChained {
		b = bits.Set(b, 5)
	}

	if c.Channel <= 3 {
		b = bits.PutRange(b, 4, 3, byte(c.SecureMessaging))
		b = bits.PutRange(b, 2, 1, c.Channel)
	} else {
		b = bits.Set(b, 7)
		if c.SecureMessaging != SMNone {
			b = bits.Set(b, 6)
		}
		b = bits.PutRange(b, 4, 1, c.Channel-4)
	}

	if c.IsProprietary {
		b = bits.Set(b, 8)
	}
	return b
}

// Encode returns the CLA byte. A proprietary class that does not follow the
// interindustry layout (for example one built by NewClass from an arbitrary
// byte) is returned as decoded.
func (c *Class) Encode() (byte, error) {
	if c.Channel > 19 {
		return 0, fmt.Errorf("channel %d out of range (max 19)", c.Channel)
	}
	if c.IsProprietary {
		if c.Raw != 0 {
			return c.withChaining(c.Raw), nil
		}
		return c.layout(), nil
	}
	return c.layout(), nil
}

func (c *Class) withChaining(b byte) byte {
	if c.IsChained {
		return bits.Set(b, 5)
	}
	return bits.Clear(b, 5)
}

// Unchained returns a copy of c with the chaining bit cleared.
func (c Class) Unchained() Class {
	c.IsChained = false
	c.Raw = bits.Clear(c.Raw, 5)
	return c
}

// Verbose returns a one-line description of the class.
func (c Class) Verbose() string {
	kind := "Interindustry"
	if c.IsProprietary {
		kind = "Proprietary"
	}
	chain := "last or only"
	if c.IsChained {
		chain = "chained"
	}
	return fmt.Sprintf("CLA %02X: %s, channel %d, %s, SM %s", c.Raw, kind, c.Channel, chain, c.SecureMessaging)
}
