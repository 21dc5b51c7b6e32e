package iso7816

import (
	"errors"
	"fmt"
)

// DefaultMaxAutoSteps bounds the transactions of one Send when the Client
// does not set MaxAutoSteps.
const DefaultMaxAutoSteps = 16

// ErrTooManySteps is returned when the card keeps asking for GET RESPONSE or
// a new Le past the step limit.
var ErrTooManySteps = errors.New("iso7816: too many automatic steps")

// Transmitter sends one complete C-APDU and returns the complete R-APDU.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// Client runs logical commands over a Transmitter, answering 61XX with
// GET RESPONSE and 6CXX with a re-send using the announced Le.
type Client struct {
	Card Transmitter

	// MaxAutoSteps is the largest number of transactions of one Send.
	// Default: DefaultMaxAutoSteps
	MaxAutoSteps int
}

// NewClient returns a Client for card.
func NewClient(card Transmitter) *Client {
	return &Client{Card: card}
}

// Send runs cmd and returns every transaction it took. On error the trace
// holds the transactions completed so far.
func (c *Client) Send(cmd *CommandAPDU) (Trace, error) {
	limit := c.MaxAutoSteps
	if limit <= 0 {
		limit = DefaultMaxAutoSteps
	}

	var trace Trace
	next := cmd
	for next != nil {
		if len(trace) == limit {
			return trace, fmt.Errorf("%w: %d transactions for %s", ErrTooManySteps, limit, cmd.Instruction.Raw.Name(cmd.Class))
		}

		resp, err := c.exchange(next)
		if err != nil {
			return trace, err
		}
		trace = append(trace, Transaction{Command: next, Response: resp})
		next = c.followUp(cmd, next, resp.Status)
	}
	return trace, nil
}

func (c *Client) exchange(cmd *CommandAPDU) (*ResponseAPDU, error) {
	raw, err := cmd.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}

	rsp, err := c.Card.Transmit(raw)
	if err != nil {
		return nil, fmt.Errorf("transmission error: %w", err)
	}
	return ParseResponseAPDU(rsp)
}

// followUp returns the command answering sw, or nil when the exchange is over.
func (c *Client) followUp(orig, last *CommandAPDU, sw StatusWord) *CommandAPDU {
	switch sw.SW1() {
	case 0x61:
		return NewCommandAPDU(responseClass(orig.Class), MustInstruction(INS_GET_RESPONSE), 0x00, 0x00, nil, shortLe(sw.SW2()))
	case 0x6C:
		retry := *last
		retry.Ne = shortLe(sw.SW2())
		return &retry
	}
	return nil
}

// responseClass returns the interindustry class GET RESPONSE is sent with:
// same logical channel as cls, no chaining.
func responseClass(cls Class) Class {
	if !cls.IsProprietary {
		return cls.Unchained()
	}
	rc, err := NewInterindustryClass(false, SMNone, cls.Channel)
	if err != nil {
		return BasicClass
	}
	return rc
}
