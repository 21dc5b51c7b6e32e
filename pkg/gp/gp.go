// Package gp runs GlobalPlatform card management queries against a secure
// element through an iso7816.Client.
//
// It covers what a host reads from an eSE before anything else: selecting
// the Issuer Security Domain (ISD) and reading the Card Production Life Cycle
// (CPLC) data and the card recognition data.
//
//	client := iso7816.NewClient(session)
//	isd, err := gp.SelectISD(client, nil)
//	...
//	cplc, err := gp.GetCPLC(client)
//	fmt.Println(cplc.Describe())
package gp

import (
	"fmt"

	"github.com/gregLibert/ese-session/pkg/iso7816"
)

// DefaultISDAID is the AID of the Issuer Security Domain defined by
// GlobalPlatform.
var DefaultISDAID = []byte{0xA0, 0x00, 0x00, 0x01, 0x51, 0x00, 0x00, 0x00}

// StatusError reports a command the card answered with a non-success status.
type StatusError struct {
	Command string
	Status  iso7816.StatusWord
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gp: %s: %s", e.Command, e.Status.Verbose())
}

// run sends cmd and returns the response data of a 9000 exchange.
func run(client *iso7816.Client, name string, cmd *iso7816.CommandAPDU) ([]byte, iso7816.Trace, error) {
	trace, err := client.Send(cmd)
	if err != nil {
		return nil, trace, fmt.Errorf("gp: %s: %w", name, err)
	}
	if !trace.IsSuccess() {
		return nil, trace, &StatusError{Command: name, Status: trace.Status()}
	}
	return trace.Data(), trace, nil
}

// getData builds GET DATA for a two-byte tag under the GlobalPlatform class.
func getData(tag uint16) *iso7816.CommandAPDU {
	return iso7816.NewCommandAPDU(
		iso7816.GlobalPlatformClass,
		iso7816.MustInstruction(iso7816.INS_GET_DATA),
		byte(tag>>8), byte(tag),
		nil, iso7816.MaxShortLe,
	)
}
