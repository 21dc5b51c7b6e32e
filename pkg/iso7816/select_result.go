package iso7816

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gregLibert/ese-session/pkg/tlv"
)

// SelectResult is the trace of a SELECT with helpers to read its FCI.
type SelectResult struct {
	Trace
}

// NewSelectResult wraps t, which must start with a SELECT.
func NewSelectResult(t Trace) (*SelectResult, error) {
	if len(t) == 0 {
		return nil, errors.New("cannot create result from empty trace")
	}
	if ins := t[0].Command.Instruction.Raw; ins != INS_SELECT {
		return nil, fmt.Errorf("trace must start with SELECT command (got %02X)", byte(ins))
	}
	return &SelectResult{Trace: t}, nil
}

// FCI decodes the response data according to P2 of the SELECT.
func (r *SelectResult) FCI() (*FileControlInfo, error) {
	if !r.IsSuccess() {
		return nil, fmt.Errorf("selection failed (%s), cannot parse FCI", r.Status().Verbose())
	}
	data := r.Data()
	if len(data) == 0 {
		return nil, errors.New("no response data found")
	}
	return ParseSelectData(data, r.Trace[0].Command.P2)
}

// Describe returns a text report of the selection and its FCI.
func (r *SelectResult) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== SELECT COMMAND REPORT ===\n")

	cmd := r.Trace[0].Command
	fmt.Fprintf(&sb, "[1] %s\n", cmd)
	fmt.Fprintf(&sb, "    + Method:  %02X -> %s\n", cmd.P1, SelectionMethod(cmd.P1))
	fmt.Fprintf(&sb, "    + Control: %02X -> %s | %s\n", cmd.P2, FileOccurrence(cmd.P2&0x03), SelectionControl(cmd.P2&0x0C))
	if len(cmd.Data) > 0 {
		fmt.Fprintf(&sb, "    + Data:    %s\n", tlv.FormatValue(cmd.Data, tlv.FormatASCII))
	}

	for i, tx := range r.Trace {
		if tx.Response == nil {
			continue
		}
		mark := "[OK]"
		if !tx.Response.Status.IsSuccess() {
			mark = "[!!]"
		}
		step := "SELECT"
		if i > 0 {
			step = tx.Command.Instruction.Raw.Name(tx.Command.Class)
		}
		fmt.Fprintf(&sb, "    + Step %d:  %-12s [%04X] %s %s (%d bytes)\n",
			i+1, step, uint16(tx.Response.Status), mark, tx.Response.Status.Verbose(), len(tx.Response.Data))
	}

	sb.WriteString("[=] FINAL OUTCOME:\n")
	fci, err := r.FCI()
	if err != nil {
		fmt.Fprintf(&sb, "    - %v", err)
		return sb.String()
	}
	if fci == nil {
		sb.WriteString("    - No Data returned to parse.")
		return sb.String()
	}

	var body strings.Builder
	tlv.WriteStructFields(&body, "FCP", fci.FCP)
	tlv.WriteStructFields(&body, "FMD", fci.FMD)
	tlv.WriteStructFields(&body, "FCI", struct{ Proprietary []byte }{fci.ProprietaryRawData})
	for _, u := range fci.Unknown {
		if body.Len() > 0 {
			body.WriteString("\n")
		}
		fmt.Fprintf(&body, "    - FCI.Unknown Tag %s: %X", u.Tag, u.Value)
	}
	sb.WriteString(body.String())
	return sb.String()
}
