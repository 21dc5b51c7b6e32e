package iso7816

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gregLibert/ese-session/pkg/tlv"
)

func TestNewSelectCommand(t *testing.T) {
	isd := tlv.Hex("A000000151000000")
	ch1, _ := NewInterindustryClass(false, SMNone, 1)

	tests := []struct {
		name string
		cmd  *CommandAPDU
		want []byte
	}{
		{
			name: "Select ISD by AID",
			cmd:  SelectByAID(BasicClass, isd),
			want: tlv.Hex(
				"00 A4 04 00",         // P1=04 by AID, P2=00 FCI first
				"08 A000000151000000", // Lc, AID
				"00",                  // Le=256, case 4 over T=1
			),
		},
		{
			name: "Select next on channel 1",
			cmd:  SelectNext(ch1, tlv.Hex("A0000001")),
			want: tlv.Hex("01 A4 04 02 04 A0000001 00"),
		},
		{
			name: "Select MF",
			cmd:  SelectMF(BasicClass),
			want: tlv.Hex("00 A4 00 00 00"),
		},
		{
			name: "No response data",
			cmd:  NewSelectCommand(BasicClass, SelectByDFName, FirstOrOnlyOccurrence, ReturnNoData, isd),
			want: tlv.Hex("00 A4 04 0C 08 A000000151000000"),
		},
		{
			name: "FCP of the next occurrence",
			cmd:  NewSelectCommand(BasicClass, SelectByFileID, NextOccurrence, ReturnFCP, tlv.Hex("3F00")),
			want: tlv.Hex("00 A4 00 06 02 3F00 00"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.Bytes()
			if err != nil {
				t.Fatalf("Failed to encode bytes: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelectStrings(t *testing.T) {
	if got := SelectByDFName.String(); got != "Select by DF Name (AID)" {
		t.Errorf("SelectionMethod.String() = %q", got)
	}
	if got := SelectionMethod(0x7F).String(); got != "Unknown Method (0x7F)" {
		t.Errorf("unknown SelectionMethod.String() = %q", got)
	}
	if got := NextOccurrence.String(); got != "Next" {
		t.Errorf("FileOccurrence.String() = %q", got)
	}
	if got := ReturnNoData.String(); got != "No Response Data" {
		t.Errorf("SelectionControl.String() = %q", got)
	}
}
