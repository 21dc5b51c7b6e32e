package iso7816

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gregLibert/ese-session/pkg/tlv"
)

func TestParseSelectData(t *testing.T) {
	const (
		p2FCI    = byte(ReturnFCI)
		p2FCP    = byte(ReturnFCP)
		p2FMD    = byte(ReturnFMD)
		p2NoData = byte(ReturnNoData)
	)

	tests := []struct {
		name      string
		data      []byte
		p2        byte
		wantAID   []byte
		wantLabel string
		wantErr   bool
		wantNil   bool
		check     func(*testing.T, *FileControlInfo)
	}{
		{
			name:    "FCP wrapped in 6F",
			data:    tlv.Hex("6F 09", "62 07", "84 05 A000000001"),
			p2:      p2FCI,
			wantAID: tlv.Hex("A000000001"),
		},
		{
			name:      "FMD wrapped in 6F",
			data:      tlv.Hex("6F 07", "64 05", "50 03 455345"),
			p2:        p2FCI,
			wantLabel: "ESE",
		},
		{
			name:    "Mandatory 62",
			data:    tlv.Hex("62 07", "84 05 A000000002"),
			p2:      p2FCP,
			wantAID: tlv.Hex("A000000002"),
		},
		{
			name:      "Mandatory 64",
			data:      tlv.Hex("64 05", "50 03 495344"),
			p2:        p2FMD,
			wantLabel: "ISD",
		},
		{
			name:    "FMD received for an FCP request",
			data:    tlv.Hex("64 05", "50 03 495344"),
			p2:      p2FCP,
			wantErr: true,
		},
		{
			name:    "No data requested",
			data:    tlv.Hex("62 00"),
			p2:      p2NoData,
			wantNil: true,
		},
		{
			name:    "Empty data",
			p2:      p2FCI,
			wantNil: true,
		},
		{
			name: "Proprietary payload",
			data: tlv.Hex("C0 01 FF"),
			p2:   p2FCI,
			check: func(t *testing.T, fci *FileControlInfo) {
				if diff := cmp.Diff(tlv.Hex("C0 01 FF"), fci.ProprietaryRawData); diff != "" {
					t.Errorf("raw data mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name: "Security domain flat FCI",
			data: tlv.Hex(
				"6F 10",
				"84 08 A000000151000000", // ISD AID
				"A5 04 9F6E 01 01",       // proprietary data
			),
			p2:      p2FCI,
			wantAID: tlv.Hex("A000000151000000"),
			check: func(t *testing.T, fci *FileControlInfo) {
				if diff := cmp.Diff(tlv.Hex("9F6E 01 01"), fci.FCP.ProprietaryDataBER); diff != "" {
					t.Errorf("A5 mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name: "Flat FCI leftovers",
			data: tlv.Hex("84 05 A000000003", "50 02 4F4B", "99 01 01"),
			p2:   p2FCI,
			check: func(t *testing.T, fci *FileControlInfo) {
				if string(fci.ApplicationLabel()) != "OK" {
					t.Errorf("label = %q", fci.ApplicationLabel())
				}
				if len(fci.Unknown) != 1 || !strings.EqualFold(fci.Unknown[0].Tag, "99") {
					t.Errorf("unknown tags = %+v", fci.Unknown)
				}
			},
		},
		{
			name: "Unknown tag inside FCP",
			data: tlv.Hex("62 0B", "84 05 A000000004", "99 02 CAFE"),
			p2:   p2FCP,
			check: func(t *testing.T, fci *FileControlInfo) {
				if len(fci.FCP.Unknown) != 1 || !cmp.Equal(fci.FCP.Unknown[0].Value, tlv.Hex("CAFE")) {
					t.Errorf("FCP.Unknown = %+v", fci.FCP.Unknown)
				}
			},
		},
		{
			name:    "Truncated TLV",
			data:    tlv.Hex("6F 05 84"),
			p2:      p2FCI,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSelectData(tt.data, tt.p2)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSelectData() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("expected no FCI, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("Expected result, got nil")
			}

			if tt.wantAID != nil {
				if diff := cmp.Diff(tt.wantAID, got.GetAID()); diff != "" {
					t.Errorf("AID mismatch (-want +got):\n%s", diff)
				}
			}
			if tt.wantLabel != "" && string(got.ApplicationLabel()) != tt.wantLabel {
				t.Errorf("Label mismatch. Got %s, want %s", got.ApplicationLabel(), tt.wantLabel)
			}
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}
