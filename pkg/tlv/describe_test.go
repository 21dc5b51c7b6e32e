package tlv

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/moov-io/bertlv"
)

type reportTemplate struct {
	AID        []byte `tlv:"84"`
	Label      []byte `tlv:"50" fmt:"ascii"`
	MaxLength  []byte `tlv:"9F65" fmt:"int"`
	Fabricated []byte `fmt:"date"`
	Raw        []byte
	Empty      []byte `tlv:"99"`
	Unknown    []bertlv.TLV
}

func TestWriteStructFields(t *testing.T) {
	tmpl := reportTemplate{
		AID:        Hex("A000000151000000"),
		Label:      []byte{'I', 'S', 'D', 0x00},
		MaxLength:  Hex("00FF"),
		Fabricated: Hex("4123"),
		Raw:        Hex("CAFE"),
		Unknown:    []bertlv.TLV{{Tag: "DF01", Value: Hex("1234")}},
	}
	want := []string{
		"    - ISD.AID (84): A000000151000000",
		`    - ISD.Label (50): 49534400 ("ISD.")`,
		"    - ISD.MaxLength (9F65): 00FF (Dec: 255)",
		"    - ISD.Fabricated: 4123 (year digit 4, day 123)",
		"    - ISD.Raw: CAFE",
		"    - ISD.Unknown Tag DF01: 1234",
	}

	tests := []struct {
		name  string
		input any
		want  []string
	}{
		{"Pointer", &tmpl, want},
		{"Value", tmpl, want},
		{"Nil pointer", (*reportTemplate)(nil), []string{""}},
		{"Not a struct", 42, []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			WriteStructFields(&sb, "ISD", tt.input)
			if diff := cmp.Diff(tt.want, strings.Split(sb.String(), "\n")); diff != "" {
				t.Errorf("Mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriteStructFields_Separator(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("=== HEADER ===")
	WriteStructFields(&sb, "X", struct{ A []byte }{A: []byte{0x01}})

	if got, want := sb.String(), "=== HEADER ===\n    - X.A: 01"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		data   []byte
		format string
		want   string
	}{
		{Hex("0102"), FormatHex, "0102"},
		{[]byte("OK"), FormatASCII, `4F4B ("OK")`},
		{Hex("0100"), FormatInt, "0100 (Dec: 256)"},
		{Hex("0365"), FormatDate, "0365 (year digit 0, day 365)"},
		{Hex("01"), FormatDate, "01"},
	}

	for _, tt := range tests {
		if got := FormatValue(tt.data, tt.format); got != tt.want {
			t.Errorf("FormatValue(%X, %q) = %q, want %q", tt.data, tt.format, got, tt.want)
		}
	}
}

func TestMakeSafeASCII(t *testing.T) {
	in := []byte{'S', 'T', 0x00, 0x1F, 0x7F, '5', '4'}
	if got, want := MakeSafeASCII(in), "ST...54"; got != want {
		t.Errorf("MakeSafeASCII() = %q, want %q", got, want)
	}
}
