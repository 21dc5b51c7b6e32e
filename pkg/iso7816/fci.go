package iso7816

import (
	"fmt"

	"github.com/gregLibert/ese-session/pkg/bits"
	"github.com/gregLibert/ese-session/pkg/tlv"
	"github.com/moov-io/bertlv"
)

// FILE CONTROL INFORMATION returned by SELECT, ISO/IEC 7816-4 clause 7.4.
//
//	6F  FCI template, may wrap 62 and 64 or hold their tags directly
//	62  FCP, file control parameters
//	64  FMD, file management data
//
// P2 b4-b3 of the SELECT tell which one to expect: 00 FCI, 01 FCP (62
// mandatory), 10 FMD (64 mandatory), 11 nothing. Security domains answer
// with a flat 6F holding 84 and A5.

// FCPTemplate is tag 62.
type FCPTemplate struct {
	DataSizeExcludingStruct []byte `tlv:"80" fmt:"int"`
	TotalFileSize           []byte `tlv:"81" fmt:"int"`
	FileDescriptor          []byte `tlv:"82"`
	FileIdentifier          []byte `tlv:"83"`
	DFName                  []byte `tlv:"84" fmt:"ascii"`
	ProprietaryInfoRaw      []byte `tlv:"85"`
	SecurityAttrProprietary []byte `tlv:"86"`
	ShortEFIdentifier       []byte `tlv:"88"`
	LifeCycleStatus         []byte `tlv:"8A"`
	SecurityAttrCompact     []byte `tlv:"8C"`
	ProprietaryDataBER      []byte `tlv:"A5"`
	SecurityAttrExpanded    []byte `tlv:"AB"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// FMDTemplate is tag 64.
type FMDTemplate struct {
	ApplicationIdentifier []byte `tlv:"84" fmt:"ascii"`
	ApplicationLabel      []byte `tlv:"50" fmt:"ascii"`
	ProprietaryData53     []byte `tlv:"53"`
	ProprietaryData73     []byte `tlv:"73"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// FileControlInfo is the decoded data field of a SELECT response.
type FileControlInfo struct {
	FCP *FCPTemplate
	FMD *FMDTemplate

	// Unknown holds tags of a flat FCI that neither template claims.
	Unknown []bertlv.TLV

	// ProprietaryRawData is set when the response is not BER-TLV at all.
	ProprietaryRawData []byte
}

// GetAID returns tag 84 from the FCP, else from the FMD.
func (fci *FileControlInfo) GetAID() []byte {
	if aid := fci.DFName(); len(aid) > 0 {
		return aid
	}
	if fci.FMD != nil && len(fci.FMD.ApplicationIdentifier) > 0 {
		return fci.FMD.ApplicationIdentifier
	}
	return nil
}

// DFName returns tag 84 of the FCP.
func (fci *FileControlInfo) DFName() []byte {
	if fci.FCP == nil {
		return nil
	}
	return fci.FCP.DFName
}

// ApplicationLabel returns tag 50 of the FMD.
func (fci *FileControlInfo) ApplicationLabel() []byte {
	if fci.FMD == nil {
		return nil
	}
	return fci.FMD.ApplicationLabel
}

// ParseSelectData decodes the data of a SELECT response sent with p2.
// It returns nil, nil for empty data or when p2 asked for none.
func ParseSelectData(data []byte, p2 byte) (*FileControlInfo, error) {
	if len(data) == 0 {
		return nil, nil
	}
	// Tags C0 and above are not valid first bytes of an ISO template.
	if data[0] >= 0xC0 {
		return &FileControlInfo{ProprietaryRawData: data}, nil
	}

	packets, err := bertlv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("BER-TLV decode failed: %w", err)
	}

	fci := &FileControlInfo{FCP: &FCPTemplate{}, FMD: &FMDTemplate{}}

	switch SelectionControl(bits.GetRange(p2, 4, 3) << 2) {
	case ReturnFCP:
		return fci, decodeTemplate(packets, "62", fci.FCP, true)
	case ReturnFMD:
		return fci, decodeTemplate(packets, "64", fci.FMD, true)
	case ReturnNoData:
		return nil, nil
	}

	inner := tlv.Unwrap(packets, "6F")
	if err := decodeTemplate(inner, "62", fci.FCP, false); err != nil {
		return nil, err
	}
	if err := decodeTemplate(inner, "64", fci.FMD, false); err != nil {
		return nil, err
	}
	_, hasFCP := tlv.Find(inner, "62")
	_, hasFMD := tlv.Find(inner, "64")
	if hasFCP || hasFMD {
		return fci, nil
	}

	// Flat FCI: FCP tags first, whatever is left goes to the FMD.
	if err := tlv.UnmarshalFromPackets(inner, fci.FCP); err != nil {
		return nil, fmt.Errorf("flat FCP unmarshal failed: %w", err)
	}
	rest := fci.FCP.Unknown
	fci.FCP.Unknown = nil
	if err := tlv.UnmarshalFromPackets(rest, fci.FMD); err != nil {
		return nil, fmt.Errorf("flat FMD unmarshal failed: %w", err)
	}
	fci.Unknown, fci.FMD.Unknown = fci.FMD.Unknown, nil
	return fci, nil
}

// decodeTemplate maps the children of tag into target. A missing tag is an
// error only when mandatory.
func decodeTemplate(packets []bertlv.TLV, tag string, target any, mandatory bool) error {
	p, ok := tlv.Find(packets, tag)
	if !ok {
		if mandatory {
			return fmt.Errorf("mandatory tag '%s' not found", tag)
		}
		return nil
	}
	if err := tlv.UnmarshalFromPackets(p.TLVs, target); err != nil {
		return fmt.Errorf("template %s: %w", tag, err)
	}
	return nil
}
