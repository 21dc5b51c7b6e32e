package gp

import (
	"fmt"
	"strings"

	"github.com/gregLibert/ese-session/pkg/iso7816"
	"github.com/gregLibert/ese-session/pkg/tlv"
	"github.com/moov-io/bertlv"
)

// SECURITY DOMAIN FCI (GlobalPlatform Card 2.3, section 11.9.3):
//
//	6F  FCI template
//	    84  AID of the selected security domain
//	    A5  proprietary data
//	        73    security domain management data
//	        9F6E  application production life cycle data
//	        9F65  maximum length of data field in command message

// SecurityDomainFCI is the answer to SELECT of a security domain.
type SecurityDomainFCI struct {
	AID         []byte             `tlv:"84"`
	Proprietary SecurityDomainData `tlv:"A5"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// SecurityDomainData is tag A5 of the FCI.
type SecurityDomainData struct {
	ManagementData      *ManagementData `tlv:"73"`
	ProductionLifeCycle []byte          `tlv:"9F6E"`
	MaxCommandLength    []byte          `tlv:"9F65" fmt:"int"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// ManagementData is the security domain management data (tag 73), also
// carried by the card recognition data. Each entry wraps an OID.
type ManagementData struct {
	RecognitionOID       []byte `tlv:"06"`
	CardManagementType   []byte `tlv:"60"`
	IdentificationScheme []byte `tlv:"63"`
	SecureChannel        []byte `tlv:"64"`
	ConfigurationDetails []byte `tlv:"65"`
	ChipDetails          []byte `tlv:"66"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// ParseSecurityDomainFCI decodes the data of a SELECT response. The 6F
// wrapper is optional.
func ParseSecurityDomainFCI(data []byte) (*SecurityDomainFCI, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data cannot be parsed")
	}

	packets, err := bertlv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("BER-TLV decode failed: %w", err)
	}

	fci := &SecurityDomainFCI{}
	if err := tlv.UnmarshalFromPackets(tlv.Unwrap(packets, "6F"), fci); err != nil {
		return nil, fmt.Errorf("failed to map structure: %w", err)
	}
	return fci, nil
}

// MaxCommandLength returns tag 9F65 as an integer, or 0 when absent.
func (f *SecurityDomainFCI) MaxCommandLength() int {
	n := 0
	for _, b := range f.Proprietary.MaxCommandLength {
		n = n<<8 | int(b)
	}
	return n
}

// Describe returns a text report of the FCI.
func (f *SecurityDomainFCI) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== SECURITY DOMAIN FCI ===")

	tlv.WriteStructFields(&sb, "FCI", f)
	tlv.WriteStructFields(&sb, "Proprietary", f.Proprietary)
	tlv.WriteStructFields(&sb, "Management", f.Proprietary.ManagementData)

	return sb.String()
}

// SelectISD selects the security domain aid, or the ISD when aid is empty,
// and decodes its FCI.
func SelectISD(client *iso7816.Client, aid []byte) (*SecurityDomainFCI, error) {
	if len(aid) == 0 {
		aid = DefaultISDAID
	}

	data, _, err := run(client, "SELECT", iso7816.SelectByAID(iso7816.BasicClass, aid))
	if err != nil {
		return nil, err
	}
	return ParseSecurityDomainFCI(data)
}
