package gp

import (
	"fmt"
	"strings"

	"github.com/gregLibert/ese-session/pkg/iso7816"
	"github.com/gregLibert/ese-session/pkg/tlv"
)

// CARD PRODUCTION LIFE CYCLE data, GET DATA tag 9F7F.
//
// A fixed layout of 42 bytes: who made the chip and its OS, and who handled
// it during module packaging, embedding, pre-personalisation and
// personalisation. Dates are packed YDDD (last digit of the year, day of the
// year).

// TagCPLC is the GET DATA tag of the CPLC.
const TagCPLC = 0x9F7F

// CPLCLength is the length of the CPLC record.
const CPLCLength = 42

// CPLC is the Card Production Life Cycle record.
type CPLC struct {
	ICFabricator                      []byte
	ICType                            []byte
	OperatingSystemID                 []byte
	OperatingSystemReleaseDate        []byte `fmt:"date"`
	OperatingSystemReleaseLevel       []byte
	ICFabricationDate                 []byte `fmt:"date"`
	ICSerialNumber                    []byte
	ICBatchIdentifier                 []byte
	ICModuleFabricator                []byte
	ICModulePackagingDate             []byte `fmt:"date"`
	ICCManufacturer                   []byte
	ICEmbeddingDate                   []byte `fmt:"date"`
	ICPrePersonalizer                 []byte
	ICPrePersonalizationEquipmentDate []byte `fmt:"date"`
	ICPrePersonalizationEquipmentID   []byte
	ICPersonalizer                    []byte
	ICPersonalizationDate             []byte `fmt:"date"`
	ICPersonalizationEquipmentID      []byte
}

func (c *CPLC) layout() []struct {
	dst  *[]byte
	size int
} {
	return []struct {
		dst  *[]byte
		size int
	}{
		{&c.ICFabricator, 2},
		{&c.ICType, 2},
		{&c.OperatingSystemID, 2},
		{&c.OperatingSystemReleaseDate, 2},
		{&c.OperatingSystemReleaseLevel, 2},
		{&c.ICFabricationDate, 2},
		{&c.ICSerialNumber, 4},
		{&c.ICBatchIdentifier, 2},
		{&c.ICModuleFabricator, 2},
		{&c.ICModulePackagingDate, 2},
		{&c.ICCManufacturer, 2},
		{&c.ICEmbeddingDate, 2},
		{&c.ICPrePersonalizer, 2},
		{&c.ICPrePersonalizationEquipmentDate, 2},
		{&c.ICPrePersonalizationEquipmentID, 4},
		{&c.ICPersonalizer, 2},
		{&c.ICPersonalizationDate, 2},
		{&c.ICPersonalizationEquipmentID, 4},
	}
}

// ParseCPLC decodes the CPLC record. data is either the bare 42 bytes or
// the 9F7F TLV returned by GET DATA.
func ParseCPLC(data []byte) (*CPLC, error) {
	if len(data) != CPLCLength {
		v, err := tlv.GetValue(data, TagCPLC)
		if err != nil {
			return nil, fmt.Errorf("CPLC: %w", err)
		}
		data = v
	}
	if len(data) != CPLCLength {
		return nil, fmt.Errorf("CPLC: %d bytes, want %d", len(data), CPLCLength)
	}

	c := &CPLC{}
	off := 0
	for _, f := range c.layout() {
		*f.dst = data[off : off+f.size : off+f.size]
		off += f.size
	}
	return c, nil
}

// Bytes encodes the record back to its 42-byte form.
func (c *CPLC) Bytes() []byte {
	out := make([]byte, 0, CPLCLength)
	for _, f := range c.layout() {
		v := make([]byte, f.size)
		copy(v, *f.dst)
		out = append(out, v...)
	}
	return out
}

// Describe returns a text report of the record.
func (c *CPLC) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== CPLC ===")
	tlv.WriteStructFields(&sb, "CPLC", c)
	return sb.String()
}

// GetCPLC reads the CPLC with GET DATA 9F7F.
func GetCPLC(client *iso7816.Client) (*CPLC, error) {
	data, _, err := run(client, "GET DATA CPLC", getData(TagCPLC))
	if err != nil {
		return nil, err
	}
	return ParseCPLC(data)
}
