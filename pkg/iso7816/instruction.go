package iso7816

import (
	"fmt"

	"github.com/gregLibert/ese-session/pkg/bits"
)

// INSTRUCTION BYTE (INS), ISO/IEC 7816-4 clause 5.4.2.
//
// With an interindustry class, b1 set means the data field is BER-TLV encoded
// (B0 READ BINARY vs B1 READ BINARY with BER-TLV data). Values 6X and 9X are
// procedure bytes in T=0 and are never valid instructions.
//
// GlobalPlatform reuses some ISO codes under CLA 80
// with a different meaning (E6 is INSTALL, not TERMINATE DF). Name resolves a
// code against the class it is sent with.

// InsCode is a raw instruction byte.
type InsCode byte

// Interindustry instructions used around a secure element.
const (
	INS_DEACTIVATE_FILE             InsCode = 0x04
	INS_ERASE_RECORD                InsCode = 0x0C
	INS_ERASE_BINARY                InsCode = 0x0E
	INS_VERIFY                      InsCode = 0x20
	INS_MANAGE_SECURITY_ENVIRONMENT InsCode = 0x22
	INS_CHANGE_REFERENCE_DATA       InsCode = 0x24
	INS_PERFORM_SECURITY_OPERATION  InsCode = 0x2A
	INS_RESET_RETRY_COUNTER         InsCode = 0x2C
	INS_ACTIVATE_FILE               InsCode = 0x44
	INS_MANAGE_CHANNEL              InsCode = 0x70
	INS_EXTERNAL_AUTHENTICATE       InsCode = 0x82
	INS_GET_CHALLENGE               InsCode = 0x84
	INS_INTERNAL_AUTHENTICATE       InsCode = 0x88
	INS_SELECT                      InsCode = 0xA4
	INS_READ_BINARY                 InsCode = 0xB0
	INS_READ_BINARY_BER             InsCode = 0xB1
	INS_READ_RECORD                 InsCode = 0xB2
	INS_GET_RESPONSE                InsCode = 0xC0
	INS_ENVELOPE                    InsCode = 0xC2
	INS_GET_DATA                    InsCode = 0xCA
	INS_GET_DATA_BER                InsCode = 0xCB
	INS_UPDATE_BINARY               InsCode = 0xD6
	INS_PUT_DATA                    InsCode = 0xDA
	INS_UPDATE_RECORD               InsCode = 0xDC
	INS_CREATE_FILE                 InsCode = 0xE0
	INS_APPEND_RECORD               InsCode = 0xE2
	INS_DELETE_FILE                 InsCode = 0xE4
	INS_TERMINATE_DF                InsCode = 0xE6
	INS_TERMINATE_EF                InsCode = 0xE8
	INS_TERMINATE_CARD_USAGE        InsCode = 0xFE
)

// GlobalPlatform card management instructions, sent with CLA 80 or 84.
const (
	INS_GP_INITIALIZE_UPDATE InsCode = 0x50
	INS_GP_PUT_KEY           InsCode = 0xD8
	INS_GP_STORE_DATA        InsCode = 0xE2
	INS_GP_DELETE            InsCode = 0xE4
	INS_GP_INSTALL           InsCode = 0xE6
	INS_GP_LOAD              InsCode = 0xE8
	INS_GP_SET_STATUS        InsCode = 0xF0
	INS_GP_GET_STATUS        InsCode = 0xF2
)

var isoInsNames = map[InsCode]string{
	INS_DEACTIVATE_FILE:             "DEACTIVATE FILE",
	INS_ERASE_RECORD:                "ERASE RECORD",
	INS_ERASE_BINARY:                "ERASE BINARY",
	INS_VERIFY:                      "VERIFY",
	INS_MANAGE_SECURITY_ENVIRONMENT: "MANAGE SECURITY ENVIRONMENT",
	INS_CHANGE_REFERENCE_DATA:       "CHANGE REFERENCE DATA",
	INS_PERFORM_SECURITY_OPERATION:  "PERFORM SECURITY OPERATION",
	INS_RESET_RETRY_COUNTER:         "RESET RETRY COUNTER",
	INS_ACTIVATE_FILE:               "ACTIVATE FILE",
	INS_MANAGE_CHANNEL:              "MANAGE CHANNEL",
	INS_EXTERNAL_AUTHENTICATE:       "EXTERNAL AUTHENTICATE",
	INS_GET_CHALLENGE:               "GET CHALLENGE",
	INS_INTERNAL_AUTHENTICATE:       "INTERNAL AUTHENTICATE",
	INS_SELECT:                      "SELECT",
	INS_READ_BINARY:                 "READ BINARY",
	INS_READ_BINARY_BER:             "READ BINARY",
	INS_READ_RECORD:                 "READ RECORD",
	INS_GET_RESPONSE:                "GET RESPONSE",
	INS_ENVELOPE:                    "ENVELOPE",
	INS_GET_DATA:                    "GET DATA",
	INS_GET_DATA_BER:                "GET DATA",
	INS_UPDATE_BINARY:               "UPDATE BINARY",
	INS_PUT_DATA:                    "PUT DATA",
	INS_UPDATE_RECORD:               "UPDATE RECORD",
	INS_CREATE_FILE:                 "CREATE FILE",
	INS_APPEND_RECORD:               "APPEND RECORD",
	INS_DELETE_FILE:                 "DELETE FILE",
	INS_TERMINATE_DF:                "TERMINATE DF",
	INS_TERMINATE_EF:                "TERMINATE EF",
	INS_TERMINATE_CARD_USAGE:        "TERMINATE CARD USAGE",
}

var gpInsNames = map[InsCode]string{
	INS_GP_INITIALIZE_UPDATE: "INITIALIZE UPDATE",
	INS_GP_PUT_KEY:           "PUT KEY",
	INS_GP_STORE_DATA:        "STORE DATA",
	INS_GP_DELETE:            "DELETE",
	INS_GP_INSTALL:           "INSTALL",
	INS_GP_LOAD:              "LOAD",
	INS_GP_SET_STATUS:        "SET STATUS",
	INS_GP_GET_STATUS:        "GET STATUS",
}

// String returns the interindustry name of the code.
func (i InsCode) String() string {
	if name, ok := isoInsNames[i]; ok {
		return name
	}
	return fmt.Sprintf("InsCode(0x%02X)", byte(i))
}

// Name returns the name of the code as understood under class c:
// GlobalPlatform names take precedence for proprietary classes.
func (i InsCode) Name(c Class) string {
	if c.IsProprietary {
		if name, ok := gpInsNames[i]; ok {
			return name
		}
	}
	return i.String()
}

// Instruction is a validated INS byte.
type Instruction struct {
	Raw      InsCode
	IsBERTLV bool
}

// NewInstruction validates ins. 6X and 9X are rejected.
func NewInstruction(ins InsCode) (Instruction, error) {
	switch byte(ins) & 0xF0 {
	case 0x60, 0x90:
		return Instruction{}, fmt.Errorf("invalid INS 0x%02X: 6X and 9X are reserved", byte(ins))
	}
	return Instruction{Raw: ins, IsBERTLV: bits.IsSet(byte(ins), 1)}, nil
}

// MustInstruction is NewInstruction for constants known to be valid.
func MustInstruction(ins InsCode) Instruction {
	i, err := NewInstruction(ins)
	if err != nil {
		panic(err)
	}
	return i
}

// Verbose returns a one-line description of the instruction.
func (i Instruction) Verbose() string {
	format := "Standard"
	if i.IsBERTLV {
		format = "BER-TLV"
	}
	return fmt.Sprintf("INS: 0x%02X | Command: %s | Format: %s", byte(i.Raw), i.Raw, format)
}
