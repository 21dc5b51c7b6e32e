package tlv

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Hex joins hex fragments such as "80 CA", "9F7F 00" into bytes. Spaces are
// ignored. It panics on malformed input and is meant for fixtures.
func Hex(parts ...string) []byte {
	s := strings.ReplaceAll(strings.Join(parts, ""), " ", "")

	data, err := hex.DecodeString(s)
	if err != nil {
		panic(fmt.Sprintf("invalid input '%s': %v", s, err))
	}
	return data
}
