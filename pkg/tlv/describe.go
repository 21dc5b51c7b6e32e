package tlv

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/moov-io/bertlv"
)

// Display formats selected with the `fmt` struct tag.
const (
	FormatHex   = ""      // upper-case hex
	FormatASCII = "ascii" // hex followed by printable text
	FormatInt   = "int"   // hex followed by the big-endian unsigned value
	FormatDate  = "date"  // 2-byte packed date YDDD (last year digit, day of year)
)

// WriteStructFields appends one line per populated []byte field of s, plus
// one line per collected unknown tag. Lines read "    - <prefix>.<Field> (<tag>): <value>".
// A separating newline is written first when sb already holds content; no
// trailing newline is written.
func WriteStructFields(sb *strings.Builder, prefix string, s any) {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}

	var lines []string
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f, sf := v.Field(i), t.Field(i)

		switch {
		case isByteSlice(f):
			if f.Len() == 0 {
				continue
			}
			name := sf.Name
			if tag := sf.Tag.Get("tlv"); tag != "" {
				name = fmt.Sprintf("%s (%s)", name, tag)
			}
			lines = append(lines, fmt.Sprintf("    - %s.%s: %s", prefix, name, FormatValue(f.Bytes(), sf.Tag.Get("fmt"))))

		case f.Type() == reflect.TypeOf([]bertlv.TLV(nil)):
			for _, p := range f.Interface().([]bertlv.TLV) {
				lines = append(lines, fmt.Sprintf("    - %s.Unknown Tag %s: %X", prefix, p.Tag, rawValue(p)))
			}
		}
	}

	if len(lines) == 0 {
		return
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Join(lines, "\n"))
}

// FormatValue renders data in one of the display formats.
func FormatValue(data []byte, format string) string {
	switch format {
	case FormatASCII:
		return fmt.Sprintf("%X (%q)", data, MakeSafeASCII(data))
	case FormatInt:
		var n uint64
		for _, b := range data {
			n = n<<8 | uint64(b)
		}
		return fmt.Sprintf("%X (Dec: %d)", data, n)
	case FormatDate:
		if len(data) != 2 {
			return fmt.Sprintf("%X", data)
		}
		year := data[0] >> 4
		day := int(data[0]&0x0F)*100 + int(data[1]>>4)*10 + int(data[1]&0x0F)
		return fmt.Sprintf("%X (year digit %d, day %d)", data, year, day)
	default:
		return fmt.Sprintf("%X", data)
	}
}

// MakeSafeASCII replaces every byte outside the printable ASCII range with '.'.
func MakeSafeASCII(data []byte) string {
	out := make([]byte, len(data))
	for i, b := range data {
		if b < 0x20 || b > 0x7E {
			b = '.'
		}
		out[i] = b
	}
	return string(out)
}
