// Package tlv maps BER-TLV data onto Go structs using `tlv` struct tags.
//
// A field tagged `tlv:"9F6E"` receives the value of tag 9F6E. Byte slices get
// the raw value (constructed tags are re-encoded), strings get the hex form,
// struct fields are filled recursively and slices collect every occurrence.
// A []bertlv.TLV field tagged `tlv:",unknown"` collects the tags no other
// field consumed.
package tlv

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/moov-io/bertlv"
)

// Unmarshaler lets a field type decode its own TLV value.
type Unmarshaler interface {
	UnmarshalTLV(data []byte) error
}

// Unmarshal decodes data and maps the result into target, which must be a
// non-nil pointer to a struct.
func Unmarshal(data []byte, target any) error {
	packets, err := bertlv.Decode(data)
	if err != nil {
		return fmt.Errorf("bertlv decode failed: %w", err)
	}
	return UnmarshalFromPackets(packets, target)
}

// UnmarshalFromPackets maps already decoded packets into target.
func UnmarshalFromPackets(packets []bertlv.TLV, target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer, got %T", target)
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("target must point to a struct, got %T", target)
	}
	t := v.Type()

	consumed := make([]bool, len(packets))
	unknown := -1

	for i := 0; i < t.NumField(); i++ {
		tag, isUnknown := fieldTag(t.Field(i))
		if isUnknown {
			unknown = i
			continue
		}
		if tag == "" {
			continue
		}

		for idx, p := range packets {
			if !strings.EqualFold(p.Tag, tag) {
				continue
			}
			if err := assign(p, v.Field(i)); err != nil {
				return fmt.Errorf("tag %s: %w", tag, err)
			}
			consumed[idx] = true
		}
	}

	if unknown < 0 {
		return nil
	}
	var rest []bertlv.TLV
	for idx, p := range packets {
		if !consumed[idx] {
			rest = append(rest, p)
		}
	}
	if len(rest) > 0 {
		v.Field(unknown).Set(reflect.ValueOf(rest))
	}
	return nil
}

// fieldTag returns the TLV tag of a struct field, or reports that the field
// collects unknown tags.
func fieldTag(f reflect.StructField) (tag string, unknown bool) {
	cfg := f.Tag.Get("tlv")
	if cfg == ",unknown" || (f.Name == "Unknown" && f.Type == reflect.TypeOf([]bertlv.TLV(nil))) {
		return "", true
	}
	tag, _, _ = strings.Cut(cfg, ",")
	return strings.ToUpper(tag), false
}

// assign stores one packet into field. Slices other than []byte grow by one
// element per occurrence.
func assign(p bertlv.TLV, field reflect.Value) error {
	if field.Kind() == reflect.Slice && !isByteSlice(field) {
		elem := reflect.New(field.Type().Elem()).Elem()
		if err := decodeInto(p, elem); err != nil {
			return err
		}
		field.Set(reflect.Append(field, elem))
		return nil
	}
	return decodeInto(p, field)
}

func decodeInto(p bertlv.TLV, field reflect.Value) error {
	if field.CanAddr() {
		if u, ok := field.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalTLV(rawValue(p))
		}
	}

	switch {
	case isByteSlice(field):
		field.SetBytes(rawValue(p))
	case field.Kind() == reflect.String:
		field.SetString(hex.EncodeToString(p.Value))
	case field.Kind() == reflect.Struct:
		return decodeStruct(p, field.Addr().Interface())
	case field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.Struct:
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return decodeStruct(p, field.Interface())
	}
	return nil
}

func decodeStruct(p bertlv.TLV, target any) error {
	if len(p.TLVs) > 0 {
		return UnmarshalFromPackets(p.TLVs, target)
	}
	return Unmarshal(p.Value, target)
}

// rawValue returns the value bytes of p. Constructed tags are decoded by
// bertlv into children, so they are encoded back.
func rawValue(p bertlv.TLV) []byte {
	if len(p.TLVs) > 0 {
		if enc, err := bertlv.Encode(p.TLVs); err == nil {
			return enc
		}
	}
	return p.Value
}

func isByteSlice(v reflect.Value) bool {
	return v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8
}

// Find returns the first top-level packet with the given tag.
func Find(packets []bertlv.TLV, tag string) (bertlv.TLV, bool) {
	for _, p := range packets {
		if strings.EqualFold(p.Tag, tag) {
			return p, true
		}
	}
	return bertlv.TLV{}, false
}

// Unwrap returns the children of a leading template with the given tag, or
// packets unchanged when the data is not wrapped.
func Unwrap(packets []bertlv.TLV, tag string) []bertlv.TLV {
	if len(packets) > 0 && strings.EqualFold(packets[0].Tag, tag) {
		return packets[0].TLVs
	}
	return packets
}

// GetValue decodes data and returns the value of the first top-level
// occurrence of tag.
func GetValue(data []byte, tag uint) ([]byte, error) {
	packets, err := bertlv.Decode(data)
	if err != nil {
		return nil, err
	}

	want := fmt.Sprintf("%X", tag)
	p, ok := Find(packets, want)
	if !ok {
		return nil, fmt.Errorf("tag %s not found", want)
	}
	if len(p.TLVs) > 0 {
		return bertlv.Encode(p.TLVs)
	}
	return p.Value, nil
}
