// Package bits reads and writes bit fields in header bytes.
//
// Bits are numbered the way ISO/IEC 7816 and GlobalPlatform number them:
// b8 is the most significant bit, b1 the least significant.
package bits

// Bit returns a byte with only bit n set. Out of range positions yield 0.
func Bit(n uint) byte {
	if n < 1 || n > 8 {
		return 0
	}
	return 1 << (n - 1)
}

// IsSet reports whether bit n of b is set.
func IsSet(b byte, n uint) bool {
	return b&Bit(n) != 0
}

// Set returns b with bit n set.
func Set(b byte, n uint) byte {
	return b | Bit(n)
}

// Clear returns b with bit n cleared.
func Clear(b byte, n uint) byte {
	return b &^ Bit(n)
}

// mask returns the field mask for bits high..low, right-aligned, or 0 if the
// range is invalid.
func mask(high, low uint) byte {
	if high < low || high > 8 || low < 1 {
		return 0
	}
	return byte(1<<(high-low+1) - 1)
}

// GetRange extracts bits high..low of b, right-aligned.
// GetRange(0b0000_1100, 4, 3) == 3.
func GetRange(b byte, high, low uint) byte {
	m := mask(high, low)
	if m == 0 {
		return 0
	}
	return (b >> (low - 1)) & m
}

// PutRange returns b with bits high..low replaced by v. Bits of v that do not
// fit the field are dropped.
func PutRange(b byte, high, low uint, v byte) byte {
	m := mask(high, low)
	if m == 0 {
		return b
	}
	shift := low - 1
	return b&^(m<<shift) | (v&m)<<shift
}
