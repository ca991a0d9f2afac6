package util

import (
	"encoding/hex"
	"fmt"
)

// Uint256Size is the size of Uint256 in bytes.
const Uint256Size = 32

// Uint256 is a 32-byte little-endian-on-the-wire hash, used for block and
// transaction identifiers.
type Uint256 [Uint256Size]byte

// Uint256DecodeBytesBE decodes a big-endian (display order) byte slice.
func Uint256DecodeBytesBE(b []byte) (u Uint256, err error) {
	if len(b) != Uint256Size {
		return u, fmt.Errorf("expected %d bytes, got %d", Uint256Size, len(b))
	}
	for i, v := range b {
		u[Uint256Size-i-1] = v
	}
	return u, nil
}

// Uint256DecodeBytesLE decodes a little-endian (wire order) byte slice.
func Uint256DecodeBytesLE(b []byte) (u Uint256, err error) {
	if len(b) != Uint256Size {
		return u, fmt.Errorf("expected %d bytes, got %d", Uint256Size, len(b))
	}
	copy(u[:], b)
	return u, nil
}

// Uint256DecodeStringBE decodes a display-order hex string.
func Uint256DecodeStringBE(s string) (u Uint256, err error) {
	s = trimHexPrefix(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return u, err
	}
	return Uint256DecodeBytesBE(b)
}

// BytesBE returns a big-endian (display order) byte slice copy.
func (u Uint256) BytesBE() []byte {
	b := make([]byte, Uint256Size)
	for i, v := range u {
		b[Uint256Size-i-1] = v
	}
	return b
}

// BytesLE returns a little-endian (wire order) byte slice copy.
func (u Uint256) BytesLE() []byte {
	b := make([]byte, Uint256Size)
	copy(b, u[:])
	return b
}

// StringLE returns the wire-order hex representation.
func (u Uint256) StringLE() string {
	return hex.EncodeToString(u.BytesLE())
}

// StringBE returns the display-order hex representation.
func (u Uint256) StringBE() string {
	return hex.EncodeToString(u.BytesBE())
}

// String implements fmt.Stringer.
func (u Uint256) String() string {
	return "0x" + u.StringBE()
}

// Equals reports whether two hashes are equal.
func (u Uint256) Equals(other Uint256) bool {
	return u == other
}

// Less imposes a total order, used for deterministic Merkle-tree leaf
// ordering helpers and conflict-set canonicalisation.
func (u Uint256) Less(other Uint256) bool {
	for i := Uint256Size - 1; i >= 0; i-- {
		if u[i] != other[i] {
			return u[i] < other[i]
		}
	}
	return false
}

// IsZero reports whether u is the zero value.
func (u Uint256) IsZero() bool {
	return u == Uint256{}
}
