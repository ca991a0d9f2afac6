// Package address converts between Uint160 script hashes and the
// human-readable Base58Check addresses shown to users, parameterised by the
// network's configured address version byte.
package address

import (
	"fmt"

	"github.com/n3ledger/n3core/pkg/encoding/base58"
	"github.com/n3ledger/n3core/pkg/util"
)

// Uint160ToString encodes a script hash as a Base58Check address string.
func Uint160ToString(version byte, u util.Uint160) string {
	return base58.CheckEncode(version, u.BytesBE())
}

// StringToUint160 decodes a Base58Check address, verifying it matches the
// expected version byte.
func StringToUint160(version byte, s string) (util.Uint160, error) {
	v, payload, err := base58.CheckDecode(s)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("decoding address %q: %w", s, err)
	}
	if v != version {
		return util.Uint160{}, fmt.Errorf("address %q has version 0x%x, want 0x%x", s, v, version)
	}
	return util.Uint160DecodeBytesBE(payload)
}
