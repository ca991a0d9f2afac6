// Package base58 implements Neo's address encoding: Base58 with a
// version-byte prefix and a 4-byte Hash256 checksum suffix, wrapping
// github.com/mr-tron/base58 for the raw alphabet codec.
package base58

import (
	"errors"

	"github.com/mr-tron/base58"

	"github.com/n3ledger/n3core/pkg/crypto/hash"
)

// ErrChecksum is returned when a decoded payload's checksum does not match.
var ErrChecksum = errors.New("base58: checksum mismatch")

// CheckEncode prepends version and appends a 4-byte Hash256 checksum before
// base58-encoding the result.
func CheckEncode(version byte, payload []byte) string {
	buf := make([]byte, 0, 1+len(payload)+4)
	buf = append(buf, version)
	buf = append(buf, payload...)
	sum := hash.Hash256(buf)
	buf = append(buf, sum[:4]...)
	return base58.Encode(buf)
}

// CheckDecode reverses CheckEncode, validating the checksum.
func CheckDecode(s string) (version byte, payload []byte, err error) {
	b, err := base58.Decode(s)
	if err != nil {
		return 0, nil, err
	}
	if len(b) < 5 {
		return 0, nil, errors.New("base58: payload too short")
	}
	body, sum := b[:len(b)-4], b[len(b)-4:]
	want := hash.Hash256(body)
	for i := 0; i < 4; i++ {
		if sum[i] != want[i] {
			return 0, nil, ErrChecksum
		}
	}
	return body[0], body[1:], nil
}
