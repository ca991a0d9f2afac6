// Package hash implements the node-wide hash primitives: Hash160, Hash256,
// and the two distinct Keccak variants the protocol needs.
//
// Per spec §9, `Keccak256Proper` and `Keccak256Legacy` must never be aliased:
// Ethereum-style interops (NeoFS/cross-chain witness verification) require
// true pre-NIST-padding Keccak-256, while some legacy call sites only ever
// needed SHA3-256. Both are implemented here under unambiguous names so a
// caller can never silently get the wrong one.
package hash

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // ripemd160 is required by the protocol, not a choice.
	"golang.org/x/crypto/sha3"
)

// Hashable is implemented by anything that can produce the byte sequence
// that should be hashed to obtain its identity (headers hash their fields
// minus the witness, transactions hash their signed fields, etc).
type Hashable interface {
	// HashableData returns the exact bytes to run Hash256 over.
	HashableData() []byte
}

// Sha256 computes a single SHA-256 digest.
func Sha256(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// Hash256 computes SHA256(SHA256(b)), the double hash used for block and
// transaction identifiers.
func Hash256(b []byte) [32]byte {
	h1 := sha256.Sum256(b)
	return sha256.Sum256(h1[:])
}

// Hash160 computes RIPEMD160(SHA256(b)), the script-hash digest.
func Hash160(b []byte) [20]byte {
	h1 := sha256.Sum256(b)
	r := ripemd160.New()
	r.Write(h1[:]) //nolint:errcheck // ripemd160.digest.Write never errors.
	var out [20]byte
	copy(out[:], r.Sum(nil))
	return out
}

// Keccak256Proper computes the original (pre-NIST, Ethereum-compatible)
// Keccak-256 digest. Use this wherever the Neo protocol calls for
// interoperability with Keccak-based chains.
func Keccak256Proper(b []byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(b) //nolint:errcheck // sponge Write never errors.
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Keccak256Legacy computes SHA3-256, which some older call sites used under
// the mistaken belief that it was Keccak-256. Kept distinct and named
// honestly so nobody reaches for it by accident; see spec §9.
func Keccak256Legacy(b []byte) [32]byte {
	return sha3.Sum256(b)
}

// MerkleRoot computes the Merkle root of a list of leaf hashes following
// Neo's convention: a single leaf is its own root; an odd-length level
// duplicates its last element before pairing.
func MerkleRoot(leaves [][32]byte) [32]byte {
	if len(leaves) == 0 {
		return [32]byte{}
	}
	level := make([][32]byte, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([][32]byte, len(level)/2)
		for i := 0; i < len(next); i++ {
			buf := make([]byte, 64)
			copy(buf[:32], level[2*i][:])
			copy(buf[32:], level[2*i+1][:])
			next[i] = Hash256(buf)
		}
		level = next
	}
	return level[0]
}

// Checksum returns the first 4 bytes of Hash256(b), used both for P2P frame
// checksums and NEF checksums.
func Checksum(b []byte) uint32 {
	h := Hash256(b)
	return uint32(h[0]) | uint32(h[1])<<8 | uint32(h[2])<<16 | uint32(h[3])<<24
}
