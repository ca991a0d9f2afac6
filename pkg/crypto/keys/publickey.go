// Package keys implements Neo's ECPoint (compressed secp256r1/secp256k1
// public keys) plus private-key signing, grounded on the teacher's
// pkg/crypto/keys package and signing with github.com/nspcc-dev/rfc6979 for
// deterministic, reproducible witness fixtures.
package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	secp256k1 "github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/nspcc-dev/rfc6979"

	"github.com/n3ledger/n3core/pkg/crypto/hash"
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/vm/opcode"
)

// sha256New adapts crypto/sha256 to the hash.Hash factory rfc6979 expects.
var sha256New = sha256.New

// NamedCurve identifies which elliptic curve a PublicKey was minted on.
// Neo N3's System.Crypto.CheckSig interop accepts both.
type NamedCurve byte

// Supported curves.
const (
	Secp256r1 NamedCurve = iota
	Secp256k1
)

// PublicKey is a compressed 33-byte elliptic curve point.
type PublicKey struct {
	Curve NamedCurve
	X, Y  *big.Int
}

func curveOf(c NamedCurve) elliptic.Curve {
	if c == Secp256k1 {
		return secp256k1.S256()
	}
	return elliptic.P256()
}

// Bytes returns the 33-byte compressed encoding.
func (p *PublicKey) Bytes() []byte {
	if p == nil || p.X == nil {
		return []byte{0}
	}
	b := make([]byte, 33)
	if p.Y.Bit(0) == 0 {
		b[0] = 0x02
	} else {
		b[0] = 0x03
	}
	xb := p.X.Bytes()
	copy(b[33-len(xb):], xb)
	return b
}

// NewPublicKeyFromHex parses a hex-encoded compressed secp256r1 public key,
// the form configuration documents list a committee member in.
func NewPublicKeyFromHex(s string) (*PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid public key hex: %w", err)
	}
	return DecodeBytes(b, Secp256r1)
}

// String returns the compressed hex encoding of the key.
func (p *PublicKey) String() string {
	return hex.EncodeToString(p.Bytes())
}

// DecodeBytes parses a compressed (33-byte), uncompressed (65-byte), or
// infinity (1-byte, 0x00) public key encoding on the given curve.
func DecodeBytes(b []byte, curve NamedCurve) (*PublicKey, error) {
	switch {
	case len(b) == 1 && b[0] == 0x00:
		return &PublicKey{Curve: curve}, nil
	case len(b) == 33 && (b[0] == 0x02 || b[0] == 0x03):
		c := curveOf(curve)
		x := new(big.Int).SetBytes(b[1:])
		y, err := decompressY(c, x, b[0] == 0x03, curve == Secp256k1)
		if err != nil {
			return nil, err
		}
		return &PublicKey{Curve: curve, X: x, Y: y}, nil
	case len(b) == 65 && b[0] == 0x04:
		x := new(big.Int).SetBytes(b[1:33])
		y := new(big.Int).SetBytes(b[33:65])
		return &PublicKey{Curve: curve, X: x, Y: y}, nil
	default:
		return nil, fmt.Errorf("invalid public key encoding of length %d", len(b))
	}
}

// decompressY solves y² = x³ + ax + b for y with the requested parity; a is
// -3 on secp256r1 and 0 on secp256k1 (koblitz).
func decompressY(curve elliptic.Curve, x *big.Int, odd, koblitz bool) (*big.Int, error) {
	params := curve.Params()
	ySq := new(big.Int).Exp(x, big.NewInt(3), params.P)
	if !koblitz {
		threeX := new(big.Int).Mul(x, big.NewInt(3))
		ySq.Sub(ySq, threeX)
	}
	ySq.Add(ySq, params.B)
	ySq.Mod(ySq, params.P)
	y := new(big.Int).ModSqrt(ySq, params.P)
	if y == nil {
		return nil, errors.New("invalid compressed point: not on curve")
	}
	if y.Bit(0) != boolToBit(odd) {
		y.Sub(params.P, y)
	}
	return y, nil
}

func boolToBit(b bool) uint {
	if b {
		return 1
	}
	return 0
}

// ScriptHash returns Hash160 of the verification script a single-sig
// account derives from this key (`PUSHDATA <key> SYSCALL CheckSig`-style
// standard account script).
func (p *PublicKey) ScriptHash() [20]byte {
	return hash.Hash160(p.VerificationScript())
}

// VerificationScript returns the canonical single-signature verification
// script for this public key.
func (p *PublicKey) VerificationScript() []byte {
	w := io.NewBufBinWriter()
	w.WriteB(byte(opcode.PUSHDATA1))
	w.WriteB(33)
	w.WriteBytes(p.Bytes())
	w.WriteB(byte(opcode.SYSCALL))
	w.WriteU32LE(checkSigInteropID)
	return w.Bytes()
}

// checkSigInteropID is the interop ID of System.Crypto.CheckSig, computed
// the same way pkg/core/interop/interopnames does (first 4 LE bytes of
// Hash256 of the name). Declared here to avoid a core->keys import cycle.
var checkSigInteropID = func() uint32 {
	h := hash.Hash256([]byte("System.Crypto.CheckSig"))
	return uint32(h[0]) | uint32(h[1])<<8 | uint32(h[2])<<16 | uint32(h[3])<<24
}()

// Equals compares two public keys including curve.
func (p *PublicKey) Equals(o *PublicKey) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.Curve == o.Curve && p.X.Cmp(o.X) == 0 && p.Y.Cmp(o.Y) == 0
}

// Verify verifies an ASN.1-free (r||s) signature over msg.
func (p *PublicKey) Verify(msg, signature []byte) bool {
	if len(signature) != 64 {
		return false
	}
	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])
	digest := hash.Sha256(msg)
	pub := &ecdsa.PublicKey{Curve: curveOf(p.Curve), X: p.X, Y: p.Y}
	return ecdsa.Verify(pub, digest[:], r, s)
}

// PublicKeys is a sortable set of public keys, ordered by compressed byte
// representation as required for deterministic committee derivation.
type PublicKeys []*PublicKey

func (p PublicKeys) Len() int      { return len(p) }
func (p PublicKeys) Swap(i, j int) { p[i], p[j] = p[j], p[i] }
func (p PublicKeys) Less(i, j int) bool {
	bi, bj := p[i].Bytes(), p[j].Bytes()
	for k := range bi {
		if bi[k] != bj[k] {
			return bi[k] < bj[k]
		}
	}
	return false
}

// MultiSigVerificationScript returns the canonical m-of-n multisig
// verification script for this key set (PUSH m, each compressed pubkey,
// PUSH n, SYSCALL CheckMultisig) — the group-account analogue of
// PublicKey.VerificationScript, shared by native NEO's committee/
// validator account derivation and the consensus service's block
// witness assembly.
func (p PublicKeys) MultiSigVerificationScript(m int) []byte {
	w := io.NewBufBinWriter()
	writePushInt(w, m)
	for _, pub := range p {
		w.WriteB(byte(opcode.PUSHDATA1))
		w.WriteB(33)
		w.WriteBytes(pub.Bytes())
	}
	writePushInt(w, len(p))
	w.WriteB(byte(opcode.SYSCALL))
	w.WriteU32LE(checkMultisigInteropID)
	return w.Bytes()
}

// ScriptHash returns Hash160 of the m-of-n multisig verification script,
// the group account's script hash.
func (p PublicKeys) ScriptHash(m int) [20]byte {
	return hash.Hash160(p.MultiSigVerificationScript(m))
}

// writePushInt emits the minimal PUSH opcode for a small non-negative
// integer as used in verification scripts (m/n never exceed the
// committee size).
func writePushInt(w *io.BufBinWriter, n int) {
	if n >= 0 && n <= 16 {
		w.WriteB(byte(opcode.PUSH0) + byte(n))
		return
	}
	w.WriteB(byte(opcode.PUSHDATA1))
	b := big.NewInt(int64(n)).Bytes()
	reverseBytes(b)
	w.WriteB(byte(len(b)))
	w.WriteBytes(b)
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// checkMultisigInteropID is the interop ID of System.Crypto.CheckMultisig,
// computed the same way pkg/core/interop/interopnames does. Declared
// here (duplicating checkSigInteropID's approach) to avoid a
// core->keys import cycle.
var checkMultisigInteropID = func() uint32 {
	h := hash.Hash256([]byte("System.Crypto.CheckMultisig"))
	return uint32(h[0]) | uint32(h[1])<<8 | uint32(h[2])<<16 | uint32(h[3])<<24
}()

// PrivateKey wraps an ECDSA private key on one of the supported curves.
type PrivateKey struct {
	Curve NamedCurve
	D     *big.Int
	Pub   *PublicKey
}

// NewPrivateKey generates a fresh random key on secp256r1.
func NewPrivateKey() (*PrivateKey, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{
		Curve: Secp256r1,
		D:     priv.D,
		Pub:   &PublicKey{Curve: Secp256r1, X: priv.PublicKey.X, Y: priv.PublicKey.Y},
	}, nil
}

// NewPrivateKeyFromHex parses a hex-encoded secp256r1 scalar, the form a
// validator node reads its consensus signing key from (wallet file
// formats are out of scope; see spec §1 "OUT OF SCOPE").
func NewPrivateKeyFromHex(s string) (*PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}
	return NewPrivateKeyFromBytes(b)
}

// NewPrivateKeyFromBytes builds a PrivateKey from a 32-byte big-endian
// scalar on secp256r1, deriving its public key.
func NewPrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, errors.New("invalid private key: must be 32 bytes")
	}
	curve := elliptic.P256()
	d := new(big.Int).SetBytes(b)
	x, y := curve.ScalarBaseMult(b)
	return &PrivateKey{
		Curve: Secp256r1,
		D:     d,
		Pub:   &PublicKey{Curve: Secp256r1, X: x, Y: y},
	}, nil
}

// PublicKey returns the corresponding public key.
func (k *PrivateKey) PublicKey() *PublicKey {
	return k.Pub
}

// Sign produces a deterministic (r||s) signature per RFC 6979, so the same
// key and message always yield the same witness bytes across test runs.
func (k *PrivateKey) Sign(msg []byte) ([]byte, error) {
	curve := curveOf(k.Curve)
	digest := hash.Sha256(msg)
	priv := new(ecdsa.PrivateKey)
	priv.Curve = curve
	priv.D = k.D
	priv.PublicKey.X, priv.PublicKey.Y = k.Pub.X, k.Pub.Y

	r, s := rfc6979.SignECDSA(priv, digest[:], sha256New)
	out := make([]byte, 64)
	rb := r.Bytes()
	sb := s.Bytes()
	copy(out[32-len(rb):32], rb)
	copy(out[64-len(sb):], sb)
	return out, nil
}
