package consensus

import (
	"errors"

	"github.com/n3ledger/n3core/pkg/crypto/keys"
)

// privateKey adapts keys.PrivateKey to dbft's signing interface: Sign
// taking raw message bytes and returning an (r||s) signature (the same
// shape a transaction witness's invocation script carries).
type privateKey struct {
	*keys.PrivateKey
}

// Sign implements dbft's PrivateKey interface.
func (p *privateKey) Sign(data []byte) ([]byte, error) {
	return p.PrivateKey.Sign(data)
}

// publicKey adapts keys.PublicKey to dbft's verification interface.
type publicKey struct {
	*keys.PublicKey
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p publicKey) MarshalBinary() ([]byte, error) {
	return p.PublicKey.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *publicKey) UnmarshalBinary(data []byte) error {
	pk, err := keys.DecodeBytes(data, keys.Secp256r1)
	if err != nil {
		return err
	}
	p.PublicKey = pk
	return nil
}

// Verify implements dbft's PublicKey interface.
func (p publicKey) Verify(msg, sig []byte) error {
	if p.PublicKey.Verify(msg, sig) {
		return nil
	}
	return errVerificationFailed
}

var errVerificationFailed = errors.New("consensus: signature verification failed")
