// Package smartcontract holds the standard-account script helpers shared
// by wallets, the consensus service, and native NEO's committee
// derivation: building and hashing the verification scripts a
// single-sig or multisig account is identified by.
package smartcontract

import (
	"errors"

	"github.com/n3ledger/n3core/pkg/crypto/keys"
	"github.com/n3ledger/n3core/pkg/util"
)

var errInvalidThreshold = errors.New("smartcontract: m must be between 1 and len(pubs)")

// CreateMultiSigRedeemScript builds the canonical m-of-n multisig
// verification script for the given (already sorted, as a committee's
// public keys always are) validator set.
func CreateMultiSigRedeemScript(m int, pubs keys.PublicKeys) ([]byte, error) {
	if m < 1 || m > len(pubs) {
		return nil, errInvalidThreshold
	}
	return pubs.MultiSigVerificationScript(m), nil
}

// CreateMultiSigAccount returns the script hash of the m-of-n multisig
// account CreateMultiSigRedeemScript would build a witness against.
func CreateMultiSigAccount(m int, pubs keys.PublicKeys) (util.Uint160, error) {
	if m < 1 || m > len(pubs) {
		return util.Uint160{}, errInvalidThreshold
	}
	return util.Uint160(pubs.ScriptHash(m)), nil
}
