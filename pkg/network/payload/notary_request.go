package payload

import (
	"github.com/n3ledger/n3core/pkg/core/transaction"
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/util"
)

// P2PNotaryRequest is the relay unit for notary-assisted transactions
// (spec §4.3 Notary, §4.7 P2P Protocol): MainTransaction is the multi-sig
// transaction still missing witnesses, FallbackTransaction is the
// single-signer transaction that refunds the sender if MainTransaction
// never completes before its NotValidBefore height. Only FallbackTransaction
// enters the mempool's fee-ordered pool directly; MainTransaction rides
// along as its attached data until enough cosigners gather.
type P2PNotaryRequest struct {
	MainTransaction     *transaction.Transaction
	FallbackTransaction *transaction.Transaction
	Witness             transaction.Witness
}

// Hash identifies the request by its fallback transaction's hash, the key
// under which the mempool indexes it.
func (r *P2PNotaryRequest) Hash() util.Uint256 {
	return r.FallbackTransaction.Hash()
}

// EncodeBinary implements io.Serializable.
func (r *P2PNotaryRequest) EncodeBinary(w *io.BinWriter) {
	r.MainTransaction.EncodeBinary(w)
	r.FallbackTransaction.EncodeBinary(w)
	r.Witness.EncodeBinary(w)
}

// DecodeBinary implements io.Serializable.
func (r *P2PNotaryRequest) DecodeBinary(br *io.BinReader) {
	r.MainTransaction = &transaction.Transaction{}
	r.MainTransaction.DecodeBinary(br)
	r.FallbackTransaction = &transaction.Transaction{}
	r.FallbackTransaction.DecodeBinary(br)
	r.Witness.DecodeBinary(br)
}
