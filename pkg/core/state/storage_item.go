// Package state defines the persisted record types the ledger keeps in
// storage: raw storage items, contract state, account balances, and the
// per-transaction execution results (spec §3 "ContractState" / §4.3
// "Native contract state").
package state

import "github.com/n3ledger/n3core/pkg/io"

// StorageItem is the raw value half of a contract storage (key, value)
// pair.
type StorageItem []byte

// EncodeBinary implements io.Serializable.
func (i StorageItem) EncodeBinary(w *io.BinWriter) { w.WriteVarBytes(i) }

// DecodeBinary implements io.Serializable.
func (i *StorageItem) DecodeBinary(r *io.BinReader) { *i = r.ReadVarBytes(65535) }

// StorageKey identifies one contract's storage cell: the owning
// contract's numeric ID plus an opaque key, matching the on-disk key
// layout under storage.PrefixStorageItem.
type StorageKey struct {
	ID  int32
	Key []byte
}

// Bytes renders the key as the flat byte string used for the backing
// Store's lexicographic ordering (ID big-endian so numeric ordering
// matches byte ordering, then the raw key).
func (k StorageKey) Bytes() []byte {
	buf := make([]byte, 4+len(k.Key))
	buf[0] = byte(k.ID >> 24)
	buf[1] = byte(k.ID >> 16)
	buf[2] = byte(k.ID >> 8)
	buf[3] = byte(k.ID)
	copy(buf[4:], k.Key)
	return buf
}
