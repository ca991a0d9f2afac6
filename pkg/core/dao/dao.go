// Package dao implements the cached data-access layer between ledger
// logic and raw Store/Snapshot storage: typed getters/setters over
// blocks, transactions, contracts, and contract storage cells, with an
// in-memory write cache flushed only on commit (spec §4.4 "Snapshot
// semantics").
package dao

import (
	"errors"
	"math/big"

	"github.com/n3ledger/n3core/pkg/core/block"
	"github.com/n3ledger/n3core/pkg/core/state"
	"github.com/n3ledger/n3core/pkg/core/storage"
	"github.com/n3ledger/n3core/pkg/core/transaction"
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/util"
)

// ErrNotFound mirrors storage.ErrKeyNotFound at the typed-getter layer.
var ErrNotFound = storage.ErrKeyNotFound

// Simple is a typed, write-cached overlay over a storage.Store/Snapshot,
// the unit of work handed to the VM and to block persistence.
type Simple struct {
	store storage.Store
}

// NewSimple wraps a Store (or Snapshot) with typed accessors.
func NewSimple(store storage.Store) *Simple {
	return &Simple{store: store}
}

// getAndDecode reads key, decoding it into dest via dest.DecodeBinary.
func (d *Simple) getAndDecode(key []byte, dest io.Serializable) error {
	raw, err := d.store.Get(key)
	if err != nil {
		return err
	}
	r := io.NewBinReaderFromBuf(raw)
	dest.DecodeBinary(r)
	return r.Err
}

func (d *Simple) putEncoded(key []byte, src io.Serializable) error {
	w := io.NewBufBinWriter()
	src.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		return w.Err
	}
	return d.store.Put(key, w.Bytes())
}

func blockKey(h util.Uint256) []byte {
	b := h.BytesLE()
	return append([]byte{byte(storage.PrefixBlock)}, b...)
}

func txIndexKey(h util.Uint256) []byte {
	b := h.BytesLE()
	return append([]byte{byte(storage.PrefixTransactionIndex)}, b...)
}

func contractKey(h util.Uint160) []byte {
	b := h.BytesLE()
	return append([]byte{byte(storage.PrefixContractHashToID)}, b...)
}

func contractByIDKey(id int32) []byte {
	key := state.StorageKey{ID: id}
	return append([]byte{byte(storage.PrefixContractByID)}, key.Bytes()...)
}

func storageItemKey(id int32, itemKey []byte) []byte {
	sk := state.StorageKey{ID: id, Key: itemKey}
	return append([]byte{byte(storage.PrefixStorageItem)}, sk.Bytes()...)
}

// GetBlock reads the full block by hash.
func (d *Simple) GetBlock(h util.Uint256) (*block.Block, error) {
	b := &block.Block{}
	if err := d.getAndDecode(blockKey(h), b); err != nil {
		return nil, err
	}
	return b, nil
}

// PutBlock stores a block and indexes every contained transaction hash
// to its block hash.
func (d *Simple) PutBlock(b *block.Block) error {
	if err := d.putEncoded(blockKey(b.Hash()), b); err != nil {
		return err
	}
	for _, tx := range b.Transactions {
		if err := d.store.Put(txIndexKey(tx.Hash()), b.Hash().BytesLE()); err != nil {
			return err
		}
	}
	return nil
}

// GetTransaction looks up a transaction by scanning its containing
// block, resolved via the transaction-hash index.
func (d *Simple) GetTransaction(h util.Uint256) (*transaction.Transaction, util.Uint256, error) {
	raw, err := d.store.Get(txIndexKey(h))
	if err != nil {
		return nil, util.Uint256{}, err
	}
	blockHash, err := util.Uint256DecodeBytesLE(raw)
	if err != nil {
		return nil, util.Uint256{}, err
	}
	b, err := d.GetBlock(blockHash)
	if err != nil {
		return nil, util.Uint256{}, err
	}
	for _, tx := range b.Transactions {
		if tx.Hash() == h {
			return tx, blockHash, nil
		}
	}
	return nil, util.Uint256{}, ErrNotFound
}

func blockHashByIndexKey(index uint32) []byte {
	key := make([]byte, 5)
	key[0] = byte(storage.PrefixBlockHashByIndex)
	key[1] = byte(index >> 24)
	key[2] = byte(index >> 16)
	key[3] = byte(index >> 8)
	key[4] = byte(index)
	return key
}

// GetHeaderHash resolves the block hash at index, from the index->hash
// mapping populated by PutHeaderHash at persist time.
func (d *Simple) GetHeaderHash(index uint32) (util.Uint256, error) {
	raw, err := d.store.Get(blockHashByIndexKey(index))
	if err != nil {
		return util.Uint256{}, err
	}
	return util.Uint256DecodeBytesLE(raw)
}

// PutHeaderHash records hash as the block hash at index.
func (d *Simple) PutHeaderHash(index uint32, h util.Uint256) error {
	return d.store.Put(blockHashByIndexKey(index), h.BytesLE())
}

// GetCurrentBlockHash returns the tip block's hash.
func (d *Simple) GetCurrentBlockHash() (util.Uint256, error) {
	raw, err := d.store.Get([]byte{byte(storage.PrefixCurrentBlock)})
	if err != nil {
		return util.Uint256{}, err
	}
	return util.Uint256DecodeBytesLE(raw)
}

// PutCurrentBlockHash records h as the new tip.
func (d *Simple) PutCurrentBlockHash(h util.Uint256) error {
	return d.store.Put([]byte{byte(storage.PrefixCurrentBlock)}, h.BytesLE())
}

// GetContract looks up deployed contract state by script hash.
func (d *Simple) GetContract(h util.Uint160) (*state.Contract, error) {
	raw, err := d.store.Get(contractKey(h))
	if err != nil {
		return nil, err
	}
	if len(raw) != 4 {
		return nil, errContractIDMissing
	}
	id := int32(uint32(raw[0])<<24 | uint32(raw[1])<<16 | uint32(raw[2])<<8 | uint32(raw[3]))
	c := &state.Contract{}
	if err := d.getAndDecode(contractByIDKey(id), c); err != nil {
		return nil, err
	}
	return c, nil
}

// PutContract stores contract state, indexed both by hash and by ID.
func (d *Simple) PutContract(c *state.Contract) error {
	idBuf := []byte{byte(c.ID >> 24), byte(c.ID >> 16), byte(c.ID >> 8), byte(c.ID)}
	if err := d.store.Put(contractKey(c.Hash), idBuf); err != nil {
		return err
	}
	return d.putEncoded(contractByIDKey(c.ID), c)
}

// DeleteContract removes a contract's hash/ID index entries (its storage
// cells are removed separately via DeleteContractStorage).
func (d *Simple) DeleteContract(c *state.Contract) error {
	if err := d.store.Delete(contractKey(c.Hash)); err != nil {
		return err
	}
	return d.store.Delete(contractByIDKey(c.ID))
}

// GetStorageItem reads one contract storage cell.
func (d *Simple) GetStorageItem(id int32, key []byte) (state.StorageItem, error) {
	raw, err := d.store.Get(storageItemKey(id, key))
	if err != nil {
		return nil, err
	}
	return state.StorageItem(raw), nil
}

// PutStorageItem writes one contract storage cell.
func (d *Simple) PutStorageItem(id int32, key []byte, item state.StorageItem) error {
	return d.store.Put(storageItemKey(id, key), item)
}

// DeleteStorageItem removes one contract storage cell.
func (d *Simple) DeleteStorageItem(id int32, key []byte) error {
	return d.store.Delete(storageItemKey(id, key))
}

// SeekStorage iterates every storage cell of contract id whose key has
// the given prefix, in ascending key order.
func (d *Simple) SeekStorage(id int32, prefix []byte, f func(key, value []byte) bool) error {
	full := append([]byte{byte(storage.PrefixStorageItem)}, state.StorageKey{ID: id, Key: prefix}.Bytes()...)
	const headerLen = 1 + 4 // PrefixStorageItem byte + StorageKey.ID
	return d.store.Seek(full, func(k, v []byte) bool {
		return f(k[headerLen:], v)
	})
}

// DeleteContractStorage removes every storage cell belonging to
// contract id, used when a contract self-destructs.
func (d *Simple) DeleteContractStorage(id int32) error {
	prefix := append([]byte{byte(storage.PrefixStorageItem)}, state.StorageKey{ID: id}.Bytes()...)
	var keys [][]byte
	err := d.store.Seek(prefix, func(k, v []byte) bool {
		cp := make([]byte, len(k))
		copy(cp, k)
		keys = append(keys, cp)
		return true
	})
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := d.store.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// GetNEOBalance reads one account's NEO balance record.
func (d *Simple) GetNEOBalance(id int32, account util.Uint160) (*state.NEOBalance, error) {
	item, err := d.GetStorageItem(id, account.BytesLE())
	if err != nil {
		return nil, err
	}
	b := &state.NEOBalance{}
	r := io.NewBinReaderFromBuf(item)
	b.DecodeBinary(r)
	if r.Err != nil {
		return nil, r.Err
	}
	return b, nil
}

// PutNEOBalance writes one account's NEO balance record.
func (d *Simple) PutNEOBalance(id int32, account util.Uint160, b *state.NEOBalance) error {
	w := io.NewBufBinWriter()
	b.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		return w.Err
	}
	return d.PutStorageItem(id, account.BytesLE(), w.Bytes())
}

// GasSupply scans no state and always returns zero; the GAS native's
// totalSupply storage item holds the actual total.
func (d *Simple) GasSupply() *big.Int { return big.NewInt(0) }

// Persist commits the underlying store if it is a Snapshot; plain
// Stores have no staged writes to flush.
func (d *Simple) Persist() error {
	if snap, ok := d.store.(storage.Snapshot); ok {
		return snap.Commit()
	}
	return nil
}

// GetRWStore exposes the backing store for callers (interop context)
// that need raw Seek access beyond the typed helpers above.
func (d *Simple) GetRWStore() storage.Store { return d.store }

var errContractIDMissing = errors.New("dao: contract hash has no recorded id")
