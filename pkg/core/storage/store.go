// Package storage defines the key-value storage abstraction the ledger
// persists all state through (spec §4.4 "Storage abstraction"): ordered
// Store/Snapshot traits plus pluggable backends (memory, LevelDB, bbolt).
package storage

import "errors"

// ErrKeyNotFound is returned by Get when the key is absent.
var ErrKeyNotFound = errors.New("storage: key not found")

// KeyPrefix partitions the flat key space by concern (spec §6 "Storage
// layout"). Ledger bookkeeping uses prefixes 0x05..0x0D; the storage of
// every contract, native or deployed, lives under PrefixStorageItem.
type KeyPrefix byte

const (
	PrefixBlock             KeyPrefix = 0x05
	PrefixTransactionIndex  KeyPrefix = 0x06
	PrefixCurrentBlock      KeyPrefix = 0x0C
	PrefixCurrentHeader     KeyPrefix = 0x0D
	PrefixContractHashToID  KeyPrefix = 0x08
	PrefixContractByID      KeyPrefix = 0x09
	PrefixBlockHashByIndex  KeyPrefix = 0x0A
	PrefixStorageItem       KeyPrefix = 0x70
)

// KeyValue is one (key, value) pair returned by Seek.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// Store is the minimal ordered key-value contract every backend (memory,
// LevelDB, bbolt) implements.
type Store interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	// Seek iterates key/value pairs whose key has the given prefix, in
	// ascending lexicographic key order, calling f for each until f
	// returns false or the prefix is exhausted.
	Seek(prefix []byte, f func(k, v []byte) bool) error
	Close() error
}

// Batch accumulates writes for atomic application.
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
}

// Snapshot is a mutable overlay over a committed Store: reads consult the
// overlay then fall through to the base, writes land in the overlay only,
// and Commit flushes the overlay to the base (spec §4.4 "Snapshot
// semantics").
type Snapshot interface {
	Store
	// Commit flushes the overlay to the underlying base. The base is
	// written one key at a time, not as one atomic batch: if a base write
	// fails, Commit returns that error and the writes made before it stay
	// in the base.
	Commit() error
	// Clone forks a fresh overlay over the same base, for speculative
	// execution (e.g. the mempool re-validating a transaction).
	Clone() Snapshot
}

// Provider produces Store handles over a named backend, matching spec
// §4.4's StoreProvider trait.
type Provider interface {
	Open(path string) (Store, error)
}

// Engine names a pluggable backend, the values a configuration document's
// "storage_engine" field may take (spec §6 "Environment").
type Engine string

const (
	LevelDBEngine  Engine = "leveldb"
	BoltDBEngine   Engine = "boltdb"
	InMemoryEngine Engine = "inmemory"
)

// NewStore opens the named backend rooted at path, the single switchyard
// cmd/n3node's startup goes through instead of calling a backend
// constructor directly.
func NewStore(engine Engine, path string) (Store, error) {
	switch engine {
	case LevelDBEngine:
		return NewLevelDBStore(path)
	case BoltDBEngine:
		return NewBoltDBStore(path)
	case InMemoryEngine:
		return NewMemoryStore(), nil
	default:
		return nil, errors.New("storage: unknown engine " + string(engine))
	}
}
