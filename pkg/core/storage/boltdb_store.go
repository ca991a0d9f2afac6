package storage

import (
	"bytes"

	bbolt "go.etcd.io/bbolt"
)

var bucket = []byte("n3core")

// BoltDBStore persists chain state to a bbolt database file, an
// alternative single-file backend to LevelDB.
type BoltDBStore struct {
	db *bbolt.DB
}

// NewBoltDBStore opens (creating if absent) a bbolt database at path.
func NewBoltDBStore(path string) (*BoltDBStore, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltDBStore{db: db}, nil
}

// Get implements Store.
func (s *BoltDBStore) Get(key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucket).Get(key)
		if v == nil {
			return ErrKeyNotFound
		}
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	return out, err
}

// Put implements Store.
func (s *BoltDBStore) Put(key, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put(key, value)
	})
}

// Delete implements Store.
func (s *BoltDBStore) Delete(key []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Delete(key)
	})
}

// Seek implements Store.
func (s *BoltDBStore) Seek(prefix []byte, f func(k, v []byte) bool) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if !f(k, v) {
				break
			}
		}
		return nil
	})
}

// Close implements Store.
func (s *BoltDBStore) Close() error { return s.db.Close() }

// BoltDBProvider opens BoltDBStore instances rooted at a configured file.
type BoltDBProvider struct{}

// Open implements Provider.
func (BoltDBProvider) Open(path string) (Store, error) { return NewBoltDBStore(path) }
