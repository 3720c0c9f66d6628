// Package statestore implements model.StateStore over a leveldb-backed
// model.KeyedStore, mirroring the source tree's per-height undo/state
// bucket layout (infrastructure/db/dbaccess), keyed by the plain 4-byte
// big-endian block height (§4.8 "state").
package statestore

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/AdonisPhusis/khu-core/domain/khu/model"
)

var tipKey = []byte("tip")

// Store is a model.StateStore backed by a KeyedStore bucket.
type Store struct {
	kv model.KeyedStore
}

// New wraps kv, which callers scope to its own bucket (e.g. via
// database.DatabaseContext.View).
func New(kv model.KeyedStore) *Store {
	return &Store{kv: kv}
}

func heightKey(height uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, height)
	return key
}

// Get returns the State persisted at height, or nil if none exists.
func (s *Store) Get(height uint32) (*model.State, error) {
	raw, err := s.kv.Get(heightKey(height))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return model.DeserializeState(raw)
}

// Put persists state under height, overwriting any prior record.
func (s *Store) Put(height uint32, state *model.State) error {
	return s.kv.Put(heightKey(height), state.Serialize())
}

// Delete erases the State record at height.
func (s *Store) Delete(height uint32) error {
	return s.kv.Delete(heightKey(height))
}

// Tip returns the height of the current chain tip. A store that has
// never had SetTip called returns 0, the genesis convention (§3.2).
func (s *Store) Tip() (uint32, error) {
	raw, err := s.kv.Get(tipKey)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	if len(raw) != 4 {
		return 0, errors.New("khu: malformed tip pointer")
	}
	return binary.BigEndian.Uint32(raw), nil
}

// SetTip records height as the new chain tip.
func (s *Store) SetTip(height uint32) error {
	return s.kv.Put(tipKey, heightKey(height))
}
