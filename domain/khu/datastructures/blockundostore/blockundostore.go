// Package blockundostore implements model.BlockUndoStore over a
// leveldb-backed model.KeyedStore, keyed by height (§4.8 "block_undo").
//
// BlockUndo's shape, a variable number of variable-length RedeemInputs
// slices per transaction, has no consensus or wire significance of its
// own (disconnect only ever reads back what connect just wrote, on the
// same node); gob is used for it rather than a hand-rolled length-prefixed
// layout; every consensus-critical record elsewhere in datastructures/
// uses the fixed manual layout the source tree uses on its wire types.
package blockundostore

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/AdonisPhusis/khu-core/domain/khu/model"
)

// Store is a model.BlockUndoStore backed by a KeyedStore bucket.
type Store struct {
	kv model.KeyedStore
}

// New wraps kv, which callers scope to its own bucket.
func New(kv model.KeyedStore) *Store {
	return &Store{kv: kv}
}

func heightKey(height uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, height)
	return key
}

func (s *Store) Put(height uint32, undo *model.BlockUndo) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(undo); err != nil {
		return err
	}
	return s.kv.Put(heightKey(height), buf.Bytes())
}

func (s *Store) Get(height uint32) (*model.BlockUndo, bool, error) {
	raw, err := s.kv.Get(heightKey(height))
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}
	var undo model.BlockUndo
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&undo); err != nil {
		return nil, false, err
	}
	return &undo, true, nil
}

func (s *Store) Delete(height uint32) error {
	return s.kv.Delete(heightKey(height))
}
