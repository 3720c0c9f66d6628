// Package khuutxostore implements model.KhuUtxoStore over a leveldb-backed
// model.KeyedStore, keyed by the colored UTXO's outpoint (§4.8 "khu_utxo").
package khuutxostore

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/AdonisPhusis/khu-core/domain/khu/model"
)

// Store is a model.KhuUtxoStore backed by a KeyedStore bucket.
type Store struct {
	kv model.KeyedStore
}

// New wraps kv, which callers scope to its own bucket.
func New(kv model.KeyedStore) *Store {
	return &Store{kv: kv}
}

func outpointKey(op model.OutPoint) []byte {
	key := make([]byte, 36)
	copy(key[:32], op.TxID[:])
	binary.BigEndian.PutUint32(key[32:], op.Index)
	return key
}

// Get returns the colored UTXO at op, or ok=false if it is unspent but
// uncolored, or spent, or never existed.
func (s *Store) Get(op model.OutPoint) (*model.KhuCoin, bool, error) {
	raw, err := s.kv.Get(outpointKey(op))
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}
	coin, err := decodeCoin(raw)
	if err != nil {
		return nil, false, err
	}
	return coin, true, nil
}

// Put records or overwrites the colored UTXO entry at op.
func (s *Store) Put(op model.OutPoint, coin *model.KhuCoin) error {
	return s.kv.Put(outpointKey(op), encodeCoin(coin))
}

// Delete removes the colored UTXO entry at op.
func (s *Store) Delete(op model.OutPoint) error {
	return s.kv.Delete(outpointKey(op))
}

// encodeCoin lays out a KhuCoin as amount(8) || staked(1) || script.
func encodeCoin(coin *model.KhuCoin) []byte {
	buf := make([]byte, 9+len(coin.Script))
	binary.BigEndian.PutUint64(buf[0:8], uint64(coin.Amount))
	if coin.Staked {
		buf[8] = 1
	}
	copy(buf[9:], coin.Script)
	return buf
}

func decodeCoin(raw []byte) (*model.KhuCoin, error) {
	if len(raw) < 9 {
		return nil, errors.New("khu: malformed khu_utxo record")
	}
	coin := &model.KhuCoin{
		Amount: int64(binary.BigEndian.Uint64(raw[0:8])),
		Staked: raw[8] == 1,
	}
	if len(raw) > 9 {
		coin.Script = append([]byte{}, raw[9:]...)
	}
	return coin, nil
}
