// Package domcstore implements model.DomcStore over a leveldb-backed
// model.KeyedStore: DOMC commits and reveals keyed by (cycle_id,
// identity), and the R_annual undo journal keyed by cycle-boundary
// height (§3.3, §4.6, §4.8 "domc").
package domcstore

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/AdonisPhusis/khu-core/domain/khu/model"
)

var (
	commitKeyPrefix = []byte{0x01}
	revealKeyPrefix = []byte{0x02}
	undoRPrefix     = []byte{0x03}
)

// Store is a model.DomcStore backed by a KeyedStore bucket.
type Store struct {
	kv model.KeyedStore
}

// New wraps kv, which callers scope to its own bucket.
func New(kv model.KeyedStore) *Store {
	return &Store{kv: kv}
}

func cycleIdentityKey(prefix []byte, cycleID uint32, identity [32]byte) []byte {
	key := make([]byte, len(prefix)+4+32)
	off := copy(key, prefix)
	binary.BigEndian.PutUint32(key[off:off+4], cycleID)
	copy(key[off+4:], identity[:])
	return key
}

func cyclePrefix(prefix []byte, cycleID uint32) []byte {
	key := make([]byte, len(prefix)+4)
	off := copy(key, prefix)
	binary.BigEndian.PutUint32(key[off:off+4], cycleID)
	return key
}

func (s *Store) PutCommit(commit *model.DomcCommit) error {
	return s.kv.Put(cycleIdentityKey(commitKeyPrefix, commit.CycleID, commit.Identity), encodeCommit(commit))
}

func (s *Store) GetCommit(cycleID uint32, identity [32]byte) (*model.DomcCommit, bool, error) {
	raw, err := s.kv.Get(cycleIdentityKey(commitKeyPrefix, cycleID, identity))
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}
	commit, err := decodeCommit(raw)
	if err != nil {
		return nil, false, err
	}
	commit.CycleID, commit.Identity = cycleID, identity
	return commit, true, nil
}

func (s *Store) DeleteCommit(cycleID uint32, identity [32]byte) error {
	return s.kv.Delete(cycleIdentityKey(commitKeyPrefix, cycleID, identity))
}

func (s *Store) PutReveal(reveal *model.DomcReveal) error {
	return s.kv.Put(cycleIdentityKey(revealKeyPrefix, reveal.CycleID, reveal.Identity), encodeReveal(reveal))
}

func (s *Store) GetReveal(cycleID uint32, identity [32]byte) (*model.DomcReveal, bool, error) {
	raw, err := s.kv.Get(cycleIdentityKey(revealKeyPrefix, cycleID, identity))
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}
	reveal, err := decodeReveal(raw)
	if err != nil {
		return nil, false, err
	}
	reveal.CycleID, reveal.Identity = cycleID, identity
	return reveal, true, nil
}

func (s *Store) DeleteReveal(cycleID uint32, identity [32]byte) error {
	return s.kv.Delete(cycleIdentityKey(revealKeyPrefix, cycleID, identity))
}

// Reveals streams every reveal recorded for cycleID, in key order.
func (s *Store) Reveals(cycleID uint32) ([]*model.DomcReveal, error) {
	it, err := s.kv.Iterator(cyclePrefix(revealKeyPrefix, cycleID))
	if err != nil {
		return nil, err
	}
	defer it.Release()

	var reveals []*model.DomcReveal
	for it.Next() {
		reveal, err := decodeReveal(it.Value())
		if err != nil {
			return nil, err
		}
		reveal.CycleID = cycleID
		reveals = append(reveals, reveal)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return reveals, nil
}

func undoRKey(height uint32) []byte {
	key := make([]byte, len(undoRPrefix)+4)
	off := copy(key, undoRPrefix)
	binary.BigEndian.PutUint32(key[off:], height)
	return key
}

func (s *Store) PutUndoRAnnual(cycleBoundaryHeight uint32, previousRAnnual uint32) error {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, previousRAnnual)
	return s.kv.Put(undoRKey(cycleBoundaryHeight), buf)
}

func (s *Store) GetUndoRAnnual(cycleBoundaryHeight uint32) (uint32, bool, error) {
	raw, err := s.kv.Get(undoRKey(cycleBoundaryHeight))
	if err != nil {
		return 0, false, err
	}
	if raw == nil {
		return 0, false, nil
	}
	return binary.BigEndian.Uint32(raw), true, nil
}

func (s *Store) DeleteUndoRAnnual(cycleBoundaryHeight uint32) error {
	return s.kv.Delete(undoRKey(cycleBoundaryHeight))
}

func encodeCommit(c *model.DomcCommit) []byte {
	buf := make([]byte, 32+4+4+len(c.Sig))
	copy(buf[0:32], c.HashCommit[:])
	binary.BigEndian.PutUint32(buf[32:36], c.CommitHeight)
	binary.BigEndian.PutUint32(buf[36:40], uint32(len(c.Sig)))
	copy(buf[40:], c.Sig)
	return buf
}

func decodeCommit(raw []byte) (*model.DomcCommit, error) {
	if len(raw) < 40 {
		return nil, errors.New("khu: malformed domc commit record")
	}
	c := &model.DomcCommit{}
	copy(c.HashCommit[:], raw[0:32])
	c.CommitHeight = binary.BigEndian.Uint32(raw[32:36])
	sigLen := int(binary.BigEndian.Uint32(raw[36:40]))
	if len(raw) < 40+sigLen {
		return nil, errors.New("khu: truncated domc commit sig")
	}
	c.Sig = append([]byte{}, raw[40:40+sigLen]...)
	return c, nil
}

func encodeReveal(r *model.DomcReveal) []byte {
	buf := make([]byte, 4+32+4+4+len(r.Sig))
	binary.BigEndian.PutUint32(buf[0:4], r.RProposal)
	copy(buf[4:36], r.Salt[:])
	binary.BigEndian.PutUint32(buf[36:40], r.RevealHeight)
	binary.BigEndian.PutUint32(buf[40:44], uint32(len(r.Sig)))
	copy(buf[44:], r.Sig)
	return buf
}

func decodeReveal(raw []byte) (*model.DomcReveal, error) {
	if len(raw) < 44 {
		return nil, errors.New("khu: malformed domc reveal record")
	}
	r := &model.DomcReveal{}
	r.RProposal = binary.BigEndian.Uint32(raw[0:4])
	copy(r.Salt[:], raw[4:36])
	r.RevealHeight = binary.BigEndian.Uint32(raw[36:40])
	sigLen := int(binary.BigEndian.Uint32(raw[40:44]))
	if len(raw) < 44+sigLen {
		return nil, errors.New("khu: truncated domc reveal sig")
	}
	r.Sig = append([]byte{}, raw[44:44+sigLen]...)
	return r, nil
}
