// Package notestore implements model.NoteStore over a leveldb-backed
// model.KeyedStore: the ZKHU note, nullifier and note-commitment-tree
// anchor records of §4.8 "notes", plus the streaming iterator the
// daily-yield engine needs (§4.4, §5).
package notestore

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/AdonisPhusis/khu-core/domain/khu/model"
	"github.com/AdonisPhusis/khu-core/internal/merkle"
)

var (
	noteKeyPrefix   = []byte{0x01}
	nf2cmKeyPrefix  = []byte{0x02}
	spentKeyPrefix  = []byte{0x03}
	leafKeyPrefix   = []byte{0x04}
	anchorKeyPrefix = []byte{0x05}
	leafCountKey    = []byte{0x06}
)

// Store is a model.NoteStore backed by a KeyedStore bucket.
type Store struct {
	kv model.KeyedStore
}

// New wraps kv, which callers scope to its own bucket.
func New(kv model.KeyedStore) *Store {
	return &Store{kv: kv}
}

func withPrefix(prefix, suffix []byte) []byte {
	key := make([]byte, 0, len(prefix)+len(suffix))
	key = append(key, prefix...)
	return append(key, suffix...)
}

func (s *Store) PutNote(note *model.Note) error {
	return s.kv.Put(withPrefix(noteKeyPrefix, note.Cm[:]), encodeNote(note))
}

func (s *Store) GetNote(cm [32]byte) (*model.Note, bool, error) {
	raw, err := s.kv.Get(withPrefix(noteKeyPrefix, cm[:]))
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}
	note, err := decodeNote(raw)
	if err != nil {
		return nil, false, err
	}
	note.Cm = cm
	return note, true, nil
}

func (s *Store) DeleteNote(cm [32]byte) error {
	return s.kv.Delete(withPrefix(noteKeyPrefix, cm[:]))
}

func (s *Store) NullifierToCm(nullifier [32]byte) ([32]byte, bool, error) {
	var cm [32]byte
	raw, err := s.kv.Get(withPrefix(nf2cmKeyPrefix, nullifier[:]))
	if err != nil {
		return cm, false, err
	}
	if raw == nil {
		return cm, false, nil
	}
	copy(cm[:], raw)
	return cm, true, nil
}

func (s *Store) PutNullifierToCm(nullifier [32]byte, cm [32]byte) error {
	return s.kv.Put(withPrefix(nf2cmKeyPrefix, nullifier[:]), cm[:])
}

func (s *Store) DeleteNullifierToCm(nullifier [32]byte) error {
	return s.kv.Delete(withPrefix(nf2cmKeyPrefix, nullifier[:]))
}

func (s *Store) IsNullifierSpent(nullifier [32]byte) (bool, error) {
	return s.kv.Has(withPrefix(spentKeyPrefix, nullifier[:]))
}

func (s *Store) MarkNullifierSpent(nullifier [32]byte) error {
	return s.kv.Put(withPrefix(spentKeyPrefix, nullifier[:]), []byte{1})
}

func (s *Store) UnmarkNullifierSpent(nullifier [32]byte) error {
	return s.kv.Delete(withPrefix(spentKeyPrefix, nullifier[:]))
}

func (s *Store) leafCount() (uint64, error) {
	raw, err := s.kv.Get(leafCountKey)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (s *Store) setLeafCount(count uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, count)
	return s.kv.Put(leafCountKey, buf)
}

func leafKey(index uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, index)
	return withPrefix(leafKeyPrefix, buf)
}

func (s *Store) leavesUpTo(count uint64) ([][32]byte, error) {
	leaves := make([][32]byte, count)
	for i := uint64(0); i < count; i++ {
		raw, err := s.kv.Get(leafKey(i))
		if err != nil {
			return nil, err
		}
		if raw == nil {
			return nil, errors.Errorf("khu: missing note-commitment leaf at index %d", i)
		}
		copy(leaves[i][:], raw)
	}
	return leaves, nil
}

func (s *Store) recordAnchor(root [32]byte, count uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, count)
	return s.kv.Put(withPrefix(anchorKeyPrefix, root[:]), buf)
}

// AppendCommitment appends cm as the next leaf of the note-commitment
// tree, returning the root before and after the append (§4.3 STAKE,
// §4.8's BlockUndo.StakeAnchorBefore journal).
func (s *Store) AppendCommitment(cm [32]byte) (anchorBefore [32]byte, anchorAfter [32]byte, err error) {
	count, err := s.leafCount()
	if err != nil {
		return anchorBefore, anchorAfter, err
	}
	before, err := s.leavesUpTo(count)
	if err != nil {
		return anchorBefore, anchorAfter, err
	}
	anchorBefore = merkle.Root(before)
	if err := s.recordAnchor(anchorBefore, count); err != nil {
		return anchorBefore, anchorAfter, err
	}

	if err := s.kv.Put(leafKey(count), cm[:]); err != nil {
		return anchorBefore, anchorAfter, err
	}
	newCount := count + 1
	if err := s.setLeafCount(newCount); err != nil {
		return anchorBefore, anchorAfter, err
	}

	after := append(before, cm)
	anchorAfter = merkle.Root(after)
	if err := s.recordAnchor(anchorAfter, newCount); err != nil {
		return anchorBefore, anchorAfter, err
	}
	return anchorBefore, anchorAfter, nil
}

// RollbackToAnchor truncates the tree back to the leaf count a
// previously recorded anchor corresponds to (§4.3 UndoStake), and drops
// the anchor records of the roots the truncated leaves produced.
func (s *Store) RollbackToAnchor(anchor [32]byte) error {
	raw, err := s.kv.Get(withPrefix(anchorKeyPrefix, anchor[:]))
	if err != nil {
		return err
	}
	if raw == nil {
		return errors.New("khu: unknown note-commitment anchor")
	}
	targetCount := binary.BigEndian.Uint64(raw)

	currentCount, err := s.leafCount()
	if err != nil {
		return err
	}
	leaves, err := s.leavesUpTo(currentCount)
	if err != nil {
		return err
	}
	for i := currentCount; i > targetCount; i-- {
		root := merkle.Root(leaves[:i])
		if err := s.kv.Delete(withPrefix(anchorKeyPrefix, root[:])); err != nil {
			return err
		}
		if err := s.kv.Delete(leafKey(i - 1)); err != nil {
			return err
		}
	}
	return s.setLeafCount(targetCount)
}

// HasAnchor reports whether anchor is a recorded root of this tree; roots
// removed by RollbackToAnchor are no longer reported.
func (s *Store) HasAnchor(anchor [32]byte) (bool, error) {
	return s.kv.Has(withPrefix(anchorKeyPrefix, anchor[:]))
}

// Notes returns a streaming iterator over every note record.
func (s *Store) Notes() (model.NoteIterator, error) {
	it, err := s.kv.Iterator(noteKeyPrefix)
	if err != nil {
		return nil, err
	}
	return &noteIterator{it: it}, nil
}

type noteIterator struct {
	it  model.Iterator
	cur *model.Note
	err error
}

func (i *noteIterator) Next() bool {
	if !i.it.Next() {
		return false
	}
	note, err := decodeNote(i.it.Value())
	if err != nil {
		i.err = err
		return false
	}
	key := i.it.Key()
	if len(key) >= 32 {
		copy(note.Cm[:], key[len(key)-32:])
	}
	i.cur = note
	return true
}

func (i *noteIterator) Note() *model.Note { return i.cur }
func (i *noteIterator) Error() error {
	if i.err != nil {
		return i.err
	}
	return i.it.Error()
}
func (i *noteIterator) Release() { i.it.Release() }

// encodeNote lays out a Note as amount(8) || stakeStartHeight(4) ||
// urAccumulated(8) || nullifier(32) || spent(1).
func encodeNote(note *model.Note) []byte {
	buf := make([]byte, 8+4+8+32+1)
	binary.BigEndian.PutUint64(buf[0:8], uint64(note.Amount))
	binary.BigEndian.PutUint32(buf[8:12], note.StakeStartHeight)
	binary.BigEndian.PutUint64(buf[12:20], uint64(note.UrAccumulated))
	copy(buf[20:52], note.Nullifier[:])
	if note.Spent {
		buf[52] = 1
	}
	return buf
}

func decodeNote(raw []byte) (*model.Note, error) {
	if len(raw) != 53 {
		return nil, errors.New("khu: malformed note record")
	}
	note := &model.Note{
		Amount:           int64(binary.BigEndian.Uint64(raw[0:8])),
		StakeStartHeight: binary.BigEndian.Uint32(raw[8:12]),
		UrAccumulated:    int64(binary.BigEndian.Uint64(raw[12:20])),
		Spent:            raw[52] == 1,
	}
	copy(note.Nullifier[:], raw[20:52])
	return note, nil
}
