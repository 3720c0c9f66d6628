// Package commitmentstore implements model.CommitmentStore over a
// leveldb-backed model.KeyedStore: quorum-signed state commitments keyed
// by height, plus the latest finalized height pointer (§3.3, §4.7, §4.8
// "commitments").
package commitmentstore

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/AdonisPhusis/khu-core/domain/khu/model"
)

var latestFinalizedKey = []byte("latest_finalized")

// Store is a model.CommitmentStore backed by a KeyedStore bucket.
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

// Put records commitment under its height. Overwriting an existing
// commitment at or below the latest finalized height fails.
func (s *Store) Put(commitment *model.StateCommitment) error {
	latest, err := s.LatestFinalizedHeight()
	if err != nil {
		return err
	}
	if commitment.Height <= latest {
		exists, err := s.kv.Has(heightKey(commitment.Height))
		if err != nil {
			return err
		}
		if exists {
			return errors.New("khu: cannot overwrite a finalized state commitment")
		}
	}
	return s.kv.Put(heightKey(commitment.Height), encodeCommitment(commitment))
}

func (s *Store) Get(height uint32) (*model.StateCommitment, bool, error) {
	raw, err := s.kv.Get(heightKey(height))
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}
	commitment, err := decodeCommitment(raw)
	if err != nil {
		return nil, false, err
	}
	commitment.Height = height
	return commitment, true, nil
}

func (s *Store) LatestFinalizedHeight() (uint32, error) {
	raw, err := s.kv.Get(latestFinalizedKey)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	return binary.BigEndian.Uint32(raw), nil
}

func (s *Store) SetLatestFinalizedHeight(height uint32) error {
	return s.kv.Put(latestFinalizedKey, heightKey(height))
}

func encodeCommitment(c *model.StateCommitment) []byte {
	buf := make([]byte, 0, 4+32+4+4+len(c.AggregateSig)+4+len(c.SignerBitset))
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], c.Height)
	buf = append(buf, tmp[:]...)
	buf = append(buf, c.StateHash[:]...)
	binary.BigEndian.PutUint32(tmp[:], c.QuorumID)
	buf = append(buf, tmp[:]...)
	binary.BigEndian.PutUint32(tmp[:], uint32(len(c.AggregateSig)))
	buf = append(buf, tmp[:]...)
	buf = append(buf, c.AggregateSig...)
	binary.BigEndian.PutUint32(tmp[:], uint32(len(c.SignerBitset)))
	buf = append(buf, tmp[:]...)
	buf = append(buf, c.SignerBitset...)
	return buf
}

func decodeCommitment(raw []byte) (*model.StateCommitment, error) {
	if len(raw) < 4+32+4+4 {
		return nil, errors.New("khu: malformed state commitment record")
	}
	c := &model.StateCommitment{}
	off := 0
	c.Height = binary.BigEndian.Uint32(raw[off : off+4])
	off += 4
	copy(c.StateHash[:], raw[off:off+32])
	off += 32
	c.QuorumID = binary.BigEndian.Uint32(raw[off : off+4])
	off += 4
	sigLen := int(binary.BigEndian.Uint32(raw[off : off+4]))
	off += 4
	if len(raw) < off+sigLen+4 {
		return nil, errors.New("khu: truncated state commitment record")
	}
	c.AggregateSig = append([]byte{}, raw[off:off+sigLen]...)
	off += sigLen
	bitsetLen := int(binary.BigEndian.Uint32(raw[off : off+4]))
	off += 4
	if len(raw) < off+bitsetLen {
		return nil, errors.New("khu: truncated state commitment bitset")
	}
	c.SignerBitset = append([]byte{}, raw[off:off+bitsetLen]...)
	return c, nil
}
