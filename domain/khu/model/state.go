package model

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// State is the single global-state record keyed by block height (§3.1).
// All monetary quantities are signed satoshi amounts; intermediate
// arithmetic that touches more than one of them goes through amount.go's
// Safe* helpers rather than plain int64 operators.
type State struct {
	C  Amount // collateral locked behind circulating supply
	U  Amount // transparent supply (KHU_T)
	Z  Amount // shielded supply (ZKHU notes)
	Cr Amount // reward-pool collateral
	Ur Amount // aggregate unstake rights
	T  Amount // DAO treasury pool

	RAnnual      uint32 // basis points
	RMaxDynamic  uint32 // governance cap on RAnnual

	LastYieldHeight uint32
	LastYieldAmount Amount

	DomcCycleStart     uint32
	DomcCycleLength    uint32
	DomcCommitStart    uint32
	DomcRevealDeadline uint32

	Height        uint32
	BlockHash     [32]byte
	PrevStateHash [32]byte
}

// Clone returns a deep copy; connect_block/disconnect_block always work
// on a clone of the previous tip so a failed block never mutates the
// persisted record (§4.1 step 1, §7.2).
func (s *State) Clone() *State {
	clone := *s
	return &clone
}

// CheckInvariants verifies the sacred invariants I1-I3 (§3.1, §8.1).
// I4 (prev_state_hash linkage) is checked by the pipeline against the
// persisted predecessor, not here, since it needs the store.
func (s *State) CheckInvariants() bool {
	if s.C < 0 || s.U < 0 || s.Z < 0 || s.Cr < 0 || s.Ur < 0 || s.T < 0 {
		return false
	}
	if s.C != s.U+s.Z {
		return false
	}
	if !(s.Cr == 0 && s.Ur == 0) && s.Cr != s.Ur {
		return false
	}
	return true
}

// CommitmentHash computes the canonical state_hash used by state
// commitments (§4.7): H(C || U || Cr || Ur || height) in fixed field
// order. This is deliberately a narrower hash than the full state's
// serialization — governance scalars and Z/T do not participate, by
// design of the commitment layer.
func (s *State) CommitmentHash() [32]byte {
	buf := make([]byte, 8*4+4)
	binary.BigEndian.PutUint64(buf[0:8], uint64(s.C))
	binary.BigEndian.PutUint64(buf[8:16], uint64(s.U))
	binary.BigEndian.PutUint64(buf[16:24], uint64(s.Cr))
	binary.BigEndian.PutUint64(buf[24:32], uint64(s.Ur))
	binary.BigEndian.PutUint32(buf[32:36], s.Height)
	return blake2b.Sum256(buf)
}

// Hash computes the full-state hash used for prev_state_hash chain
// linkage (I4): every field, in declaration order, so that changing any
// one of them changes the hash.
func (s *State) Hash() [32]byte {
	buf := make([]byte, 0, 160)
	putAmount := func(a Amount) {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(a))
		buf = append(buf, b[:]...)
	}
	putU32 := func(v uint32) {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], v)
		buf = append(buf, b[:]...)
	}
	putAmount(s.C)
	putAmount(s.U)
	putAmount(s.Z)
	putAmount(s.Cr)
	putAmount(s.Ur)
	putAmount(s.T)
	putU32(s.RAnnual)
	putU32(s.RMaxDynamic)
	putU32(s.LastYieldHeight)
	putAmount(s.LastYieldAmount)
	putU32(s.DomcCycleStart)
	putU32(s.DomcCycleLength)
	putU32(s.DomcCommitStart)
	putU32(s.DomcRevealDeadline)
	putU32(s.Height)
	buf = append(buf, s.BlockHash[:]...)
	buf = append(buf, s.PrevStateHash[:]...)
	return blake2b.Sum256(buf)
}

// stateWireSize is the fixed width of Serialize's output: every field is
// fixed-width, so a State record is never varint-encoded (§4.8 "fixed
// record layout, no length prefixes").
const stateWireSize = 8*7 + 4*8 + 32 + 32

// Serialize encodes the record the same way Hash does, field by field in
// declaration order, so the on-disk layout and the hash domain never
// drift apart.
func (s *State) Serialize() []byte {
	buf := make([]byte, stateWireSize)
	off := 0
	putAmount := func(a Amount) {
		binary.BigEndian.PutUint64(buf[off:off+8], uint64(a))
		off += 8
	}
	putU32 := func(v uint32) {
		binary.BigEndian.PutUint32(buf[off:off+4], v)
		off += 4
	}
	putAmount(s.C)
	putAmount(s.U)
	putAmount(s.Z)
	putAmount(s.Cr)
	putAmount(s.Ur)
	putAmount(s.T)
	putU32(s.RAnnual)
	putU32(s.RMaxDynamic)
	putU32(s.LastYieldHeight)
	putAmount(s.LastYieldAmount)
	putU32(s.DomcCycleStart)
	putU32(s.DomcCycleLength)
	putU32(s.DomcCommitStart)
	putU32(s.DomcRevealDeadline)
	putU32(s.Height)
	copy(buf[off:off+32], s.BlockHash[:])
	off += 32
	copy(buf[off:off+32], s.PrevStateHash[:])
	return buf
}

// DeserializeState decodes a State from Serialize's output.
func DeserializeState(raw []byte) (*State, error) {
	if len(raw) != stateWireSize {
		return nil, errors.Errorf("khu: malformed state record: want %d bytes, got %d", stateWireSize, len(raw))
	}
	s := &State{}
	off := 0
	getAmount := func() Amount {
		v := Amount(binary.BigEndian.Uint64(raw[off : off+8]))
		off += 8
		return v
	}
	getU32 := func() uint32 {
		v := binary.BigEndian.Uint32(raw[off : off+4])
		off += 4
		return v
	}
	s.C = getAmount()
	s.U = getAmount()
	s.Z = getAmount()
	s.Cr = getAmount()
	s.Ur = getAmount()
	s.T = getAmount()
	s.RAnnual = getU32()
	s.RMaxDynamic = getU32()
	s.LastYieldHeight = getU32()
	s.LastYieldAmount = getAmount()
	s.DomcCycleStart = getU32()
	s.DomcCycleLength = getU32()
	s.DomcCommitStart = getU32()
	s.DomcRevealDeadline = getU32()
	s.Height = getU32()
	copy(s.BlockHash[:], raw[off:off+32])
	off += 32
	copy(s.PrevStateHash[:], raw[off:off+32])
	return s, nil
}
