package khu

import (
	"testing"

	"github.com/AdonisPhusis/khu-core/domain/khu/model"
)

func TestQuorumThresholdMetAt60Percent(t *testing.T) {
	// 6 of 8 bits set is 75%, above the 60% threshold.
	if !quorumThresholdMet([]byte{0xFC}) {
		t.Fatalf("quorumThresholdMet: want 6/8 to clear the 60%% threshold")
	}
	// 4 of 8 bits set is 50%, below threshold.
	if quorumThresholdMet([]byte{0x0F}) {
		t.Fatalf("quorumThresholdMet: want 4/8 to fall short of the 60%% threshold")
	}
	if quorumThresholdMet(nil) {
		t.Fatalf("quorumThresholdMet: want an empty bitset rejected")
	}
}

func TestAcceptCommitmentHappyPath(t *testing.T) {
	core, states := newTestCore(0)
	state, err := states.Get(0)
	if err != nil || state == nil {
		t.Fatalf("Get(0): want the genesis state, got %+v err=%v", state, err)
	}

	commitment := &model.StateCommitment{
		Height:       0,
		StateHash:    state.CommitmentHash(),
		QuorumID:     1,
		AggregateSig: []byte{1, 2, 3},
		SignerBitset: []byte{0xFC},
	}
	core.lock()
	err = core.AcceptCommitment(commitment, state)
	core.unlock()
	if err != nil {
		t.Fatalf("AcceptCommitment: unexpectedly failed: %s", err)
	}

	latest, err := core.commitments.LatestFinalizedHeight()
	if err != nil || latest != 0 {
		t.Fatalf("LatestFinalizedHeight: want 0, got %d (err=%v)", latest, err)
	}
}

func TestAcceptCommitmentRejectsHashMismatch(t *testing.T) {
	core, states := newTestCore(0)
	state, _ := states.Get(0)

	commitment := &model.StateCommitment{
		Height:       0,
		StateHash:    [32]byte{0xFF},
		SignerBitset: []byte{0xFC},
	}
	core.lock()
	err := core.AcceptCommitment(commitment, state)
	core.unlock()
	if err != model.RejectCommitmentHashMismatch {
		t.Fatalf("AcceptCommitment: want RejectCommitmentHashMismatch, got %v", err)
	}
}

func TestAcceptCommitmentRejectsInsufficientQuorum(t *testing.T) {
	core, states := newTestCore(0)
	state, _ := states.Get(0)

	commitment := &model.StateCommitment{
		Height:       0,
		StateHash:    state.CommitmentHash(),
		SignerBitset: []byte{0x0F},
	}
	core.lock()
	err := core.AcceptCommitment(commitment, state)
	core.unlock()
	if err != model.RejectQuorumInsufficient {
		t.Fatalf("AcceptCommitment: want RejectQuorumInsufficient, got %v", err)
	}
}

func TestCheckReorgConflictRejectsDivergentFinalizedHash(t *testing.T) {
	core, states := newTestCore(0)
	state, _ := states.Get(0)

	commitment := &model.StateCommitment{
		Height:       0,
		StateHash:    state.CommitmentHash(),
		SignerBitset: []byte{0xFC},
	}
	core.lock()
	err := core.AcceptCommitment(commitment, state)
	core.unlock()
	if err != nil {
		t.Fatalf("AcceptCommitment: unexpectedly failed: %s", err)
	}

	if err := core.CheckReorgConflict(0, [32]byte{0xAB}); err != model.ReorgFinalityConflict {
		t.Fatalf("CheckReorgConflict: want ReorgFinalityConflict for a divergent hash, got %v", err)
	}
	if err := core.CheckReorgConflict(0, state.CommitmentHash()); err != nil {
		t.Fatalf("CheckReorgConflict: want nil for the matching hash, got %v", err)
	}
}
