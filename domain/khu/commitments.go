package khu

import (
	"math/bits"

	"github.com/pkg/errors"

	"github.com/AdonisPhusis/khu-core/domain/khu/model"
)

// AcceptCommitment validates and stores a quorum-signed StateCommitment
// (§4.7): the state_hash must match the computed hash at its height, the
// signer bitset must clear the 60% quorum threshold, and the aggregate
// signature must verify.
func (c *Core) AcceptCommitment(commitment *model.StateCommitment, state *model.State) error {
	c.assertLocked()

	if commitment.Height != state.Height {
		return model.RejectCommitmentHeightMismatch
	}
	if commitment.StateHash != state.CommitmentHash() {
		return model.RejectCommitmentHashMismatch
	}
	if !quorumThresholdMet(commitment.SignerBitset) {
		return model.RejectQuorumInsufficient
	}
	if !c.quorum.VerifyAggregate(commitment.AggregateSig, commitment.SignerBitset, commitment.StateHash[:], commitment.QuorumID) {
		return model.RejectBadSignature
	}

	if err := c.commitments.Put(commitment); err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	latest, err := c.commitments.LatestFinalizedHeight()
	if err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	if commitment.Height > latest {
		if err := c.commitments.SetLatestFinalizedHeight(commitment.Height); err != nil {
			return errors.Wrap(model.FatalStorageError, err.Error())
		}
	}
	return nil
}

// quorumThresholdMet reports popcount(bitset)/len(bitset) >= 0.60 (§4.7,
// §6.4 QUORUM_THRESHOLD), computed without floating point: popcount*100
// >= len*8*60 over the bit count (len(bitset) is measured in bits, one
// bit per signer slot, packed 8 to a byte).
func quorumThresholdMet(signerBitset []byte) bool {
	if len(signerBitset) == 0 {
		return false
	}
	totalBits := len(signerBitset) * 8
	set := 0
	for _, b := range signerBitset {
		set += bits.OnesCount8(b)
	}
	return set*model.QuorumThresholdDenominator >= totalBits*model.QuorumThresholdNumerator
}

// CheckReorgConflict rejects a reorg whose candidate state hash at
// height differs from an already-finalized commitment there (§4.7).
func (c *Core) CheckReorgConflict(height uint32, candidateStateHash [32]byte) error {
	existing, ok, err := c.commitments.Get(height)
	if err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	if ok && existing.StateHash != candidateStateHash {
		return model.ReorgFinalityConflict
	}
	return nil
}
