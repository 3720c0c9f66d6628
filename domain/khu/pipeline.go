package khu

import (
	"github.com/pkg/errors"

	"github.com/AdonisPhusis/khu-core/domain/khu/model"
	"github.com/AdonisPhusis/khu-core/logger"
)

var pipeLog = logger.Subsystem("PIPE")

// ConnectBlock runs the full per-block pipeline of §4.1: clone the tip
// state, accrue the DAO treasury on the block's initial U+Ur, finalize or
// initialize a DOMC cycle at a boundary, dispatch every transaction's
// check_* then apply_* in block order, run the daily-yield pass when due,
// verify invariants, persist the new state and its undo journal, and
// accept a quorum-signed commitment when the block carries one.
//
// The state lock is acquired once here and held for the whole call; every
// apply_*/undo_* invoked beneath it only asserts that lock is held.
func (c *Core) ConnectBlock(block *model.Block) (*model.State, error) {
	c.lock()
	defer c.unlock()

	prevHeight, err := c.states.Tip()
	if err != nil {
		return nil, errors.Wrap(model.FatalStorageError, err.Error())
	}
	prev, err := c.states.Get(prevHeight)
	if err != nil {
		return nil, errors.Wrap(model.FatalStorageError, err.Error())
	}
	if prev == nil {
		return nil, errors.Wrap(model.FatalStorageError, "no tip state to extend")
	}
	if block.Height != prev.Height+1 {
		return nil, errors.Wrap(model.FatalStateChainBroken, "block height does not extend the tip")
	}

	state := prev.Clone()
	state.Height = block.Height
	state.BlockHash = block.BlockHash
	state.PrevStateHash = prev.Hash()

	undo := &model.BlockUndo{
		Height:  block.Height,
		TxUndos: make([]model.TxUndo, len(block.Txs)),
	}

	// Step 2 (§4.1): treasury accrual runs first, against the block's
	// initial U+Ur, before any per-tx effect below can touch either.
	if TreasuryDue(block.Height, c.params.V6ActivationHeight) {
		if _, err := c.ApplyTreasuryAccrual(state); err != nil {
			return nil, err
		}
	}

	// Step 3: a DOMC cycle boundary finalizes the outgoing cycle's vote
	// and opens the next one in the same block (§4.6).
	if PhaseAt(block.Height, state.DomcCycleStart) == DomcPhaseBoundary {
		if err := c.FinalizeDomcCycle(state, block.Height); err != nil {
			return nil, err
		}
		InitNextDomcCycle(state, block.Height)
	}

	for i, btx := range block.Txs {
		tu, err := c.connectTx(btx, state, block.Height)
		if err != nil {
			return nil, err
		}
		undo.TxUndos[i] = tu
	}

	// Step 5: the streaming daily-yield pass, when due (§4.4).
	if YieldDue(block.Height, prev.LastYieldHeight, c.params.V6ActivationHeight) {
		if _, err := c.ApplyDailyYield(state, block.Height); err != nil {
			return nil, err
		}
	}

	if !state.CheckInvariants() {
		return nil, model.FatalInvariantViolation
	}

	if err := c.states.Put(block.Height, state); err != nil {
		return nil, errors.Wrap(model.FatalStorageError, err.Error())
	}
	if err := c.states.SetTip(block.Height); err != nil {
		return nil, errors.Wrap(model.FatalStorageError, err.Error())
	}
	if err := c.blockUndos.Put(block.Height, undo); err != nil {
		return nil, errors.Wrap(model.FatalStorageError, err.Error())
	}

	if block.QuorumSignature != nil {
		commitment := &model.StateCommitment{
			Height:       state.Height,
			StateHash:    state.CommitmentHash(),
			QuorumID:     block.QuorumSignature.QuorumID,
			AggregateSig: block.QuorumSignature.AggregateSig,
			SignerBitset: block.QuorumSignature.SignerBitset,
		}
		if err := c.AcceptCommitment(commitment, state); err != nil {
			return nil, err
		}
	}

	// A block connected on top of the tip ends any reorg batch in
	// progress: the next DisconnectBlock call, if any, starts a fresh one.
	c.reorgActive = false

	pipeLog.Debugf("ConnectBlock: height=%d txs=%d C=%d U=%d Z=%d Cr=%d Ur=%d T=%d",
		state.Height, len(block.Txs), state.C, state.U, state.Z, state.Cr, state.Ur, state.T)
	return state, nil
}

// connectTx dispatches a single transaction's check_* then apply_* (§4.1
// step 4), returning the TxUndo entry the pipeline journals for it.
func (c *Core) connectTx(btx model.BlockTx, state *model.State, height uint32) (model.TxUndo, error) {
	tx := btx.Tx
	switch tx.Type {
	case model.TxTypeMint:
		if err := CheckMint(tx); err != nil {
			return model.TxUndo{}, err
		}
		if err := c.ApplyMint(tx, state, btx.SelfOutpoint, height); err != nil {
			return model.TxUndo{}, err
		}
		return model.TxUndo{}, nil

	case model.TxTypeRedeem:
		if err := c.CheckRedeem(tx); err != nil {
			return model.TxUndo{}, err
		}
		spent, err := c.ApplyRedeem(tx, state)
		if err != nil {
			return model.TxUndo{}, err
		}
		return model.TxUndo{RedeemInputs: spent}, nil

	case model.TxTypeStake:
		if err := CheckStake(tx, height); err != nil {
			return model.TxUndo{}, err
		}
		anchorBefore, err := c.ApplyStake(tx, state, height)
		if err != nil {
			return model.TxUndo{}, err
		}
		return model.TxUndo{StakeAnchorBefore: anchorBefore}, nil

	case model.TxTypeUnstake:
		if err := c.CheckUnstake(tx, state, height); err != nil {
			return model.TxUndo{}, err
		}
		if err := c.ApplyUnstake(tx, state, height); err != nil {
			return model.TxUndo{}, err
		}
		return model.TxUndo{}, nil

	case model.TxTypeDomcCommit:
		if err := c.CheckDomcCommit(tx, state, height); err != nil {
			return model.TxUndo{}, err
		}
		if err := c.ApplyDomcCommit(tx, state, height); err != nil {
			return model.TxUndo{}, err
		}
		return model.TxUndo{}, nil

	case model.TxTypeDomcReveal:
		if err := c.CheckDomcReveal(tx, state, height); err != nil {
			return model.TxUndo{}, err
		}
		if err := c.ApplyDomcReveal(tx, state, height); err != nil {
			return model.TxUndo{}, err
		}
		return model.TxUndo{}, nil

	default:
		return model.TxUndo{}, model.RejectWrongTxType
	}
}

// DisconnectBlock reverses exactly what ConnectBlock did for block, which
// must be the current tip (§4.1 "Disconnect", §4.7), in strict reverse
// order: the daily-yield undo if it ran, then per-tx undo in reverse
// block order, then the DOMC cycle undo if a boundary was crossed, then
// the treasury undo, finally dropping the tip state and its undo journal.
// block is supplied by the caller's own block index; the core only
// persists the per-tx side journal (BlockUndo), not the transactions
// themselves.
//
// Two independent conditions refuse a disconnect outright (§4.7): a tip
// at or below the latest finalized height, and a reorg batch that would
// unwind more than D_FINAL blocks below the tip it started from. A
// finalized commitment at the tip height whose hash differs from the
// restored state's commitment hash is refused as a finality conflict.
func (c *Core) DisconnectBlock(block *model.Block) (*model.State, error) {
	c.lock()
	defer c.unlock()

	tipHeight, err := c.states.Tip()
	if err != nil {
		return nil, errors.Wrap(model.FatalStorageError, err.Error())
	}
	tip, err := c.states.Get(tipHeight)
	if err != nil {
		return nil, errors.Wrap(model.FatalStorageError, err.Error())
	}
	if tip == nil {
		return nil, errors.Wrap(model.FatalStorageError, "no tip state to disconnect")
	}
	if block.Height != tip.Height {
		return nil, errors.Wrap(model.FatalStateChainBroken, "block is not the current tip")
	}

	latestFinalized, err := c.commitments.LatestFinalizedHeight()
	if err != nil {
		return nil, errors.Wrap(model.FatalStorageError, err.Error())
	}
	// §4.7/§8.3: two independent refusal conditions, not one AND'd gate.
	// A block at or below the latest finalized height can never be
	// disconnected, regardless of how deep this particular reorg is.
	if latestFinalized > 0 && tip.Height <= latestFinalized {
		return nil, model.ReorgTooDeep
	}

	// The depth bound is measured from the tip height this reorg batch
	// started at (the "reorg anchor"), not from latest_finalized_height:
	// a run of single-block DisconnectBlock calls in the same reorg must
	// not, in total, unwind more than D_FINAL blocks (§8.4 scenario 5).
	// The anchor is established on the first disconnect of a batch and
	// held fixed until a block connects again.
	if !c.reorgActive {
		c.reorgAnchor = tip.Height
		c.reorgActive = true
	}
	targetHeight := tip.Height - 1
	if int64(c.reorgAnchor)-int64(targetHeight) > model.DFinal {
		return nil, model.ReorgTooDeep
	}

	undo, ok, err := c.blockUndos.Get(tip.Height)
	if err != nil {
		return nil, errors.Wrap(model.FatalStorageError, err.Error())
	}
	if !ok {
		return nil, errors.Wrap(model.FatalStorageError, "no undo journal for this height")
	}
	if len(undo.TxUndos) != len(block.Txs) {
		return nil, errors.Wrap(model.FatalStorageError, "undo journal does not match block")
	}

	prev, err := c.states.Get(tip.Height - 1)
	if err != nil {
		return nil, errors.Wrap(model.FatalStorageError, err.Error())
	}
	if prev == nil {
		return nil, errors.Wrap(model.FatalStorageError, "no predecessor state to restore")
	}

	if err := c.CheckReorgConflict(tip.Height, prev.CommitmentHash()); err != nil {
		return nil, err
	}

	state := tip.Clone()

	if YieldDue(tip.Height, prev.LastYieldHeight, c.params.V6ActivationHeight) {
		if err := c.UndoDailyYield(state, tip.Height, state.RAnnual); err != nil {
			return nil, err
		}
	}

	// Step 4, reverse order: undo every transaction's effect, in reverse
	// block order (§4.1).
	for i := len(block.Txs) - 1; i >= 0; i-- {
		if err := c.disconnectTx(block.Txs[i], undo.TxUndos[i], state); err != nil {
			return nil, err
		}
	}

	if PhaseAt(tip.Height, prev.DomcCycleStart) == DomcPhaseBoundary {
		if err := c.UndoFinalizeDomcCycle(state, tip.Height); err != nil {
			return nil, err
		}
	}

	if TreasuryDue(tip.Height, c.params.V6ActivationHeight) {
		if err := c.UndoTreasuryAccrual(state, prev.U, prev.Ur); err != nil {
			return nil, err
		}
	}

	if !state.CheckInvariants() {
		return nil, model.FatalInvariantViolation
	}

	if err := c.states.Delete(tip.Height); err != nil {
		return nil, errors.Wrap(model.FatalStorageError, err.Error())
	}
	if err := c.states.SetTip(tip.Height - 1); err != nil {
		return nil, errors.Wrap(model.FatalStorageError, err.Error())
	}
	if err := c.blockUndos.Delete(tip.Height); err != nil {
		return nil, errors.Wrap(model.FatalStorageError, err.Error())
	}

	pipeLog.Debugf("DisconnectBlock: height=%d", tip.Height)
	return prev, nil
}

// disconnectTx dispatches a single transaction's undo_*, using the side
// data captured in its TxUndo for the effects that destructively erased
// data on apply (§4.8).
func (c *Core) disconnectTx(btx model.BlockTx, tu model.TxUndo, state *model.State) error {
	tx := btx.Tx
	switch tx.Type {
	case model.TxTypeMint:
		return c.UndoMint(tx, state, btx.SelfOutpoint)
	case model.TxTypeRedeem:
		return c.UndoRedeem(tx, state, tu.RedeemInputs)
	case model.TxTypeStake:
		return c.UndoStake(tx, state, tu.StakeAnchorBefore)
	case model.TxTypeUnstake:
		return c.UndoUnstake(tx, state)
	case model.TxTypeDomcCommit:
		return c.UndoDomcCommit(tx)
	case model.TxTypeDomcReveal:
		return c.UndoDomcReveal(tx)
	default:
		return model.RejectWrongTxType
	}
}
