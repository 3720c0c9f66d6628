package khu

import (
	"bytes"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/AdonisPhusis/khu-core/domain/khu/model"
	"github.com/AdonisPhusis/khu-core/logger"
)

var domcLog = logger.Subsystem("DOMC")

// DomcPhase is the cycle phase a height falls into (§4.6).
type DomcPhase int

const (
	DomcPhaseIdle DomcPhase = iota
	DomcPhaseCommit
	DomcPhaseReveal
	DomcPhaseBoundary
)

// PhaseAt returns the DOMC phase for height given the cycle start s.
func PhaseAt(height, cycleStart uint32) DomcPhase {
	switch {
	case height == cycleStart+model.CLen:
		return DomcPhaseBoundary
	case height >= cycleStart+model.RevealOffset:
		return DomcPhaseReveal
	case height >= cycleStart+model.CommitOffset:
		return DomcPhaseCommit
	default:
		return DomcPhaseIdle
	}
}

// RMaxDynamicAt computes the governance cap's decay schedule (§4.6,
// SPEC_FULL §5): starts at 4000bp, decays 100bp per elapsed year since
// V6 activation, floor 700bp. blocksSinceActivation is height -
// v6ActivationHeight (saturating at 0 for heights before activation).
func RMaxDynamicAt(blocksSinceActivation uint32) uint32 {
	years := blocksSinceActivation / model.BlocksPerYear
	dynamic := int64(model.RMaxDynamicInit) - int64(years)*100
	if dynamic < model.RMaxDynamicFloor {
		return model.RMaxDynamicFloor
	}
	return uint32(dynamic)
}

// CheckDomcCommit validates a DOMC_COMMIT transaction (§4.6).
func (c *Core) CheckDomcCommit(tx *model.Transaction, state *model.State, height uint32) error {
	if tx.Type != model.TxTypeDomcCommit || tx.DomcCommit == nil {
		return model.RejectWrongTxType
	}
	p := tx.DomcCommit
	if p.CycleID != state.DomcCycleStart {
		return model.RejectDomcBadCycle
	}
	if PhaseAt(height, state.DomcCycleStart) != DomcPhaseCommit {
		return model.RejectDomcBadPhase
	}
	if !c.masternodes.IsActive(p.Identity) {
		return model.RejectDomcNotActiveMn
	}
	if !c.quorum.VerifyAggregate(p.Sig, nil, p.HashCommit[:], 0) {
		return model.RejectBadSignature
	}
	existing, ok, err := c.domc.GetCommit(p.CycleID, p.Identity)
	if err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	if ok && existing != nil {
		return model.RejectDomcDuplicate
	}
	return nil
}

// ApplyDomcCommit stores a validated commit, keyed by (cycle_id, identity).
func (c *Core) ApplyDomcCommit(tx *model.Transaction, state *model.State, height uint32) error {
	c.assertLocked()
	if err := c.CheckDomcCommit(tx, state, height); err != nil {
		return err
	}
	p := tx.DomcCommit
	commit := &model.DomcCommit{
		HashCommit:   p.HashCommit,
		Identity:     p.Identity,
		CycleID:      p.CycleID,
		CommitHeight: height,
		Sig:          p.Sig,
	}
	if err := c.domc.PutCommit(commit); err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	return nil
}

// UndoDomcCommit is the exact inverse of ApplyDomcCommit: no state-scalar
// mutation occurred, so undo only erases the stored commit.
func (c *Core) UndoDomcCommit(tx *model.Transaction) error {
	c.assertLocked()
	p := tx.DomcCommit
	if err := c.domc.DeleteCommit(p.CycleID, p.Identity); err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	return nil
}

// CheckDomcReveal validates a DOMC_REVEAL transaction (§4.6).
func (c *Core) CheckDomcReveal(tx *model.Transaction, state *model.State, height uint32) error {
	if tx.Type != model.TxTypeDomcReveal || tx.DomcReveal == nil {
		return model.RejectWrongTxType
	}
	p := tx.DomcReveal
	if PhaseAt(height, state.DomcCycleStart) != DomcPhaseReveal {
		return model.RejectDomcBadPhase
	}
	if p.CycleID != state.DomcCycleStart {
		return model.RejectDomcBadCycle
	}
	if !c.quorum.VerifyAggregate(p.Sig, nil, encodeReveal(p), 0) {
		return model.RejectBadSignature
	}
	prior, ok, err := c.domc.GetCommit(p.CycleID, p.Identity)
	if err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	if !ok {
		return model.RejectDomcNoPriorCommit
	}
	if hashCommit(p.RProposal, p.Salt) != prior.HashCommit {
		return model.RejectDomcHashMismatch
	}
	if p.RProposal < model.RMin || p.RProposal > model.RMaxAbs {
		return model.RejectDomcRateOutOfRange
	}
	return nil
}

// ApplyDomcReveal stores a validated reveal. A second reveal by the same
// identity in the same cycle supersedes the first only while still in
// the reveal phase (§4.6); that check is enforced by CheckDomcReveal's
// phase gate, which runs again for the superseding reveal.
func (c *Core) ApplyDomcReveal(tx *model.Transaction, state *model.State, height uint32) error {
	c.assertLocked()
	if err := c.CheckDomcReveal(tx, state, height); err != nil {
		return err
	}
	p := tx.DomcReveal
	reveal := &model.DomcReveal{
		RProposal:    p.RProposal,
		Salt:         p.Salt,
		Identity:     p.Identity,
		CycleID:      p.CycleID,
		RevealHeight: height,
		Sig:          p.Sig,
	}
	if err := c.domc.PutReveal(reveal); err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	return nil
}

// UndoDomcReveal is the exact inverse of ApplyDomcReveal.
func (c *Core) UndoDomcReveal(tx *model.Transaction) error {
	c.assertLocked()
	p := tx.DomcReveal
	if err := c.domc.DeleteReveal(p.CycleID, p.Identity); err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	return nil
}

// rMaxDynamicAtHeight evaluates the governance cap's decay schedule at
// height, relative to this deployment's V6 activation height (§4.6,
// SPEC_FULL §5). The schedule is a pure function of height alone, unlike
// R_annual's tally, so it needs no undo journal: UndoFinalizeDomcCycle
// simply re-evaluates it at the previous boundary.
func (c *Core) rMaxDynamicAtHeight(height uint32) uint32 {
	var blocksSinceActivation uint32
	if height > c.params.V6ActivationHeight {
		blocksSinceActivation = height - c.params.V6ActivationHeight
	}
	return RMaxDynamicAt(blocksSinceActivation)
}

// FinalizeDomcCycle runs the cycle-boundary finalize of §4.6: refresh
// R_max_dynamic from its decay schedule, collect valid reveals, take the
// upper median, clamp to the refreshed cap, and journal the pre-update
// R_annual for exact undo.
func (c *Core) FinalizeDomcCycle(state *model.State, height uint32) error {
	c.assertLocked()

	cycleID := state.DomcCycleStart
	reveals, err := c.domc.Reveals(cycleID)
	if err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}

	state.RMaxDynamic = c.rMaxDynamicAtHeight(height)

	previousR := state.RAnnual
	if len(reveals) > 0 {
		proposals := make([]uint32, 0, len(reveals))
		for _, r := range reveals {
			proposals = append(proposals, r.RProposal)
		}
		sort.Slice(proposals, func(i, j int) bool { return proposals[i] < proposals[j] })
		median := proposals[len(proposals)/2] // upper median for even counts
		if median > state.RMaxDynamic {
			median = state.RMaxDynamic
		}
		state.RAnnual = median
	}

	if err := c.domc.PutUndoRAnnual(height, previousR); err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	domcLog.Debugf("FinalizeDomcCycle: cycle=%d reveals=%d R_max_dynamic=%d R_annual=%d", cycleID, len(reveals), state.RMaxDynamic, state.RAnnual)
	return nil
}

// UndoFinalizeDomcCycle restores the previous R_annual from the journal
// written by FinalizeDomcCycle; the tally cannot be safely recomputed
// because reveals could be retroactively removed during the same reorg
// (§4.6). R_max_dynamic needs no journal entry: it is re-evaluated at the
// previous cycle boundary, since the decay schedule is a pure function of
// height and never influenced by any reveal or commit.
func (c *Core) UndoFinalizeDomcCycle(state *model.State, height uint32) error {
	c.assertLocked()

	previousR, ok, err := c.domc.GetUndoRAnnual(height)
	if err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	if !ok {
		return errors.Wrap(model.FatalStorageError, "no undo journal for DOMC finalize at this height")
	}
	state.RAnnual = previousR

	var previousBoundary uint32
	if height > model.CLen {
		previousBoundary = height - model.CLen
	}
	state.RMaxDynamic = c.rMaxDynamicAtHeight(previousBoundary)

	return c.domc.DeleteUndoRAnnual(height)
}

// InitNextDomcCycle updates the four DOMC anchor fields for the cycle
// starting at newCycleStart (§4.6 "Initialize next cycle").
func InitNextDomcCycle(state *model.State, newCycleStart uint32) {
	state.DomcCycleStart = newCycleStart
	state.DomcCycleLength = model.CLen
	state.DomcCommitStart = newCycleStart + model.CommitOffset
	state.DomcRevealDeadline = newCycleStart + model.RevealOffset
}

func hashCommit(rProposal uint32, salt [32]byte) [32]byte {
	buf := make([]byte, 4+32)
	buf[0] = byte(rProposal >> 24)
	buf[1] = byte(rProposal >> 16)
	buf[2] = byte(rProposal >> 8)
	buf[3] = byte(rProposal)
	copy(buf[4:], salt[:])
	return blake2b.Sum256(buf)
}

func encodeReveal(p *model.DomcRevealPayload) []byte {
	var buf bytes.Buffer
	buf.Write(p.Salt[:])
	buf.Write(p.Identity[:])
	return buf.Bytes()
}
