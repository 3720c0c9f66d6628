package khu

import (
	"github.com/pkg/errors"

	"github.com/AdonisPhusis/khu-core/domain/khu/model"
)

// StateAt returns the State persisted at height, or nil if none exists.
// GetCurrentState covers the tip; this covers historical lookups, the
// read path the debug CLI's --height flag and reorg diagnostics need.
func (c *Core) StateAt(height uint32) (*model.State, error) {
	state, err := c.states.Get(height)
	if err != nil {
		return nil, errors.Wrap(model.FatalStorageError, err.Error())
	}
	return state, nil
}

// NoteByCommitment returns the shielded note recorded under commitment cm.
func (c *Core) NoteByCommitment(cm [32]byte) (*model.Note, bool, error) {
	note, ok, err := c.notes.GetNote(cm)
	if err != nil {
		return nil, false, errors.Wrap(model.FatalStorageError, err.Error())
	}
	return note, ok, nil
}

// NullifierStatus reports whether nullifier has already been spent.
func (c *Core) NullifierStatus(nullifier [32]byte) (spent bool, err error) {
	spent, err = c.notes.IsNullifierSpent(nullifier)
	if err != nil {
		return false, errors.Wrap(model.FatalStorageError, err.Error())
	}
	return spent, nil
}

// DomcCycleInfo summarizes the current cycle's phase window for read-only
// callers (debug CLI, future RPC surfaces), computed from the tip state's
// four DOMC anchor fields rather than stored redundantly.
type DomcCycleInfo struct {
	CycleStart     uint32
	CycleLength    uint32
	CommitStart    uint32
	RevealDeadline uint32
	Phase          DomcPhase
}

// DomcCycleInfoAt derives DomcCycleInfo for state at height.
func DomcCycleInfoAt(state *model.State, height uint32) DomcCycleInfo {
	return DomcCycleInfo{
		CycleStart:     state.DomcCycleStart,
		CycleLength:    state.DomcCycleLength,
		CommitStart:    state.DomcCommitStart,
		RevealDeadline: state.DomcRevealDeadline,
		Phase:          PhaseAt(height, state.DomcCycleStart),
	}
}
