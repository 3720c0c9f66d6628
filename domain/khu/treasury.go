package khu

import (
	"github.com/pkg/errors"

	"github.com/AdonisPhusis/khu-core/domain/khu/model"
)

// TreasuryDue reports whether height is a treasury accrual boundary
// (§4.5): (height - v6ActivationHeight) mod T_CYCLE == 0.
func TreasuryDue(height, v6ActivationHeight uint32) bool {
	if height < v6ActivationHeight {
		return false
	}
	return (height-v6ActivationHeight)%model.TCycle == 0
}

// ApplyTreasuryAccrual accrues the DAO treasury budget computed on the
// *initial* U + Ur of the block (§4.1 step 2, §4.5): it must run before
// any per-tx effect touches U or Ur this block.
func (c *Core) ApplyTreasuryAccrual(state *model.State) (budget model.Amount, err error) {
	c.assertLocked()

	budget, err = model.TreasuryBudget(state.U, state.Ur)
	if err != nil {
		return 0, errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	newT, err := model.SafeAdd(state.T, budget)
	if err != nil {
		return 0, errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	state.T = newT

	if !state.CheckInvariants() {
		return 0, model.FatalInvariantViolation
	}
	khuLog.Debugf("ApplyTreasuryAccrual: budget=%d T=%d", budget, state.T)
	return budget, nil
}

// UndoTreasuryAccrual subtracts the same budget, recomputed from the
// state at that boundary height (deterministic given U, Ur; §4.5).
func (c *Core) UndoTreasuryAccrual(state *model.State, uAtBoundary, urAtBoundary model.Amount) error {
	c.assertLocked()

	budget, err := model.TreasuryBudget(uAtBoundary, urAtBoundary)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	newT, err := model.SafeSub(state.T, budget)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	state.T = newT

	if !state.CheckInvariants() {
		return model.FatalInvariantViolation
	}
	return nil
}
