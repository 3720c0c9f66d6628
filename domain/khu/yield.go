package khu

import (
	"github.com/pkg/errors"

	"github.com/AdonisPhusis/khu-core/domain/khu/model"
)

// ApplyDailyYield runs the streaming per-note accrual pass of §4.4. It is
// invoked by the pipeline whenever height - last_yield_height >=
// Y_INTERVAL. Only notes satisfying height - stake_start_height >=
// Maturity participate. The note-store iterator is released on every
// exit path, including early returns on error (§5 "Resource discipline").
func (c *Core) ApplyDailyYield(state *model.State, height uint32) (totalYield model.Amount, err error) {
	c.assertLocked()

	it, err := c.notes.Notes()
	if err != nil {
		return 0, errors.Wrap(model.FatalStorageError, err.Error())
	}
	defer it.Release()

	for it.Next() {
		note := it.Note()
		if note.Spent {
			continue
		}
		if height-note.StakeStartHeight < model.Maturity {
			continue
		}
		daily, derr := model.DailyYield(note.Amount, state.RAnnual)
		if derr != nil {
			return 0, errors.Wrap(model.FatalAmountOverflow, derr.Error())
		}
		note.UrAccumulated += daily
		if err := c.notes.PutNote(note); err != nil {
			return 0, errors.Wrap(model.FatalStorageError, err.Error())
		}
		totalYield += daily
	}
	if err := it.Error(); err != nil {
		return 0, errors.Wrap(model.FatalStorageError, err.Error())
	}

	newUr, err := model.SafeAdd(state.Ur, totalYield)
	if err != nil {
		return 0, errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	newCr, err := model.SafeAdd(state.Cr, totalYield)
	if err != nil {
		return 0, errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	state.Ur = newUr
	state.Cr = newCr
	state.LastYieldHeight = height
	state.LastYieldAmount = totalYield

	if !state.CheckInvariants() {
		return 0, model.FatalInvariantViolation
	}
	khuLog.Debugf("ApplyDailyYield: height=%d total=%d Cr=%d Ur=%d", height, totalYield, state.Cr, state.Ur)
	return totalYield, nil
}

// UndoDailyYield iterates the same deterministic note subset (every note
// eligible as of height) and subtracts the per-note daily increment,
// restoring state.Cr/state.Ur by the same total. Because the subset is a
// pure function of height and the note set, no explicit journal is
// required (§4.4); state.LastYieldAmount is available as an optional
// cross-check.
func (c *Core) UndoDailyYield(state *model.State, height uint32, rAnnualAtYield uint32) error {
	c.assertLocked()

	it, err := c.notes.Notes()
	if err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	defer it.Release()

	var total model.Amount
	for it.Next() {
		note := it.Note()
		if note.Spent {
			continue
		}
		if height-note.StakeStartHeight < model.Maturity {
			continue
		}
		daily, derr := model.DailyYield(note.Amount, rAnnualAtYield)
		if derr != nil {
			return errors.Wrap(model.FatalAmountOverflow, derr.Error())
		}
		note.UrAccumulated -= daily
		if err := c.notes.PutNote(note); err != nil {
			return errors.Wrap(model.FatalStorageError, err.Error())
		}
		total += daily
	}
	if err := it.Error(); err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}

	newUr, err := model.SafeSub(state.Ur, total)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	newCr, err := model.SafeSub(state.Cr, total)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	state.Ur = newUr
	state.Cr = newCr

	if !state.CheckInvariants() {
		return model.FatalInvariantViolation
	}
	return nil
}

// YieldDue reports whether the daily-yield pass should run at height,
// given the previous state's last_yield_height and the v6 activation
// gate (§2 control flow step 3, SPEC_FULL §5 V6 activation gating).
func YieldDue(height, lastYieldHeight, v6ActivationHeight uint32) bool {
	if height < v6ActivationHeight {
		return false
	}
	return height-lastYieldHeight >= model.YInterval
}
