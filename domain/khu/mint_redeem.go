package khu

import (
	"github.com/pkg/errors"

	"github.com/AdonisPhusis/khu-core/domain/khu/model"
)

// CheckMint validates a MINT transaction against the spec's preconditions
// (§4.2): positive amount and a valid destination. Pure over state; it
// takes no lock because it mutates nothing.
func CheckMint(tx *model.Transaction) error {
	if tx.Type != model.TxTypeMint || tx.Mint == nil {
		return model.RejectWrongTxType
	}
	if tx.Mint.Amount <= 0 {
		return model.RejectInvalidAmount
	}
	if len(tx.Mint.Dest) == 0 {
		return model.RejectInvalidDestination
	}
	return nil
}

// ApplyMint applies a MINT effect: the adjacent atomic pair C += amount,
// U += amount, with no statement between them, then creates the colored
// UTXO under the transaction's own outpoint (§4.2).
func (c *Core) ApplyMint(tx *model.Transaction, state *model.State, outpoint model.OutPoint, height uint32) error {
	c.assertLocked()

	if err := CheckMint(tx); err != nil {
		return err
	}
	amount := tx.Mint.Amount

	newC, err := model.SafeAdd(state.C, amount)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	newU, err := model.SafeAdd(state.U, amount)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	state.C = newC // adjacent atomic pair: no statement between C and U
	state.U = newU

	if err := c.khuUtxos.Put(outpoint, &model.KhuCoin{Amount: amount, Script: tx.Mint.Dest, Staked: false}); err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}

	if !state.CheckInvariants() {
		return model.FatalInvariantViolation
	}
	khuLog.Debugf("ApplyMint: amount=%d height=%d C=%d U=%d", amount, height, state.C, state.U)
	return nil
}

// UndoMint is the exact inverse of ApplyMint: decrement both fields and
// erase the colored UTXO.
func (c *Core) UndoMint(tx *model.Transaction, state *model.State, outpoint model.OutPoint) error {
	c.assertLocked()

	amount := tx.Mint.Amount

	newC, err := model.SafeSub(state.C, amount)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	newU, err := model.SafeSub(state.U, amount)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	state.C = newC
	state.U = newU

	if err := c.khuUtxos.Delete(outpoint); err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}

	if !state.CheckInvariants() {
		return model.FatalInvariantViolation
	}
	return nil
}

// CheckRedeem validates a REDEEM transaction (§4.2): the referenced
// inputs resolve to unspent, unstaked KHU-colored UTXOs totalling at
// least payload.amount, and output 0 pays exactly that amount to a valid
// destination.
func (c *Core) CheckRedeem(tx *model.Transaction) error {
	if tx.Type != model.TxTypeRedeem || tx.Redeem == nil {
		return model.RejectWrongTxType
	}
	if tx.Redeem.Amount <= 0 {
		return model.RejectInvalidAmount
	}
	if len(tx.Redeem.Dest) == 0 {
		return model.RejectInvalidDestination
	}

	var total model.Amount
	for _, in := range tx.Inputs {
		coin, ok, err := c.khuUtxos.Get(in)
		if err != nil {
			return errors.Wrap(model.FatalStorageError, err.Error())
		}
		if !ok || coin.Staked {
			return model.RejectInsufficientSupply
		}
		total += coin.Amount
	}
	if total < tx.Redeem.Amount {
		return model.RejectInsufficientSupply
	}
	if len(tx.Outputs) == 0 || tx.Outputs[0].Value != tx.Redeem.Amount {
		return model.RejectOutputAmountMismatch
	}
	return nil
}

// ApplyRedeem applies a REDEEM effect: a pre-mutation check that
// C >= amount && U >= amount, then the adjacent atomic pair C -= amount,
// U -= amount, then marks the inputs spent (§4.2). It returns the
// original coin for each spent input so the pipeline can journal it into
// a BlockUndo for exact disconnect (§4.8).
func (c *Core) ApplyRedeem(tx *model.Transaction, state *model.State) ([]model.KhuCoin, error) {
	c.assertLocked()

	if err := c.CheckRedeem(tx); err != nil {
		return nil, err
	}
	amount := tx.Redeem.Amount

	if state.C < amount || state.U < amount {
		return nil, model.RejectInsufficientCollateral
	}

	spent := make([]model.KhuCoin, 0, len(tx.Inputs))
	for _, in := range tx.Inputs {
		coin, ok, err := c.khuUtxos.Get(in)
		if err != nil {
			return nil, errors.Wrap(model.FatalStorageError, err.Error())
		}
		if !ok {
			return nil, model.RejectInsufficientSupply
		}
		spent = append(spent, *coin)
	}

	newC, err := model.SafeSub(state.C, amount)
	if err != nil {
		return nil, errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	newU, err := model.SafeSub(state.U, amount)
	if err != nil {
		return nil, errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	state.C = newC // adjacent atomic pair: no statement between C and U
	state.U = newU

	for _, in := range tx.Inputs {
		if err := c.khuUtxos.Delete(in); err != nil {
			return nil, errors.Wrap(model.FatalStorageError, err.Error())
		}
	}

	if !state.CheckInvariants() {
		return nil, model.FatalInvariantViolation
	}
	khuLog.Debugf("ApplyRedeem: amount=%d C=%d U=%d", amount, state.C, state.U)
	return spent, nil
}

// UndoRedeem is the exact inverse of ApplyRedeem, restoring each input
// from the BlockUndo-journaled coin data.
func (c *Core) UndoRedeem(tx *model.Transaction, state *model.State, originalInputs []model.KhuCoin) error {
	c.assertLocked()

	amount := tx.Redeem.Amount

	newC, err := model.SafeAdd(state.C, amount)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	newU, err := model.SafeAdd(state.U, amount)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	state.C = newC
	state.U = newU

	for i, in := range tx.Inputs {
		coin := originalInputs[i]
		if err := c.khuUtxos.Put(in, &coin); err != nil {
			return errors.Wrap(model.FatalStorageError, err.Error())
		}
	}

	if !state.CheckInvariants() {
		return model.FatalInvariantViolation
	}
	return nil
}
