package khu

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/AdonisPhusis/khu-core/domain/khu/model"
)

// memoMagic is the 4-byte tag every ZKHU stake memo begins with (§4.3).
var memoMagic = [4]byte{'Z', 'K', 'H', 'U'}

// decodeStakeMemo parses the 512-byte memo "ZKHU" || ver || stake_start_height
// || amount || ur_accumulated(=0) || pad (§4.3).
func decodeStakeMemo(memo [512]byte) (startHeight uint32, amount model.Amount, urAccumulated model.Amount, ok bool) {
	if !bytes.Equal(memo[0:4], memoMagic[:]) {
		return 0, 0, 0, false
	}
	// byte 4: version, bytes 5-8: stake_start_height, 9-16: amount, 17-24: ur_accumulated
	startHeight = binary.BigEndian.Uint32(memo[5:9])
	amount = int64(binary.BigEndian.Uint64(memo[9:17]))
	urAccumulated = int64(binary.BigEndian.Uint64(memo[17:25]))
	return startHeight, amount, urAccumulated, true
}

// CheckStake validates a STAKE transaction: exactly one shielded output
// carrying a well-formed ZKHU memo with ur_accumulated == 0 (§4.3).
func CheckStake(tx *model.Transaction, height uint32) error {
	if tx.Type != model.TxTypeStake || tx.Stake == nil {
		return model.RejectWrongTxType
	}
	startHeight, amount, urAcc, ok := decodeStakeMemo(tx.Stake.NoteOutput.EncMemo)
	if !ok {
		return model.RejectBadMemo
	}
	if amount <= 0 {
		return model.RejectInvalidAmount
	}
	if urAcc != 0 {
		return model.RejectBadMemo
	}
	if startHeight != height {
		return model.RejectBadMemo
	}
	if len(tx.Inputs) != 1 {
		return model.RejectWrongTxType
	}
	return nil
}

// ApplyStake applies a STAKE effect: a pure form conversion KHU_T ->
// ZKHU. U -= amount, Z += amount; C, Cr, Ur, T, R are untouched, so I1
// holds because U+Z is unchanged (§4.3).
func (c *Core) ApplyStake(tx *model.Transaction, state *model.State, height uint32) (anchorBefore [32]byte, err error) {
	c.assertLocked()

	if err := CheckStake(tx, height); err != nil {
		return anchorBefore, err
	}
	_, amount, _, _ := decodeStakeMemo(tx.Stake.NoteOutput.EncMemo)
	cm := tx.Stake.NoteOutput.Cm

	input := tx.Inputs[0]
	coin, ok, err := c.khuUtxos.Get(input)
	if err != nil {
		return anchorBefore, errors.Wrap(model.FatalStorageError, err.Error())
	}
	if !ok || coin.Staked || coin.Amount != amount {
		return anchorBefore, model.RejectInsufficientSupply
	}

	newU, err := model.SafeSub(state.U, amount)
	if err != nil {
		return anchorBefore, errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	newZ, err := model.SafeAdd(state.Z, amount)
	if err != nil {
		return anchorBefore, errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	state.U = newU
	state.Z = newZ

	if err := c.khuUtxos.Delete(input); err != nil {
		return anchorBefore, errors.Wrap(model.FatalStorageError, err.Error())
	}

	var nullifier [32]byte
	copy(nullifier[:], cm[:]) // derivation owned by the Sapling layer; core stores the public pair

	note := &model.Note{
		Amount:           amount,
		StakeStartHeight: height,
		UrAccumulated:    0,
		Nullifier:        nullifier,
		Cm:               cm,
		Spent:            false,
	}
	if err := c.notes.PutNote(note); err != nil {
		return anchorBefore, errors.Wrap(model.FatalStorageError, err.Error())
	}
	if err := c.notes.PutNullifierToCm(nullifier, cm); err != nil {
		return anchorBefore, errors.Wrap(model.FatalStorageError, err.Error())
	}
	before, _, err := c.notes.AppendCommitment(cm)
	if err != nil {
		return anchorBefore, errors.Wrap(model.FatalStorageError, err.Error())
	}
	anchorBefore = before

	if !state.CheckInvariants() {
		return anchorBefore, model.FatalInvariantViolation
	}
	khuLog.Debugf("ApplyStake: amount=%d height=%d U=%d Z=%d", amount, height, state.U, state.Z)
	return anchorBefore, nil
}

// UndoStake restores the KHU-colored UTXO, erases the note, rolls the
// tree back to the pre-append anchor, and deletes the nullifier mapping.
func (c *Core) UndoStake(tx *model.Transaction, state *model.State, anchorBefore [32]byte) error {
	c.assertLocked()

	_, amount, _, _ := decodeStakeMemo(tx.Stake.NoteOutput.EncMemo)
	cm := tx.Stake.NoteOutput.Cm
	input := tx.Inputs[0]

	note, ok, err := c.notes.GetNote(cm)
	if err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	if !ok {
		return errors.Wrap(model.FatalStorageError, "note missing on undo")
	}

	newU, err := model.SafeAdd(state.U, amount)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	newZ, err := model.SafeSub(state.Z, amount)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	state.U = newU
	state.Z = newZ

	if err := c.khuUtxos.Put(input, &model.KhuCoin{Amount: amount, Staked: false}); err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	if err := c.notes.DeleteNullifierToCm(note.Nullifier); err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	if err := c.notes.DeleteNote(cm); err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	if err := c.notes.RollbackToAnchor(anchorBefore); err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}

	if !state.CheckInvariants() {
		return model.FatalInvariantViolation
	}
	return nil
}

// CheckUnstake validates an UNSTAKE transaction against the seven
// conditions of §4.3's check_unstake.
func (c *Core) CheckUnstake(tx *model.Transaction, state *model.State, height uint32) error {
	if tx.Type != model.TxTypeUnstake || tx.Unstake == nil {
		return model.RejectWrongTxType
	}

	note, ok, err := c.notes.GetNote(tx.Unstake.Cm)
	if err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	if !ok {
		return model.RejectCommitmentUnknown
	}
	if note.Spent {
		return model.RejectNoteAlreadySpent
	}
	spent, err := c.notes.IsNullifierSpent(tx.Unstake.Nullifier)
	if err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	if spent {
		return model.RejectNullifierSpent
	}
	hasAnchor, err := c.notes.HasAnchor(tx.Unstake.Anchor)
	if err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	if !hasAnchor {
		return model.RejectAnchorUnknown
	}
	if !c.shielded.VerifySpend(tx.Unstake.Proof, tx.Unstake.Anchor, tx.Unstake.Nullifier, tx.Unstake.Cv, tx.Unstake.Rk) {
		return model.RejectBadShieldedSpend
	}

	if height-note.StakeStartHeight < model.Maturity {
		return model.RejectMaturityNotReached
	}

	bonus := note.UrAccumulated
	if bonus < 0 {
		return model.RejectInvalidAmount
	}
	if state.Cr < bonus || state.Ur < bonus {
		return model.RejectInsufficientCr
	}
	if state.C+bonus > model.MaxMoney || state.U+bonus > model.MaxMoney {
		return model.RejectInvalidAmount
	}

	expected := note.Amount + bonus
	if tx.Unstake.OutputValue != expected || len(tx.Unstake.OutputDest) == 0 {
		return model.RejectOutputAmountMismatch
	}
	return nil
}

// ApplyUnstake applies the double-flux effect of §4.3. The five state
// assignments (U, C, Cr, Ur, Z) are adjacent; no other statement may be
// interleaved between them, preserving I1 and I2 by construction.
func (c *Core) ApplyUnstake(tx *model.Transaction, state *model.State, height uint32) error {
	c.assertLocked()

	if err := c.CheckUnstake(tx, state, height); err != nil {
		return err
	}
	note, _, err := c.notes.GetNote(tx.Unstake.Cm)
	if err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	bonus := note.UrAccumulated

	newU, err := model.SafeAdd(state.U, bonus)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	newC, err := model.SafeAdd(state.C, bonus)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	if state.Cr < bonus || state.Ur < bonus {
		return model.RejectInsufficientCr
	}
	newCr := state.Cr - bonus
	newUr := state.Ur - bonus
	newZ, err := model.SafeSub(state.Z, note.Amount)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	newU2, err := model.SafeAdd(newU, note.Amount)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}

	// double flux: adjacent, no statement interleaved (§4.3)
	state.U = newU2
	state.C = newC
	state.Cr = newCr
	state.Ur = newUr
	state.Z = newZ

	note.Spent = true
	if err := c.notes.PutNote(note); err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	if err := c.notes.MarkNullifierSpent(tx.Unstake.Nullifier); err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}

	if !state.CheckInvariants() {
		return model.FatalInvariantViolation
	}
	khuLog.Debugf("ApplyUnstake: bonus=%d height=%d C=%d U=%d Cr=%d Ur=%d", bonus, height, state.C, state.U, state.Cr, state.Ur)
	return nil
}

// UndoUnstake reverses the state deltas in reverse order, unspends
// the nullifier, and unmarks the note. The note record is retained
// (spent=true) rather than erased by ApplyUnstake precisely so bonus is
// still retrievable here (§4.3).
func (c *Core) UndoUnstake(tx *model.Transaction, state *model.State) error {
	c.assertLocked()

	note, ok, err := c.notes.GetNote(tx.Unstake.Cm)
	if err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	if !ok {
		return errors.Wrap(model.FatalStorageError, "note missing on undo")
	}
	bonus := note.UrAccumulated

	newZ, err := model.SafeAdd(state.Z, note.Amount)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	newU, err := model.SafeSub(state.U, note.Amount)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	newUr, err := model.SafeAdd(state.Ur, bonus)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	newCr, err := model.SafeAdd(state.Cr, bonus)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	newU2, err := model.SafeSub(newU, bonus)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}
	newC, err := model.SafeSub(state.C, bonus)
	if err != nil {
		return errors.Wrap(model.FatalAmountOverflow, err.Error())
	}

	// reverse order of Apply (§4.3 undo_unstake)
	state.Z = newZ
	state.Ur = newUr
	state.Cr = newCr
	state.C = newC
	state.U = newU2

	note.Spent = false
	if err := c.notes.PutNote(note); err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}
	if err := c.notes.UnmarkNullifierSpent(tx.Unstake.Nullifier); err != nil {
		return errors.Wrap(model.FatalStorageError, err.Error())
	}

	if !state.CheckInvariants() {
		return model.FatalInvariantViolation
	}
	return nil
}
