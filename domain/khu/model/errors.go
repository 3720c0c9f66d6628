package model

// RejectReason is returned by a check_* validator: the transaction is
// refused, state is unchanged, and the reason surfaces to the caller
// (§7.1). RejectReason values are comparable with ==, matching the
// source tree's reject-string codes (bad-stake-no-inputs, etc).
type RejectReason string

func (r RejectReason) Error() string { return string(r) }

const (
	RejectInvalidAmount        RejectReason = "invalid-amount"
	RejectInvalidDestination   RejectReason = "invalid-destination"
	RejectInsufficientCollateral RejectReason = "insufficient-collateral"
	RejectInsufficientSupply   RejectReason = "insufficient-supply"
	RejectInsufficientCr       RejectReason = "insufficient-cr"
	RejectInsufficientUr       RejectReason = "insufficient-ur"
	RejectMaturityNotReached   RejectReason = "maturity-not-reached"
	RejectNullifierSpent       RejectReason = "nullifier-spent"
	RejectAnchorUnknown        RejectReason = "anchor-unknown"
	RejectCommitmentUnknown    RejectReason = "commitment-unknown"
	RejectNoteAlreadySpent     RejectReason = "note-already-spent"
	RejectOutputAmountMismatch RejectReason = "output-amount-mismatch"
	RejectQuorumInsufficient   RejectReason = "quorum-insufficient"
	RejectWrongTxType          RejectReason = "wrong-tx-type"
	RejectBadShieldedSpend     RejectReason = "bad-shielded-spend"
	RejectBadMemo              RejectReason = "bad-memo"
	RejectDomcBadPhase         RejectReason = "domc-bad-phase"
	RejectDomcBadCycle         RejectReason = "domc-bad-cycle"
	RejectDomcDuplicate        RejectReason = "domc-duplicate"
	RejectDomcNoPriorCommit    RejectReason = "domc-no-prior-commit"
	RejectDomcHashMismatch     RejectReason = "domc-hash-mismatch"
	RejectDomcRateOutOfRange   RejectReason = "domc-rate-out-of-range"
	RejectDomcNotActiveMn      RejectReason = "domc-not-active-masternode"
	RejectBadSignature         RejectReason = "bad-signature"
	RejectCommitmentHeightMismatch RejectReason = "commitment-height-mismatch"
	RejectCommitmentHashMismatch   RejectReason = "commitment-hash-mismatch"
)

// FatalReason is returned from connect_block/disconnect_block (§7.2): the
// enclosing driver must discard the block and roll stores back to their
// pre-block snapshot.
type FatalReason string

func (r FatalReason) Error() string { return string(r) }

const (
	FatalInvariantViolation FatalReason = "invariant-violation"
	FatalAmountOverflow     FatalReason = "amount-overflow"
	FatalStorageError       FatalReason = "storage-error"
	FatalStateChainBroken   FatalReason = "prev-state-hash-mismatch"
)

// ReorgReason is returned when a disconnect is refused outright (§7.3).
type ReorgReason string

func (r ReorgReason) Error() string { return string(r) }

const (
	ReorgTooDeep        ReorgReason = "reorg-too-deep"
	ReorgFinalityConflict ReorgReason = "finality-conflict"
)
