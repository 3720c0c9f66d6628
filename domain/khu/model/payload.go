package model

// TxType is the on-wire 1-byte type tag carried by every typed KHU
// transaction (§6.3).
type TxType byte

const (
	TxTypeMint TxType = iota + 1
	TxTypeRedeem
	TxTypeStake
	TxTypeUnstake
	TxTypeDomcCommit
	TxTypeDomcReveal
)

// MintPayload is the deserialized body of a MINT transaction.
type MintPayload struct {
	Amount Amount
	Dest   []byte
}

// RedeemPayload is the deserialized body of a REDEEM transaction.
type RedeemPayload struct {
	Amount Amount
	Dest   []byte
}

// StakePayload is the deserialized body of a STAKE transaction: the
// single shielded note output produced by the stake.
type StakePayload struct {
	NoteOutput ShieldedOutput
}

// ShieldedOutput is the public tuple a Sapling output exposes to the
// core: a commitment and the encrypted 512-byte memo (§1, out-of-scope
// proof verification; the core only consumes this tuple).
type ShieldedOutput struct {
	Cm         [32]byte
	EncMemo    [512]byte
}

// UnstakePayload is the deserialized body of an UNSTAKE transaction.
// UNSTAKE carries cm explicitly because the shielded nullifier
// derivation differs from the KHU lookup key (§3.4).
type UnstakePayload struct {
	Cm          [32]byte
	Nullifier   [32]byte
	Anchor      [32]byte
	Proof       []byte
	Cv          [32]byte
	Rk          [32]byte
	OutputDest  []byte
	OutputValue Amount
}

// DomcCommitPayload is the deserialized body of a DOMC_COMMIT transaction.
type DomcCommitPayload struct {
	HashCommit [32]byte
	Identity   [32]byte
	CycleID    uint32
	Sig        []byte
}

// DomcRevealPayload is the deserialized body of a DOMC_REVEAL transaction.
type DomcRevealPayload struct {
	RProposal uint32
	Salt      [32]byte
	Identity  [32]byte
	CycleID   uint32
	Sig       []byte
}

// Transaction is the minimal typed-transaction shape the core consumes.
// The enclosing chain decodes the real wire transaction and hands the
// core this projection; everything else (scripts, witness data) is the
// host chain's concern.
type Transaction struct {
	Type    TxType
	Inputs  []OutPoint
	Outputs []TxOutput

	Mint        *MintPayload
	Redeem      *RedeemPayload
	Stake       *StakePayload
	Unstake     *UnstakePayload
	DomcCommit  *DomcCommitPayload
	DomcReveal  *DomcRevealPayload
}

// TxOutput is a plain value/destination pair, mirroring vout[i].
type TxOutput struct {
	Value Amount
	Dest  []byte
}
