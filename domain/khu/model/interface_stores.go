package model

// StateStore persists State records keyed by height, plus the current
// tip pointer.
type StateStore interface {
	Get(height uint32) (*State, error)
	Put(height uint32, state *State) error
	Delete(height uint32) error
	Tip() (uint32, error)
	SetTip(height uint32) error
}

// Note is a shielded stake record identified by its commitment cm.
type Note struct {
	Amount           int64
	StakeStartHeight uint32
	UrAccumulated    int64
	Nullifier        [32]byte
	Cm               [32]byte
	Spent            bool
}

// NoteStore is the ZKHU note/nullifier/anchor keyed store (§4.8 "notes").
// Implementations must expose a streaming iterator over every note (the
// caller filters for eligibility) so the yield engine never loads the
// whole note set into memory (§4.4, §5).
type NoteStore interface {
	PutNote(note *Note) error
	GetNote(cm [32]byte) (*Note, bool, error)
	DeleteNote(cm [32]byte) error

	NullifierToCm(nullifier [32]byte) ([32]byte, bool, error)
	PutNullifierToCm(nullifier [32]byte, cm [32]byte) error
	DeleteNullifierToCm(nullifier [32]byte) error

	IsNullifierSpent(nullifier [32]byte) (bool, error)
	MarkNullifierSpent(nullifier [32]byte) error
	UnmarkNullifierSpent(nullifier [32]byte) error

	AppendCommitment(cm [32]byte) (anchorBefore [32]byte, anchorAfter [32]byte, err error)
	RollbackToAnchor(anchor [32]byte) error
	HasAnchor(anchor [32]byte) (bool, error)

	// Notes returns an iterator over every note, for streaming passes
	// such as the daily-yield engine. Callers must Release it.
	Notes() (NoteIterator, error)
}

// NoteIterator streams *Note values without materializing the whole set.
type NoteIterator interface {
	Next() bool
	Note() *Note
	Error() error
	Release()
}

// StateCommitment is a quorum-signed hash of a persisted State (§3.3, §4.7).
type StateCommitment struct {
	Height       uint32
	StateHash    [32]byte
	QuorumID     uint32
	AggregateSig []byte
	SignerBitset []byte
}

// CommitmentStore persists StateCommitments and the latest finalized
// height. Mutating or erasing at or below that height must fail.
type CommitmentStore interface {
	Put(commitment *StateCommitment) error
	Get(height uint32) (*StateCommitment, bool, error)
	LatestFinalizedHeight() (uint32, error)
	SetLatestFinalizedHeight(height uint32) error
}

// DomcCommit and DomcReveal carry the commit-reveal governance messages
// of §3.3, keyed by cycle id (the cycle-start height).
type DomcCommit struct {
	HashCommit  [32]byte
	Identity    [32]byte
	CycleID     uint32
	CommitHeight uint32
	Sig         []byte
}

type DomcReveal struct {
	RProposal   uint32
	Salt        [32]byte
	Identity    [32]byte
	CycleID     uint32
	RevealHeight uint32
	Sig         []byte
}

// DomcStore persists commits, reveals and the pre-image journal needed to
// undo a cycle finalize deterministically (§4.6).
type DomcStore interface {
	PutCommit(commit *DomcCommit) error
	GetCommit(cycleID uint32, identity [32]byte) (*DomcCommit, bool, error)
	DeleteCommit(cycleID uint32, identity [32]byte) error

	PutReveal(reveal *DomcReveal) error
	GetReveal(cycleID uint32, identity [32]byte) (*DomcReveal, bool, error)
	DeleteReveal(cycleID uint32, identity [32]byte) error

	// Reveals streams every reveal recorded for a cycle.
	Reveals(cycleID uint32) ([]*DomcReveal, error)

	PutUndoRAnnual(cycleBoundaryHeight uint32, previousRAnnual uint32) error
	GetUndoRAnnual(cycleBoundaryHeight uint32) (uint32, bool, error)
	DeleteUndoRAnnual(cycleBoundaryHeight uint32) error
}

// TxUndo is the per-transaction data the source deletes when applying an
// effect but still needs to restore it exactly on disconnect: original
// coin data spent by REDEEM, and the pre-append note-commitment anchor
// for STAKE. MINT and UNSTAKE carry everything undo needs in their own
// payload/note record, so their TxUndo is the zero value.
type TxUndo struct {
	RedeemInputs      []KhuCoin
	StakeAnchorBefore [32]byte
}

// BlockUndo is the reorg-safe undo journal for one connected block: one
// TxUndo per transaction, in the same order as the block's transactions
// (§4.1, §4.8). It holds no scalar state; disconnect restores the scalars
// from the predecessor's persisted State record.
type BlockUndo struct {
	Height  uint32
	TxUndos []TxUndo
}

// BlockUndoStore persists BlockUndo records keyed by height.
type BlockUndoStore interface {
	Put(height uint32, undo *BlockUndo) error
	Get(height uint32) (*BlockUndo, bool, error)
	Delete(height uint32) error
}

// KhuUtxoStore is the colored-UTXO keyed store; writes go through the
// same interface as loads. The leveldb-backed implementation in
// datastructures/khuutxostore reads and writes the persistent store
// directly and keeps no in-memory cache.
type KhuUtxoStore interface {
	Get(op OutPoint) (*KhuCoin, bool, error)
	Put(op OutPoint, coin *KhuCoin) error
	Delete(op OutPoint) error
}

// KhuCoin is a colored KHU UTXO entry (§4.2).
type KhuCoin struct {
	Amount int64
	Script []byte
	Staked bool
}
