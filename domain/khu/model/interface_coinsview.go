package model

// OutPoint identifies a single transaction output by its containing
// transaction id and output index, mirroring the host chain's UTXO key.
type OutPoint struct {
	TxID  [32]byte
	Index uint32
}

// Coin is the opaque representation of a host-chain UTXO entry the core
// consumes. StakedFlag replaces the source tree's boolean flag on Coin
// with an explicit field so the "staked and spent" combination never has
// to be represented: a spent coin is simply absent from the view.
type Coin struct {
	Amount     int64
	Script     []byte
	StakedFlag bool
}

// CoinsView is the external UTXO collaborator the core plugs into. It is
// owned and mutated by the enclosing chain's block validator; the core
// only ever reads, adds or spends through this interface.
type CoinsView interface {
	Get(op OutPoint) (Coin, bool)
	Have(op OutPoint) bool
	Add(op OutPoint, coin Coin)
	Spend(op OutPoint) bool
}

// Masternodes resolves whether a masternode identity is currently active,
// consumed by DOMC commit/reveal validation.
type Masternodes interface {
	IsActive(identity [32]byte) bool
}

// QuorumSet verifies a BLS aggregate signature against a claimed quorum
// and signer bitset. The core never performs signature aggregation
// itself; it only consumes a verified result.
type QuorumSet interface {
	VerifyAggregate(sig []byte, signerBitset []byte, msg []byte, quorumID uint32) bool
}

// Shielded verifies a Sapling shielded spend. The core assumes the proof
// is already constructed; it consumes only the public tuple.
type Shielded interface {
	VerifySpend(proof []byte, anchor [32]byte, nullifier [32]byte, cv [32]byte, rk [32]byte) bool
}
