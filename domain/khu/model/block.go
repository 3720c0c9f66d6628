package model

// Block is the minimal per-block input the core pipeline consumes: the
// ordered set of typed KHU transactions plus their outpoints, and an
// optional quorum signature over the new state's commitment hash
// (§4.1 step 7, §6.1).
type Block struct {
	Height    uint32
	BlockHash [32]byte

	// Txs is in block order; no two transactions in the same block may
	// observe each other's intermediate state (§5 Ordering).
	Txs []BlockTx

	// QuorumSignature is non-nil when a masternode quorum has already
	// signed this block's state commitment (§4.1 step 7). Signing
	// itself is the BLS-aggregation collaborator's job (§1); the core
	// only consumes the verified result.
	QuorumSignature *QuorumSignature
}

// BlockTx pairs a typed transaction with the outpoint its own outputs
// are recorded under. MINT uses it to create the colored UTXO on connect
// and to erase it on undo; REDEEM and STAKE restore their spent inputs
// from tx.Inputs instead.
type BlockTx struct {
	Tx          *Transaction
	SelfOutpoint OutPoint
}

// QuorumSignature is the externally-verified aggregate signature over a
// block's state commitment hash (§3.3, §4.7).
type QuorumSignature struct {
	QuorumID     uint32
	AggregateSig []byte
	SignerBitset []byte
}
