package model

// Consensus-fixed constants (§6.4). These are part of the wire protocol:
// changing any of them is a hard fork.
const (
	Maturity    = 4320   // blocks between STAKE and eligible UNSTAKE
	YInterval   = 1440   // daily-yield pass cadence, in blocks
	TCycle      = 172800 // DAO treasury accrual cadence
	TDivisor    = 182500 // 2% annualised via daily accrual
	CLen        = 172800 // DOMC cycle length
	CommitOffset = 132480 // cycle_start + this = commit phase start
	RevealOffset = 152640 // cycle_start + this = reveal phase start

	RMin             = 0
	RMaxAbs          = 5000 // basis points
	RDefault         = 1500
	RMaxDynamicInit  = 4000
	RMaxDynamicFloor = 700

	QuorumThresholdNumerator   = 60
	QuorumThresholdDenominator = 100

	DFinal = 12 // maximum allowed reorg depth

	// MaxMoney bounds every monetary quantity; the narrowing checks in
	// amount.go are the single choke-point that enforces it.
	MaxMoney = 21_000_000_00 * CoinSat

	// CoinSat is 10^8, the smallest unit ("satoshi") per "coin".
	CoinSat = 100_000_000

	// BlocksPerYear is the fixed block count used by the R_max_dynamic
	// decay schedule (§4.6); a "year" is always this many blocks.
	BlocksPerYear = 525_960 // ~1 minute blocks
)

// Params bundles the small amount of deployment-specific configuration
// the core needs beyond the hard consensus constants above: the height at
// which KHU (V6) activates, and the genesis R_max_dynamic schedule origin.
type Params struct {
	V6ActivationHeight uint32
}
