package model

import (
	"math/big"

	"github.com/pkg/errors"
)

// Amount is a signed satoshi quantity. All monetary state fields are
// Amount; the narrowing cast back to int64 (narrow, used by SafeAdd,
// SafeSub, DailyYield and TreasuryBudget) is the single choke-point that enforces MaxMoney (§9.1 "128-bit integer
// shims for overflow safety" — the narrowing cast is the choke-point).
type Amount = int64

// ErrAmountOverflow is returned by the Safe* helpers when an intermediate
// or final value would exceed MaxMoney or underflow below zero context
// requires non-negativity for.
var ErrAmountOverflow = errors.New("khu: amount overflow")

// SafeAdd adds a and b using a 128-bit intermediate and rejects results
// outside [0, MaxMoney].
func SafeAdd(a, b Amount) (Amount, error) {
	sum := new(big.Int).Add(big.NewInt(a), big.NewInt(b))
	return narrow(sum)
}

// SafeSub subtracts b from a using a 128-bit intermediate and rejects
// results outside [0, MaxMoney].
func SafeSub(a, b Amount) (Amount, error) {
	diff := new(big.Int).Sub(big.NewInt(a), big.NewInt(b))
	return narrow(diff)
}

// DailyYield computes floor(amount * rAnnualBp / 10000 / 365) using a
// 128-bit intermediate, exactly as §4.4 specifies.
func DailyYield(amount Amount, rAnnualBp uint32) (Amount, error) {
	v := new(big.Int).Mul(big.NewInt(amount), big.NewInt(int64(rAnnualBp)))
	v.Div(v, big.NewInt(10000))
	v.Div(v, big.NewInt(365))
	return narrow(v)
}

// TreasuryBudget computes floor((u + ur) / TDivisor) using a 128-bit
// intermediate, exactly as §4.5 specifies.
func TreasuryBudget(u, ur Amount) (Amount, error) {
	v := new(big.Int).Add(big.NewInt(u), big.NewInt(ur))
	v.Div(v, big.NewInt(TDivisor))
	return narrow(v)
}

func narrow(v *big.Int) (Amount, error) {
	if v.Sign() < 0 {
		return 0, errors.Wrap(ErrAmountOverflow, "negative amount")
	}
	if !v.IsInt64() || v.Int64() > MaxMoney {
		return 0, errors.Wrap(ErrAmountOverflow, "exceeds MAX_MONEY")
	}
	return v.Int64(), nil
}
