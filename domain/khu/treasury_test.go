package khu

import (
	"testing"

	"github.com/AdonisPhusis/khu-core/domain/khu/model"
)

func TestTreasuryDueGatesOnCycleAndActivation(t *testing.T) {
	if TreasuryDue(100, 200) {
		t.Fatalf("TreasuryDue: want false before v6 activation")
	}
	if TreasuryDue(model.TCycle-1, 0) {
		t.Fatalf("TreasuryDue: want false before a full T_CYCLE has elapsed")
	}
	if !TreasuryDue(model.TCycle, 0) {
		t.Fatalf("TreasuryDue: want true exactly at T_CYCLE")
	}
}

func TestApplyTreasuryAccrualThenUndoRoundTrip(t *testing.T) {
	core, _ := newTestCore(0)
	state := &model.State{C: 200000, U: 150000, Z: 50000, T: 0}

	core.lock()
	budget, err := core.ApplyTreasuryAccrual(state)
	core.unlock()
	if err != nil {
		t.Fatalf("ApplyTreasuryAccrual: unexpectedly failed: %s", err)
	}
	if state.T != budget {
		t.Fatalf("ApplyTreasuryAccrual: want T=%d, got %d", budget, state.T)
	}

	core.lock()
	err = core.UndoTreasuryAccrual(state, state.U, state.Ur)
	core.unlock()
	if err != nil {
		t.Fatalf("UndoTreasuryAccrual: unexpectedly failed: %s", err)
	}
	if state.T != 0 {
		t.Fatalf("UndoTreasuryAccrual: want T restored to 0, got %d", state.T)
	}
}
