package domcstore_test

import (
	"path/filepath"
	"testing"

	"github.com/AdonisPhusis/khu-core/domain/khu/database"
	"github.com/AdonisPhusis/khu-core/domain/khu/datastructures/domcstore"
	"github.com/AdonisPhusis/khu-core/domain/khu/model"
)

func newTestStore(t *testing.T) *domcstore.Store {
	t.Helper()
	ctx, err := database.New(filepath.Join(t.TempDir(), "khu.db"), 1)
	if err != nil {
		t.Fatalf("database.New: unexpectedly failed: %s", err)
	}
	t.Cleanup(func() { ctx.Close() })
	return domcstore.New(ctx.View(database.MakeBucket([]byte{0x14})))
}

func TestCommitPutGetDeleteRoundTrip(t *testing.T) {
	store := newTestStore(t)
	identity := [32]byte{1}
	commit := &model.DomcCommit{
		HashCommit:   [32]byte{9},
		Identity:     identity,
		CycleID:      3,
		CommitHeight: 100,
		Sig:          []byte{1, 2, 3},
	}
	if err := store.PutCommit(commit); err != nil {
		t.Fatalf("PutCommit: unexpectedly failed: %s", err)
	}
	got, ok, err := store.GetCommit(3, identity)
	if err != nil || !ok {
		t.Fatalf("GetCommit: want ok=true, got ok=%v err=%v", ok, err)
	}
	if got.HashCommit != commit.HashCommit || got.CommitHeight != commit.CommitHeight {
		t.Fatalf("GetCommit: want %+v, got %+v", *commit, *got)
	}
	if err := store.DeleteCommit(3, identity); err != nil {
		t.Fatalf("DeleteCommit: unexpectedly failed: %s", err)
	}
	_, ok, err = store.GetCommit(3, identity)
	if err != nil || ok {
		t.Fatalf("GetCommit: want ok=false after DeleteCommit, got ok=%v err=%v", ok, err)
	}
}

func TestRevealsStreamsOnlyMatchingCycle(t *testing.T) {
	store := newTestStore(t)
	identityA := [32]byte{1}
	identityB := [32]byte{2}

	if err := store.PutReveal(&model.DomcReveal{RProposal: 1000, Identity: identityA, CycleID: 1}); err != nil {
		t.Fatalf("PutReveal(a): unexpectedly failed: %s", err)
	}
	if err := store.PutReveal(&model.DomcReveal{RProposal: 2000, Identity: identityB, CycleID: 1}); err != nil {
		t.Fatalf("PutReveal(b): unexpectedly failed: %s", err)
	}
	if err := store.PutReveal(&model.DomcReveal{RProposal: 3000, Identity: identityA, CycleID: 2}); err != nil {
		t.Fatalf("PutReveal(c): unexpectedly failed: %s", err)
	}

	reveals, err := store.Reveals(1)
	if err != nil {
		t.Fatalf("Reveals: unexpectedly failed: %s", err)
	}
	if len(reveals) != 2 {
		t.Fatalf("Reveals: want 2 reveals for cycle 1, got %d", len(reveals))
	}
	total := uint32(0)
	for _, r := range reveals {
		total += r.RProposal
	}
	if total != 3000 {
		t.Fatalf("Reveals: want RProposal sum 3000 for cycle 1, got %d", total)
	}
}

func TestUndoRAnnualRoundTrip(t *testing.T) {
	store := newTestStore(t)
	if err := store.PutUndoRAnnual(172800, 1500); err != nil {
		t.Fatalf("PutUndoRAnnual: unexpectedly failed: %s", err)
	}
	got, ok, err := store.GetUndoRAnnual(172800)
	if err != nil || !ok || got != 1500 {
		t.Fatalf("GetUndoRAnnual: want 1500, got %d (ok=%v err=%v)", got, ok, err)
	}
	if err := store.DeleteUndoRAnnual(172800); err != nil {
		t.Fatalf("DeleteUndoRAnnual: unexpectedly failed: %s", err)
	}
	_, ok, err = store.GetUndoRAnnual(172800)
	if err != nil || ok {
		t.Fatalf("GetUndoRAnnual: want ok=false after delete, got ok=%v err=%v", ok, err)
	}
}
