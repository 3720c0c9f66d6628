package notestore_test

import (
	"path/filepath"
	"testing"

	"github.com/AdonisPhusis/khu-core/domain/khu/database"
	"github.com/AdonisPhusis/khu-core/domain/khu/datastructures/notestore"
	"github.com/AdonisPhusis/khu-core/domain/khu/model"
	"github.com/AdonisPhusis/khu-core/internal/merkle"
)

func newTestStore(t *testing.T) *notestore.Store {
	t.Helper()
	ctx, err := database.New(filepath.Join(t.TempDir(), "khu.db"), 1)
	if err != nil {
		t.Fatalf("database.New: unexpectedly failed: %s", err)
	}
	t.Cleanup(func() { ctx.Close() })
	return notestore.New(ctx.View(database.MakeBucket([]byte{0x12})))
}

func TestNotePutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	cm := [32]byte{1, 2, 3}
	note := &model.Note{Amount: 5000, StakeStartHeight: 10, UrAccumulated: 7, Nullifier: [32]byte{9}, Cm: cm}

	if err := store.PutNote(note); err != nil {
		t.Fatalf("PutNote: unexpectedly failed: %s", err)
	}
	got, ok, err := store.GetNote(cm)
	if err != nil || !ok {
		t.Fatalf("GetNote: want ok=true, got ok=%v err=%v", ok, err)
	}
	if *got != *note {
		t.Fatalf("GetNote: want %+v, got %+v", *note, *got)
	}
}

func TestNullifierToCmRoundTrip(t *testing.T) {
	store := newTestStore(t)
	nullifier := [32]byte{5}
	cm := [32]byte{6}

	if err := store.PutNullifierToCm(nullifier, cm); err != nil {
		t.Fatalf("PutNullifierToCm: unexpectedly failed: %s", err)
	}
	got, ok, err := store.NullifierToCm(nullifier)
	if err != nil || !ok || got != cm {
		t.Fatalf("NullifierToCm: want %x, got %x (ok=%v err=%v)", cm, got, ok, err)
	}
}

func TestNullifierSpentTracking(t *testing.T) {
	store := newTestStore(t)
	nullifier := [32]byte{2}

	spent, err := store.IsNullifierSpent(nullifier)
	if err != nil || spent {
		t.Fatalf("IsNullifierSpent: want false before marking, got %v (err=%v)", spent, err)
	}
	if err := store.MarkNullifierSpent(nullifier); err != nil {
		t.Fatalf("MarkNullifierSpent: unexpectedly failed: %s", err)
	}
	spent, err = store.IsNullifierSpent(nullifier)
	if err != nil || !spent {
		t.Fatalf("IsNullifierSpent: want true after marking, got %v (err=%v)", spent, err)
	}
	if err := store.UnmarkNullifierSpent(nullifier); err != nil {
		t.Fatalf("UnmarkNullifierSpent: unexpectedly failed: %s", err)
	}
	spent, err = store.IsNullifierSpent(nullifier)
	if err != nil || spent {
		t.Fatalf("IsNullifierSpent: want false after unmarking, got %v (err=%v)", spent, err)
	}
}

func TestAppendCommitmentThenRollbackToAnchor(t *testing.T) {
	store := newTestStore(t)

	cm1 := [32]byte{1}
	before1, after1, err := store.AppendCommitment(cm1)
	if err != nil {
		t.Fatalf("AppendCommitment(1): unexpectedly failed: %s", err)
	}
	if before1 != merkle.EmptyRoot() {
		t.Fatalf("AppendCommitment(1): want the empty root before the first leaf")
	}
	if after1 != merkle.Root([][32]byte{cm1}) {
		t.Fatalf("AppendCommitment(1): want the one-leaf root after")
	}

	cm2 := [32]byte{2}
	before2, after2, err := store.AppendCommitment(cm2)
	if err != nil {
		t.Fatalf("AppendCommitment(2): unexpectedly failed: %s", err)
	}
	if before2 != after1 {
		t.Fatalf("AppendCommitment(2): want the before-anchor to equal the prior after-anchor")
	}
	if after2 != merkle.Root([][32]byte{cm1, cm2}) {
		t.Fatalf("AppendCommitment(2): want the two-leaf root after")
	}

	has, err := store.HasAnchor(after2)
	if err != nil || !has {
		t.Fatalf("HasAnchor: want the latest anchor recognized, got %v (err=%v)", has, err)
	}

	if err := store.RollbackToAnchor(before2); err != nil {
		t.Fatalf("RollbackToAnchor: unexpectedly failed: %s", err)
	}
	has, err = store.HasAnchor(after2)
	if err != nil {
		t.Fatalf("HasAnchor: unexpectedly failed: %s", err)
	}
	if has {
		t.Fatalf("HasAnchor: want the two-leaf anchor gone after rolling back to the one-leaf anchor")
	}

	// Appending again after rollback must start from the one-leaf root and
	// reproduce the same two-leaf root.
	before3, after3, err := store.AppendCommitment(cm2)
	if err != nil {
		t.Fatalf("AppendCommitment(3): unexpectedly failed: %s", err)
	}
	if before3 != after1 || after3 != after2 {
		t.Fatalf("AppendCommitment(3): want the tree state to match pre-rollback exactly")
	}
}

func TestNotesIteratorStreamsAllNotesWithCm(t *testing.T) {
	store := newTestStore(t)
	cmA := [32]byte{0xAA}
	cmB := [32]byte{0xBB}
	if err := store.PutNote(&model.Note{Amount: 1, Cm: cmA}); err != nil {
		t.Fatalf("PutNote(a): unexpectedly failed: %s", err)
	}
	if err := store.PutNote(&model.Note{Amount: 2, Cm: cmB}); err != nil {
		t.Fatalf("PutNote(b): unexpectedly failed: %s", err)
	}

	it, err := store.Notes()
	if err != nil {
		t.Fatalf("Notes: unexpectedly failed: %s", err)
	}
	defer it.Release()

	seen := map[[32]byte]int64{}
	for it.Next() {
		n := it.Note()
		seen[n.Cm] = n.Amount
	}
	if err := it.Error(); err != nil {
		t.Fatalf("Notes: unexpectedly failed during scan: %s", err)
	}
	if seen[cmA] != 1 || seen[cmB] != 2 {
		t.Fatalf("Notes: want both notes keyed by their correct cm, got %+v", seen)
	}
}
