package blockundostore_test

import (
	"path/filepath"
	"testing"

	"github.com/AdonisPhusis/khu-core/domain/khu/database"
	"github.com/AdonisPhusis/khu-core/domain/khu/datastructures/blockundostore"
	"github.com/AdonisPhusis/khu-core/domain/khu/model"
)

func newTestStore(t *testing.T) *blockundostore.Store {
	t.Helper()
	ctx, err := database.New(filepath.Join(t.TempDir(), "khu.db"), 1)
	if err != nil {
		t.Fatalf("database.New: unexpectedly failed: %s", err)
	}
	t.Cleanup(func() { ctx.Close() })
	return blockundostore.New(ctx.View(database.MakeBucket([]byte{0x15})))
}

func TestBlockUndoPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	undo := &model.BlockUndo{
		Height: 12,
		TxUndos: []model.TxUndo{
			{RedeemInputs: []model.KhuCoin{{Amount: 100, Script: []byte("s1")}}, StakeAnchorBefore: [32]byte{1}},
			{StakeAnchorBefore: [32]byte{2}},
		},
	}
	if err := store.Put(12, undo); err != nil {
		t.Fatalf("Put: unexpectedly failed: %s", err)
	}
	got, ok, err := store.Get(12)
	if err != nil || !ok {
		t.Fatalf("Get: want ok=true, got ok=%v err=%v", ok, err)
	}
	if got.Height != undo.Height || len(got.TxUndos) != len(undo.TxUndos) {
		t.Fatalf("Get: want %+v, got %+v", *undo, *got)
	}
	if got.TxUndos[0].RedeemInputs[0].Amount != 100 || got.TxUndos[1].StakeAnchorBefore != [32]byte{2} {
		t.Fatalf("Get: want the nested TxUndo fields preserved, got %+v", got.TxUndos)
	}
}

func TestBlockUndoGetMissingReturnsNotOk(t *testing.T) {
	store := newTestStore(t)
	_, ok, err := store.Get(404)
	if err != nil || ok {
		t.Fatalf("Get: want ok=false for a height never Put, got ok=%v err=%v", ok, err)
	}
}

func TestBlockUndoDelete(t *testing.T) {
	store := newTestStore(t)
	undo := &model.BlockUndo{Height: 1}
	if err := store.Put(1, undo); err != nil {
		t.Fatalf("Put: unexpectedly failed: %s", err)
	}
	if err := store.Delete(1); err != nil {
		t.Fatalf("Delete: unexpectedly failed: %s", err)
	}
	_, ok, err := store.Get(1)
	if err != nil || ok {
		t.Fatalf("Get: want ok=false after Delete, got ok=%v err=%v", ok, err)
	}
}
