package database_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/AdonisPhusis/khu-core/domain/khu/database"
)

func openTestDatabase(t *testing.T) *database.DatabaseContext {
	t.Helper()
	ctx, err := database.New(filepath.Join(t.TempDir(), "khu.db"), 1)
	if err != nil {
		t.Fatalf("New: unexpectedly failed: %s", err)
	}
	t.Cleanup(func() {
		if err := ctx.Close(); err != nil {
			t.Fatalf("Close: unexpectedly failed: %s", err)
		}
	})
	return ctx
}

func TestBucketViewPutGet(t *testing.T) {
	ctx := openTestDatabase(t)
	view := ctx.View(database.MakeBucket([]byte{0x01}))

	key := []byte("key1")
	value := []byte("value1")
	if err := view.Put(key, value); err != nil {
		t.Fatalf("Put: unexpectedly failed: %s", err)
	}
	got, err := view.Get(key)
	if err != nil {
		t.Fatalf("Get: unexpectedly failed: %s", err)
	}
	if !bytes.Equal(got, value) {
		t.Fatalf("Get: want %s, got %s", value, got)
	}
}

func TestBucketViewIsolatesDistinctBuckets(t *testing.T) {
	ctx := openTestDatabase(t)
	a := ctx.View(database.MakeBucket([]byte{0x01}))
	b := ctx.View(database.MakeBucket([]byte{0x02}))

	key := []byte("shared-key")
	if err := a.Put(key, []byte("a-value")); err != nil {
		t.Fatalf("Put(a): unexpectedly failed: %s", err)
	}
	has, err := b.Has(key)
	if err != nil {
		t.Fatalf("Has(b): unexpectedly failed: %s", err)
	}
	if has {
		t.Fatalf("Has(b): want a key put under bucket a to be invisible to bucket b")
	}
}

func TestBucketViewDelete(t *testing.T) {
	ctx := openTestDatabase(t)
	view := ctx.View(database.MakeBucket([]byte{0x03}))

	key := []byte("to-delete")
	if err := view.Put(key, []byte("v")); err != nil {
		t.Fatalf("Put: unexpectedly failed: %s", err)
	}
	if err := view.Delete(key); err != nil {
		t.Fatalf("Delete: unexpectedly failed: %s", err)
	}
	has, err := view.Has(key)
	if err != nil {
		t.Fatalf("Has: unexpectedly failed: %s", err)
	}
	if has {
		t.Fatalf("Has: want the key gone after Delete")
	}
}

func TestBucketViewIteratorStripsPrefix(t *testing.T) {
	ctx := openTestDatabase(t)
	view := ctx.View(database.MakeBucket([]byte{0x04}))

	if err := view.Put([]byte("aa"), []byte("1")); err != nil {
		t.Fatalf("Put: unexpectedly failed: %s", err)
	}
	if err := view.Put([]byte("ab"), []byte("2")); err != nil {
		t.Fatalf("Put: unexpectedly failed: %s", err)
	}

	it, err := view.Iterator([]byte("a"))
	if err != nil {
		t.Fatalf("Iterator: unexpectedly failed: %s", err)
	}
	defer it.Release()

	seen := map[string]string{}
	for it.Next() {
		seen[string(it.Key())] = string(it.Value())
	}
	if err := it.Error(); err != nil {
		t.Fatalf("Iterator: unexpectedly failed during scan: %s", err)
	}
	if seen["aa"] != "1" || seen["ab"] != "2" {
		t.Fatalf("Iterator: want both keys stripped of the bucket prefix, got %+v", seen)
	}
}

func TestBatchWrite(t *testing.T) {
	ctx := openTestDatabase(t)
	view := ctx.View(database.MakeBucket([]byte{0x05}))

	batch := view.NewBatch()
	batch.Put([]byte("k1"), []byte("v1"))
	batch.Put([]byte("k2"), []byte("v2"))
	if err := batch.Write(); err != nil {
		t.Fatalf("Write: unexpectedly failed: %s", err)
	}

	got, err := view.Get([]byte("k2"))
	if err != nil || !bytes.Equal(got, []byte("v2")) {
		t.Fatalf("Get: want v2, got %s (err=%v)", got, err)
	}
}
