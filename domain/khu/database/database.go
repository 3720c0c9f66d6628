// Package database adapts the source tree's dbaccess.DatabaseContext
// (infrastructure/db/dbaccess/db.go) to the KHU engine: a single
// goleveldb handle shared by every keyed store in datastructures/,
// namespaced by Bucket prefixes instead of one database per store.
package database

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/AdonisPhusis/khu-core/domain/khu/model"
	"github.com/AdonisPhusis/khu-core/logger"
)

var dbLog = logger.Subsystem("BCDB")

// DatabaseContext holds the single underlying leveldb handle the engine's
// stores share, each through its own Bucket-scoped View.
type DatabaseContext struct {
	db *leveldb.DB
}

// New opens (or creates) the leveldb database at path. cacheSize sets the
// block cache in mebibytes, mirroring the source tree's cache-size config
// knob for the coin database.
func New(path string, cacheSize int) (*DatabaseContext, error) {
	options := &opt.Options{
		BlockCacheCapacity: cacheSize * opt.MiB,
	}
	db, err := leveldb.OpenFile(path, options)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open leveldb database at %s", path)
	}
	dbLog.Infof("opened database at %s (cache=%dMiB)", path, cacheSize)
	return &DatabaseContext{db: db}, nil
}

// Close closes the underlying leveldb handle.
func (ctx *DatabaseContext) Close() error {
	return ctx.db.Close()
}

// View returns a model.KeyedStore scoped to bucket: every key the
// returned store touches is transparently prefixed with bucket's path.
func (ctx *DatabaseContext) View(bucket Bucket) model.KeyedStore {
	return &bucketView{db: ctx.db, bucket: bucket}
}

// bucketView implements model.KeyedStore over one Bucket of a shared
// leveldb handle.
type bucketView struct {
	db     *leveldb.DB
	bucket Bucket
}

func (v *bucketView) Put(key, value []byte) error {
	return v.db.Put(v.bucket.Key(key), value, nil)
}

func (v *bucketView) Get(key []byte) ([]byte, error) {
	value, err := v.db.Get(v.bucket.Key(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (v *bucketView) Has(key []byte) (bool, error) {
	return v.db.Has(v.bucket.Key(key), nil)
}

func (v *bucketView) Delete(key []byte) error {
	return v.db.Delete(v.bucket.Key(key), nil)
}

func (v *bucketView) Iterator(prefix []byte) (model.Iterator, error) {
	scoped := v.bucket.Key(prefix)
	it := v.db.NewIterator(util.BytesPrefix(scoped), nil)
	return &levelIterator{it: it, prefix: v.bucket.Path()}, nil
}

func (v *bucketView) NewBatch() model.Batch {
	return &levelBatch{db: v.db, bucket: v.bucket, batch: new(leveldb.Batch)}
}

// levelIterator strips the bucket's own prefix back off every key it
// returns, so callers see the same unscoped keys they put in.
type levelIterator struct {
	it     iterator.Iterator
	prefix []byte
}

func (i *levelIterator) Next() bool { return i.it.Next() }

func (i *levelIterator) Key() []byte {
	key := i.it.Key()
	if len(key) < len(i.prefix) {
		return nil
	}
	return key[len(i.prefix):]
}

func (i *levelIterator) Value() []byte { return i.it.Value() }
func (i *levelIterator) Error() error  { return i.it.Error() }
func (i *levelIterator) Release()      { i.it.Release() }

// levelBatch implements model.Batch, scoping every key through the same
// bucket the view it was created from uses.
type levelBatch struct {
	db     *leveldb.DB
	bucket Bucket
	batch  *leveldb.Batch
}

func (b *levelBatch) Put(key, value []byte) { b.batch.Put(b.bucket.Key(key), value) }
func (b *levelBatch) Delete(key []byte)      { b.batch.Delete(b.bucket.Key(key)) }
func (b *levelBatch) Write() error           { return b.db.Write(b.batch, nil) }
