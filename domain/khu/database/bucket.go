package database

// Bucket namespaces keys the way the source tree's database2.MakeBucket
// does: every key a bucket hands out is prefixed with the bucket's own
// path, so distinct logical stores can share one leveldb instance without
// key collisions (§4.8 "single leveldb instance, namespaced by a one-byte
// bucket prefix per logical store").
type Bucket struct {
	path []byte
}

// MakeBucket constructs a top-level bucket identified by prefix.
func MakeBucket(prefix []byte) Bucket {
	return Bucket{path: append([]byte{}, prefix...)}
}

// Bucket returns a sub-bucket nested under this one.
func (b Bucket) Bucket(prefix []byte) Bucket {
	sub := make([]byte, 0, len(b.path)+len(prefix))
	sub = append(sub, b.path...)
	sub = append(sub, prefix...)
	return Bucket{path: sub}
}

// Key returns the fully-namespaced key for suffix within this bucket.
func (b Bucket) Key(suffix []byte) []byte {
	key := make([]byte, 0, len(b.path)+len(suffix))
	key = append(key, b.path...)
	key = append(key, suffix...)
	return key
}

// Path returns the bucket's own prefix, for building a scoped iterator.
func (b Bucket) Path() []byte {
	return b.path
}
