// Package merkle computes the incremental note-commitment tree root used
// as the shielded pool's anchor (§3.4, §4.3): a fixed-depth binary tree
// over blake2b-256, padded on the right with a well-known empty-leaf
// hash at every level, the same shape as the Sapling note-commitment
// tree the original implementation builds its anchors from.
package merkle

import "golang.org/x/crypto/blake2b"

// Depth is the tree's fixed depth; 2^Depth is the maximum number of
// notes the shielded pool can ever hold.
const Depth = 32

// emptyHashes[i] is the root of an empty subtree of height i.
// emptyHashes[0] is the canonical "uncommitted" leaf value.
var emptyHashes [Depth + 1][32]byte

func init() {
	emptyHashes[0] = blake2b.Sum256([]byte("khu-uncommitted-leaf"))
	for i := 1; i <= Depth; i++ {
		emptyHashes[i] = hashPair(emptyHashes[i-1], emptyHashes[i-1])
	}
}

func hashPair(left, right [32]byte) [32]byte {
	buf := make([]byte, 64)
	copy(buf[:32], left[:])
	copy(buf[32:], right[:])
	return blake2b.Sum256(buf)
}

// EmptyRoot returns the root of a tree with zero commitments.
func EmptyRoot() [32]byte {
	return emptyHashes[Depth]
}

// Root computes the tree root over leaves, padding every incomplete
// subtree with the empty-subtree hash for its height. len(leaves) must
// not exceed 2^Depth.
func Root(leaves [][32]byte) [32]byte {
	if len(leaves) == 0 {
		return EmptyRoot()
	}
	level := make([][32]byte, len(leaves))
	copy(level, leaves)

	for height := 0; height < Depth; height++ {
		next := make([][32]byte, (len(level)+1)/2)
		for i := range next {
			left := level[2*i]
			var right [32]byte
			if 2*i+1 < len(level) {
				right = level[2*i+1]
			} else {
				right = emptyHashes[height]
			}
			next[i] = hashPair(left, right)
		}
		level = next
	}
	return level[0]
}
