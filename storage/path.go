package storage

import "github.com/dashpay/grovedb-sub005/internal/grovehash"

// PrefixForPath derives the 32-byte subtree prefix for a qualified path by
// Blake3-hashing its canonical (length-prefixed segments) encoding. The
// empty path is the database root subtree.
func PrefixForPath(path [][]byte) grovehash.Hash {
	return grovehash.SubtreePrefix(path)
}
