// Package grovehash provides the domain-separated Blake3 hashing primitives
// shared by the merk, element, and proof packages.
package grovehash

import (
	"encoding/binary"

	"lukechampine.com/blake3"
)

// Size is the length in bytes of every hash produced by this package.
const Size = 32

// Hash is a 32-byte Blake3 digest.
type Hash [Size]byte

// Null is the hash standing in for an absent child link.
var Null = Hash{}

// Domain separation tags, prepended to the hashed input so that a leaf
// kv_hash can never collide with an internal node_hash over the same bytes.
const (
	domainKV   byte = 0x00
	domainNode byte = 0x01
)

// IsNull reports whether h is the all-zero hash.
func (h Hash) IsNull() bool {
	return h == Null
}

// Bytes returns h as a byte slice.
func (h Hash) Bytes() []byte {
	return h[:]
}

// FromBytes copies b into a Hash. Panics if len(b) != Size.
func FromBytes(b []byte) Hash {
	var h Hash
	if len(b) != Size {
		panic("grovehash: wrong-length hash input")
	}
	copy(h[:], b)
	return h
}

// Sum hashes data with no domain separation. Used for value_hash of a
// plain element and as the building block for the domain-tagged variants.
func Sum(data ...[]byte) Hash {
	h := blake3.New(Size, nil)
	for _, d := range data {
		h.Write(d)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// KV computes kv_hash = blake3(0x00 || key_len || key || value_hash).
func KV(key []byte, valueHash Hash) Hash {
	h := blake3.New(Size, nil)
	h.Write([]byte{domainKV})
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(key)))
	h.Write(lenBuf[:])
	h.Write(key)
	h.Write(valueHash[:])
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Node computes node_hash = blake3(0x01 || feature_tag || kv_hash ||
// left_child_hash || right_child_hash). Absent children pass Null.
func Node(featureTag []byte, kvHash, left, right Hash) Hash {
	h := blake3.New(Size, nil)
	h.Write([]byte{domainNode})
	h.Write(featureTag)
	h.Write(kvHash[:])
	h.Write(left[:])
	h.Write(right[:])
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Combine computes combine_hash(element_hash, child_root_hash), used to
// fold a tree-valued element's own bytes together with its subtree's root
// hash into the value_hash the parent layer commits to.
func Combine(elementHash, childRootHash Hash) Hash {
	h := blake3.New(Size, nil)
	h.Write(elementHash[:])
	h.Write(childRootHash[:])
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// SubtreePrefix hashes a canonical path encoding (length-prefixed segments)
// into the 32-byte prefix shared by every key stored for that subtree.
func SubtreePrefix(path [][]byte) Hash {
	h := blake3.New(Size, nil)
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(path)))
	h.Write(lenBuf[:])
	for _, seg := range path {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(seg)))
		h.Write(lenBuf[:])
		h.Write(seg)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// BlockCount returns the number of 64-byte Blake3 compression blocks needed
// to hash n bytes, used by the cost oracle to charge hash_byte_calls.
func BlockCount(n int) int {
	const blockSize = 64
	return (n + blockSize - 1) / blockSize
}
