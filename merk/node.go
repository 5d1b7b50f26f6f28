// Package merk implements GroveDB's per-subtree Merkle AVL tree: the node
// representation, the AVL balancing and walker abstractions, the batch
// apply algorithm, and commit-to-storage. One merk.Tree backs exactly one
// GroveDB subtree, addressed by its storage.StorageContext.
package merk

import (
	"github.com/dashpay/grovedb-sub005/cost"
	"github.com/dashpay/grovedb-sub005/grovedberr"
	"github.com/dashpay/grovedb-sub005/internal/grovehash"
)

// LinkKind distinguishes how a child of a Node is currently held.
type LinkKind byte

const (
	// LinkNone means no child is present on this side.
	LinkNone LinkKind = iota
	// LinkModified means the child is owned in memory and has pending
	// changes not yet reflected in its cached hash.
	LinkModified
	// LinkUncommitted means the child is owned in memory, its hash is
	// up to date, but it has not yet been written to storage.
	LinkUncommitted
	// LinkLoaded means the child is owned in memory, clean, and already
	// durable in storage.
	LinkLoaded
	// LinkPruned means the child is not loaded; only its key, hash, and
	// height are known. Resolving it costs one storage seek.
	LinkPruned
)

// Link is one child edge of a Node. The AVL balance invariant is
// maintained using Height alone, so a pruned child never needs to be
// loaded just to rebalance its parent.
type Link struct {
	Kind   LinkKind
	Key    []byte
	Hash   grovehash.Hash
	Height uint8
	Node   *Node
}

// emptyLink is the zero value, representing an absent child.
var emptyLink = Link{}

func (l Link) isEmpty() bool { return l.Kind == LinkNone }

func ownedLink(n *Node, dirty bool) Link {
	kind := LinkUncommitted
	if dirty {
		kind = LinkModified
	}
	return Link{Kind: kind, Key: n.Key, Hash: n.NodeHash, Height: n.height(), Node: n}
}

func prunedLink(key []byte, hash grovehash.Hash, height uint8) Link {
	return Link{Kind: LinkPruned, Key: append([]byte{}, key...), Hash: hash, Height: height}
}

// Node is one node of a subtree's AVL tree: a key/value pair plus its
// hashes and two child links.
type Node struct {
	Key   []byte
	Value []byte // element.Encode(el) bytes

	ValueHash grovehash.Hash
	KVHash    grovehash.Hash
	NodeHash  grovehash.Hash

	Left  Link
	Right Link

	// hashDirty is set whenever Value changes or a child link changes,
	// and cleared once NodeHash has been recomputed.
	hashDirty bool

	// hasChildRootHash and childRootHash carry the freshly committed root
	// hash of the subtree this node's element points at, when Value
	// decodes to a tree-kind element. Neither field is persisted; a
	// caller rewriting a tree-header node's value always supplies the
	// child root hash again via setValueWithChildRoot.
	hasChildRootHash bool
	childRootHash    grovehash.Hash
}

// NewLeaf builds a node holding value with no children, marked dirty so
// its hashes are computed on the next hash pass.
func NewLeaf(key, value []byte) *Node {
	n := &Node{Key: append([]byte{}, key...), Value: append([]byte{}, value...)}
	n.hashDirty = true
	return n
}

// height returns this node's AVL height: 1 plus the taller child, or 1
// for a leaf.
func (n *Node) height() uint8 {
	lh, rh := n.Left.Height, n.Right.Height
	if lh > rh {
		return lh + 1
	}
	return rh + 1
}

// balanceFactor is left height minus right height. The tree is balanced
// everywhere iff every node's balanceFactor is in [-1, 1].
func (n *Node) balanceFactor() int {
	return int(n.Left.Height) - int(n.Right.Height)
}

// setValue replaces the node's value, marking it dirty for rehashing.
// The node's value hash will be the plain hash of value; use
// setValueWithChildRoot for a tree-kind element whose value hash must
// bind a child subtree's root.
func (n *Node) setValue(value []byte) {
	n.Value = append([]byte{}, value...)
	n.hashDirty = true
	n.hasChildRootHash = false
}

// setValueWithChildRoot replaces the node's value as setValue does, but
// additionally records childRoot as the committed root hash of the
// subtree this (tree-kind) element points at, so hash folds it into
// ValueHash via grovehash.Combine instead of hashing value alone.
func (n *Node) setValueWithChildRoot(value []byte, childRoot grovehash.Hash) {
	n.Value = append([]byte{}, value...)
	n.hashDirty = true
	n.hasChildRootHash = true
	n.childRootHash = childRoot
}

// attachChild installs a new link on the given side and marks the node
// dirty, since a changed child invalidates this node's hash.
func (n *Node) attachChild(isLeft bool, link Link) {
	if isLeft {
		n.Left = link
	} else {
		n.Right = link
	}
	n.hashDirty = true
}

// childLink returns the link for the requested side.
func (n *Node) childLink(isLeft bool) Link {
	if isLeft {
		return n.Left
	}
	return n.Right
}

// hash recomputes ValueHash, KVHash, and NodeHash if dirty, charging the
// returned cost. featureTag is the canonical hash-binding encoding of
// this node's element feature type (element.FeatureType.HashBytes). For
// a tree-kind element carrying a known child root hash, ValueHash binds
// that child via grovehash.Combine rather than hashing Value alone, so a
// leaf-value change under an unrelated subtree never perturbs this
// node's hash.
func (n *Node) hash(featureTag []byte) cost.OperationCost {
	if !n.hashDirty {
		return cost.OperationCost{}
	}
	var c cost.OperationCost

	valueHash := grovehash.Sum(n.Value)
	c.AddInPlace(cost.ForHash(uint64(grovehash.BlockCount(len(n.Value)))))
	if n.hasChildRootHash {
		valueHash = grovehash.Combine(valueHash, n.childRootHash)
		c.AddInPlace(cost.ForHash(1))
	}
	n.ValueHash = valueHash

	n.KVHash = grovehash.KV(n.Key, n.ValueHash)
	c.AddInPlace(cost.ForHash(1))

	n.NodeHash = grovehash.Node(featureTag, n.KVHash, n.Left.Hash, n.Right.Hash)
	c.AddInPlace(cost.ForHash(1))

	n.hashDirty = false
	return c
}

// encode produces this node's fixed-layout storage representation:
// length-prefixed value, then the three hashes, then the two child
// links (each a presence byte, and if present, length-prefixed key,
// hash, and height).
func (n *Node) encode() []byte {
	buf := appendUvarintBytes(nil, uint64(len(n.Value)))
	buf = append(buf, n.Value...)
	buf = append(buf, n.ValueHash.Bytes()...)
	buf = append(buf, n.KVHash.Bytes()...)
	buf = append(buf, n.NodeHash.Bytes()...)
	buf = encodeLink(buf, n.Left)
	buf = encodeLink(buf, n.Right)
	return buf
}

// decodeNode parses the bytes written by encode, given the storage key
// the node was read from.
func decodeNode(key, buf []byte) (*Node, error) {
	value, rest, err := readLenPrefixed(buf)
	if err != nil {
		return nil, err
	}
	if len(rest) < grovehash.Size*3 {
		return nil, grovedberr.New(grovedberr.KindCorruptedCodeExecution, "merk: truncated node hashes")
	}
	valueHash := grovehash.FromBytes(rest[:grovehash.Size])
	rest = rest[grovehash.Size:]
	kvHash := grovehash.FromBytes(rest[:grovehash.Size])
	rest = rest[grovehash.Size:]
	nodeHash := grovehash.FromBytes(rest[:grovehash.Size])
	rest = rest[grovehash.Size:]

	left, rest, err := decodeLink(rest)
	if err != nil {
		return nil, err
	}
	right, rest, err := decodeLink(rest)
	if err != nil {
		return nil, err
	}
	_ = rest

	return &Node{
		Key:       append([]byte{}, key...),
		Value:     value,
		ValueHash: valueHash,
		KVHash:    kvHash,
		NodeHash:  nodeHash,
		Left:      left,
		Right:     right,
	}, nil
}

func encodeLink(buf []byte, l Link) []byte {
	if l.isEmpty() {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	buf = appendUvarintBytes(buf, uint64(len(l.Key)))
	buf = append(buf, l.Key...)
	buf = append(buf, l.Hash.Bytes()...)
	buf = append(buf, byte(l.Height))
	return buf
}

func decodeLink(buf []byte) (Link, []byte, error) {
	if len(buf) < 1 {
		return Link{}, nil, grovedberr.New(grovedberr.KindCorruptedCodeExecution, "merk: truncated link presence byte")
	}
	present := buf[0]
	rest := buf[1:]
	if present == 0 {
		return emptyLink, rest, nil
	}
	key, rest, err := readLenPrefixed(rest)
	if err != nil {
		return Link{}, nil, err
	}
	if len(rest) < grovehash.Size+1 {
		return Link{}, nil, grovedberr.New(grovedberr.KindCorruptedCodeExecution, "merk: truncated link hash/height")
	}
	hash := grovehash.FromBytes(rest[:grovehash.Size])
	rest = rest[grovehash.Size:]
	height := rest[0]
	rest = rest[1:]
	return prunedLink(key, hash, height), rest, nil
}

func appendUvarintBytes(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

func readUvarintBytes(buf []byte) (uint64, []byte, error) {
	var v uint64
	var shift uint
	for i, b := range buf {
		if shift >= 64 {
			return 0, nil, grovedberr.New(grovedberr.KindCorruptedCodeExecution, "merk: uvarint overflow")
		}
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, buf[i+1:], nil
		}
		shift += 7
	}
	return 0, nil, grovedberr.New(grovedberr.KindCorruptedCodeExecution, "merk: truncated uvarint")
}

func readLenPrefixed(buf []byte) ([]byte, []byte, error) {
	n, rest, err := readUvarintBytes(buf)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(rest)) < n {
		return nil, nil, grovedberr.New(grovedberr.KindCorruptedCodeExecution, "merk: truncated length-prefixed field")
	}
	out := make([]byte, n)
	copy(out, rest[:n])
	return out, rest[n:], nil
}
