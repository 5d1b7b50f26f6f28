// Package element implements GroveDB's value sum type: the twelve
// variants a Merk leaf can hold, their tree feature-type tagging for
// hashing, and their self-describing serialization. The variant-tagged
// interface mirrors the node/fullNode/shortNode/hashNode/valueNode split
// a Patricia-trie node representation uses, generalized from four
// variants to twelve.
package element

// Kind identifies an Element's variant. It is also the first byte of an
// Element's serialized form.
type Kind byte

const (
	KindItem Kind = iota
	KindSumItem
	KindItemWithSumItem
	KindReference
	KindBidirectionalReference
	KindTree
	KindSumTree
	KindBigSumTree
	KindCountTree
	KindCountSumTree
	KindProvableCountTree
	KindProvableCountSumTree
)

// Element is implemented by every concrete variant.
type Element interface {
	Kind() Kind

	// IsAnyTree reports whether this variant carries a subtree (i.e. all
	// Tree/SumTree/.../ProvableCountSumTree variants).
	IsAnyTree() bool

	// Flags returns the operator-defined flag bytes carried by this
	// element, or nil if none.
	Flags() []byte

	// GetFeatureType returns the tree.FeatureType this element contributes
	// to node hashing, given the tree-kind of the Merk it is stored in
	// (some reference/aggregate semantics depend on the parent).
	GetFeatureType(parentTreeKind Kind) (FeatureType, error)
}

// Item is an opaque leaf value with optional flags.
type Item struct {
	Value     []byte
	ItemFlags []byte
}

func (e *Item) Kind() Kind       { return KindItem }
func (e *Item) IsAnyTree() bool  { return false }
func (e *Item) Flags() []byte    { return e.ItemFlags }
func (e *Item) GetFeatureType(Kind) (FeatureType, error) {
	return FeatureType{Tag: FeatureBasic}, nil
}

// SumItem is a signed 64-bit value with optional flags, contributing to an
// enclosing SumTree's aggregate.
type SumItem struct {
	Value     int64
	ItemFlags []byte
}

func (e *SumItem) Kind() Kind      { return KindSumItem }
func (e *SumItem) IsAnyTree() bool { return false }
func (e *SumItem) Flags() []byte   { return e.ItemFlags }
func (e *SumItem) GetFeatureType(Kind) (FeatureType, error) {
	return FeatureType{Tag: FeatureSummed, Sum: e.Value}, nil
}

// ItemWithSumItem carries both an opaque byte payload and a signed 64-bit
// aggregate contribution, for subtrees that need both a value and a sum.
type ItemWithSumItem struct {
	Value     []byte
	SumValue  int64
	ItemFlags []byte
}

func (e *ItemWithSumItem) Kind() Kind      { return KindItemWithSumItem }
func (e *ItemWithSumItem) IsAnyTree() bool { return false }
func (e *ItemWithSumItem) Flags() []byte   { return e.ItemFlags }
func (e *ItemWithSumItem) GetFeatureType(Kind) (FeatureType, error) {
	return FeatureType{Tag: FeatureSummed, Sum: e.SumValue}, nil
}

// ReferenceKind identifies one of the seven ways a Reference computes its
// target path, per the reference package's resolver.
type ReferenceKind byte

const (
	RefAbsolute ReferenceKind = iota
	RefUpstreamRootHeight
	RefUpstreamRootHeightWithParentPathAddition
	RefUpstreamFromElementHeight
	RefCousin
	RefRemovedCousin
	RefSibling
)

// ReferencePathSpec holds the kind-specific parameters of a Reference.
// Exactly the fields relevant to Kind are populated; others are zero.
type ReferencePathSpec struct {
	Kind ReferenceKind

	// AbsolutePath is used by RefAbsolute.
	AbsolutePath [][]byte

	// N is the ancestor-segment count used by RefUpstreamRootHeight,
	// RefUpstreamRootHeightWithParentPathAddition, and
	// RefUpstreamFromElementHeight.
	N uint32

	// Append is the segment list appended after the kept/dropped prefix,
	// used by every Upstream* kind.
	Append [][]byte

	// Segment replaces the parent's last segment for RefCousin, or the key
	// used under the same parent for RefSibling.
	Segment []byte

	// Segments replaces a run of tail segments for RefRemovedCousin.
	Segments [][]byte
}

// Reference points at another element, possibly another Reference, up to
// MAX_REFERENCE_HOPS away.
type Reference struct {
	Path        ReferencePathSpec
	MaxHopsHint uint32
	ItemFlags   []byte
}

func (e *Reference) Kind() Kind      { return KindReference }
func (e *Reference) IsAnyTree() bool { return false }
func (e *Reference) Flags() []byte   { return e.ItemFlags }
func (e *Reference) GetFeatureType(Kind) (FeatureType, error) {
	return FeatureType{Tag: FeatureBasic}, nil
}

// BidirectionalReference is a Reference augmented with a cascade-on-delete
// flag and a back-pointer slot used to clean up the reverse edge when the
// referent is deleted.
type BidirectionalReference struct {
	Path            ReferencePathSpec
	MaxHopsHint     uint32
	CascadeOnDelete bool
	BackwardKey     []byte
	ItemFlags       []byte
}

func (e *BidirectionalReference) Kind() Kind      { return KindBidirectionalReference }
func (e *BidirectionalReference) IsAnyTree() bool { return false }
func (e *BidirectionalReference) Flags() []byte   { return e.ItemFlags }
func (e *BidirectionalReference) GetFeatureType(Kind) (FeatureType, error) {
	return FeatureType{Tag: FeatureBasic}, nil
}

// Tree is a plain subtree header: an optional root key (nil for an
// uninitialized/empty subtree) plus flags.
type Tree struct {
	RootKey   []byte
	ItemFlags []byte
}

func (e *Tree) Kind() Kind      { return KindTree }
func (e *Tree) IsAnyTree() bool { return true }
func (e *Tree) Flags() []byte   { return e.ItemFlags }
func (e *Tree) GetFeatureType(Kind) (FeatureType, error) {
	return FeatureType{Tag: FeatureBasic}, nil
}

// SumTree is a subtree header carrying a signed 64-bit aggregate.
type SumTree struct {
	RootKey   []byte
	Sum       int64
	ItemFlags []byte
}

func (e *SumTree) Kind() Kind      { return KindSumTree }
func (e *SumTree) IsAnyTree() bool { return true }
func (e *SumTree) Flags() []byte   { return e.ItemFlags }
func (e *SumTree) GetFeatureType(Kind) (FeatureType, error) {
	return FeatureType{Tag: FeatureSummed, Sum: e.Sum}, nil
}

// BigSumTree is a subtree header carrying a signed 128-bit aggregate, for
// sum trees whose leaves could overflow int64 (e.g. nested SumTrees of
// SumTrees).
type BigSumTree struct {
	RootKey   []byte
	Sum       BigInt128
	ItemFlags []byte
}

func (e *BigSumTree) Kind() Kind      { return KindBigSumTree }
func (e *BigSumTree) IsAnyTree() bool { return true }
func (e *BigSumTree) Flags() []byte   { return e.ItemFlags }
func (e *BigSumTree) GetFeatureType(Kind) (FeatureType, error) {
	return FeatureType{Tag: FeatureBigSummed, BigSum: e.Sum}, nil
}

// CountTree is a subtree header carrying an unsigned 64-bit leaf count that
// is tracked for aggregation but excluded from node hashing, so counts can
// change without invalidating proofs already issued over unrelated leaves.
type CountTree struct {
	RootKey   []byte
	Count     uint64
	ItemFlags []byte
}

func (e *CountTree) Kind() Kind      { return KindCountTree }
func (e *CountTree) IsAnyTree() bool { return true }
func (e *CountTree) Flags() []byte   { return e.ItemFlags }
func (e *CountTree) GetFeatureType(Kind) (FeatureType, error) {
	return FeatureType{Tag: FeatureCounted, Count: e.Count}, nil
}

// CountSumTree combines an unsigned count and a signed sum, both excluded
// from node hashing.
type CountSumTree struct {
	RootKey   []byte
	Count     uint64
	Sum       int64
	ItemFlags []byte
}

func (e *CountSumTree) Kind() Kind      { return KindCountSumTree }
func (e *CountSumTree) IsAnyTree() bool { return true }
func (e *CountSumTree) Flags() []byte   { return e.ItemFlags }
func (e *CountSumTree) GetFeatureType(Kind) (FeatureType, error) {
	return FeatureType{Tag: FeatureCountedSummed, Count: e.Count, Sum: e.Sum}, nil
}

// ProvableCountTree is a CountTree whose count is bound into every node
// hash, so any insertion or deletion changes every hash on the root path.
type ProvableCountTree struct {
	RootKey   []byte
	Count     uint64
	ItemFlags []byte
}

func (e *ProvableCountTree) Kind() Kind      { return KindProvableCountTree }
func (e *ProvableCountTree) IsAnyTree() bool { return true }
func (e *ProvableCountTree) Flags() []byte   { return e.ItemFlags }
func (e *ProvableCountTree) GetFeatureType(Kind) (FeatureType, error) {
	return FeatureType{Tag: FeatureProvableCounted, Count: e.Count}, nil
}

// ProvableCountSumTree combines a hash-bound count with a sum.
type ProvableCountSumTree struct {
	RootKey   []byte
	Count     uint64
	Sum       int64
	ItemFlags []byte
}

func (e *ProvableCountSumTree) Kind() Kind      { return KindProvableCountSumTree }
func (e *ProvableCountSumTree) IsAnyTree() bool { return true }
func (e *ProvableCountSumTree) Flags() []byte   { return e.ItemFlags }
func (e *ProvableCountSumTree) GetFeatureType(Kind) (FeatureType, error) {
	return FeatureType{Tag: FeatureProvableCountedSummed, Count: e.Count, Sum: e.Sum}, nil
}

// --- Inspection predicates ---

// IsSumItem reports whether e is a SumItem or ItemWithSumItem.
func IsSumItem(e Element) bool {
	switch e.(type) {
	case *SumItem, *ItemWithSumItem:
		return true
	}
	return false
}

// IsReference reports whether e is a Reference or BidirectionalReference.
func IsReference(e Element) bool {
	switch e.(type) {
	case *Reference, *BidirectionalReference:
		return true
	}
	return false
}

// IsSumTree reports whether e is any aggregate tree variant carrying a
// signed-64 sum component (SumTree, CountSumTree, ProvableCountSumTree).
func IsSumTree(e Element) bool {
	switch e.(type) {
	case *SumTree, *CountSumTree, *ProvableCountSumTree:
		return true
	}
	return false
}

// RootKey returns the stored root key for any tree variant, or (nil, false)
// for a non-tree element.
func RootKey(e Element) ([]byte, bool) {
	switch t := e.(type) {
	case *Tree:
		return t.RootKey, true
	case *SumTree:
		return t.RootKey, true
	case *BigSumTree:
		return t.RootKey, true
	case *CountTree:
		return t.RootKey, true
	case *CountSumTree:
		return t.RootKey, true
	case *ProvableCountTree:
		return t.RootKey, true
	case *ProvableCountSumTree:
		return t.RootKey, true
	}
	return nil, false
}

// SumValueOrDefault returns e's signed-64 aggregate contribution, or 0 if e
// carries none.
func SumValueOrDefault(e Element) int64 {
	switch t := e.(type) {
	case *SumItem:
		return t.Value
	case *ItemWithSumItem:
		return t.SumValue
	case *SumTree:
		return t.Sum
	case *CountSumTree:
		return t.Sum
	case *ProvableCountSumTree:
		return t.Sum
	}
	return 0
}

// CountValueOrDefault returns e's unsigned-64 count contribution, or 0 if e
// carries none.
func CountValueOrDefault(e Element) uint64 {
	switch t := e.(type) {
	case *CountTree:
		return t.Count
	case *CountSumTree:
		return t.Count
	case *ProvableCountTree:
		return t.Count
	case *ProvableCountSumTree:
		return t.Count
	}
	return 0
}

// BigSumValueOrDefault returns e's signed-128 aggregate, or the zero value
// if e carries none.
func BigSumValueOrDefault(e Element) BigInt128 {
	if t, ok := e.(*BigSumTree); ok {
		return t.Sum
	}
	return BigInt128{}
}
