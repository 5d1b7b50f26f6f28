// Package proof builds and verifies hierarchical GroveDB proofs: a
// GroveDBProof nests one merk.ProofOp stream per subtree layer along a
// query's path, so a single proof can attest to results spanning
// several levels of nested subtrees.
package proof

import (
	"github.com/dashpay/grovedb-sub005/merk"
)

// ItemKind distinguishes the shapes a single QueryItem can take.
type ItemKind int

const (
	ItemKey ItemKind = iota
	ItemRange
	ItemRangeInclusive
	ItemRangeFull
	ItemRangeFrom
	ItemRangeTo
	ItemRangeToInclusive
	ItemRangeAfter
	ItemRangeAfterTo
	ItemRangeAfterToInclusive
)

// Item is one clause of a Query: a single key, or a range of keys
// described relative to Low/High the way Rust's range syntax would
// (Range is [Low,High), RangeInclusive is [Low,High], RangeFrom is
// [Low,+inf), RangeTo is [-inf,High), and so on; the RangeAfter family
// excludes Low itself, used to resume a paginated walk just past the
// last key already seen).
type Item struct {
	Kind ItemKind
	Low  []byte
	High []byte
}

// Key builds an Item matching exactly one key.
func Key(k []byte) Item { return Item{Kind: ItemKey, Low: k} }

func (it Item) bound() merk.Bound {
	switch it.Kind {
	case ItemKey:
		return merk.Bound{Lower: it.Low, LowerInclusive: true, Upper: it.Low, UpperInclusive: true}
	case ItemRange:
		return merk.Bound{Lower: it.Low, LowerInclusive: true, Upper: it.High, UpperInclusive: false}
	case ItemRangeInclusive:
		return merk.Bound{Lower: it.Low, LowerInclusive: true, Upper: it.High, UpperInclusive: true}
	case ItemRangeFull:
		return merk.Bound{}
	case ItemRangeFrom:
		return merk.Bound{Lower: it.Low, LowerInclusive: true}
	case ItemRangeTo:
		return merk.Bound{Upper: it.High, UpperInclusive: false}
	case ItemRangeToInclusive:
		return merk.Bound{Upper: it.High, UpperInclusive: true}
	case ItemRangeAfter:
		return merk.Bound{Lower: it.Low, LowerInclusive: false}
	case ItemRangeAfterTo:
		return merk.Bound{Lower: it.Low, LowerInclusive: false, Upper: it.High, UpperInclusive: false}
	case ItemRangeAfterToInclusive:
		return merk.Bound{Lower: it.Low, LowerInclusive: false, Upper: it.High, UpperInclusive: true}
	default:
		return merk.Bound{}
	}
}

// Query describes what to prove out of one subtree layer: a set of key
// clauses, an optional Limit/Offset shared across all of them, and an
// optional subquery to descend into for every matched element that is
// itself a subtree (overridable per-item via Conditional).
type Query struct {
	Items       []Item
	LeftToRight bool
	Limit       *int
	Offset      *int

	// Default, when non-nil, is the subquery applied to every matched
	// tree-kind element that has no more specific Conditional entry.
	Default *Query
	// Conditional maps a matched key (as a raw string) to the subquery
	// that should apply to that specific key instead of Default.
	Conditional map[string]*Query
}

func (q *Query) subqueryFor(key []byte) *Query {
	if q == nil {
		return nil
	}
	if q.Conditional != nil {
		if sq, ok := q.Conditional[string(key)]; ok {
			return sq
		}
	}
	return q.Default
}

func (q *Query) bounds() []merk.Bound {
	bounds := make([]merk.Bound, len(q.Items))
	for i, it := range q.Items {
		bounds[i] = it.bound()
	}
	return bounds
}
