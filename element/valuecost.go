package element

import "github.com/dashpay/grovedb-sub005/version"

// treeAggregateOverhead is the worst-case byte cost of a tree variant's
// fixed-width fields beyond its root key and flags: one Kind byte, 16
// bytes for a BigSumTree aggregate, and 10 bytes for a uvarint count.
const treeAggregateOverhead = 1 + 16 + 10

// ValueDefinedCostForSerializedValue returns the byte size a Merk charges
// for storing e's serialized value. For every tree variant this is a
// canonical size keyed to version.MaxKeyLength rather than the actual
// byte length of the stored root key, so a subtree's value-size
// accounting in the enclosing Merk does not fluctuate as its root key
// changes from one commit to the next. For every other variant the
// actual encoded length is used.
func ValueDefinedCostForSerializedValue(e Element) (int, error) {
	if e.IsAnyTree() {
		return treeAggregateOverhead + version.MaxKeyLength + len(e.Flags()), nil
	}
	encoded, err := Encode(e)
	if err != nil {
		return 0, err
	}
	return len(encoded), nil
}
