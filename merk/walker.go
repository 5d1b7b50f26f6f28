package merk

import (
	"github.com/dashpay/grovedb-sub005/cost"
	"github.com/dashpay/grovedb-sub005/grovedberr"
)

// Walker is an owning, cursor-like wrapper around one Node that lazily
// resolves pruned children as the batch apply recursion needs them.
type Walker struct {
	tree *Tree
	node *Node
}

func newWalker(tree *Tree, node *Node) *Walker {
	return &Walker{tree: tree, node: node}
}

// detach removes and returns the child on the given side as an owned
// *Node, resolving a pruned link if necessary. The side is left empty
// until attach (or a direct field write) restores it.
func (w *Walker) detach(isLeft bool) (*Node, cost.OperationCost, error) {
	link := w.node.childLink(isLeft)
	if link.isEmpty() {
		return nil, cost.OperationCost{}, nil
	}
	child, c, err := w.tree.resolve(link)
	if err != nil {
		return nil, c, err
	}
	if isLeft {
		w.node.Left = emptyLink
	} else {
		w.node.Right = emptyLink
	}
	return child, c, nil
}

// attach installs child (nil clears the side) as the given side's owned,
// dirty child.
func (w *Walker) attach(isLeft bool, child *Node) {
	w.node.attachChild(isLeft, ownedLinkOrEmpty(child))
}

// walk detaches the given side, passes it to visitor, and attaches back
// whatever visitor returns. Visitor receives nil if the side was empty
// and may itself return nil to leave it empty.
func (w *Walker) walk(isLeft bool, visitor func(*Node) (*Node, cost.OperationCost, error)) (cost.OperationCost, error) {
	child, c1, err := w.detach(isLeft)
	var total cost.OperationCost
	total.AddInPlace(c1)
	if err != nil {
		return total, err
	}
	newChild, c2, err := visitor(child)
	total.AddInPlace(c2)
	if err != nil {
		return total, err
	}
	w.attach(isLeft, newChild)
	return total, nil
}

// walkExpect is walk, but fails with a corrupted-code-execution error if
// the side was empty going in -- used where the caller has already
// established the child must exist.
func (w *Walker) walkExpect(isLeft bool, visitor func(*Node) (*Node, cost.OperationCost, error)) (cost.OperationCost, error) {
	if w.node.childLink(isLeft).isEmpty() {
		side := "right"
		if isLeft {
			side = "left"
		}
		return cost.OperationCost{}, grovedberr.CorruptedCodeExecution("merk: walkExpect found no %s child", side)
	}
	return w.walk(isLeft, visitor)
}
