package huffman

import (
	"container/heap"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrEmptyInput is returned when a tree is requested for a table with no counts.
var ErrEmptyInput = errors.New("huffman: no symbols to build a tree from")

// Node is a Huffman tree node. A leaf has nil children and carries Symbol;
// an internal node always has both children. Weight is the leaf frequency or
// the sum of the children; trees read back from a stream have zero weights.
type Node struct {
	Symbol byte
	Weight uint64
	Left   *Node
	Right  *Node
}

// IsLeaf reports whether n carries a symbol.
func (n *Node) IsLeaf() bool { return n.Left == nil && n.Right == nil }

// String renders the tree one node per line, children indented below their parent.
func (n *Node) String() string {
	var sb strings.Builder
	n.format(&sb, 0)
	return sb.String()
}

func (n *Node) format(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	if n.IsLeaf() {
		fmt.Fprintf(sb, "%q (%d)\n", n.Symbol, n.Weight)
		return
	}
	fmt.Fprintf(sb, "* (%d)\n", n.Weight)
	n.Left.format(sb, depth+1)
	n.Right.format(sb, depth+1)
}

type qnode struct {
	node *Node
	seq  int
}

// nodeHeap is a min-heap of tree nodes by weight. Ties go to the lower
// sequence number: leaves are numbered in symbol order and every merged node
// takes the next number, so a merged node sorts after all nodes of equal
// weight that already exist.
type nodeHeap []qnode

// Len implements heap.Interface and returns the number of elements.
func (h nodeHeap) Len() int { return len(h) }

// Less implements heap.Interface ordering by ascending weight, then sequence.
func (h nodeHeap) Less(i, j int) bool {
	if h[i].node.Weight != h[j].node.Weight {
		return h[i].node.Weight < h[j].node.Weight
	}
	return h[i].seq < h[j].seq
}

// Swap implements heap.Interface swap.
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

// Push implements heap.Interface push.
func (h *nodeHeap) Push(x any) { *h = append(*h, x.(qnode)) }

// Pop implements heap.Interface pop.
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// BuildTree builds a Huffman tree from ft. It repeatedly merges the two
// lightest nodes, the lighter one becoming the left child, until one root
// remains. A table with a single present symbol yields a lone leaf. The shape
// is fully determined by ft, so equal tables always produce identical trees.
func BuildTree(ft *FrequencyTable) (*Node, error) {
	h := make(nodeHeap, 0, numSymbols)
	seq := 0
	for sym, c := range ft {
		if c == 0 {
			continue
		}
		h = append(h, qnode{node: &Node{Symbol: byte(sym), Weight: c}, seq: seq})
		seq++
	}
	if len(h) == 0 {
		return nil, ErrEmptyInput
	}
	heap.Init(&h)

	for h.Len() > 1 {
		left := heap.Pop(&h).(qnode)
		right := heap.Pop(&h).(qnode)
		merged := &Node{
			Weight: left.node.Weight + right.node.Weight,
			Left:   left.node,
			Right:  right.node,
		}
		heap.Push(&h, qnode{node: merged, seq: seq})
		seq++
	}
	root := h[0].node
	log.Debugf("built tree over %d symbols, root weight %d", ft.Distinct(), root.Weight)
	return root, nil
}
