package huffman

import (
	"strings"

	"github.com/pkg/errors"
)

// Code is the bit sequence assigned to one symbol. Bits are packed in the
// order they are emitted: bit i lives in bits[i/8] at position i%8, the
// layout bitstream.Stream.WriteBits consumes.
type Code struct {
	bits [(maxCodeLen + 7) / 8]byte
	Len  int
}

// Bit returns the i-th bit of the code.
func (c Code) Bit(i int) byte { return (c.bits[i/8] >> (i % 8)) & 1 }

// append returns c extended by one bit.
func (c Code) append(bit byte) Code {
	c.bits[c.Len/8] |= (bit & 1) << (c.Len % 8)
	c.Len++
	return c
}

// String renders the code as a string of 0 and 1 digits.
func (c Code) String() string {
	var sb strings.Builder
	for i := 0; i < c.Len; i++ {
		sb.WriteByte('0' + c.Bit(i))
	}
	return sb.String()
}

// CodeTable maps each byte value to its code. Symbols absent from the tree
// have a zero-length code.
type CodeTable [numSymbols]Code

// NewCodeTable derives the code of every leaf by a depth-first walk from
// root: a step to the left child appends 0, a step to the right appends 1.
// A root that is itself a leaf gets the one-bit code 0.
func NewCodeTable(root *Node) (*CodeTable, error) {
	if root == nil {
		return nil, ErrEmptyInput
	}
	var t CodeTable
	if root.IsLeaf() {
		t[root.Symbol] = Code{}.append(0)
		return &t, nil
	}
	if err := t.walk(root, Code{}); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *CodeTable) walk(n *Node, prefix Code) error {
	if n.IsLeaf() {
		t[n.Symbol] = prefix
		return nil
	}
	if prefix.Len == maxCodeLen {
		return errors.Errorf("huffman: tree deeper than %d levels", maxCodeLen)
	}
	if err := t.walk(n.Left, prefix.append(0)); err != nil {
		return err
	}
	return t.walk(n.Right, prefix.append(1))
}

// Lookup returns the code for sym and whether sym is present in the table.
func (t *CodeTable) Lookup(sym byte) (Code, bool) {
	c := t[sym]
	return c, c.Len > 0
}

// Lengths returns the code length of every symbol, 0 for absent ones.
func (t *CodeTable) Lengths() [numSymbols]int {
	var lens [numSymbols]int
	for i := range t {
		lens[i] = t[i].Len
	}
	return lens
}
