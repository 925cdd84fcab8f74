package huffman

import (
	"io"

	"github.com/pkg/errors"
)

// ErrFormat indicates a corrupt or truncated compressed stream.
var ErrFormat = errors.New("huffman: malformed stream")

// WriteTree serializes the tree rooted at root in preorder: a leaf is written
// as a 1 bit followed by its symbol, most significant bit first; an internal
// node as a 0 bit followed by its left and right subtrees.
func WriteTree(w BitWriter, root *Node) error {
	if root.IsLeaf() {
		if err := w.WriteBit(leafTag); err != nil {
			return err
		}
		for i := 7; i >= 0; i-- {
			if err := w.WriteBit(root.Symbol >> i); err != nil {
				return err
			}
		}
		return nil
	}
	if err := w.WriteBit(branchTag); err != nil {
		return err
	}
	if err := WriteTree(w, root.Left); err != nil {
		return err
	}
	return WriteTree(w, root.Right)
}

// ReadTree reads a tree written by WriteTree. Running out of bits anywhere
// inside the dictionary, a repeated symbol, or nesting deeper than any tree
// over 256 symbols can reach are reported as ErrFormat. Nodes of the returned
// tree have zero weights.
func ReadTree(r BitReader) (*Node, error) {
	var seen [numSymbols]bool
	return readTree(r, &seen, 0)
}

func readTree(r BitReader, seen *[numSymbols]bool, depth int) (*Node, error) {
	if depth > maxCodeLen {
		return nil, errors.Wrapf(ErrFormat, "dictionary deeper than %d levels", maxCodeLen)
	}
	tag, err := readDictBit(r)
	if err != nil {
		return nil, err
	}
	if tag == leafTag {
		var sym byte
		for i := 0; i < 8; i++ {
			b, err := readDictBit(r)
			if err != nil {
				return nil, err
			}
			sym = sym<<1 | b
		}
		if seen[sym] {
			return nil, errors.Wrapf(ErrFormat, "symbol %#02x appears twice in dictionary", sym)
		}
		seen[sym] = true
		return &Node{Symbol: sym}, nil
	}

	left, err := readTree(r, seen, depth+1)
	if err != nil {
		return nil, err
	}
	right, err := readTree(r, seen, depth+1)
	if err != nil {
		return nil, err
	}
	return &Node{Left: left, Right: right}, nil
}

func readDictBit(r BitReader) (byte, error) {
	b, err := r.ReadBit()
	if err == io.EOF {
		return 0, errors.Wrap(ErrFormat, "truncated dictionary")
	}
	return b, err
}
