package huffman

import (
	"bufio"
	"bytes"
	"io"
	"math/bits"

	"github.com/axiomhq/huffman/bitstream"
	"github.com/pkg/errors"
)

// trailerOnly is the whole encoding of an empty message.
const trailerOnly = 0x80

// Decode decompresses the message read from r into w.
//
// Decoding is incremental: only the most recent 8 bits are held back, since
// the trailer always lies within the last byte. Every older bit drives the
// walk down the tree.
func Decode(w io.Writer, r io.Reader) (Stats, error) {
	in := bitstream.NewReader(r, false)
	defer in.Close()

	bw := bufio.NewWriter(w)
	st, err := decodeStream(bw, in)
	if err != nil {
		return st, err
	}
	if err := bw.Flush(); err != nil {
		return st, errors.Wrap(err, "huffman: write output")
	}
	return st, nil
}

// DecodeBytes decompresses src and returns a newly allocated byte slice.
func DecodeBytes(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(src) * 2)
	if _, err := Decode(&buf, bytes.NewReader(src)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// prefixReader replays bits already taken from r before reading on.
type prefixReader struct {
	head []byte
	r    BitReader
}

func (p *prefixReader) ReadBit() (byte, error) {
	if len(p.head) > 0 {
		b := p.head[0]
		p.head = p.head[1:]
		return b, nil
	}
	return p.r.ReadBit()
}

// decodeStream decodes one message from in, which must have padding disabled.
func decodeStream(w io.ByteWriter, in *bitstream.Stream) (Stats, error) {
	var st Stats

	// The smallest non-empty message is a 9-bit leaf plus trailer, so a
	// message of exactly one byte can only be the empty one.
	head := make([]byte, 0, 9)
	for len(head) < cap(head) {
		b, err := in.ReadBit()
		if err == io.EOF {
			break
		}
		if err != nil {
			return st, err
		}
		head = append(head, b)
	}
	if len(head) == 8 && packBits(head) == trailerOnly {
		st.InputBytes = 1
		return st, nil
	}

	src := &prefixReader{head: head, r: in}
	root, err := ReadTree(src)
	if err != nil {
		return st, err
	}
	st.DictionaryBits = in.BitsRead() - int64(len(src.head))
	st.Symbols = countLeaves(root)
	log.Debugf("read dictionary: %d symbols in %d bits", st.Symbols, st.DictionaryBits)

	d := walker{root: root, node: root, w: w}
	var (
		window byte // held-back bits, newest in bit 0
		held   int
	)
	for {
		bit, err := src.ReadBit()
		if err == io.EOF {
			break
		}
		if err != nil {
			return st, err
		}
		if held == 8 {
			if err := d.step(window >> 7); err != nil {
				return st, err
			}
			held--
		}
		window = window<<1 | bit
		held++
	}

	// The last set bit is the sentinel; the held bits above it are payload.
	if window == 0 {
		return st, errors.Wrap(ErrFormat, "missing trailer")
	}
	sentinel := bits.TrailingZeros8(window)
	for i := held - 1; i > sentinel; i-- {
		if err := d.step((window >> i) & 1); err != nil {
			return st, err
		}
	}
	if d.node != root {
		return st, errors.Wrap(ErrFormat, "payload ends inside a code")
	}

	st.PayloadBits = d.consumed
	st.OutputBytes = d.emitted
	st.InputBytes = in.BitsRead() / 8
	log.Debugf("decoded %s", st)
	return st, nil
}

// walker follows payload bits down the tree and emits a symbol at each leaf.
type walker struct {
	root, node *Node
	w          io.ByteWriter
	consumed   int64
	emitted    int64
}

func (d *walker) step(bit byte) error {
	d.consumed++
	if d.root.IsLeaf() {
		// a lone leaf owns the code 0
		if bit != 0 {
			return errors.Wrap(ErrFormat, "unexpected 1 bit for single-symbol dictionary")
		}
		return d.emit(d.root.Symbol)
	}
	if bit == 0 {
		d.node = d.node.Left
	} else {
		d.node = d.node.Right
	}
	if !d.node.IsLeaf() {
		return nil
	}
	sym := d.node.Symbol
	d.node = d.root
	return d.emit(sym)
}

func (d *walker) emit(sym byte) error {
	if err := d.w.WriteByte(sym); err != nil {
		return errors.Wrap(err, "huffman: write output")
	}
	d.emitted++
	return nil
}

func packBits(bs []byte) byte {
	var b byte
	for _, bit := range bs {
		b = b<<1 | bit
	}
	return b
}

func countLeaves(n *Node) int {
	if n.IsLeaf() {
		return 1
	}
	return countLeaves(n.Left) + countLeaves(n.Right)
}
