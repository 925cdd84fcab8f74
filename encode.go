package huffman

import (
	"bufio"
	"bytes"
	"io"

	"github.com/axiomhq/huffman/bitstream"
	"github.com/pkg/errors"
)

// Encode compresses everything readable from r into w. The source is read
// twice, once to count frequencies and once to emit codes, so it must be
// seekable. Empty input produces the single trailer byte 0x80.
func Encode(w io.Writer, r io.ReadSeeker) (Stats, error) {
	out := bitstream.NewWriter(w, false)
	st, err := encodeStream(out, r)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = cerr
	}
	return st, err
}

// EncodeBytes compresses src and returns a newly allocated byte slice.
func EncodeBytes(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(src)/2 + 64)
	if _, err := Encode(&buf, bytes.NewReader(src)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeStream writes the dictionary, payload and trailer of r to out. The
// stream must have its own padding disabled; the trailer is written here and
// covers dictionary and payload together. out is left open.
func encodeStream(out *bitstream.Stream, r io.ReadSeeker) (Stats, error) {
	var st Stats

	ft, err := CountFrequencies(r)
	if err != nil {
		return st, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return st, errors.Wrap(err, "huffman: rewind input")
	}

	root, err := BuildTree(ft)
	if errors.Is(err, ErrEmptyInput) {
		log.Debugf("empty input, writing trailer only")
		if err := writeTrailer(out); err != nil {
			return st, err
		}
		st.OutputBytes = out.BitsWritten() / 8
		return st, nil
	}
	if err != nil {
		return st, err
	}
	codes, err := NewCodeTable(root)
	if err != nil {
		return st, err
	}

	if err := WriteTree(out, root); err != nil {
		return st, errors.Wrap(err, "huffman: write dictionary")
	}
	st.Symbols = ft.Distinct()
	st.DictionaryBits = out.BitsWritten()

	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return st, errors.Wrap(err, "huffman: read input")
		}
		code, ok := codes.Lookup(b)
		if !ok {
			return st, errors.Errorf("huffman: byte %#02x not counted, input changed between passes", b)
		}
		if _, err := out.WriteBits(code.bits[:], code.Len); err != nil {
			return st, errors.Wrap(err, "huffman: write payload")
		}
		st.InputBytes++
	}
	st.PayloadBits = out.BitsWritten() - st.DictionaryBits

	if err := writeTrailer(out); err != nil {
		return st, err
	}
	st.OutputBytes = out.BitsWritten() / 8
	log.Debugf("encoded %s", st)
	return st, nil
}

// writeTrailer appends the end marker: a 1 bit, then 0 bits until the
// stream is byte aligned.
func writeTrailer(out *bitstream.Stream) error {
	if err := out.WriteBit(1); err != nil {
		return errors.Wrap(err, "huffman: write trailer")
	}
	for out.Pending() != 0 {
		if err := out.WriteBit(0); err != nil {
			return errors.Wrap(err, "huffman: write trailer")
		}
	}
	return nil
}
