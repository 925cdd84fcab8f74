// Package bitstream provides bit-granular reading and writing on top of a byte
// stream, with an optional self-delimiting trailer.
//
// Bits are packed most-significant-first within each byte. When padding is
// enabled, a writer marks the end of the real data with a sentinel: the bit
// following the last data bit is set to 1 and the rest of the final byte is
// left at 0. If the data ends on a byte boundary a whole sentinel byte 0x80 is
// appended, so an empty stream is still one byte long. A padded reader probes
// whether each loaded byte is the last one in the source and, if so, drops the
// lowest set bit and every bit below it.
//
// Without padding the final partial byte is zero-filled and a reader returns
// every bit of every byte; callers that need their own trailer (as the Huffman
// coder does) manage it themselves.
package bitstream

import (
	"bufio"
	"io"
	"math/bits"
	"os"

	"github.com/icza/bitio"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("huffman/bitstream")

// Mode selects the direction of a Stream.
type Mode int

const (
	// Read streams return bits from the underlying source.
	Read Mode = iota
	// Write streams append bits to the underlying sink.
	Write
)

func (m Mode) String() string {
	switch m {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "invalid"
	}
}

// Sentinel is the trailer byte written when a padded stream ends on a byte
// boundary.
const Sentinel byte = 0x80

var (
	// ErrClosed is returned when operating on a closed or nil Stream.
	ErrClosed = errors.New("bitstream: stream is closed")
	// ErrInvalidMode is returned by Open for a mode other than Read or Write.
	ErrInvalidMode = errors.New("bitstream: invalid mode")
	// ErrWrongMode is returned when reading from a write stream or writing to a read stream.
	ErrWrongMode = errors.New("bitstream: operation not permitted in this mode")
)

// Stream is a bit-oriented view of a byte stream. A Stream is not safe for
// concurrent use.
type Stream struct {
	mode    Mode
	padding bool
	closer  io.Closer // set when the Stream owns the underlying file
	closed  bool

	// read side: buf holds the current byte; the next unread bit is at
	// position shift+cursor-1, and bits below shift are trailer.
	br     *bufio.Reader
	buf    byte
	cursor int
	shift  int
	eof    bool
	nread  int64

	// write side: pending is the number of bits in the partial byte held by bw.
	bw       *bitio.Writer
	pending  int
	nwritten int64
}

// Open opens the file at path for bit-oriented reading or writing. Read mode
// starts at the beginning of the file; write mode creates or truncates it.
// The returned Stream owns the file and releases it on Close.
func Open(path string, mode Mode, padding bool) (*Stream, error) {
	var s *Stream
	switch mode {
	case Read:
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		s = NewReader(f, padding)
		s.closer = f
	case Write:
		f, err := os.Create(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		s = NewWriter(f, padding)
		s.closer = f
	default:
		return nil, errors.Wrapf(ErrInvalidMode, "open %s with mode %d", path, int(mode))
	}
	log.Debugf("opened %s for %s (padding=%t)", path, mode, padding)
	return s, nil
}

// NewReader returns a read Stream over r. Close does not close r.
func NewReader(r io.Reader, padding bool) *Stream {
	return &Stream{
		mode:    Read,
		padding: padding,
		br:      bufio.NewReader(r),
	}
}

// NewWriter returns a write Stream over w. Close finalizes the stream but does
// not close w.
func NewWriter(w io.Writer, padding bool) *Stream {
	return &Stream{
		mode:    Write,
		padding: padding,
		bw:      bitio.NewWriter(w),
	}
}

// Mode reports the direction of the stream.
func (s *Stream) Mode() Mode { return s.mode }

// Padding reports whether the sentinel trailer is written or detected.
func (s *Stream) Padding() bool { return s.padding }

// Pending returns the number of bits written into the current partial byte,
// in the range 0-7. It is always 0 for a read stream.
func (s *Stream) Pending() int { return s.pending }

// BitsRead returns the number of data bits returned by ReadBit so far.
func (s *Stream) BitsRead() int64 { return s.nread }

// BitsWritten returns the number of data bits accepted by WriteBit so far,
// excluding any trailer added by Close.
func (s *Stream) BitsWritten() int64 { return s.nwritten }

func (s *Stream) check(mode Mode) error {
	if s == nil || s.closed {
		return ErrClosed
	}
	if s.mode != mode {
		return errors.Wrapf(ErrWrongMode, "%s on a %s stream", mode, s.mode)
	}
	return nil
}

// Close finalizes and releases the stream. In write mode with padding it
// appends the sentinel: a whole 0x80 byte when no bits are pending, otherwise
// a single 1 bit after the last data bit. Without padding the partial byte is
// flushed zero-filled only if it holds at least one bit. The underlying file,
// if owned, is closed even when flushing fails.
func (s *Stream) Close() error {
	if s == nil || s.closed {
		return ErrClosed
	}
	s.closed = true

	var err error
	if s.mode == Write {
		err = s.finish()
	}
	if s.closer != nil {
		if cerr := s.closer.Close(); cerr != nil && err == nil {
			err = errors.WithStack(cerr)
		}
	}
	return err
}

func (s *Stream) finish() error {
	if s.padding {
		if s.pending == 0 {
			log.Debugf("no pending bits, writing sentinel byte %#x", Sentinel)
			if err := s.bw.WriteBits(uint64(Sentinel), 8); err != nil {
				return errors.Wrap(err, "bitstream: write sentinel")
			}
		} else {
			log.Debugf("sentinel bit at position %d of the last byte", s.pending)
			if err := s.bw.WriteBool(true); err != nil {
				return errors.Wrap(err, "bitstream: write sentinel")
			}
		}
	}
	// bitio zero-fills the partial byte and flushes its buffer; with nothing
	// pending it writes nothing.
	if err := s.bw.Close(); err != nil {
		return errors.Wrap(err, "bitstream: flush")
	}
	s.pending = 0
	return nil
}

// ReadBit returns the next bit (0 or 1), or io.EOF when the stream holds no
// more data bits.
func (s *Stream) ReadBit() (byte, error) {
	if err := s.check(Read); err != nil {
		return 0, err
	}
	for s.cursor == 0 {
		if s.eof {
			return 0, io.EOF
		}
		if err := s.load(); err != nil {
			return 0, err
		}
	}
	s.cursor--
	s.nread++
	return (s.buf >> (s.shift + s.cursor)) & 1, nil
}

// load fetches the next byte into the buffer and, with padding enabled,
// strips the trailer from the last byte of the source.
func (s *Stream) load() error {
	b, err := s.br.ReadByte()
	if err == io.EOF {
		s.eof = true
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "bitstream: read")
	}
	s.buf, s.cursor, s.shift = b, 8, 0
	if !s.padding {
		return nil
	}

	last, err := s.atEnd()
	if err != nil {
		return err
	}
	if !last {
		return nil
	}
	s.eof = true
	if b == 0 {
		// no sentinel: malformed, but the stream simply ends here
		log.Debugf("last byte carries no sentinel")
		s.cursor = 0
		return nil
	}
	s.shift = bits.TrailingZeros8(b) + 1
	s.cursor = 8 - s.shift
	log.Debugf("sentinel at bit %d of last byte %#x, %d data bits", s.shift-1, b, s.cursor)
	return nil
}

// atEnd reports whether the byte just loaded was the last one in the source.
func (s *Stream) atEnd() (bool, error) {
	_, err := s.br.Peek(1)
	switch {
	case err == nil:
		return false, nil
	case err == io.EOF:
		return true, nil
	default:
		return false, errors.Wrap(err, "bitstream: probe end of stream")
	}
}

// WriteBit appends the least significant bit of bit to the stream.
func (s *Stream) WriteBit(bit byte) error {
	if err := s.check(Write); err != nil {
		return err
	}
	if err := s.bw.WriteBool(bit&1 == 1); err != nil {
		return errors.Wrap(err, "bitstream: write")
	}
	s.pending = (s.pending + 1) & 7
	s.nwritten++
	return nil
}

// ReadBits reads up to n bits into dst. The first bit read lands in the least
// significant bit of dst[0], the ninth in the least significant bit of dst[1],
// and so on; the bytes covering n bits are cleared first. It returns the
// number of bits read, which is less than n only when the stream ended early;
// reaching the end is not an error.
func (s *Stream) ReadBits(dst []byte, n int) (int, error) {
	if err := s.check(Read); err != nil {
		return 0, err
	}
	if n < 0 || len(dst)*8 < n {
		return 0, errors.Wrapf(io.ErrShortBuffer, "bitstream: %d bits into %d bytes", n, len(dst))
	}
	clear(dst[:(n+7)/8])
	for i := 0; i < n; i++ {
		bit, err := s.ReadBit()
		if err == io.EOF {
			return i, nil
		}
		if err != nil {
			return i, err
		}
		dst[i/8] |= bit << (i % 8)
	}
	return n, nil
}

// WriteBits writes the first n bits of src, taking the least significant bit
// of src[0] first. It returns the number of bits written.
func (s *Stream) WriteBits(src []byte, n int) (int, error) {
	if err := s.check(Write); err != nil {
		return 0, err
	}
	if n < 0 || len(src)*8 < n {
		return 0, errors.Wrapf(io.ErrShortBuffer, "bitstream: %d bits from %d bytes", n, len(src))
	}
	for i := 0; i < n; i++ {
		if err := s.WriteBit(src[i/8] >> (i % 8)); err != nil {
			return i, err
		}
	}
	return n, nil
}
