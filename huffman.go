package huffman

import (
	"fmt"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("huffman")

const (
	numSymbols = 256
	// maxCodeLen is the deepest a tree over 256 distinct leaves can be.
	maxCodeLen = numSymbols - 1
	leafTag    = 1
	branchTag  = 0
)

// BitReader is the bit source consumed by ReadTree and the decoder.
// *bitstream.Stream implements it.
type BitReader interface {
	ReadBit() (byte, error)
}

// BitWriter is the bit sink used by WriteTree and the encoder.
// *bitstream.Stream implements it.
type BitWriter interface {
	WriteBit(bit byte) error
}

// Stats describes one encode or decode run.
type Stats struct {
	InputBytes     int64 // bytes consumed from the source
	OutputBytes    int64 // bytes produced
	Symbols        int   // distinct byte values in the dictionary
	DictionaryBits int64 // size of the serialized tree
	PayloadBits    int64 // size of the concatenated codes
}

// Ratio returns OutputBytes/InputBytes, or 0 for empty input.
func (s Stats) Ratio() float64 {
	if s.InputBytes == 0 {
		return 0
	}
	return float64(s.OutputBytes) / float64(s.InputBytes)
}

func (s Stats) String() string {
	return fmt.Sprintf("%d -> %d bytes (%.3f), %d symbols, dictionary %d bits, payload %d bits",
		s.InputBytes, s.OutputBytes, s.Ratio(), s.Symbols, s.DictionaryBits, s.PayloadBits)
}
