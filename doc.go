// Package huffman provides byte-oriented Huffman compression over a
// self-delimiting bit stream.
//
// # Overview
//
// The encoder counts byte frequencies in one pass, builds a Huffman tree with
// a deterministic tie-break, derives a prefix-free code per byte value and
// writes a single message:
//
//	[dictionary] [payload] [trailer]
//
// The dictionary is the tree in preorder at bit granularity: an internal node
// is a 0 bit followed by its left and right subtrees, a leaf is a 1 bit
// followed by its byte value most-significant-bit first. The payload is the
// concatenation of the codes of every input byte in order. The trailer is a
// single 1 bit followed by 0 bits up to the next byte boundary, so the whole
// message occupies a whole number of bytes without any length field.
//
// # Edge Cases
//
// Empty input encodes to the single trailer byte 0x80 and decodes back to
// nothing. Input made of a single distinct byte value produces a tree that is
// just one leaf; that symbol is given the one-bit code 0.
//
// # Basic Usage
//
//	compressed, err := huffman.EncodeBytes([]byte("abracadabra"))
//	if err != nil {
//	    return err
//	}
//	original, err := huffman.DecodeBytes(compressed)
//
//	// Or work on files; an empty output path appends _HUFFenc / _HUFFdec
//	_, err = huffman.EncodeFile("data.txt", "")
//	_, err = huffman.DecodeFile("data.txt_HUFFenc", "")
//
// # Errors
//
// Failures to open, read or write files are returned with the underlying
// *fs.PathError in the chain. Corrupt or truncated streams are reported with
// ErrFormat in the chain; use errors.Is to tell them apart. The file helpers
// never leave a partially written output behind.
//
// # Building Blocks
//
// The pieces are exported for reuse: CountFrequencies, BuildTree,
// NewCodeTable, WriteTree and ReadTree. The bit-level I/O lives in the
// bitstream subpackage and can serve other codecs.
package huffman
