package huffman

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// FrequencyTable counts occurrences of each byte value.
type FrequencyTable [numSymbols]uint64

// CountFrequencies builds a FrequencyTable in a single buffered pass over r.
func CountFrequencies(r io.Reader) (*FrequencyTable, error) {
	var (
		ft  FrequencyTable
		buf [32 << 10]byte
		br  = bufio.NewReaderSize(r, len(buf))
	)
	for {
		n, err := br.Read(buf[:])
		ft.Add(buf[:n])
		if err == io.EOF {
			return &ft, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "huffman: count frequencies")
		}
	}
}

// Add counts every byte of p.
func (ft *FrequencyTable) Add(p []byte) {
	for _, b := range p {
		ft[b]++
	}
}

// Distinct returns the number of byte values with a nonzero count.
func (ft *FrequencyTable) Distinct() int {
	n := 0
	for _, c := range ft {
		if c != 0 {
			n++
		}
	}
	return n
}

// Total returns the sum of all counts.
func (ft *FrequencyTable) Total() uint64 {
	var total uint64
	for _, c := range ft {
		total += c
	}
	return total
}

// WriteTo writes one "symbol -> count" line per present byte value.
func (ft *FrequencyTable) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for sym, c := range ft {
		if c == 0 {
			continue
		}
		nn, err := fmt.Fprintf(w, "%q -> %d\n", byte(sym), c)
		n += int64(nn)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
