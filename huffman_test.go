package huffman

import (
	"bytes"
	"math/rand"
	"os"
	"strings"
	"testing"

	"github.com/axiomhq/huffman/bitstream"
	"github.com/op/go-logging"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.SetLevel(logging.ERROR, "")
	os.Exit(m.Run())
}

// abracadabraEncoded is the exact encoding of "abracadabra": 49 dictionary
// bits, 23 payload bits and a whole trailer byte.
var abracadabraEncoded = []byte{0x58, 0x4B, 0x1D, 0x91, 0x62, 0xB9, 0x37, 0x45, 0x6E, 0x80}

func allBytes() []byte {
	out := make([]byte, 256)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

func randomBytes(seed int64, n, alphabet int) []byte {
	rng := rand.New(rand.NewSource(seed))
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(rng.Intn(alphabet))
	}
	return out
}

func TestRoundtrip(t *testing.T) {
	cases := []struct {
		name  string
		input []byte
	}{
		{"empty", nil},
		{"single_byte", []byte{'q'}},
		{"single_zero", []byte{0}},
		{"identical_1000", bytes.Repeat([]byte{'x'}, 1000)},
		{"two_symbols", []byte("abababababbbbbba")},
		{"all_256", allBytes()},
		{"all_256_twice", append(allBytes(), allBytes()...)},
		{"abracadabra", []byte("abracadabra")},
		{"text", []byte(strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40))},
		{"random_small_alphabet", randomBytes(1, 5000, 4)},
		{"random_full_alphabet", randomBytes(2, 10000, 256)},
		{"skewed", append(bytes.Repeat([]byte{'a'}, 4096), 'b', 'c', 'd')},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			comp, err := EncodeBytes(tc.input)
			require.NoError(t, err)
			got, err := DecodeBytes(comp)
			require.NoError(t, err)
			if len(tc.input) == 0 {
				require.Empty(t, got)
				return
			}
			require.Equal(t, tc.input, got)
		})
	}
}

func TestEncodeAbracadabra(t *testing.T) {
	var buf bytes.Buffer
	st, err := Encode(&buf, bytes.NewReader([]byte("abracadabra")))
	require.NoError(t, err)
	require.Equal(t, abracadabraEncoded, buf.Bytes())
	require.Equal(t, Stats{
		InputBytes:     11,
		OutputBytes:    10,
		Symbols:        5,
		DictionaryBits: 49,
		PayloadBits:    23,
	}, st)

	var out bytes.Buffer
	dst, err := Decode(&out, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, "abracadabra", out.String())
	require.Equal(t, Stats{
		InputBytes:     10,
		OutputBytes:    11,
		Symbols:        5,
		DictionaryBits: 49,
		PayloadBits:    23,
	}, dst)
}

func TestEncodeEmpty(t *testing.T) {
	comp, err := EncodeBytes(nil)
	require.NoError(t, err)
	require.Equal(t, []byte{0x80}, comp)

	got, err := DecodeBytes(comp)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestEncodeSingleSymbol(t *testing.T) {
	input := bytes.Repeat([]byte{'x'}, 1000)
	comp, err := EncodeBytes(input)
	require.NoError(t, err)
	// 9 dictionary bits, one bit per byte, then the trailer
	require.Len(t, comp, (9+1000+8)/8)

	got, err := DecodeBytes(comp)
	require.NoError(t, err)
	require.Equal(t, input, got)
}

func TestEncodeDeterministic(t *testing.T) {
	input := randomBytes(3, 20000, 97)
	first, err := EncodeBytes(input)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := EncodeBytes(input)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestEncodedSizeIsWholeBytes(t *testing.T) {
	for n := 1; n < 64; n++ {
		input := randomBytes(int64(n), n, 7)
		var buf bytes.Buffer
		st, err := Encode(&buf, bytes.NewReader(input))
		require.NoError(t, err)

		bits := st.DictionaryBits + st.PayloadBits
		trailer := int64(buf.Len())*8 - bits
		require.GreaterOrEqual(t, trailer, int64(1), "n=%d", n)
		require.LessOrEqual(t, trailer, int64(8), "n=%d", n)
		require.Equal(t, int64(buf.Len()), st.OutputBytes)
	}
}

func TestCompression(t *testing.T) {
	input := []byte(strings.Repeat("aaaaaaaabbbbccd", 200))
	comp, err := EncodeBytes(input)
	require.NoError(t, err)
	require.Less(t, len(comp), len(input)/3)
}

// encodeRaw writes a dictionary for root, the given payload bits and a
// trailer, the way the encoder lays out a message.
func encodeRaw(t *testing.T, root *Node, payload ...byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	out := bitstream.NewWriter(&buf, false)
	require.NoError(t, WriteTree(out, root))
	for _, b := range payload {
		require.NoError(t, out.WriteBit(b))
	}
	require.NoError(t, writeTrailer(out))
	require.NoError(t, out.Close())
	return buf.Bytes()
}

func TestDecodeMalformed(t *testing.T) {
	abc := &FrequencyTable{'a': 5, 'b': 2, 'c': 1}
	root, err := BuildTree(abc)
	require.NoError(t, err)

	cases := []struct {
		name string
		data []byte
	}{
		{"empty_file", nil},
		{"truncated_dictionary", abracadabraEncoded[:3]},
		{"dictionary_only_byte", abracadabraEncoded[:1]},
		{"zero_byte", []byte{0x00}},
		{"missing_trailer", append(append([]byte{}, abracadabraEncoded[:9]...), 0x00)},
		{"ends_inside_code", encodeRaw(t, root, 0)},
		{"lone_leaf_one_bit", encodeRaw(t, &Node{Symbol: 'x'}, 0, 1)},
		{"duplicate_symbol", encodeRaw(t, &Node{Left: &Node{Symbol: 'a'}, Right: &Node{Symbol: 'a'}})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeBytes(tc.data)
			require.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestDecodeHandBuilt(t *testing.T) {
	root := &Node{
		Left:  &Node{Symbol: 'a'},
		Right: &Node{Left: &Node{Symbol: 'b'}, Right: &Node{Symbol: 'c'}},
	}
	// a b c a
	got, err := DecodeBytes(encodeRaw(t, root, 0, 1, 0, 1, 1, 0))
	require.NoError(t, err)
	require.Equal(t, "abca", string(got))

	// dictionary and trailer only
	got, err = DecodeBytes(encodeRaw(t, root))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestStatsRatio(t *testing.T) {
	require.Zero(t, Stats{}.Ratio())
	st := Stats{InputBytes: 200, OutputBytes: 50}
	require.InDelta(t, 0.25, st.Ratio(), 1e-9)
	require.Contains(t, st.String(), "200 -> 50 bytes")
}

func FuzzRoundtrip(f *testing.F) {
	f.Add([]byte(""))
	f.Add([]byte("abracadabra"))
	f.Add(bytes.Repeat([]byte{'x'}, 100))
	f.Add(allBytes())
	f.Fuzz(func(t *testing.T, data []byte) {
		comp, err := EncodeBytes(data)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := DecodeBytes(comp)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("roundtrip mismatch: got %d bytes, want %d", len(got), len(data))
		}
	})
}

func FuzzDecode(f *testing.F) {
	f.Add(abracadabraEncoded)
	f.Add([]byte{0x80})
	f.Add([]byte{0x00, 0x00})
	f.Add([]byte{0xFF, 0xFF, 0xFF})
	f.Fuzz(func(t *testing.T, data []byte) {
		// must not panic; errors are expected for most inputs
		_, _ = DecodeBytes(data)
	})
}

var benchInputs = []struct {
	name string
	data []byte
}{
	{"small_100B", bytes.Repeat([]byte("hello world "), 8)},
	{"text_10KB", bytes.Repeat([]byte("The quick brown fox jumps over the lazy dog. "), 228)},
	{"random_64KB", randomBytes(4, 64<<10, 256)},
	{"repetitive", bytes.Repeat([]byte("a"), 1000)},
}

func BenchmarkEncode(b *testing.B) {
	for _, input := range benchInputs {
		b.Run(input.name, func(b *testing.B) {
			b.SetBytes(int64(len(input.data)))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = EncodeBytes(input.data)
			}
		})
	}
}

func BenchmarkDecode(b *testing.B) {
	for _, input := range benchInputs {
		comp, err := EncodeBytes(input.data)
		if err != nil {
			b.Fatal(err)
		}
		b.Run(input.name, func(b *testing.B) {
			b.SetBytes(int64(len(input.data)))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = DecodeBytes(comp)
			}
		})
	}
}
