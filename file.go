package huffman

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/axiomhq/huffman/bitstream"
	"github.com/pkg/errors"
)

// Default output suffixes used when no output path is given.
const (
	EncodedSuffix = "_HUFFenc"
	DecodedSuffix = "_HUFFdec"
)

// outputPerm is applied to output files; os.CreateTemp alone yields 0600.
const outputPerm = 0o644

// EncodeFile compresses inputPath into outputPath, or into inputPath with
// EncodedSuffix appended when outputPath is empty. The output is written
// under a temporary name and only renamed into place on success.
func EncodeFile(inputPath, outputPath string) (Stats, error) {
	if outputPath == "" {
		outputPath = inputPath + EncodedSuffix
	}
	var st Stats

	in, err := os.Open(inputPath)
	if err != nil {
		return st, errors.WithStack(err)
	}
	defer in.Close()

	err = replaceFile(outputPath, func(f *os.File) error {
		out := bitstream.NewWriter(f, false)
		st, err = encodeStream(out, in)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		return err
	})
	return st, err
}

// DecodeFile decompresses inputPath into outputPath, or into inputPath with
// DecodedSuffix appended when outputPath is empty. A malformed input leaves
// no output file behind.
func DecodeFile(inputPath, outputPath string) (Stats, error) {
	if outputPath == "" {
		outputPath = inputPath + DecodedSuffix
	}
	var st Stats

	in, err := bitstream.Open(inputPath, bitstream.Read, false)
	if err != nil {
		return st, err
	}
	defer in.Close()

	err = replaceFile(outputPath, func(f *os.File) error {
		bw := bufio.NewWriter(f)
		st, err = decodeStream(bw, in)
		if err == nil {
			err = errors.Wrap(bw.Flush(), "huffman: write output")
		}
		return err
	})
	return st, err
}

// replaceFile creates a uniquely named temporary file next to path, runs
// write against it and renames it over path when write succeeds. On failure
// the temporary file is removed and path is left untouched.
func replaceFile(path string, write func(f *os.File) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.WithStack(err)
	}
	tmp := f.Name()

	err = errors.WithStack(f.Chmod(outputPerm))
	if err == nil {
		err = write(f)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = errors.WithStack(cerr)
	}
	if err == nil {
		err = errors.WithStack(os.Rename(tmp, path))
	}
	if err != nil {
		if rerr := os.Remove(tmp); rerr != nil && !os.IsNotExist(rerr) {
			log.Warningf("removing %s: %v", tmp, rerr)
		}
		return err
	}
	log.Debugf("wrote %s", path)
	return nil
}
