package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/axiomhq/huffman"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("huff")

const progName = "huff"
const usageMessageRaw = `
Usage: huff [-d|-debug] SUBCOMMAND...

Subcommands:
  encode [-o OUTPUT] INPUT
    Compress INPUT into OUTPUT, or into INPUT_HUFFenc when no output is
    given.

  decode [-o OUTPUT] INPUT
    Decompress INPUT into OUTPUT, or into INPUT_HUFFdec when no output is
    given.  A malformed INPUT leaves no output behind.

  tree INPUT
    Print the byte frequencies of INPUT, the Huffman tree built from them
    and the code of every symbol.
`

type nullWriter struct{}

func (n *nullWriter) Write(p []byte) (int, error) {
	return len(p), nil
}

var ourFlags *flag.FlagSet

func usageMessage() string {
	return strings.TrimLeft(usageMessageRaw, "\n")
}

func usageErrorf(detailFmt string, detailArgs ...any) {
	detail := fmt.Sprintf(detailFmt, detailArgs...)
	fmt.Fprintf(os.Stderr, "%s: %s\n%s", progName, detail, usageMessage())
	os.Exit(64)
}

func exitError(err error) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", progName, err.Error())
	os.Exit(1)
}

var argI int

func nextArg(expected string) string {
	if !(argI < ourFlags.NArg()) {
		usageErrorf("not enough arguments; expected %s", expected)
	}
	arg := ourFlags.Arg(argI)
	argI++
	return arg
}

func remainingArgs() []string {
	slice := ourFlags.Args()[argI:]
	argI = ourFlags.NArg()
	return slice
}

func endOfArgs() {
	if argI < ourFlags.NArg() {
		usageErrorf("too many arguments at %d (\"%s\")", argI, ourFlags.Arg(argI))
	}
}

var leveledLogBackend logging.Leveled

func startLogging() {
	backend := logging.NewLogBackend(os.Stderr, progName+": ", 0)
	formatSpec := "%{level:8s} %{module:-20s} | %{message}"
	formatter := logging.MustStringFormatter(formatSpec)
	formatted := logging.NewBackendFormatter(backend, formatter)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(logging.INFO, "")
	logging.SetBackend(leveled)
	leveledLogBackend = leveled
}

// parseSubFlags parses the remaining arguments as a subcommand, returning
// the value of -o when withOutput is set.
func parseSubFlags(withOutput bool) string {
	subFlags := flag.NewFlagSet(progName, flag.ContinueOnError)
	subFlags.Usage = func() {}
	subFlags.SetOutput(&nullWriter{})

	var outputPath string
	if withOutput {
		subFlags.StringVar(&outputPath, "o", "", "")
	}

	argErr := subFlags.Parse(remainingArgs())
	if argErr == flag.ErrHelp {
		io.WriteString(os.Stdout, usageMessage())
		os.Exit(0)
	} else if argErr != nil {
		usageErrorf("%s", argErr.Error())
	}

	ourFlags = subFlags
	argI = 0
	return outputPath
}

type fileFunc func(inputPath, outputPath string) (huffman.Stats, error)

func convertFromArgs(convert fileFunc, verb string) func() error {
	outputPath := parseSubFlags(true)
	inputPath := nextArg("INPUT")
	endOfArgs()

	return func() error {
		st, err := convert(inputPath, outputPath)
		if err != nil {
			return err
		}
		log.Infof("%s %s: %s", verb, inputPath, st)
		return nil
	}
}

func treeFromArgs() func() error {
	parseSubFlags(false)
	inputPath := nextArg("INPUT")
	endOfArgs()

	return func() error {
		return printTree(os.Stdout, inputPath)
	}
}

func printTree(w io.Writer, inputPath string) error {
	f, err := os.Open(inputPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	ft, err := huffman.CountFrequencies(f)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d bytes, %d symbols\n", ft.Total(), ft.Distinct())
	if _, err := ft.WriteTo(w); err != nil {
		return err
	}

	root, err := huffman.BuildTree(ft)
	if errors.Is(err, huffman.ErrEmptyInput) {
		return nil
	}
	if err != nil {
		return err
	}
	codes, err := huffman.NewCodeTable(root)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%s\n", root)
	for sym := range codes {
		if c, ok := codes.Lookup(byte(sym)); ok {
			fmt.Fprintf(w, "%q %s\n", byte(sym), c)
		}
	}
	return nil
}

// commandFromArgs parses the global flags and the subcommand in args and
// returns the command to run.
func commandFromArgs(args []string) func() error {
	ourFlags = flag.NewFlagSet(progName, flag.ContinueOnError)
	ourFlags.Usage = func() {}
	ourFlags.SetOutput(&nullWriter{})
	argI = 0

	var debugLogging bool
	ourFlags.BoolVar(&debugLogging, "debug", false, "")
	ourFlags.BoolVar(&debugLogging, "d", false, "")

	argErr := ourFlags.Parse(args)
	if argErr == flag.ErrHelp {
		io.WriteString(os.Stdout, usageMessage())
		os.Exit(0)
	} else if argErr != nil {
		usageErrorf("%s", argErr.Error())
	}

	if debugLogging {
		leveledLogBackend.SetLevel(logging.DEBUG, "")
	}

	subcommandArg := nextArg("SUBCOMMAND")
	switch subcommandArg {
	case "encode":
		return convertFromArgs(huffman.EncodeFile, "encoded")
	case "decode":
		return convertFromArgs(huffman.DecodeFile, "decoded")
	case "tree":
		return treeFromArgs()
	}
	usageErrorf("unrecognized subcommand \"%s\"", subcommandArg)
	return nil
}

func main() {
	startLogging()

	if err := commandFromArgs(os.Args[1:])(); err != nil {
		log.Debugf("%+v", err)
		exitError(err)
	}
}
