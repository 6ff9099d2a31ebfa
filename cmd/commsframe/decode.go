package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/commsframe/internal/protocol"
	"github.com/muurk/commsframe/internal/ui"
)

// Decode flags
var (
	inputFile string
	rawInput  bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode [hex|-]",
	Short: "Decode frames and list the messages they carry",
	Long: `Decode one or more concatenated frames and print a table of the messages
they carry.

Input is hex (whitespace and ':' separators are ignored) given as an
argument, read from --file, or read from stdin when the argument is '-'.
With --raw the file or stdin is read as binary instead.

Frames with unknown message ids are listed as Unknown with their raw
payload. Corrupt frames are reported after the table and make the command
exit non-zero.`,
	Example: `  # Decode a single frame
  commsframe decode "$(commsframe encode msg2 --date 2127-01-10)"

  # Decode a capture of raw bytes
  commsframe decode --file dump.bin --raw

  # Decode hex from a pipe
  commsframe encode msg2 --date 2127-01-10 | commsframe decode -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().StringVarP(&inputFile, "file", "f", "", "Read input from file")
	decodeCmd.Flags().BoolVar(&rawInput, "raw", false, "Treat file or stdin input as binary instead of hex")

	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	data, err := readDecodeInput(cmd, args)
	if err != nil {
		return err
	}

	frame, err := newFrame()
	if err != nil {
		return err
	}

	tbl := &ui.MessageTable{}
	stream := protocol.NewStream(frame, tbl)
	decodeErr := errors.Join(stream.Feed(data), stream.Close())

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader(ui.NewHeader("Decode", cmd.CommandPath(), p.Width(),
		ui.Param{Key: "Frame", Value: frame.Name()},
		ui.Param{Key: "Input", Value: fmt.Sprintf("%d bytes", len(data))},
		ui.Param{Key: "Resync", Value: frame.Policy().String()},
	))
	if tbl.Len() > 0 {
		if err := p.PrintTable(tbl); err != nil {
			return err
		}
	}
	p.PrintResult(decodeResult(tbl, decodeErr))

	if decodeErr != nil {
		return fmt.Errorf("input contained undecodable frames")
	}
	return nil
}

// decodeResult summarises a decode run for the printer.
func decodeResult(tbl *ui.MessageTable, err error) *ui.Result {
	title := fmt.Sprintf("%d message(s) decoded", tbl.Len())
	var r *ui.Result
	switch {
	case err != nil:
		r = ui.NewFailureResult(title, err,
			"Check that the input starts at a frame boundary",
			"Try --raw if the input is binary rather than hex",
		)
	case tbl.Unknown() > 0:
		r = ui.NewWarningResult(title)
	default:
		r = ui.NewSuccessResult(title)
	}
	if n := tbl.Unknown(); n > 0 {
		r.AddDetail("Unknown ids", fmt.Sprint(n))
	}
	return r
}

func readDecodeInput(cmd *cobra.Command, args []string) ([]byte, error) {
	var text []byte
	switch {
	case inputFile != "" && len(args) > 0:
		return nil, fmt.Errorf("give either an argument or --file, not both")
	case inputFile != "":
		b, err := os.ReadFile(inputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		text = b
	case len(args) == 1 && args[0] == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		text = b
	case len(args) == 1:
		if rawInput {
			return nil, fmt.Errorf("--raw needs --file or '-'")
		}
		text = []byte(args[0])
	default:
		return nil, fmt.Errorf("no input: give hex, '-' or --file")
	}

	if rawInput {
		return text, nil
	}
	return parseHex(string(text))
}

// parseHex accepts hex with arbitrary whitespace and ':' separators.
func parseHex(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ':':
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}
