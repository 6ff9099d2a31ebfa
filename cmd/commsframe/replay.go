package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/muurk/commsframe/internal/capture"
	"github.com/muurk/commsframe/internal/protocol"
	"github.com/muurk/commsframe/internal/ui"
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture-file>",
	Short: "Decode the frames recorded in a capture file",
	Long: `Feed a capture file written by 'commsframe serve --capture-dir' back through
the decoder and print the messages it contains.

Records are replayed in order; chunks from the same remote address are
joined so frames split across websocket messages decode as they did live.
The file format (msgpack or cbor) comes from the file extension.`,
	Example: `  commsframe replay captures/127.0.0.1_51234-20260101T120000.000000000.msgpack`,
	Args:    cobra.ExactArgs(1),
	RunE:    runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	r, err := capture.Open(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	frame, err := newFrame()
	if err != nil {
		return err
	}

	tbl := &ui.MessageTable{}
	streams := make(map[string]*protocol.Stream)
	var order []string
	var errs []error
	records, total := 0, 0

	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", records+1, err)
		}
		records++
		total += len(rec.Data)

		s, ok := streams[rec.Remote]
		if !ok {
			remote := rec.Remote
			s = protocol.NewStream(frame, protocol.HandlerFunc(func(msg protocol.Message) {
				tbl.Add(ui.NewMessageRow(tbl.Len()+1, remote, msg))
			}))
			streams[remote] = s
			order = append(order, remote)
		}
		if err := s.Feed(rec.Data); err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", records, err))
		}
	}
	for _, remote := range order {
		if err := streams[remote].Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", remote, err))
		}
	}
	replayErr := errors.Join(errs...)

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader(ui.NewHeader("Replay", cmd.CommandPath(), p.Width(),
		ui.Param{Key: "File", Value: args[0]},
		ui.Param{Key: "Records", Value: fmt.Sprint(records)},
		ui.Param{Key: "Bytes", Value: fmt.Sprint(total)},
	))
	if tbl.Len() > 0 {
		if err := p.PrintTable(tbl); err != nil {
			return err
		}
	}
	p.PrintResult(decodeResult(tbl, replayErr))

	if replayErr != nil {
		return fmt.Errorf("capture contained undecodable frames")
	}
	return nil
}
