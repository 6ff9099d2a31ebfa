package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/commsframe/internal/protocol"
	"github.com/muurk/commsframe/internal/protocol/sample"
	"github.com/muurk/commsframe/internal/server"
)

// Encode flags
var (
	sendURL     string
	counter     uint32
	temperature float64
	date        string
	status      string
	label       string
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode a sample message as a frame",
	Long: `Build one of the sample messages and print the complete frame as hex.

With --send the frame is also written to a websocket ingest server as a
single binary message.`,
	Example: `  # Date message for 10 January 2127
  commsframe encode msg2 --date 2127-01-10

  # Measurement with a scaled temperature
  commsframe encode msg1 --counter 42 --temperature 21.5

  # Status message sent straight to a running server
  commsframe encode msg3 --status Fault --label "pump 2" --send ws://localhost:8765/ws`,
}

var encodeMsg1Cmd = &cobra.Command{
	Use:   "msg1",
	Short: "Encode a measurement (counter, temperature)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m := sample.NewMsg1()
		if err := m.FieldCounter().SetValue(counter); err != nil {
			return err
		}
		if err := m.FieldTemperature().SetScaled(temperature); err != nil {
			return err
		}
		return encodeAndPrint(cmd, m)
	},
}

var encodeMsg2Cmd = &cobra.Command{
	Use:   "msg2",
	Short: "Encode a date (year 2000-2127)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := time.Parse(time.DateOnly, date)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", date, err)
		}

		m := sample.NewMsg2()
		f1 := m.FieldF1()
		if err := f1.FieldYear().SetValue(int16(t.Year())); err != nil {
			return err
		}
		if err := f1.FieldMonth().SetValue(uint8(t.Month())); err != nil {
			return err
		}
		if err := f1.FieldDay().SetValue(uint8(t.Day())); err != nil {
			return err
		}
		return encodeAndPrint(cmd, m)
	},
}

var encodeMsg3Cmd = &cobra.Command{
	Use:   "msg3",
	Short: "Encode a status report (status, label)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m := sample.NewMsg3()
		st := m.FieldStatus()
		v, ok := lookupEnum(st.Values(), status)
		if !ok {
			return fmt.Errorf("unknown --status %q (want one of %s)", status, enumNames(st.Values()))
		}
		if err := st.SetValue(v); err != nil {
			return err
		}
		if err := m.FieldLabel().SetValue(label); err != nil {
			return err
		}
		return encodeAndPrint(cmd, m)
	},
}

func init() {
	encodeCmd.PersistentFlags().StringVar(&sendURL, "send", "", "Also send the frame to this websocket URL")

	encodeMsg1Cmd.Flags().Uint32Var(&counter, "counter", 0, "Sample counter")
	encodeMsg1Cmd.Flags().Float64Var(&temperature, "temperature", 0, "Temperature in degrees C (-40.0 to 125.0)")

	encodeMsg2Cmd.Flags().StringVar(&date, "date", "2000-01-01", "Date as YYYY-MM-DD")

	encodeMsg3Cmd.Flags().StringVar(&status, "status", "Idle", "Status name")
	encodeMsg3Cmd.Flags().StringVar(&label, "label", "", "Free text label (up to 32 bytes)")

	encodeCmd.AddCommand(encodeMsg1Cmd, encodeMsg2Cmd, encodeMsg3Cmd)
	rootCmd.AddCommand(encodeCmd)
}

func encodeAndPrint(cmd *cobra.Command, m protocol.Message) error {
	frame, err := newFrame()
	if err != nil {
		return err
	}
	buf, err := frame.WriteMessage(m)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(buf))

	if sendURL == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	return server.Send(ctx, sendURL, [][]byte{buf})
}

func lookupEnum[T protocol.Integer](values []protocol.EnumValue[T], name string) (T, bool) {
	for _, v := range values {
		if strings.EqualFold(v.Name, name) {
			return v.Value, true
		}
	}
	var zero T
	return zero, false
}

func enumNames[T protocol.Integer](values []protocol.EnumValue[T]) string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = v.Name
	}
	return strings.Join(names, ", ")
}
