package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/commsframe/internal/capture"
	"github.com/muurk/commsframe/internal/server"
	"github.com/muurk/commsframe/internal/ui"
)

// Serve flags; unset flags fall back to the config file.
var (
	listenAddr    string
	wsPath        string
	captureDir    string
	captureFormat string
	advertise     bool
	instance      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the websocket ingest server",
	Long: `Accept websocket connections and decode the frames they send.

Each binary websocket message is appended to the connection's input and
decoded; frames may be split across messages. Decoded messages are logged,
so run with --log-level info (or set COMMSFRAME_LOG_LEVEL) to see them.

To record traffic for later replay, use --capture-dir. With --advertise the
server registers itself over mDNS so 'commsframe discover' can find it.`,
	Example: `  # Start with config file settings
  commsframe serve --log-level info

  # Listen on a custom port and record every connection
  commsframe serve --listen :9000 --capture-dir ./captures

  # Advertise over mDNS
  commsframe serve --advertise --instance bench-1`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default from config, :8765)")
	serveCmd.Flags().StringVar(&wsPath, "path", "", "Websocket endpoint path (default from config, /ws)")
	serveCmd.Flags().StringVar(&captureDir, "capture-dir", "", "Directory for capture files (disabled if not specified)")
	serveCmd.Flags().StringVar(&captureFormat, "capture-format", "", "Capture format: msgpack or cbor")
	serveCmd.Flags().BoolVar(&advertise, "advertise", false, "Register an mDNS service")
	serveCmd.Flags().StringVar(&instance, "instance", "", "mDNS instance name")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Server.Listen = listenAddr
	}
	if flags.Changed("path") {
		cfg.Server.Path = wsPath
	}
	if flags.Changed("capture-dir") {
		cfg.Capture.Dir = captureDir
	}
	if flags.Changed("capture-format") {
		cfg.Capture.Format = captureFormat
	}
	if flags.Changed("advertise") {
		cfg.Server.Advertise = advertise
	}
	if flags.Changed("instance") {
		cfg.Server.Instance = instance
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	format, err := capture.ParseFormat(cfg.Capture.Format)
	if err != nil {
		return err
	}
	frame, err := newFrame()
	if err != nil {
		return err
	}

	srv, err := server.New(&server.Config{
		Listen:        cfg.Server.Listen,
		Path:          cfg.Server.Path,
		Frame:         frame,
		CaptureDir:    cfg.Capture.Dir,
		CaptureFormat: format,
		Advertise:     cfg.Server.Advertise,
		Instance:      cfg.Server.Instance,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	capturing := "disabled"
	if cfg.Capture.Dir != "" {
		capturing = fmt.Sprintf("%s (%s)", cfg.Capture.Dir, format)
	}
	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader(ui.NewHeader("Serve", cmd.CommandPath(), p.Width(),
		ui.Param{Key: "Listen", Value: cfg.Server.Listen},
		ui.Param{Key: "Path", Value: cfg.Server.Path},
		ui.Param{Key: "Resync", Value: frame.Policy().String()},
		ui.Param{Key: "Capture", Value: capturing},
		ui.Param{Key: "mDNS", Value: fmt.Sprint(cfg.Server.Advertise)},
	))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return err
	}

	stats := srv.Stats()
	p.PrintResult(ui.NewSuccessResult("Server stopped").
		AddDetail("Connections", fmt.Sprint(stats.Connections)).
		AddDetail("Chunks", fmt.Sprint(stats.Chunks)).
		AddDetail("Bytes", fmt.Sprint(stats.Bytes)).
		AddDetail("Decode errors", fmt.Sprint(stats.Errors)))
	return nil
}
