// Commsframe encodes, decodes and receives framed binary messages.
//
// It drives the layered codec in internal/protocol with the sample protocol
// (sync, checksum, size, id, payload) and offers a websocket ingest server,
// mDNS discovery of running servers, and replay of captured traffic.
//
// Usage:
//
//	commsframe [command] [flags]
//
// See 'commsframe --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/commsframe/internal/config"
	"github.com/muurk/commsframe/internal/logging"
	"github.com/muurk/commsframe/internal/protocol"
	"github.com/muurk/commsframe/internal/protocol/sample"
	"github.com/muurk/commsframe/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
)

// cfg is loaded before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "commsframe",
	Short: "Layered binary frame codec",
	Long: `Encode, decode and receive framed binary messages.

Frames carry a sync prefix, a CRC-16 checksum, a 2-byte size, a 1-byte
message id and the message payload. Decoding resynchronises after corrupt
frames according to decoder.resync_policy in the config file.`,
	Version:       version.Get().Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		level := logLevel
		if level == "" {
			level = cfg.LogLevel
		}
		return logging.Initialize(level)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/commsframe/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config and "+logging.LogLevelEnvVar)

	rootCmd.AddCommand(versionCmd)
}

// newFrame builds the sample frame with the decoder settings from the config.
func newFrame() (*protocol.Frame, error) {
	opts, err := cfg.FrameOptions()
	if err != nil {
		return nil, err
	}
	return sample.NewFrame(opts...), nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Fprintf(cmd.OutOrStdout(), "commsframe %s (commit: %s, %s)\n", info.Version, info.Commit, info.GoVersion)
	},
}
