package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/commsframe/internal/discovery"
)

// Discover flags
var (
	scanTimeout time.Duration
	findName    string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find ingest servers on the local network",
	Long: `Browse mDNS for servers started with 'commsframe serve --advertise' and
print their websocket URLs.`,
	Example: `  # Scan for 5 seconds (default)
  commsframe discover

  # Look for one instance and print only its URL
  commsframe discover --instance bench-1`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "How long to listen for answers")
	discoverCmd.Flags().StringVar(&findName, "instance", "", "Stop at the first server with this instance name")

	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	scanner := &discovery.Scanner{Timeout: scanTimeout}

	if findName != "" {
		svc, err := scanner.Find(cmd.Context(), findName)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, svc.URL())
		return nil
	}

	fmt.Fprintf(out, "Scanning for %s services (timeout: %s)...\n\n", discovery.ServiceType, scanTimeout)

	ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
	defer cancel()
	services, err := scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(services) == 0 {
		fmt.Fprintln(out, "No servers found.")
		fmt.Fprintln(out, "\nTroubleshooting:")
		fmt.Fprintln(out, "  - Start a server with 'commsframe serve --advertise'")
		fmt.Fprintln(out, "  - Check that multicast traffic is allowed on this network")
		fmt.Fprintln(out, "  - Try increasing --timeout")
		return nil
	}

	fmt.Fprintf(out, "Found %d server(s):\n\n", len(services))
	for i, svc := range services {
		fmt.Fprintf(out, "%d. %s\n", i+1, svc.Instance)
		fmt.Fprintf(out, "   URL:     %s\n", svc.URL())
		fmt.Fprintf(out, "   Host:    %s\n", svc.Hostname)
		if f := svc.GetMetadata("frame"); f != "" {
			fmt.Fprintf(out, "   Frame:   %s\n", f)
		}
		if v := svc.GetMetadata("version"); v != "" {
			fmt.Fprintf(out, "   Version: %s\n", v)
		}
		fmt.Fprintln(out)
	}
	return nil
}
