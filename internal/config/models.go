package config

import (
	"fmt"
	"strings"

	"github.com/muurk/commsframe/internal/protocol"
)

// Config represents the entire configuration file.
type Config struct {
	Version  int           `yaml:"version" toml:"version"`
	LogLevel string        `yaml:"log_level,omitempty" toml:"log_level,omitempty"`
	Decoder  DecoderConfig `yaml:"decoder" toml:"decoder"`
	Server   ServerConfig  `yaml:"server" toml:"server"`
	Capture  CaptureConfig `yaml:"capture" toml:"capture"`
}

// DecoderConfig controls how input streams are decoded.
type DecoderConfig struct {
	ResyncPolicy string `yaml:"resync_policy" toml:"resync_policy"`   // skip, scan or abort
	MaxFrameSize int    `yaml:"max_frame_size" toml:"max_frame_size"` // 0 disables the limit
}

// ServerConfig controls the websocket ingest server.
type ServerConfig struct {
	Listen    string `yaml:"listen" toml:"listen"`
	Path      string `yaml:"path" toml:"path"`
	Advertise bool   `yaml:"advertise" toml:"advertise"` // Register an mDNS service
	Instance  string `yaml:"instance" toml:"instance"`   // mDNS instance name
}

// CaptureConfig controls recording of received frames.
type CaptureConfig struct {
	Dir    string `yaml:"dir,omitempty" toml:"dir,omitempty"` // Empty disables capture
	Format string `yaml:"format" toml:"format"`               // msgpack or cbor
}

const currentVersion = 1

// NewConfig returns a configuration with default values.
func NewConfig() *Config {
	return &Config{
		Version: currentVersion,
		Decoder: DecoderConfig{
			ResyncPolicy: protocol.ResyncSkipFrame.String(),
			MaxFrameSize: 4096,
		},
		Server: ServerConfig{
			Listen:   ":8765",
			Path:     "/ws",
			Instance: "commsframe",
		},
		Capture: CaptureConfig{
			Format: "msgpack",
		},
	}
}

// Validate checks every field that has a restricted set of values.
func (c *Config) Validate() error {
	if c.Version != currentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, currentVersion)
	}
	if _, err := protocol.ParseResyncPolicy(c.Decoder.ResyncPolicy); err != nil {
		return fmt.Errorf("decoder.resync_policy: %w", err)
	}
	if c.Decoder.MaxFrameSize < 0 {
		return fmt.Errorf("decoder.max_frame_size: must not be negative, got %d", c.Decoder.MaxFrameSize)
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		return fmt.Errorf("server.path: must start with '/', got %q", c.Server.Path)
	}
	switch c.Capture.Format {
	case "msgpack", "cbor":
	default:
		return fmt.Errorf("capture.format: unknown format %q (want msgpack or cbor)", c.Capture.Format)
	}
	return nil
}

// FrameOptions converts the decoder section into frame options.
func (c *Config) FrameOptions() ([]protocol.Option, error) {
	policy, err := protocol.ParseResyncPolicy(c.Decoder.ResyncPolicy)
	if err != nil {
		return nil, fmt.Errorf("decoder.resync_policy: %w", err)
	}
	return []protocol.Option{
		protocol.WithResyncPolicy(policy),
		protocol.WithMaxFrameSize(c.Decoder.MaxFrameSize),
	}, nil
}
