package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/maxatome/go-testdeep/td"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout is only used on linux")
	}
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	td.Cmp(t, dir, filepath.Join(xdg, "commsframe"))

	path, err := GetConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	td.Cmp(t, filepath.Base(path), "config.yaml")
}

func TestNewConfigIsValid(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	td.Cmp(t, cfg.Decoder.ResyncPolicy, "skip")
	td.Cmp(t, cfg.Server.Path, "/ws")
	td.Cmp(t, cfg.Capture.Format, "msgpack")
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	td.Cmp(t, cfg, NewConfig())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)

			cfg := NewConfig()
			cfg.LogLevel = "debug"
			cfg.Decoder.ResyncPolicy = "scan"
			cfg.Decoder.MaxFrameSize = 512
			cfg.Server.Advertise = true
			cfg.Server.Instance = "bench-1"
			cfg.Capture.Dir = "/tmp/captures"
			cfg.Capture.Format = "cbor"

			if err := cfg.Save(path); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
				t.Error("temporary file left behind")
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.HasPrefix(string(data), "# commsframe configuration") {
				t.Error("saved file is missing its header comment")
			}

			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			td.Cmp(t, loaded, cfg)
		})
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"partial.yaml", "version: 1\ndecoder:\n  resync_policy: abort\n"},
		{"partial.toml", "version = 1\n[decoder]\nresync_policy = \"abort\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatal(err)
			}
			td.Cmp(t, cfg.Decoder.ResyncPolicy, "abort")
			td.Cmp(t, cfg.Decoder.MaxFrameSize, 4096)
			td.Cmp(t, cfg.Server.Listen, ":8765")
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"version.yaml", "version: 2\n", "unsupported config version"},
		{"policy.yaml", "version: 1\ndecoder:\n  resync_policy: retry\n", "resync_policy"},
		{"format.toml", "version = 1\n[capture]\nformat = \"json\"\n", "capture.format"},
		{"path.yaml", "version: 1\nserver:\n  path: ws\n", "server.path"},
		{"syntax.yaml", "version: [\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestFrameOptions(t *testing.T) {
	cfg := NewConfig()
	opts, err := cfg.FrameOptions()
	if err != nil {
		t.Fatal(err)
	}
	td.Cmp(t, len(opts), 2)

	cfg.Decoder.ResyncPolicy = "nope"
	if _, err := cfg.FrameOptions(); err == nil {
		t.Error("FrameOptions() should reject an unknown policy")
	}
}

func TestLoadDefaultUsesXDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout is only used on linux")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := NewConfig()
	cfg.Server.Instance = "from-disk"
	if err := cfg.Save(""); err != nil {
		t.Fatal(err)
	}

	loaded, err := ReloadDefault()
	if err != nil {
		t.Fatal(err)
	}
	td.Cmp(t, loaded.Server.Instance, "from-disk")
}
