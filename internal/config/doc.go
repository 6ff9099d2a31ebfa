// Package config provides configuration management for commsframe.
//
// The configuration file is YAML by default and TOML when its name ends in
// .toml. Keys missing from the file keep their defaults from NewConfig.
//
// # Configuration File Location
//
// The default file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/commsframe/config.yaml or $HOME/.config/commsframe/config.yaml
//   - macOS: $HOME/.config/commsframe/config.yaml
//   - Windows: %LOCALAPPDATA%\commsframe\config.yaml
//
// # Example
//
//	version: 1
//	log_level: info
//	decoder:
//	  resync_policy: skip
//	  max_frame_size: 4096
//	server:
//	  listen: ":8765"
//	  path: /ws
//	  advertise: true
//	  instance: bench-1
//	capture:
//	  dir: /var/lib/commsframe/captures
//	  format: msgpack
//
// # Usage
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    return err
//	}
//	opts, err := cfg.FrameOptions()
//
// Save writes atomically (temporary file plus rename) and is safe to call
// from several goroutines.
package config
