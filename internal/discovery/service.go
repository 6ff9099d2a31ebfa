package discovery

import (
	"fmt"
	"strings"
	"time"
)

// Service is an ingest server found on the local network.
type Service struct {
	// Instance is the advertised instance name (e.g., "bench-1")
	Instance string

	// Hostname is the mDNS hostname (e.g., "bench-1.local.")
	Hostname string

	// IP is the first usable address, IPv4 preferred
	IP string

	Port int

	// Metadata holds the TXT records: path, frame and version
	Metadata map[string]string

	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the service
func (s *Service) String() string {
	return fmt.Sprintf("%s (%s) at %s", s.Instance, s.Hostname, s.URL())
}

// Path is the websocket path, "/" when not advertised.
func (s *Service) Path() string {
	p := s.GetMetadata("path")
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// URL returns the websocket URL of the ingest endpoint.
func (s *Service) URL() string {
	host := s.IP
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("ws://%s:%d%s", host, s.Port, s.Path())
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (s *Service) GetMetadata(key string) string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata[key]
}
