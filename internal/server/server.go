package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/commsframe/internal/capture"
	"github.com/muurk/commsframe/internal/discovery"
	"github.com/muurk/commsframe/internal/logging"
	"github.com/muurk/commsframe/internal/protocol"
	"github.com/muurk/commsframe/internal/version"
	"go.uber.org/zap"
)

// Config holds the server configuration
type Config struct {
	Listen string // host:port
	Path   string // websocket endpoint

	// Frame decodes every connection. It is shared; frames are immutable.
	Frame *protocol.Frame

	// NewHandler returns the handler for one connection. Nil means LogHandler.
	NewHandler func(remoteAddr string) protocol.Handler

	CaptureDir    string // Directory for capture files (empty = disabled)
	CaptureFormat capture.Format

	Advertise bool   // Register an mDNS service once listening
	Instance  string // mDNS instance name
}

// Stats are running totals across all connections.
type Stats struct {
	Connections uint64
	Chunks      uint64
	Bytes       uint64
	Errors      uint64
}

// Server accepts websocket connections and feeds their binary messages to
// a frame decoder.
type Server struct {
	config   *Config
	upgrader websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener
	ad         *discovery.Advertisement

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]*websocket.Conn

	connections atomic.Uint64
	chunks      atomic.Uint64
	bytes       atomic.Uint64
	errors      atomic.Uint64
}

// New creates a new Server instance
func New(config *Config) (*Server, error) {
	if config.Frame == nil {
		return nil, errors.New("server: no frame configured")
	}
	if config.Path == "" {
		config.Path = "/"
	}
	if config.NewHandler == nil {
		config.NewHandler = func(remoteAddr string) protocol.Handler { return NewLogHandler(remoteAddr) }
	}
	if config.CaptureDir != "" && config.CaptureFormat == "" {
		config.CaptureFormat = capture.FormatMsgpack
	}

	return &Server{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		activeConns: make(map[string]*websocket.Conn),
	}, nil
}

// Handler returns the HTTP handler serving the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, s.serveWebSocket)
	return mux
}

// Start listens and serves until ctx is cancelled, then shuts down.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.Info("Server listening for connections",
		zap.String("addr", listener.Addr().String()),
		zap.String("path", s.config.Path),
		zap.String("frame", s.config.Frame.Name()),
		zap.String("resync_policy", s.config.Frame.Policy().String()),
	)

	if s.config.Advertise {
		port := listener.Addr().(*net.TCPAddr).Port
		s.ad, err = discovery.Advertise(s.config.Instance, port, discovery.TXT{
			Path:    s.config.Path,
			Frame:   s.config.Frame.Name(),
			Version: version.Get().Version,
		})
		if err != nil {
			_ = listener.Close()
			return err
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown requested, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		s.ad.Shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Addr returns the listening address once Start has been called.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.ad.Shutdown()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	// Hijacked websocket connections are not tracked by http.Server.
	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	logging.Sync()
	return err
}

// GetActiveConnections returns the number of active connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// Stats returns a snapshot of the running totals.
func (s *Server) Stats() Stats {
	return Stats{
		Connections: s.connections.Load(),
		Chunks:      s.chunks.Load(),
		Bytes:       s.bytes.Load(),
		Errors:      s.errors.Load(),
	}
}
