package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/commsframe/internal/capture"
	"github.com/muurk/commsframe/internal/logging"
	"github.com/muurk/commsframe/internal/protocol"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next message or pong from the peer
	pongWait = 60 * time.Second

	// Maximum websocket message size allowed from peer
	maxMessageSize = 64 * 1024

	// Unconsumed bytes kept per connection while waiting for a frame to complete
	maxPending = 1 << 20
)

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	remoteAddr := r.RemoteAddr
	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()
	s.connections.Add(1)

	s.wg.Add(1)
	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.LogConnection(remoteAddr, "websocket_closed")
		s.wg.Done()
	}()

	logging.LogConnection(remoteAddr, "websocket_upgraded")

	if err := s.handleConnection(conn, remoteAddr); err != nil {
		logging.Warn("WebSocket connection error",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
	}
}

// handleConnection reads binary messages until the peer goes away. Frames
// may span messages.
func (s *Server) handleConnection(conn *websocket.Conn, remoteAddr string) error {
	handler := s.config.NewHandler(remoteAddr)

	var rec *capture.Writer
	if s.config.CaptureDir != "" {
		w, path, err := capture.Create(s.config.CaptureDir, remoteAddr, s.config.CaptureFormat)
		if err != nil {
			logging.Error("Failed to create capture file",
				zap.String("remote_addr", remoteAddr),
				zap.Error(err),
			)
		} else {
			rec = w
			logging.Info("Capturing connection",
				zap.String("remote_addr", remoteAddr),
				zap.String("file", path),
			)
			defer func() {
				if err := rec.Close(); err != nil {
					logging.Error("Failed to close capture file", zap.Error(err))
				}
			}()
		}
	}

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	stream := protocol.NewStream(s.config.Frame, handler)
	stream.MaxPending = maxPending

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Info("Connection closed by peer", zap.String("remote_addr", remoteAddr))
				return nil
			}
			if stream.Pending() > 0 {
				logging.Warn("Connection ended inside a frame",
					zap.String("remote_addr", remoteAddr),
					zap.Int("pending", stream.Pending()),
				)
			}
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		logging.LogWebSocketMessage(remoteAddr, "received", msgType, data)
		if msgType != websocket.BinaryMessage {
			continue
		}

		s.chunks.Add(1)
		s.bytes.Add(uint64(len(data)))
		logging.LogFrame(remoteAddr, "in", data)

		if rec != nil {
			if err := rec.Write(capture.NewRecord(remoteAddr, data)); err != nil {
				logging.Error("Failed to write capture record",
					zap.String("remote_addr", remoteAddr),
					zap.Error(err),
				)
			}
		}

		if err := stream.Feed(data); err != nil {
			s.errors.Add(1)
			logging.Warn("Corrupt input",
				zap.String("remote_addr", remoteAddr),
				zap.Error(err),
			)
		}
	}
}

// Send dials url and writes each frame as one binary websocket message.
func Send(ctx context.Context, url string, frames [][]byte) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer conn.Close()

	for i, f := range frames {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.BinaryMessage, f); err != nil {
			return fmt.Errorf("failed to send frame %d: %w", i, err)
		}
		logging.LogFrame(url, "out", f)
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	return nil
}
