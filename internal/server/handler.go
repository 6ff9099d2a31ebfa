package server

import (
	"fmt"

	"github.com/muurk/commsframe/internal/logging"
	"github.com/muurk/commsframe/internal/protocol"
	"go.uber.org/zap"
)

// LogHandler logs every message it receives.
type LogHandler struct {
	remoteAddr string
}

// NewLogHandler returns a handler that logs messages from remoteAddr.
func NewLogHandler(remoteAddr string) *LogHandler {
	return &LogHandler{remoteAddr: remoteAddr}
}

func (h *LogHandler) HandleMessage(msg protocol.Message) {
	logging.Info("Message received",
		zap.String("remote_addr", h.remoteAddr),
		zap.Uint64("id", uint64(msg.ID())),
		zap.String("message", msg.Name()),
		zap.String("fields", describe(msg)),
	)
}

func describe(msg protocol.Message) string {
	if s, ok := msg.(fmt.Stringer); ok {
		return s.String()
	}
	return protocol.FormatMessage(msg)
}
