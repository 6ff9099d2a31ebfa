// Package server accepts framed binary streams over WebSocket.
//
// Each connection gets its own handler and its own pending buffer. Binary
// messages are appended to the buffer and decoded with the configured
// protocol.Frame, so a frame may be split across several websocket messages
// or several frames may arrive in one. Text messages are ignored.
//
// # Capture
//
// With CaptureDir set, every binary message is recorded to a per-connection
// capture file (see package capture) before decoding. The file can be fed
// back through the decoder later with "commsframe replay".
//
// # Discovery
//
// With Advertise set, the server registers a _commsframe._tcp mDNS service
// once it is listening. The TXT record carries the websocket path and the
// frame name so clients found by "commsframe discover" can connect without
// further configuration.
//
// # Usage
//
//	srv, err := server.New(&server.Config{
//	    Listen: ":8765",
//	    Path:   "/ws",
//	    Frame:  sample.NewFrame(),
//	})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
package server
