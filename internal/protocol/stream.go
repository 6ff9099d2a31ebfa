package protocol

import (
	"errors"

	"github.com/muurk/commsframe/internal/logging"
	"go.uber.org/zap"
)

// DefaultMaxPending caps the bytes a Stream holds while waiting for the
// rest of a frame.
const DefaultMaxPending = 1 << 20

// Stream decodes input that arrives in arbitrary chunks. Bytes belonging to
// an incomplete frame are kept until the next Feed. A Stream is not safe for
// concurrent use.
type Stream struct {
	frame   *Frame
	handler Handler
	pending []byte

	// MaxPending is the most unconsumed input kept between calls.
	// Zero means DefaultMaxPending.
	MaxPending int
}

// NewStream returns a stream decoding with f and delivering to h.
func NewStream(f *Frame, h Handler) *Stream {
	return &Stream{frame: f, handler: h}
}

// Feed appends data and decodes every complete frame in the buffer. An
// incomplete trailing frame is not an error. The returned error joins the
// errors of corrupt frames found during this call.
//
// When decoding stops at a corrupt frame the resync policy cannot get past,
// the unconsumed input is discarded so later input can still decode.
func (s *Stream) Feed(data []byte) error {
	s.pending = append(s.pending, data...)

	n, err := s.frame.ProcessInputData(s.pending, s.handler)
	s.pending = append(s.pending[:0], s.pending[n:]...)
	if err == nil {
		return nil
	}

	errs := unjoin(err)
	stalled := !errors.Is(errs[len(errs)-1], ErrTruncated)

	var corrupt []error
	for _, e := range errs {
		if !errors.Is(e, ErrTruncated) {
			corrupt = append(corrupt, e)
		}
	}

	limit := s.MaxPending
	if limit == 0 {
		limit = DefaultMaxPending
	}
	switch {
	case stalled && len(s.pending) > 0:
		logging.Warn("Discarding undecodable input",
			zap.String("frame", s.frame.Name()),
			zap.Int("discarded", len(s.pending)),
		)
		logging.LogRawBytes("Discarded input", s.pending)
		s.pending = s.pending[:0]
	case len(s.pending) > limit:
		logging.Warn("Pending input too large, discarding",
			zap.String("frame", s.frame.Name()),
			zap.Int("pending", len(s.pending)),
			zap.Int("limit", limit),
		)
		corrupt = append(corrupt, &LengthError{Declared: len(s.pending), Limit: limit, Reason: "pending input exceeds limit"})
		s.pending = s.pending[:0]
	}

	return errors.Join(corrupt...)
}

// Write feeds p to the stream so it can be the target of io.Copy. It always
// consumes all of p.
func (s *Stream) Write(p []byte) (int, error) {
	return len(p), s.Feed(p)
}

// Pending returns the number of bytes waiting for the rest of a frame.
func (s *Stream) Pending() int {
	return len(s.pending)
}

// Close reports input left over from an incomplete frame and resets the
// stream.
func (s *Stream) Close() error {
	if len(s.pending) == 0 {
		return nil
	}
	// Decode once more to report what the partial frame is missing.
	_, err := s.frame.ProcessInputData(s.pending, s.handler)
	s.pending = nil
	return err
}

func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
