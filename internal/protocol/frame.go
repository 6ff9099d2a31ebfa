package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/muurk/commsframe/internal/logging"
	"go.uber.org/zap"
)

// ResyncPolicy decides what ProcessInputData does after a corrupt frame.
type ResyncPolicy uint8

const (
	// ResyncSkipFrame skips the corrupt frame when a size layer gives its
	// extent, and aborts otherwise.
	ResyncSkipFrame ResyncPolicy = iota
	// ResyncScan drops one byte and tries again.
	ResyncScan
	// ResyncAbort stops at the first corrupt frame.
	ResyncAbort
)

func (p ResyncPolicy) String() string {
	switch p {
	case ResyncSkipFrame:
		return "skip"
	case ResyncScan:
		return "scan"
	case ResyncAbort:
		return "abort"
	default:
		return fmt.Sprintf("ResyncPolicy(%d)", uint8(p))
	}
}

// ParseResyncPolicy accepts the names printed by ResyncPolicy.String.
func ParseResyncPolicy(s string) (ResyncPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return ResyncSkipFrame, nil
	case "scan":
		return ResyncScan, nil
	case "abort":
		return ResyncAbort, nil
	default:
		return 0, fmt.Errorf("unknown resync policy %q (want skip, scan or abort)", s)
	}
}

// Option configures a Frame.
type Option func(*Frame)

// WithResyncPolicy sets the recovery behaviour after a corrupt frame.
func WithResyncPolicy(p ResyncPolicy) Option {
	return func(f *Frame) { f.policy = p }
}

// WithMaxFrameSize rejects size layer values above n. Zero disables the check.
func WithMaxFrameSize(n int) Option {
	return func(f *Frame) { f.maxFrameSize = n }
}

// WithDispatch replaces DefaultDispatch, typically with the typed dispatch
// of a concrete protocol.
func WithDispatch(d DispatchFunc) Option {
	return func(f *Frame) { f.dispatch = d }
}

// Frame is an ordered list of layers, outer to inner, plus the factory that
// creates messages for decoded ids. It is immutable after NewFrame and safe
// for concurrent use.
type Frame struct {
	name    string
	factory *Factory
	layers  []Layer

	// heads[i] and tails[i] total the fixed bytes of layers[:i].
	heads []int
	tails []int

	policy       ResyncPolicy
	maxFrameSize int
	dispatch     DispatchFunc
}

// NewFrame validates the layer list and builds a frame. The last layer must
// be the payload, and there must be exactly one id layer and at most one
// size layer.
func NewFrame(name string, factory *Factory, layers []Layer, opts ...Option) (*Frame, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: %s: nil factory", ErrInvalidFrame, name)
	}
	if err := validateLayers(layers); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFrame, name, err)
	}

	f := &Frame{
		name:     name,
		factory:  factory,
		layers:   append([]Layer(nil), layers...),
		heads:    make([]int, len(layers)+1),
		tails:    make([]int, len(layers)+1),
		dispatch: DefaultDispatch,
	}
	for i, l := range layers {
		f.heads[i+1] = f.heads[i] + l.HeadLen()
		f.tails[i+1] = f.tails[i] + l.TailLen()
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.dispatch == nil {
		f.dispatch = DefaultDispatch
	}
	return f, nil
}

func validateLayers(layers []Layer) error {
	if len(layers) == 0 {
		return errors.New("no layers")
	}
	var ids, sizes int
	for i, l := range layers {
		switch l := l.(type) {
		case *PayloadLayer:
			if i != len(layers)-1 {
				return fmt.Errorf("payload layer at position %d is not innermost", i)
			}
		case *IDLayer:
			ids++
			if l.Width < 1 || l.Width > 8 {
				return fmt.Errorf("id layer width %d", l.Width)
			}
		case *SizeLayer:
			sizes++
			if l.Width < 1 || l.Width > 8 {
				return fmt.Errorf("size layer width %d", l.Width)
			}
		case *ChecksumLayer:
			if l.Alg.Width() == 0 {
				return fmt.Errorf("unknown checksum algorithm %d", uint8(l.Alg))
			}
		case *SyncLayer:
			if len(l.Prefix) == 0 {
				return errors.New("empty sync prefix")
			}
		case nil:
			return fmt.Errorf("nil layer at position %d", i)
		}
	}
	if _, ok := layers[len(layers)-1].(*PayloadLayer); !ok {
		return errors.New("innermost layer must be the payload")
	}
	if ids != 1 {
		return fmt.Errorf("want exactly one id layer, have %d", ids)
	}
	if sizes > 1 {
		return fmt.Errorf("want at most one size layer, have %d", sizes)
	}
	return nil
}

// Name returns the frame name given to NewFrame.
func (f *Frame) Name() string { return f.name }

// Factory returns the message factory used for decoding.
func (f *Frame) Factory() *Factory { return f.factory }

// Policy returns the configured resync policy.
func (f *Frame) Policy() ResyncPolicy { return f.policy }

// Layers returns a copy of the layer list, outer to inner.
func (f *Frame) Layers() []Layer { return append([]Layer(nil), f.layers...) }

// WriteMessage serializes msg through every layer into a new buffer. The
// message is not modified.
func (f *Frame) WriteMessage(msg Message) ([]byte, error) {
	var write func(i int) WriteFunc
	write = func(i int) WriteFunc {
		return func(buf []byte) ([]byte, error) {
			return f.layers[i].Write(buf, msg, write(i+1))
		}
	}

	body := BodyLength(msg)
	if u, ok := msg.(*UnknownMessage); ok {
		body = len(u.Payload)
	}
	hint := f.heads[len(f.layers)] + body + f.tails[len(f.layers)]
	out, err := write(0)(make([]byte, 0, hint))
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", msg.Name(), err)
	}
	if f.maxFrameSize > 0 && len(out) > f.maxFrameSize {
		return nil, fmt.Errorf("write %s: %w", msg.Name(),
			&LengthError{Declared: len(out), Limit: f.maxFrameSize, Reason: "exceeds maximum frame size"})
	}
	return out, nil
}

// ReadMessage decodes exactly one frame from the front of data and returns
// the message and the number of bytes it occupied. Errors are *FrameError.
func (f *Frame) ReadMessage(data []byte) (Message, int, error) {
	msg, n, st := f.readFrame(data)
	if st.err != nil {
		return nil, 0, &FrameError{Offset: 0, Layer: st.failed, Err: st.err}
	}
	return msg, n, nil
}

func (f *Frame) readFrame(data []byte) (Message, int, *ReadState) {
	st := newReadState(f)

	var read func(i int) ReadFunc
	read = func(i int) ReadFunc {
		return func(d []byte, st *ReadState) (int, error) {
			st.depth = i
			n, err := f.layers[i].Read(d, st, read(i+1))
			// The failing layer is the outermost one that did not just pass
			// through (or wrap) the error of the layers it wraps.
			if err != nil && (st.err == nil || !errors.Is(err, st.err)) {
				st.failed = f.layers[i].Name()
				st.err = err
			}
			return n, err
		}
	}

	n, err := read(0)(data, st)
	if err != nil {
		st.err = err
		return nil, 0, st
	}
	st.err = nil
	return st.msg, n, st
}

// ProcessInputData decodes every complete frame in data, dispatching each
// message to h, and returns the number of bytes consumed. A trailing partial
// frame stops processing with an error matching ErrTruncated; the caller
// should keep data[consumed:] and retry once more bytes arrive. Corrupt
// frames are handled according to the resync policy and their errors are
// joined into the returned error.
func (f *Frame) ProcessInputData(data []byte, h Handler) (int, error) {
	var errs []error
	consumed := 0
	scanning := false

	for consumed < len(data) {
		msg, n, st := f.readFrame(data[consumed:])
		if st.err == nil {
			if !st.known {
				logging.Debug("Unknown message id",
					zap.String("frame", f.name),
					zap.Uint64("id", uint64(msg.ID())),
					zap.Int("offset", consumed),
				)
			} else {
				logging.Debug("Frame decoded",
					zap.String("frame", f.name),
					zap.String("message", msg.Name()),
					zap.Int("offset", consumed),
					zap.Int("length", n),
				)
			}
			f.dispatch(msg, h)
			consumed += n
			scanning = false
			continue
		}

		ferr := &FrameError{Offset: consumed, Layer: st.failed, Err: st.err}
		if errors.Is(st.err, ErrTruncated) {
			errs = append(errs, ferr)
			break
		}

		remaining := len(data) - consumed

		switch {
		case f.policy == ResyncSkipFrame && st.extent > 0:
			if st.extent > remaining {
				// Wait for the whole corrupt frame so it can be skipped in one go.
				errs = append(errs, truncated("corrupt frame", st.extent, remaining))
				return consumed, errors.Join(errs...)
			}
			logging.Warn("Skipping corrupt frame",
				zap.String("frame", f.name),
				zap.Int("offset", consumed),
				zap.Int("length", st.extent),
				zap.String("layer", st.failed),
				zap.Error(st.err),
			)
			errs = append(errs, ferr)
			consumed += st.extent

		case f.policy == ResyncScan:
			if !scanning {
				logging.Warn("Corrupt frame, scanning for next frame",
					zap.String("frame", f.name),
					zap.Int("offset", consumed),
					zap.String("layer", st.failed),
					zap.Error(st.err),
				)
				errs = append(errs, ferr)
			}
			scanning = true
			consumed++

		default:
			logging.Warn("Corrupt frame, aborting",
				zap.String("frame", f.name),
				zap.Int("offset", consumed),
				zap.String("layer", st.failed),
				zap.Error(st.err),
			)
			errs = append(errs, ferr)
			return consumed, errors.Join(errs...)
		}
	}

	return consumed, errors.Join(errs...)
}
