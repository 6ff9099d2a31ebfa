package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"math"
)

// WriteFunc appends everything wrapped by the current layer to buf.
type WriteFunc func(buf []byte) ([]byte, error)

// ReadFunc consumes everything wrapped by the current layer from the front of
// data and returns the number of bytes used.
type ReadFunc func(data []byte, st *ReadState) (int, error)

// Layer is one transform of a frame. Layers are listed outer to inner; each
// one wraps whatever follows it. Write and Read must be symmetric.
type Layer interface {
	Name() string

	// HeadLen and TailLen are the fixed byte counts the layer places before
	// and after what it wraps.
	HeadLen() int
	TailLen() int

	Write(buf []byte, msg Message, next WriteFunc) ([]byte, error)
	Read(data []byte, st *ReadState, next ReadFunc) (int, error)
}

// ReadState carries what outer layers learned to inner layers during the
// decode of a single frame. A new one is created per frame.
type ReadState struct {
	factory  *Factory
	maxFrame int

	msg   Message
	known bool

	// bounded is set once a size layer fixed the extent of what it wraps.
	bounded bool
	extent  int

	depth  int
	heads  []int
	tails  []int
	failed string
	err    error
}

func newReadState(f *Frame) *ReadState {
	return &ReadState{
		factory:  f.factory,
		maxFrame: f.maxFrameSize,
		extent:   -1,
		heads:    f.heads,
		tails:    f.tails,
	}
}

// SetID creates the message for id; unknown ids produce an *UnknownMessage.
func (st *ReadState) SetID(id MsgID) {
	st.msg, st.known = st.factory.Create(id)
}

// Message returns the message created by the id layer, or nil.
func (st *ReadState) Message() Message { return st.msg }

// Bounded reports whether a size layer already fixed the frame extent.
func (st *ReadState) Bounded() bool { return st.bounded }

// Bound records that the current layer covers span bytes including its own
// head, which fixes the full frame length.
func (st *ReadState) Bound(span int) {
	st.bounded = true
	st.extent = st.heads[st.depth] + span + st.tails[st.depth]
}

// Extent returns the total frame length if known, or -1.
func (st *ReadState) Extent() int { return st.extent }

// SyncLayer expects a constant prefix at the start of every frame.
type SyncLayer struct {
	Prefix []byte
}

func (l *SyncLayer) Name() string { return "sync" }
func (l *SyncLayer) HeadLen() int { return len(l.Prefix) }
func (l *SyncLayer) TailLen() int { return 0 }

func (l *SyncLayer) Write(buf []byte, _ Message, next WriteFunc) ([]byte, error) {
	return next(append(buf, l.Prefix...))
}

func (l *SyncLayer) Read(data []byte, st *ReadState, next ReadFunc) (int, error) {
	n := len(l.Prefix)
	if len(data) < n {
		if !bytes.Equal(data, l.Prefix[:len(data)]) {
			return 0, fmt.Errorf("%w: got % x", ErrSync, data)
		}
		return 0, truncated("sync prefix", n, len(data))
	}
	if !bytes.Equal(data[:n], l.Prefix) {
		return 0, fmt.Errorf("%w: got % x, want % x", ErrSync, data[:n], l.Prefix)
	}
	c, err := next(data[n:], st)
	if err != nil {
		return 0, err
	}
	return n + c, nil
}

// SizeLayer writes the byte count of everything it wraps.
type SizeLayer struct {
	Width int
	Order ByteOrder
}

func (l *SizeLayer) Name() string { return "size" }
func (l *SizeLayer) HeadLen() int { return l.Width }
func (l *SizeLayer) TailLen() int { return 0 }

// maxSpan bounds a declared size so that adding the heads and tails of the
// other layers cannot overflow int.
const maxSpan = math.MaxInt >> 2

func (l *SizeLayer) limit() int {
	if l.Width >= 8 {
		return int(^uint(0) >> 1)
	}
	return 1<<(8*l.Width) - 1
}

func (l *SizeLayer) Write(buf []byte, _ Message, next WriteFunc) ([]byte, error) {
	start := len(buf)
	buf = append(buf, make([]byte, l.Width)...)
	buf, err := next(buf)
	if err != nil {
		return nil, err
	}
	size := len(buf) - start - l.Width
	if size > l.limit() {
		return nil, &LengthError{Declared: size, Limit: l.limit(), Reason: "does not fit size field"}
	}
	l.Order.putUint(buf[start:], uint64(size), l.Width)
	return buf, nil
}

func (l *SizeLayer) Read(data []byte, st *ReadState, next ReadFunc) (int, error) {
	w := l.Width
	if len(data) < w {
		return 0, truncated("size field", w, len(data))
	}
	raw := l.Order.uint(data, w)
	if st.maxFrame > 0 && raw > uint64(st.maxFrame) {
		return 0, &LengthError{Declared: int(min(raw, uint64(l.limit()))), Limit: st.maxFrame, Reason: "exceeds maximum frame size"}
	}
	if raw > maxSpan {
		return 0, &LengthError{Declared: int(min(raw, uint64(l.limit()))), Limit: maxSpan, Reason: "exceeds addressable size"}
	}
	size := int(raw)
	if len(data)-w < size {
		return 0, truncated("frame body", size, len(data)-w)
	}
	st.Bound(w + size)

	c, err := next(data[w:w+size], st)
	if err != nil {
		if errors.Is(err, ErrTruncated) {
			return 0, &LengthError{Declared: size, Limit: size, Reason: "wrapped data is longer than declared: " + err.Error()}
		}
		return 0, err
	}
	if c != size {
		return 0, &LengthError{Declared: size, Limit: c, Reason: "wrapped data is shorter than declared"}
	}
	return w + size, nil
}

// IDLayer carries the message kind identifier.
type IDLayer struct {
	Width int
	Order ByteOrder
}

func (l *IDLayer) Name() string { return "id" }
func (l *IDLayer) HeadLen() int { return l.Width }
func (l *IDLayer) TailLen() int { return 0 }

func (l *IDLayer) Write(buf []byte, msg Message, next WriteFunc) ([]byte, error) {
	id := uint64(msg.ID())
	if l.Width < 8 && id >= 1<<(8*l.Width) {
		return nil, &RangeError{Field: "id", Value: fmt.Sprint(id), Min: "0", Max: fmt.Sprint(uint64(1)<<(8*l.Width) - 1)}
	}
	start := len(buf)
	buf = append(buf, make([]byte, l.Width)...)
	l.Order.putUint(buf[start:], id, l.Width)
	return next(buf)
}

func (l *IDLayer) Read(data []byte, st *ReadState, next ReadFunc) (int, error) {
	if len(data) < l.Width {
		return 0, truncated("message id", l.Width, len(data))
	}
	st.SetID(MsgID(l.Order.uint(data, l.Width)))
	c, err := next(data[l.Width:], st)
	if err != nil {
		return 0, err
	}
	return l.Width + c, nil
}

// PayloadLayer holds the message body. It must be the innermost layer.
type PayloadLayer struct{}

func (l *PayloadLayer) Name() string { return "payload" }
func (l *PayloadLayer) HeadLen() int { return 0 }
func (l *PayloadLayer) TailLen() int { return 0 }

// Write appends the body. An *UnknownMessage is written back as its raw payload.
func (l *PayloadLayer) Write(buf []byte, msg Message, _ WriteFunc) ([]byte, error) {
	if u, ok := msg.(*UnknownMessage); ok {
		return append(buf, u.Payload...), nil
	}
	return EncodeBody(buf, msg), nil
}

// Read decodes the body. An unknown message keeps the raw bytes: the bounded
// region when a size layer is present, otherwise everything that remains
// except the fixed tails of the outer layers.
func (l *PayloadLayer) Read(data []byte, st *ReadState, _ ReadFunc) (int, error) {
	msg := st.Message()
	if msg == nil {
		return 0, fmt.Errorf("%w: payload read before message id", ErrInvalidFrame)
	}
	if u, ok := msg.(*UnknownMessage); ok {
		keep := len(data)
		if !st.Bounded() {
			keep = max(keep-st.tails[st.depth], 0)
		}
		u.Payload = append([]byte(nil), data[:keep]...)
		return keep, nil
	}
	n, err := DecodeBody(data, msg)
	if err != nil {
		return 0, err
	}
	if st.Bounded() {
		return len(data), nil
	}
	return n, nil
}

// ChecksumLayer appends a digest of everything it wraps.
type ChecksumLayer struct {
	Alg   ChecksumAlg
	Order ByteOrder
}

func (l *ChecksumLayer) Name() string { return "checksum" }
func (l *ChecksumLayer) HeadLen() int { return 0 }
func (l *ChecksumLayer) TailLen() int { return l.Alg.Width() }

func (l *ChecksumLayer) Write(buf []byte, _ Message, next WriteFunc) ([]byte, error) {
	start := len(buf)
	buf, err := next(buf)
	if err != nil {
		return nil, err
	}
	sum := l.Alg.Compute(buf[start:])
	at := len(buf)
	buf = append(buf, make([]byte, l.Alg.Width())...)
	l.Order.putUint(buf[at:], sum, l.Alg.Width())
	return buf, nil
}

// Read verifies the digest before decoding whenever the extent is already
// known. Otherwise the wrapped layers are read first to find it.
func (l *ChecksumLayer) Read(data []byte, st *ReadState, next ReadFunc) (int, error) {
	w := l.Alg.Width()
	if st.Bounded() {
		if len(data) < w {
			return 0, &LengthError{Declared: len(data), Limit: w, Reason: "no room for checksum"}
		}
		body := len(data) - w
		if err := l.verify(data[:body], data[body:]); err != nil {
			return 0, err
		}
		c, err := next(data[:body], st)
		if err != nil {
			return 0, err
		}
		return c + w, nil
	}

	depth := st.depth
	c, err := next(data, st)
	if err != nil {
		// A bound found further in locates the digest even if the body is bad;
		// report corruption in preference to the decode error it caused.
		if st.Bounded() && !errors.Is(err, ErrTruncated) {
			span := st.extent - st.heads[depth] - st.tails[depth] - w
			if span >= 0 && span+w <= len(data) {
				if cerr := l.verify(data[:span], data[span:span+w]); cerr != nil {
					return 0, cerr
				}
			}
		}
		return 0, err
	}
	if len(data)-c < w {
		return 0, truncated("checksum", w, len(data)-c)
	}
	if err := l.verify(data[:c], data[c:c+w]); err != nil {
		return 0, err
	}
	return c + w, nil
}

func (l *ChecksumLayer) verify(body, digest []byte) error {
	want := l.Alg.Compute(body)
	got := l.Order.uint(digest, l.Alg.Width())
	if got != want {
		return &ChecksumError{Alg: l.Alg, Expected: want, Actual: got}
	}
	return nil
}
