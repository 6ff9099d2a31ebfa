package protocol

import (
	"errors"
	"testing"

	"github.com/maxatome/go-testdeep/td"
)

var frameLayouts = []struct {
	name   string
	layers func() []Layer
}{
	{
		name: "sync size checksum id payload",
		layers: func() []Layer {
			return []Layer{
				&SyncLayer{Prefix: []byte{0xab, 0xcd}},
				&SizeLayer{Width: 2},
				&ChecksumLayer{Alg: CRC16CCITT},
				&IDLayer{Width: 1},
				&PayloadLayer{},
			}
		},
	},
	{
		name: "sync checksum id payload",
		layers: func() []Layer {
			return []Layer{
				&SyncLayer{Prefix: []byte{0xab, 0xcd}},
				&ChecksumLayer{Alg: CRC16CCITT},
				&IDLayer{Width: 1},
				&PayloadLayer{},
			}
		},
	},
	{name: "sync checksum size id payload", layers: testLayers},
	{
		name: "id payload",
		layers: func() []Layer {
			return []Layer{&IDLayer{Width: 1}, &PayloadLayer{}}
		},
	},
}

func newLayoutFrame(t *testing.T, layers []Layer, opts ...Option) *Frame {
	t.Helper()
	f, err := NewFrame("layout", testFactory, layers, opts...)
	if err != nil {
		t.Fatalf("NewFrame() error: %v", err)
	}
	return f
}

func TestFrameLayouts(t *testing.T) {
	for _, tt := range frameLayouts {
		t.Run(tt.name, func(t *testing.T) {
			f := newLayoutFrame(t, tt.layers())

			t.Run("round trip", func(t *testing.T) {
				buf := encodeTest(t, f, 0xbeef, 42)
				rec := &recorder{}
				n, err := f.ProcessInputData(buf, rec)
				if err != nil {
					t.Fatalf("ProcessInputData() error: %v", err)
				}
				td.Cmp(t, n, len(buf))
				if len(rec.msgs) != 1 {
					t.Fatalf("handler called %d times, want 1", len(rec.msgs))
				}
				m := rec.msgs[0].(*testMsg)
				td.Cmp(t, m.a.Value(), uint16(0xbeef))
				td.Cmp(t, m.b.Value(), uint8(42))
			})

			t.Run("truncated", func(t *testing.T) {
				buf := encodeTest(t, f, 1, 2)
				for cut := 1; cut < len(buf); cut++ {
					rec := &recorder{}
					n, err := f.ProcessInputData(buf[:cut], rec)
					if n != 0 || !errors.Is(err, ErrTruncated) || len(rec.msgs) != 0 {
						t.Errorf("cut %d: n=%d calls=%d err=%v, want 0, 0, ErrTruncated",
							cut, n, len(rec.msgs), err)
					}
				}
			})

			t.Run("unknown id", func(t *testing.T) {
				unknown := &UnknownMessage{MessageID: 0x77, Payload: []byte{1, 2, 3}}
				buf, err := f.WriteMessage(unknown)
				if err != nil {
					t.Fatal(err)
				}
				rec := &recorder{}
				n, err := f.ProcessInputData(buf, rec)
				if err != nil {
					t.Fatalf("ProcessInputData() error: %v", err)
				}
				td.Cmp(t, n, len(buf))
				td.Cmp(t, rec.msgs, []Message{unknown})
			})
		})
	}
}

func TestUnknownPayloadLeavesTrailingChecksum(t *testing.T) {
	f := newLayoutFrame(t, []Layer{
		&SyncLayer{Prefix: []byte{0xab}},
		&ChecksumLayer{Alg: Sum8},
		&IDLayer{Width: 1},
		&PayloadLayer{},
	})
	buf, err := f.WriteMessage(&UnknownMessage{MessageID: 0x77, Payload: []byte{1, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	td.Cmp(t, buf, []byte{0xab, 0x77, 0x01, 0x02, 0x03, 0x7d})

	msg, n, err := f.ReadMessage(buf)
	if err != nil {
		t.Fatalf("ReadMessage() error: %v", err)
	}
	td.Cmp(t, n, 6)
	td.Cmp(t, msg, &UnknownMessage{MessageID: 0x77, Payload: []byte{1, 2, 3}})

	buf[len(buf)-1] ^= 0x01
	if _, _, err := f.ReadMessage(buf); !errors.Is(err, ErrChecksum) {
		t.Errorf("corrupt digest: error = %v, want ErrChecksum", err)
	}
}

func TestChecksumInsideSizeVerifiedBeforeDecode(t *testing.T) {
	f := newLayoutFrame(t, frameLayouts[0].layers())
	bad := encodeTest(t, f, 5, 5)
	// b is limited to 100; the digest must be rejected before b is decoded.
	bad[7] = 0xff
	good := encodeTest(t, f, 6, 6)

	rec := &recorder{}
	n, err := f.ProcessInputData(append(append([]byte{}, bad...), good...), rec)
	td.Cmp(t, n, len(bad)+len(good))
	td.Cmp(t, len(rec.msgs), 1)
	if !errors.Is(err, ErrChecksum) {
		t.Fatalf("error = %v, want ErrChecksum", err)
	}
	if errors.Is(err, ErrRange) {
		t.Errorf("body was decoded before the checksum was verified: %v", err)
	}
	var fe *FrameError
	if !errors.As(err, &fe) {
		t.Fatalf("error %T does not contain *FrameError", err)
	}
	td.Cmp(t, fe, td.Struct(&FrameError{Offset: 0, Layer: "checksum"}, nil))
}

func TestSkipFrameWaitsForWholeCorruptFrame(t *testing.T) {
	f := newTestFrame(t)
	buf := encodeTest(t, f, 5, 5)
	buf[7] = 0xff

	rec := &recorder{}
	n, err := f.ProcessInputData(buf[:len(buf)-1], rec)
	td.Cmp(t, n, 0)
	td.Cmp(t, len(rec.msgs), 0)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("partial corrupt frame: error = %v, want ErrTruncated", err)
	}
	var te *TruncatedError
	if errors.As(err, &te) {
		td.Cmp(t, te, td.Struct(&TruncatedError{Needed: len(buf), Available: len(buf) - 1}, nil))
	}

	n, err = f.ProcessInputData(buf, rec)
	td.Cmp(t, n, len(buf))
	td.Cmp(t, len(rec.msgs), 0)
	if !errors.Is(err, ErrChecksum) {
		t.Errorf("whole corrupt frame: error = %v, want ErrChecksum", err)
	}
}

func TestSizeLayerHugeDeclaredSize(t *testing.T) {
	f := newLayoutFrame(t, []Layer{
		&SizeLayer{Width: 8},
		&IDLayer{Width: 1},
		&PayloadLayer{},
	})

	tests := []struct {
		name string
		data []byte
	}{
		{"top bit set", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xf0, 0x10, 0x01, 0x02, 0x03}},
		{"max int", []byte{0x7f, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x10, 0x01, 0x02, 0x03}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			var (
				n   int
				err error
			)
			td.CmpNotPanic(t, func() { n, err = f.ProcessInputData(tt.data, rec) })
			td.Cmp(t, n, 0)
			td.Cmp(t, len(rec.msgs), 0)
			if !errors.Is(err, ErrLength) {
				t.Errorf("error = %v, want ErrLength", err)
			}
		})
	}

	t.Run("round trip", func(t *testing.T) {
		buf := encodeTest(t, f, 0x0102, 3)
		td.Cmp(t, buf[:8], []byte{0, 0, 0, 0, 0, 0, 0, 4})
		msg, n, err := f.ReadMessage(buf)
		if err != nil {
			t.Fatal(err)
		}
		td.Cmp(t, n, len(buf))
		td.Cmp(t, msg.(*testMsg).a.Value(), uint16(0x0102))
	})
}

// xorLayer scrambles everything it wraps with a one byte key.
type xorLayer struct {
	key byte
}

func (l *xorLayer) Name() string { return "xor" }
func (l *xorLayer) HeadLen() int { return 0 }
func (l *xorLayer) TailLen() int { return 0 }

func (l *xorLayer) Write(buf []byte, _ Message, next WriteFunc) ([]byte, error) {
	start := len(buf)
	buf, err := next(buf)
	if err != nil {
		return nil, err
	}
	for i := start; i < len(buf); i++ {
		buf[i] ^= l.key
	}
	return buf, nil
}

func (l *xorLayer) Read(data []byte, st *ReadState, next ReadFunc) (int, error) {
	plain := make([]byte, len(data))
	for i, b := range data {
		plain[i] = b ^ l.key
	}
	return next(plain, st)
}

func TestCustomLayer(t *testing.T) {
	f := newLayoutFrame(t, []Layer{
		&SyncLayer{Prefix: []byte{0xab}},
		&xorLayer{key: 0x5a},
		&IDLayer{Width: 1},
		&PayloadLayer{},
	})
	buf := encodeTest(t, f, 0x1234, 9)
	td.Cmp(t, buf, []byte{0xab, 0x10 ^ 0x5a, 0x12 ^ 0x5a, 0x34 ^ 0x5a, 0x09 ^ 0x5a})

	rec := &recorder{}
	n, err := f.ProcessInputData(buf, rec)
	if err != nil {
		t.Fatal(err)
	}
	td.Cmp(t, n, len(buf))
	td.Cmp(t, len(rec.msgs), 1)
	td.Cmp(t, rec.msgs[0].(*testMsg).a.Value(), uint16(0x1234))
}
