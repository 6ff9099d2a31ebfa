package sample

import (
	"bytes"
	"errors"
	"testing"

	"github.com/maxatome/go-testdeep/td"
	"github.com/muurk/commsframe/internal/protocol"
)

// recordingHandler implements every typed handler and counts fallbacks.
type recordingHandler struct {
	msg1     []*Msg1
	msg2     []*Msg2
	msg3     []*Msg3
	fallback []protocol.Message
}

func (h *recordingHandler) HandleMsg1(m *Msg1) { h.msg1 = append(h.msg1, m) }
func (h *recordingHandler) HandleMsg2(m *Msg2) { h.msg2 = append(h.msg2, m) }
func (h *recordingHandler) HandleMsg3(m *Msg3) { h.msg3 = append(h.msg3, m) }
func (h *recordingHandler) HandleMessage(m protocol.Message) { h.fallback = append(h.fallback, m) }

// msg2Only handles Msg2 and leaves everything else to the fallback.
type msg2Only struct {
	msg2     int
	fallback []protocol.Message
}

func (h *msg2Only) HandleMsg2(*Msg2) { h.msg2++ }
func (h *msg2Only) HandleMessage(m protocol.Message) { h.fallback = append(h.fallback, m) }

func newDate(t *testing.T, year int16, month, day uint8) *Msg2 {
	t.Helper()
	m := NewMsg2()
	f1 := m.FieldF1()
	if err := f1.FieldYear().SetValue(year); err != nil {
		t.Fatal(err)
	}
	if err := f1.FieldMonth().SetValue(month); err != nil {
		t.Fatal(err)
	}
	if err := f1.FieldDay().SetValue(day); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestMsg2EndToEnd(t *testing.T) {
	m := newDate(t, 2127, 1, 10)

	frame := NewFrame()
	buf, err := frame.WriteMessage(m)
	if err != nil {
		t.Fatalf("WriteMessage() error: %v", err)
	}

	h := &recordingHandler{}
	n, err := frame.ProcessInputData(buf, h)
	if err != nil {
		t.Fatalf("ProcessInputData() error: %v", err)
	}
	td.Cmp(t, n, len(buf))

	if len(h.fallback) != 0 {
		t.Errorf("fallback called %d times: %v", len(h.fallback), h.fallback)
	}
	if len(h.msg2) != 1 {
		t.Fatalf("HandleMsg2 called %d times, want 1", len(h.msg2))
	}
	if !EqMsg2(h.msg2[0], m) {
		t.Errorf("decoded %s, want %s", h.msg2[0], m)
	}

	got := h.msg2[0].FieldF1()
	td.Cmp(t, got.FieldYear().Value(), int16(2127))
	td.Cmp(t, got.FieldMonth().Value(), uint8(1))
	td.Cmp(t, got.FieldDay().Value(), uint8(10))
}

func TestMsg2WireFormat(t *testing.T) {
	buf, err := NewFrame().WriteMessage(newDate(t, 2127, 1, 10))
	if err != nil {
		t.Fatal(err)
	}
	// sync, size 4, id 2, year 127, month 1, day 10, crc
	td.Cmp(t, buf[:8], []byte{0xab, 0xcd, 0x00, 0x04, 0x02, 0x7f, 0x01, 0x0a})
	td.Cmp(t, len(buf), 10)
}

func TestRoundTripAllMessages(t *testing.T) {
	m1 := NewMsg1()
	_ = m1.FieldCounter().SetValue(123456)
	_ = m1.FieldTemperature().SetScaled(-12.5)

	m2 := newDate(t, 2024, 2, 29)

	m3 := NewMsg3()
	_ = m3.FieldStatus().SetValue(StatusFault)
	_ = m3.FieldLabel().SetValue("pump 2")

	frame := NewFrame()
	var data []byte
	for _, m := range []protocol.Message{m1, m2, m3} {
		buf, err := frame.WriteMessage(m)
		if err != nil {
			t.Fatalf("WriteMessage(%s) error: %v", m.Name(), err)
		}
		again, _ := frame.WriteMessage(m)
		if !bytes.Equal(buf, again) {
			t.Errorf("%s: encoding differs between calls", m.Name())
		}
		data = append(data, buf...)
	}

	h := &recordingHandler{}
	n, err := frame.ProcessInputData(data, h)
	if err != nil {
		t.Fatal(err)
	}
	td.Cmp(t, n, len(data))
	td.Cmp(t, len(h.fallback), 0)

	td.CmpTrue(t, len(h.msg1) == 1 && EqMsg1(h.msg1[0], m1), "Msg1 round trip")
	td.CmpTrue(t, len(h.msg2) == 1 && EqMsg2(h.msg2[0], m2), "Msg2 round trip")
	td.CmpTrue(t, len(h.msg3) == 1 && EqMsg3(h.msg3[0], m3), "Msg3 round trip")
	td.Cmp(t, h.msg3[0].FieldStatus().ValueName(), "Fault")
	td.Cmp(t, h.msg1[0].FieldTemperature().Value(), int16(-125))
}

func TestDispatchFallback(t *testing.T) {
	frame := NewFrame()
	var data []byte
	for _, m := range []protocol.Message{
		NewMsg1(),
		NewMsg2(),
		&protocol.UnknownMessage{MessageID: 0x55, Payload: []byte{0xde, 0xad}},
	} {
		buf, err := frame.WriteMessage(m)
		if err != nil {
			t.Fatal(err)
		}
		data = append(data, buf...)
	}

	h := &msg2Only{}
	if _, err := frame.ProcessInputData(data, h); err != nil {
		t.Fatal(err)
	}
	td.Cmp(t, h.msg2, 1)
	if len(h.fallback) != 2 {
		t.Fatalf("fallback called %d times, want 2", len(h.fallback))
	}
	td.Cmp(t, h.fallback[0], td.Isa(&Msg1{}))
	td.Cmp(t, h.fallback[1], &protocol.UnknownMessage{MessageID: 0x55, Payload: []byte{0xde, 0xad}})
}

func TestYearRange(t *testing.T) {
	m := NewMsg2()
	year := m.FieldF1().FieldYear()
	td.Cmp(t, year.Value(), int16(2000))

	for _, bad := range []int16{1999, 2128} {
		if err := year.SetValue(bad); !errors.Is(err, protocol.ErrRange) {
			t.Errorf("SetValue(%d) error = %v, want ErrRange", bad, err)
		}
	}
	td.Cmp(t, year.Value(), int16(2000))
}

func TestCompositeDecodeIsAtomic(t *testing.T) {
	m := newDate(t, 2050, 6, 15)
	f1 := m.FieldF1()

	// month 13 is rejected after year already decoded
	_, err := f1.Decode([]byte{0x10, 0x0d, 0x01}, 0)
	if !errors.Is(err, protocol.ErrRange) {
		t.Fatalf("Decode() error = %v, want ErrRange", err)
	}
	td.Cmp(t, f1.FieldYear().Value(), int16(2050))
	td.Cmp(t, f1.FieldMonth().Value(), uint8(6))
	td.Cmp(t, f1.FieldDay().Value(), uint8(15))
	td.Cmp(t, f1.Length(), 3)
}

func TestEqualKinds(t *testing.T) {
	eq, err := protocol.Equal(newDate(t, 2001, 1, 1), newDate(t, 2001, 1, 1))
	td.CmpNoError(t, err)
	td.CmpTrue(t, eq)

	eq, err = protocol.Equal(newDate(t, 2001, 1, 1), newDate(t, 2001, 1, 2))
	td.CmpNoError(t, err)
	td.CmpFalse(t, eq)

	_, err = protocol.Equal(NewMsg1(), NewMsg2())
	td.CmpTrue(t, errors.Is(err, protocol.ErrKindMismatch))
}

func TestCorruptFrameNotDispatched(t *testing.T) {
	frame := NewFrame()
	buf, err := frame.WriteMessage(newDate(t, 2030, 3, 3))
	if err != nil {
		t.Fatal(err)
	}
	buf[6] ^= 0x01

	h := &recordingHandler{}
	_, err = frame.ProcessInputData(buf, h)
	td.CmpTrue(t, errors.Is(err, protocol.ErrChecksum))
	td.Cmp(t, len(h.msg2)+len(h.fallback), 0)
}

func TestFormatMessage(t *testing.T) {
	td.Cmp(t, newDate(t, 2127, 1, 10).String(), "Msg2{f1={year=2127, month=1, day=10}}")

	m3 := NewMsg3()
	_ = m3.FieldLabel().SetValue("ok")
	td.Cmp(t, m3.String(), `Msg3{status=Idle(0), label="ok"}`)
}
