// Package sample is a small protocol built on package protocol: three
// message kinds, one of them carrying a composite date field, and the frame
// that carries them.
package sample

import "github.com/muurk/commsframe/internal/protocol"

// Message ids.
const (
	IDMsg1 protocol.MsgID = 1
	IDMsg2 protocol.MsgID = 2
	IDMsg3 protocol.MsgID = 3
)

// Status values of Msg3.
const (
	StatusIdle    uint8 = 0
	StatusRunning uint8 = 1
	StatusFault   uint8 = 2
)

// Msg1 reports a sample counter and a temperature in tenths of a degree.
type Msg1 struct {
	counter     protocol.Int[uint32]
	temperature protocol.Int[int16]
}

// NewMsg1 returns a Msg1 with default field values.
func NewMsg1() *Msg1 {
	return &Msg1{
		counter: protocol.NewInt(protocol.IntDef[uint32]{
			Name:   "counter",
			Length: 4,
		}),
		temperature: protocol.NewInt(protocol.IntDef[int16]{
			Name:     "temperature",
			Length:   2,
			Min:      -400,
			Max:      1250,
			Ranged:   true,
			ScaleNum: 1,
			ScaleDen: 10,
		}),
	}
}

func (m *Msg1) ID() protocol.MsgID { return IDMsg1 }
func (m *Msg1) Name() string       { return "Msg1" }

func (m *Msg1) Fields() []protocol.Field {
	return []protocol.Field{&m.counter, &m.temperature}
}

func (m *Msg1) FieldCounter() *protocol.Int[uint32]   { return &m.counter }
func (m *Msg1) FieldTemperature() *protocol.Int[int16] { return &m.temperature }

func (m *Msg1) String() string { return protocol.FormatMessage(m) }

// Msg2 carries a single date.
type Msg2 struct {
	f1 Msg2F1
}

// NewMsg2 returns a Msg2 with default field values.
func NewMsg2() *Msg2 {
	return &Msg2{f1: NewMsg2F1()}
}

func (m *Msg2) ID() protocol.MsgID { return IDMsg2 }
func (m *Msg2) Name() string       { return "Msg2" }

func (m *Msg2) Fields() []protocol.Field {
	return []protocol.Field{&m.f1}
}

func (m *Msg2) FieldF1() *Msg2F1 { return &m.f1 }

func (m *Msg2) String() string { return protocol.FormatMessage(m) }

// Msg2F1 is a calendar date. The year is sent as one signed byte relative
// to 2000.
type Msg2F1 struct {
	year  protocol.Int[int16]
	month protocol.Int[uint8]
	day   protocol.Int[uint8]
}

// NewMsg2F1 returns the date 2000-01-01.
func NewMsg2F1() Msg2F1 {
	return Msg2F1{
		year: protocol.NewInt(protocol.IntDef[int16]{
			Name:      "year",
			Length:    1,
			SerOffset: -2000,
			Default:   2000,
			Min:       2000,
			Max:       2127,
			Ranged:    true,
		}),
		month: protocol.NewInt(protocol.IntDef[uint8]{
			Name:    "month",
			Default: 1,
			Min:     1,
			Max:     12,
			Ranged:  true,
		}),
		day: protocol.NewInt(protocol.IntDef[uint8]{
			Name:    "day",
			Default: 1,
			Min:     1,
			Max:     31,
			Ranged:  true,
		}),
	}
}

func (f *Msg2F1) FieldYear() *protocol.Int[int16]  { return &f.year }
func (f *Msg2F1) FieldMonth() *protocol.Int[uint8] { return &f.month }
func (f *Msg2F1) FieldDay() *protocol.Int[uint8]   { return &f.day }

func (f *Msg2F1) Members() []protocol.Field {
	return []protocol.Field{&f.year, &f.month, &f.day}
}

func (f *Msg2F1) Name() string { return "f1" }
func (f *Msg2F1) Length() int  { return protocol.MembersLength(f.Members()...) }
func (f *Msg2F1) Valid() bool  { return protocol.MembersValid(f.Members()...) }

func (f *Msg2F1) Encode(buf []byte) []byte {
	return protocol.EncodeMembers(buf, f.Members()...)
}

func (f *Msg2F1) Decode(data []byte, off int) (int, error) {
	return protocol.DecodeMembers(data, off, f.Members()...)
}

func (f *Msg2F1) Equal(other protocol.Field) bool {
	o, ok := other.(*Msg2F1)
	return ok && protocol.MembersEqual(f.Members(), o.Members())
}

func (f *Msg2F1) String() string {
	return "f1={" + f.year.String() + ", " + f.month.String() + ", " + f.day.String() + "}"
}

// Msg3 reports a device status with a free-form label.
type Msg3 struct {
	status protocol.Enum[uint8]
	label  protocol.String
}

// NewMsg3 returns a Msg3 with default field values.
func NewMsg3() *Msg3 {
	return &Msg3{
		status: protocol.NewEnum(protocol.EnumDef[uint8]{
			Name:    "status",
			Default: StatusIdle,
			Values: []protocol.EnumValue[uint8]{
				{Value: StatusIdle, Name: "Idle"},
				{Value: StatusRunning, Name: "Running"},
				{Value: StatusFault, Name: "Fault"},
			},
		}),
		label: protocol.NewString(protocol.StringDef{
			Name:         "label",
			PrefixLength: 1,
			MaxLen:       32,
		}),
	}
}

func (m *Msg3) ID() protocol.MsgID { return IDMsg3 }
func (m *Msg3) Name() string       { return "Msg3" }

func (m *Msg3) Fields() []protocol.Field {
	return []protocol.Field{&m.status, &m.label}
}

func (m *Msg3) FieldStatus() *protocol.Enum[uint8] { return &m.status }
func (m *Msg3) FieldLabel() *protocol.String       { return &m.label }

func (m *Msg3) String() string { return protocol.FormatMessage(m) }

// EqMsg1 reports whether a and b hold the same field values.
func EqMsg1(a, b *Msg1) bool { return protocol.MembersEqual(a.Fields(), b.Fields()) }

// EqMsg2 reports whether a and b hold the same field values.
func EqMsg2(a, b *Msg2) bool { return protocol.MembersEqual(a.Fields(), b.Fields()) }

// EqMsg3 reports whether a and b hold the same field values.
func EqMsg3(a, b *Msg3) bool { return protocol.MembersEqual(a.Fields(), b.Fields()) }
