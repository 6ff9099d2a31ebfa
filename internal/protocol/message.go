package protocol

import (
	"fmt"
	"sort"
	"strings"
)

// MsgID is the numeric kind identifier of a message. It is stable for the
// lifetime of a protocol.
type MsgID uint64

// Message is an ordered, named collection of fields with a kind identifier.
// Fields returns pointers into the message value in schema order.
type Message interface {
	ID() MsgID
	Name() string
	Fields() []Field
}

// EncodeBody appends every field of msg in schema order.
func EncodeBody(buf []byte, msg Message) []byte {
	return EncodeMembers(buf, msg.Fields()...)
}

// DecodeBody populates msg from data and returns the number of bytes read.
// On failure msg is partially populated and must be discarded.
func DecodeBody(data []byte, msg Message) (int, error) {
	off := 0
	for _, f := range msg.Fields() {
		next, err := f.Decode(data, off)
		if err != nil {
			return off, fmt.Errorf("message %s: %w", msg.Name(), err)
		}
		off = next
	}
	return off, nil
}

// BodyLength is the encoded size of every field of msg.
func BodyLength(msg Message) int {
	return MembersLength(msg.Fields()...)
}

// FormatMessage renders msg as Name{field=value, ...}.
func FormatMessage(msg Message) string {
	fields := msg.Fields()
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%s{%s}", msg.Name(), strings.Join(parts, ", "))
}

// UnknownMessage is the placeholder built for an id the protocol does not
// define. It keeps the raw payload so nothing is lost.
type UnknownMessage struct {
	MessageID MsgID
	Payload   []byte
}

func (m *UnknownMessage) ID() MsgID { return m.MessageID }

func (m *UnknownMessage) Name() string { return "Unknown" }

func (m *UnknownMessage) Fields() []Field { return nil }

func (m *UnknownMessage) String() string {
	return fmt.Sprintf("Unknown{id=%d (0x%x), len=%d}", m.MessageID, uint64(m.MessageID), len(m.Payload))
}

// Factory creates default-constructed messages by id.
type Factory struct {
	ctors map[MsgID]func() Message
	names map[MsgID]string
}

// NewFactory returns an empty factory.
func NewFactory() *Factory {
	return &Factory{
		ctors: make(map[MsgID]func() Message),
		names: make(map[MsgID]string),
	}
}

// Register adds a constructor. The id and name are taken from a sample
// instance so they cannot drift from the message type.
func (f *Factory) Register(ctor func() Message) error {
	m := ctor()
	id := m.ID()
	if _, exists := f.ctors[id]; exists {
		return fmt.Errorf("%w: %d (%s)", ErrDuplicateID, id, m.Name())
	}
	f.ctors[id] = ctor
	f.names[id] = m.Name()
	return nil
}

// MustRegister is Register for package initialization.
func (f *Factory) MustRegister(ctors ...func() Message) *Factory {
	for _, c := range ctors {
		if err := f.Register(c); err != nil {
			panic(err)
		}
	}
	return f
}

// Create returns a new message for id, or an *UnknownMessage placeholder.
// The bool reports whether the id is known.
func (f *Factory) Create(id MsgID) (Message, bool) {
	if ctor, ok := f.ctors[id]; ok {
		return ctor(), true
	}
	return &UnknownMessage{MessageID: id}, false
}

// Known reports whether id has a registered constructor.
func (f *Factory) Known(id MsgID) bool {
	_, ok := f.ctors[id]
	return ok
}

// IDs lists the registered ids in ascending order.
func (f *Factory) IDs() []MsgID {
	ids := make([]MsgID, 0, len(f.ctors))
	for id := range f.ctors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NameOf returns a human-readable name for a message id.
func (f *Factory) NameOf(id MsgID) string {
	if name, ok := f.names[id]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%02x)", uint64(id))
}
