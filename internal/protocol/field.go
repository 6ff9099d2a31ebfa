package protocol

// Field is one typed unit of a message payload.
//
// Every field has a fixed encoding determined by its definition. Encode
// appends exactly Length() bytes; Decode reads them starting at off and
// returns the advanced offset.
type Field interface {
	Name() string
	Length() int
	Valid() bool
	Encode(buf []byte) []byte
	Decode(data []byte, off int) (int, error)
	Equal(other Field) bool
	String() string
}

// Composite is a field made of ordered sub-fields. The member order is the
// wire order and the default construction order.
type Composite interface {
	Field
	Members() []Field
}

// Integer is the set of Go types an Int field can hold.
type Integer interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint
}

// ByteOrder selects the serialization order of multi-byte integers.
type ByteOrder uint8

const (
	BigEndian ByteOrder = iota
	LittleEndian
)

func (o ByteOrder) String() string {
	if o == LittleEndian {
		return "little-endian"
	}
	return "big-endian"
}

// putUint writes the low n bytes of v into b.
func (o ByteOrder) putUint(b []byte, v uint64, n int) {
	for i := 0; i < n; i++ {
		shift := uint(8 * i)
		if o == LittleEndian {
			b[i] = byte(v >> shift)
		} else {
			b[n-1-i] = byte(v >> shift)
		}
	}
}

// uint reads an n byte unsigned value from b.
func (o ByteOrder) uint(b []byte, n int) uint64 {
	var v uint64
	for i := 0; i < n; i++ {
		shift := uint(8 * i)
		if o == LittleEndian {
			v |= uint64(b[i]) << shift
		} else {
			v |= uint64(b[n-1-i]) << shift
		}
	}
	return v
}

// EncodeMembers appends the members in order.
func EncodeMembers(buf []byte, members ...Field) []byte {
	for _, m := range members {
		buf = m.Encode(buf)
	}
	return buf
}

// MembersLength is the sum of the member lengths.
func MembersLength(members ...Field) int {
	n := 0
	for _, m := range members {
		n += m.Length()
	}
	return n
}

// MembersValid reports whether every member holds a valid value.
func MembersValid(members ...Field) bool {
	for _, m := range members {
		if !m.Valid() {
			return false
		}
	}
	return true
}

// MembersEqual compares two member lists pairwise.
func MembersEqual(a, b []Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// DecodeMembers decodes the members in order starting at off. It is atomic:
// if any member fails, all members are restored to their previous values.
func DecodeMembers(data []byte, off int, members ...Field) (int, error) {
	prev := EncodeMembers(nil, members...)
	pos := off
	for _, m := range members {
		next, err := m.Decode(data, pos)
		if err != nil {
			restoreMembers(prev, members)
			return off, err
		}
		pos = next
	}
	return pos, nil
}

// restoreMembers replays an encoding produced by EncodeMembers.
func restoreMembers(prev []byte, members []Field) {
	pos := 0
	for _, m := range members {
		next, err := m.Decode(prev, pos)
		if err != nil {
			return
		}
		pos = next
	}
}
