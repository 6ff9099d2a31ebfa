package protocol

import "fmt"

// StringDef describes a length-prefixed string field.
type StringDef struct {
	Name string

	// PrefixLength is the width of the length prefix in bytes (1 or 2).
	PrefixLength int
	Order        ByteOrder

	// MaxLen caps the content length below what the prefix can express.
	MaxLen  int
	Default string
}

// String is a byte string preceded by its length.
type String struct {
	def   *StringDef
	value string
}

// NewString builds a string field at its default value.
func NewString(d StringDef) String {
	if d.PrefixLength == 0 {
		d.PrefixLength = 1
	}
	if d.PrefixLength != 1 && d.PrefixLength != 2 {
		panic(fmt.Sprintf("protocol: field %q: invalid prefix length %d", d.Name, d.PrefixLength))
	}
	limit := 1<<(8*d.PrefixLength) - 1
	if d.MaxLen == 0 || d.MaxLen > limit {
		d.MaxLen = limit
	}
	if len(d.Default) > d.MaxLen {
		panic(fmt.Sprintf("protocol: field %q: default longer than %d", d.Name, d.MaxLen))
	}
	return String{def: &d, value: d.Default}
}

func (s *String) Name() string { return s.def.Name }

func (s *String) Length() int { return s.def.PrefixLength + len(s.value) }

// Value returns the current content.
func (s *String) Value() string { return s.value }

// SetValue stores v, or returns a *RangeError if it is too long.
func (s *String) SetValue(v string) error {
	if len(v) > s.def.MaxLen {
		return s.tooLong(len(v))
	}
	s.value = v
	return nil
}

func (s *String) Valid() bool { return len(s.value) <= s.def.MaxLen }

func (s *String) Encode(buf []byte) []byte {
	start := len(buf)
	buf = append(buf, make([]byte, s.def.PrefixLength)...)
	s.def.Order.putUint(buf[start:], uint64(len(s.value)), s.def.PrefixLength)
	return append(buf, s.value...)
}

func (s *String) Decode(data []byte, off int) (int, error) {
	p := s.def.PrefixLength
	if off < 0 || len(data)-off < p {
		return off, truncated("field "+s.def.Name+" length", p, max(len(data)-off, 0))
	}
	n := int(s.def.Order.uint(data[off:], p))
	if n > s.def.MaxLen {
		return off, s.tooLong(n)
	}
	if len(data)-off-p < n {
		return off, truncated("field "+s.def.Name, n, len(data)-off-p)
	}
	s.value = string(data[off+p : off+p+n])
	return off + p + n, nil
}

func (s *String) Equal(other Field) bool {
	o, ok := other.(*String)
	return ok && o.value == s.value
}

func (s *String) String() string {
	return fmt.Sprintf("%s=%q", s.def.Name, s.value)
}

func (s *String) tooLong(n int) error {
	return &RangeError{
		Field: s.def.Name,
		Value: fmt.Sprintf("len %d", n),
		Min:   "len 0",
		Max:   fmt.Sprintf("len %d", s.def.MaxLen),
	}
}
