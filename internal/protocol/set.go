package protocol

import (
	"fmt"
	"strings"
)

// NamedBit names one bit of a set field. Index 0 is the least significant bit.
type NamedBit struct {
	Index uint
	Name  string
}

// SetDef describes a set of named flags packed into an unsigned integer.
// Bits that are not named are reserved and must be zero.
type SetDef struct {
	Name    string
	Length  int
	Order   ByteOrder
	Bits    []NamedBit
	Default uint64
}

type setDef struct {
	SetDef
	index    map[string]uint
	reserved uint64
}

// Set is a bitmask field with named bits.
type Set struct {
	def   *setDef
	value uint64
}

// NewSet builds a set field at its default value.
func NewSet(d SetDef) Set {
	if d.Length == 0 {
		d.Length = 1
	}
	if d.Length < 1 || d.Length > 8 {
		panic(fmt.Sprintf("protocol: field %q: invalid length %d", d.Name, d.Length))
	}
	def := &setDef{SetDef: d, index: make(map[string]uint, len(d.Bits)), reserved: widthMask(d.Length)}
	for _, b := range d.Bits {
		if b.Index >= uint(8*d.Length) {
			panic(fmt.Sprintf("protocol: field %q: bit %s index %d beyond %d bytes", d.Name, b.Name, b.Index, d.Length))
		}
		if _, dup := def.index[b.Name]; dup || def.reserved&(1<<b.Index) == 0 {
			panic(fmt.Sprintf("protocol: field %q: duplicate bit %s", d.Name, b.Name))
		}
		def.index[b.Name] = b.Index
		def.reserved &^= 1 << b.Index
	}
	if d.Default&^widthMask(d.Length) != 0 || d.Default&def.reserved != 0 {
		panic(fmt.Sprintf("protocol: field %q: default 0x%x sets reserved bits", d.Name, d.Default))
	}
	return Set{def: def, value: d.Default}
}

func widthMask(n int) uint64 {
	if n >= 8 {
		return ^uint64(0)
	}
	return 1<<(8*n) - 1
}

func (s *Set) Name() string { return s.def.Name }

func (s *Set) Length() int { return s.def.Length }

// Value returns the raw bitmask.
func (s *Set) Value() uint64 { return s.value }

// SetValue stores a raw bitmask, rejecting reserved bits.
func (s *Set) SetValue(v uint64) error {
	if !s.allowed(v) {
		return s.reservedError(v)
	}
	s.value = v
	return nil
}

// Bit reports whether the named bit is set. Unknown names report false.
func (s *Set) Bit(name string) bool {
	i, ok := s.def.index[name]
	return ok && s.value&(1<<i) != 0
}

// SetBit sets or clears the named bit.
func (s *Set) SetBit(name string, on bool) error {
	i, ok := s.def.index[name]
	if !ok {
		return &RangeError{Field: s.def.Name, Value: fmt.Sprintf("bit %q", name)}
	}
	if on {
		s.value |= 1 << i
	} else {
		s.value &^= 1 << i
	}
	return nil
}

// Names lists the set bits in index order.
func (s *Set) Names() []string {
	var out []string
	for i := range uint(8 * s.def.Length) {
		if s.value&(1<<i) == 0 {
			continue
		}
		for _, b := range s.def.Bits {
			if b.Index == i {
				out = append(out, b.Name)
			}
		}
	}
	return out
}

func (s *Set) Valid() bool { return s.allowed(s.value) }

func (s *Set) allowed(v uint64) bool {
	return v&^widthMask(s.def.Length) == 0 && v&s.def.reserved == 0
}

func (s *Set) Encode(buf []byte) []byte {
	start := len(buf)
	buf = append(buf, make([]byte, s.def.Length)...)
	s.def.Order.putUint(buf[start:], s.value, s.def.Length)
	return buf
}

func (s *Set) Decode(data []byte, off int) (int, error) {
	n := s.def.Length
	if off < 0 || len(data)-off < n {
		return off, truncated("field "+s.def.Name, n, max(len(data)-off, 0))
	}
	v := s.def.Order.uint(data[off:], n)
	if !s.allowed(v) {
		return off, s.reservedError(v)
	}
	s.value = v
	return off + n, nil
}

func (s *Set) Equal(other Field) bool {
	o, ok := other.(*Set)
	return ok && o.value == s.value
}

func (s *Set) String() string {
	return fmt.Sprintf("%s=0x%x[%s]", s.def.Name, s.value, strings.Join(s.Names(), "|"))
}

func (s *Set) reservedError(v uint64) error {
	return &RangeError{Field: s.def.Name, Value: fmt.Sprintf("0x%x (reserved 0x%x)", v, v&(s.def.reserved|^widthMask(s.def.Length)))}
}
