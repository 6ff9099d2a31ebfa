package protocol

import (
	"fmt"
	"strings"
)

// BitMember is one sub-value of a bitfield.
type BitMember struct {
	Name    string
	Bits    uint
	Default uint64
}

// BitfieldDef describes several small unsigned values sharing one
// integer. Members are packed from the least significant bit upward and
// must fill exactly Length bytes.
type BitfieldDef struct {
	Name    string
	Length  int
	Order   ByteOrder
	Members []BitMember
}

// Bitfield packs its members into a single fixed width integer.
type Bitfield struct {
	def    *BitfieldDef
	values []uint64
}

// NewBitfield builds a bitfield with every member at its default.
func NewBitfield(d BitfieldDef) Bitfield {
	if d.Length < 1 || d.Length > 8 {
		panic(fmt.Sprintf("protocol: field %q: invalid length %d", d.Name, d.Length))
	}
	var total uint
	values := make([]uint64, len(d.Members))
	seen := make(map[string]bool, len(d.Members))
	for i, m := range d.Members {
		if m.Bits == 0 || seen[m.Name] {
			panic(fmt.Sprintf("protocol: field %q: bad member %q", d.Name, m.Name))
		}
		if m.Default > memberMask(m.Bits) {
			panic(fmt.Sprintf("protocol: field %q: member %s default %d needs more than %d bits", d.Name, m.Name, m.Default, m.Bits))
		}
		seen[m.Name] = true
		values[i] = m.Default
		total += m.Bits
	}
	if total != uint(8*d.Length) {
		panic(fmt.Sprintf("protocol: field %q: members cover %d bits, want %d", d.Name, total, 8*d.Length))
	}
	return Bitfield{def: &d, values: values}
}

func memberMask(bits uint) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return 1<<bits - 1
}

func (b *Bitfield) Name() string { return b.def.Name }

func (b *Bitfield) Length() int { return b.def.Length }

// Index returns the position of the named member, or -1.
func (b *Bitfield) Index(name string) int {
	for i, m := range b.def.Members {
		if m.Name == name {
			return i
		}
	}
	return -1
}

// Get returns member i.
func (b *Bitfield) Get(i int) uint64 { return b.values[i] }

// Set stores v in member i if it fits the member's width.
func (b *Bitfield) Set(i int, v uint64) error {
	m := b.def.Members[i]
	if v > memberMask(m.Bits) {
		return &RangeError{
			Field: b.def.Name + "." + m.Name,
			Value: fmt.Sprint(v),
			Min:   "0",
			Max:   fmt.Sprint(memberMask(m.Bits)),
		}
	}
	b.values[i] = v
	return nil
}

// Packed returns the combined integer as sent on the wire.
func (b *Bitfield) Packed() uint64 {
	var raw uint64
	var shift uint
	for i, m := range b.def.Members {
		raw |= b.values[i] << shift
		shift += m.Bits
	}
	return raw
}

func (b *Bitfield) Valid() bool {
	for i, m := range b.def.Members {
		if b.values[i] > memberMask(m.Bits) {
			return false
		}
	}
	return true
}

func (b *Bitfield) Encode(buf []byte) []byte {
	start := len(buf)
	buf = append(buf, make([]byte, b.def.Length)...)
	b.def.Order.putUint(buf[start:], b.Packed(), b.def.Length)
	return buf
}

// Decode never fails on content since every bit pattern is valid.
func (b *Bitfield) Decode(data []byte, off int) (int, error) {
	n := b.def.Length
	if off < 0 || len(data)-off < n {
		return off, truncated("field "+b.def.Name, n, max(len(data)-off, 0))
	}
	raw := b.def.Order.uint(data[off:], n)
	for i, m := range b.def.Members {
		b.values[i] = raw & memberMask(m.Bits)
		raw >>= m.Bits % 64
	}
	return off + n, nil
}

func (b *Bitfield) Equal(other Field) bool {
	o, ok := other.(*Bitfield)
	if !ok || len(o.values) != len(b.values) {
		return false
	}
	for i := range b.values {
		if o.values[i] != b.values[i] {
			return false
		}
	}
	return true
}

func (b *Bitfield) String() string {
	parts := make([]string, len(b.values))
	for i, m := range b.def.Members {
		parts[i] = fmt.Sprintf("%s=%d", m.Name, b.values[i])
	}
	return fmt.Sprintf("%s={%s}", b.def.Name, strings.Join(parts, ", "))
}
