package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// ListDef describes a sequence of fields of one element type. Exactly one
// of CountPrefix, LengthPrefix and Count selects how the list is delimited.
type ListDef struct {
	Name string

	// Elem builds an element at its default value.
	Elem func() Field

	// CountPrefix is the width in bytes of a leading element count.
	CountPrefix int
	// LengthPrefix is the width in bytes of a leading byte length of all
	// elements together.
	LengthPrefix int
	// Count fixes the number of elements; nothing is written before them.
	Count int

	Order ByteOrder

	// MaxCount caps the element count for prefixed lists.
	MaxCount int
}

// List is a sequence of homogeneous elements. It is a Composite whose
// members are the current elements.
type List struct {
	def   *ListDef
	elems []Field
}

// NewList builds a list at its default value: Count default elements for a
// fixed list, otherwise empty.
func NewList(d ListDef) List {
	if d.Elem == nil {
		panic(fmt.Sprintf("protocol: field %q: no element constructor", d.Name))
	}
	modes := 0
	for _, set := range []bool{d.CountPrefix != 0, d.LengthPrefix != 0, d.Count != 0} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		panic(fmt.Sprintf("protocol: field %q: want exactly one of count prefix, length prefix or count", d.Name))
	}
	switch {
	case d.Count < 0:
		panic(fmt.Sprintf("protocol: field %q: invalid count %d", d.Name, d.Count))
	case d.CountPrefix != 0 && !validPrefix(d.CountPrefix):
		panic(fmt.Sprintf("protocol: field %q: invalid count prefix %d", d.Name, d.CountPrefix))
	case d.LengthPrefix != 0 && !validPrefix(d.LengthPrefix):
		panic(fmt.Sprintf("protocol: field %q: invalid length prefix %d", d.Name, d.LengthPrefix))
	}
	if d.Count > 0 {
		d.MaxCount = d.Count
	} else if d.CountPrefix > 0 {
		if limit := prefixLimit(d.CountPrefix); d.MaxCount <= 0 || d.MaxCount > limit {
			d.MaxCount = limit
		}
	}

	l := List{def: &d}
	for range d.Count {
		l.elems = append(l.elems, d.Elem())
	}
	return l
}

func (l *List) Name() string { return l.def.Name }

func (l *List) Length() int { return l.prefix() + MembersLength(l.elems...) }

func (l *List) prefix() int { return l.def.CountPrefix + l.def.LengthPrefix }

// Members returns the current elements.
func (l *List) Members() []Field { return l.elems }

// Len returns the number of elements.
func (l *List) Len() int { return len(l.elems) }

// At returns element i.
func (l *List) At(i int) Field { return l.elems[i] }

// Append adds a default element and returns it for the caller to fill in.
func (l *List) Append() (Field, error) {
	if l.def.Count > 0 || (l.def.MaxCount > 0 && len(l.elems) >= l.def.MaxCount) {
		return nil, l.countError(len(l.elems) + 1)
	}
	e := l.def.Elem()
	l.elems = append(l.elems, e)
	return e, nil
}

// Clear removes every element. Fixed lists are reset to defaults instead.
func (l *List) Clear() {
	l.elems = l.elems[:0]
	for range l.def.Count {
		l.elems = append(l.elems, l.def.Elem())
	}
}

func (l *List) Valid() bool {
	if l.def.MaxCount > 0 && len(l.elems) > l.def.MaxCount {
		return false
	}
	if l.def.Count > 0 && len(l.elems) != l.def.Count {
		return false
	}
	if p := l.def.LengthPrefix; p > 0 && MembersLength(l.elems...) > prefixLimit(p) {
		return false
	}
	return MembersValid(l.elems...)
}

func (l *List) Encode(buf []byte) []byte {
	if p := l.prefix(); p > 0 {
		n := len(l.elems)
		if l.def.LengthPrefix > 0 {
			n = MembersLength(l.elems...)
		}
		start := len(buf)
		buf = append(buf, make([]byte, p)...)
		l.def.Order.putUint(buf[start:], uint64(n), p)
	}
	return EncodeMembers(buf, l.elems...)
}

// Decode reads the list into fresh elements; the list is unchanged on error.
func (l *List) Decode(data []byte, off int) (int, error) {
	p := l.prefix()
	if off < 0 || len(data)-off < p {
		return off, truncated("field "+l.def.Name+" length", p, max(len(data)-off, 0))
	}
	var raw uint64
	if p > 0 {
		raw = l.def.Order.uint(data[off:], p)
	}
	pos := off + p

	var elems []Field
	switch {
	case l.def.LengthPrefix > 0:
		if uint64(len(data)-pos) < raw {
			return off, truncated("field "+l.def.Name, int(raw), len(data)-pos)
		}
		end := pos + int(raw)
		for pos < end {
			if l.def.MaxCount > 0 && len(elems) == l.def.MaxCount {
				return off, l.countError(len(elems) + 1)
			}
			e := l.def.Elem()
			next, err := e.Decode(data[:end], pos)
			if err != nil {
				if errors.Is(err, ErrTruncated) {
					return off, &LengthError{Declared: int(raw), Limit: int(raw),
						Reason: "list " + l.def.Name + " ends inside an element: " + err.Error()}
				}
				return off, err
			}
			if next == pos {
				return off, &LengthError{Declared: int(raw), Limit: int(raw),
					Reason: "list " + l.def.Name + " has an empty element"}
			}
			elems = append(elems, e)
			pos = next
		}

	default:
		count := uint64(l.def.Count)
		if l.def.CountPrefix > 0 {
			count = raw
			if count > uint64(l.def.MaxCount) {
				return off, l.countError(int(min(count, uint64(prefixLimit(p)))))
			}
		}
		for range count {
			e := l.def.Elem()
			next, err := e.Decode(data, pos)
			if err != nil {
				return off, err
			}
			elems = append(elems, e)
			pos = next
		}
	}

	l.elems = elems
	return pos, nil
}

func (l *List) Equal(other Field) bool {
	o, ok := other.(*List)
	return ok && MembersEqual(l.elems, o.elems)
}

func (l *List) String() string {
	parts := make([]string, len(l.elems))
	for i, e := range l.elems {
		parts[i] = e.String()
	}
	return fmt.Sprintf("%s=[%s]", l.def.Name, strings.Join(parts, ", "))
}

func (l *List) countError(n int) error {
	lo := 0
	if l.def.Count > 0 {
		lo = l.def.Count
	}
	return &RangeError{
		Field: l.def.Name,
		Value: fmt.Sprintf("count %d", n),
		Min:   fmt.Sprintf("count %d", lo),
		Max:   fmt.Sprintf("count %d", l.def.MaxCount),
	}
}
