package protocol

import (
	"bytes"
	"fmt"
)

// DataDef describes a raw byte sequence field.
type DataDef struct {
	Name string

	// FixedLength, when set, makes every value exactly that many bytes with
	// no prefix on the wire.
	FixedLength int

	// PrefixLength is the width of the length prefix in bytes (1, 2 or 4).
	// Ignored for fixed length data.
	PrefixLength int
	Order        ByteOrder

	MaxLen  int
	Default []byte
}

// Data is an opaque byte sequence, either fixed length or length-prefixed.
type Data struct {
	def   *DataDef
	value []byte
}

// NewData builds a data field at its default value. Fixed length data
// defaults to zero bytes.
func NewData(d DataDef) Data {
	if d.FixedLength < 0 {
		panic(fmt.Sprintf("protocol: field %q: invalid fixed length %d", d.Name, d.FixedLength))
	}
	if d.FixedLength > 0 {
		d.PrefixLength = 0
		d.MaxLen = d.FixedLength
		if d.Default == nil {
			d.Default = make([]byte, d.FixedLength)
		}
		if len(d.Default) != d.FixedLength {
			panic(fmt.Sprintf("protocol: field %q: default is %d bytes, want %d", d.Name, len(d.Default), d.FixedLength))
		}
	} else {
		if d.PrefixLength == 0 {
			d.PrefixLength = 1
		}
		if !validPrefix(d.PrefixLength) {
			panic(fmt.Sprintf("protocol: field %q: invalid prefix length %d", d.Name, d.PrefixLength))
		}
		if limit := prefixLimit(d.PrefixLength); d.MaxLen == 0 || d.MaxLen > limit {
			d.MaxLen = limit
		}
		if len(d.Default) > d.MaxLen {
			panic(fmt.Sprintf("protocol: field %q: default longer than %d", d.Name, d.MaxLen))
		}
	}
	return Data{def: &d, value: bytes.Clone(d.Default)}
}

func (f *Data) Name() string { return f.def.Name }

func (f *Data) Length() int { return f.def.PrefixLength + len(f.value) }

// Value returns the current bytes. The slice must not be modified.
func (f *Data) Value() []byte { return f.value }

// SetValue stores a copy of v. Fixed length data only accepts exactly
// FixedLength bytes.
func (f *Data) SetValue(v []byte) error {
	if !f.allowed(len(v)) {
		return f.lengthError(len(v))
	}
	f.value = bytes.Clone(v)
	return nil
}

func (f *Data) Valid() bool { return f.allowed(len(f.value)) }

func (f *Data) allowed(n int) bool {
	if f.def.FixedLength > 0 {
		return n == f.def.FixedLength
	}
	return n <= f.def.MaxLen
}

func (f *Data) Encode(buf []byte) []byte {
	if p := f.def.PrefixLength; p > 0 {
		start := len(buf)
		buf = append(buf, make([]byte, p)...)
		f.def.Order.putUint(buf[start:], uint64(len(f.value)), p)
	}
	return append(buf, f.value...)
}

func (f *Data) Decode(data []byte, off int) (int, error) {
	p := f.def.PrefixLength
	n := f.def.FixedLength
	if off < 0 || len(data)-off < p {
		return off, truncated("field "+f.def.Name+" length", p, max(len(data)-off, 0))
	}
	if p > 0 {
		raw := f.def.Order.uint(data[off:], p)
		if raw > uint64(f.def.MaxLen) {
			return off, f.lengthError(int(min(raw, uint64(prefixLimit(p)))))
		}
		n = int(raw)
	}
	if len(data)-off-p < n {
		return off, truncated("field "+f.def.Name, n, len(data)-off-p)
	}
	f.value = bytes.Clone(data[off+p : off+p+n])
	return off + p + n, nil
}

func (f *Data) Equal(other Field) bool {
	o, ok := other.(*Data)
	return ok && bytes.Equal(o.value, f.value)
}

func (f *Data) String() string {
	return fmt.Sprintf("%s=[% x]", f.def.Name, f.value)
}

func (f *Data) lengthError(n int) error {
	lo := 0
	if f.def.FixedLength > 0 {
		lo = f.def.FixedLength
	}
	return &RangeError{
		Field: f.def.Name,
		Value: fmt.Sprintf("len %d", n),
		Min:   fmt.Sprintf("len %d", lo),
		Max:   fmt.Sprintf("len %d", f.def.MaxLen),
	}
}

func validPrefix(n int) bool { return n == 1 || n == 2 || n == 4 }

// prefixLimit is the largest count a prefix of n bytes can carry.
func prefixLimit(n int) int { return 1<<(8*n) - 1 }
