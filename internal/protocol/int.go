package protocol

import (
	"fmt"
	"math"
	"math/big"
	"unsafe"
)

// IntDef describes an integral field. Message types build one per field.
type IntDef[T Integer] struct {
	Name string

	// Length is the serialized width in bytes (1..8). Zero means the size of T.
	Length int
	Order  ByteOrder

	// SerOffset is added to the value before serialization and subtracted
	// after deserialization.
	SerOffset int64

	Default T

	// Min and Max narrow the valid range when Ranged is set. Otherwise the
	// range is whatever the serialized width can carry.
	Min, Max T
	Ranged   bool

	// ScaleNum/ScaleDen convert the raw value to a scaled quantity.
	ScaleNum, ScaleDen int64
}

type intDef[T Integer] struct {
	IntDef[T]
	lo, hi       T
	bigLo, bigHi *big.Int
}

// Int is a fixed width integral field.
type Int[T Integer] struct {
	def   *intDef[T]
	value T
}

// NewInt builds an integral field at its default value. It panics on a
// definition that cannot be serialized; definitions are fixed by the schema.
func NewInt[T Integer](d IntDef[T]) Int[T] {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if d.Length == 0 {
		d.Length = size
	}
	if d.Length < 1 || d.Length > 8 || d.Length > size {
		panic(fmt.Sprintf("protocol: field %q: invalid length %d for %T", d.Name, d.Length, zero))
	}
	if d.ScaleNum == 0 {
		d.ScaleNum = 1
	}
	if d.ScaleDen == 0 {
		d.ScaleDen = 1
	}

	bigLo, bigHi := serializedBounds(d.Length, isSigned[T]())
	off := big.NewInt(d.SerOffset)
	bigLo.Sub(bigLo, off)
	bigHi.Sub(bigHi, off)

	typeLo, typeHi := typeBounds[T]()
	bigLo = maxBig(bigLo, typeLo)
	bigHi = minBig(bigHi, typeHi)
	if d.Ranged {
		bigLo = maxBig(bigLo, toBig(d.Min))
		bigHi = minBig(bigHi, toBig(d.Max))
	}
	if bigLo.Cmp(bigHi) > 0 {
		panic(fmt.Sprintf("protocol: field %q: empty value range", d.Name))
	}
	if def := toBig(d.Default); def.Cmp(bigLo) < 0 || def.Cmp(bigHi) > 0 {
		panic(fmt.Sprintf("protocol: field %q: default %v outside [%s, %s]", d.Name, d.Default, bigLo, bigHi))
	}

	def := &intDef[T]{
		IntDef: d,
		lo:     fromBig[T](bigLo),
		hi:     fromBig[T](bigHi),
		bigLo:  bigLo,
		bigHi:  bigHi,
	}
	return Int[T]{def: def, value: d.Default}
}

func (f *Int[T]) Name() string { return f.def.Name }

func (f *Int[T]) Length() int { return f.def.Length }

// Value returns the current value, the schema default if never set.
func (f *Int[T]) Value() T { return f.value }

// Min returns the lowest valid value.
func (f *Int[T]) Min() T { return f.def.lo }

// Max returns the highest valid value.
func (f *Int[T]) Max() T { return f.def.hi }

// SetValue stores v, or returns a *RangeError and leaves the field unchanged.
func (f *Int[T]) SetValue(v T) error {
	if v < f.def.lo || v > f.def.hi {
		return f.rangeError(fmt.Sprint(v))
	}
	f.value = v
	return nil
}

func (f *Int[T]) Valid() bool {
	return f.value >= f.def.lo && f.value <= f.def.hi
}

// Scaled returns the value multiplied by the field's scaling ratio.
func (f *Int[T]) Scaled() float64 {
	return float64(f.value) * float64(f.def.ScaleNum) / float64(f.def.ScaleDen)
}

// SetScaled stores the raw value closest to x.
func (f *Int[T]) SetScaled(x float64) error {
	raw := math.Round(x * float64(f.def.ScaleDen) / float64(f.def.ScaleNum))
	if math.IsNaN(raw) || raw < float64(f.def.lo) || raw > float64(f.def.hi) {
		return f.rangeError(fmt.Sprint(x))
	}
	return f.SetValue(T(raw))
}

func (f *Int[T]) Encode(buf []byte) []byte {
	n := f.def.Length
	raw := uint64(f.value) + uint64(f.def.SerOffset)
	start := len(buf)
	buf = append(buf, make([]byte, n)...)
	f.def.Order.putUint(buf[start:], raw, n)
	return buf
}

func (f *Int[T]) Decode(data []byte, off int) (int, error) {
	n := f.def.Length
	if off < 0 || len(data)-off < n {
		return off, truncated("field "+f.def.Name, n, max(len(data)-off, 0))
	}
	raw := f.def.Order.uint(data[off:], n)

	var v *big.Int
	if isSigned[T]() {
		if n < 8 && raw&(1<<(8*n-1)) != 0 {
			raw |= ^uint64(0) << (8 * n)
		}
		v = big.NewInt(int64(raw))
	} else {
		v = new(big.Int).SetUint64(raw)
	}
	v.Sub(v, big.NewInt(f.def.SerOffset))
	if v.Cmp(f.def.bigLo) < 0 || v.Cmp(f.def.bigHi) > 0 {
		return off, f.rangeError(v.String())
	}
	f.value = fromBig[T](v)
	return off + n, nil
}

func (f *Int[T]) Equal(other Field) bool {
	o, ok := other.(*Int[T])
	return ok && o.value == f.value
}

func (f *Int[T]) String() string {
	return fmt.Sprintf("%s=%d", f.def.Name, f.value)
}

func (f *Int[T]) rangeError(v string) error {
	return &RangeError{
		Field: f.def.Name,
		Value: v,
		Min:   fmt.Sprint(f.def.lo),
		Max:   fmt.Sprint(f.def.hi),
	}
}

func isSigned[T Integer]() bool {
	var zero T
	return zero-1 < zero
}

func toBig[T Integer](v T) *big.Int {
	if isSigned[T]() {
		return big.NewInt(int64(v))
	}
	return new(big.Int).SetUint64(uint64(v))
}

func fromBig[T Integer](v *big.Int) T {
	if v.Sign() < 0 {
		return T(v.Int64())
	}
	return T(v.Uint64())
}

// serializedBounds is the raw range carried by n bytes.
func serializedBounds(n int, signed bool) (*big.Int, *big.Int) {
	bits := uint(8 * n)
	if signed {
		hi := new(big.Int).Lsh(big.NewInt(1), bits-1)
		lo := new(big.Int).Neg(hi)
		return lo, hi.Sub(hi, big.NewInt(1))
	}
	hi := new(big.Int).Lsh(big.NewInt(1), bits)
	return big.NewInt(0), hi.Sub(hi, big.NewInt(1))
}

func typeBounds[T Integer]() (*big.Int, *big.Int) {
	var zero T
	return serializedBounds(int(unsafe.Sizeof(zero)), isSigned[T]())
}

func maxBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
