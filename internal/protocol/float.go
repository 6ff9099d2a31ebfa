package protocol

import (
	"fmt"
	"math"
	"unsafe"
)

// Floating is the set of Go types a Float field can hold.
type Floating interface {
	~float32 | ~float64
}

// FloatDef describes an IEEE 754 field, sent as 4 or 8 bytes depending on T.
type FloatDef[T Floating] struct {
	Name    string
	Order   ByteOrder
	Default T

	// Min and Max apply when Ranged is set; NaN is then invalid too.
	Min, Max T
	Ranged   bool
}

// Float is a floating point field.
type Float[T Floating] struct {
	def   *FloatDef[T]
	value T
}

// NewFloat builds a float field at its default value.
func NewFloat[T Floating](d FloatDef[T]) Float[T] {
	f := Float[T]{def: &d, value: d.Default}
	if d.Ranged && (math.IsNaN(float64(d.Min)) || math.IsNaN(float64(d.Max)) || d.Min > d.Max) {
		panic(fmt.Sprintf("protocol: field %q: empty value range", d.Name))
	}
	if !f.inRange(d.Default) {
		panic(fmt.Sprintf("protocol: field %q: default %v outside [%v, %v]", d.Name, d.Default, d.Min, d.Max))
	}
	return f
}

func (f *Float[T]) Name() string { return f.def.Name }

func (f *Float[T]) Length() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// Value returns the current value.
func (f *Float[T]) Value() T { return f.value }

// SetValue stores v, or returns a *RangeError and leaves the field unchanged.
func (f *Float[T]) SetValue(v T) error {
	if !f.inRange(v) {
		return f.rangeError(v)
	}
	f.value = v
	return nil
}

func (f *Float[T]) Valid() bool { return f.inRange(f.value) }

func (f *Float[T]) inRange(v T) bool {
	if !f.def.Ranged {
		return true
	}
	return v >= f.def.Min && v <= f.def.Max
}

func (f *Float[T]) Encode(buf []byte) []byte {
	n := f.Length()
	var raw uint64
	if n == 4 {
		raw = uint64(math.Float32bits(float32(f.value)))
	} else {
		raw = math.Float64bits(float64(f.value))
	}
	start := len(buf)
	buf = append(buf, make([]byte, n)...)
	f.def.Order.putUint(buf[start:], raw, n)
	return buf
}

func (f *Float[T]) Decode(data []byte, off int) (int, error) {
	n := f.Length()
	if off < 0 || len(data)-off < n {
		return off, truncated("field "+f.def.Name, n, max(len(data)-off, 0))
	}
	raw := f.def.Order.uint(data[off:], n)
	var v T
	if n == 4 {
		v = T(math.Float32frombits(uint32(raw)))
	} else {
		v = T(math.Float64frombits(raw))
	}
	if !f.inRange(v) {
		return off, f.rangeError(v)
	}
	f.value = v
	return off + n, nil
}

// Equal treats two NaN values as equal so a decoded NaN matches its source.
func (f *Float[T]) Equal(other Field) bool {
	o, ok := other.(*Float[T])
	if !ok {
		return false
	}
	if math.IsNaN(float64(f.value)) {
		return math.IsNaN(float64(o.value))
	}
	return o.value == f.value
}

func (f *Float[T]) String() string {
	return fmt.Sprintf("%s=%g", f.def.Name, f.value)
}

func (f *Float[T]) rangeError(v T) error {
	return &RangeError{
		Field: f.def.Name,
		Value: fmt.Sprint(v),
		Min:   fmt.Sprint(f.def.Min),
		Max:   fmt.Sprint(f.def.Max),
	}
}
