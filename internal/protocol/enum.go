package protocol

import (
	"fmt"
	"sort"
)

// EnumValue names one valid value of an enum field.
type EnumValue[T Integer] struct {
	Value T
	Name  string
}

// EnumDef describes an enum field: an integral encoding with a closed set of
// named values.
type EnumDef[T Integer] struct {
	Name    string
	Length  int
	Order   ByteOrder
	Default T
	Values  []EnumValue[T]
}

// Enum is an integral field restricted to a set of named values.
type Enum[T Integer] struct {
	Int[T]
	names map[T]string
}

// NewEnum builds an enum field at its default value.
func NewEnum[T Integer](d EnumDef[T]) Enum[T] {
	names := make(map[T]string, len(d.Values))
	for _, v := range d.Values {
		names[v.Value] = v.Name
	}
	if _, ok := names[d.Default]; !ok && len(names) > 0 {
		panic(fmt.Sprintf("protocol: enum %q: default %v is not a named value", d.Name, d.Default))
	}
	return Enum[T]{
		Int: NewInt(IntDef[T]{
			Name:    d.Name,
			Length:  d.Length,
			Order:   d.Order,
			Default: d.Default,
		}),
		names: names,
	}
}

// SetValue stores v if it is one of the named values.
func (e *Enum[T]) SetValue(v T) error {
	if _, ok := e.names[v]; !ok {
		return e.notNamed(v)
	}
	return e.Int.SetValue(v)
}

// ValueName returns the symbolic name of the current value.
func (e *Enum[T]) ValueName() string {
	if name, ok := e.names[e.value]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", e.value)
}

// Values lists the valid values in ascending order.
func (e *Enum[T]) Values() []EnumValue[T] {
	out := make([]EnumValue[T], 0, len(e.names))
	for v, name := range e.names {
		out = append(out, EnumValue[T]{Value: v, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

func (e *Enum[T]) Valid() bool {
	_, ok := e.names[e.value]
	return ok && e.Int.Valid()
}

func (e *Enum[T]) Decode(data []byte, off int) (int, error) {
	prev := e.value
	next, err := e.Int.Decode(data, off)
	if err != nil {
		return off, err
	}
	if _, ok := e.names[e.value]; !ok {
		bad := e.value
		e.value = prev
		return off, e.notNamed(bad)
	}
	return next, nil
}

func (e *Enum[T]) Equal(other Field) bool {
	o, ok := other.(*Enum[T])
	return ok && o.value == e.value
}

func (e *Enum[T]) String() string {
	return fmt.Sprintf("%s=%s(%d)", e.def.Name, e.ValueName(), e.value)
}

func (e *Enum[T]) notNamed(v T) error {
	return &RangeError{Field: e.def.Name, Value: fmt.Sprint(v)}
}
