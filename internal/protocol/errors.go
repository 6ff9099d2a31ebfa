package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrRange        = errors.New("protocol: value out of range")
	ErrTruncated    = errors.New("protocol: truncated data")
	ErrChecksum     = errors.New("protocol: checksum mismatch")
	ErrLength       = errors.New("protocol: invalid length")
	ErrSync         = errors.New("protocol: sync prefix mismatch")
	ErrKindMismatch = errors.New("protocol: message kind mismatch")
	ErrInvalidFrame = errors.New("protocol: invalid frame definition")
	ErrDuplicateID  = errors.New("protocol: duplicate message id")
)

// RangeError reports a field value outside its declared domain.
type RangeError struct {
	Field string
	Value string
	Min   string
	Max   string
}

func (e *RangeError) Error() string {
	if e.Min == "" && e.Max == "" {
		return fmt.Sprintf("protocol: field %q: value %s not allowed", e.Field, e.Value)
	}
	return fmt.Sprintf("protocol: field %q: value %s outside [%s, %s]", e.Field, e.Value, e.Min, e.Max)
}

func (e *RangeError) Is(target error) bool { return target == ErrRange }

// TruncatedError reports a field or layer that needed more bytes than remained.
type TruncatedError struct {
	What      string
	Needed    int
	Available int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("protocol: %s truncated: need %d bytes, have %d", e.What, e.Needed, e.Available)
}

func (e *TruncatedError) Is(target error) bool { return target == ErrTruncated }

func truncated(what string, needed, available int) error {
	return &TruncatedError{What: what, Needed: needed, Available: available}
}

// ChecksumError reports a digest mismatch in a checksum layer.
type ChecksumError struct {
	Alg      ChecksumAlg
	Expected uint64
	Actual   uint64
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("protocol: %s checksum mismatch: frame carries 0x%x, computed 0x%x",
		e.Alg, e.Actual, e.Expected)
}

func (e *ChecksumError) Is(target error) bool { return target == ErrChecksum }

// LengthError reports a size layer value that is inconsistent with the data it wraps.
type LengthError struct {
	Declared int
	Limit    int
	Reason   string
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("protocol: length %d (limit %d): %s", e.Declared, e.Limit, e.Reason)
}

func (e *LengthError) Is(target error) bool { return target == ErrLength }

// KindMismatchError is returned when two messages of different kinds are compared.
type KindMismatchError struct {
	A, B MsgID
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("protocol: cannot compare message kinds %d and %d", e.A, e.B)
}

func (e *KindMismatchError) Is(target error) bool { return target == ErrKindMismatch }

// FrameError locates a decode failure inside an input buffer.
type FrameError struct {
	Offset int
	Layer  string
	Err    error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("protocol: frame at offset %d: %s layer: %v", e.Offset, e.Layer, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }
