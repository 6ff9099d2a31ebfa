package protocol

import "bytes"

// Equal compares two messages field by field. Messages of different kinds
// are not comparable and yield a *KindMismatchError.
func Equal(a, b Message) (bool, error) {
	if a.ID() != b.ID() {
		return false, &KindMismatchError{A: a.ID(), B: b.ID()}
	}
	ua, aUnknown := a.(*UnknownMessage)
	ub, bUnknown := b.(*UnknownMessage)
	if aUnknown || bUnknown {
		return aUnknown && bUnknown && bytes.Equal(ua.Payload, ub.Payload), nil
	}
	return MembersEqual(a.Fields(), b.Fields()), nil
}
