package sample

import "github.com/muurk/commsframe/internal/protocol"

// Msg1Handler is implemented by handlers that want Msg1 typed.
type Msg1Handler interface {
	HandleMsg1(msg *Msg1)
}

// Msg2Handler is implemented by handlers that want Msg2 typed.
type Msg2Handler interface {
	HandleMsg2(msg *Msg2)
}

// Msg3Handler is implemented by handlers that want Msg3 typed.
type Msg3Handler interface {
	HandleMsg3(msg *Msg3)
}

// Dispatch calls the typed method of h for msg when h has one, and
// h.HandleMessage otherwise.
func Dispatch(msg protocol.Message, h protocol.Handler) {
	switch m := msg.(type) {
	case *Msg1:
		if th, ok := h.(Msg1Handler); ok {
			th.HandleMsg1(m)
			return
		}
	case *Msg2:
		if th, ok := h.(Msg2Handler); ok {
			th.HandleMsg2(m)
			return
		}
	case *Msg3:
		if th, ok := h.(Msg3Handler); ok {
			th.HandleMsg3(m)
			return
		}
	}
	h.HandleMessage(msg)
}
