package protocol

import (
	"sort"

	"github.com/muurk/commsframe/internal/logging"
	"go.uber.org/zap"
)

// Handler receives decoded messages. HandleMessage is the fallback for every
// message the handler has no more specific method for, including unknown ids.
// Concrete protocols define one optional interface per message kind; their
// dispatch function calls the specific method when the handler implements it.
type Handler interface {
	HandleMessage(msg Message)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(msg Message)

func (f HandlerFunc) HandleMessage(msg Message) { f(msg) }

// DispatchFunc delivers one message to exactly one method of h.
type DispatchFunc func(msg Message, h Handler)

// DefaultDispatch calls h.HandleMessage.
func DefaultDispatch(msg Message, h Handler) {
	h.HandleMessage(msg)
}

// Router is a Handler that selects a function by message id. Messages with
// no route, and every *UnknownMessage, go to the fallback.
type Router struct {
	routes   map[MsgID]func(Message)
	fallback func(Message)
}

// NewRouter returns a router whose unmatched messages go to fallback. A nil
// fallback logs and drops them.
func NewRouter(fallback func(Message)) *Router {
	if fallback == nil {
		fallback = func(msg Message) {
			logging.Debug("Unrouted message dropped",
				zap.Uint64("id", uint64(msg.ID())),
				zap.String("message", msg.Name()),
			)
		}
	}
	return &Router{
		routes:   make(map[MsgID]func(Message)),
		fallback: fallback,
	}
}

// Handle registers fn for id, replacing any previous route.
func (r *Router) Handle(id MsgID, fn func(Message)) *Router {
	r.routes[id] = fn
	return r
}

// Routes lists the routed ids in ascending order.
func (r *Router) Routes() []MsgID {
	ids := make([]MsgID, 0, len(r.routes))
	for id := range r.routes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *Router) HandleMessage(msg Message) {
	if _, unknown := msg.(*UnknownMessage); !unknown {
		if fn, ok := r.routes[msg.ID()]; ok {
			fn(msg)
			return
		}
	}
	r.fallback(msg)
}
