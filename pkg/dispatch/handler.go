package dispatch

import (
	"errors"
	"sync"

	"github.com/fluxorio/handlebars/pkg/core"
	"github.com/google/uuid"
)

// Handler connects methods of an owner value to a Domain and retracts all
// of them on Close. Owner types keep a Handler as a field and call Close
// when they are done:
//
//	type Calculator struct {
//		events *dispatch.Handler[Op, Operands, *Calculator]
//	}
//
//	func NewCalculator(d *dispatch.Domain[Op, Operands]) *Calculator {
//		c := &Calculator{}
//		c.events = dispatch.NewHandler(d, c)
//		c.events.Connect(Add, (*Calculator).Add)
//		return c
//	}
//
//	func (c *Calculator) Close() { c.events.Close() }
//
// After Close returns no slot bound to the owner is reachable from the
// domain.
type Handler[S comparable, A, T any] struct {
	id     string
	domain *Domain[S, A]
	owner  T
	logger core.Logger

	mu      sync.Mutex
	handles []Handle[S]
	closed  bool
}

// NewHandler returns a Handler binding methods to owner on d.
func NewHandler[S comparable, A, T any](d *Domain[S, A], owner T) *Handler[S, A, T] {
	id := uuid.NewString()
	return &Handler[S, A, T]{
		id:     id,
		domain: d,
		owner:  owner,
		logger: d.logger.WithFields(map[string]interface{}{"handler": id}),
	}
}

// ID returns the handler's unique identifier.
func (h *Handler[S, A, T]) ID() string {
	return h.id
}

// Domain returns the domain the handler registers on.
func (h *Handler[S, A, T]) Domain() *Domain[S, A] {
	return h.domain
}

// Connect connects method bound to the owner and records the handle.
// It panics if the handler is closed.
func (h *Handler[S, A, T]) Connect(signal S, method func(T, A)) Handle[S] {
	return h.track(func() Handle[S] {
		return ConnectMember(h.domain, signal, h.owner, method)
	})
}

// HandlerConnectBind is Handler.Connect with bound supplied before the
// event arguments.
func HandlerConnectBind[S comparable, A, T, B any](h *Handler[S, A, T], signal S, method func(T, B, A), bound B) Handle[S] {
	return h.track(func() Handle[S] {
		return ConnectBindMember(h.domain, signal, h.owner, method, bound)
	})
}

func (h *Handler[S, A, T]) track(connect func() Handle[S]) Handle[S] {
	h.mu.Lock()
	defer h.mu.Unlock()
	core.FailFastIf(h.closed, "cannot connect on a closed handler")

	handle := connect()
	h.handles = append(h.handles, handle)
	return handle
}

// PushEvent forwards to the domain's PushEvent.
func (h *Handler[S, A, T]) PushEvent(signal S, args A) {
	h.domain.PushEvent(signal, args)
}

// PurgeEvents forwards to the domain's PurgeEvents.
func (h *Handler[S, A, T]) PurgeEvents(signal S) int {
	return h.domain.PurgeEvents(signal)
}

// Handles returns a copy of the handles recorded so far.
func (h *Handler[S, A, T]) Handles() []Handle[S] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Handle[S](nil), h.handles...)
}

// Close disconnects every slot the handler connected. Handles already
// disconnected through the domain are skipped. Close is idempotent.
func (h *Handler[S, A, T]) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	handles := h.handles
	h.handles = nil
	h.mu.Unlock()

	retracted := 0
	for _, handle := range handles {
		if !handle.Connected() {
			continue
		}
		if err := h.domain.Disconnect(handle); err != nil && !errors.Is(err, ErrStaleHandle) {
			h.logger.Error("retract slot: ", err)
			continue
		}
		retracted++
	}
	h.logger.Debug("handler closed, retracted ", retracted, " slots")
}
