package dispatch

import (
	"container/list"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fluxorio/handlebars/pkg/core"
	"github.com/google/uuid"
)

// registration identifies one connected slot. It outlives its removal so a
// stale Handle can be told apart from a live one.
type registration struct {
	owner   any
	elem    *list.Element
	removed atomic.Bool
}

// Handle identifies one connected slot. The zero Handle is invalid.
type Handle[S comparable] struct {
	signal S
	reg    *registration
}

// Signal returns the signal the slot was connected to.
func (h Handle[S]) Signal() S {
	return h.signal
}

// Connected reports whether the slot is still registered.
func (h Handle[S]) Connected() bool {
	return h.reg != nil && !h.reg.removed.Load()
}

type entry[A any] struct {
	reg  *registration
	slot Slot[A]
}

type event[S comparable, A any] struct {
	seq    uint64
	signal S
	args   A
}

// Domain is a signal registry plus its FIFO event queue. S is the signal
// type and A the argument bundle passed to every slot. Domains never share
// state; create one per event family.
//
// All methods may be called from slots running inside Respond. The domain
// lock is never held while a slot runs. Respond itself must only be driven
// by one goroutine at a time.
type Domain[S comparable, A any] struct {
	mu     sync.Mutex
	chains map[S]*list.List // of *entry[A]
	queue  []*event[S, A]
	seq    uint64 // of the next pushed event

	name     string
	logger   core.Logger
	observer Observer
}

// NewDomain creates an empty domain.
func NewDomain[S comparable, A any](opts ...Option) *Domain[S, A] {
	o := options{
		logger:   core.NopLogger(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = "domain-" + uuid.NewString()[:8]
	}
	return &Domain[S, A]{
		chains:   make(map[S]*list.List),
		name:     o.name,
		logger:   o.logger.WithFields(map[string]interface{}{"domain": o.name}),
		observer: o.observer,
	}
}

// Name returns the domain label set with WithName, or a generated one.
func (d *Domain[S, A]) Name() string {
	return d.name
}

// Connect appends slot to the chain of signal and returns its handle.
// A nil slot is a programming error and panics.
func (d *Domain[S, A]) Connect(signal S, slot Slot[A]) Handle[S] {
	if slot == nil {
		core.FailFast(&core.Error{Code: "INVALID_SLOT", Message: "slot cannot be nil"})
	}

	reg := &registration{owner: d}
	d.mu.Lock()
	chain, ok := d.chains[signal]
	if !ok {
		chain = list.New()
		d.chains[signal] = chain
	}
	reg.elem = chain.PushBack(&entry[A]{reg: reg, slot: slot})
	n := chain.Len()
	d.mu.Unlock()

	label := signalLabel(signal)
	d.logger.WithFields(map[string]interface{}{"signal": label}).Debug("slot connected")
	d.observer.SlotConnected(label, n)
	return Handle[S]{signal: signal, reg: reg}
}

// Disconnect removes the slot identified by h. Other handles on the same
// signal stay valid and keep their order. Disconnecting a handle twice, the
// zero Handle or a handle from another domain changes nothing and returns
// ErrStaleHandle, ErrInvalidHandle or ErrForeignHandle.
func (d *Domain[S, A]) Disconnect(h Handle[S]) error {
	label := signalLabel(h.signal)
	err := d.disconnect(h)
	if err != nil {
		d.logger.WithFields(map[string]interface{}{"signal": label}).Error("disconnect rejected: ", err)
		return err
	}
	d.logger.WithFields(map[string]interface{}{"signal": label}).Debug("slot disconnected")
	d.observer.SlotDisconnected(label, d.Slots(h.signal))
	return nil
}

func (d *Domain[S, A]) disconnect(h Handle[S]) error {
	if h.reg == nil {
		return ErrInvalidHandle
	}
	if h.reg.owner != any(d) {
		return ErrForeignHandle
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if h.reg.removed.Load() {
		return ErrStaleHandle
	}
	chain := d.chains[h.signal]
	chain.Remove(h.reg.elem)
	h.reg.removed.Store(true)
	if chain.Len() == 0 {
		delete(d.chains, h.signal)
	}
	return nil
}

// PushEvent appends an event to the tail of the queue. No slot runs until
// Respond is called.
func (d *Domain[S, A]) PushEvent(signal S, args A) {
	d.mu.Lock()
	d.queue = append(d.queue, &event[S, A]{seq: d.seq, signal: signal, args: args})
	d.seq++
	n := len(d.queue)
	d.mu.Unlock()

	d.observer.EventPushed(signalLabel(signal), n)
}

// Respond processes queued events from the head of the queue. With limit 0
// it processes only events that were already queued when it was called,
// stopping at the first one pushed later; otherwise at most limit events. For each event every slot connected to its signal runs
// in connection order. Respond reports whether events remain queued.
//
// The chain is snapshotted when an event's dispatch begins: slots connected
// meanwhile wait for the next event, slots disconnected before their turn
// are skipped. An event leaves the queue once all its slots returned; if a
// slot panics the panic propagates and the event stays at the head.
func (d *Domain[S, A]) Respond(limit int) bool {
	core.FailFast(core.ValidateLimit(limit))

	d.mu.Lock()
	cutoff := d.seq
	d.mu.Unlock()

	for processed := 0; limit == 0 || processed < limit; processed++ {
		d.mu.Lock()
		if len(d.queue) == 0 || (limit == 0 && d.queue[0].seq >= cutoff) {
			d.mu.Unlock()
			break
		}
		ev := d.queue[0]
		slots := d.snapshotLocked(ev.signal)
		d.mu.Unlock()

		start := time.Now()
		invoked := 0
		for _, e := range slots {
			if e.reg.removed.Load() {
				continue
			}
			e.slot(ev.args)
			invoked++
		}

		d.mu.Lock()
		d.dequeueLocked(ev)
		n := len(d.queue)
		d.mu.Unlock()
		d.observer.EventDispatched(signalLabel(ev.signal), invoked, n, time.Since(start))
	}

	return d.Pending() > 0
}

func (d *Domain[S, A]) snapshotLocked(signal S) []*entry[A] {
	chain, ok := d.chains[signal]
	if !ok {
		return nil
	}
	slots := make([]*entry[A], 0, chain.Len())
	for el := chain.Front(); el != nil; el = el.Next() {
		slots = append(slots, el.Value.(*entry[A]))
	}
	return slots
}

// dequeueLocked drops ev from the head. A slot may have purged it already,
// in which case the queue is left alone.
func (d *Domain[S, A]) dequeueLocked(ev *event[S, A]) {
	if len(d.queue) == 0 || d.queue[0] != ev {
		return
	}
	d.queue[0] = nil
	d.queue = d.queue[1:]
	if len(d.queue) == 0 {
		d.queue = nil
	}
}

// PurgeEvents removes every queued event carrying signal and returns how
// many were removed. The remaining events keep their order.
func (d *Domain[S, A]) PurgeEvents(signal S) int {
	d.mu.Lock()
	kept := d.queue[:0]
	for _, ev := range d.queue {
		if ev.signal != signal {
			kept = append(kept, ev)
		}
	}
	removed := len(d.queue) - len(kept)
	for i := len(kept); i < len(d.queue); i++ {
		d.queue[i] = nil
	}
	d.queue = kept
	n := len(kept)
	d.mu.Unlock()

	if removed > 0 {
		label := signalLabel(signal)
		d.logger.WithFields(map[string]interface{}{"signal": label}).Debug("purged ", removed, " events")
		d.observer.EventsPurged(label, removed, n)
	}
	return removed
}

// Pending returns the number of queued events.
func (d *Domain[S, A]) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Slots returns the number of slots connected to signal.
func (d *Domain[S, A]) Slots(signal S) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if chain, ok := d.chains[signal]; ok {
		return chain.Len()
	}
	return 0
}

func signalLabel(signal any) string {
	return fmt.Sprint(signal)
}
