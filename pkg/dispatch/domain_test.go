package dispatch

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type sig int

const (
	sigX sig = iota
	sigY
	sigZ
)

func (s sig) String() string {
	return [...]string{"X", "Y", "Z"}[s]
}

// recorder collects "name(arg)" entries in call order.
type recorder struct {
	calls []string
}

func (r *recorder) slot(name string) Slot[int] {
	return func(v int) { r.calls = append(r.calls, fmt.Sprintf("%s(%d)", name, v)) }
}

func TestDomain_ConnectionOrder(t *testing.T) {
	// Scenario A: f then g on X, push (X, 5).
	d := NewDomain[sig, int]()
	var r recorder
	d.Connect(sigX, r.slot("f"))
	d.Connect(sigX, r.slot("g"))

	d.PushEvent(sigX, 5)
	if d.Respond(0) {
		t.Error("Respond(0) = true, want false after full drain")
	}

	want := []string{"f(5)", "g(5)"}
	if diff := cmp.Diff(want, r.calls); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
}

func TestDomain_ManySlotsKeepOrder(t *testing.T) {
	d := NewDomain[sig, int]()
	var r recorder
	var want []string
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("s%d", i)
		d.Connect(sigX, r.slot(name))
	}
	for _, v := range []int{1, 2} {
		for i := 0; i < 10; i++ {
			want = append(want, fmt.Sprintf("s%d(%d)", i, v))
		}
		d.PushEvent(sigX, v)
	}

	d.Respond(0)
	if diff := cmp.Diff(want, r.calls); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
}

func TestDomain_RespondDrainsInPushOrder(t *testing.T) {
	d := NewDomain[sig, int]()
	var r recorder
	d.Connect(sigX, r.slot("x"))
	d.Connect(sigY, r.slot("y"))

	d.PushEvent(sigX, 1)
	d.PushEvent(sigY, 2)
	d.PushEvent(sigX, 3)
	d.PushEvent(sigZ, 4)

	if d.Respond(0) {
		t.Error("Respond(0) = true, want false")
	}
	if got := d.Pending(); got != 0 {
		t.Errorf("Pending() = %d, want 0", got)
	}
	want := []string{"x(1)", "y(2)", "x(3)"}
	if diff := cmp.Diff(want, r.calls); diff != "" {
		t.Errorf("dispatch order mismatch (-want +got):\n%s", diff)
	}
}

func TestDomain_EmptyChainsAreNoOps(t *testing.T) {
	// Scenario B.
	d := NewDomain[sig, int]()
	d.PushEvent(sigX, 1)
	d.PushEvent(sigY, 2)
	d.PushEvent(sigX, 3)

	if d.Respond(0) {
		t.Error("Respond(0) = true, want false")
	}
	if got := d.Pending(); got != 0 {
		t.Errorf("Pending() = %d, want 0", got)
	}
}

func TestDomain_RespondOnEmptyQueue(t *testing.T) {
	d := NewDomain[sig, int]()
	if d.Respond(0) {
		t.Error("Respond(0) on empty queue = true")
	}
	if d.Respond(3) {
		t.Error("Respond(3) on empty queue = true")
	}
}

func TestDomain_RespondLimit(t *testing.T) {
	d := NewDomain[sig, int]()
	var r recorder
	d.Connect(sigX, r.slot("x"))
	for i := 1; i <= 5; i++ {
		d.PushEvent(sigX, i)
	}

	if !d.Respond(2) {
		t.Error("Respond(2) = false, want true with events left")
	}
	if diff := cmp.Diff([]string{"x(1)", "x(2)"}, r.calls); diff != "" {
		t.Errorf("after Respond(2) (-want +got):\n%s", diff)
	}
	if got := d.Pending(); got != 3 {
		t.Errorf("Pending() = %d, want 3", got)
	}

	if d.Respond(0) {
		t.Error("Respond(0) = true, want false")
	}
	if diff := cmp.Diff([]string{"x(1)", "x(2)", "x(3)", "x(4)", "x(5)"}, r.calls); diff != "" {
		t.Errorf("after Respond(0) (-want +got):\n%s", diff)
	}
}

func TestDomain_RespondOneAtATime(t *testing.T) {
	// Scenario D.
	d := NewDomain[sig, int]()
	var r recorder
	d.Connect(sigX, r.slot("x"))
	d.PushEvent(sigX, 1)
	d.PushEvent(sigX, 2)
	d.PushEvent(sigX, 3)

	wantMore := []bool{true, true, false}
	for i, want := range wantMore {
		if got := d.Respond(1); got != want {
			t.Errorf("Respond(1) call %d = %v, want %v", i+1, got, want)
		}
		if len(r.calls) != i+1 {
			t.Fatalf("after call %d: %d events processed, want %d", i+1, len(r.calls), i+1)
		}
	}
	if diff := cmp.Diff([]string{"x(1)", "x(2)", "x(3)"}, r.calls); diff != "" {
		t.Errorf("consumption order mismatch (-want +got):\n%s", diff)
	}
}

func TestDomain_RespondNegativeLimitPanics(t *testing.T) {
	d := NewDomain[sig, int]()
	defer func() {
		if r := recover(); r == nil {
			t.Error("Respond(-1) should panic")
		}
	}()
	d.Respond(-1)
}

func TestDomain_DisconnectRemovesExactlyOne(t *testing.T) {
	d := NewDomain[sig, int]()
	var r recorder
	d.Connect(sigX, r.slot("a"))
	hb := d.Connect(sigX, r.slot("b"))
	hc := d.Connect(sigX, r.slot("c"))
	d.Connect(sigX, r.slot("d"))

	if err := d.Disconnect(hb); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if hb.Connected() {
		t.Error("disconnected handle reports Connected()")
	}
	if !hc.Connected() {
		t.Error("neighbour handle lost Connected()")
	}
	if got := d.Slots(sigX); got != 3 {
		t.Errorf("Slots(X) = %d, want 3", got)
	}

	d.PushEvent(sigX, 1)
	d.Respond(0)
	if diff := cmp.Diff([]string{"a(1)", "c(1)", "d(1)"}, r.calls); diff != "" {
		t.Errorf("remaining slots mismatch (-want +got):\n%s", diff)
	}

	// The neighbour handle is still usable.
	if err := d.Disconnect(hc); err != nil {
		t.Errorf("Disconnect(neighbour) error = %v", err)
	}
}

func TestDomain_DisconnectBeforeRespond(t *testing.T) {
	// Scenario C.
	d := NewDomain[sig, int]()
	calls := 0
	h := d.Connect(sigX, func(int) { calls++ })
	d.PushEvent(sigX, 1)
	if err := d.Disconnect(h); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	d.PushEvent(sigX, 2)
	d.Respond(0)

	if calls != 0 {
		t.Errorf("slot invoked %d times, want 0", calls)
	}
	if got := d.Slots(sigX); got != 0 {
		t.Errorf("Slots(X) = %d, want 0", got)
	}
}

func TestDomain_DisconnectRejectsBadHandles(t *testing.T) {
	d := NewDomain[sig, int]()
	other := NewDomain[sig, int]()
	h := d.Connect(sigX, func(int) {})
	foreign := other.Connect(sigX, func(int) {})

	tests := []struct {
		name   string
		handle Handle[sig]
		want   error
	}{
		{"zero handle", Handle[sig]{}, ErrInvalidHandle},
		{"foreign handle", foreign, ErrForeignHandle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := d.Disconnect(tt.handle); !errors.Is(err, tt.want) {
				t.Errorf("Disconnect() error = %v, want %v", err, tt.want)
			}
		})
	}

	if err := d.Disconnect(h); err != nil {
		t.Fatalf("first Disconnect() error = %v", err)
	}
	if err := d.Disconnect(h); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("second Disconnect() error = %v, want ErrStaleHandle", err)
	}
	if got := other.Slots(sigX); got != 1 {
		t.Errorf("other domain lost its slot: Slots(X) = %d", got)
	}
}

func TestDomain_PurgeEvents(t *testing.T) {
	d := NewDomain[sig, int]()
	var r recorder
	d.Connect(sigX, r.slot("x"))
	d.Connect(sigY, r.slot("y"))

	d.PushEvent(sigX, 1)
	d.PushEvent(sigY, 2)
	d.PushEvent(sigX, 3)
	d.PushEvent(sigY, 4)
	d.PushEvent(sigX, 5)

	if got := d.PurgeEvents(sigX); got != 3 {
		t.Errorf("PurgeEvents(X) = %d, want 3", got)
	}
	if got := d.PurgeEvents(sigZ); got != 0 {
		t.Errorf("PurgeEvents(Z) = %d, want 0", got)
	}
	if got := d.Pending(); got != 2 {
		t.Errorf("Pending() = %d, want 2", got)
	}

	d.Respond(0)
	if diff := cmp.Diff([]string{"y(2)", "y(4)"}, r.calls); diff != "" {
		t.Errorf("survivors mismatch (-want +got):\n%s", diff)
	}

	// Future events of the purged signal are unaffected.
	d.PushEvent(sigX, 6)
	d.Respond(0)
	if got := r.calls[len(r.calls)-1]; got != "x(6)" {
		t.Errorf("last call = %q, want x(6)", got)
	}
}

func TestDomain_PurgeNonMatchingHead(t *testing.T) {
	d := NewDomain[sig, int]()
	d.PushEvent(sigY, 1)
	d.PushEvent(sigY, 2)
	d.PushEvent(sigX, 3)

	if got := d.PurgeEvents(sigX); got != 1 {
		t.Errorf("PurgeEvents(X) = %d, want 1", got)
	}
	if got := d.Pending(); got != 2 {
		t.Errorf("Pending() = %d, want 2", got)
	}
}

func TestDomain_SelfDisconnectDuringDispatch(t *testing.T) {
	d := NewDomain[sig, int]()
	var r recorder
	var self Handle[sig]
	self = d.Connect(sigX, func(v int) {
		r.calls = append(r.calls, fmt.Sprintf("once(%d)", v))
		if err := d.Disconnect(self); err != nil {
			t.Errorf("self Disconnect() error = %v", err)
		}
	})
	d.Connect(sigX, r.slot("after"))

	d.PushEvent(sigX, 1)
	d.PushEvent(sigX, 2)
	d.Respond(0)

	want := []string{"once(1)", "after(1)", "after(2)"}
	if diff := cmp.Diff(want, r.calls); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDomain_DisconnectLaterSlotDuringDispatch(t *testing.T) {
	d := NewDomain[sig, int]()
	var r recorder
	var victim Handle[sig]
	d.Connect(sigX, func(v int) {
		r.calls = append(r.calls, fmt.Sprintf("killer(%d)", v))
		d.Disconnect(victim)
	})
	victim = d.Connect(sigX, r.slot("victim"))

	d.PushEvent(sigX, 1)
	d.Respond(0)

	if diff := cmp.Diff([]string{"killer(1)"}, r.calls); diff != "" {
		t.Errorf("disconnected slot still ran (-want +got):\n%s", diff)
	}
}

func TestDomain_ConnectDuringDispatchWaitsForNextEvent(t *testing.T) {
	d := NewDomain[sig, int]()
	var r recorder
	added := false
	d.Connect(sigX, func(v int) {
		r.calls = append(r.calls, fmt.Sprintf("first(%d)", v))
		if !added {
			added = true
			d.Connect(sigX, r.slot("late"))
		}
	})

	d.PushEvent(sigX, 1)
	d.PushEvent(sigX, 2)
	d.Respond(0)

	want := []string{"first(1)", "first(2)", "late(2)"}
	if diff := cmp.Diff(want, r.calls); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDomain_RespondZeroSkipsEventsPushedAfterPurge(t *testing.T) {
	d := NewDomain[sig, int]()
	var r recorder
	d.Connect(sigX, func(v int) {
		r.calls = append(r.calls, fmt.Sprintf("x(%d)", v))
		d.PurgeEvents(sigY)
		d.PushEvent(sigZ, 3)
	})
	d.Connect(sigZ, r.slot("z"))

	d.PushEvent(sigX, 1)
	d.PushEvent(sigY, 2)
	if !d.Respond(0) {
		t.Error("Respond(0) = false, want true with the later event queued")
	}
	if diff := cmp.Diff([]string{"x(1)"}, r.calls); diff != "" {
		t.Errorf("first drain mismatch (-want +got):\n%s", diff)
	}
	if got := d.Pending(); got != 1 {
		t.Errorf("Pending() = %d, want 1", got)
	}

	d.Respond(0)
	if diff := cmp.Diff([]string{"x(1)", "z(3)"}, r.calls); diff != "" {
		t.Errorf("second drain mismatch (-want +got):\n%s", diff)
	}
}

func TestDomain_PushDuringRespondDefersToNextCall(t *testing.T) {
	d := NewDomain[sig, int]()
	var r recorder
	d.Connect(sigX, func(v int) {
		r.calls = append(r.calls, fmt.Sprintf("x(%d)", v))
		if v < 3 {
			d.PushEvent(sigX, v+1)
		}
	})

	d.PushEvent(sigX, 1)
	if !d.Respond(0) {
		t.Error("Respond(0) = false, want true with re-published event queued")
	}
	if diff := cmp.Diff([]string{"x(1)"}, r.calls); diff != "" {
		t.Errorf("first drain mismatch (-want +got):\n%s", diff)
	}

	for d.Respond(0) {
	}
	if diff := cmp.Diff([]string{"x(1)", "x(2)", "x(3)"}, r.calls); diff != "" {
		t.Errorf("full drain mismatch (-want +got):\n%s", diff)
	}
}

func TestDomain_PurgeCurrentEventDuringDispatch(t *testing.T) {
	d := NewDomain[sig, int]()
	var r recorder
	d.Connect(sigX, func(v int) {
		r.calls = append(r.calls, fmt.Sprintf("x(%d)", v))
		d.PurgeEvents(sigX)
	})
	d.Connect(sigY, r.slot("y"))

	d.PushEvent(sigX, 1)
	d.PushEvent(sigY, 2)
	d.PushEvent(sigX, 3)

	if d.Respond(0) {
		t.Error("Respond(0) = true, want false")
	}
	if diff := cmp.Diff([]string{"x(1)", "y(2)"}, r.calls); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDomain_SlotPanicKeepsPartialProgress(t *testing.T) {
	d := NewDomain[sig, int]()
	var r recorder
	d.Connect(sigX, r.slot("x"))
	d.Connect(sigY, func(v int) { panic("boom") })
	d.Connect(sigY, r.slot("never"))

	d.PushEvent(sigX, 1)
	d.PushEvent(sigY, 2)
	d.PushEvent(sigX, 3)

	func() {
		defer func() {
			if rec := recover(); rec != "boom" {
				t.Errorf("recover() = %v, want boom", rec)
			}
		}()
		d.Respond(0)
	}()

	if diff := cmp.Diff([]string{"x(1)"}, r.calls); diff != "" {
		t.Errorf("processed before panic (-want +got):\n%s", diff)
	}
	// The failing event stays at the head together with everything after it.
	if got := d.Pending(); got != 2 {
		t.Errorf("Pending() = %d, want 2", got)
	}
}

func TestDomain_ConnectNilSlotPanics(t *testing.T) {
	d := NewDomain[sig, int]()
	defer func() {
		if r := recover(); r == nil {
			t.Error("Connect(nil) should panic")
		}
	}()
	d.Connect(sigX, nil)
}

func TestDomain_IndependentDomains(t *testing.T) {
	ints := NewDomain[sig, int]()
	strs := NewDomain[sig, string]()
	var got []string
	ints.Connect(sigX, func(v int) { got = append(got, fmt.Sprint("int ", v)) })
	strs.Connect(sigX, func(v string) { got = append(got, "string "+v) })

	ints.PushEvent(sigX, 1)
	if strs.Respond(0) {
		t.Error("string domain saw an int event")
	}
	ints.Respond(0)
	if diff := cmp.Diff([]string{"int 1"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDomain_PointerArgumentsAreShared(t *testing.T) {
	type operands struct {
		acc *float64
		by  float64
	}
	d := NewDomain[sig, operands]()
	d.Connect(sigX, func(o operands) { *o.acc += o.by })

	acc := 1.0
	d.PushEvent(sigX, operands{acc: &acc, by: 2})
	acc = 10
	d.Respond(0)

	if acc != 12 {
		t.Errorf("acc = %v, want 12 (slot must see the caller's storage)", acc)
	}
}

type observed struct {
	connected, disconnected, pushed, dispatched, purged int
	lastSlots, lastQueueLen                            int
}

func (o *observed) SlotConnected(string, int)    { o.connected++ }
func (o *observed) SlotDisconnected(string, int) { o.disconnected++ }
func (o *observed) EventPushed(string, int)      { o.pushed++ }
func (o *observed) EventDispatched(_ string, slots, queueLen int, _ time.Duration) {
	o.dispatched++
	o.lastSlots = slots
	o.lastQueueLen = queueLen
}
func (o *observed) EventsPurged(_ string, removed, _ int) { o.purged += removed }

func TestDomain_Observer(t *testing.T) {
	obs := &observed{}
	d := NewDomain[sig, int](WithName("observed"), WithObserver(obs))
	if d.Name() != "observed" {
		t.Errorf("Name() = %q", d.Name())
	}

	h := d.Connect(sigX, func(int) {})
	d.Connect(sigX, func(int) {})
	d.Disconnect(h)
	d.PushEvent(sigX, 1)
	d.PushEvent(sigY, 2)
	d.PushEvent(sigY, 3)
	d.PurgeEvents(sigY)
	d.Respond(0)

	want := observed{connected: 2, disconnected: 1, pushed: 3, dispatched: 1, purged: 2, lastSlots: 1, lastQueueLen: 0}
	if diff := cmp.Diff(want, *obs, cmp.AllowUnexported(observed{})); diff != "" {
		t.Errorf("observer counts mismatch (-want +got):\n%s", diff)
	}
}
