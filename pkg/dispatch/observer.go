package dispatch

import "time"

// Observer receives notifications about a domain's activity. Signals are
// passed in their fmt.Sprint form. Calls are made without the domain lock
// held, on the goroutine performing the operation.
type Observer interface {
	SlotConnected(signal string, chainLen int)
	SlotDisconnected(signal string, chainLen int)
	EventPushed(signal string, queueLen int)
	// EventDispatched is called after every slot of an event returned and
	// the event left the queue. queueLen is the depth at that point.
	EventDispatched(signal string, slots, queueLen int, elapsed time.Duration)
	EventsPurged(signal string, removed, queueLen int)
}

type nopObserver struct{}

func (nopObserver) SlotConnected(string, int)                       {}
func (nopObserver) SlotDisconnected(string, int)                    {}
func (nopObserver) EventPushed(string, int)                         {}
func (nopObserver) EventDispatched(string, int, int, time.Duration) {}
func (nopObserver) EventsPurged(string, int, int)                   {}
