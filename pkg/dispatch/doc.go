// Package dispatch implements a synchronous, in-process signal/slot
// dispatcher.
//
// A Domain maps signal values to ordered chains of slots and owns a FIFO
// queue of pending events. Producers enqueue events with PushEvent; nothing
// runs until the owning goroutine calls Respond, which invokes every slot of
// each dequeued event's signal in connection order.
//
//	type Op int
//
//	d := dispatch.NewDomain[Op, float64]()
//	h := d.Connect(Add, func(v float64) { total += v })
//	d.PushEvent(Add, 2)
//	d.Respond(0)
//	d.Disconnect(h)
//
// Slots may close over anything. Arguments are captured as written: an event
// whose argument bundle holds a pointer shares that pointer with the caller,
// so the pointee must stay valid until the event is drained. The same
// applies to pointer values passed to Bind and BindMember.
//
// Types that register their own methods compose a Handler, which records
// every handle it creates and disconnects them all on Close.
package dispatch
