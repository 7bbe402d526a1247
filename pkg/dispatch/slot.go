package dispatch

import "github.com/fluxorio/handlebars/pkg/core"

// Slot is a callback invoked with the argument bundle of an event.
type Slot[A any] func(args A)

// Bind returns a slot that calls fn with bound ahead of the event arguments.
// bound is captured when Bind is called.
func Bind[B, A any](fn func(bound B, args A), bound B) Slot[A] {
	core.FailFastIf(fn == nil, "bind: function cannot be nil")
	return func(args A) { fn(bound, args) }
}

// Member returns a slot that applies method to target. method is usually a
// method expression such as (*Calculator).Add; target may be a pointer, in
// which case the pointee must outlive the slot, or a value, which the slot
// keeps its own copy of.
func Member[T, A any](target T, method func(T, A)) Slot[A] {
	core.FailFastIf(method == nil, "member: method cannot be nil")
	return func(args A) { method(target, args) }
}

// BindMember combines Member and Bind: method is applied to target with
// bound ahead of the event arguments.
func BindMember[T, B, A any](target T, method func(T, B, A), bound B) Slot[A] {
	core.FailFastIf(method == nil, "bind member: method cannot be nil")
	return func(args A) { method(target, bound, args) }
}

// ConnectBind connects fn to signal with bound supplied before the event
// arguments on every call.
func ConnectBind[S comparable, A, B any](d *Domain[S, A], signal S, fn func(B, A), bound B) Handle[S] {
	return d.Connect(signal, Bind(fn, bound))
}

// ConnectMember connects method applied to target.
func ConnectMember[S comparable, A, T any](d *Domain[S, A], signal S, target T, method func(T, A)) Handle[S] {
	return d.Connect(signal, Member(target, method))
}

// ConnectBindMember connects method applied to target with bound supplied
// before the event arguments.
func ConnectBindMember[S comparable, A, T, B any](d *Domain[S, A], signal S, target T, method func(T, B, A), bound B) Handle[S] {
	return d.Connect(signal, BindMember(target, method, bound))
}
