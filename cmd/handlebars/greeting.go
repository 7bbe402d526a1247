package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fluxorio/handlebars/pkg/dispatch"
	"github.com/fluxorio/handlebars/pkg/observability/otel"
	"github.com/fluxorio/handlebars/pkg/reactor"
)

// Greeting is the signal of the greeting demo.
type Greeting int

const (
	Open Greeting = iota
	Print
	Close
)

func (g Greeting) String() string {
	switch g {
	case Open:
		return "open"
	case Print:
		return "print"
	case Close:
		return "close"
	}
	return fmt.Sprintf("greeting(%d)", int(g))
}

// Greeter says hello and goodbye under its own name.
type Greeter struct {
	name   string
	out    io.Writer
	events *dispatch.Handler[Greeting, string, *Greeter]
}

// NewGreeter connects a greeter for every Greeting on d.
func NewGreeter(d *dispatch.Domain[Greeting, string], name string, out io.Writer) *Greeter {
	g := &Greeter{name: name, out: out}
	g.events = dispatch.NewHandler(d, g)
	dispatch.HandlerConnectBind(g.events, Open, (*Greeter).Open, g.name)
	g.events.Connect(Print, (*Greeter).Print)
	dispatch.HandlerConnectBind(g.events, Close, (*Greeter).Goodbye, g.name)
	return g
}

// Open greets name and prints msg.
func (g *Greeter) Open(name, msg string) {
	fmt.Fprintf(g.out, "Hello, %s!\n%s\n", name, msg)
}

// Print prints msg.
func (g *Greeter) Print(msg string) {
	fmt.Fprintln(g.out, msg)
}

// Goodbye bids name farewell and prints msg.
func (g *Greeter) Goodbye(name, msg string) {
	fmt.Fprintf(g.out, "Goodbye %s.\n%s\n", name, msg)
}

// Close disconnects the greeter from its domain.
func (g *Greeter) Close() { g.events.Close() }

func runGreeting(ctx context.Context, a *app) error {
	d := dispatch.NewDomain[Greeting, string](a.domainOptions("greeting")...)
	steve := NewGreeter(d, "Steve", a.out)
	hank := NewGreeter(d, "Hank", a.out)

	var heard int
	transcript := d.Connect(Print, otel.TracedSlot("transcript", func(string) { heard++ }))

	err := a.drive(ctx, d, func(r *reactor.Reactor) error {
		if err := r.Execute(ctx, func() {
			d.PushEvent(Open, "How are you?")
			d.PushEvent(Print, "hmm...")
			d.PushEvent(Close, "See you later.")
		}); err != nil {
			return err
		}
		// Both greeters leave; the queued Print reaches only the transcript.
		return r.Execute(ctx, func() {
			d.Respond(0)
			steve.Close()
			hank.Close()
			d.PushEvent(Print, "nobody listens")
		})
	})
	if err != nil {
		return err
	}
	if err := d.Disconnect(transcript); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "transcript: %d messages\n", heard)
	return nil
}
