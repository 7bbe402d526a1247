package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fluxorio/handlebars/pkg/dispatch"
	"github.com/fluxorio/handlebars/pkg/reactor"
)

// Op is the signal of the arithmetic demo.
type Op int

const (
	Add Op = iota
	Subtract
	Multiply
	Divide
)

func (o Op) String() string {
	switch o {
	case Add:
		return "add"
	case Subtract:
		return "subtract"
	case Multiply:
		return "multiply"
	case Divide:
		return "divide"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Operands updates Acc in place when the event is dispatched.
type Operands struct {
	Acc *float64
	By  float64
}

// Calculator answers every Op on its domain.
type Calculator struct {
	out    io.Writer
	events *dispatch.Handler[Op, Operands, *Calculator]
}

// NewCalculator connects a calculator for every Op on d.
func NewCalculator(d *dispatch.Domain[Op, Operands], out io.Writer) *Calculator {
	c := &Calculator{out: out}
	c.events = dispatch.NewHandler(d, c)
	dispatch.HandlerConnectBind(c.events, Add, (*Calculator).apply, "+")
	dispatch.HandlerConnectBind(c.events, Subtract, (*Calculator).apply, "-")
	dispatch.HandlerConnectBind(c.events, Multiply, (*Calculator).apply, "*")
	dispatch.HandlerConnectBind(c.events, Divide, (*Calculator).apply, "/")
	return c
}

func (c *Calculator) apply(sym string, o Operands) {
	before := *o.Acc
	switch sym {
	case "+":
		*o.Acc = before + o.By
	case "-":
		*o.Acc = before - o.By
	case "*":
		*o.Acc = before * o.By
	case "/":
		*o.Acc = before / o.By
	}
	fmt.Fprintf(c.out, "%g %s %g = %g\n", before, sym, o.By, *o.Acc)
}

// Close disconnects the calculator from its domain.
func (c *Calculator) Close() { c.events.Close() }

func runArithmetic(ctx context.Context, a *app) error {
	d := dispatch.NewDomain[Op, Operands](a.domainOptions("arithmetic")...)
	calc := NewCalculator(d, a.out)
	defer calc.Close()

	acc := 1.0
	err := a.drive(ctx, d, func(r *reactor.Reactor) error {
		return r.Execute(ctx, func() {
			calc.events.PushEvent(Add, Operands{Acc: &acc, By: 1})
			calc.events.PushEvent(Subtract, Operands{Acc: &acc, By: 0.5})
			calc.events.PushEvent(Multiply, Operands{Acc: &acc, By: 10})
			calc.events.PushEvent(Divide, Operands{Acc: &acc, By: 2})
		})
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "result: %g\n", acc)
	return nil
}
