package reactor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fluxorio/handlebars/pkg/core"
)

var (
	// ErrBackpressure is returned by Submit when the mailbox is full.
	ErrBackpressure = &core.Error{Code: "BACKPRESSURE", Message: "reactor mailbox is full"}
	// ErrStopped is returned once the reactor loop has been asked to exit.
	ErrStopped = &core.Error{Code: "REACTOR_STOPPED", Message: "reactor is stopped"}
	// ErrAlreadyRunning is returned by a second call to Run or Start.
	ErrAlreadyRunning = &core.Error{Code: "REACTOR_RUNNING", Message: "reactor is already running"}
	// ErrPanicked wraps the panic of a closure passed to Execute.
	ErrPanicked = &core.Error{Code: "REACTOR_PANIC", Message: "reactor closure panicked"}
)

// Drainer is the part of a dispatch.Domain the reactor drives.
type Drainer interface {
	Respond(limit int) bool
}

// Options configures a Reactor. Zero values select the defaults.
type Options struct {
	// MailboxSize bounds closures waiting to run. Default 256.
	MailboxSize int
	// Interval between two drains. Default 50ms.
	Interval time.Duration
	// RespondLimit is passed to Respond on every tick; 0 drains the queue.
	RespondLimit int
	Logger       core.Logger
}

// Reactor owns a domain on a single goroutine. Closures handed to Submit or
// Execute and the periodic drain never run concurrently, so slots and the
// code that connects them need no locking of their own.
type Reactor struct {
	name    string
	drainer Drainer
	mailbox chan func()

	interval time.Duration
	limit    int
	logger   core.Logger

	running  atomic.Bool
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
	err      error
}

// NewReactor creates a reactor draining d. It does nothing until Run or
// Start is called.
func NewReactor(name string, d Drainer, opts Options) *Reactor {
	core.FailFastIf(d == nil, "reactor drainer cannot be nil")
	core.FailFast(core.ValidateLimit(opts.RespondLimit))
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = 256
	}
	if opts.Interval <= 0 {
		opts.Interval = 50 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = core.NopLogger()
	}
	return &Reactor{
		name:     name,
		drainer:  d,
		mailbox:  make(chan func(), opts.MailboxSize),
		interval: opts.Interval,
		limit:    opts.RespondLimit,
		logger:   opts.Logger.WithFields(map[string]interface{}{"reactor": name}),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Name returns the reactor name.
func (r *Reactor) Name() string {
	return r.name
}

// Submit queues fn without waiting for it to run.
func (r *Reactor) Submit(fn func()) error {
	core.FailFastIf(fn == nil, "reactor closure cannot be nil")
	select {
	case <-r.quit:
		return ErrStopped
	default:
	}
	select {
	case r.mailbox <- fn:
		return nil
	default:
		return ErrBackpressure
	}
}

// Execute runs fn on the reactor goroutine and waits for it to return.
// If fn panics the loop ends and Execute returns an error wrapping
// ErrPanicked.
func (r *Reactor) Execute(ctx context.Context, fn func()) error {
	core.FailFastIf(fn == nil, "reactor closure cannot be nil")
	finished := make(chan struct{})
	var panicked any
	wrapped := func() {
		defer close(finished)
		defer func() {
			if rec := recover(); rec != nil {
				panicked = rec
				panic(rec)
			}
		}()
		fn()
	}
	result := func() error {
		if panicked != nil {
			return fmt.Errorf("%w: %v", ErrPanicked, panicked)
		}
		return nil
	}

	select {
	case r.mailbox <- wrapped:
	case <-r.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return result()
	case <-r.done:
		select {
		case <-finished:
			return result()
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start runs the loop on a new goroutine. Use Stop to end it.
func (r *Reactor) Start() error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	go r.loop(context.Background())
	return nil
}

// Run runs the loop on the calling goroutine until ctx is cancelled or Stop
// is called. Before returning it runs the closures still in the mailbox and
// drains the domain once more. A panic in a closure or slot ends the loop
// and is returned as an error, also from Err.
func (r *Reactor) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	return r.loop(ctx)
}

// Stop asks the loop to exit and waits until it has, or until ctx is done.
func (r *Reactor) Stop(ctx context.Context) error {
	r.quitOnce.Do(func() { close(r.quit) })
	if !r.running.Load() {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the loop has exited.
func (r *Reactor) Done() <-chan struct{} {
	return r.done
}

// Err returns the error the loop exited with, once Done is closed.
func (r *Reactor) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

func (r *Reactor) loop(ctx context.Context) (err error) {
	defer func() {
		r.err = err
		close(r.done)
	}()

	r.logger.Debug("reactor started")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := r.shutdown(); err != nil {
				return err
			}
			return ctx.Err()
		case <-r.quit:
			return r.shutdown()
		case fn := <-r.mailbox:
			if err := r.safely(fn); err != nil {
				return err
			}
		case <-ticker.C:
			if err := r.safely(func() { r.drainer.Respond(r.limit) }); err != nil {
				return err
			}
		}
	}
}

// shutdown runs what is left in the mailbox and drains the domain once.
func (r *Reactor) shutdown() error {
	r.quitOnce.Do(func() { close(r.quit) })
	for len(r.mailbox) > 0 {
		if err := r.safely(<-r.mailbox); err != nil {
			return err
		}
	}
	if err := r.safely(func() { r.drainer.Respond(0) }); err != nil {
		return err
	}
	r.logger.Debug("reactor stopped")
	return nil
}

func (r *Reactor) safely(fn func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("reactor %s: panic: %v", r.name, rec)
			r.logger.Error(err)
		}
	}()
	fn()
	return nil
}
