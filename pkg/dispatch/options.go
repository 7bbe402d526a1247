package dispatch

import "github.com/fluxorio/handlebars/pkg/core"

type options struct {
	name     string
	logger   core.Logger
	observer Observer
}

// Option configures a Domain.
type Option func(*options)

// WithName labels the domain in logs and metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger used for registry changes. Domains are silent
// by default.
func WithLogger(logger core.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver installs an Observer.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}
