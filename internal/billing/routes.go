package billing

import (
	"context"
	"time"

	"billed/internal/log"
)

// Navigation targets.
const (
	PathBills   = "/bills"
	PathNewBill = "/bills/new"
)

// Navigator changes the displayed page. It may be called from background
// goroutines.
type Navigator func(path string)

type options struct {
	logger  *log.Logger
	timeout time.Duration
}

// Option configures Submission and Listing.
type Option func(*options)

// WithLogger sets the logger used for background failures.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTimeout bounds each background store call. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func newOptions(component string, opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.New(log.DefaultConfig())
	}
	o.logger = o.logger.WithComponent(component)
	return o
}

// detach returns a context that outlives the request that started the call.
func (o options) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if o.timeout > 0 {
		return context.WithTimeout(ctx, o.timeout)
	}
	return context.WithCancel(ctx)
}

func (n Navigator) to(path string) {
	if n != nil {
		n(path)
	}
}
