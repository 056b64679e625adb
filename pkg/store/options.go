// Package store holds the console's client-side state containers: the
// session, the user/role/permission collections, per-user authorization
// caches and the health dashboard. Each store is constructed explicitly,
// owns its state and exposes Subscribe for re-rendering.
package store

import (
	"time"

	"github.com/terraconstructs/iamctl/pkg/notify"
	"go.uber.org/zap"
)

type options struct {
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a store.
type Option func(*options)

// WithNotifier routes success/failure notifications to n.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func applyOptions(opts []Option) options {
	o := options{
		notifier: notify.Discard,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.notifier == nil {
		o.notifier = notify.Discard
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}
