package badgerstore

import "log/slog"

// Option configures a [Provider].
type Option func(*Provider)

// WithInMemory keeps the whole database in memory. The directory is ignored.
func WithInMemory(b bool) Option {
	return func(p *Provider) {
		p.inMemory = b
	}
}

// WithSyncWrites makes every commit wait for the value log to be synced.
func WithSyncWrites(b bool) Option {
	return func(p *Provider) {
		p.syncWrites = b
	}
}

// WithCorruptAlertThreshold sets the share of unreadable documents above
// which loading a collection fails.
func WithCorruptAlertThreshold(c float64) Option {
	return func(p *Provider) {
		p.corruptAlertThreshold = c
	}
}

// WithLogger sets the logger receiving both provider and badger messages.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = l
	}
}
