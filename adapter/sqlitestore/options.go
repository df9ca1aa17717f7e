package sqlitestore

import "log/slog"

// Option configures a [Provider].
type Option func(*Provider)

// WithCorruptAlertThreshold sets the share of unreadable documents above
// which loading a collection fails.
func WithCorruptAlertThreshold(c float64) Option {
	return func(p *Provider) {
		p.corruptAlertThreshold = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = l
	}
}

// WithDirMode sets the permissions used when creating the parent directory
// of the database file.
func WithDirMode(m uint32) Option {
	return func(p *Provider) {
		p.dirMode = m
	}
}
