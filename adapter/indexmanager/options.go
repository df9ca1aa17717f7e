package indexmanager

import (
	"log/slog"

	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// WithIndexFactory sets the function building new indexes.
func WithIndexFactory(f IndexFactory) Option {
	return func(m *Manager) {
		m.indexFactory = f
	}
}

// WithComparer sets the comparer used by indexes and scan fallbacks.
func WithComparer(c domain.Comparer) Option {
	return func(m *Manager) {
		m.comparer = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// Option configures behavior through the functional options pattern.
type Option func(*Manager)
