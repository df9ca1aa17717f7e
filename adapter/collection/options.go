package collection

import (
	"log/slog"

	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// Option configures a [Collection].
type Option func(*Collection)

// WithPersistence sets where the collection keeps its change log. Without
// it the collection lives in memory only.
func WithPersistence(p domain.Persistence) Option {
	return func(c *Collection) {
		c.persistence = p
	}
}

// WithLogger sets the logger. Messages carry the collection name.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collection) {
		c.logger = l
	}
}

// WithMetrics sets the collector receiving operation measurements.
func WithMetrics(m domain.MetricsCollector) Option {
	return func(c *Collection) {
		c.metrics = m
	}
}

// WithComparer sets the value order used by indexes, queries and
// aggregations.
func WithComparer(cmp domain.Comparer) Option {
	return func(c *Collection) {
		c.comparer = cmp
	}
}

// WithHasher sets the hasher used to group aggregation input.
func WithHasher(h domain.Hasher) Option {
	return func(c *Collection) {
		c.hasher = h
	}
}

// WithModifier sets how updates are merged into stored documents.
func WithModifier(m domain.Modifier) Option {
	return func(c *Collection) {
		c.modifier = m
	}
}

// WithProjector sets how Find reshapes its results.
func WithProjector(p domain.Projector) Option {
	return func(c *Collection) {
		c.projector = p
	}
}

// WithDecoder sets the decoder used by cursors returned from Find.
func WithDecoder(d domain.Decoder) Option {
	return func(c *Collection) {
		c.decoder = d
	}
}

// WithMaxID limits the identifier space of the collection. Zero means the
// whole uint32 range.
func WithMaxID(m uint32) Option {
	return func(c *Collection) {
		c.maxID = m
	}
}

// IndexOption configures an index created with [Collection.CreateIndex].
type IndexOption func(*domain.IndexDTO)

// WithUnique makes the index reject two documents sharing a value.
func WithUnique(u bool) IndexOption {
	return func(dto *domain.IndexDTO) {
		dto.Unique = u
	}
}
