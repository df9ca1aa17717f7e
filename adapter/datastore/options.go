package datastore

import (
	"log/slog"
	"os"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/snapshot"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// Option configures a [Datastore].
type Option func(*Datastore)

// WithDir sets the directory holding one datafile per collection.
func WithDir(dir string) Option {
	return func(d *Datastore) {
		d.dir = dir
	}
}

// WithInMemoryOnly disables persistence. Every collection starts empty.
func WithInMemoryOnly(i bool) Option {
	return func(d *Datastore) {
		d.inMemoryOnly = i
	}
}

// WithPersistenceProvider replaces the datafile directory with another
// backend, such as badgerstore or sqlitestore. The datastore closes it.
func WithPersistenceProvider(p domain.PersistenceProvider) Option {
	return func(d *Datastore) {
		d.provider = p
	}
}

// WithCorruptAlertThreshold sets the share of unreadable datafile lines
// tolerated when loading.
func WithCorruptAlertThreshold(c float64) Option {
	return func(d *Datastore) {
		d.corruptAlertThreshold = &c
	}
}

// WithFileMode sets the permissions of new datafiles.
func WithFileMode(m os.FileMode) Option {
	return func(d *Datastore) {
		d.fileMode = m
	}
}

// WithDirMode sets the permissions of new directories.
func WithDirMode(m os.FileMode) Option {
	return func(d *Datastore) {
		d.dirMode = m
	}
}

// WithLogger sets the logger shared by every collection.
func WithLogger(l *slog.Logger) Option {
	return func(d *Datastore) {
		d.logger = l
	}
}

// WithMetrics sets the collector shared by every collection.
func WithMetrics(m domain.MetricsCollector) Option {
	return func(d *Datastore) {
		d.metrics = m
	}
}

// WithComparer sets the value order used by every collection.
func WithComparer(c domain.Comparer) Option {
	return func(d *Datastore) {
		d.comparer = c
	}
}

// WithHasher sets the hasher used by aggregations.
func WithHasher(h domain.Hasher) Option {
	return func(d *Datastore) {
		d.hasher = h
	}
}

// WithModifier sets how updates are merged into stored documents.
func WithModifier(m domain.Modifier) Option {
	return func(d *Datastore) {
		d.modifier = m
	}
}

// WithDecoder sets the decoder used by cursors.
func WithDecoder(dec domain.Decoder) Option {
	return func(d *Datastore) {
		d.decoder = dec
	}
}

// WithSnapshotCodec sets the compression of backups.
func WithSnapshotCodec(c snapshot.Codec) Option {
	return func(d *Datastore) {
		d.snapshotCodec = c
	}
}

// WithTimeGetter sets the clock stamping backups.
func WithTimeGetter(t domain.TimeGetter) Option {
	return func(d *Datastore) {
		d.timeGetter = t
	}
}

// WithLoadConcurrency limits how many collections are loaded or compacted
// at the same time.
func WithLoadConcurrency(n int) Option {
	return func(d *Datastore) {
		d.concurrency = n
	}
}
