package persistence

import (
	"log/slog"
	"os"

	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// WithFilename sets the datafile of the collection.
func WithFilename(f string) Option {
	return func(po *Persistence) {
		po.filename = f
	}
}

// WithInMemoryOnly disables every file operation.
func WithInMemoryOnly(i bool) Option {
	return func(po *Persistence) {
		po.inMemoryOnly = i
	}
}

// WithCorruptAlertThreshold sets the share of unreadable lines above which
// loading fails.
func WithCorruptAlertThreshold(c float64) Option {
	return func(po *Persistence) {
		po.corruptAlertThreshold = c
	}
}

// WithFileMode sets the file permissions for datafiles.
func WithFileMode(f os.FileMode) Option {
	return func(po *Persistence) {
		po.fileMode = f
	}
}

// WithDirMode sets the directory permissions for datafile directories.
func WithDirMode(d os.FileMode) Option {
	return func(po *Persistence) {
		po.dirMode = d
	}
}

// WithSerializer sets the serializer for converting records to bytes.
func WithSerializer(s domain.Serializer) Option {
	return func(po *Persistence) {
		po.serializer = s
	}
}

// WithDeserializer sets the deserializer for converting bytes to records.
func WithDeserializer(d domain.Deserializer) Option {
	return func(po *Persistence) {
		po.deserializer = d
	}
}

// WithStorage sets the storage implementation for file operations.
func WithStorage(s domain.Storage) Option {
	return func(po *Persistence) {
		po.storage = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(po *Persistence) {
		po.logger = l
	}
}

// Option configures persistence behavior through the functional
// options pattern.
type Option func(*Persistence)
