package snapshot

import (
	"github.com/klauspost/compress/zstd"

	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// Option configures a [Snapshotter].
type Option func(*Snapshotter)

// WithCodec sets the compression used when writing. Reading detects the
// codec from the stream.
func WithCodec(c Codec) Option {
	return func(s *Snapshotter) {
		s.codec = c
	}
}

// WithZstdLevel sets the zstd encoder level.
func WithZstdLevel(l zstd.EncoderLevel) Option {
	return func(s *Snapshotter) {
		s.zstdLevel = l
	}
}

// WithSerializer sets the serializer for collection records.
func WithSerializer(sr domain.Serializer) Option {
	return func(s *Snapshotter) {
		s.serializer = sr
	}
}

// WithDeserializer sets the deserializer for collection records.
func WithDeserializer(d domain.Deserializer) Option {
	return func(s *Snapshotter) {
		s.deserializer = d
	}
}

// WithTimeGetter sets the clock stamping new snapshots.
func WithTimeGetter(t domain.TimeGetter) Option {
	return func(s *Snapshotter) {
		s.timeGetter = t
	}
}
