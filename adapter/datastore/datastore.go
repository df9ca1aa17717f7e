// Package datastore holds the named collections of a database and their
// shared persistence backend.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/collection"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/comparer"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/data"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/decoder"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/hasher"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/metrics"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/modifier"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/persistence"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/snapshot"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/timegetter"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
	"github.com/Budskyman/BigData-Praktikum-2025/pkg/ctxsync"
)

// DefaultLoadConcurrency is the number of collections loaded at once.
const DefaultLoadConcurrency = 4

// Datastore is a set of named collections. It is safe for concurrent use.
type Datastore struct {
	mu          *ctxsync.Mutex
	collections map[string]*collection.Collection
	closed      bool

	dir                   string
	inMemoryOnly          bool
	provider              domain.PersistenceProvider
	corruptAlertThreshold *float64
	fileMode              os.FileMode
	dirMode               os.FileMode
	logger                *slog.Logger
	metrics               domain.MetricsCollector
	comparer              domain.Comparer
	hasher                domain.Hasher
	modifier              domain.Modifier
	decoder               domain.Decoder
	snapshotCodec         snapshot.Codec
	timeGetter            domain.TimeGetter
	concurrency           int
	snapshotter           *snapshot.Snapshotter
}

// Open opens the database and loads every collection its persistence
// holds, compacting their datafiles.
func Open(ctx context.Context, options ...Option) (*Datastore, error) {
	d := Datastore{
		mu:            ctxsync.NewMutex(),
		collections:   make(map[string]*collection.Collection),
		logger:        slog.New(slog.DiscardHandler),
		metrics:       metrics.NewNoop(),
		comparer:      comparer.NewComparer(),
		hasher:        hasher.NewHasher(),
		modifier:      modifier.NewModifier(),
		decoder:       decoder.NewDecoder(),
		snapshotCodec: snapshot.CodecZstd,
		timeGetter:    timegetter.NewTimeGetter(),
		concurrency:   DefaultLoadConcurrency,
	}
	for _, option := range options {
		option(&d)
	}
	if d.provider == nil {
		if d.dir == "" && !d.inMemoryOnly {
			return nil, domain.ErrDatafileName{Name: d.dir, Reason: "a directory is required unless the database is in memory only"}
		}
		d.provider = d.fileProvider()
	}
	d.snapshotter = snapshot.NewSnapshotter(
		snapshot.WithCodec(d.snapshotCodec),
		snapshot.WithTimeGetter(d.timeGetter),
	)

	start := time.Now()
	names, err := d.provider.Collections(ctx)
	if err != nil {
		return nil, errors.Join(err, d.provider.Close())
	}

	loaded := make([]*collection.Collection, len(names))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for n, name := range names {
		g.Go(func() error {
			c, err := d.open(gCtx, name)
			if err != nil {
				return fmt.Errorf("loading collection %q: %w", name, err)
			}
			loaded[n] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Join(err, d.provider.Close())
	}
	for _, c := range loaded {
		d.collections[c.Name()] = c
	}

	d.logger.Info("database opened",
		slog.Int("count", len(names)),
		slog.Duration("duration", time.Since(start)),
	)
	return &d, nil
}

func (d *Datastore) fileProvider() domain.PersistenceProvider {
	opts := []persistence.Option{persistence.WithLogger(d.logger)}
	if d.corruptAlertThreshold != nil {
		opts = append(opts, persistence.WithCorruptAlertThreshold(*d.corruptAlertThreshold))
	}
	if d.fileMode != 0 {
		opts = append(opts, persistence.WithFileMode(d.fileMode))
	}
	if d.dirMode != 0 {
		opts = append(opts, persistence.WithDirMode(d.dirMode))
	}
	dir := d.dir
	if d.inMemoryOnly {
		dir = ""
	}
	return persistence.NewProvider(dir, opts...)
}

// open creates the handle of a collection and loads it.
func (d *Datastore) open(ctx context.Context, name string) (*collection.Collection, error) {
	p, err := d.provider.Persistence(ctx, name)
	if err != nil {
		return nil, err
	}
	c, err := collection.NewCollection(name, d.collectionOptions(collection.WithPersistence(p))...)
	if err != nil {
		return nil, err
	}
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (d *Datastore) collectionOptions(extra ...collection.Option) []collection.Option {
	return append([]collection.Option{
		collection.WithLogger(d.logger),
		collection.WithMetrics(d.metrics),
		collection.WithComparer(d.comparer),
		collection.WithHasher(d.hasher),
		collection.WithModifier(d.modifier),
		collection.WithDecoder(d.decoder),
	}, extra...)
}

func (d *Datastore) lock(ctx context.Context) error {
	if err := d.mu.LockWithContext(ctx); err != nil {
		return err
	}
	if d.closed {
		d.mu.Unlock()
		return domain.ErrClosed
	}
	return nil
}

// Collection returns the collection called name, creating it when needed.
func (d *Datastore) Collection(ctx context.Context, name string) (*collection.Collection, error) {
	if err := d.lock(ctx); err != nil {
		return nil, err
	}
	defer d.mu.Unlock()
	return d.collection(ctx, name)
}

func (d *Datastore) collection(ctx context.Context, name string) (*collection.Collection, error) {
	if c, ok := d.collections[name]; ok {
		return c, nil
	}
	if err := data.CheckCollectionName(name); err != nil {
		return nil, err
	}
	c, err := d.open(ctx, name)
	if err != nil {
		return nil, err
	}
	d.collections[name] = c
	d.logger.Debug("collection created", slog.String("collection", name))
	return c, nil
}

// Collections returns the sorted names of every collection.
func (d *Datastore) Collections(ctx context.Context) ([]string, error) {
	if err := d.lock(ctx); err != nil {
		return nil, err
	}
	defer d.mu.Unlock()
	return slices.Sorted(maps.Keys(d.collections)), nil
}

// DropCollection removes a collection and its persisted data. Handles
// obtained before keep returning [domain.ErrNotFound].
func (d *Datastore) DropCollection(ctx context.Context, name string) error {
	if err := d.lock(ctx); err != nil {
		return err
	}
	defer d.mu.Unlock()

	c, ok := d.collections[name]
	if !ok {
		return fmt.Errorf("%w: collection %q", domain.ErrNotFound, name)
	}
	if err := c.Drop(ctx); err != nil {
		return err
	}
	delete(d.collections, name)
	return nil
}

// Compact rewrites the persisted data of every collection.
func (d *Datastore) Compact(ctx context.Context) error {
	if err := d.lock(ctx); err != nil {
		return err
	}
	defer d.mu.Unlock()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for _, c := range d.collections {
		g.Go(func() error {
			return c.Compact(gCtx)
		})
	}
	return g.Wait()
}

// Backup writes a compressed snapshot of every collection to w. Each
// collection is copied under its own read lock.
func (d *Datastore) Backup(ctx context.Context, w io.Writer) (domain.SnapshotInfo, error) {
	if err := d.lock(ctx); err != nil {
		return domain.SnapshotInfo{}, err
	}
	defer d.mu.Unlock()

	names := slices.Sorted(maps.Keys(d.collections))
	cols := make([]snapshot.Collection, 0, len(names))
	for _, name := range names {
		entries, indexes, err := d.collections[name].Dump(ctx)
		if err != nil {
			return domain.SnapshotInfo{}, err
		}
		cols = append(cols, snapshot.Collection{Name: name, Entries: entries, Indexes: indexes})
	}

	info, err := d.snapshotter.Write(ctx, w, cols)
	if err != nil {
		return domain.SnapshotInfo{}, err
	}
	d.logger.Info("backup written",
		slog.String("id", info.ID),
		slog.Int("count", info.Documents),
		slog.String("codec", info.Codec),
	)
	return info, nil
}

// Restore replaces the whole database with the snapshot read from r.
// Collections missing from the snapshot are dropped. The snapshot is read
// and every collection in it is checked before anything changes, so a bad
// snapshot leaves the database untouched. A persistence failure while
// replacing is returned as is and may leave earlier collections restored.
func (d *Datastore) Restore(ctx context.Context, r io.Reader) (domain.SnapshotInfo, error) {
	info, cols, err := d.snapshotter.Read(ctx, r)
	if err != nil {
		return domain.SnapshotInfo{}, err
	}
	if err := d.validate(cols); err != nil {
		return domain.SnapshotInfo{}, err
	}
	keep := make(map[string]struct{}, len(cols))
	for _, col := range cols {
		keep[col.Name] = struct{}{}
	}

	if err := d.lock(ctx); err != nil {
		return domain.SnapshotInfo{}, err
	}
	defer d.mu.Unlock()
	ctx = context.WithoutCancel(ctx)

	for name, c := range d.collections {
		if _, ok := keep[name]; ok {
			continue
		}
		if err := c.Drop(ctx); err != nil {
			return domain.SnapshotInfo{}, err
		}
		delete(d.collections, name)
	}
	for _, col := range cols {
		c, err := d.collection(ctx, col.Name)
		if err != nil {
			return domain.SnapshotInfo{}, err
		}
		if err := c.Replace(ctx, col.Entries, col.Indexes); err != nil {
			return domain.SnapshotInfo{}, fmt.Errorf("restoring collection %q: %w", col.Name, err)
		}
	}
	d.logger.Info("backup restored",
		slog.String("id", info.ID),
		slog.Int("count", info.Documents),
	)
	return info, nil
}

// validate checks every collection of a snapshot against an empty in-memory
// collection configured like the ones of d.
func (d *Datastore) validate(cols []snapshot.Collection) error {
	seen := make(map[string]struct{}, len(cols))
	for _, col := range cols {
		if err := data.CheckCollectionName(col.Name); err != nil {
			return err
		}
		if _, ok := seen[col.Name]; ok {
			return fmt.Errorf("%w: collection %q appears twice", snapshot.ErrCorruptSnapshot, col.Name)
		}
		seen[col.Name] = struct{}{}

		staged, err := collection.NewCollection(col.Name, d.collectionOptions()...)
		if err != nil {
			return err
		}
		if err := staged.Validate(col.Entries, col.Indexes); err != nil {
			return fmt.Errorf("restoring collection %q: %w", col.Name, err)
		}
	}
	return nil
}

// Close waits for running operations, closes every collection and the
// persistence backend. Later calls return [domain.ErrClosed].
func (d *Datastore) Close(ctx context.Context) error {
	if err := d.lock(ctx); err != nil {
		return err
	}
	defer d.mu.Unlock()

	d.closed = true
	errs := make([]error, 0, len(d.collections)+1)
	for _, c := range d.collections {
		errs = append(errs, c.Close(context.WithoutCancel(ctx)))
	}
	errs = append(errs, d.provider.Close())
	return errors.Join(errs...)
}
