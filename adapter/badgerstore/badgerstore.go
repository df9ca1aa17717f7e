// Package badgerstore implements [domain.PersistenceProvider] on top of a
// badger key-value database shared by every collection.
//
// Keys are laid out as follows:
//
//	c/<collection>                  collection marker
//	d/<collection>/<id big endian>  document JSON
//	i/<collection>/<field>          index definition JSON
//
// Documents are stored by id, so every write overwrites the previous state
// and the keyspace never needs to be compacted by the provider.
package badgerstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/data"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/serializer"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
	"github.com/Budskyman/BigData-Praktikum-2025/pkg/ctxsync"
)

// DefaultCorruptAlertThreshold is the share of unreadable documents
// tolerated when loading.
const DefaultCorruptAlertThreshold = 0.1

const (
	collectionPrefix = "c/"
	documentPrefix   = "d/"
	indexPrefix      = "i/"
)

// Provider implements domain.PersistenceProvider.
type Provider struct {
	db                    *badger.DB
	inMemory              bool
	syncWrites            bool
	corruptAlertThreshold float64
	logger                *slog.Logger
}

// NewProvider opens the badger database at dir.
func NewProvider(dir string, options ...Option) (domain.PersistenceProvider, error) {
	p := Provider{
		corruptAlertThreshold: DefaultCorruptAlertThreshold,
		logger:                slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		option(&p)
	}

	opts := badger.DefaultOptions(dir).
		WithLogger(badgerLogger{l: p.logger}).
		WithNumVersionsToKeep(1).
		WithSyncWrites(p.syncWrites)
	if p.inMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	p.db = db
	return &p, nil
}

// Collections implements domain.PersistenceProvider.
func (p *Provider) Collections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var names []string
	err := p.db.View(func(txn *badger.Txn) error {
		return scan(ctx, txn, []byte(collectionPrefix), false, func(item *badger.Item) error {
			names = append(names, string(item.Key()[len(collectionPrefix):]))
			return nil
		})
	})
	return names, err
}

// Persistence implements domain.PersistenceProvider.
func (p *Provider) Persistence(ctx context.Context, collection string) (domain.Persistence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := data.CheckCollectionName(collection); err != nil {
		return nil, err
	}
	mu := ctxsync.NewMutex()
	return &Persistence{
		provider:   p,
		collection: collection,
		marker:     []byte(collectionPrefix + collection),
		docPrefix:  []byte(documentPrefix + collection + "/"),
		idxPrefix:  []byte(indexPrefix + collection + "/"),
		mu:         mu,
		compacted:  ctxsync.NewCond(mu),
	}, nil
}

// Close implements domain.PersistenceProvider.
func (p *Provider) Close() error {
	return p.db.Close()
}

// Persistence implements domain.Persistence for one collection of a
// [Provider].
type Persistence struct {
	provider   *Provider
	collection string
	marker     []byte
	docPrefix  []byte
	idxPrefix  []byte

	mu          *ctxsync.Mutex
	compacted   *ctxsync.Cond
	compactions uint64
}

func (p *Persistence) docKey(id domain.ID) []byte {
	key := make([]byte, len(p.docPrefix), len(p.docPrefix)+4)
	copy(key, p.docPrefix)
	return binary.BigEndian.AppendUint32(key, uint32(id))
}

func (p *Persistence) idxKey(field string) []byte {
	key := make([]byte, 0, len(p.idxPrefix)+len(field))
	return append(append(key, p.idxPrefix...), field...)
}

func encodeDoc(doc *domain.Document) ([]byte, error) {
	if err := data.CheckDocument(doc); err != nil {
		return nil, err
	}
	return doc.AppendJSON(nil)
}

// LoadCollection implements domain.Persistence.
func (p *Persistence) LoadCollection(ctx context.Context) ([]domain.Entry, []domain.IndexDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	err := p.provider.db.Update(func(txn *badger.Txn) error {
		return txn.Set(p.marker, nil)
	})
	if err != nil {
		return nil, nil, err
	}

	var entries []domain.Entry
	var indexes []domain.IndexDTO
	corrupt, total := 0, 0
	err = p.provider.db.View(func(txn *badger.Txn) error {
		err := scan(ctx, txn, p.docPrefix, true, func(item *badger.Item) error {
			total++
			suffix := item.Key()[len(p.docPrefix):]
			if len(suffix) != 4 {
				corrupt++
				return nil
			}
			var doc *domain.Document
			err := item.Value(func(val []byte) error {
				var err error
				doc, err = data.ParseDocument(val)
				return err
			})
			if err != nil {
				corrupt++
				return nil
			}
			entries = append(entries, domain.Entry{ID: domain.ID(binary.BigEndian.Uint32(suffix)), Doc: doc})
			return nil
		})
		if err != nil {
			return err
		}

		return scan(ctx, txn, p.idxPrefix, true, func(item *badger.Item) error {
			total++
			var dto domain.IndexDTO
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &dto)
			})
			if err != nil || dto.FieldName == "" {
				corrupt++
				return nil
			}
			indexes = append(indexes, dto)
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}

	if total > 0 {
		rate := float64(corrupt) / float64(total)
		if rate > p.provider.corruptAlertThreshold {
			return nil, nil, domain.ErrCorruptFiles{
				CorruptionRate:        rate,
				CorruptItems:          corrupt,
				DataLength:            total,
				CorruptAlertThreshold: p.provider.corruptAlertThreshold,
			}
		}
		if corrupt > 0 {
			p.provider.logger.Warn("skipped corrupt records",
				slog.String("collection", p.collection),
				slog.Int("count", corrupt),
			)
		}
	}

	p.announceCompaction()
	return entries, indexes, nil
}

// PersistNewState implements domain.Persistence. Records are committed in a
// single transaction.
func (p *Persistence) PersistNewState(ctx context.Context, records ...domain.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.provider.db.Update(func(txn *badger.Txn) error {
		for _, r := range records {
			var err error
			switch {
			case r.IndexCreated != nil:
				var b []byte
				if b, err = json.Marshal(r.IndexCreated); err == nil {
					err = txn.Set(p.idxKey(r.IndexCreated.FieldName), b)
				}
			case r.IndexRemoved != "":
				err = txn.Delete(p.idxKey(r.IndexRemoved))
			case r.Deleted:
				err = txn.Delete(p.docKey(r.ID))
			case r.Doc != nil:
				var b []byte
				if b, err = encodeDoc(r.Doc); err == nil {
					err = txn.Set(p.docKey(r.ID), b)
				}
			default:
				err = serializer.ErrEmptyRecord
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// PersistCachedCollection implements domain.Persistence. Keys missing from
// the given state are removed, the others overwritten.
func (p *Persistence) PersistCachedCollection(ctx context.Context, entries []domain.Entry, indexes []domain.IndexDTO) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	keep := make(map[string]struct{}, len(entries)+len(indexes))
	wb := p.provider.db.NewWriteBatch()
	defer wb.Cancel()

	if err := wb.Set(p.marker, nil); err != nil {
		return err
	}
	for _, e := range entries {
		b, err := encodeDoc(e.Doc)
		if err != nil {
			return err
		}
		key := p.docKey(e.ID)
		keep[string(key)] = struct{}{}
		if err := wb.Set(key, b); err != nil {
			return err
		}
	}
	for _, idx := range indexes {
		b, err := json.Marshal(idx)
		if err != nil {
			return err
		}
		key := p.idxKey(idx.FieldName)
		keep[string(key)] = struct{}{}
		if err := wb.Set(key, b); err != nil {
			return err
		}
	}

	stale, err := p.keys(ctx, p.docPrefix, p.idxPrefix)
	if err != nil {
		return err
	}
	for _, key := range stale {
		if _, ok := keep[string(key)]; ok {
			continue
		}
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	if err := wb.Flush(); err != nil {
		return err
	}

	p.announceCompaction()
	return nil
}

// keys lists every key under the given prefixes.
func (p *Persistence) keys(ctx context.Context, prefixes ...[]byte) ([][]byte, error) {
	var keys [][]byte
	err := p.provider.db.View(func(txn *badger.Txn) error {
		for _, prefix := range prefixes {
			err := scan(ctx, txn, prefix, false, func(item *badger.Item) error {
				keys = append(keys, item.KeyCopy(nil))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return keys, err
}

// scan calls fn for every item under prefix, in key order.
func scan(ctx context.Context, txn *badger.Txn, prefix []byte, prefetch bool, fn func(*badger.Item) error) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = prefetch
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(it.Item()); err != nil {
			return err
		}
	}
	return nil
}

// DropCollection implements domain.Persistence.
func (p *Persistence) DropCollection(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.provider.db.DropPrefix(p.docPrefix, p.idxPrefix)
	return errors.Join(err, p.provider.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(p.marker)
	}))
}

// WaitCompaction implements domain.Persistence.
func (p *Persistence) WaitCompaction(ctx context.Context) error {
	if err := p.mu.LockWithContext(ctx); err != nil {
		return err
	}
	defer p.mu.Unlock()

	seen := p.compactions
	for seen == p.compactions {
		if err := p.compacted.WaitWithContext(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Persistence) announceCompaction() {
	p.mu.Lock()
	p.compactions++
	p.mu.Unlock()
	p.compacted.Broadcast()
}
