// Package sqlitestore implements [domain.PersistenceProvider] with a single
// SQLite database holding every collection.
//
// Tables:
//
//	collections(name)                        PRIMARY KEY (name)
//	documents(collection, id, data)          PRIMARY KEY (collection, id)
//	indexes(collection, field, is_unique)    PRIMARY KEY (collection, field)
package sqlitestore

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"

	// registers the sqlite3 driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/data"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/serializer"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
	"github.com/Budskyman/BigData-Praktikum-2025/pkg/ctxsync"
)

// DefaultCorruptAlertThreshold is the share of unreadable documents
// tolerated when loading.
const DefaultCorruptAlertThreshold = 0.1

// Memory opens a private in-memory database.
const Memory = ":memory:"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id INTEGER NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	)`,
	`CREATE TABLE IF NOT EXISTS indexes (
		collection TEXT NOT NULL,
		field TEXT NOT NULL,
		is_unique INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (collection, field)
	)`,
}

// Provider implements domain.PersistenceProvider.
type Provider struct {
	db                    *sql.DB
	corruptAlertThreshold float64
	dirMode               uint32
	logger                *slog.Logger
}

// NewProvider opens or creates the database at path. [Memory] keeps
// everything in memory for the lifetime of the provider.
func NewProvider(ctx context.Context, path string, options ...Option) (domain.PersistenceProvider, error) {
	p := Provider{
		corruptAlertThreshold: DefaultCorruptAlertThreshold,
		dirMode:               0o755,
		logger:                slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		option(&p)
	}

	if path != Memory {
		if err := os.MkdirAll(filepath.Dir(path), os.FileMode(p.dirMode)); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if path == Memory {
		// every connection would see its own database
		db.SetMaxOpenConns(1)
	} else if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, err
		}
	}
	p.db = db
	return &p, nil
}

// Collections implements domain.PersistenceProvider.
func (p *Provider) Collections(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT name FROM collections ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
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

	mu          *ctxsync.Mutex
	compacted   *ctxsync.Cond
	compactions uint64
}

func (p *Persistence) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := p.provider.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// LoadCollection implements domain.Persistence.
func (p *Persistence) LoadCollection(ctx context.Context) ([]domain.Entry, []domain.IndexDTO, error) {
	_, err := p.provider.db.ExecContext(ctx,
		"INSERT INTO collections (name) VALUES (?) ON CONFLICT(name) DO NOTHING",
		p.collection,
	)
	if err != nil {
		return nil, nil, err
	}

	entries, corrupt, err := p.loadDocuments(ctx)
	if err != nil {
		return nil, nil, err
	}
	if total := len(entries) + corrupt; total > 0 {
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

	indexes, err := p.loadIndexes(ctx)
	if err != nil {
		return nil, nil, err
	}

	p.announceCompaction()
	return entries, indexes, nil
}

func (p *Persistence) loadDocuments(ctx context.Context) ([]domain.Entry, int, error) {
	rows, err := p.provider.db.QueryContext(ctx,
		"SELECT id, data FROM documents WHERE collection = ? ORDER BY id",
		p.collection,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []domain.Entry
	corrupt := 0
	for rows.Next() {
		var id int64
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, 0, err
		}
		doc, err := data.ParseDocument(raw)
		if err != nil {
			corrupt++
			continue
		}
		entries = append(entries, domain.Entry{ID: domain.ID(id), Doc: doc})
	}
	return entries, corrupt, rows.Err()
}

func (p *Persistence) loadIndexes(ctx context.Context) ([]domain.IndexDTO, error) {
	rows, err := p.provider.db.QueryContext(ctx,
		"SELECT field, is_unique FROM indexes WHERE collection = ? ORDER BY field",
		p.collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []domain.IndexDTO
	for rows.Next() {
		var dto domain.IndexDTO
		if err := rows.Scan(&dto.FieldName, &dto.Unique); err != nil {
			return nil, err
		}
		indexes = append(indexes, dto)
	}
	return indexes, rows.Err()
}

// PersistNewState implements domain.Persistence. Records are committed in a
// single transaction.
func (p *Persistence) PersistNewState(ctx context.Context, records ...domain.Record) error {
	return p.withTx(ctx, func(tx *sql.Tx) error {
		for _, r := range records {
			if err := p.apply(ctx, tx, r); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Persistence) apply(ctx context.Context, tx *sql.Tx, r domain.Record) error {
	var err error
	switch {
	case r.IndexCreated != nil:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO indexes (collection, field, is_unique) VALUES (?, ?, ?)
			 ON CONFLICT(collection, field) DO UPDATE SET is_unique = excluded.is_unique`,
			p.collection, r.IndexCreated.FieldName, r.IndexCreated.Unique,
		)
	case r.IndexRemoved != "":
		_, err = tx.ExecContext(ctx,
			"DELETE FROM indexes WHERE collection = ? AND field = ?",
			p.collection, r.IndexRemoved,
		)
	case r.Deleted:
		_, err = tx.ExecContext(ctx,
			"DELETE FROM documents WHERE collection = ? AND id = ?",
			p.collection, int64(r.ID),
		)
	case r.Doc != nil:
		if err = data.CheckDocument(r.Doc); err != nil {
			return err
		}
		var b []byte
		if b, err = r.Doc.AppendJSON(nil); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)
			 ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data`,
			p.collection, int64(r.ID), string(b),
		)
	default:
		err = serializer.ErrEmptyRecord
	}
	return err
}

// PersistCachedCollection implements domain.Persistence. The collection is
// replaced in a single transaction.
func (p *Persistence) PersistCachedCollection(ctx context.Context, entries []domain.Entry, indexes []domain.IndexDTO) error {
	err := p.withTx(ctx, func(tx *sql.Tx) error {
		if err := p.clear(ctx, tx); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO collections (name) VALUES (?) ON CONFLICT(name) DO NOTHING",
			p.collection,
		)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := p.apply(ctx, tx, domain.Record{ID: e.ID, Doc: e.Doc}); err != nil {
				return err
			}
		}
		for _, idx := range indexes {
			if err := p.apply(ctx, tx, domain.Record{IndexCreated: &idx}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.announceCompaction()
	return nil
}

func (p *Persistence) clear(ctx context.Context, tx *sql.Tx) error {
	for _, stmt := range []string{
		"DELETE FROM documents WHERE collection = ?",
		"DELETE FROM indexes WHERE collection = ?",
		"DELETE FROM collections WHERE name = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, p.collection); err != nil {
			return err
		}
	}
	return nil
}

// DropCollection implements domain.Persistence.
func (p *Persistence) DropCollection(ctx context.Context) error {
	return p.withTx(ctx, func(tx *sql.Tx) error {
		return p.clear(ctx, tx)
	})
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
