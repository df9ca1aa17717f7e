package persistence

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/data"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/storage"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// Extension is the suffix of every collection datafile.
const Extension = ".db"

// Provider implements domain.PersistenceProvider with one datafile per
// collection inside a directory.
type Provider struct {
	dir     string
	storage domain.Storage
	options []Option
}

// NewProvider returns a provider keeping datafiles in dir. The options are
// passed to every [Persistence] it creates. An empty dir keeps everything in
// memory.
func NewProvider(dir string, options ...Option) domain.PersistenceProvider {
	p := &Provider{
		dir:     dir,
		storage: storage.NewStorage(),
		options: options,
	}
	// the provider lists files with the same storage its collections use
	probe := Persistence{storage: p.storage}
	for _, option := range options {
		option(&probe)
	}
	p.storage = probe.storage
	return p
}

// Collections implements domain.PersistenceProvider.
func (p *Provider) Collections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.dir == "" {
		return nil, nil
	}
	files, err := p.storage.ReadDir(p.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, f := range files {
		name, ok := strings.CutSuffix(f, Extension)
		if !ok || data.CheckCollectionName(name) != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// Persistence implements domain.PersistenceProvider.
func (p *Provider) Persistence(ctx context.Context, collection string) (domain.Persistence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := data.CheckCollectionName(collection); err != nil {
		return nil, err
	}
	if p.dir == "" {
		return NewPersistence(slices.Concat(p.options, []Option{WithInMemoryOnly(true)})...)
	}
	filename := filepath.Join(p.dir, collection+Extension)
	return NewPersistence(slices.Concat(p.options, []Option{WithFilename(filename)})...)
}

// Close implements domain.PersistenceProvider. Datafiles are closed after
// every operation, so there is nothing to release.
func (p *Provider) Close() error {
	return nil
}
