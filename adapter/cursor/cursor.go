// Package cursor contains the default [domain.Cursor] implementation.
package cursor

import (
	"context"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/decoder"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// Cursor implements domain.Cursor over a fixed result set.
type Cursor struct {
	data   []domain.Entry
	ctx    context.Context
	cancel context.CancelCauseFunc
	dec    domain.Decoder
	index  int
}

// NewCursor returns a new implementation of Cursor. The cursor stops when ctx
// is done or Close is called.
func NewCursor(ctx context.Context, data []domain.Entry, opts ...Option) (domain.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancelCause(ctx)
	cur := &Cursor{
		ctx:    ctx,
		cancel: cancel,
		index:  -1,
		data:   data,
	}
	for _, opt := range opts {
		opt(cur)
	}
	if cur.dec == nil {
		cur.dec = decoder.NewDecoder()
	}
	return cur, nil
}

// Err implements domain.Cursor.
func (c *Cursor) Err() error {
	return context.Cause(c.ctx)
}

// Next implements domain.Cursor.
func (c *Cursor) Next() bool {
	if c.ctx.Err() != nil {
		return false
	}
	if c.index+1 < len(c.data) {
		c.index++
		return true
	}
	return false
}

// ID implements domain.Cursor. It returns zero before Next.
func (c *Cursor) ID() domain.ID {
	if c.index < 0 || c.ctx.Err() != nil {
		return 0
	}
	return c.data[c.index].ID
}

// Document implements domain.Cursor. The document belongs to the caller.
func (c *Cursor) Document() *domain.Document {
	if c.index < 0 || c.ctx.Err() != nil {
		return nil
	}
	return c.data[c.index].Doc
}

// Scan implements domain.Cursor.
func (c *Cursor) Scan(ctx context.Context, target any) error {
	if err := c.ctx.Err(); err != nil {
		return context.Cause(c.ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.index < 0 {
		return domain.ErrScanBeforeNext
	}
	return c.dec.Decode(c.data[c.index].Doc, target)
}

// Close implements domain.Cursor.
func (c *Cursor) Close() error {
	if c.ctx.Err() != nil {
		return context.Cause(c.ctx)
	}
	c.cancel(domain.ErrCursorClosed)
	c.data = nil
	return nil
}
