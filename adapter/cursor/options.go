package cursor

import "github.com/Budskyman/BigData-Praktikum-2025/domain"

// WithDecoder sets the decoder used by Scan.
func WithDecoder(d domain.Decoder) Option {
	return func(c *Cursor) {
		c.dec = d
	}
}

// Option configures cursor behavior through the functional options pattern.
type Option func(*Cursor)
