// Package stream splits card sets into fixed-size chunks for incremental
// processing.
package stream

import "errors"

// ErrInvalidChunkSize is returned when a chunker is created with a size below one.
var ErrInvalidChunkSize = errors.New("chunk size must be at least 1")

// Chunker hands out consecutive slices of at most size items.
type Chunker[T any] struct {
	items []T
	size  int
	pos   int
}

// New creates a Chunker over items.
func New[T any](items []T, size int) (*Chunker[T], error) {
	if size < 1 {
		return nil, ErrInvalidChunkSize
	}
	return &Chunker[T]{items: items, size: size}, nil
}

// HasNext reports whether another chunk is available.
func (c *Chunker[T]) HasNext() bool {
	return c.pos < len(c.items)
}

// NextChunk returns the next chunk, or nil once the items are exhausted.
func (c *Chunker[T]) NextChunk() []T {
	if !c.HasNext() {
		return nil
	}
	end := min(c.pos+c.size, len(c.items))
	chunk := c.items[c.pos:end]
	c.pos = end
	return chunk
}

// RemainingChunks returns how many chunks NextChunk will still produce.
func (c *Chunker[T]) RemainingChunks() int {
	left := len(c.items) - c.pos
	return (left + c.size - 1) / c.size
}

// Len returns the total number of items.
func (c *Chunker[T]) Len() int {
	return len(c.items)
}

// Consumed returns how many items NextChunk has handed out so far.
func (c *Chunker[T]) Consumed() int {
	return c.pos
}
