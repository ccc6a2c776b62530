package crypt

import (
	"bufio"
	"crypto/rand"
	"io"
	"sync"
)

// pool is an unbounded free list of reusable handles. acquire never
// blocks: it pops an idle handle or builds a fresh one on the spot.
// Handles are not safe for concurrent use, so each one belongs to exactly
// one caller between acquire and release.
type pool[T any] struct {
	newHandle func() (T, error)
	mu        sync.Mutex
	idle      []T
}

func newPool[T any](newHandle func() (T, error)) *pool[T] {
	return &pool[T]{newHandle: newHandle}
}

func (p *pool[T]) acquire() (T, error) {
	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		h := p.idle[n-1]
		var zero T
		p.idle[n-1] = zero
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return h, nil
	}
	p.mu.Unlock()
	return p.newHandle()
}

func (p *pool[T]) release(h T) {
	p.mu.Lock()
	p.idle = append(p.idle, h)
	p.mu.Unlock()
}

// drain discards every idle handle. The pool keeps working afterwards;
// handles still in flight are pooled again once released.
func (p *pool[T]) drain() {
	p.mu.Lock()
	p.idle = nil
	p.mu.Unlock()
}

func (p *pool[T]) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

const randomBufferSize = 512

// randomSource draws cryptographically secure bytes through a buffer, so a
// short IV read does not cost a kernel round trip per message. The
// buffered reader is stateful and must not be shared between goroutines.
type randomSource struct {
	r *bufio.Reader
}

func newRandomSource() *randomSource {
	return &randomSource{r: bufio.NewReaderSize(rand.Reader, randomBufferSize)}
}

func (s *randomSource) fill(b []byte) error {
	_, err := io.ReadFull(s.r, b)
	return err
}
