// Package memory provides an in-process message transport. It is useful
// for tests, examples and single-process pipelines.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrUnknownAddress = errors.New("memory: unknown address")

// Registry routes messages between in-process endpoints by address.
type Registry struct {
	mu        sync.RWMutex
	endpoints map[string]*Transport
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{endpoints: map[string]*Transport{}}
}

// Transport creates and registers an endpoint under addr, replacing any
// previous endpoint with the same address.
func (r *Registry) Transport(addr string) *Transport {
	t := &Transport{reg: r, addr: addr}
	r.mu.Lock()
	r.endpoints[addr] = t
	r.mu.Unlock()
	return t
}

func (r *Registry) lookup(addr string) (*Transport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.endpoints[addr]
	return t, ok
}

func (r *Registry) remove(t *Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.endpoints[t.addr] == t {
		delete(r.endpoints, t.addr)
	}
}

// Transport is one registered endpoint. Delivery is synchronous: Send runs
// the destination's handler before returning. Payloads are copied on
// delivery, so receivers may rewrite theirs freely.
type Transport struct {
	reg  *Registry
	addr string

	mu      sync.RWMutex
	handler func(src string, payload []byte)
}

// Addr returns the address the endpoint is registered under.
func (t *Transport) Addr() string { return t.addr }

// Subscribe sets the handler invoked for each inbound message.
func (t *Transport) Subscribe(h func(src string, payload []byte)) {
	t.mu.Lock()
	t.handler = h
	t.mu.Unlock()
}

// Send delivers payload to the endpoint registered under addr.
func (t *Transport) Send(ctx context.Context, addr string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, ok := t.reg.lookup(addr)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAddress, addr)
	}
	dst.deliver(t.addr, append([]byte(nil), payload...))
	return nil
}

func (t *Transport) deliver(src string, payload []byte) {
	t.mu.RLock()
	h := t.handler
	t.mu.RUnlock()
	if h != nil {
		h(src, payload)
	}
}

// Close removes the endpoint from its registry.
func (t *Transport) Close() error {
	t.reg.remove(t)
	return nil
}
