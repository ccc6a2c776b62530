package groupmesh

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/groupmesh/go-groupmesh/channel"
)

var ErrNoDestination = errors.New("groupmesh: no destination members")

// Transport moves opaque message payloads between group members. A
// transport must preserve message boundaries: what one Send carries is
// what one handler invocation delivers.
type Transport interface {
	Addr() string
	Send(ctx context.Context, addr string, payload []byte) error
	Subscribe(handler func(src string, payload []byte))
	Close() error
}

// Channel is a group communication endpoint: an interceptor pipeline
// bridged onto a transport. It intentionally stays small so applications
// can pick their own membership and configuration machinery.
//
// Interceptors are added outermost first and visited in that order on the
// way out, in reverse on the way in. Configure the channel fully, then
// Start it.
type Channel struct {
	tr           Transport
	interceptors []channel.Interceptor
	head         *head
	bridge       *bridge

	mu        sync.RWMutex
	listeners []func(*channel.Message)
}

// NewChannel builds a channel over the given transport. The transport
// stays owned by the caller; Stop does not close it.
func NewChannel(tr Transport) *Channel {
	c := &Channel{tr: tr, bridge: &bridge{tr: tr}}
	c.head = &head{ch: c}
	return c
}

// AddInterceptor appends an interceptor to the pipeline. Call before
// Start.
func (c *Channel) AddInterceptor(i channel.Interceptor) {
	c.interceptors = append(c.interceptors, i)
}

// OnMessage registers fn to run for every message that reaches the
// application end of the pipeline.
func (c *Channel) OnMessage(fn func(*channel.Message)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Start links the pipeline, connects inbound delivery and cascades Start
// through every interceptor.
func (c *Channel) Start(svc channel.Service) error {
	chain := make([]channel.Interceptor, 0, len(c.interceptors)+2)
	chain = append(chain, c.head)
	chain = append(chain, c.interceptors...)
	chain = append(chain, c.bridge)
	channel.Link(chain...)

	c.tr.Subscribe(func(src string, payload []byte) {
		msg := channel.NewMessage(payload)
		msg.Src = src
		c.bridge.MessageReceived(msg)
	})
	return c.head.Start(svc)
}

// Stop cascades Stop through the pipeline.
func (c *Channel) Stop(svc channel.Service) error {
	return c.head.Stop(svc)
}

// Addr returns the transport address other members reach this channel at.
func (c *Channel) Addr() string { return c.tr.Addr() }

// Send pushes payload through the pipeline to the given members.
func (c *Channel) Send(ctx context.Context, payload []byte, dest ...channel.Member) error {
	if len(dest) == 0 {
		return ErrNoDestination
	}
	return c.head.SendMessage(ctx, dest, channel.NewMessage(payload))
}

func (c *Channel) deliver(msg *channel.Message) {
	c.mu.RLock()
	listeners := c.listeners
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn(msg)
	}
}

// head is the application end of the pipeline.
type head struct {
	channel.Base
	ch *Channel
}

func (h *head) MessageReceived(msg *channel.Message) { h.ch.deliver(msg) }

// bridge is the transport end of the pipeline.
type bridge struct {
	channel.Base
	tr Transport
}

func (b *bridge) SendMessage(ctx context.Context, dest []channel.Member, msg *channel.Message) error {
	payload := msg.Bytes()
	for _, d := range dest {
		if err := b.tr.Send(ctx, d.Addr, payload); err != nil {
			return fmt.Errorf("groupmesh: send to %s: %w", d.Addr, err)
		}
	}
	return nil
}
