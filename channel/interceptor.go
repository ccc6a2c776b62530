package channel

import "context"

// Service flags select which channel duties a Start or Stop call covers.
type Service uint32

const (
	// ServiceReceive covers delivery of inbound messages.
	ServiceReceive Service = 1 << iota
	// ServiceSend covers transmission of outbound messages.
	ServiceSend
)

// ServiceDefault covers both directions.
const ServiceDefault = ServiceReceive | ServiceSend

// Interceptor is one stage of the message pipeline. Outbound messages
// flow through SendMessage toward the transport and inbound messages flow
// through MessageReceived toward the application. Start and Stop cascade
// in the outbound direction.
type Interceptor interface {
	SendMessage(ctx context.Context, dest []Member, msg *Message) error
	MessageReceived(msg *Message)
	Start(svc Service) error
	Stop(svc Service) error
	SetNext(Interceptor)
	Next() Interceptor
	SetPrevious(Interceptor)
	Previous() Interceptor
}

// Base is a pass-through pipeline stage. Embed it and override the
// methods that matter; the rest forward along the chain.
type Base struct {
	next Interceptor
	prev Interceptor
}

func (b *Base) SendMessage(ctx context.Context, dest []Member, msg *Message) error {
	if b.next == nil {
		return nil
	}
	return b.next.SendMessage(ctx, dest, msg)
}

func (b *Base) MessageReceived(msg *Message) {
	if b.prev != nil {
		b.prev.MessageReceived(msg)
	}
}

func (b *Base) Start(svc Service) error {
	if b.next == nil {
		return nil
	}
	return b.next.Start(svc)
}

func (b *Base) Stop(svc Service) error {
	if b.next == nil {
		return nil
	}
	return b.next.Stop(svc)
}

func (b *Base) SetNext(i Interceptor)     { b.next = i }
func (b *Base) Next() Interceptor         { return b.next }
func (b *Base) SetPrevious(i Interceptor) { b.prev = i }
func (b *Base) Previous() Interceptor     { return b.prev }

// Link wires interceptors into a chain. Outbound traffic visits them first
// to last, inbound traffic last to first.
func Link(chain ...Interceptor) {
	for i := 0; i < len(chain)-1; i++ {
		chain[i].SetNext(chain[i+1])
		chain[i+1].SetPrevious(chain[i])
	}
}
