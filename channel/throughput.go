package channel

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// ThroughputInterceptor counts the traffic passing through the pipeline in
// both directions and logs a summary every interval outbound messages. It
// never modifies messages. Body sizes are sampled where the interceptor
// sits in the chain, so placing it above an EncryptInterceptor counts
// application bytes and placing it below counts wire bytes.
type ThroughputInterceptor struct {
	Base

	interval int64
	logger   *log.Logger

	txMsgs  atomic.Int64
	txBytes atomic.Int64
	txFails atomic.Int64
	rxMsgs  atomic.Int64
	rxBytes atomic.Int64

	startedAt atomic.Int64 // unix nanoseconds at Start
}

// NewThroughputInterceptor logs a summary every interval sent messages;
// interval <= 0 selects the default of 10000.
func NewThroughputInterceptor(interval int64) *ThroughputInterceptor {
	if interval <= 0 {
		interval = 10000
	}
	return &ThroughputInterceptor{interval: interval, logger: log.Default()}
}

// SetLogger replaces the summary logger.
func (p *ThroughputInterceptor) SetLogger(l *log.Logger) { p.logger = l }

func (p *ThroughputInterceptor) Start(svc Service) error {
	p.startedAt.Store(time.Now().UnixNano())
	return p.Base.Start(svc)
}

func (p *ThroughputInterceptor) SendMessage(ctx context.Context, dest []Member, msg *Message) error {
	size := int64(msg.Len())
	if err := p.Base.SendMessage(ctx, dest, msg); err != nil {
		p.txFails.Add(1)
		return err
	}
	sent := p.txMsgs.Add(1)
	p.txBytes.Add(size)
	if sent%p.interval == 0 {
		p.report(sent)
	}
	return nil
}

func (p *ThroughputInterceptor) MessageReceived(msg *Message) {
	p.rxMsgs.Add(1)
	p.rxBytes.Add(int64(msg.Len()))
	p.Base.MessageReceived(msg)
}

func (p *ThroughputInterceptor) report(sent int64) {
	elapsed := time.Duration(time.Now().UnixNano() - p.startedAt.Load())
	if elapsed <= 0 {
		return
	}
	mb := float64(p.txBytes.Load()) / (1 << 20)
	p.logger.Printf("channel: sent %d messages (%.2f MB) in %s, %.1f msg/s, %d failed",
		sent, mb, elapsed.Round(time.Millisecond), float64(sent)/elapsed.Seconds(), p.txFails.Load())
}

// TxMessages returns the number of successfully sent messages.
func (p *ThroughputInterceptor) TxMessages() int64 { return p.txMsgs.Load() }

// TxBytes returns the number of body bytes successfully sent.
func (p *ThroughputInterceptor) TxBytes() int64 { return p.txBytes.Load() }

// TxFailures returns the number of failed sends.
func (p *ThroughputInterceptor) TxFailures() int64 { return p.txFails.Load() }

// RxMessages returns the number of received messages.
func (p *ThroughputInterceptor) RxMessages() int64 { return p.rxMsgs.Load() }

// RxBytes returns the number of body bytes received.
func (p *ThroughputInterceptor) RxBytes() int64 { return p.rxBytes.Load() }
