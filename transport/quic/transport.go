// Package quic provides a QUIC-backed message transport. Every message
// rides its own unidirectional stream, so message boundaries survive the
// network exactly as sent and no length prefix is needed.
package quic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	q "github.com/quic-go/quic-go"
)

const (
	// ALPN identifies the groupmesh wire protocol during the TLS handshake.
	ALPN = "groupmesh/1"

	// MaxMessageSize limits a single message payload.
	MaxMessageSize = 1 << 20 // 1 MiB
)

var ErrMessageTooLarge = errors.New("quic: message exceeds size limit")

// Transport moves whole messages between peers. The sender opens a
// unidirectional stream per message, writes the payload and closes the
// stream; the receiver reads each stream to EOF and hands the payload to
// the subscribed handler. Connections to destinations are cached and
// redialed once when they turn out stale.
type Transport struct {
	ln     *q.Listener
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	conns   map[string]q.Connection
	handler func(src string, payload []byte)
}

// Listen binds a UDP address (for example "127.0.0.1:0") and starts
// accepting inbound messages.
func Listen(addr string) (*Transport, error) {
	tlsConf, err := newTLSConfig()
	if err != nil {
		return nil, err
	}
	ln, err := q.ListenAddr(addr, tlsConf, &q.Config{})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &Transport{
		ln:     ln,
		ctx:    ctx,
		cancel: cancel,
		conns:  map[string]q.Connection{},
	}
	t.wg.Add(1)
	go t.acceptLoop()
	return t, nil
}

// Addr returns the bound address.
func (t *Transport) Addr() string { return t.ln.Addr().String() }

// Subscribe sets the handler invoked for each inbound message.
func (t *Transport) Subscribe(h func(src string, payload []byte)) {
	t.mu.Lock()
	t.handler = h
	t.mu.Unlock()
}

func (t *Transport) acceptLoop() {
	defer t.wg.Done()
	for {
		conn, err := t.ln.Accept(t.ctx)
		if err != nil {
			return
		}
		t.wg.Add(1)
		go t.serveConn(conn)
	}
}

func (t *Transport) serveConn(conn q.Connection) {
	defer t.wg.Done()
	for {
		st, err := conn.AcceptUniStream(t.ctx)
		if err != nil {
			return
		}
		t.wg.Add(1)
		go t.readMessage(conn, st)
	}
}

func (t *Transport) readMessage(conn q.Connection, st q.ReceiveStream) {
	defer t.wg.Done()
	payload, err := io.ReadAll(io.LimitReader(st, MaxMessageSize+1))
	if err != nil || len(payload) > MaxMessageSize {
		return
	}
	t.mu.RLock()
	h := t.handler
	t.mu.RUnlock()
	if h != nil {
		h(conn.RemoteAddr().String(), payload)
	}
}

// Send delivers payload to the peer listening at addr.
func (t *Transport) Send(ctx context.Context, addr string, payload []byte) error {
	if len(payload) > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(payload))
	}
	conn, err := t.conn(ctx, addr)
	if err != nil {
		return err
	}
	st, err := conn.OpenUniStreamSync(ctx)
	if err != nil {
		// The cached connection went stale; dial once more.
		t.dropConn(addr, conn)
		if conn, err = t.conn(ctx, addr); err != nil {
			return err
		}
		if st, err = conn.OpenUniStreamSync(ctx); err != nil {
			return err
		}
	}
	if _, err := st.Write(payload); err != nil {
		st.CancelWrite(1)
		return err
	}
	return st.Close()
}

func (t *Transport) conn(ctx context.Context, addr string) (q.Connection, error) {
	t.mu.RLock()
	conn, ok := t.conns[addr]
	t.mu.RUnlock()
	if ok {
		return conn, nil
	}

	tlsConf, err := newTLSConfig()
	if err != nil {
		return nil, err
	}
	conn, err = q.DialAddr(ctx, addr, tlsConf, &q.Config{})
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	if existing, ok := t.conns[addr]; ok {
		t.mu.Unlock()
		_ = conn.CloseWithError(0, "duplicate connection")
		return existing, nil
	}
	t.conns[addr] = conn
	t.mu.Unlock()
	return conn, nil
}

func (t *Transport) dropConn(addr string, conn q.Connection) {
	t.mu.Lock()
	if t.conns[addr] == conn {
		delete(t.conns, addr)
	}
	t.mu.Unlock()
}

// Close stops accepting, closes cached connections and waits for in-flight
// handlers to finish.
func (t *Transport) Close() error {
	t.cancel()
	err := t.ln.Close()
	t.mu.Lock()
	for addr, conn := range t.conns {
		_ = conn.CloseWithError(0, "transport closed")
		delete(t.conns, addr)
	}
	t.mu.Unlock()
	t.wg.Wait()
	return err
}
