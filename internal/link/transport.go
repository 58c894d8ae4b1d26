// internal/link/transport.go
package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/netutil"
)

// Receiver yields one complete inbound message per call.
type Receiver interface {
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Sender delivers one outbound message per call.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
	Close() error
}

// ErrReceiverClosed is returned by Receive once the receiver has been closed.
var ErrReceiverClosed = errors.New("link: receiver closed")

// ErrFrameTooLarge is returned when a peer sends more than the configured limit.
var ErrFrameTooLarge = errors.New("link: inbound frame exceeds size limit")

// TCPReceiver accepts one connection per Receive and reads until the peer
// closes its write side. The listener admits a single connection at a time.
type TCPReceiver struct {
	listener net.Listener
	maxBytes int64

	mu     sync.Mutex
	active net.Conn
	closed bool
}

// Listen binds addr. Use port 0 to pick a free port.
func Listen(addr string, maxBytes int64) (*TCPReceiver, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return &TCPReceiver{
		listener: netutil.LimitListener(l, 1),
		maxBytes: maxBytes,
	}, nil
}

func (r *TCPReceiver) Addr() net.Addr { return r.listener.Addr() }

func (r *TCPReceiver) Receive(ctx context.Context) ([]byte, error) {
	conn, err := r.listener.Accept()
	if err != nil {
		if r.isClosed() || errors.Is(err, net.ErrClosed) {
			return nil, ErrReceiverClosed
		}
		return nil, fmt.Errorf("accept: %w", err)
	}
	defer conn.Close()

	if !r.track(conn) {
		return nil, ErrReceiverClosed
	}
	defer r.track(nil)

	// closing the connection unblocks the read when ctx ends
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	log.Debug().Str("component", "link").Str("peer", conn.RemoteAddr().String()).Msg("Inbound connection accepted")

	payload, err := io.ReadAll(io.LimitReader(conn, r.maxBytes+1))
	if err != nil {
		if r.isClosed() {
			return nil, ErrReceiverClosed
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("read: %w", err)
	}
	if int64(len(payload)) > r.maxBytes {
		return nil, ErrFrameTooLarge
	}
	return payload, nil
}

// track records the connection currently being read so Close can interrupt it.
func (r *TCPReceiver) track(conn net.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed && conn != nil {
		return false
	}
	r.active = conn
	return true
}

func (r *TCPReceiver) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Close stops the listener and interrupts an in-flight read.
func (r *TCPReceiver) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	active := r.active
	r.mu.Unlock()

	err := r.listener.Close()
	if active != nil {
		active.Close()
	}
	return err
}

// TCPSender dials the peer for every message, writes it and closes the
// connection, so the peer sees one message per connection.
type TCPSender struct {
	addr         string
	dialTimeout  time.Duration
	writeTimeout time.Duration
	dialer       net.Dialer

	mu     sync.Mutex
	closed bool
}

func NewTCPSender(addr string, dialTimeout, writeTimeout time.Duration) *TCPSender {
	return &TCPSender{
		addr:         addr,
		dialTimeout:  dialTimeout,
		writeTimeout: writeTimeout,
		dialer:       net.Dialer{Timeout: dialTimeout},
	}
}

func (s *TCPSender) Send(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return errors.New("link: sender closed")
	}

	conn, err := s.dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.addr, err)
	}
	defer conn.Close()

	if s.writeTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("write %s: %w", s.addr, err)
	}
	return nil
}

func (s *TCPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
