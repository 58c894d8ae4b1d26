// internal/link/websocket.go
package link

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSSender keeps one WebSocket open and writes each message as a binary frame.
// The connection is dialed lazily and redialed after a write failure.
type WSSender struct {
	url          string
	dialer       *websocket.Dialer
	writeTimeout time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func NewWSSender(url string, dialTimeout, writeTimeout time.Duration) *WSSender {
	return &WSSender{
		url:          url,
		dialer:       &websocket.Dialer{HandshakeTimeout: dialTimeout},
		writeTimeout: writeTimeout,
	}
}

func (s *WSSender) Send(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("link: sender closed")
	}
	if s.conn == nil {
		conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
		if err != nil {
			return fmt.Errorf("dial %s: %w", s.url, err)
		}
		log.Debug().Str("component", "link").Str("url", s.url).Msg("WebSocket connected")
		s.conn = conn
	}

	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		s.conn.Close()
		s.conn = nil
		return fmt.Errorf("write %s: %w", s.url, err)
	}
	return nil
}

// Close sends a close frame and releases the connection.
func (s *WSSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	err := s.conn.Close()
	s.conn = nil
	return err
}
