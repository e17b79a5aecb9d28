package stream

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of a websocket connection the client uses. It exists so
// tests can drive the state machine with an in-memory fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPingHandler(h func(appData string) error)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Dialer opens a transport connection to the push-feed endpoint.
type Dialer interface {
	DialContext(ctx context.Context, url string) (Conn, error)
}

// wsDialer is the production Dialer backed by gorilla/websocket.
type wsDialer struct {
	handshakeTimeout time.Duration
}

func newWSDialer(handshakeTimeout time.Duration) *wsDialer {
	return &wsDialer{handshakeTimeout: handshakeTimeout}
}

func (d *wsDialer) DialContext(ctx context.Context, url string) (Conn, error) {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = d.handshakeTimeout

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}

		return nil, err
	}

	return conn, nil
}

var _ Dialer = (*wsDialer)(nil)
var _ Conn = (*websocket.Conn)(nil)
