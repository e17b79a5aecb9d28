package stream

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/argo-stream/internal/types"
	"github.com/rxtech-lab/argo-stream/pkg/errors"
	"go.uber.org/zap"
)

// ConnState is the connection lifecycle state. It is owned exclusively by the
// client; callers observe it but never mutate it.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateClosing
)

// String implements fmt.Stringer.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDialer replaces the transport dialer. Used by tests to inject a fake
// connection.
func WithDialer(dialer Dialer) ClientOption {
	return func(c *Client) {
		c.dialer = dialer
	}
}

// WithBackoff replaces the reconnect backoff policy.
func WithBackoff(b Backoff) ClientOption {
	return func(c *Client) {
		c.backoff = b
	}
}

// Client is the stream connection state machine. It owns the socket
// lifecycle: connect, subscribe/unsubscribe control frames, the receive loop,
// disconnect detection, and reconnect with resubscription replay.
//
// All public operations are safe to call concurrently. Only one connect
// attempt proceeds at a time; concurrent callers wait for the in-flight
// attempt instead of opening duplicate sockets. The registry lock is never
// held across I/O.
type Client struct {
	cfg        Config
	logger     *zap.Logger
	dialer     Dialer
	backoff    Backoff
	registry   *Registry
	decoder    *Decoder
	dispatcher *Dispatcher

	state   atomic.Int32
	closed  atomic.Bool
	frameID atomic.Int64

	// connectMu serializes connection establishment and disposal.
	connectMu sync.Mutex

	// mu guards conn, recvDone and reconnectTimer.
	mu             sync.Mutex
	conn           Conn
	recvDone       chan struct{}
	reconnectTimer *time.Timer

	// writeMu serializes outbound frames; the websocket permits one
	// concurrent writer.
	writeMu sync.Mutex
}

// NewClient creates a streaming client. The client does not connect until the
// first Subscribe call.
func NewClient(cfg Config, logger *zap.Logger, opts ...ClientOption) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		cfg:        cfg,
		logger:     logger,
		registry:   NewRegistry(),
		decoder:    NewDecoder(logger),
		dispatcher: NewDispatcher(logger),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.dialer == nil {
		c.dialer = newWSDialer(cfg.HandshakeTimeout)
	}

	if c.backoff == nil {
		c.backoff = flatBackoff(cfg.ReconnectDelay)
	}

	return c, nil
}

// OnKline registers an observer for decoded kline events.
func (c *Client) OnKline(handler KlineHandler) Registration {
	return c.dispatcher.OnKline(handler)
}

// OnStatus registers an observer for connection status events.
func (c *Client) OnStatus(handler StatusHandler) Registration {
	return c.dispatcher.OnStatus(handler)
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

// IsConnected reports whether the client is currently connected.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Subscribe registers the (symbol, interval) key and sends a SUBSCRIBE
// control frame, establishing the connection first if needed. Subscribing an
// already-registered key is a no-op and sends nothing. A connect failure is
// returned to the caller; the key stays registered so the next successful
// connect replays it. Subscribe fails fast with ErrCodeClientClosed after
// Close.
func (c *Client) Subscribe(ctx context.Context, symbol string, interval types.Interval) error {
	if c.closed.Load() {
		return errors.New(errors.ErrCodeClientClosed, "client is closed")
	}

	key, err := NewKey(symbol, interval)
	if err != nil {
		return err
	}

	if !c.registry.Add(key) {
		return nil
	}

	if c.IsConnected() {
		return c.sendControl(ctx, methodSubscribe, key)
	}

	if err := c.connect(ctx); err != nil {
		return err
	}

	return c.replaySubscriptions(ctx)
}

// Unsubscribe removes the key from the registry and, if connected, sends an
// UNSUBSCRIBE control frame. Unsubscribing an unknown key is a no-op.
func (c *Client) Unsubscribe(ctx context.Context, symbol string, interval types.Interval) error {
	if c.closed.Load() {
		return errors.New(errors.ErrCodeClientClosed, "client is closed")
	}

	key, err := NewKey(symbol, interval)
	if err != nil {
		return err
	}

	if !c.registry.Remove(key) {
		return nil
	}

	if !c.IsConnected() {
		return nil
	}

	return c.sendControl(ctx, methodUnsubscribe, key)
}

// UnsubscribeAll atomically drains the registry and sends one UNSUBSCRIBE per
// drained key if connected. The first send failure is returned after the
// remaining keys have been attempted.
func (c *Client) UnsubscribeAll(ctx context.Context) error {
	if c.closed.Load() {
		return errors.New(errors.ErrCodeClientClosed, "client is closed")
	}

	keys := c.registry.Clear()
	if len(keys) == 0 || !c.IsConnected() {
		return nil
	}

	var firstErr error

	for _, key := range keys {
		if err := c.sendControl(ctx, methodUnsubscribe, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// Close cancels the receive loop, attempts a graceful close handshake,
// releases the transport, and waits for the receive loop to terminate. No
// events are emitted after Close returns. Close is idempotent.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.setState(StateClosing)

	// Wait out any in-flight connect attempt so the connection it may have
	// just opened is visible below.
	c.connectMu.Lock()
	c.connectMu.Unlock() //nolint:staticcheck // empty critical section is the barrier

	c.mu.Lock()
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}

	conn := c.conn
	recvDone := c.recvDone
	c.mu.Unlock()

	if conn != nil {
		// Best-effort close handshake; the peer may already be gone.
		c.writeMu.Lock()
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.cfg.WriteTimeout),
		)
		c.writeMu.Unlock()

		_ = conn.Close()
	}

	if recvDone != nil {
		<-recvDone
	}

	c.setState(StateDisconnected)
	c.logger.Info("stream client closed")

	return nil
}

// connect establishes the transport connection and starts the receive loop.
// Idempotent when already connected. A failure is both returned to the
// caller and broadcast as a connection status event.
func (c *Client) connect(ctx context.Context) error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	if c.closed.Load() {
		return errors.New(errors.ErrCodeClientClosed, "client is closed")
	}

	if c.State() == StateConnected {
		return nil
	}

	c.setState(StateConnecting)

	conn, err := c.dialer.DialContext(ctx, c.cfg.Endpoint)
	if err != nil {
		c.setState(StateDisconnected)

		wrapped := errors.Wrapf(errors.ErrCodeConnectFailed, err,
			"failed to connect to %s", c.cfg.Endpoint)
		c.dispatcher.publishStatus(types.ConnectionStatus{
			Connected: false,
			Message:   "connect failed",
			Err:       wrapped,
		})

		return wrapped
	}

	c.configureConn(conn)

	recvDone := make(chan struct{})

	c.mu.Lock()
	c.conn = conn
	c.recvDone = recvDone
	c.mu.Unlock()

	c.setState(StateConnected)
	c.backoff.Reset()
	c.logger.Info("stream connected", zap.String("endpoint", c.cfg.Endpoint))
	c.dispatcher.publishStatus(types.ConnectionStatus{
		Connected: true,
		Message:   "connected",
	})

	go c.readLoop(conn, recvDone)

	return nil
}

// configureConn installs the keep-alive plumbing: read limit, read deadlines
// refreshed by server pings, and pong replies written under the write lock.
func (c *Client) configureConn(conn Conn) {
	conn.SetReadLimit(c.cfg.ReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))

		payload := []byte(appData)

		c.writeMu.Lock()
		defer c.writeMu.Unlock()

		return conn.WriteControl(websocket.PongMessage, payload, time.Now().Add(c.cfg.WriteTimeout))
	})
}

// readLoop receives frames until the transport fails or the client closes.
// Inbound events are delivered to observers in receive order.
func (c *Client) readLoop(conn Conn, done chan struct{}) {
	defer close(done)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(conn, err)

			return
		}

		if kline, ok := c.decoder.Decode(raw); ok {
			c.dispatcher.publishKline(kline)
		}
	}
}

// handleDisconnect runs when the receive loop observes a transport failure.
// Nobody waits on the loop, so the fault is broadcast via a status event
// only, then a reconnect is scheduled if any subscriptions remain.
func (c *Client) handleDisconnect(conn Conn, cause error) {
	_ = conn.Close()

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()

	if c.closed.Load() {
		return
	}

	c.setState(StateDisconnected)
	c.logger.Warn("stream disconnected", zap.Error(cause))
	c.dispatcher.publishStatus(types.ConnectionStatus{
		Connected: false,
		Message:   "connection lost",
		Err:       cause,
	})

	if c.registry.Len() > 0 {
		c.scheduleReconnect()
	}
}

// scheduleReconnect arms the backoff timer for a background reconnect.
func (c *Client) scheduleReconnect() {
	delay := c.backoff.Duration()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return
	}

	c.reconnectTimer = time.AfterFunc(delay, c.reconnect)
	c.logger.Info("reconnect scheduled", zap.Duration("delay", delay))
}

// reconnect re-establishes the connection and replays a SUBSCRIBE for every
// key in the registry. Failures are not surfaced to any caller; the timer is
// re-armed so a persistently down feed keeps being retried, and the next
// external subscribe also re-attempts immediately.
func (c *Client) reconnect() {
	if c.closed.Load() || c.registry.Len() == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HandshakeTimeout)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		c.logger.Warn("reconnect attempt failed", zap.Error(err))
		c.scheduleReconnect()

		return
	}

	if err := c.replaySubscriptions(ctx); err != nil {
		c.logger.Warn("resubscription replay failed", zap.Error(err))
	}
}

// replaySubscriptions sends a SUBSCRIBE frame for every registered key. The
// registry, not the previous connection, is the source of truth for desired
// state.
func (c *Client) replaySubscriptions(ctx context.Context) error {
	for _, key := range c.registry.Snapshot() {
		if err := c.sendControl(ctx, methodSubscribe, key); err != nil {
			return err
		}
	}

	return nil
}

// sendControl writes one control frame as a single text message. No
// acknowledgement is awaited.
func (c *Client) sendControl(ctx context.Context, method string, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return errors.New(errors.ErrCodeNotConnected, "stream is not connected")
	}

	frame := newControlFrame(method, c.frameID.Add(1), key)

	payload, err := json.Marshal(frame)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSendFailed, "failed to encode control frame", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))

	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return errors.Wrapf(errors.ErrCodeSendFailed, err,
			"failed to send %s for %s", method, key.StreamName())
	}

	c.logger.Debug("control frame sent",
		zap.String("method", method),
		zap.String("stream", key.StreamName()),
		zap.Int64("id", frame.ID))

	return nil
}

func (c *Client) setState(state ConnState) {
	c.state.Store(int32(state))
}
