// Package client owns the consumer side of the push channel: an explicitly
// constructed connection with caller-owned lifecycle, bounded reconnection,
// and typed dispatch of decoded events to registered sinks. There is no
// package-level socket.
package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"bookswap/contract"
	"bookswap/errors"
	"bookswap/wire"

	"github.com/gorilla/websocket"
)

// State is the connectivity state surfaced to the presentation layer.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

type Config struct {
	// URL is the websocket endpoint, e.g. ws://localhost:8080/ws.
	URL string
	// Token is presented during the handshake on every (re)connection.
	Token string

	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	DialTimeout time.Duration
}

// Conn manages one logical push connection across reconnects.
type Conn struct {
	cfg     Config
	log     *slog.Logger
	sinks   []contract.EventSink
	state   atomic.Int32
	onState func(State)

	// Snapshots delivers pending_exchanges payloads, which are read-model
	// snapshots rather than events and so bypass the sinks.
	Snapshots chan wire.PendingExchangesPayload
}

func NewConn(cfg Config, log *slog.Logger, sinks ...contract.EventSink) *Conn {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultBackoff.maxAttempts
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = defaultBackoff.baseDelay
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = defaultBackoff.maxDelay
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	return &Conn{
		cfg:       cfg,
		log:       log,
		sinks:     sinks,
		Snapshots: make(chan wire.PendingExchangesPayload, 4),
	}
}

// OnStateChange registers a single observer for connectivity transitions.
// Must be called before Run.
func (c *Conn) OnStateChange(fn func(State)) {
	c.onState = fn
}

func (c *Conn) State() State {
	return State(c.state.Load())
}

// Run drives the connection until the context is canceled or the retry
// budget is exhausted. Each successful session resets the attempt counter;
// each reconnection re-authenticates. There is no event backfill: only
// events emitted while connected are received.
func (c *Conn) Run(ctx context.Context) error {
	cfg := backoffConfig{
		maxAttempts: c.cfg.MaxAttempts,
		baseDelay:   c.cfg.BaseDelay,
		maxDelay:    c.cfg.MaxDelay,
	}

	attempt := 0
	for {
		if ctx.Err() != nil {
			c.setState(Disconnected)
			return nil
		}

		c.setState(Connecting)
		err := c.session(ctx)
		c.setState(Disconnected)

		switch {
		case ctx.Err() != nil:
			return nil
		case stderrors.Is(err, errors.ErrAuthFailure):
			// A rejected credential will not improve with retries.
			return err
		case err == nil:
			// Server closed cleanly; reconnect from a fresh budget.
			attempt = 0
		default:
			attempt++
			if attempt >= cfg.maxAttempts {
				return fmt.Errorf("%w: giving up after %d attempts: %v",
					errors.ErrConnection, attempt, err)
			}
		}

		delay := backoffDelay(cfg, attempt)
		c.log.Info(fmt.Sprintf("Reconnecting in %s (attempt %d/%d)", delay, attempt+1, cfg.maxAttempts))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// session dials, authenticates, and pumps events until the connection
// drops. Returning nil means the server ended the session cleanly.
func (c *Conn) session(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := c.authenticate(conn); err != nil {
		return err
	}
	c.setState(Connected)
	c.log.Info("Push channel connected")

	// Unblock reads when the caller cancels.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var env wire.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		c.dispatch(ctx, env)
	}
}

func (c *Conn) authenticate(conn *websocket.Conn) error {
	payload, err := json.Marshal(wire.AuthenticatePayload{Token: c.cfg.Token})
	if err != nil {
		return err
	}
	if err := conn.WriteJSON(wire.Envelope{Kind: wire.KindAuthenticate, Payload: payload}); err != nil {
		return fmt.Errorf("handshake write: %w", err)
	}

	var reply wire.Envelope
	if err := conn.ReadJSON(&reply); err != nil {
		return fmt.Errorf("handshake read: %w", err)
	}
	switch reply.Kind {
	case wire.KindAuthSuccess:
		return nil
	case wire.KindAuthError:
		var p wire.AuthErrorPayload
		_ = json.Unmarshal(reply.Payload, &p)
		c.log.Warn(fmt.Sprintf("Authentication rejected: %s", p.Reason))
		return errors.ErrAuthFailure
	default:
		return fmt.Errorf("unexpected handshake reply %q", reply.Kind)
	}
}

// dispatch decodes an envelope and fans the event to every registered
// sink. Duplicate deliveries are the sinks' concern (the inbox dedups by
// event id).
func (c *Conn) dispatch(ctx context.Context, env wire.Envelope) {
	if env.Kind == wire.KindPendingExchanges {
		var p wire.PendingExchangesPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			c.log.Warn(fmt.Sprintf("Malformed pending snapshot: %v", err))
			return
		}
		select {
		case c.Snapshots <- p:
		default:
		}
		return
	}

	evt, err := wire.Decode(env)
	if err != nil {
		c.log.Warn(fmt.Sprintf("Dropping undecodable envelope: %v", err))
		return
	}
	for _, sink := range c.sinks {
		if err := sink.Consume(ctx, evt); err != nil {
			c.log.Warn(fmt.Sprintf("Sink rejected event %s: %v", evt.EventID(), err))
		}
	}
}

func (c *Conn) setState(s State) {
	if State(c.state.Swap(int32(s))) != s && c.onState != nil {
		c.onState(s)
	}
}
