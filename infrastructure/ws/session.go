package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bookswap/domain"
	"bookswap/domain/event"
	"bookswap/wire"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

// session is one authenticated push connection. It implements
// contract.EventSink: the fanout goroutine hands events to the outbound
// buffer, and a single writer loop owns the socket. The per-connection
// sequence number lives here, not on the event.
type session struct {
	server   *Server
	id       string
	userID   string
	conn     *websocket.Conn
	outbound chan event.DomainEvent
	seq      uint64
}

func newSession(server *Server, conn *websocket.Conn) *session {
	return &session{
		server:   server,
		id:       uuid.NewString(),
		conn:     conn,
		outbound: make(chan event.DomainEvent, server.sendBuffer),
	}
}

// Consume buffers an event for delivery. A session whose buffer is full is
// not keeping up; failing it here lets the client reconnect with a clean
// stream instead of silently losing events mid-session.
func (s *session) Consume(_ context.Context, e event.DomainEvent) error {
	select {
	case s.outbound <- e:
		return nil
	default:
		_ = s.conn.Close()
		return fmt.Errorf("session %s buffer full, dropping connection", s.id)
	}
}

func (s *session) run(ctx context.Context) {
	defer func() { _ = s.conn.Close() }()

	if !s.handshake() {
		return
	}

	log := s.server.log
	log.Info("Push session authenticated", "session_id", s.id, "user_id", s.userID)

	s.server.roster.Subscribe(s.userID, s.id, s)
	s.server.presence.Connect(s.userID)
	defer func() {
		s.server.roster.Unsubscribe(s.userID, s.id)
		s.server.presence.Disconnect(s.userID)
		log.Info("Push session closed", "session_id", s.id, "user_id", s.userID)
	}()

	s.sendPendingSnapshot(ctx)

	// The reader only detects disconnects; clients send nothing after
	// the handshake.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := s.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readerDone:
			return
		case evt := <-s.outbound:
			if err := s.write(evt); err != nil {
				log.Warn(fmt.Sprintf("Failed to push event to session %s: %v", s.id, err))
				return
			}
		}
	}
}

// handshake enforces the authentication window: the first client message
// must be authenticate{token} and the token must validate, otherwise the
// connection is dropped.
func (s *session) handshake() bool {
	_ = s.conn.SetReadDeadline(time.Now().Add(s.server.authTimeout))
	defer func() { _ = s.conn.SetReadDeadline(time.Time{}) }()

	var env wire.Envelope
	if err := s.conn.ReadJSON(&env); err != nil {
		s.server.log.Warn(fmt.Sprintf("Handshake read failed: %v", err))
		return false
	}
	if env.Kind != wire.KindAuthenticate {
		s.reject(fmt.Sprintf("expected %s, got %s", wire.KindAuthenticate, env.Kind))
		return false
	}

	var payload wire.AuthenticatePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		s.reject("malformed authenticate payload")
		return false
	}

	claims, err := s.server.tokens.Validate(payload.Token)
	if err != nil {
		s.reject("invalid or expired token")
		return false
	}

	s.userID = claims.UserID
	return s.writeEnvelope(wire.KindAuthSuccess, wire.AuthSuccessPayload{UserID: s.userID}) == nil
}

func (s *session) reject(reason string) {
	_ = s.writeEnvelope(wire.KindAuthError, wire.AuthErrorPayload{Reason: reason})
}

// sendPendingSnapshot pushes the owner's currently pending requests once
// after auth. This is a read-model snapshot, not event replay.
func (s *session) sendPendingSnapshot(ctx context.Context) {
	pending, err := s.server.exchanges.PendingOffers(ctx, s.userID)
	if err != nil {
		s.server.log.Warn(fmt.Sprintf("Could not load pending offers for %s: %v", s.userID, err))
		return
	}
	if len(pending) == 0 {
		return
	}
	payload := wire.PendingExchangesPayload{
		Requests: lo.Map(pending, func(r domain.ExchangeRequest, _ int) wire.Request {
			return wire.FromDomain(r)
		}),
	}
	if err := s.writeEnvelope(wire.KindPendingExchanges, payload); err != nil {
		s.server.log.Warn(fmt.Sprintf("Failed to push pending snapshot to %s: %v", s.id, err))
	}
}

func (s *session) write(evt event.DomainEvent) error {
	s.seq++
	env, err := wire.Encode(evt, s.seq)
	if err != nil {
		return err
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.server.writeTimeout))
	return s.conn.WriteJSON(env)
}

func (s *session) writeEnvelope(kind string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	s.seq++
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.server.writeTimeout))
	return s.conn.WriteJSON(wire.Envelope{Kind: kind, Seq: s.seq, Payload: raw})
}
