// Package ws hosts the server side of the push channel: websocket sessions
// that authenticate, register with the broker and presence tracker, and
// stream wire envelopes to one client.
package ws

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"bookswap/auth"
	"bookswap/contract"
	"bookswap/exchange"
	"bookswap/presence"

	"github.com/gorilla/websocket"
)

type Server struct {
	log       *slog.Logger
	tokens    *auth.TokenManager
	roster    contract.IRoster
	presence  *presence.Tracker
	exchanges exchange.Service
	upgrader  websocket.Upgrader

	authTimeout  time.Duration
	writeTimeout time.Duration
	sendBuffer   int
}

func NewServer(log *slog.Logger, tokens *auth.TokenManager, roster contract.IRoster,
	tracker *presence.Tracker, exchanges exchange.Service,
	authTimeout, writeTimeout time.Duration, sendBuffer int) *Server {
	return &Server{
		log:       log,
		tokens:    tokens,
		roster:    roster,
		presence:  tracker,
		exchanges: exchanges,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The command API carries the credential; the handshake on
			// this channel re-authenticates, so any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		authTimeout:  authTimeout,
		writeTimeout: writeTimeout,
		sendBuffer:   sendBuffer,
	}
}

// Handle upgrades the HTTP request and runs the session until the client
// disconnects. It blocks for the lifetime of the connection.
func (s *Server) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn(fmt.Sprintf("Websocket upgrade failed: %v", err))
		return
	}

	session := newSession(s, conn)
	session.run(r.Context())
}
