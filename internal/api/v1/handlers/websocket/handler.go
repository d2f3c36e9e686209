// Package websocket exchanges prompts and outcomes over a chat socket.
package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/aigw/simplychat/internal/api/v1/middleware"
	"github.com/aigw/simplychat/internal/chat"
	"github.com/aigw/simplychat/internal/connections"
	"github.com/aigw/simplychat/internal/services"
	"github.com/aigw/simplychat/internal/services/session"
)

const (
	TypeConversation = "conversation"
	TypeOutcome      = "outcome"
	TypeError        = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ClientMessage is sent by the browser.
type ClientMessage struct {
	Prompt string `json:"prompt"`
}

// ServerMessage is sent to the browser. Fields not relevant to Type are
// omitted.
type ServerMessage struct {
	Type     string         `json:"type"`
	Messages []chat.Message `json:"messages,omitempty"`
	Appended []chat.Message `json:"appended,omitempty"`
	Notices  []chat.Notice  `json:"notices,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// HandleChatWebSocket upgrades the request and serves prompts one at a time
// for the caller's session until the peer goes away.
func HandleChatWebSocket(svcs *services.Services, manager *connections.Manager, w http.ResponseWriter, r *http.Request) {
	responseHeader := http.Header{}
	sessionID, err := svcs.GetSessionService().ResolveHeader(responseHeader, r)
	if err != nil {
		log.Error().Err(err).Msg("Failed to resolve session")
		http.Error(w, "Failed to start session", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, responseHeader)
	if err != nil {
		// Upgrade already replied to the client.
		log.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}

	logger := log.With().Str("session_id", sessionID).Logger()

	manager.AddConnection(conn, sessionID)
	defer func() {
		manager.RemoveConnection(conn)
		conn.Close()
		logger.Info().
			Int("session_connections", manager.SessionConnectionCount(sessionID)).
			Msg("Websocket disconnected")
	}()

	logger.Info().
		Int("connections", manager.GetConnectionCount()).
		Int("session_connections", manager.SessionConnectionCount(sessionID)).
		Msg("Websocket connected")

	done := make(chan struct{})
	defer close(done)
	manager.KeepAlive(conn, done)

	timeouts := manager.GetTimeouts()
	send := func(msg ServerMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(timeouts.WriteWait))
		return conn.WriteJSON(msg)
	}

	conv, err := svcs.GetSessionService().Conversation(r.Context(), sessionID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load conversation")
		_ = send(ServerMessage{Type: TypeError, Error: "Failed to load conversation"})
		return
	}
	if err := send(ServerMessage{Type: TypeConversation, Messages: conv.Snapshot()}); err != nil {
		return
	}

	cfg := svcs.GetConfig().RateLimit
	limiter := svcs.GetSubmitLimiter()
	clientIP := middleware.ClientIP(r)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("Unexpected websocket closure")
			}
			break
		}

		var in ClientMessage
		if err := json.Unmarshal(data, &in); err != nil {
			if send(ServerMessage{Type: TypeError, Error: "Invalid message format"}) != nil {
				break
			}
			continue
		}

		if cfg.Enabled && !limiter.Allow(clientIP) {
			logger.Warn().Str("client", clientIP).Msg("Rate limit exceeded")
			if send(ServerMessage{Type: TypeError, Error: "Rate limit exceeded"}) != nil {
				break
			}
			continue
		}

		// The upstream call may outlast PongWait; no pongs are read meanwhile.
		manager.SuspendReadDeadline(conn)
		conv, outcome, err := svcs.Submit(r.Context(), sessionID, in.Prompt)
		manager.ArmReadDeadline(conn)
		if err != nil {
			msg := "Failed to process submission"
			if errors.Is(err, chat.ErrEmptyPrompt) || errors.Is(err, chat.ErrPromptTooLong) || errors.Is(err, session.ErrSubmitInProgress) {
				msg = err.Error()
			} else {
				logger.Error().Err(err).Msg("Failed to process submission")
			}
			if send(ServerMessage{Type: TypeError, Error: msg}) != nil {
				break
			}
			continue
		}

		if err := send(ServerMessage{
			Type:     TypeOutcome,
			Messages: conv.Snapshot(),
			Appended: outcome.Appended,
			Notices:  outcome.Notices,
		}); err != nil {
			break
		}
	}
}
