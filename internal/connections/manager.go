// Package connections tracks open chat websockets and keeps them alive.
package connections

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// TimeoutConfig holds the various timeout settings for WebSocket connections
type TimeoutConfig struct {
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
}

// DefaultTimeouts provides sensible default timeout values
var DefaultTimeouts = TimeoutConfig{
	PongWait:   30 * time.Second,
	PingPeriod: 27 * time.Second, // (PongWait * 9) / 10
	WriteWait:  10 * time.Second,
}

// Manager maps each open connection to the session it belongs to.
type Manager struct {
	connections sync.Map
	timeouts    TimeoutConfig
}

func NewManager(timeouts TimeoutConfig) *Manager {
	return &Manager{
		timeouts: timeouts,
	}
}

func (m *Manager) AddConnection(conn *websocket.Conn, sessionID string) {
	m.connections.Store(conn, sessionID)
}

func (m *Manager) RemoveConnection(conn *websocket.Conn) {
	m.connections.Delete(conn)
}

// GetConnectionCount returns the current number of active connections
func (m *Manager) GetConnectionCount() int {
	count := 0
	m.connections.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}

// SessionConnectionCount returns how many connections a session has open.
func (m *Manager) SessionConnectionCount(sessionID string) int {
	count := 0
	m.connections.Range(func(key, value interface{}) bool {
		if value.(string) == sessionID {
			count++
		}
		return true
	})
	return count
}

func (m *Manager) GetTimeouts() TimeoutConfig {
	return m.timeouts
}

// KeepAlive arms the read deadline, extends it on every pong and pings the
// peer until done is closed or a ping fails.
func (m *Manager) KeepAlive(conn *websocket.Conn, done <-chan struct{}) {
	m.ArmReadDeadline(conn)
	conn.SetPongHandler(func(string) error {
		m.ArmReadDeadline(conn)
		return nil
	})

	go func() {
		ticker := time.NewTicker(m.timeouts.PingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				deadline := time.Now().Add(m.timeouts.WriteWait)
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, deadline); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()
}

// ArmReadDeadline gives the peer PongWait to send its next frame.
func (m *Manager) ArmReadDeadline(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(m.timeouts.PongWait))
}

// SuspendReadDeadline clears the read deadline. Pongs are only processed
// while reading, so the deadline must be lifted while the handler is busy
// with something else and re-armed afterwards.
func (m *Manager) SuspendReadDeadline(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Time{})
}

// CloseAll sends a going-away close frame to every connection. Handlers see
// the close on their next read and clean up.
func (m *Manager) CloseAll() {
	deadline := time.Now().Add(m.timeouts.WriteWait)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")

	closed := 0
	m.connections.Range(func(key, value interface{}) bool {
		conn := key.(*websocket.Conn)
		if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			log.Debug().Err(err).Str("session_id", value.(string)).Msg("Failed to send close frame")
		}
		closed++
		return true
	})

	if closed > 0 {
		log.Info().Int("connections", closed).Msg("Closed websocket connections")
	}
}
