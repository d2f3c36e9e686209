package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aigw/simplychat/internal/chat"
	"github.com/aigw/simplychat/internal/config"
	"github.com/aigw/simplychat/internal/connections"
	"github.com/aigw/simplychat/internal/services"
)

func newChatServer(t *testing.T, upstreamBody string) (string, *connections.Manager) {
	return newChatServerWith(t, upstreamBody, 0, connections.DefaultTimeouts)
}

func newChatServerWith(t *testing.T, upstreamBody string, upstreamDelay time.Duration, timeouts connections.TimeoutConfig) (string, *connections.Manager) {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(upstreamDelay)
		_, _ = w.Write([]byte(upstreamBody))
	}))
	t.Cleanup(upstream.Close)

	svcs, err := services.InitializeServices(&config.Config{
		APIURL:            upstream.URL,
		Model:             "llama3",
		Temperature:       0.7,
		WelcomeMessage:    "Welcome",
		SessionCookieName: "test_session",
		JWTSecret:         []byte("test-secret"),
		RateLimit:         config.RateLimitConfig{MaxHits: 30, Window: time.Minute},
	})
	require.NoError(t, err)

	manager := connections.NewManager(timeouts)
	router := mux.NewRouter()
	router.HandleFunc("/v1/ws", func(w http.ResponseWriter, r *http.Request) {
		HandleChatWebSocket(svcs, manager, w, r)
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/ws", manager
}

func dial(t *testing.T, url string) (*websocket.Conn, *http.Response) {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn, resp
}

func TestChatWebSocket(t *testing.T) {
	url, manager := newChatServer(t, `{"model":"m","choices":[{"message":{"content":"Hi there"}}]}`)
	conn, resp := dial(t, url)

	assert.NotEmpty(t, resp.Header.Get("Set-Cookie"))

	var hello ServerMessage
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, TypeConversation, hello.Type)
	assert.Equal(t, []chat.Message{{Role: chat.RoleAssistant, Content: "Welcome"}}, hello.Messages)
	assert.Eventually(t, func() bool { return manager.GetConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(ClientMessage{Prompt: "Hello"}))

	var out ServerMessage
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, TypeOutcome, out.Type)
	assert.Len(t, out.Messages, 3)
	assert.Equal(t, []chat.Message{
		{Role: chat.RoleUser, Content: "Hello"},
		{Role: chat.RoleAssistant, Content: "Hi there"},
	}, out.Appended)
	assert.Equal(t, []chat.Notice{{Level: chat.NoticeInfo, Text: "LLM Model Used: m"}}, out.Notices)
}

func TestChatWebSocketErrors(t *testing.T) {
	url, _ := newChatServer(t, `{}`)
	conn, _ := dial(t, url)

	var hello ServerMessage
	require.NoError(t, conn.ReadJSON(&hello))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var bad ServerMessage
	require.NoError(t, conn.ReadJSON(&bad))
	assert.Equal(t, TypeError, bad.Type)
	assert.Equal(t, "Invalid message format", bad.Error)

	require.NoError(t, conn.WriteJSON(ClientMessage{Prompt: ""}))
	var empty ServerMessage
	require.NoError(t, conn.ReadJSON(&empty))
	assert.Equal(t, TypeError, empty.Type)
	assert.Equal(t, chat.ErrEmptyPrompt.Error(), empty.Error)
}

func TestChatWebSocketCloseAll(t *testing.T) {
	url, manager := newChatServer(t, `{}`)
	conn, _ := dial(t, url)

	var hello ServerMessage
	require.NoError(t, conn.ReadJSON(&hello))

	manager.CloseAll()

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
	assert.Eventually(t, func() bool { return manager.GetConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestChatWebSocketSurvivesSlowUpstream(t *testing.T) {
	timeouts := connections.TimeoutConfig{
		PongWait:   300 * time.Millisecond,
		PingPeriod: 270 * time.Millisecond,
		WriteWait:  time.Second,
	}
	url, manager := newChatServerWith(t, `{"model":"m","choices":[{"message":{"content":"slow"}}]}`, 600*time.Millisecond, timeouts)
	conn, _ := dial(t, url)

	// The client answers pings only while reading, so keep a reader running.
	replies := make(chan ServerMessage, 4)
	go func() {
		for {
			var msg ServerMessage
			if err := conn.ReadJSON(&msg); err != nil {
				close(replies)
				return
			}
			replies <- msg
		}
	}()

	next := func() ServerMessage {
		select {
		case msg, ok := <-replies:
			require.True(t, ok, "connection closed")
			return msg
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for reply")
		}
		return ServerMessage{}
	}

	assert.Equal(t, TypeConversation, next().Type)

	for _, prompt := range []string{"first", "second"} {
		require.NoError(t, conn.WriteJSON(ClientMessage{Prompt: prompt}))
		out := next()
		assert.Equal(t, TypeOutcome, out.Type)
		assert.Equal(t, prompt, out.Appended[0].Content)
	}

	assert.Equal(t, 1, manager.GetConnectionCount())
}
