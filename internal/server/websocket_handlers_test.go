package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agora/internal/models"
	"agora/internal/notifications"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ticketResponse struct {
	Ticket    string `json:"ticket"`
	ExpiresIn int    `json:"expires_in"`
}

func TestIssueWSTicket(t *testing.T) {
	env := newTestEnv(t, withRedis())
	user, token := env.seedUser(t, "alice")

	resp := env.do(t, http.MethodPost, "/api/ws/ticket", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/ws/ticket", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ticket := decode[ticketResponse](t, resp)
	require.NotEmpty(t, ticket.Ticket)
	assert.Equal(t, 30, ticket.ExpiresIn)

	stored, err := env.mr.Get("ws_ticket:" + ticket.Ticket)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprint(user.ID), stored)
	assert.True(t, env.mr.TTL("ws_ticket:"+ticket.Ticket) <= wsTicketTTL)
}

func TestIssueWSTicket_WithoutRedis(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "alice")

	resp := env.do(t, http.MethodPost, "/api/ws/ticket", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestWebsocketEndpoint_RejectsPlainHTTPAndBearerTokens(t *testing.T) {
	env := newTestEnv(t, withRedis())
	_, token := env.seedUser(t, "alice")

	resp := env.do(t, http.MethodGet, "/api/ws?ticket=whatever", "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

// listen serves the app on a loopback port for real websocket clients.
func listen(t *testing.T, env *testEnv) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = env.app.Listener(ln) }()
	t.Cleanup(func() { _ = env.app.ShutdownWithTimeout(2 * time.Second) })
	return ln.Addr().String()
}

func TestWebsocket_ReceivesMessageEvents(t *testing.T) {
	env := newTestEnv(t, withRedis())
	_, aliceToken := env.seedUser(t, "alice")
	bob, bobToken := env.seedUser(t, "bob")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, env.server.hub.StartWiring(ctx, env.server.notifier))

	addr := listen(t, env)

	resp := env.do(t, http.MethodPost, "/api/ws/ticket", bobToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ticket := decode[ticketResponse](t, resp).Ticket

	conn, _, err := gorillaws.DefaultDialer.Dial(fmt.Sprintf("ws://%s/api/ws?ticket=%s", addr, ticket), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return env.server.hub.ConnectionCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	// The ticket is single-use.
	_, dialResp, err := gorillaws.DefaultDialer.Dial(fmt.Sprintf("ws://%s/api/ws?ticket=%s", addr, ticket), nil)
	require.Error(t, err)
	require.NotNil(t, dialResp)
	assert.Equal(t, http.StatusUnauthorized, dialResp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/conversations", aliceToken, map[string]any{"user_id": bob.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	conv := decode[models.Conversation](t, resp)

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/conversations/%d/messages", conv.ID), aliceToken,
		map[string]string{"content": "ping"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	seen := map[string]json.RawMessage{}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for len(seen) < 2 {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var event struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(data, &event))
		seen[event.Type] = event.Payload
	}

	require.Contains(t, seen, notifications.EventConversationNew)
	require.Contains(t, seen, notifications.EventMessageCreated)
	var msg models.Message
	require.NoError(t, json.Unmarshal(seen[notifications.EventMessageCreated], &msg))
	assert.Equal(t, "ping", msg.Content)
	assert.Equal(t, conv.ID, msg.ConversationID)
}
