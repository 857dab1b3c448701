package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, origins ...string) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(origins, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeUser(w, r, r.URL.Query().Get("user"))
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, user string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + user
	return websocket.DefaultDialer.Dial(url, header)
}

func TestHub_NotifyReachesUser(t *testing.T) {
	hub, srv := startHub(t)

	conn, _, err := dial(t, srv, "u1", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.IsOnline("u1") }, time.Second, 10*time.Millisecond)
	assert.False(t, hub.IsOnline("u2"))

	hub.Notify("u1", "friend_request", map[string]string{"id": "r1"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Event string            `json:"event"`
		Data  map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "friend_request", msg.Event)
	assert.Equal(t, "r1", msg.Data["id"])
}

func TestHub_PingPong(t *testing.T) {
	hub, srv := startHub(t)

	conn, _, err := dial(t, srv, "u1", nil)
	require.NoError(t, err)
	defer conn.Close()
	other, _, err := dial(t, srv, "u1", nil)
	require.NoError(t, err)
	defer other.Close()
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.userConns["u1"]) == 2
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"ping"}`)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"pong"}`, string(data))

	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err, "the user's other connection gets no pong")
}

func TestHub_RefusesAfterShutdown(t *testing.T) {
	hub := NewHub(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	served := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeUser(w, r, "u1")
		close(served)
	}))
	defer srv.Close()

	conn, _, err := dial(t, srv, "u1", nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeUser blocked after the hub stopped")
	}
	assert.False(t, hub.IsOnline("u1"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub, srv := startHub(t)

	conn, _, err := dial(t, srv, "u1", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.IsOnline("u1") }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return !hub.IsOnline("u1") }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	_, srv := startHub(t, "http://localhost:5173")

	_, resp, err := dial(t, srv, "u1", http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dial(t, srv, "u1", http.Header{"Origin": {"http://localhost:5173"}})
	require.NoError(t, err)
	conn.Close()
}
