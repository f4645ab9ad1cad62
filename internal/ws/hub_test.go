package ws

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

	"github.com/ignatzorin/dispute-backend/internal/goroutine"
	"github.com/ignatzorin/dispute-backend/internal/logger"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.done
	})
	return hub
}

func receive(t *testing.T, c *Client) map[string]any {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		require.True(t, ok, "client channel closed")
		var event map[string]any
		require.NoError(t, json.Unmarshal(raw, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return nil
	}
}

func TestHub_PushToUser(t *testing.T) {
	hub := startHub(t)
	buyerTab := NewClient(nil, hub, 101)
	buyerPhone := NewClient(nil, hub, 101)
	seller := NewClient(nil, hub, 202)
	hub.Register(buyerTab)
	hub.Register(buyerPhone)
	hub.Register(seller)

	require.Eventually(t, func() bool { return hub.Connected(101) == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, hub.PushToUser(101, "dispute.closed", map[string]string{"code": "DSP-20260115-000001"}))

	for _, c := range []*Client{buyerTab, buyerPhone} {
		event := receive(t, c)
		assert.Equal(t, "dispute.closed", event["type"])
		assert.Equal(t, "DSP-20260115-000001", event["data"].(map[string]any)["code"])
	}
	assert.Empty(t, seller.send)
}

func TestHub_Unregister(t *testing.T) {
	hub := startHub(t)
	c := NewClient(nil, hub, 101)
	hub.Register(c)
	hub.Unregister(c)

	require.Eventually(t, func() bool { return hub.Connected(101) == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-c.send
	assert.False(t, ok)

	// повторное удаление безопасно
	hub.Unregister(c)
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := startHub(t)
	c := NewClient(nil, hub, 101)
	hub.Register(c)

	for i := 0; i < cap(c.send)+1; i++ {
		require.NoError(t, hub.PushToUser(101, "negotiation.message", i))
	}

	require.Eventually(t, func() bool { return hub.Connected(101) == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_StoppedHubDoesNotBlock(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()
	<-hub.done

	done := make(chan struct{})
	go func() {
		hub.Register(NewClient(nil, hub, 1))
		_ = hub.PushToUser(1, "dispute.closed", nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("calls on a stopped hub blocked")
	}
}

func TestClient_RunDeliversOverWebSocket(t *testing.T) {
	hub := startHub(t)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(conn, hub, 303)
		hub.Register(client)
		client.Run(r.Context(), goroutine.NewRecoveryHandler(logger.Log))
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connected(303) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, hub.PushToUser(303, "arbitration.verdict", map[string]string{"result": "REJECT"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"arbitration.verdict","data":{"result":"REJECT"}}`, string(raw))
}
