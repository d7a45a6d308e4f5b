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
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func startManager(t *testing.T) (*Manager, *httptest.Server) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	m := NewManager()
	go m.Start(ctx)

	srv := httptest.NewServer(m.Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return m, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestFeedFiltersByPost(t *testing.T) {
	m, srv := startManager(t)

	postID := primitive.NewObjectID().Hex()
	other := primitive.NewObjectID().Hex()

	scoped := dial(t, srv, "?postId="+postID)
	all := dial(t, srv, "")

	assert.Equal(t, "connected", readEvent(t, scoped).Type)
	assert.Equal(t, "connected", readEvent(t, all).Type)
	assert.Eventually(t, func() bool { return m.ConnectedClients() == 2 }, time.Second, 10*time.Millisecond)

	m.Broadcast(CommentCreated, other, map[string]string{"text": "elsewhere"})
	m.Broadcast(CommentDeleted, postID, map[string]string{"id": "c1"})

	ev := readEvent(t, all)
	assert.Equal(t, CommentCreated, ev.Type)
	assert.Equal(t, other, ev.PostID)

	ev = readEvent(t, all)
	assert.Equal(t, CommentDeleted, ev.Type)

	// the scoped client never sees the other post's event
	ev = readEvent(t, scoped)
	assert.Equal(t, CommentDeleted, ev.Type)
	assert.Equal(t, postID, ev.PostID)
}

func TestFeedRejectsBadPostID(t *testing.T) {
	_, srv := startManager(t)

	resp, err := http.Get(srv.URL + "/?postId=nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFeedUnregistersOnClose(t *testing.T) {
	m, srv := startManager(t)

	conn := dial(t, srv, "")
	readEvent(t, conn)
	assert.Eventually(t, func() bool { return m.ConnectedClients() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return m.ConnectedClients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestBroadcastDoesNotBlock(t *testing.T) {
	m := NewManager()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			m.Broadcast(CommentCreated, "p", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked without a running hub")
	}
}
