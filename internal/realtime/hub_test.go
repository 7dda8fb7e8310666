package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taskflow/internal/model"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesOnlyRecipient(t *testing.T) {
	h := NewHub()
	alice, stopAlice := h.Subscribe(1)
	bob, stopBob := h.Subscribe(2)
	defer stopBob()

	h.Publish(model.Notification{ID: 10, UserID: 1, Message: "hi"})

	select {
	case n := <-alice:
		assert.Equal(t, int64(10), n.ID)
	case <-time.After(time.Second):
		t.Fatal("alice did not receive")
	}
	select {
	case n := <-bob:
		t.Fatalf("bob received %+v", n)
	default:
	}

	stopAlice()
	stopAlice()
	_, open := <-alice
	assert.False(t, open)
	assert.Equal(t, 0, h.Subscribers(1))
	assert.Equal(t, 1, h.Subscribers(2))
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub()
	_, stop := h.Subscribe(1)
	defer stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			h.Publish(model.Notification{ID: int64(i), UserID: 1})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestHub_ServeStreamsOverWebsocket(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Serve(context.Background(), conn, 7)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.Subscribers(7) == 1 }, time.Second, 10*time.Millisecond)
	h.Publish(model.Notification{ID: 3, UserID: 7, Kind: model.NotifyComment, Message: "new comment"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got model.Notification
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "new comment", got.Message)
}
