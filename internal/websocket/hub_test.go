package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/gorilla/websocket"
)

func TestHubBroadcastsEvents(t *testing.T) {
	c := qt.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	c.Assert(err, qt.IsNil)
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	c.Assert(hub.Count(), qt.Equals, 1)

	hub.Publish("product.deleted", 42)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	c.Assert(err, qt.IsNil)

	var ev Event
	c.Assert(json.Unmarshal(raw, &ev), qt.IsNil)
	c.Assert(ev.Type, qt.Equals, "product.deleted")
	c.Assert(ev.ProductID, qt.Equals, uint(42))
	c.Assert(ev.ID, qt.Not(qt.Equals), "")
}

func TestPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	c := qt.New(t)

	hub := NewHub()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish("product.updated", uint(i))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		c.Fatal("Publish blocked")
	}
}
