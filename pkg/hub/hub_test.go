package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

// testClient registers a bare client without a websocket connection.
func testClient(h *Hub, buffer int) *Client {
	c := &Client{ID: "test", hub: h, send: make(chan Message, buffer)}
	h.register <- c
	return c
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed unexpectedly")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
	return Message{}
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	a := testClient(h, 4)
	b := testClient(h, 4)

	if err := h.Publish(EventStatusUpdate, StatusUpdate{Message: "ready", DroneConnected: true}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for _, c := range []*Client{a, b} {
		msg := receive(t, c)
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			t.Fatalf("unmarshal broadcast: %v", err)
		}
		if env.Type != EventStatusUpdate {
			t.Errorf("event type = %q, want %q", env.Type, EventStatusUpdate)
		}
		var payload StatusUpdate
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload.Message != "ready" || !payload.DroneConnected {
			t.Errorf("payload = %+v", payload)
		}
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	slow := testClient(h, 1)
	fast := testClient(h, 16)

	// Two broadcasts overflow the slow client's single-slot buffer.
	h.Publish(EventStatusUpdate, StatusUpdate{Message: "one"})
	h.Publish(EventStatusUpdate, StatusUpdate{Message: "two"})

	// The slow client's channel is closed by the hub once it overflows.
	deadline := time.After(time.Second)
	closed := false
	for !closed {
		select {
		case _, ok := <-slow.send:
			if !ok {
				closed = true
			}
		case <-deadline:
			t.Fatal("slow client was never dropped")
		}
	}

	receive(t, fast)
	receive(t, fast)

	waitForCount(t, h, 1)
}

func TestClient_SendDuringDropDoesNotPanic(t *testing.T) {
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := testClient(h, 1)
	waitForCount(t, h, 1)

	// Hammer the direct-reply path from another goroutine while the hub
	// drops the client for being slow. A send on the closed channel
	// would panic and fail the test run.
	hammered := make(chan struct{})
	go func() {
		defer close(hammered)
		msg := NewJSONMessage([]byte(`{}`))
		for i := 0; i < 1000; i++ {
			c.Send(msg)
		}
	}()

	h.Publish(EventStatusUpdate, StatusUpdate{Message: "one"})
	h.Publish(EventStatusUpdate, StatusUpdate{Message: "two"})
	waitForCount(t, h, 0)

	select {
	case <-hammered:
	case <-time.After(time.Second):
		t.Fatal("sender goroutine did not finish")
	}

	if c.Send(NewJSONMessage([]byte(`{}`))) {
		t.Error("Send succeeded on a dropped client")
	}
}

func TestHub_ShutdownUnblocksClientTeardown(t *testing.T) {
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(runDone)
	}()

	c := testClient(h, 1)
	waitForCount(t, h, 1)

	cancel()
	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	if _, ok := <-c.send; ok {
		t.Error("send channel still open after shutdown")
	}
	if c.Send(NewJSONMessage([]byte(`{}`))) {
		t.Error("Send succeeded after shutdown")
	}

	// The read pump's unregister hand-off must not block once the hub
	// loop has exited.
	unblocked := make(chan struct{})
	go func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		close(unblocked)
	}()
	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("unregister blocked after shutdown")
	}
}

func TestHub_UnregisterUpdatesCount(t *testing.T) {
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := testClient(h, 1)
	waitForCount(t, h, 1)

	h.unregister <- c
	waitForCount(t, h, 0)

	if _, ok := <-c.send; ok {
		t.Error("send channel still open after unregister")
	}
}

func TestHub_RequestHandlerGetsInboundRequests(t *testing.T) {
	h := New("test")
	got := make(chan Request, 1)
	h.OnRequest(func(_ *Client, req Request) { got <- req })

	h.handleRequest(&Client{ID: "client-1"}, Request{Type: RequestManualCommand, Command: "land"})

	select {
	case req := <-got:
		if req.Type != RequestManualCommand || req.Command != "land" {
			t.Errorf("request = %+v", req)
		}
	default:
		t.Fatal("handler was not invoked")
	}
}

func waitForCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		if h.ClientCount() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("client count = %d, want %d", h.ClientCount(), want)
		case <-time.After(time.Millisecond):
		}
	}
}
