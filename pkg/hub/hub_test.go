package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// fakeConn records writes and blocks reads until closed.
type fakeConn struct {
	mu      sync.Mutex
	written []Message
	types   []int
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, messageType)
	switch messageType {
	case websocket.TextMessage:
		f.written = append(f.written, Message{Kind: KindEvent, Data: data})
	case websocket.BinaryMessage:
		f.written = append(f.written, Message{Kind: KindFrame, Data: data})
	}
	return nil
}

func (f *fakeConn) SetReadLimit(int64) {}
func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.written))
	copy(out, f.written)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestHubBroadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("events", zap.NewNop())
	go h.Run(ctx)

	conn := newFakeConn()
	go Serve(h, conn)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	if err := h.PublishEvent(map[string]any{"blurry": true}); err != nil {
		t.Fatalf("PublishEvent failed: %v", err)
	}
	h.PublishFrame([]byte{0xff, 0xd8})

	waitFor(t, func() bool { return len(conn.messages()) == 2 })
	msgs := conn.messages()

	var decoded map[string]bool
	if err := json.Unmarshal(msgs[0].Data, &decoded); err != nil || !decoded["blurry"] {
		t.Errorf("unexpected JSON message %q", msgs[0].Data)
	}
	if msgs[1].Kind != KindFrame || string(msgs[1].Data) != "\xff\xd8" {
		t.Errorf("second message should be the binary frame, got %+v", msgs[1])
	}

	conn.Close()
	waitFor(t, func() bool { return h.ClientCount() == 0 })
}

func TestHubStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New("events", zap.NewNop())
	go h.Run(ctx)

	conn := newFakeConn()
	go Serve(h, conn)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	cancel()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	// The write pump sends a close frame and closes the connection.
	select {
	case <-conn.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("connection not closed after hub stopped")
	}

	if NewClient(h, newFakeConn()) != nil {
		t.Error("NewClient should return nil on a stopped hub")
	}
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	h := New("events", zap.NewNop())
	for i := 0; i < cap(h.broadcast)+3; i++ {
		h.PublishFrame([]byte{byte(i)})
	}
	if h.Dropped() != 3 {
		t.Errorf("expected 3 dropped messages, got %d", h.Dropped())
	}
}

func TestMessageFrameType(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindEvent, websocket.TextMessage},
		{KindFrame, websocket.BinaryMessage},
	}
	for _, tc := range tests {
		if got := (Message{Kind: tc.kind}).frameType(); got != tc.want {
			t.Errorf("kind %d: got frame type %d, want %d", tc.kind, got, tc.want)
		}
	}
}
