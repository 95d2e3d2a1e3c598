package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monkeyescape/monkeyescape/internal/core/observability/log"
)

type commandLog struct {
	mu   sync.Mutex
	cmds []any
}

func (c *commandLog) Submit(_ context.Context, cmd any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cmds = append(c.cmds, cmd)
	return nil
}

func (c *commandLog) received() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.cmds...)
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(url, "http")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&env))
	return env.Type, env.Data
}

func newTestHub(t *testing.T) (*Hub, *commandLog, *httptest.Server) {
	t.Helper()
	return newLimitedHub(t, 0, 0)
}

func newLimitedHub(t *testing.T, perSecond float64, burst int) (*Hub, *commandLog, *httptest.Server) {
	t.Helper()
	hello, err := Encode(MsgArena, ArenaInfo{Width: 100, Height: 50})
	require.NoError(t, err)
	hub := NewHub(hello, HubOptions{
		WriteTimeout:   time.Second,
		MaxMessageSize: 1024,
		MessageRate:    perSecond,
		MessageBurst:   burst,
	}, log.NewNop())
	cmds := &commandLog{}
	ts := httptest.NewServer(hub.Handler(cmds))
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
	})
	return hub, cmds, ts
}

func TestHubSendsHelloAndDedupsFrames(t *testing.T) {
	hub, _, ts := newTestHub(t)
	conn := dial(t, ts.URL)

	typ, data := readEnvelope(t, conn)
	assert.Equal(t, MsgArena, typ)
	assert.JSONEq(t, `{"width":100,"height":50,"obstacles":null}`, string(data))
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	first, _ := Encode(MsgSnapshot, map[string]int{"n": 1})
	second, _ := Encode(MsgSnapshot, map[string]int{"n": 2})
	assert.True(t, hub.BroadcastFrame(first))
	assert.False(t, hub.BroadcastFrame(first), "identical frame is skipped")
	assert.True(t, hub.BroadcastFrame(second))

	for _, want := range []string{`{"n":1}`, `{"n":2}`} {
		typ, data = readEnvelope(t, conn)
		assert.Equal(t, MsgSnapshot, typ)
		assert.JSONEq(t, want, string(data))
	}
}

func TestHubNewViewerGetsRepeatedFrame(t *testing.T) {
	hub, _, ts := newTestHub(t)
	frame, _ := Encode(MsgSnapshot, "still")
	assert.True(t, hub.BroadcastFrame(frame))
	assert.False(t, hub.BroadcastFrame(frame))

	conn := dial(t, ts.URL)
	readEnvelope(t, conn)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, hub.BroadcastFrame(frame))
	typ, _ := readEnvelope(t, conn)
	assert.Equal(t, MsgSnapshot, typ)
}

func TestHubForwardsCommands(t *testing.T) {
	_, cmds, ts := newTestHub(t)
	conn := dial(t, ts.URL)
	readEnvelope(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"play"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"choose","variant":"jimi"}`)))

	require.Eventually(t, func() bool { return len(cmds.received()) == 2 }, time.Second, 5*time.Millisecond)
	got := cmds.received()
	play, ok := got[0].(PlayCommand)
	require.True(t, ok)
	assert.NotEmpty(t, play.ClientID)
	assert.Equal(t, ChooseCommand{ClientID: play.ClientID, Variant: "jimi"}, got[1])
}

func TestHubRepliesToBadMessages(t *testing.T) {
	_, cmds, ts := newTestHub(t)
	conn := dial(t, ts.URL)
	readEnvelope(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"fly"}`)))
	typ, data := readEnvelope(t, conn)
	assert.Equal(t, MsgError, typ)
	assert.Contains(t, string(data), "unknown type")
	assert.Empty(t, cmds.received())
}

func TestHubCloseDisconnectsViewers(t *testing.T) {
	hub, _, ts := newTestHub(t)
	conn := dial(t, ts.URL)
	readEnvelope(t, conn)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.Count())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	late, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err == nil {
		// upgrade succeeds, registration does not
		_ = late.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err = late.ReadMessage()
		_ = late.Close()
	}
	assert.Error(t, err)
}

func TestHubCloseWhileViewersConnect(t *testing.T) {
	hub, _, ts := newTestHub(t)
	u := "ws" + strings.TrimPrefix(ts.URL, "http")

	var viewers sync.WaitGroup
	for i := 0; i < 16; i++ {
		viewers.Add(1)
		go func() {
			defer viewers.Done()
			conn, _, err := websocket.DefaultDialer.Dial(u, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}

	waitOrFail := func(what string, wait func()) {
		t.Helper()
		done := make(chan struct{})
		go func() {
			wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Fatalf("%s did not return", what)
		}
	}
	waitOrFail("Close", hub.Close)
	waitOrFail("viewers", viewers.Wait)
	assert.Equal(t, 0, hub.Count())
	// every writer counted by register has exited
	waitOrFail("writers", hub.wg.Wait)
}

func TestHubDropsMessagesOverRate(t *testing.T) {
	_, cmds, ts := newLimitedHub(t, 0.001, 2)
	conn := dial(t, ts.URL)
	readEnvelope(t, conn)

	for i := 0; i < 5; i++ {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"demo"}`)))
	}
	require.Eventually(t, func() bool { return len(cmds.received()) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, cmds.received(), 2)
}
