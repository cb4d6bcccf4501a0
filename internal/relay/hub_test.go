package relay

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/collapse-engine/internal/engine"
)

func dialPeer(t *testing.T, srv *httptest.Server) (*websocket.Conn, welcomePayload) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	env := readEnvelope(t, conn)
	require.Equal(t, EventWelcome, env.Event)
	var w welcomePayload
	require.NoError(t, json.Unmarshal(env.Data, &w))
	return conn, w
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

// readUntil skips frames until one named event arrives.
func readUntil(t *testing.T, conn *websocket.Conn, event string) Envelope {
	t.Helper()
	for {
		env := readEnvelope(t, conn)
		if env.Event == event {
			return env
		}
	}
}

func startHTTP(t *testing.T, f *fixture) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(f.server.Handler())
	t.Cleanup(func() {
		f.server.Hub().Close()
		srv.Close()
	})
	return srv
}

func TestWelcomeCarriesIDs(t *testing.T) {
	f := newFixture(t, DefaultOptions(), nil)
	srv := startHTTP(t, f)

	_, a := dialPeer(t, srv)
	_, b := dialPeer(t, srv)
	assert.NotEmpty(t, a.ClientID)
	assert.NotEqual(t, a.ClientID, b.ClientID)
	assert.Equal(t, f.engine.Snapshot().SessionID, a.SessionID)
	assert.Equal(t, 2, f.server.Hub().Peers())
}

func TestCodeUpdateRebroadcastToOthers(t *testing.T) {
	f := newFixture(t, DefaultOptions(), nil)
	srv := startHTTP(t, f)

	a, _ := dialPeer(t, srv)
	b, _ := dialPeer(t, srv)

	require.NoError(t, a.WriteJSON(Envelope{Event: EventCodeUpdate, Data: json.RawMessage(`{"code":"x = 1"}`)}))
	got := readEnvelope(t, b)
	assert.Equal(t, EventCodeUpdated, got.Event)
	assert.JSONEq(t, `{"code":"x = 1"}`, string(got.Data))

	require.NoError(t, a.WriteJSON(Envelope{Event: EventCollapseEvent, Data: json.RawMessage(`{"generation":2}`)}))
	got = readEnvelope(t, b)
	assert.Equal(t, EventCollapseOccurred, got.Event)

	// The sender never hears its own frames back.
	a.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := a.ReadMessage()
	assert.Error(t, err)
}

func TestEngineEventsReachEveryPeer(t *testing.T) {
	f := newFixture(t, DefaultOptions(), nil)
	f.engine.Subscribe(f.server.Hub())
	srv := startHTTP(t, f)

	a, _ := dialPeer(t, srv)
	b, _ := dialPeer(t, srv)

	f.engine.ForceCollapse()
	for _, conn := range []*websocket.Conn{a, b} {
		env := readUntil(t, conn, string(engine.EventCollapseStarted))
		var p struct {
			SessionID  string          `json:"sessionId"`
			CollapseID string          `json:"collapseId"`
			Snapshot   engine.Snapshot `json:"snapshot"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &p))
		assert.NotEmpty(t, p.CollapseID)
		assert.True(t, p.Snapshot.IsCrashing)
	}

	f.clock.Advance(3 * time.Second)
	env := readUntil(t, a, string(engine.EventGenerationAdvanced))
	assert.Contains(t, string(env.Data), `"generation":1`)
}

func TestHubCloseDisconnectsPeers(t *testing.T) {
	f := newFixture(t, DefaultOptions(), nil)
	srv := startHTTP(t, f)
	a, _ := dialPeer(t, srv)

	f.server.Hub().Close()
	a.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := a.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
	assert.Equal(t, 0, f.server.Hub().Peers())
}

func TestOriginCheck(t *testing.T) {
	h := NewHub("http://allowed.test", nil)
	req := httptest.NewRequest("GET", "/ws", nil)
	assert.True(t, h.upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "http://allowed.test")
	assert.True(t, h.upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "http://evil.test")
	assert.False(t, h.upgrader.CheckOrigin(req))
}
