package relay

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/collapse-engine/internal/engine"
	"github.com/danielpatrickdp/collapse-engine/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 32
)

// #region hub
// Hub tracks websocket peers and fans messages out to them. It is also an engine observer:
// collapse, text, generation and reset events are broadcast to every peer.
type Hub struct {
	mu       sync.RWMutex
	peers    map[string]*peer
	closed   bool
	upgrader websocket.Upgrader
	logger   *zap.Logger
	session  func() string
}

type peer struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub accepting upgrades from origin. An empty origin or "*" accepts any.
func NewHub(origin string, logger *zap.Logger) *Hub {
	h := &Hub{
		peers:  make(map[string]*peer),
		logger: logging.OrNop(logger),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			got := r.Header.Get("Origin")
			return origin == "" || origin == "*" || got == "" || got == origin
		},
	}
	return h
}

// Peers reports how many peers are connected.
func (h *Hub) Peers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Close disconnects every peer and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, p := range h.peers {
		close(p.send)
		delete(h.peers, id)
	}
}

// #endregion hub

// #region broadcast
// Broadcast sends env to every peer except the one with id except. Peers whose send
// buffer is full miss the message.
func (h *Hub) Broadcast(env Envelope, except string) {
	msg, err := json.Marshal(env)
	if err != nil {
		h.logger.Warn("encode broadcast", zap.String("event", env.Event), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, p := range h.peers {
		if id == except {
			continue
		}
		select {
		case p.send <- msg:
		default:
			h.logger.Warn("peer send buffer full, dropping message", zap.String("client", id), zap.String("event", env.Event))
		}
	}
}

// OnEvent broadcasts the engine events peers care about.
func (h *Hub) OnEvent(ev engine.Event) {
	switch ev.Kind {
	case engine.EventCollapseStarted, engine.EventTextMutated, engine.EventGenerationAdvanced, engine.EventReset:
	default:
		return
	}
	data, err := json.Marshal(enginePayload{SessionID: ev.SessionID, CollapseID: ev.CollapseID, Snapshot: ev.Snapshot})
	if err != nil {
		h.logger.Warn("encode engine event", zap.String("kind", string(ev.Kind)), zap.Error(err))
		return
	}
	h.Broadcast(Envelope{Event: string(ev.Kind), Data: data}, "")
}

// #endregion broadcast

// #region serve
// ServeWS upgrades the request and runs the peer until it disconnects.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	p := &peer{id: uuid.New().String(), conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(p) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	h.logger.Info("client connected", zap.String("client", p.id))

	welcome := welcomePayload{ClientID: p.id}
	if h.session != nil {
		welcome.SessionID = h.session()
	}
	if data, err := json.Marshal(welcome); err == nil {
		h.sendTo(p, Envelope{Event: EventWelcome, Data: data})
	}

	go p.writeLoop()
	h.readLoop(p)

	h.unregister(p)
	h.logger.Info("client disconnected", zap.String("client", p.id))
}

func (h *Hub) register(p *peer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.peers[p.id] = p
	return true
}

func (h *Hub) unregister(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.peers[p.id]; ok && cur == p {
		close(p.send)
		delete(h.peers, p.id)
	}
}

func (h *Hub) sendTo(p *peer, env Envelope) {
	msg, err := json.Marshal(env)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.peers[p.id]; !ok {
		return
	}
	select {
	case p.send <- msg:
	default:
	}
}

// readLoop relays inbound frames until the connection fails.
func (h *Hub) readLoop(p *peer) {
	p.conn.SetReadLimit(maxMessageSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read", zap.String("client", p.id), zap.Error(err))
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			h.logger.Debug("malformed frame", zap.String("client", p.id), zap.Error(err))
			continue
		}
		switch env.Event {
		case EventCodeUpdate:
			h.Broadcast(Envelope{Event: EventCodeUpdated, Data: env.Data}, p.id)
		case EventCollapseEvent:
			h.Broadcast(Envelope{Event: EventCollapseOccurred, Data: env.Data}, p.id)
		default:
			h.logger.Debug("unknown event", zap.String("client", p.id), zap.String("event", env.Event))
		}
	}
}

// writeLoop drains the send buffer and keeps the connection alive with pings.
// It closes the connection when the buffer is closed or a write fails.
func (p *peer) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// #endregion serve
