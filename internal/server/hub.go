package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/monkeyescape/monkeyescape/internal/core/observability/log"
)

const (
	clientSendBuffer = 32
	pongWait         = 60 * time.Second
	pingPeriod       = 25 * time.Second
)

// Commander accepts commands decoded from viewer messages.
type Commander interface {
	Submit(ctx context.Context, cmd any) error
}

// HubOptions tunes per-viewer limits.
type HubOptions struct {
	WriteTimeout   time.Duration
	MaxMessageSize int64
	// MessageRate caps the messages per second a viewer may send; excess
	// messages are dropped. Zero disables the limit.
	MessageRate  float64
	MessageBurst int
}

// Hub fans frames out to websocket viewers. Consecutive identical
// snapshot frames are sent once.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*client
	lastHash uint64
	hasLast  bool
	closed   bool
	hello    []byte

	upgrader websocket.Upgrader
	opts     HubOptions
	logger   log.Log
	wg       sync.WaitGroup
}

type client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	once    sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub creates a hub. hello is sent to every viewer right after it connects.
func NewHub(hello []byte, opts HubOptions, logger log.Log) *Hub {
	if opts.MessageBurst < 1 {
		opts.MessageBurst = 1
	}
	return &Hub{
		clients: make(map[string]*client),
		hello:   hello,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// viewers are served from other origins during development
			CheckOrigin: func(*http.Request) bool { return true },
		},
		opts:   opts,
		logger: logger.With(log.String("component", "hub")),
	}
}

// Count returns the number of connected viewers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastFrame sends a snapshot frame to every viewer unless it is
// byte-identical to the previous frame. It reports whether it was sent.
func (h *Hub) BroadcastFrame(payload []byte) bool {
	sum := xxhash.Sum64(payload)
	h.mu.Lock()
	if h.hasLast && sum == h.lastHash {
		h.mu.Unlock()
		return false
	}
	h.lastHash, h.hasLast = sum, true
	h.mu.Unlock()

	h.Broadcast(payload)
	return true
}

// Broadcast sends payload to every viewer. Viewers whose buffer is full
// miss the message.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.enqueue(c, payload)
	}
}

// SendTo sends payload to a single viewer.
func (h *Hub) SendTo(id string, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	if !ok {
		return false
	}
	return h.enqueue(c, payload)
}

// enqueue must be called with h.mu held.
func (h *Hub) enqueue(c *client, payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		h.logger.Debug("Viewer buffer full, dropping message", log.String("client_id", c.id))
		return false
	}
}

// Handler upgrades viewers to websocket and forwards their commands to cmds.
func (h *Hub) Handler(cmds Commander) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("Websocket upgrade failed", log.Error(err))
			return
		}
		c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, clientSendBuffer)}
		if h.opts.MessageRate > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(h.opts.MessageRate), h.opts.MessageBurst)
		}
		if !h.register(c) {
			_ = conn.Close()
			return
		}
		if h.hello != nil {
			h.SendTo(c.id, h.hello)
		}

		go func() {
			defer h.wg.Done()
			h.writePump(c)
		}()
		h.readPump(r.Context(), c, cmds)
	})
}

// register adds c and accounts for its writer under the same lock Close
// takes, so Close never waits on a group that is still growing.
func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.wg.Add(1)
	h.clients[c.id] = c
	// a new viewer needs the next frame even if nothing moved
	h.hasLast = false
	h.logger.Info("Viewer connected",
		log.String("client_id", c.id),
		log.String("remote_addr", c.conn.RemoteAddr().String()),
		log.Int("viewers", len(h.clients)))
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		c.close()
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("Viewer disconnected", log.String("client_id", c.id), log.Int("viewers", n))
}

func (h *Hub) readPump(ctx context.Context, c *client, cmds Commander) {
	defer h.unregister(c)

	c.conn.SetReadLimit(h.opts.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Viewer read failed", log.String("client_id", c.id), log.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if c.limiter != nil && !c.limiter.Allow() {
			h.logger.Debug("Viewer over message rate, dropping", log.String("client_id", c.id))
			continue
		}

		cmd, err := DecodeCommand(c.id, data)
		if err != nil {
			h.logger.Debug("Rejected viewer message", log.String("client_id", c.id), log.Error(err))
			if payload, encErr := Encode(MsgError, err.Error()); encErr == nil {
				h.SendTo(c.id, payload)
			}
			continue
		}
		if err := cmds.Submit(ctx, cmd); err != nil {
			h.logger.Debug("Command not accepted", log.String("client_id", c.id), log.Error(err))
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every viewer, refuses new ones and waits for the
// writers to finish.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		c.close()
	}
	h.mu.Unlock()
	h.wg.Wait()
}
