package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"codepair/pkg/protocol"
	"codepair/pkg/registry"
)

const (
	defaultReadLimit   = 512 * 1024
	pingInterval       = 40 * time.Second
	writeTimeout       = 10 * time.Second
	upgradeReadBuffer  = 1024
	upgradeWriteBuffer = 1024
)

// HubOptions configures a Hub instance.
type HubOptions struct {
	ICEServers []protocol.ICEServer
	ICEMode    string
	Logger     *log.Logger
	Upgrader   *websocket.Upgrader
	OnEmpty    func()
}

// ConnOptions controls how a connection is registered.
type ConnOptions struct {
	// ID overrides the generated peer ID (useful for authenticated callers).
	ID string
	// Context lets the caller cancel the connection (defaults to Background).
	Context context.Context
}

// Hub owns the live WebSocket peers and routes every signaling event:
// presence, call negotiation, and the ephemeral state relay. Room membership
// and the identity map live in the injected registry.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*client
	reg        registry.Store
	tracker    *negotiationTracker
	iceServers []protocol.ICEServer
	iceMode    string
	upgrader   websocket.Upgrader
	logger     *log.Logger
	onEmpty    func()
}

type client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub builds a signaling Hub over the provided registry.
func NewHub(reg registry.Store, opts HubOptions) *Hub {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  upgradeReadBuffer,
		WriteBufferSize: upgradeWriteBuffer,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	if opts.Upgrader != nil {
		upgrader = *opts.Upgrader
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Hub{
		clients:    make(map[string]*client),
		reg:        reg,
		tracker:    newNegotiationTracker(),
		iceServers: opts.ICEServers,
		iceMode:    opts.ICEMode,
		upgrader:   upgrader,
		logger:     logger,
		onEmpty:    opts.OnEmpty,
	}
}

// HTTPHandler upgrades HTTP connections and registers them with the Hub.
func (h *Hub) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Printf("upgrade error: %v", err)
			return
		}
		// Use a background context so the connection isn't canceled when the HTTP handler returns.
		if err := h.Accept(conn, ConnOptions{}); err != nil {
			h.logger.Printf("accept error: %v", err)
			conn.Close()
		}
	})
}

// Accept registers an already-upgraded WebSocket connection (useful when auth/guards are handled elsewhere).
func (h *Hub) Accept(conn *websocket.Conn, opts ConnOptions) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	c := &client{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, 32),
		ctx:    ctx,
		cancel: cancel,
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	h.logger.Printf("ws: accepted %s", c.id)
	c.sendJSON(protocol.WelcomeMessage{
		Type:       protocol.EventWelcome,
		PeerID:     c.id,
		ICEServers: h.iceServers,
		ICEMode:    h.iceMode,
	})

	go c.writePump()
	go c.readPump(h)
	return nil
}

// sendTo delivers msg to one peer, reporting whether a live connection was
// found. Missing targets are the caller's signal to silently drop.
func (h *Hub) sendTo(peerID string, msg interface{}) bool {
	h.mu.RLock()
	target := h.clients[peerID]
	h.mu.RUnlock()
	if target == nil {
		return false
	}
	target.sendJSON(msg)
	return true
}

// broadcastRoom delivers msg to every current member of room except skipID.
func (h *Hub) broadcastRoom(ctx context.Context, room string, msg interface{}, skipID string) {
	members, err := h.reg.Members(ctx, room)
	if err != nil {
		h.logger.Printf("members of %s: %v", room, err)
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Printf("marshal broadcast: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, m := range members {
		if m.PeerID == skipID {
			continue
		}
		cl := h.clients[m.PeerID]
		if cl == nil {
			continue
		}
		select {
		case cl.send <- data:
		default:
			h.logger.Printf("client send buffer full for %s, dropping message", m.PeerID)
		}
	}
}

func (c *client) readPump(h *Hub) {
	defer func() {
		h.drop(c)
		c.conn.Close()
		close(c.send)
		c.cancel()
	}()

	c.conn.SetReadLimit(defaultReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return
			}
			if !errors.Is(err, websocket.ErrCloseSent) {
				h.logger.Printf("read error from %s: %v", c.id, err)
			}
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.logger.Printf("bad payload from %s: %v", c.id, err)
			continue
		}
		h.handleInbound(c, env)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
