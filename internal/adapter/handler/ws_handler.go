package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/rl1809/catalog-cart/internal/core/domain"
	"github.com/rl1809/catalog-cart/internal/port"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// storefronts are served from the tenants' own domains
	CheckOrigin: func(r *http.Request) bool { return true },
}

// InventoryEvent is what subscribers receive for every stock change.
type InventoryEvent struct {
	Tenant string `json:"tenant"`
	domain.InventoryChange
}

type wsClient struct {
	conn   *websocket.Conn
	tenant string
	send   chan []byte
}

// Hub pushes inventory changes to the websocket subscribers of each tenant.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	closed  bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

type tenantPublisher struct {
	hub    *Hub
	tenant string
}

func (p tenantPublisher) Publish(change domain.InventoryChange) {
	p.hub.broadcast(InventoryEvent{Tenant: p.tenant, InventoryChange: change})
}

// Publisher returns the publisher an inventory service uses for tenant.
func (h *Hub) Publisher(tenant string) port.InventoryPublisher {
	return tenantPublisher{hub: h, tenant: tenant}
}

func (h *Hub) broadcast(event InventoryEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Error("failed to marshal inventory event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.tenant != event.Tenant {
			continue
		}
		select {
		case c.send <- data:
		default:
			log.WithFields(log.Fields{"tenant": c.tenant, "key": event.Key}).Warn("websocket buffer full, dropping message")
		}
	}
}

// Subscribers counts the open connections for tenant.
func (h *Hub) Subscribers(tenant string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.tenant == tenant {
			n++
		}
	}
	return n
}

func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	tenant := r.URL.Query().Get("tenant")
	if tenant == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing tenant"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("failed to upgrade connection")
		return
	}

	c := &wsClient{conn: conn, tenant: tenant, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		conn.Close()
		return
	}

	go c.writePump()
	go h.readPump(c)
}

func (h *Hub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump only keeps the connection alive; subscribers never send anything
// meaningful.
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).WithField("tenant", c.tenant).Debug("websocket closed")
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
