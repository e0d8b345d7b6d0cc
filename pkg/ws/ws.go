// Package ws streams dashboard updates to browsers over gorilla/websocket.
//
//	hub := ws.NewHub()
//	go hub.Run(ctx)
//	router.Handle("/ws", hub.Handler(func(c *ws.Client) { c.SendJSON(current) }))
//	hub.Publish(snapshot)
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shashiranjanraj/platter/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// AllowOrigins builds an origin checker. "*" allows any origin; requests
// without an Origin header (non-browser clients) are always allowed.
func AllowOrigins(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed["*"] {
			return true
		}
		if allowed[origin] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

// Client is one connected browser.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("ws: unexpected close", "error", err)
			}
			return
		}
		select {
		case c.hub.inbound <- Message{Client: c, Data: msg}:
		case <-c.hub.done:
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// Send queues data for this client only. A full buffer drops the message.
func (c *Client) Send(data []byte) {
	defer func() { recover() }() // send on a channel the hub already closed
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) SendJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ws: marshal: %w", err)
	}
	c.Send(data)
	return nil
}

// Message is a frame received from a client.
type Message struct {
	Client *Client
	Data   []byte
}

// Hub tracks connected clients and fans published messages out to them.
type Hub struct {
	upgrader   websocket.Upgrader
	broadcast  chan []byte
	inbound    chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once

	mu      sync.RWMutex
	clients map[*Client]bool

	// OnMessage is called for every inbound frame, on the hub goroutine.
	OnMessage func(msg Message)
}

type Option func(*Hub)

// WithCheckOrigin replaces the same-host origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) { h.upgrader.CheckOrigin = fn }
}

// NewHub creates a hub. Call Run in a goroutine before accepting clients.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     AllowOrigins(nil),
		},
		broadcast:  make(chan []byte, 256),
		inbound:    make(chan Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Run is the hub event loop. It disconnects every client and returns when
// ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeOnce.Do(func() { close(h.done) })
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			logger.Info("ws: client connected", "total", n)

		case c := <-h.unregister:
			h.drop(c)

		case msg := <-h.broadcast:
			h.mu.RLock()
			var slow []*Client
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()
			for _, c := range slow {
				h.drop(c)
			}

		case msg := <-h.inbound:
			if h.OnMessage != nil {
				h.OnMessage(msg)
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		logger.Info("ws: client disconnected", "total", len(h.clients))
	}
}

// Publish sends v as JSON to every client. It does not block; when the
// broadcast queue is full the message is dropped.
func (h *Hub) Publish(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ws: marshal: %w", err)
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		logger.Warn("ws: broadcast queue full, dropping message")
	}
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handler upgrades the request and registers the client. onConnect, when
// set, runs after registration so it can send the client its first frame.
func (h *Hub) Handler(onConnect func(c *Client)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WithCtx(r.Context()).Warn("ws: upgrade failed", "error", err)
			return
		}
		c := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
		select {
		case h.register <- c:
		case <-h.done:
			conn.Close()
			return
		}
		go c.writePump()
		go c.readPump()
		if onConnect != nil {
			onConnect(c)
		}
	}
}
