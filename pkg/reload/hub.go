// Copyright 2025 Glimpse Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package reload

import (
	"net/http"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var reloadMessage = []byte(`{"command":"reload"}`)

// HubOptions configures connection handling for the reload hub.
type HubOptions struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	ReadTimeout  time.Duration
	SendBuffer   int
}

// DefaultHubOptions returns sensible defaults for local use.
func DefaultHubOptions() HubOptions {
	return HubOptions{
		WriteTimeout: 10 * time.Second,
		PingInterval: 15 * time.Second,
		ReadTimeout:  90 * time.Second,
		SendBuffer:   8,
	}
}

// Hub accepts websocket connections from injected page scripts and pushes
// reload commands to them. It is an http.Handler; mount it on the reload
// socket path.
type Hub struct {
	upgrader websocket.Upgrader
	options  HubOptions

	// broadcast serializes reload fan-out. A single worker keeps message
	// order stable and lets NotifyReload return without blocking.
	broadcast *workerpool.WorkerPool

	mu      sync.RWMutex
	clients map[*client]struct{}

	// closed blocks submissions once Close has begun; submitting to a
	// stopped worker pool panics.
	closed bool

	closeOnce sync.Once
	logger    zerolog.Logger
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub with the given options.
func NewHub(options HubOptions, logger zerolog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The socket is only reachable on the local preview server;
			// pages from file:// or other ports may still connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		options:   options,
		broadcast: workerpool.New(1),
		clients:   make(map[*client]struct{}),
		logger:    logger.With().Str("component", "reload.hub").Logger(),
	}
}

// ServeHTTP upgrades the connection and services it until the client
// disconnects or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, h.options.SendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug().
		Str("remote", conn.RemoteAddr().String()).
		Msg("reload client connected")

	go h.writePump(c)
	h.readPump(c)
}

// NotifyReload queues a reload command for every connected client.
// Safe to call concurrently with Close; late notifications from a
// debounce timer that fires during shutdown are dropped.
func (h *Hub) NotifyReload() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}

	h.broadcast.Submit(func() {
		h.mu.RLock()
		defer h.mu.RUnlock()

		for c := range h.clients {
			select {
			case c.send <- reloadMessage:
			default:
				// Client is backed up; the ping timeout will reap it.
			}
		}
		if len(h.clients) > 0 {
			h.logger.Debug().Int("clients", len(h.clients)).Msg("reload broadcast")
		}
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients and stops the broadcast worker. The hub
// cannot be reused afterwards.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.mu.Unlock()

		// Pending broadcasts drain before the clients go away.
		h.broadcast.StopWait()

		h.mu.Lock()
		defer h.mu.Unlock()
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
	})
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump drains the connection. Clients never send anything useful, but
// an active reader is required to process pong frames and notice closes.
func (h *Hub) readPump(c *client) {
	defer h.drop(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.options.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.options.ReadTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				h.logger.Debug().Err(err).Msg("reload client read error")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.options.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.options.WriteTimeout))
			if !ok {
				// Hub closed the client; say goodbye properly.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.options.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
