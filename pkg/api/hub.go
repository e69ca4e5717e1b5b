// Package api exposes the agent's HTTP surface: REST status endpoints and
// the WebSocket task channel.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// ChannelHandler is the per-channel message protocol layered on the hub's
// base envelope handling. HandleMessage runs on the connection's read
// goroutine; long work must not block it.
type ChannelHandler interface {
	Name() string
	HandleMessage(ctx context.Context, c *Conn, msgType string, msg map[string]any)
	OnDisconnect(c *Conn)
}

// HubConfig carries the heartbeat contract shared by every channel.
type HubConfig struct {
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	WriteTimeout      time.Duration
}

func (c HubConfig) withDefaults() HubConfig {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 60 * time.Second
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = 90 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	return c
}

// Hub manages WebSocket connections across all channels: registration,
// welcome envelopes, heartbeats, and the base ping/pong protocol.
type Hub struct {
	cfg HubConfig

	mu    sync.RWMutex
	conns map[string]*Conn

	// sendFailures counts failed writes for the status endpoint.
	failMu       sync.Mutex
	sendFailures int
}

// NewHub creates a hub with the given heartbeat contract.
func NewHub(cfg HubConfig) *Hub {
	return &Hub{
		cfg:   cfg.withDefaults(),
		conns: make(map[string]*Conn),
	}
}

// Conn is one WebSocket client.
//
// The timestamp fields form the per-connection heartbeat state; they are
// guarded by mu because the read loop and the heartbeat goroutine both
// touch them.
type Conn struct {
	ID   string
	sock *websocket.Conn

	hub     *Hub
	handler ChannelHandler
	ctx     context.Context
	cancel  context.CancelFunc

	mu            sync.Mutex
	connectedAt   time.Time
	lastHeartbeat time.Time
	lastActivity  time.Time
	isActive      bool
}

// ConnInfo is the observable per-connection state.
type ConnInfo struct {
	ID            string    `json:"id"`
	HandlerName   string    `json:"handler_name"`
	ConnectedAt   time.Time `json:"connected_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	LastActivity  time.Time `json:"last_activity"`
	IsActive      bool      `json:"is_active"`
}

// HandleConnection owns the lifecycle of one upgraded connection: welcome,
// heartbeat task, read loop, cleanup. Blocks until the connection closes.
func (h *Hub) HandleConnection(parentCtx context.Context, sock *websocket.Conn, handler ChannelHandler) {
	ctx, cancel := context.WithCancel(parentCtx)
	now := time.Now()
	c := &Conn{
		ID:            uuid.New().String(),
		sock:          sock,
		hub:           h,
		handler:       handler,
		ctx:           ctx,
		cancel:        cancel,
		connectedAt:   now,
		lastHeartbeat: now,
		lastActivity:  now,
		isActive:      true,
	}

	h.register(c)
	defer h.unregister(c)

	c.SendJSON(map[string]any{
		"type":      "welcome",
		"message":   "已连接到 " + handler.Name() + " 频道",
		"timestamp": now.UnixMilli(),
		"config": map[string]any{
			"heartbeat_interval": int(h.cfg.HeartbeatInterval.Seconds()),
			"timeout":            int(h.cfg.HeartbeatTimeout.Seconds()),
		},
	})

	go c.heartbeatLoop()

	for {
		readCtx, readCancel := context.WithTimeout(ctx, h.cfg.HeartbeatTimeout)
		_, data, err := sock.Read(readCtx)
		readCancel()
		if err != nil {
			return
		}
		c.touch()

		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("Invalid WebSocket message", "connection_id", c.ID, "error", err)
			c.SendJSON(errorEnvelope("INVALID_JSON", "消息不是有效的 JSON"))
			continue
		}
		msgType, _ := msg["type"].(string)
		switch msgType {
		case "ping":
			c.SendJSON(map[string]any{
				"type":             "pong",
				"timestamp":        msg["timestamp"],
				"server_timestamp": time.Now().UnixMilli(),
			})
		case "pong":
			// touch() above already refreshed the heartbeat.
		default:
			handler.HandleMessage(ctx, c, msgType, msg)
		}
	}
}

// heartbeatLoop pings the client every HeartbeatInterval and force-closes
// the connection when no heartbeat arrived within HeartbeatTimeout.
func (c *Conn) heartbeatLoop() {
	ticker := time.NewTicker(c.hub.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if time.Since(c.heartbeatAt()) > c.hub.cfg.HeartbeatTimeout {
				slog.Warn("Heartbeat timeout, closing connection", "connection_id", c.ID)
				c.cancel()
				_ = c.sock.Close(websocket.StatusPolicyViolation, "heartbeat timeout")
				return
			}
			c.SendJSON(map[string]any{
				"type":      "ping",
				"timestamp": time.Now().UnixMilli(),
				"message":   "心跳检测",
			})
		}
	}
}

// SendJSON marshals and sends one envelope with the hub's write timeout.
func (c *Conn) SendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to marshal WebSocket message", "connection_id", c.ID, "error", err)
		return
	}
	if err := c.sendRaw(data); err != nil {
		slog.Warn("Failed to send WebSocket message", "connection_id", c.ID, "error", err)
		c.hub.countSendFailure()
	}
}

func (c *Conn) sendRaw(data []byte) error {
	writeCtx, cancel := context.WithTimeout(c.ctx, c.hub.cfg.WriteTimeout)
	defer cancel()
	return c.sock.Write(writeCtx, websocket.MessageText, data)
}

// touch refreshes both heartbeat and activity; any inbound message counts.
func (c *Conn) touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.lastHeartbeat = now
	c.lastActivity = now
}

func (c *Conn) heartbeatAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastHeartbeat
}

// Info snapshots the connection state.
func (c *Conn) Info() ConnInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConnInfo{
		ID:            c.ID,
		HandlerName:   c.handler.Name(),
		ConnectedAt:   c.connectedAt,
		LastHeartbeat: c.lastHeartbeat,
		LastActivity:  c.lastActivity,
		IsActive:      c.isActive,
	}
}

// Broadcast sends one envelope to every active connection except the given
// one. Connections whose send fails are force-closed so their read loops
// clean them up.
func (h *Hub) Broadcast(v any, except *Conn) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to marshal broadcast message", "error", err)
		return
	}

	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		if except == nil || c.ID != except.ID {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.sendRaw(data); err != nil {
			slog.Warn("Failed to send to WebSocket client", "connection_id", c.ID, "error", err)
			h.countSendFailure()
			c.cancel()
			_ = c.sock.Close(websocket.StatusNormalClosure, "")
		}
	}
}

// ActiveConnections returns the count of registered connections.
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Connections snapshots every connection's state for the status endpoint.
func (h *Hub) Connections() []ConnInfo {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	infos := make([]ConnInfo, 0, len(conns))
	for _, c := range conns {
		infos = append(infos, c.Info())
	}
	return infos
}

// Shutdown force-closes every connection. Read loops observe the closed
// sockets and run their normal cleanup.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.cancel()
		_ = c.sock.Close(websocket.StatusGoingAway, "server shutdown")
	}
}

// SendFailures returns the cumulative failed-write count.
func (h *Hub) SendFailures() int {
	h.failMu.Lock()
	defer h.failMu.Unlock()
	return h.sendFailures
}

func (h *Hub) countSendFailure() {
	h.failMu.Lock()
	h.sendFailures++
	h.failMu.Unlock()
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID] = c
}

func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c.ID)
	h.mu.Unlock()

	c.mu.Lock()
	c.isActive = false
	c.mu.Unlock()

	c.handler.OnDisconnect(c)
	c.cancel()
	_ = c.sock.Close(websocket.StatusNormalClosure, "")
}

func errorEnvelope(code, message string) map[string]any {
	return map[string]any{
		"type":       "error",
		"error_code": code,
		"message":    message,
	}
}
