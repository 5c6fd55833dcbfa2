package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"simbridge/flightstatus"
	"simbridge/tcas"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
	wsSendBuffer   = 16
)

// Event is one message pushed to /ws clients.
type Event struct {
	Type      string                 `json:"type"`
	Adapter   string                 `json:"adapter,omitempty"`
	Snapshot  *flightstatus.Snapshot `json:"snapshot,omitempty"`
	Contacts  []tcas.Contact         `json:"contacts,omitempty"`
	Recording *bool                  `json:"recording,omitempty"`
	Command   string                 `json:"command,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Hub fans events out to websocket clients. Slow clients drop events
// instead of blocking the publisher.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshal monitor event", "type", ev.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slog.Debug("monitor client slow, event dropped", "remote", c.conn.RemoteAddr().String())
		}
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
	}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Monitor serves /metrics, /ws and /healthz.
type Monitor struct {
	addr     string
	hub      *Hub
	gatherer prometheus.Gatherer
	healthy  func() bool
	commands func(Command) error
	upgrader websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
}

func NewMonitor(addr string, hub *Hub, gatherer prometheus.Gatherer, healthy func() bool) *Monitor {
	return &Monitor{
		addr:     addr,
		hub:      hub,
		gatherer: gatherer,
		healthy:  healthy,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// HandleCommands routes "command" messages from /ws clients to fn. Each
// command is answered with a "command-result" event on the same socket.
func (m *Monitor) HandleCommands(fn func(Command) error) {
	m.commands = fn
}

func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/ws", m.handleWS)
	mux.HandleFunc("/healthz", m.handleHealth)
	return mux
}

// Addr is the bound address once Run is listening.
func (m *Monitor) Addr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

func (m *Monitor) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("monitor listen: %w", err)
	}
	m.mu.Lock()
	m.listener = ln
	m.mu.Unlock()

	srv := &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	slog.Info("monitor listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("monitor serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	// hijacked websocket connections are not tracked by the server
	m.hub.closeAll()
	return err
}

func (m *Monitor) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if m.healthy != nil && !m.healthy() {
		http.Error(w, "simulator data not valid", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("ok\n"))
}

func (m *Monitor) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	m.hub.add(c)
	slog.Debug("monitor client connected", "remote", conn.RemoteAddr().String())

	go m.writeLoop(c)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		m.clientMessage(c, data)
	}
	m.hub.remove(c)
	slog.Debug("monitor client disconnected", "remote", conn.RemoteAddr().String())
}

func (m *Monitor) clientMessage(c *wsClient, data []byte) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil || cmd.Type != "command" {
		slog.Debug("monitor client message ignored", "remote", c.conn.RemoteAddr().String())
		return
	}

	result := Event{Type: "command-result", Command: cmd.Command}
	switch {
	case m.commands == nil:
		result.Error = "commands not supported"
	default:
		if err := m.commands(cmd); err != nil {
			slog.Warn("monitor command failed", "command", cmd.Command, "error", err)
			result.Error = err.Error()
		}
	}

	reply, err := json.Marshal(result)
	if err != nil {
		return
	}
	select {
	case c.send <- reply:
	default:
	}
}

func (m *Monitor) writeLoop(c *wsClient) {
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	defer c.conn.Close()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
