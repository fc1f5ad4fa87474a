// Package progresshub serves build progress over a localhost WebSocket so
// companion tooling (a status bar, a tail utility) can watch builds live.
//
// Single-connection model: one desktop, one observer. A new connection
// replaces the current one so observer restarts reconnect cleanly.
package progresshub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"takarum/internal/progress"
)

// writeDeadline bounds a single WebSocket write. Localhost writes that take
// longer than this indicate a dead observer.
const writeDeadline = 5 * time.Second

// readDeadline is the longest the hub waits for read activity (pongs
// included) before the connection counts as dead: three missed pings.
const readDeadline = 90 * time.Second

// pingInterval is the keepalive cadence.
const pingInterval = 30 * time.Second

// maxReadMessageSize caps incoming messages. Observers send nothing but the
// occasional close frame, so 4 KiB is ample.
const maxReadMessageSize = 4 * 1024

var wsUpgrader = websocket.Upgrader{
	// The hub binds loopback only; origin checking adds nothing for a
	// same-machine observer.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 4 * 1024,
}

// Frame is one progress message on the wire.
type Frame struct {
	BuildID string `json:"buildId"`
	Kind    string `json:"kind"`
	Text    string `json:"text"`
}

// Options configures the hub.
type Options struct {
	// Addr is the loopback listen address. "127.0.0.1:0" picks a free port.
	Addr string
}

// Hub broadcasts progress frames to at most one connected observer.
//
// Lock ordering (never acquire in reverse): writeMu -> mu.
// mu protects the connection slot; writeMu serializes WriteMessage calls
// (gorilla/websocket does not allow concurrent writes).
//
// Write failure policy: any failed write closes the connection; the
// observer must reconnect.
type Hub struct {
	opts Options

	mu   sync.RWMutex
	conn *websocket.Conn

	writeMu sync.Mutex

	listener  net.Listener
	server    *http.Server
	url       string
	closeOnce sync.Once
}

// NewHub creates a stopped hub.
func NewHub(opts Options) *Hub {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	return &Hub{opts: opts}
}

// Start listens on the configured address and serves WebSocket upgrades at
// /ws. Call exactly once; stop with Stop.
func (h *Hub) Start(ctx context.Context) error {
	if h.server != nil {
		return fmt.Errorf("progresshub: already started")
	}

	ln, err := net.Listen("tcp", h.opts.Addr)
	if err != nil {
		return fmt.Errorf("progresshub: listen: %w", err)
	}
	h.listener = ln
	h.url = fmt.Sprintf("ws://%s/ws", ln.Addr().String())

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	h.server = &http.Server{
		Handler: mux,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if serveErr := h.server.Serve(ln); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("[HUB] server error", "error", serveErr)
		}
	}()

	slog.Info("[HUB] serving progress frames", "url", h.url)
	return nil
}

// Stop closes the active connection and shuts the server down. Idempotent.
func (h *Hub) Stop() error {
	var stopErr error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		conn := h.conn
		h.conn = nil
		h.mu.Unlock()

		if conn != nil {
			if err := conn.Close(); err != nil {
				slog.Debug("[HUB] connection close during stop", "error", err)
			}
		}
		if h.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.server.Shutdown(shutdownCtx); err != nil {
				stopErr = fmt.Errorf("progresshub: shutdown: %w", err)
			}
		}
		slog.Info("[HUB] stopped")
	})
	return stopErr
}

// URL returns the ws:// endpoint, empty before Start.
func (h *Hub) URL() string { return h.url }

// HasActiveConnection reports whether an observer is connected.
func (h *Hub) HasActiveConnection() bool {
	h.mu.RLock()
	active := h.conn != nil
	h.mu.RUnlock()
	return active
}

// Proxy adapts the hub into a progress.Proxy for one build. Sends succeed
// whether or not an observer is connected; broadcast is best-effort.
func (h *Hub) Proxy(buildID string) progress.Proxy {
	return progress.ProxyFunc(func(m progress.Message) error {
		h.Broadcast(buildID, m)
		return nil
	})
}

// Broadcast sends one progress message as a JSON text frame to the
// connected observer, if any. Write errors close the connection.
func (h *Hub) Broadcast(buildID string, m progress.Message) {
	h.mu.RLock()
	conn := h.conn
	h.mu.RUnlock()
	if conn == nil {
		return
	}

	payload, err := json.Marshal(Frame{BuildID: buildID, Kind: m.Kind(), Text: m.Render()})
	if err != nil {
		slog.Warn("[HUB] failed to encode frame", "kind", m.Kind(), "error", err)
		return
	}

	h.writeMu.Lock()
	if !h.setWriteDeadlineOrClose(conn, writeDeadline) {
		h.writeMu.Unlock()
		return
	}
	writeErr := conn.WriteMessage(websocket.TextMessage, payload)
	h.clearWriteDeadline(conn)
	h.writeMu.Unlock()

	if writeErr != nil {
		slog.Warn("[HUB] write failed, closing connection", "error", writeErr)
		h.clearIfCurrent(conn)
		h.closeConn(conn, "write error in Broadcast")
	}
}

// clearIfCurrent clears the connection slot only when conn is still current,
// so a stale connection's cleanup never tears down its replacement. Caller
// must not hold mu.
func (h *Hub) clearIfCurrent(conn *websocket.Conn) bool {
	h.mu.Lock()
	isCurrent := h.conn == conn
	if isCurrent {
		h.conn = nil
	}
	h.mu.Unlock()
	return isCurrent
}

// closeConn closes conn; double closes are expected when several failure
// paths race and are logged at Debug only.
func (h *Hub) closeConn(conn *websocket.Conn, reason string) {
	if closeErr := conn.Close(); closeErr != nil {
		slog.Debug("[HUB] connection close", "reason", reason, "error", closeErr)
	}
}

// setWriteDeadlineOrClose arms a write deadline. A connection that cannot
// even accept a deadline is closed to avoid blocking writers indefinitely.
func (h *Hub) setWriteDeadlineOrClose(conn *websocket.Conn, d time.Duration) bool {
	if err := conn.SetWriteDeadline(time.Now().Add(d)); err != nil {
		slog.Warn("[HUB] SetWriteDeadline failed, closing connection", "error", err)
		h.clearIfCurrent(conn)
		h.closeConn(conn, "SetWriteDeadline failure")
		return false
	}
	return true
}

// clearWriteDeadline resets the deadline after a successful write. Failure
// is non-fatal; the next write arms a fresh one.
func (h *Hub) clearWriteDeadline(conn *websocket.Conn) {
	if err := conn.SetWriteDeadline(time.Time{}); err != nil {
		slog.Debug("[HUB] clearWriteDeadline failed (non-fatal)", "error", err)
	}
}

// handleWS upgrades the request and runs the read pump. A new observer
// replaces the current one.
func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[HUB] upgrade failed", "error", err)
		return
	}

	conn.SetReadLimit(maxReadMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		slog.Warn("[HUB] SetReadDeadline failed on new connection", "error", err)
		h.closeConn(conn, "initial SetReadDeadline failure")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	h.mu.Lock()
	oldConn := h.conn
	h.conn = conn
	h.mu.Unlock()
	if oldConn != nil {
		h.closeConn(oldConn, "replaced by new connection")
	}
	slog.Info("[HUB] observer connected", "remote", conn.RemoteAddr())

	pingDone := make(chan struct{})
	go h.pingLoop(conn, pingDone)

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[HUB] read pump panicked",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
		}
		close(pingDone)
		h.clearIfCurrent(conn)
		h.closeConn(conn, "read pump exit")
		slog.Info("[HUB] observer disconnected")
	}()

	// Observers only listen; the read pump exists to notice the close.
	for {
		if _, _, readErr := conn.ReadMessage(); readErr != nil {
			if websocket.IsUnexpectedCloseError(readErr, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("[HUB] read error", "error", readErr)
			}
			return
		}
	}
}

// pingLoop keeps the connection's liveness check running until done closes
// or a ping fails.
func (h *Hub) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[HUB] ping loop panicked",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			h.clearIfCurrent(conn)
			h.closeConn(conn, "pingLoop panic recovery")
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			h.writeMu.Lock()
			if !h.setWriteDeadlineOrClose(conn, writeDeadline) {
				h.writeMu.Unlock()
				return
			}
			pingErr := conn.WriteMessage(websocket.PingMessage, nil)
			h.clearWriteDeadline(conn)
			h.writeMu.Unlock()

			if pingErr != nil {
				slog.Debug("[HUB] ping failed, observer likely gone", "error", pingErr)
				h.clearIfCurrent(conn)
				h.closeConn(conn, "ping failure")
				return
			}
		}
	}
}
