package host

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/standardbeagle/webview/internal/bridge"
	"github.com/standardbeagle/webview/internal/userdata"
	"github.com/standardbeagle/webview/pkg/events"
)

// Server exposes a Handler over websockets at /bridge.
type Server struct {
	mu         sync.RWMutex
	router     *mux.Router
	handler    *Handler
	directory  *Directory
	logger     *slog.Logger
	wsUpgrader websocket.Upgrader

	addr     string
	server   *http.Server
	listener net.Listener

	connections map[string]*connection
	startedAt   time.Time
}

type connection struct {
	id        string
	session   bridge.Session
	conn      *websocket.Conn
	writeMu   sync.Mutex
	connected time.Time
}

func NewServer(addr string, handler *Handler, directory *Directory, logger *slog.Logger) *Server {
	if directory == nil {
		directory = handler.directory
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		router:      mux.NewRouter(),
		handler:     handler,
		directory:   directory,
		logger:      logger,
		addr:        addr,
		connections: make(map[string]*connection),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/bridge", s.handleBridge).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Router returns the HTTP handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.startedAt = time.Now()
	srv := s.server
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("host server stopped", "error", err)
		}
	}()

	s.logger.Info("host listening", "addr", listener.Addr().String())
	return nil
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop closes every bridge connection and shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	conns := make([]*connection, 0, len(s.connections))
	for _, c := range s.connections {
		conns = append(conns, c)
	}
	srv := s.server
	s.mu.Unlock()

	for _, c := range conns {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "host shutting down"),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		c.conn.Close()
	}

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// ConnectionCount returns the number of live bridge connections.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	body := map[string]interface{}{
		"status":      "ok",
		"connections": len(s.connections),
	}
	if !s.startedAt.IsZero() {
		body["uptime"] = time.Since(s.startedAt).Round(time.Second).String()
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) handleBridge(w http.ResponseWriter, r *http.Request) {
	session := bridge.Session{
		UserID:   r.Header.Get(bridge.UserHeader),
		Username: r.Header.Get(bridge.UsernameHeader),
	}
	if session.UserID == "" {
		session.UserID = r.URL.Query().Get("user")
	}
	if session.UserID == "" {
		http.Error(w, "missing user", http.StatusBadRequest)
		return
	}

	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &connection{
		id:        uuid.New().String(),
		session:   session,
		conn:      conn,
		connected: time.Now(),
	}
	if session.Username != "" {
		if _, known := s.directory.Lookup(session.UserID); !known {
			s.directory.Register(userdata.RemoteProfile{Username: session.Username, UserID: session.UserID})
		}
	}

	s.mu.Lock()
	s.connections[c.id] = c
	s.mu.Unlock()
	s.logger.Info("bridge connected", "connection", c.id, "user", session.UserID)

	defer func() {
		s.mu.Lock()
		delete(s.connections, c.id)
		s.mu.Unlock()
		conn.Close()
		s.logger.Info("bridge disconnected", "connection", c.id, "duration", time.Since(c.connected).Round(time.Millisecond))
	}()

	s.serve(WithSession(r.Context(), session), c)
}

func (s *Server) serve(ctx context.Context, c *connection) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("bridge read ended", "connection", c.id, "error", err)
			}
			return
		}

		var msg events.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("dropping malformed message", "connection", c.id, "error", err)
			continue
		}

		for _, reply := range s.handler.Respond(ctx, msg) {
			if err := c.write(reply); err != nil {
				s.logger.Warn("failed to write reply", "connection", c.id, "kind", reply.Type, "error", err)
				return
			}
		}
	}
}

func (c *connection) write(msg events.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}
