package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jpalmerr/vixen/internal/jsonp"
	"github.com/jpalmerr/vixen/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// shutdownTimeout bounds graceful shutdown once the server context ends.
	shutdownTimeout = 5 * time.Second

	// DefaultParam is the query parameter carrying callback references and
	// signal payloads.
	DefaultParam = "jsonp"

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "Vixen Relay"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Config configures a [Server].
type Config struct {
	// Port is the TCP port to listen on. Zero picks a free port; see [Server.Addr].
	Port int

	// Param names the query parameter read by the poll and signal routes.
	// Defaults to "jsonp".
	Param string

	// Title is shown on the dashboard. Defaults to "Vixen Relay".
	Title string
}

// Server is a JSONP relay: signals store a payload per channel, polls read
// it back wrapped in a call to the requested callback reference.
//
// Routes:
//   - GET /poll/{channel}: JSONP script calling the reference with the latest message
//   - GET /signal/{channel}: stores the payload, responds 204
//   - GET /api/messages: latest message of every channel as JSON
//   - GET /api/sse: Server-Sent Events stream of new messages
//   - GET /: the embedded dashboard
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store  store.Store
	cfg    Config
	assets fs.FS
	logger *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
	addr       net.Addr
}

// NewServer creates a new relay [Server].
//
// Parameters:
//   - st: Store implementation holding relayed messages
//   - cfg: listener and routing settings
//   - assets: Embedded filesystem containing dashboard assets (may be nil)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, cfg Config, assets fs.FS, logger *slog.Logger) *Server {
	if cfg.Param == "" {
		cfg.Param = DefaultParam
	}
	if cfg.Title == "" {
		cfg.Title = defaultTitle
	}
	return &Server{
		store:  st,
		cfg:    cfg,
		assets: assets,
		logger: logger,
	}
}

// Handler returns the relay's routes without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /poll/{channel}", s.handlePoll)
	mux.HandleFunc("GET /signal/{channel}", s.handleSignal)

	// API routes
	mux.HandleFunc("GET /api/messages", s.handleMessages)
	mux.HandleFunc("GET /api/sse", s.handleSSE)

	if s.assets != nil {
		mux.HandleFunc("GET /{$}", s.handleDashboard)
	}

	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.cfg.Port, err)
	}

	httpServer := &http.Server{
		Handler: s.Handler(),
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = httpServer
	s.addr = ln.Addr()
	s.mu.Unlock()

	go func() {
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("relay listening", "addr", ln.Addr().String(), "param", s.cfg.Param)
	return nil
}

// Addr returns the listening address, or nil before [Server.Start].
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// handlePoll answers with ref(<message JSON or null>);
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	channel := r.PathValue("channel")
	ref := r.URL.Query().Get(s.cfg.Param)
	if !jsonp.ValidReference(ref) {
		http.Error(w, "invalid callback reference", http.StatusBadRequest)
		return
	}

	payload := []byte("null")
	if msg, ok := s.store.Get(channel); ok {
		data, err := json.Marshal(msg)
		if err != nil {
			s.logger.Error("failed to encode message", "channel", channel, "error", err)
			http.Error(w, "encoding failed", http.StatusInternalServerError)
			return
		}
		payload = data
	}

	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := fmt.Fprintf(w, "%s(%s);", ref, payload); err != nil {
		s.logger.Error("failed to write poll response", "channel", channel, "error", err)
	}
}

// handleSignal stores the payload carried in the query parameter.
func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	channel := r.PathValue("channel")
	query := r.URL.Query()
	if !query.Has(s.cfg.Param) {
		http.Error(w, fmt.Sprintf("missing %q parameter", s.cfg.Param), http.StatusBadRequest)
		return
	}

	s.store.Update(store.Message{
		Channel:    channel,
		Data:       query.Get(s.cfg.Param),
		ReceivedAt: time.Now().UTC(),
	})
	s.logger.Debug("signal received", "channel", channel)

	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusNoContent)
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	// read index.html from embedded assets
	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(s.cfg.Title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleMessages returns the latest message of every channel as JSON.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	messages := s.store.GetAll()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(messages); err != nil {
		s.logger.Error("failed to encode messages response", "error", err)
	}
}

// handleSSE streams relayed messages via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked Fprintf call would prevent
// the handler from detecting context cancellation or channel closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	// check if flushing is supported
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}

		// ResponseController.Flush respects the write deadline
		return rc.Flush()
	}

	// set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// subscribe to store updates
	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	// send retained messages first (also protected by write deadline)
	for _, msg := range s.store.GetAll() {
		data, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	// stream updates
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}
