// Package httpstream exposes a running GEPA optimization over HTTP: an SSE
// stream and a websocket stream of progress events, plus a /healthz and
// /metrics surface. Grounded on the teacher's internal/gateway http_server.go
// (net/http.ServeMux, promhttp.Handler, graceful shutdown) and
// ws_control_plane.go (gorilla/websocket upgrader, per-connection writer
// goroutine), narrowed from a full control-plane RPC surface down to a
// fan-out broadcaster of gepa.Event.
package httpstream

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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/gepa-project/gepa/internal/observability"
	"github.com/gepa-project/gepa/pkg/gepa"
)

const (
	subscriberBuffer = 64
	writeWait        = 10 * time.Second
	pongWait         = 45 * time.Second
	pingInterval     = 30 * time.Second
)

// Server broadcasts the events of one or more named runs to HTTP clients.
type Server struct {
	addr     string
	logger   *slog.Logger
	tracer   *observability.Tracer
	upgrader websocket.Upgrader

	mu   sync.RWMutex
	subs map[string]map[chan gepa.Event]bool

	httpServer *http.Server
	listener   net.Listener
}

// NewServer builds a Server listening on addr (host:port). tracer may be nil
// to disable request tracing.
func NewServer(addr string, logger *slog.Logger, tracer *observability.Tracer) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:   addr,
		logger: logger,
		tracer: tracer,
		subs:   make(map[string]map[chan gepa.Event]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Sink returns a gepa.Sink that fans events for runID out to every current
// subscriber. Pass it to scheduler.New alongside (or instead of) a Store.
func (s *Server) Sink(runID string) gepa.Sink {
	return gepa.SinkFunc(func(e gepa.Event) {
		s.broadcast(runID, e)
	})
}

func (s *Server) subscribe(runID string) chan gepa.Event {
	ch := make(chan gepa.Event, subscriberBuffer)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[runID] == nil {
		s.subs[runID] = make(map[chan gepa.Event]bool)
	}
	s.subs[runID][ch] = true
	return ch
}

func (s *Server) unsubscribe(runID string, ch chan gepa.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.subs[runID]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(s.subs, runID)
		}
	}
	close(ch)
}

func (s *Server) broadcast(runID string, e gepa.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subs[runID] {
		select {
		case ch <- e:
		default:
			s.logger.Warn("httpstream: dropping event for slow subscriber", "run_id", runID, "type", e.Type)
		}
	}
}

// Start binds the listener and serves in a background goroutine. It returns
// once the listener is bound; serve errors are logged, not returned.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/runs/events", s.handleSSE)
	mux.HandleFunc("/ws", s.handleWS)

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("httpstream: listen: %w", err)
	}
	s.listener = listener
	s.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("httpstream: serve error", "error", err)
		}
	}()
	s.logger.Info("httpstream: listening", "addr", s.addr)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleSSE streams events for ?run_id=<id> as text/event-stream.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		http.Error(w, "missing run_id query parameter", http.StatusBadRequest)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.subscribe(runID)
	defer s.unsubscribe(runID, ch)

	ctx := r.Context()
	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.TraceHTTPRequest(ctx, r.Method, r.URL.Path)
		defer span.End()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(e)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, payload)
			flusher.Flush()
		}
	}
}

// handleWS streams events for ?run_id=<id> over a websocket connection.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		http.Error(w, "missing run_id query parameter", http.StatusBadRequest)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("httpstream: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	if s.tracer != nil {
		_, span := s.tracer.TraceHTTPRequest(r.Context(), r.Method, r.URL.Path)
		defer span.End()
	}

	ch := s.subscribe(runID)
	defer s.unsubscribe(runID, ch)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go s.drainReads(conn)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drainReads discards inbound frames; this stream is server-to-client only,
// but a read loop is required to process pong control frames and detect a
// closed connection.
func (s *Server) drainReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
