package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/suitemux"
	"github.com/aretw0/suitemux/internal/logging"
	"github.com/aretw0/suitemux/internal/presentation/graph"
	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run is the merged run observed by the server. *suitemux.Controller satisfies it.
type Run interface {
	Stream() ports.Stream
	Statuses() []domain.SourceStatus
	Done() <-chan struct{}
}

// Server exposes the progress of one merged run.
type Server struct {
	Run     Run
	Streams *StreamManager

	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithMetrics serves the collectors of g on /metrics.
func WithMetrics(g prometheus.Gatherer) ServerOption {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for run. It subscribes to the merged
// stream at once, so it must be created before the run starts to see every event.
func NewHandler(run Run, opts ...ServerOption) http.Handler {
	server := &Server{
		Run:     run,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}
	server.Streams.logger = server.logger

	stream := run.Stream()
	for _, kind := range domain.Kinds() {
		stream.On(kind, func(ev domain.Event) {
			if msg, err := json.Marshal(newEventView(ev)); err == nil {
				server.Streams.Broadcast(string(msg))
			}
		})
	}

	r := chi.NewRouter()
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/status", server.GetStatus)
	r.Get("/tree", server.GetTree)
	r.Get("/events", server.SubscribeEvents)
	if server.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(server.gatherer, promhttp.HandlerOpts{}))
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+HeaderHandle)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) finished() bool {
	select {
	case <-s.Run.Done():
		return true
	default:
		return false
	}
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"app":     "suitemux",
		"version": strings.TrimSpace(suitemux.Version),
	})
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Finished bool                  `json:"finished"`
	Total    int                   `json:"total"`
	Stats    domain.Stats          `json:"stats"`
	Children []domain.SourceStatus `json:"children"`
}

// GetStatus handles the GET /status request.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	stream := s.Run.Stream()
	children := s.Run.Statuses()
	if children == nil {
		children = []domain.SourceStatus{}
	}
	s.writeJSON(w, StatusResponse{
		Finished: s.finished(),
		Total:    stream.Total(),
		Stats:    stream.Stats(),
		Children: children,
	})
}

// GetTree handles the GET /tree request. The merged tree is only served once
// the run is over; until then it is still being assembled.
// With ?format=mermaid it is rendered as a Mermaid flowchart.
func (s *Server) GetTree(w http.ResponseWriter, r *http.Request) {
	if !s.finished() {
		http.Error(w, "run in progress", http.StatusConflict)
		return
	}
	root := s.Run.Stream().Root()
	if r.URL.Query().Get("format") == "mermaid" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(graph.GenerateMermaid(root)))
		return
	}
	s.writeJSON(w, root)
}

// eventView is the SSE payload of one merged event.
type eventView struct {
	Kind   domain.EventKind `json:"kind"`
	Time   time.Time        `json:"time"`
	Source string           `json:"source,omitempty"`
	Label  string           `json:"label,omitempty"`
	Title  string           `json:"title,omitempty"`
	State  string           `json:"state,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func newEventView(ev domain.Event) eventView {
	v := eventView{Kind: ev.Kind, Time: ev.Timestamp, Source: ev.Source, Label: ev.Label}
	switch {
	case ev.Test != nil:
		v.Title = ev.Test.FullTitle()
		v.State = string(ev.Test.State)
	case ev.Suite != nil:
		v.Title = ev.Suite.FullTitle()
	case ev.Hook != nil:
		v.Title = ev.Hook.Title
	}
	if ev.Err != nil {
		v.Error = ev.Err.Error()
	}
	return v
}

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan<- string]struct{}
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[chan<- string]struct{}),
		logger:      logging.NewNop(),
	}
}

func (sm *StreamManager) Subscribe() (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 64)
	sm.subscribers[ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := sm.subscribers[ch]; ok {
			delete(sm.subscribers, ch)
			close(ch)
		}
	}
}

// Len is the number of connected subscribers.
func (sm *StreamManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}

func (sm *StreamManager) Broadcast(msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("sse client buffer full, dropping event")
		}
	}
}

// SubscribeEvents handles the GET /events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("sse client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
