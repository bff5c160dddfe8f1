package host

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/coldchain/fridgewatch/internal/telemetry"
)

// Dashboard is the slice of the controller the host feeds events into.
// The host never makes analytic decisions; it only queues inputs and
// streams outputs.
type Dashboard interface {
	SetWindow(telemetry.Window)
	SetView(string)
	SetLive(bool)
}

// Server is the thin HTTP host over the dashboard core.
type Server struct {
	port      int
	dashboard Dashboard
	registry  *Registry
	httpSrv   *http.Server
}

// NewServer creates the host server.
func NewServer(port int, dashboard Dashboard, registry *Registry) *Server {
	return &Server{port: port, dashboard: dashboard, registry: registry}
}

// Start begins serving. Non-blocking; errors after startup are logged.
func (s *Server) Start() error {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)
	api.HandleFunc("/window", s.handleWindow).Methods(http.MethodPut)
	api.HandleFunc("/view", s.handleView).Methods(http.MethodPut)
	api.HandleFunc("/live", s.handleLive).Methods(http.MethodPut)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // the stream endpoint is long-lived
	}

	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("HTTP server error: %v\n", err)
		}
	}()

	fmt.Printf("HTTP host listening on :%d\n", s.port)
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	if s.httpSrv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	u, ok := s.registry.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no cycle has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// handleStream delivers updates as server-sent events until the client
// disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub, err := s.registry.Subscribe()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer s.registry.Unsubscribe(sub.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case u, open := <-sub.Ch:
			if !open {
				return
			}
			data, err := json.Marshal(u)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	var win telemetry.Window
	if err := json.NewDecoder(r.Body).Decode(&win); err != nil {
		writeError(w, http.StatusBadRequest, "invalid window body")
		return
	}
	if !win.Valid() {
		writeError(w, http.StatusBadRequest, "window start must not exceed end")
		return
	}

	s.dashboard.SetWindow(win)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	var body struct {
		View string `json:"view"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.View == "" {
		writeError(w, http.StatusBadRequest, "invalid view body")
		return
	}

	// Unknown selectors are resolved in-cycle (previous view kept), so
	// the host accepts any string here.
	s.dashboard.SetView(body.View)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Live bool `json:"live"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid live body")
		return
	}

	s.dashboard.SetLive(body.Live)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.registry.Stats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"subscribers": stats.Subscribers,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
