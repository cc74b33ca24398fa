package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"geotification/internal/geofence"
	"geotification/internal/logging"
	"geotification/internal/monitor"
)

// Snapshotter exposes read-only monitoring state.
type Snapshotter interface {
	Snapshot() monitor.Snapshot
}

type Server struct {
	state Snapshotter
	tpl   *template.Template
	mux   *http.ServeMux
}

//go:embed templates/index.html
var content embed.FS

func NewServer(state Snapshotter) *Server {
	tpl := template.Must(template.New("index.html").Funcs(template.FuncMap{
		"coord": func(v float64) string { return strconv.FormatFloat(v, 'f', 5, 64) },
		"clock": func(t time.Time) string { return t.Format(time.TimeOnly) },
	}).ParseFS(content, "templates/index.html"))
	s := &Server{state: state, tpl: tpl, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/regions", s.handleRegions)
	s.mux.HandleFunc("/regions.geojson", s.handleGeoJSON)
	s.mux.HandleFunc("/events", s.handleEvents)
	s.mux.HandleFunc("/healthz", s.handleHealth)
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logging.FromContext(ctx).Info("admin server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	snap := s.state.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, snap); err != nil {
		logging.FromContext(r.Context()).Error("render status page", "error", err)
	}
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.state.Snapshot().Regions)
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	fc := geofence.FeatureCollection(s.state.Snapshot().Regions)
	data, err := fc.MarshalJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data)
}

// handleEvents returns the recent events, newest last. ?limit=N trims the list.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events := s.state.Snapshot().Recent
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		if n < len(events) {
			events = events[len(events)-n:]
		}
	}
	writeJSON(w, events)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()
	writeJSON(w, map[string]any{
		"status":  "ok",
		"session": snap.Session,
		"stats":   snap.Stats,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
