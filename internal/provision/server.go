// Package provision serves the local configuration page and status API.
package provision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/config"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/scheduler"
)

// Backend is what the page reads and changes.
type Backend interface {
	GetConfig() config.Config
	UpdateConfig(func(config.Config) config.Config) error
	Status() scheduler.Status
}

// Server serves the provisioning endpoints.
type Server struct {
	cfg     Config
	backend Backend
	metrics http.Handler
	events  *StatusBroadcaster
	log     *logger.Module
	started time.Time
}

// NewServer returns a configured provisioning server. metrics may be nil.
func NewServer(cfg Config, backend Backend, metrics http.Handler) *Server {
	if cfg.MaxFormBytes <= 0 {
		cfg.MaxFormBytes = DefaultConfig().MaxFormBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = DefaultConfig().StatusInterval
	}
	s := &Server{
		cfg:     cfg,
		backend: backend,
		metrics: metrics,
		log:     logger.For("Provision"),
		started: time.Now(),
	}
	s.events = NewStatusBroadcaster(s.statusMessage, cfg.StatusInterval)
	return s
}

// Handler exposes the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/uploader_save", s.handleSave)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/status/stream", s.handleStatusStream)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}

	return mux
}

// Run listens on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.events.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", s.cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := s.backend.GetConfig()
	st := s.backend.Status()
	data := struct {
		config.Config
		State     scheduler.State
		Profile   string
		Connected bool
		LastError string
	}{cfg, st.State, st.Profile, st.Connected, st.LastError}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.log.Warn("render index: %v", err)
	}
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxFormBytes))
	if err != nil {
		http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	form := rawForm(string(body))
	err = s.backend.UpdateConfig(func(c config.Config) config.Config {
		return applyForm(c, form)
	})
	if err != nil {
		s.log.Error("Failed to save uploader config: %v", err)
		http.Error(w, "Failed to save uploader config", http.StatusInternalServerError)
		return
	}

	saved := s.backend.GetConfig()
	s.log.Info("uploader config saved: url=%q voltage_url=%q interval=%ds",
		saved.URL, saved.VoltageURL, saved.IntervalSec)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(savedHTML))
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.backend.GetConfig())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	msg, err := s.statusMessage()
	if err != nil {
		writeJSONWithStatus(w, map[string]any{"error": err.Error()}, http.StatusInternalServerError)
		return
	}

	// Content negotiation based on Accept header
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/protobuf") ||
		strings.Contains(accept, "application/x-protobuf") {
		data, err := proto.Marshal(msg)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/protobuf")
		_, _ = w.Write(data)
		return
	}

	data, err := protojson.Marshal(msg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// statusMessage builds the status document shared by both encodings.
func (s *Server) statusMessage() (*structpb.Struct, error) {
	cfg := s.backend.GetConfig()
	st := s.backend.Status()

	return structpb.NewStruct(map[string]any{
		"state":           string(st.State),
		"connected":       st.Connected,
		"profile":         st.Profile,
		"cycles":          float64(st.Cycles),
		"last_cycle_id":   st.LastCycleID,
		"last_cycle_at":   formatTime(st.LastCycleAt),
		"last_upload_at":  formatTime(st.LastUploadAt),
		"last_bytes":      st.LastBytes,
		"last_latency_ms": st.LastLatencyMs,
		"last_voltage_mv": st.LastVoltageMV,
		"last_error":      st.LastError,
		"config": map[string]any{
			"url":          cfg.URL,
			"voltage_url":  cfg.VoltageURL,
			"interval_sec": cfg.IntervalSec,
		},
		"timestamp": formatTime(time.Now()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":     "ok",
		"state":      s.backend.Status().State,
		"uptime_sec": int64(time.Since(s.started).Seconds()),
	})
}

// formatTime renders t as RFC 3339, or "" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONWithStatus(w, payload, http.StatusOK)
}

func writeJSONWithStatus(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":"%s"}`, err.Error())
	}
}
