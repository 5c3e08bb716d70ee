package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/sitepress/internal/config"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
)

// StatusPath serves the classifier status as JSON.
const StatusPath = "/_sitepress/status"

// Server serves the destination directory, the preview status and,
// optionally, Prometheus metrics.
type Server struct {
	handler http.Handler
	srv     *http.Server
	ln      net.Listener
}

// NewServer builds the preview handler. metrics may be nil.
func NewServer(fsys afero.Fs, cfg *config.Config, status func() Status, metrics http.Handler) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc(StatusPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status()); err != nil {
			slog.Error("Failed to write status", logfields.Error(err))
		}
	})
	if metrics != nil && cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics)
	}

	var files http.Handler = http.FileServer(afero.NewHttpFs(fsys).Dir(cfg.DestPath()))
	if root := strings.TrimSuffix(cfg.Root, "/"); root != "" {
		files = http.StripPrefix(root, files)
	}
	mux.Handle("/", files)
	return &Server{handler: mux}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start binds addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("preview listen %s: %w", addr, err)
	}
	s.ln = ln
	s.srv = &http.Server{Handler: s.handler, ReadTimeout: 30 * time.Second, WriteTimeout: 30 * time.Second, IdleTimeout: 120 * time.Second}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Preview server error", logfields.Error(err))
		}
	}()
	slog.Info("Preview server listening", logfields.URL("http://"+ln.Addr().String()+"/"))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
