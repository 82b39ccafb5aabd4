package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/bundlecfg/internal/assets"
	"github.com/wolfeidau/bundlecfg/internal/buildconfig"
	httpmiddleware "github.com/wolfeidau/bundlecfg/internal/http"
	"github.com/wolfeidau/bundlecfg/internal/telemetry"
)

var ErrNotDevelopment = errors.New("dev server requires a development build config")

// Server serves the live bundle and pushes reload events after each rebuild.
type Server struct {
	pipeline *assets.Pipeline
	dev      buildconfig.DevServer
	root     string
	hub      *Hub
	logger   zerolog.Logger
}

// New creates a dev server for a pipeline built from a development config.
// root is served at / so the project's own index page can load the bundle.
func New(pipeline *assets.Pipeline, root string, logger zerolog.Logger) (*Server, error) {
	cfg := pipeline.Config()
	if cfg.Mode != buildconfig.Development || cfg.DevServer == nil {
		return nil, ErrNotDevelopment
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	return &Server{
		pipeline: pipeline,
		dev:      *cfg.DevServer,
		root:     abs,
		hub:      NewHub(),
		logger:   logger,
	}, nil
}

// Addr is the listen address taken from the config.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.dev.Host, strconv.Itoa(s.dev.Port))
}

func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler routes the public path to the output directory, the reload stream
// to its SSE handler and everything else to the project root.
func (s *Server) Handler() http.Handler {
	publicPath := s.pipeline.Config().Output.PublicPath

	mux := http.NewServeMux()
	mux.Handle(publicPath, http.StripPrefix(publicPath, http.FileServer(http.Dir(s.pipeline.OutputDir()))))
	mux.HandleFunc(buildconfig.LiveReloadPath, s.reloadHandler)
	mux.Handle("/", http.FileServer(http.Dir(s.root)))

	return httpmiddleware.RequestLogger(s.logger)(mux)
}

// OnBuild is passed to the pipeline's watch loop.
func (s *Server) OnBuild(m *assets.Manifest, err error) {
	if err != nil {
		s.logger.Error().Err(err).Msg("Rebuild failed")
		return
	}
	s.logger.Info().Str("script", m.Script).Int("clients", s.hub.Len()).Msg("Rebuilt, notifying clients")
	if s.dev.Hot {
		s.hub.Broadcast(eventFor(m))
		telemetry.GetMetrics().ReloadEventsTotal.Add(context.Background(), int64(s.hub.Len()))
	}
}

// Run listens on the configured address, then serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve watches the sources and serves on ln until ctx is cancelled. Open
// reload streams end with ctx.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- s.pipeline.Watch(ctx, s.OnBuild)
	}()

	srv := configureHTTPServer(ln.Addr().String(), s.Handler())
	srv.BaseContext = func(net.Listener) context.Context { return ctx }

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info().Str("listen", ln.Addr().String()).Str("public_path", s.pipeline.Config().Output.PublicPath).Msg("Starting dev server")
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-watchErr:
		cancel()
		_ = srv.Close()
		if err != nil {
			return err
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("dev server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
	}
	return nil
}

func (s *Server) reloadHandler(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Reload stream cannot flush")
		return
	}

	events, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	clients := telemetry.GetMetrics().ReloadClients
	clients.Add(r.Context(), 1)
	defer clients.Add(context.Background(), -1)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			data, err := json.Marshal(ev)
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "event: change\ndata: %s\n\n", data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	// no write timeout, reload streams are long lived
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}
