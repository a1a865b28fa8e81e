package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// ServerOptions configures the development backend.
type ServerOptions struct {
	Addr string
	// APIKey, when set, is required on /api/* and /search.
	APIKey string
	// DataDir is served under /data/ so catalog sources can be fetched
	// over HTTP. Empty disables it.
	DataDir string
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

func NewServer(h *Handler, opts ServerOptions) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           Routes(h, opts),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: h.logger,
	}
}

// Routes builds the backend mux with logging and optional auth.
func Routes(h *Handler, opts ServerOptions) http.Handler {
	auth := Auth(opts.APIKey)

	mux := http.NewServeMux()
	mux.Handle("GET /search", auth(http.HandlerFunc(h.Search)))
	mux.Handle("GET "+PricePath, auth(http.HandlerFunc(h.Price)))
	mux.Handle("GET "+AnalysisPath, auth(http.HandlerFunc(h.Analysis)))
	mux.HandleFunc("GET /healthz", h.Health)
	if opts.DataDir != "" {
		mux.Handle("GET /data/", noCache(http.StripPrefix("/data/", http.FileServer(http.Dir(opts.DataDir)))))
	}
	return Logging(h.logger)(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
