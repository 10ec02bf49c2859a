// ABOUTME: Server orchestrator wiring store, identity provider, documents and workspaces
// ABOUTME: Owns the HTTP listener lifecycle and graceful shutdown

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/issambenlahbib/levelupmy-life/internal/auth"
	"github.com/issambenlahbib/levelupmy-life/internal/clock"
	"github.com/issambenlahbib/levelupmy-life/internal/config"
	"github.com/issambenlahbib/levelupmy-life/internal/dashboard"
	"github.com/issambenlahbib/levelupmy-life/internal/features"
	"github.com/issambenlahbib/levelupmy-life/internal/remote"
	"github.com/issambenlahbib/levelupmy-life/internal/store"
)

// sessionSweepInterval is how often expired sessions are purged.
const sessionSweepInterval = time.Hour

// Options overrides collaborators, mostly for tests.
type Options struct {
	Clock      clock.Clock
	BcryptCost int
	Notifier   auth.ResetNotifier
}

// Server is the levelup HTTP server.
type Server struct {
	config     *config.Config
	store      store.Store
	docs       *remote.Local
	auth       *auth.Provider
	workspaces *dashboard.Manager
	httpServer *http.Server
	logger     *slog.Logger

	stopEvents context.CancelFunc
	eventsDone chan struct{}

	// closing is closed at Shutdown to end hijacked watch connections,
	// which http.Server.Shutdown does not track.
	closing     chan struct{}
	closingOnce sync.Once
}

// initStore opens the configured sqlite database.
func initStore(cfg *config.Config) (store.Store, error) {
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New opens the database named by cfg and builds a Server on it.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}
	srv, err := NewWithStore(cfg, s, logger, Options{})
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return srv, nil
}

// NewWithStore builds a Server on an already open store. The server takes
// ownership of st and closes it on Shutdown.
func NewWithStore(cfg *config.Config, st store.Store, logger *slog.Logger, opts Options) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}

	docs := remote.NewLocal(st,
		remote.WithOpTimeout(cfg.Sync.OpTimeout),
		remote.WithLogger(logger),
	)

	issuer, err := auth.NewJWTIssuer([]byte(cfg.Auth.JWTSecret), clk)
	if err != nil {
		return nil, fmt.Errorf("creating JWT issuer: %w", err)
	}
	provider, err := auth.NewProvider(auth.Config{
		Users:             st,
		Tokens:            issuer,
		Profiles:          docs,
		Audit:             st,
		Notifier:          opts.Notifier,
		BcryptCost:        opts.BcryptCost,
		SessionTTL:        cfg.Auth.SessionTTL,
		ResetTokenTTL:     cfg.Auth.ResetTokenTTL,
		MinPasswordLength: cfg.Auth.MinPasswordLength,
		Clock:             clk,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating identity provider: %w", err)
	}

	workspaces := dashboard.NewManager(docs, features.Options{
		DebounceWindow: cfg.Sync.DebounceWindow,
		Clock:          clk,
		Logger:         logger,
	}, cfg.Sync.IdleTimeout)

	srv := &Server{
		config:     cfg,
		store:      st,
		docs:       docs,
		auth:       provider,
		workspaces: workspaces,
		logger:     logger.With("component", "server"),
		eventsDone: make(chan struct{}),
		closing:    make(chan struct{}),
	}

	// Workspaces follow identity transitions for the life of the server.
	evCtx, cancel := context.WithCancel(context.Background())
	srv.stopEvents = cancel
	events := provider.Subscribe(evCtx)
	go func() {
		defer close(srv.eventsDone)
		workspaces.Run(evCtx, events)
	}()

	srv.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv, nil
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Provider returns the identity provider.
func (s *Server) Provider() *auth.Provider {
	return s.auth
}

// Workspaces returns the workspace manager.
func (s *Server) Workspaces() *dashboard.Manager {
	return s.workspaces
}

// Run listens on the configured address and serves until ctx is canceled.
// Returns nil on graceful shutdown, or the error that stopped the server.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	go s.sweepSessions(sweepCtx)

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}
	stopSweep()

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.store.DeleteExpiredSessions(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("failed to purge expired sessions", "error", err)
			}
		}
	}
}

// gracefulShutdown performs shutdown with a fresh context and timeout,
// since the serving context is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops accepting requests, flushes every workspace, and releases
// the store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	s.closingOnce.Do(func() { close(s.closing) })

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))

	s.stopEvents()
	<-s.eventsDone

	errs = appendCloseError(errs, "workspace flush", s.workspaces.Close(ctx))
	errs = appendCloseError(errs, "identity provider", s.auth.Close())
	s.docs.Broadcaster().Close()
	errs = appendCloseError(errs, "store close", s.store.Close())

	return errors.Join(errs...)
}
