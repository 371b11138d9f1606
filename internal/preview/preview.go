// Package preview serves the build directory for the `run` command and
// rebuilds the site when sources change.
//
// Filesystem events are debounced, and rebuilds run on a single worker so at
// most one build is in flight; requests arriving during a build coalesce into
// one follow-up. An optional gocron job requests periodic rebuilds.
package preview

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/command"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// DefaultDebounce is the quiet window between the last change and a rebuild.
const DefaultDebounce = 300 * time.Millisecond

// Builder runs one site build.
type Builder interface {
	Build(ctx context.Context) (*build.Report, error)
}

// CommandRunner opens the browser.
type CommandRunner interface {
	Run(ctx context.Context, spec command.Spec) error
}

// Options wires a Server. Zero values get defaults.
type Options struct {
	Logger *slog.Logger
	// Addr overrides serve.host:serve.port.
	Addr string
	// Metrics is mounted at the configured metrics path when non-nil.
	Metrics  http.Handler
	Commands CommandRunner
	// BrowserCommand opens {source} in a browser; platform default when empty.
	BrowserCommand string
	Debounce       time.Duration
}

// Server is the preview server.
type Server struct {
	cfg     *config.Config
	builder Builder
	opts    Options
	logger  *slog.Logger
	status  buildStatus

	rebuildReq chan struct{}
	builds     sync.WaitGroup

	mu    sync.Mutex
	timer *time.Timer
	addr  net.Addr
	ready chan struct{}
}

// New creates a preview server for cfg.
func New(cfg *config.Config, builder Builder, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Commands == nil {
		opts.Commands = command.NewRunner(opts.Logger)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Addr == "" {
		opts.Addr = net.JoinHostPort(cfg.Serve.Host, fmt.Sprint(cfg.Serve.Port))
	}
	return &Server{
		cfg:        cfg,
		builder:    builder,
		opts:       opts,
		logger:     opts.Logger,
		rebuildReq: make(chan struct{}, 1),
		ready:      make(chan struct{}),
	}
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the bound listener address, nil before Ready.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run builds the site, serves it and rebuilds on change until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	interval, err := s.cfg.RebuildEvery()
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid serve.rebuild_interval").Fatal().Build()
	}

	s.rebuild(ctx, "startup")

	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "failed to start preview server").
			Fatal().WithContext("addr", s.opts.Addr).Build()
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	close(s.ready)

	url := "http://" + ln.Addr().String() + "/"
	s.logger.Info("Preview server listening", logfields.URL(url))
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	w, err := newWatcher(s.cfg, s.logger)
	if err != nil {
		_ = srv.Close()
		return err
	}
	defer func() { _ = w.Close() }()

	if interval > 0 {
		sched, err := s.schedule(interval)
		if err != nil {
			_ = srv.Close()
			return err
		}
		defer func() { _ = sched.Shutdown() }()
	}

	if s.cfg.Serve.OpenBrowser {
		go s.openBrowser(ctx, url)
	}

	s.builds.Add(1)
	go s.worker(ctx)

	err = w.Run(ctx, s.trigger)
	return s.shutdown(srv, serveErr, err)
}

func (s *Server) shutdown(srv *http.Server, serveErr chan error, runErr error) error {
	s.logger.Info("Shutting down preview server")
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP server shutdown error", logfields.Error(err))
	}
	s.builds.Wait()

	select {
	case err := <-serveErr:
		return errors.WrapError(err, errors.CategoryRuntime, "preview server failed").Fatal().Build()
	default:
	}
	return runErr
}

// schedule starts a gocron job requesting a rebuild every interval.
func (s *Server) schedule(interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.request, "schedule"),
		gocron.WithName("periodic-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to create periodic rebuild job: %w", err)
	}
	sched.Start()
	s.logger.Info("Periodic rebuild scheduled", logfields.Duration(interval))
	return sched, nil
}

// trigger restarts the debounce window.
func (s *Server) trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.opts.Debounce, func() { s.request("change") })
}

// request queues a rebuild. Requests made while one is queued coalesce.
func (s *Server) request(reason string) {
	select {
	case s.rebuildReq <- struct{}{}:
		s.logger.Debug("Rebuild requested", slog.String("reason", reason))
	default:
	}
}

func (s *Server) worker(ctx context.Context) {
	defer s.builds.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.rebuildReq:
			s.rebuild(ctx, "change")
		}
	}
}

func (s *Server) rebuild(ctx context.Context, reason string) {
	s.logger.Info("Rebuilding site", slog.String("reason", reason))
	report, err := s.builder.Build(ctx)
	switch {
	case err != nil:
		s.status.setError(err)
		s.logger.Warn("Rebuild failed", logfields.Error(err))
	case report != nil && report.Outcome == build.OutcomeFailed:
		s.status.setError(fmt.Errorf("build failed: %s", report.Summary()))
	default:
		s.status.setSuccess()
	}
}

func (s *Server) openBrowser(ctx context.Context, url string) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.cfg.BrowserWait()):
	}
	tmpl := s.opts.BrowserCommand
	if tmpl == "" {
		tmpl = defaultBrowserCommand()
	}
	if err := s.opts.Commands.Run(ctx, command.Spec{Template: tmpl, Source: url}); err != nil {
		s.logger.Warn("Could not open browser", logfields.URL(url), logfields.Error(err))
	}
}

func defaultBrowserCommand() string {
	switch runtime.GOOS {
	case "darwin":
		return "open {source}"
	case "windows":
		return "rundll32 url.dll,FileProtocolHandler {source}"
	default:
		return "xdg-open {source}"
	}
}
