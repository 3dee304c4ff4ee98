package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/loopauth/internal/shared"
)

// DefaultHost is the loopback address the local server binds when none is configured.
const DefaultHost = "127.0.0.1"

// LocalServerOpts configures a [LocalServer].
type LocalServerOpts struct {
	// Host to bind. Defaults to [DefaultHost].
	Host string
	// Ports are tried in order; the first that binds wins. Empty lets the OS assign one.
	Ports []int
	// Middleware applied to every route registered through [LocalServer.On].
	Middleware []Middleware
	Logger     *log.Logger
	// ReadHeaderTimeout bounds how long a connection may take to send its headers.
	ReadHeaderTimeout time.Duration
}

// LocalServer is an ephemeral loopback HTTP server that lives for one sign-in attempt.
type LocalServer struct {
	host              string
	ports             []int
	logger            *log.Logger
	router            *BasicRouter
	readHeaderTimeout time.Duration

	mu       sync.Mutex
	srv      *http.Server
	port     int
	stopped  bool
	errs     chan error
	stopOnce sync.Once
	stopErr  error
}

// NewLocalServer creates a [LocalServer]. Nothing is bound until [LocalServer.Startup].
func NewLocalServer(opts LocalServerOpts) *LocalServer {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.ReadHeaderTimeout <= 0 {
		opts.ReadHeaderTimeout = 10 * time.Second
	}

	router := NewBasicRouter()
	router.Use(opts.Middleware...)

	return &LocalServer{
		host:              opts.Host,
		ports:             opts.Ports,
		logger:            opts.Logger,
		router:            router,
		readHeaderTimeout: opts.ReadHeaderTimeout,
		errs:              make(chan error, 1),
	}
}

// Startup binds a port and starts serving in the background, returning the bound port.
//
// Calling Startup on a running server returns the existing port.
func (s *LocalServer) Startup(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return 0, fmt.Errorf("%w: server already shut down", shared.ErrServerStartup)
	}
	if s.srv != nil {
		return s.port, nil
	}

	ln, err := s.listen(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", shared.ErrServerStartup, err)
	}

	addr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		ln.Close()
		return 0, fmt.Errorf("%w: unexpected listener address %v", shared.ErrServerStartup, ln.Addr())
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.readHeaderTimeout,
		ErrorLog:          s.logger.StandardLog(log.StandardLogOptions{ForceLevel: log.WarnLevel}),
	}
	s.srv = srv
	s.port = addr.Port

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("local server stopped", "error", err)
			select {
			case s.errs <- err:
			default:
			}
		}
	}()

	s.logger.Debug("local server listening", "addr", addr.String())
	return s.port, nil
}

// listen tries each candidate port in order, or lets the OS choose when there are none.
func (s *LocalServer) listen(ctx context.Context) (net.Listener, error) {
	var lc net.ListenConfig

	ports := s.ports
	if len(ports) == 0 {
		ports = []int{0}
	}

	var errs []error
	for _, p := range ports {
		ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(s.host, strconv.Itoa(p)))
		if err == nil {
			return ln, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// On registers handler for GET requests on path. Each path accepts one handler.
func (s *LocalServer) On(path string, handler http.Handler) error {
	return s.router.Handle(http.MethodGet, path, handler)
}

// Port returns the bound port, or 0 before [LocalServer.Startup] succeeds.
func (s *LocalServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// URL returns an absolute http URL for path on the bound address.
func (s *LocalServer) URL(path string) string {
	return fmt.Sprintf("http://%s%s", net.JoinHostPort(s.host, strconv.Itoa(s.Port())), path)
}

// Errors delivers the error that stopped the server unexpectedly, if any.
func (s *LocalServer) Errors() <-chan error {
	return s.errs
}

// Shutdown stops the server. Calls after the first return the first result.
//
// Connections still open when ctx ends are closed forcibly.
func (s *LocalServer) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		srv := s.srv
		s.stopped = true
		s.mu.Unlock()

		if srv == nil {
			return
		}

		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Warn("graceful shutdown incomplete, closing connections", "error", err)
			s.stopErr = errors.Join(err, srv.Close())
			return
		}
		s.logger.Debug("local server stopped")
	})
	return s.stopErr
}
