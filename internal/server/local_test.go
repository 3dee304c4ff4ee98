package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/desertthunder/loopauth/internal/shared"
)

func newTestServer(t *testing.T, opts LocalServerOpts) *LocalServer {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	srv := NewLocalServer(opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv
}

func TestLocalServer(t *testing.T) {
	t.Run("Startup assigns a port and serves routes", func(t *testing.T) {
		srv := newTestServer(t, LocalServerOpts{})

		port, err := srv.Startup(context.Background())
		if err != nil {
			t.Fatalf("Startup() error = %v", err)
		}
		if port == 0 {
			t.Fatal("expected non-zero port")
		}
		if srv.Port() != port {
			t.Errorf("Port() = %d, want %d", srv.Port(), port)
		}

		err = srv.On("/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pong"))
		}))
		if err != nil {
			t.Fatalf("On() error = %v", err)
		}

		resp, err := http.Get(srv.URL("/ping"))
		if err != nil {
			t.Fatalf("GET /ping error = %v", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK || string(body) != "pong" {
			t.Errorf("expected 200 pong, got %d %q", resp.StatusCode, body)
		}
	})

	t.Run("Startup twice returns the same port", func(t *testing.T) {
		srv := newTestServer(t, LocalServerOpts{})

		first, err := srv.Startup(context.Background())
		if err != nil {
			t.Fatalf("Startup() error = %v", err)
		}
		second, err := srv.Startup(context.Background())
		if err != nil {
			t.Fatalf("second Startup() error = %v", err)
		}
		if first != second {
			t.Errorf("expected same port, got %d and %d", first, second)
		}
	})

	t.Run("Startup skips busy candidate ports", func(t *testing.T) {
		busy, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to reserve port: %v", err)
		}
		defer busy.Close()
		busyPort := busy.Addr().(*net.TCPAddr).Port

		srv := newTestServer(t, LocalServerOpts{Ports: []int{busyPort, 0}})
		port, err := srv.Startup(context.Background())
		if err != nil {
			t.Fatalf("Startup() error = %v", err)
		}
		if port == busyPort {
			t.Errorf("expected a port other than busy %d", busyPort)
		}
	})

	t.Run("Startup failure is reported", func(t *testing.T) {
		busy, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to reserve port: %v", err)
		}
		defer busy.Close()
		busyPort := busy.Addr().(*net.TCPAddr).Port

		srv := newTestServer(t, LocalServerOpts{Ports: []int{busyPort}})
		_, err = srv.Startup(context.Background())
		if !errors.Is(err, shared.ErrServerStartup) {
			t.Errorf("expected ErrServerStartup, got %v", err)
		}
		if srv.Port() != 0 {
			t.Errorf("expected port 0 after failed startup, got %d", srv.Port())
		}
	})

	t.Run("On rejects duplicate paths", func(t *testing.T) {
		srv := newTestServer(t, LocalServerOpts{})
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

		if err := srv.On("/callback", h); err != nil {
			t.Fatalf("On() error = %v", err)
		}
		if err := srv.On("/callback", h); !errors.Is(err, shared.ErrRouteExists) {
			t.Errorf("expected ErrRouteExists, got %v", err)
		}
	})

	t.Run("Shutdown is idempotent and final", func(t *testing.T) {
		srv := newTestServer(t, LocalServerOpts{})
		port, err := srv.Startup(context.Background())
		if err != nil {
			t.Fatalf("Startup() error = %v", err)
		}

		ctx := context.Background()
		if err := srv.Shutdown(ctx); err != nil {
			t.Fatalf("Shutdown() error = %v", err)
		}
		if err := srv.Shutdown(ctx); err != nil {
			t.Fatalf("second Shutdown() error = %v", err)
		}

		if _, err := srv.Startup(ctx); !errors.Is(err, shared.ErrServerStartup) {
			t.Errorf("expected Startup after Shutdown to fail, got %v", err)
		}

		conn, err := net.DialTimeout("tcp", net.JoinHostPort(DefaultHost, strconv.Itoa(port)), 200*time.Millisecond)
		if err == nil {
			conn.Close()
			t.Error("expected port to be closed after Shutdown")
		}
	})

	t.Run("Shutdown before Startup", func(t *testing.T) {
		srv := newTestServer(t, LocalServerOpts{})
		if err := srv.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
	})
}
