// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/loopauth/internal/server"
)

// MockLocalServer is an in-process stand-in for [server.LocalServer]. Requests are served through
// [MockLocalServer.ServeHTTP] instead of a socket.
type MockLocalServer struct {
	Port       int
	StartupErr error

	router    *server.BasicRouter
	mu        sync.Mutex
	startups  int
	shutdowns int
}

// NewMockLocalServer creates a [MockLocalServer] reporting port on startup.
func NewMockLocalServer(port int) *MockLocalServer {
	return &MockLocalServer{Port: port, router: server.NewBasicRouter()}
}

func (m *MockLocalServer) Startup(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startups++
	if m.StartupErr != nil {
		return 0, m.StartupErr
	}
	return m.Port, nil
}

func (m *MockLocalServer) On(path string, handler http.Handler) error {
	return m.router.Handle(http.MethodGet, path, handler)
}

func (m *MockLocalServer) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdowns++
	return nil
}

func (m *MockLocalServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.router.ServeHTTP(w, r)
}

// Has reports whether a handler was registered for path.
func (m *MockLocalServer) Has(path string) bool {
	return m.router.Has(path)
}

// Startups returns how many times Startup was called.
func (m *MockLocalServer) Startups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startups
}

// Shutdowns returns how many times Shutdown was called.
func (m *MockLocalServer) Shutdowns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdowns
}

// DeviceCode is one prompt captured by [MockDisplay].
type DeviceCode struct {
	Message, UserCode, VerificationURL string
}

// MockDisplay records device-code prompts.
type MockDisplay struct {
	mu    sync.Mutex
	Shown []DeviceCode
}

func (m *MockDisplay) DisplayDeviceCode(message, userCode, verificationURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Shown = append(m.Shown, DeviceCode{message, userCode, verificationURL})
}

// MapReader serves files from memory; missing names fail with [os.ErrNotExist].
type MapReader map[string][]byte

func (m MapReader) ReadFile(ctx context.Context, name string) ([]byte, error) {
	data, ok := m[name]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}
	return data, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
