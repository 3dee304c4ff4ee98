package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/loopauth/internal/assets"
	"github.com/desertthunder/loopauth/internal/shared"
)

// LocalServer is the loopback HTTP server a [Request] receives the browser on.
type LocalServer interface {
	Startup(ctx context.Context) (int, error)
	On(path string, handler http.Handler) error
	Shutdown(ctx context.Context) error
}

// DeviceCodeDisplay shows a device-code prompt when the browser redirect cannot be used.
type DeviceCodeDisplay interface {
	DisplayDeviceCode(message, userCode, verificationURL string)
}

// Phase is the position of a [Request] in its lifecycle.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseServerStarting
	// PhaseAwaitingSignIn holds from the bound port until the browser presents the nonce on /signin.
	PhaseAwaitingSignIn
	// PhaseAwaitingCallback holds once /signin has sent the browser to the provider.
	PhaseAwaitingCallback
	PhaseResolved
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseServerStarting:
		return "server-starting"
	case PhaseAwaitingSignIn:
		return "awaiting-sign-in"
	case PhaseAwaitingCallback:
		return "awaiting-callback"
	case PhaseResolved:
		return "resolved"
	}
	return "phase(" + strconv.Itoa(int(p)) + ")"
}

// RequestOpts configures a [Request].
type RequestOpts struct {
	Server  LocalServer
	Files   assets.FileReader // Defaults to the built-in pages.
	Display DeviceCodeDisplay
	Logger  *log.Logger
	ID      string // Correlates log lines; generated when empty.
	Host    string // Host used in [Request.SignInURL]; defaults to 127.0.0.1.
}

// Request drives one interactive sign-in attempt over a [LocalServer].
type Request struct {
	id      string
	nonce   Nonce
	server  LocalServer
	files   assets.FileReader
	display DeviceCodeDisplay
	logger  *log.Logger
	host    string

	phase atomic.Int32

	mu    sync.Mutex
	port  int
	state string

	register    sync.Once
	registerErr error
	signInURL   string
	complete    Completion

	result    *PendingResult
	abandon   chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewRequest creates an idle [Request] with a fresh nonce.
func NewRequest(opts RequestOpts) *Request {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Files == nil {
		opts.Files = assets.Embedded()
	}
	if opts.ID == "" {
		opts.ID = shared.GenerateID()
	}
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}

	return &Request{
		id:      opts.ID,
		nonce:   GenerateNonce(),
		server:  opts.Server,
		files:   opts.Files,
		display: opts.Display,
		logger:  shared.WithLogger(opts.Logger, "flow", opts.ID),
		host:    opts.Host,
		result:  newPendingResult(),
		abandon: make(chan struct{}),
	}
}

// ID returns the identifier used in this request's log lines.
func (r *Request) ID() string { return r.id }

// Phase returns the current lifecycle phase.
func (r *Request) Phase() Phase { return Phase(r.phase.Load()) }

// Nonce returns the correlation token.
func (r *Request) Nonce() Nonce { return r.nonce }

// StartServer starts the local server and composes the state value from its port.
//
// A startup failure is logged and returned wrapping [shared.ErrServerStartup]; the request returns to
// [PhaseIdle] so the caller can retry or switch to the device-code fallback.
func (r *Request) StartServer(ctx context.Context) error {
	select {
	case <-r.abandon:
		return shared.ErrAbandoned
	default:
	}

	if !r.phase.CompareAndSwap(int32(PhaseIdle), int32(PhaseServerStarting)) {
		if r.Port() != 0 {
			return nil
		}
		return fmt.Errorf("%w: startup already in progress", shared.ErrServerStartup)
	}

	if r.server == nil {
		r.phase.Store(int32(PhaseIdle))
		return fmt.Errorf("%w: no local server configured", shared.ErrServerStartup)
	}

	port, err := r.server.Startup(ctx)
	if err != nil {
		r.phase.Store(int32(PhaseIdle))
		r.logger.Error("local server could not start", "error", err)
		if !errors.Is(err, shared.ErrServerStartup) {
			err = fmt.Errorf("%w: %w", shared.ErrServerStartup, err)
		}
		return err
	}

	r.mu.Lock()
	r.port = port
	r.state = State{Port: port, Nonce: r.nonce.Encoded()}.String()
	r.mu.Unlock()

	r.phase.Store(int32(PhaseAwaitingSignIn))
	r.logger.Debug("local server started", "port", port)
	return nil
}

// Port returns the local server's port, or 0 before [Request.StartServer] succeeds.
func (r *Request) Port() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.port
}

// State returns "<port>,<encoded-nonce>" for the provider's state parameter, or "" before the server starts.
func (r *Request) State() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SignInURL returns the local URL to open in the browser. It checks the nonce and redirects to the provider.
func (r *Request) SignInURL() string {
	port := r.Port()
	if port == 0 {
		return ""
	}
	u := url.URL{
		Scheme:   "http",
		Host:     net.JoinHostPort(r.host, strconv.Itoa(port)),
		Path:     RouteSignIn.Path(),
		RawQuery: url.Values{"nonce": {r.nonce.Encoded()}}.Encode(),
	}
	return u.String()
}

// RedirectURL returns the callback URL to register with the provider as the redirect URI.
func (r *Request) RedirectURL() string {
	port := r.Port()
	if port == 0 {
		return ""
	}
	u := url.URL{Scheme: "http", Host: net.JoinHostPort(r.host, strconv.Itoa(port)), Path: RouteCallback.Path()}
	return u.String()
}

// AuthorizationCode registers the flow's routes and returns the pending result.
//
// signInURL is the provider URL /signin redirects to; it must carry [Request.State]. complete settles once
// the caller's pipeline has finished with the code, and decides what the browser sees. Routes are registered
// once; later calls return the same result and ignore their arguments.
func (r *Request) AuthorizationCode(signInURL string, complete Completion) (*PendingResult, error) {
	if r.Port() == 0 {
		return nil, shared.ErrServerNotStarted
	}

	r.register.Do(func() {
		r.signInURL = signInURL
		r.complete = complete

		for _, route := range Routes() {
			if err := r.server.On(route.Path(), r.handler(route)); err != nil {
				r.registerErr = fmt.Errorf("failed to register %s: %w", route, err)
				r.logger.Error("route registration failed", "route", route.Path(), "error", err)
				return
			}
		}
	})

	if r.registerErr != nil {
		return nil, r.registerErr
	}
	return r.result, nil
}

// DisplayDeviceCode shows a device-code prompt through the configured display, or logs it when there is none.
func (r *Request) DisplayDeviceCode(message, userCode, verificationURL string) {
	if r.display == nil {
		r.logger.Info(message, "code", userCode, "url", verificationURL)
		return
	}
	r.display.DisplayDeviceCode(message, userCode, verificationURL)
}

// Close abandons the flow: an unsettled result is rejected with [shared.ErrAbandoned], a held callback
// response is released, and the local server is shut down. Safe to call more than once.
func (r *Request) Close(ctx context.Context) error {
	r.closeOnce.Do(func() {
		if r.result.reject(shared.ErrAbandoned) {
			r.phase.Store(int32(PhaseResolved))
			r.logger.Debug("flow abandoned")
		}
		close(r.abandon)

		if r.server != nil {
			r.closeErr = r.server.Shutdown(ctx)
		}
	})
	return r.closeErr
}
