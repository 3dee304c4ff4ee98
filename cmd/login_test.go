package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/loopauth/internal/models"
	"github.com/desertthunder/loopauth/internal/shared"
)

// noRedirect keeps the fake browser from following /signin to the provider.
var noRedirect = &http.Client{
	Timeout:       5 * time.Second,
	CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
}

func testConfig(t *testing.T) *shared.Config {
	t.Helper()
	config := shared.DefaultConfig()
	config.Provider.ClientID = "test-client"
	config.Provider.AuthURL = "https://login.example.com/authorize"
	config.Provider.DeviceAuthURL = ""
	config.Flow.Timeout = 5 * time.Second
	config.Database.Path = filepath.Join(t.TempDir(), "loopauth.db")
	return config
}

func newTestRunner(t *testing.T, config *shared.Config, browser func(context.Context, string) error) (*Runner, *bytes.Buffer) {
	t.Helper()
	output := &bytes.Buffer{}
	return NewRunner(RunnerOpts{
		Config:  config,
		Output:  output,
		Logger:  shared.NewLogger(io.Discard),
		Browser: browser,
	}), output
}

func run(r *Runner, args ...string) error {
	return newApp(r).Run(context.Background(), append([]string{"loopauth", "--env-file", ""}, args...))
}

// fakeBrowser follows the local sign-in page to the provider URL and then plays the provider's redirect back
// with code, or with the state rewritten by tamper when set. The callback's status arrives on the channel.
func fakeBrowser(t *testing.T, code string, tamper func(state string) string) (func(context.Context, string) error, <-chan int) {
	statuses := make(chan int, 1)
	return func(ctx context.Context, signInURL string) error {
		go func() {
			resp, err := noRedirect.Get(signInURL)
			if err != nil {
				t.Errorf("GET sign-in page: %v", err)
				statuses <- -1
				return
			}
			resp.Body.Close()

			provider, err := url.Parse(resp.Header.Get("Location"))
			if err != nil {
				t.Errorf("bad provider URL: %v", err)
				statuses <- -1
				return
			}
			q := provider.Query()
			if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
				t.Errorf("provider URL lacks a PKCE challenge: %s", provider)
			}
			if q.Get("client_id") != "test-client" {
				t.Errorf("provider URL client_id = %q", q.Get("client_id"))
			}

			state := q.Get("state")
			if tamper != nil {
				state = tamper(state)
			}
			callback := q.Get("redirect_uri") + "?" + url.Values{"code": {code}, "state": {state}}.Encode()

			resp, err = noRedirect.Get(callback)
			if err != nil {
				t.Errorf("GET callback: %v", err)
				statuses <- -1
				return
			}
			resp.Body.Close()
			statuses <- resp.StatusCode
		}()
		return nil
	}, statuses
}

func awaitStatus(t *testing.T, statuses <-chan int) int {
	t.Helper()
	select {
	case s := <-statuses:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("browser never finished")
		return 0
	}
}

func listAttempts(t *testing.T, r *Runner) []AttemptView {
	t.Helper()
	buf := &bytes.Buffer{}
	r.output = buf
	if err := run(r, "history", "--json"); err != nil {
		t.Fatalf("history error = %v", err)
	}
	var views []AttemptView
	if err := json.Unmarshal(buf.Bytes(), &views); err != nil {
		t.Fatalf("history output is not JSON: %v\n%s", err, buf.String())
	}
	return views
}

func TestLogin(t *testing.T) {
	t.Run("receives the code over the loopback redirect", func(t *testing.T) {
		browser, statuses := fakeBrowser(t, "XYZ123", nil)
		runner, output := newTestRunner(t, testConfig(t), browser)

		if err := run(runner, "login", "--json"); err != nil {
			t.Fatalf("login error = %v", err)
		}

		var result LoginResult
		if err := json.Unmarshal(output.Bytes(), &result); err != nil {
			t.Fatalf("login output is not JSON: %v\n%s", err, output.String())
		}
		if result.Code != "XYZ123" {
			t.Errorf("code = %q, want XYZ123", result.Code)
		}
		if len(result.CodeVerifier) < 43 {
			t.Errorf("code verifier too short: %q", result.CodeVerifier)
		}
		if !strings.HasPrefix(result.RedirectURI, "http://127.0.0.1:") || !strings.HasSuffix(result.RedirectURI, "/callback") {
			t.Errorf("unexpected redirect URI %q", result.RedirectURI)
		}
		if result.AttemptID == "" {
			t.Error("expected the attempt to be recorded")
		}

		if status := awaitStatus(t, statuses); status != http.StatusOK {
			t.Errorf("browser saw %d, want 200", status)
		}

		views := listAttempts(t, runner)
		if len(views) != 1 {
			t.Fatalf("expected one attempt, got %d", len(views))
		}
		if views[0].Outcome != string(models.OutcomeSucceeded) || views[0].Port == 0 {
			t.Errorf("unexpected attempt %+v", views[0])
		}
	})

	t.Run("plain output", func(t *testing.T) {
		browser, statuses := fakeBrowser(t, "abc", nil)
		runner, output := newTestRunner(t, testConfig(t), browser)

		if err := run(runner, "login"); err != nil {
			t.Fatalf("login error = %v", err)
		}
		awaitStatus(t, statuses)

		for _, want := range []string{"Authorization code received", "code:          abc", "code_verifier: "} {
			if !strings.Contains(output.String(), want) {
				t.Errorf("output missing %q:\n%s", want, output.String())
			}
		}
	})

	t.Run("forged state is rejected", func(t *testing.T) {
		browser, statuses := fakeBrowser(t, "XYZ123", func(state string) string {
			port, _, _ := strings.Cut(state, ",")
			return port + ",forged"
		})
		runner, _ := newTestRunner(t, testConfig(t), browser)

		err := run(runner, "login", "--json")
		if !errors.Is(err, shared.ErrNonceMismatch) {
			t.Fatalf("expected ErrNonceMismatch, got %v", err)
		}
		if status := awaitStatus(t, statuses); status != http.StatusBadRequest {
			t.Errorf("browser saw %d, want 400", status)
		}

		views := listAttempts(t, runner)
		if len(views) != 1 || views[0].Outcome != string(models.OutcomeFailed) {
			t.Errorf("expected one failed attempt, got %+v", views)
		}
	})

	t.Run("times out without a redirect", func(t *testing.T) {
		runner, _ := newTestRunner(t, testConfig(t), func(context.Context, string) error { return nil })

		err := run(runner, "login", "--timeout", "50ms")
		if !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}

		views := listAttempts(t, runner)
		if len(views) != 1 || views[0].Outcome != string(models.OutcomeTimedOut) {
			t.Errorf("expected one timed out attempt, got %+v", views)
		}
	})

	t.Run("browser failure prints the sign-in URL", func(t *testing.T) {
		runner, output := newTestRunner(t, testConfig(t), func(context.Context, string) error {
			return errors.New("no display")
		})

		run(runner, "login", "--timeout", "20ms")

		if !strings.Contains(output.String(), "/signin?nonce=") {
			t.Errorf("expected the sign-in URL in output, got %q", output.String())
		}
	})

	t.Run("missing client id", func(t *testing.T) {
		config := testConfig(t)
		config.Provider.ClientID = ""
		runner, _ := newTestRunner(t, config, nil)

		if err := run(runner, "login"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func deviceServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("client_id") != "test-client" {
			http.Error(w, "bad client", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"device_code":"dev-123","user_code":"WDJB-MJHT","verification_uri":"https://example.com/device","expires_in":900,"interval":5}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDevice(t *testing.T) {
	t.Run("shows the user code", func(t *testing.T) {
		config := testConfig(t)
		config.Provider.DeviceAuthURL = deviceServer(t).URL
		runner, output := newTestRunner(t, config, nil)

		if err := run(runner, "device"); err != nil {
			t.Fatalf("device error = %v", err)
		}

		for _, want := range []string{"WDJB-MJHT", "https://example.com/device", "device_code: dev-123"} {
			if !strings.Contains(output.String(), want) {
				t.Errorf("output missing %q:\n%s", want, output.String())
			}
		}

		views := listAttempts(t, runner)
		if len(views) != 1 || views[0].Mode != string(models.ModeDevice) || views[0].Outcome != string(models.OutcomePending) {
			t.Errorf("expected one pending device attempt, got %+v", views)
		}
	})

	t.Run("json output", func(t *testing.T) {
		config := testConfig(t)
		config.Provider.DeviceAuthURL = deviceServer(t).URL
		runner, output := newTestRunner(t, config, nil)

		if err := run(runner, "device", "--json"); err != nil {
			t.Fatalf("device error = %v", err)
		}

		var result DeviceResult
		if err := json.Unmarshal(output.Bytes(), &result); err != nil {
			t.Fatalf("device output is not JSON: %v\n%s", err, output.String())
		}
		if result.DeviceCode != "dev-123" || result.UserCode != "WDJB-MJHT" || result.Interval != 5 {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("no device endpoint", func(t *testing.T) {
		runner, _ := newTestRunner(t, testConfig(t), nil)

		if err := run(runner, "device"); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("login falls back when the local server cannot start", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to occupy a port: %v", err)
		}
		defer ln.Close()

		config := testConfig(t)
		config.Provider.DeviceAuthURL = deviceServer(t).URL
		config.Server.Ports = []int{ln.Addr().(*net.TCPAddr).Port}
		config.Flow.DeviceFallback = true

		opened := false
		runner, output := newTestRunner(t, config, func(context.Context, string) error {
			opened = true
			return nil
		})

		if err := run(runner, "login"); err != nil {
			t.Fatalf("login error = %v", err)
		}
		if opened {
			t.Error("browser should not open when falling back to device code")
		}
		if !strings.Contains(output.String(), "WDJB-MJHT") {
			t.Errorf("expected device code in output, got %q", output.String())
		}
	})

	t.Run("login without fallback reports the startup failure", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to occupy a port: %v", err)
		}
		defer ln.Close()

		config := testConfig(t)
		config.Server.Ports = []int{ln.Addr().(*net.TCPAddr).Port}
		config.Flow.DeviceFallback = false
		runner, _ := newTestRunner(t, config, nil)

		if err := run(runner, "login"); !errors.Is(err, shared.ErrServerStartup) {
			t.Errorf("expected ErrServerStartup, got %v", err)
		}
	})
}

func TestDiscovery(t *testing.T) {
	var issuer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"issuer":                        issuer,
			"authorization_endpoint":        issuer + "/authorize",
			"token_endpoint":                issuer + "/token",
			"device_authorization_endpoint": issuer + "/devicecode",
			"jwks_uri":                      issuer + "/keys",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	}))
	defer srv.Close()
	issuer = srv.URL

	t.Run("endpoints come from the issuer", func(t *testing.T) {
		config := testConfig(t)
		config.Provider.Issuer = issuer
		config.Provider.AuthURL = ""
		runner := NewRunner(RunnerOpts{Config: config, HTTPClient: srv.Client(), Logger: shared.NewLogger(io.Discard)})

		conf, err := runner.oauthConfig(context.Background())
		if err != nil {
			t.Fatalf("oauthConfig() error = %v", err)
		}
		if conf.Endpoint.AuthURL != issuer+"/authorize" || conf.Endpoint.TokenURL != issuer+"/token" {
			t.Errorf("unexpected endpoint %+v", conf.Endpoint)
		}
		if conf.Endpoint.DeviceAuthURL != issuer+"/devicecode" {
			t.Errorf("DeviceAuthURL = %q", conf.Endpoint.DeviceAuthURL)
		}
	})

	t.Run("unreachable issuer", func(t *testing.T) {
		config := testConfig(t)
		config.Provider.Issuer = issuer + "/tenant"
		runner := NewRunner(RunnerOpts{Config: config, HTTPClient: srv.Client(), Logger: shared.NewLogger(io.Discard)})

		if _, err := runner.oauthConfig(context.Background()); !errors.Is(err, shared.ErrDiscovery) {
			t.Errorf("expected ErrDiscovery, got %v", err)
		}
	})
}

func TestHistory(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		runner, output := newTestRunner(t, testConfig(t), nil)

		if err := run(runner, "history"); err != nil {
			t.Fatalf("history error = %v", err)
		}
		if !strings.Contains(output.String(), "No sign-in attempts recorded") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("verbose still runs the command", func(t *testing.T) {
		runner, output := newTestRunner(t, testConfig(t), nil)

		if err := run(runner, "--verbose", "history"); err != nil {
			t.Fatalf("history error = %v", err)
		}
		if !strings.Contains(output.String(), "No sign-in attempts recorded") {
			t.Errorf("expected history output, got %q", output.String())
		}
		if runner.logger.GetLevel() != log.DebugLevel {
			t.Errorf("expected debug level, got %s", runner.logger.GetLevel())
		}
	})

	t.Run("table and forget", func(t *testing.T) {
		runner, _ := newTestRunner(t, testConfig(t), func(context.Context, string) error { return nil })
		run(runner, "login", "--timeout", "20ms")

		views := listAttempts(t, runner)
		if len(views) != 1 {
			t.Fatalf("expected one attempt, got %d", len(views))
		}

		table := &bytes.Buffer{}
		runner.output = table
		if err := run(runner, "history"); err != nil {
			t.Fatalf("history error = %v", err)
		}
		if !strings.Contains(table.String(), "timed_out") {
			t.Errorf("expected outcome in table:\n%s", table.String())
		}

		runner.output = &bytes.Buffer{}
		if err := run(runner, "history", "forget", views[0].ID); err != nil {
			t.Fatalf("forget error = %v", err)
		}
		if views := listAttempts(t, runner); len(views) != 0 {
			t.Errorf("expected no attempts after forget, got %d", len(views))
		}
	})

	t.Run("unknown outcome filter", func(t *testing.T) {
		runner, _ := newTestRunner(t, testConfig(t), nil)

		if err := run(runner, "history", "--outcome", "maybe"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("forget requires an id", func(t *testing.T) {
		runner, _ := newTestRunner(t, testConfig(t), nil)

		if err := run(runner, "history", "forget"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestOutcomeFor(t *testing.T) {
	tt := []struct {
		err  error
		want models.Outcome
	}{
		{nil, models.OutcomeSucceeded},
		{fmt.Errorf("wrapped: %w", shared.ErrTimeout), models.OutcomeTimedOut},
		{context.DeadlineExceeded, models.OutcomeTimedOut},
		{shared.ErrAbandoned, models.OutcomeAbandoned},
		{context.Canceled, models.OutcomeAbandoned},
		{shared.ErrStateMismatch, models.OutcomeFailed},
	}

	for _, tc := range tt {
		if got := outcomeFor(tc.err); got != tc.want {
			t.Errorf("outcomeFor(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}
