package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/loopauth/internal/assets"
	"github.com/desertthunder/loopauth/internal/auth"
	"github.com/desertthunder/loopauth/internal/models"
	"github.com/desertthunder/loopauth/internal/repositories"
	"github.com/desertthunder/loopauth/internal/server"
	"github.com/desertthunder/loopauth/internal/shared"
	"github.com/desertthunder/loopauth/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// LoginResult is what a successful login prints.
type LoginResult struct {
	AttemptID    string `json:"attempt_id,omitempty"`
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
	RedirectURI  string `json:"redirect_uri"`
	State        string `json:"state"`
}

// Login runs one browser sign-in: it starts the loopback server, sends the browser to the provider through
// the local /signin page, waits for the redirect, and prints the authorization code with its PKCE verifier.
//
// When the local server cannot start and device fallback is enabled, a device code is requested instead.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	conf, err := r.oauthConfig(ctx)
	if err != nil {
		return err
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = r.config.Flow.Timeout
	}

	history := r.history()
	defer history.close()

	srvCfg := r.config.Server
	srv := server.NewLocalServer(server.LocalServerOpts{
		Host:       srvCfg.Host,
		Ports:      srvCfg.Ports,
		Middleware: r.middleware(),
		Logger:     r.logger,
	})

	req := auth.NewRequest(auth.RequestOpts{
		Server:  srv,
		Files:   assets.ForDir(srvCfg.MediaDir),
		Display: r.display(cmd.Bool("json")),
		Logger:  r.logger,
		Host:    srvCfg.Host,
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := req.Close(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down local server", "error", err)
		}
	}()

	attempt := models.NewAttempt(0, models.ModeBrowser, 0)
	history.create(attempt)

	if err := req.StartServer(ctx); err != nil {
		if r.config.Flow.DeviceFallback && conf.Endpoint.DeviceAuthURL != "" {
			r.logger.Warn("falling back to device code sign-in", "error", err)
			attempt.SetMode(models.ModeDevice)
			return r.deviceSignIn(ctx, cmd, conf, req, attempt, history)
		}
		history.finish(attempt, err)
		return err
	}
	attempt.SetPort(req.Port())

	conf.RedirectURL = req.RedirectURL()
	verifier := oauth2.GenerateVerifier()
	providerURL := conf.AuthCodeURL(req.State(), oauth2.S256ChallengeOption(verifier))

	complete, settle := auth.NewCompletion()
	result, err := req.AuthorizationCode(providerURL, complete)
	if err != nil {
		history.finish(attempt, err)
		return err
	}

	signInURL := req.SignInURL()
	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL in your browser to sign in:\n%s\n\n", signInURL)
	} else if err := r.browser(ctx, signInURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlain("⚠ Could not open browser automatically.\nPlease open this URL in your browser:\n%s\n\n", signInURL)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	code, err := r.wait(waitCtx, result, signInURL, cmd.Bool("tui"))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: no redirect received within %s", shared.ErrTimeout, timeout)
		}
		settle(err)
		history.finish(attempt, err)
		return fmt.Errorf("authorization failed: %w", err)
	}

	out := LoginResult{
		AttemptID:    attempt.ID(),
		Code:         code,
		CodeVerifier: verifier,
		RedirectURI:  conf.RedirectURL,
		State:        req.State(),
	}

	if err := r.writeLoginResult(out, cmd.Bool("json"), cmd.Bool("pretty")); err != nil {
		err = fmt.Errorf("%w: %w", shared.ErrPipelineFailed, err)
		settle(err)
		history.finish(attempt, err)
		return err
	}

	settle(nil)
	history.finish(attempt, nil)
	return nil
}

func (r *Runner) writeLoginResult(out LoginResult, asJSON, pretty bool) error {
	if asJSON {
		return r.writeJSON(out, pretty)
	}
	if err := r.writePlain("✓ Authorization code received\n"); err != nil {
		return err
	}
	if err := r.writePlain("code:          %s\n", out.Code); err != nil {
		return err
	}
	if err := r.writePlain("code_verifier: %s\n", out.CodeVerifier); err != nil {
		return err
	}
	return r.writePlain("redirect_uri:  %s\n", out.RedirectURI)
}

// wait blocks until the flow settles or ctx ends, optionally behind the spinner view.
func (r *Runner) wait(ctx context.Context, result *auth.PendingResult, signInURL string, interactive bool) (string, error) {
	if !interactive {
		r.logger.Info("waiting for the browser", "timeout", deadline(ctx))
		return result.Wait(ctx)
	}

	model := ui.NewWaitModel(ctx, result, signInURL, func() error { return r.browser(ctx, signInURL) })
	if _, err := tea.NewProgram(model, tea.WithOutput(r.output), tea.WithContext(ctx)).Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("wait view failed: %w", err)
	}
	if model.Cancelled() {
		return "", shared.ErrAbandoned
	}
	return model.Code(), model.Err()
}

func deadline(ctx context.Context) time.Duration {
	d, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	return time.Until(d).Round(time.Second)
}

func (r *Runner) middleware() []server.Middleware {
	cfg := r.config.Server
	return []server.Middleware{
		server.RequestLogger(r.logger),
		server.SecurityHeaders(),
		server.RateLimit(rate.Limit(cfg.RateLimit), cfg.RateBurst),
	}
}

// display shows device codes as a panel on the output, or in the log when the output is JSON.
func (r *Runner) display(asJSON bool) auth.DeviceCodeDisplay {
	if asJSON {
		return nil
	}
	return ui.NewDevicePanel(r.output)
}

// attemptLog records attempts when the database is available; failures are logged and never fail a sign-in.
type attemptLog struct {
	repo   *repositories.AttemptRepository
	done   func()
	logger *log.Logger
}

func (r *Runner) history() *attemptLog {
	repo, done, err := r.openAttempts()
	if err != nil {
		r.logger.Warn("attempt history unavailable", "error", err)
		return &attemptLog{logger: r.logger}
	}
	return &attemptLog{repo: repo, done: done, logger: r.logger}
}

func (h *attemptLog) create(a *models.Attempt) {
	if h.repo == nil {
		return
	}
	if err := h.repo.Create(a); err != nil {
		h.logger.Warn("failed to record attempt", "error", err)
	}
}

func (h *attemptLog) finish(a *models.Attempt, err error) {
	a.Finish(outcomeFor(err), err)
	h.save(a)
}

func (h *attemptLog) save(a *models.Attempt) {
	if h.repo == nil || a.ID() == "" {
		return
	}
	if err := h.repo.Update(a); err != nil {
		h.logger.Warn("failed to update attempt", "error", err)
	}
}

func (h *attemptLog) close() {
	if h.done != nil {
		h.done()
	}
}

func outcomeFor(err error) models.Outcome {
	switch {
	case err == nil:
		return models.OutcomeSucceeded
	case errors.Is(err, shared.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return models.OutcomeTimedOut
	case errors.Is(err, shared.ErrAbandoned), errors.Is(err, context.Canceled):
		return models.OutcomeAbandoned
	default:
		return models.OutcomeFailed
	}
}
