package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/loopauth/internal/auth"
	"github.com/desertthunder/loopauth/internal/models"
	"github.com/desertthunder/loopauth/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const deviceMessage = "To sign in, open the page below on any device and enter the code."

// DeviceResult is what a device authorization prints. Polling the token endpoint with DeviceCode is left
// to the caller.
type DeviceResult struct {
	AttemptID       string    `json:"attempt_id,omitempty"`
	DeviceCode      string    `json:"device_code"`
	UserCode        string    `json:"user_code"`
	VerificationURI string    `json:"verification_uri"`
	Expiry          time.Time `json:"expiry,omitzero"`
	Interval        int64     `json:"interval,omitempty"`
}

// Device requests a device authorization and shows the user code.
func (r *Runner) Device(ctx context.Context, cmd *cli.Command) error {
	conf, err := r.oauthConfig(ctx)
	if err != nil {
		return err
	}

	history := r.history()
	defer history.close()

	req := auth.NewRequest(auth.RequestOpts{Display: r.display(cmd.Bool("json")), Logger: r.logger})
	attempt := models.NewAttempt(0, models.ModeDevice, 0)
	history.create(attempt)

	return r.deviceSignIn(ctx, cmd, conf, req, attempt, history)
}

// deviceSignIn requests a device code, shows it through req, and prints the codes needed to poll for a token.
func (r *Runner) deviceSignIn(ctx context.Context, cmd *cli.Command, conf *oauth2.Config, req *auth.Request, attempt *models.Attempt, history *attemptLog) error {
	if conf.Endpoint.DeviceAuthURL == "" {
		err := fmt.Errorf("%w: provider.device_auth_url", shared.ErrMissingConfig)
		history.finish(attempt, err)
		return err
	}

	resp, err := conf.DeviceAuth(r.clientContext(ctx))
	if err != nil {
		err = fmt.Errorf("device authorization failed: %w", err)
		history.finish(attempt, err)
		return err
	}

	verificationURI := resp.VerificationURI
	if resp.VerificationURIComplete != "" {
		verificationURI = resp.VerificationURIComplete
	}
	req.DisplayDeviceCode(deviceMessage, resp.UserCode, verificationURI)

	// The attempt stays pending; it ends when the caller polls the token endpoint.
	history.save(attempt)

	out := DeviceResult{
		AttemptID:       attempt.ID(),
		DeviceCode:      resp.DeviceCode,
		UserCode:        resp.UserCode,
		VerificationURI: resp.VerificationURI,
		Expiry:          resp.Expiry,
		Interval:        resp.Interval,
	}
	if cmd.Bool("json") {
		return r.writeJSON(out, cmd.Bool("pretty"))
	}
	return r.writePlain("device_code: %s\n", out.DeviceCode)
}
