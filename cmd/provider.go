package main

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/desertthunder/loopauth/internal/shared"
	"golang.org/x/oauth2"
)

// oauthConfig builds the client configuration for the configured provider.
//
// When an issuer is set its endpoints come from OpenID discovery; the configured URLs fill in anything the
// discovery document leaves out.
func (r *Runner) oauthConfig(ctx context.Context) (*oauth2.Config, error) {
	p := r.config.Provider
	if err := p.Validate(); err != nil {
		return nil, err
	}

	endpoint := oauth2.Endpoint{
		AuthURL:       p.AuthURL,
		TokenURL:      p.TokenURL,
		DeviceAuthURL: p.DeviceAuthURL,
	}

	if p.Issuer != "" {
		discovered, err := r.discover(ctx, p.Issuer)
		if err != nil {
			return nil, err
		}
		if discovered.DeviceAuthURL == "" {
			discovered.DeviceAuthURL = endpoint.DeviceAuthURL
		}
		endpoint = discovered
	}

	if endpoint.AuthURL == "" {
		return nil, fmt.Errorf("%w: no authorization endpoint", shared.ErrInvalidConfig)
	}

	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       p.Scopes,
	}, nil
}

func (r *Runner) discover(ctx context.Context, issuer string) (oauth2.Endpoint, error) {
	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, r.httpClient), issuer)
	if err != nil {
		return oauth2.Endpoint{}, fmt.Errorf("%w: %w", shared.ErrDiscovery, err)
	}

	endpoint := provider.Endpoint()
	if endpoint.DeviceAuthURL == "" {
		var claims struct {
			DeviceAuthURL string `json:"device_authorization_endpoint"`
		}
		if err := provider.Claims(&claims); err == nil {
			endpoint.DeviceAuthURL = claims.DeviceAuthURL
		}
	}

	r.logger.Debug("discovered provider endpoints", "issuer", issuer, "auth", endpoint.AuthURL, "device", endpoint.DeviceAuthURL)
	return endpoint, nil
}

// clientContext carries the runner's HTTP client to golang.org/x/oauth2 calls.
func (r *Runner) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
}
