package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Local server errors
	ErrServerStartup    = fmt.Errorf("local server could not start")
	ErrServerNotStarted = fmt.Errorf("local server not started")
	ErrRouteExists      = fmt.Errorf("route already registered")
	ErrAssetRead        = fmt.Errorf("asset could not be read")

	// Redirect validation errors
	ErrStateMismatch  = fmt.Errorf("state mismatch")
	ErrNonceMismatch  = fmt.Errorf("nonce mismatch")
	ErrProviderDenied = fmt.Errorf("authorization denied by provider")

	// Flow errors
	ErrPipelineFailed = fmt.Errorf("sign-in pipeline failed")
	ErrAbandoned      = fmt.Errorf("sign-in abandoned")
	ErrTimeout        = fmt.Errorf("operation timed out")
	ErrDiscovery      = fmt.Errorf("provider discovery failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrNotFound        = fmt.Errorf("not found")
)
