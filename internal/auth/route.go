package auth

import (
	"fmt"

	"github.com/desertthunder/loopauth/internal/assets"
)

// Route is one of the fixed paths the flow serves.
type Route int

const (
	RouteStylesheet Route = iota
	RouteSignInImage
	RouteSignIn
	RouteCallback
)

// Routes lists every [Route] in registration order.
func Routes() []Route {
	return []Route{RouteStylesheet, RouteSignInImage, RouteSignIn, RouteCallback}
}

// Path returns the URL path the route is served on.
func (r Route) Path() string {
	switch r {
	case RouteStylesheet:
		return "/" + assets.Stylesheet
	case RouteSignInImage:
		return "/" + assets.SignInImage
	case RouteSignIn:
		return "/signin"
	case RouteCallback:
		return "/callback"
	}
	panic(fmt.Sprintf("auth: unknown route %d", int(r)))
}

func (r Route) String() string {
	return r.Path()
}

// asset returns the file and content type for static routes.
func (r Route) asset() (name, contentType string, ok bool) {
	switch r {
	case RouteStylesheet:
		return assets.Stylesheet, "text/css; charset=utf-8", true
	case RouteSignInImage:
		return assets.SignInImage, "image/svg+xml", true
	}
	return "", "", false
}
