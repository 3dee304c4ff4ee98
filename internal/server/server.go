package server

import (
	"net/http"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                           // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) error // Handle registers a handler for the specified method and path
	ServeHTTP(w http.ResponseWriter, r *http.Request)       // ServeHTTP implements http.Handler for the entire router
}
