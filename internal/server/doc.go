// Package server provides the ephemeral loopback HTTP server that receives
// browser redirects during an interactive sign-in.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering. Unlike a bare
// ServeMux it reports duplicate registrations as [shared.ErrRouteExists] instead of panicking, so at most one
// handler ever owns a path.
//
// # Local Server
//
// [LocalServer] binds a loopback port (either the first free candidate or one assigned by the OS), serves the
// router, and tears itself down idempotently:
//
//	srv := server.NewLocalServer(server.LocalServerOpts{Host: "127.0.0.1"})
//	port, err := srv.Startup(ctx)
//	srv.On("/callback", handler)
//	defer srv.Shutdown(ctx)
//
// Routes may be registered after startup; the sign-in URL is only handed to the browser once they are in place.
//
// # Middleware
//
//   - [RequestLogger] logs method, path and status without the query string, which carries codes and nonces.
//   - [RateLimit] caps request throughput with a token bucket and answers 429 when it is exhausted.
//   - [SecurityHeaders] marks every response as non-cacheable, non-sniffable and non-frameable.
package server
