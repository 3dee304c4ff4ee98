// Package auth implements the loopback redirect leg of an interactive OAuth authorization-code sign-in.
//
// # Flow
//
// A [Request] owns one sign-in attempt:
//
//  1. [NewRequest] generates a random [Nonce].
//  2. [Request.StartServer] starts the [LocalServer] and composes the state value "<port>,<encoded-nonce>"
//     ([Request.State]). Startup failures are returned, never panicked, so the caller can fall back to a
//     device-code prompt ([Request.DisplayDeviceCode]).
//  3. The caller builds the provider sign-in URL carrying the state, then calls [Request.AuthorizationCode]
//     with it and a [Completion]. This registers every [Route] once and returns the [PendingResult].
//  4. The browser opens [Request.SignInURL]; /signin checks the nonce and redirects to the provider.
//  5. The provider redirects to /callback. The state is split and its nonce compared; a malformed state or
//     unknown nonce rejects the result with [shared.ErrStateMismatch] or [shared.ErrNonceMismatch] and
//     answers 400. A valid callback resolves the result with the code.
//  6. The /callback response is held open until the [Completion] settles, so the landing page reflects the
//     whole pipeline (e.g. token exchange) rather than just the redirect.
//
// # Concurrency
//
// Handlers run on the server's goroutines. The result settles exactly once: the first callback to claim it
// wins and later ones get a 400 without touching the outcome. The core imposes no timeout; callers race
// [PendingResult.Wait] against a context and call [Request.Close] when they give up.
package auth
