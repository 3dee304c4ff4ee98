package auth

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/desertthunder/loopauth/internal/assets"
	"github.com/desertthunder/loopauth/internal/shared"
)

// handler maps each route to the function that serves it.
func (r *Request) handler(route Route) http.Handler {
	switch route {
	case RouteStylesheet, RouteSignInImage:
		name, contentType, _ := route.asset()
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.sendFile(w, req, name, contentType)
		})
	case RouteSignIn:
		return http.HandlerFunc(r.handleSignIn)
	case RouteCallback:
		return http.HandlerFunc(r.handleCallback)
	}
	panic(fmt.Sprintf("auth: no handler for route %d", int(route)))
}

// sendFile writes a media file with an explicit type and length. Read failures answer 400 with no body.
func (r *Request) sendFile(w http.ResponseWriter, req *http.Request, name, contentType string) {
	data, err := r.files.ReadFile(req.Context(), name)
	if err != nil {
		r.logger.Error("failed to read asset", "file", name, "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		r.logger.Warn("failed to write asset", "file", name, "error", err)
	}
}

// handleSignIn checks the nonce the caller put on the local sign-in URL and hands the browser to the provider.
func (r *Request) handleSignIn(w http.ResponseWriter, req *http.Request) {
	received := req.URL.Query().Get("nonce")
	if !r.nonce.Matches(received) {
		r.logger.Error("nonce mismatch on sign-in", "received", received, "expected", r.nonce.Encoded())
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	r.phase.CompareAndSwap(int32(PhaseAwaitingSignIn), int32(PhaseAwaitingCallback))
	w.Header().Set("Location", r.signInURL)
	w.WriteHeader(http.StatusFound)
}

// handleCallback validates the provider redirect and settles the flow. On success the response stays open
// until the caller's completion signal settles.
func (r *Request) handleCallback(w http.ResponseWriter, req *http.Request) {
	if r.result.Settled() {
		r.logger.Warn("callback received after flow settled")
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	q := req.URL.Query()
	state := q.Get("state")
	code := q.Get("code")

	parsed, err := ParseState(state)
	if err != nil {
		r.logger.Error("state mismatch on callback", "received", state, "expected", r.State(), "error", err)
		r.fail(w, err)
		return
	}

	if !r.nonce.Matches(parsed.Nonce) {
		r.logger.Error("nonce mismatch on callback", "received", parsed.Nonce, "expected", r.nonce.Encoded())
		r.fail(w, fmt.Errorf("%w: callback state carries an unknown nonce", shared.ErrNonceMismatch))
		return
	}

	if providerErr := q.Get("error"); providerErr != "" {
		desc := q.Get("error_description")
		r.logger.Error("provider returned an error", "error", providerErr, "description", desc)
		r.fail(w, fmt.Errorf("%w: %s: %s", shared.ErrProviderDenied, providerErr, desc))
		return
	}

	if !r.result.resolve(code) {
		r.logger.Warn("concurrent callback lost the race to settle the flow")
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	r.phase.Store(int32(PhaseResolved))
	r.logger.Info("authorization code received")

	r.finish(w, req)
}

// fail rejects the flow and answers 400. If another request settled the flow first, only the response is sent.
func (r *Request) fail(w http.ResponseWriter, err error) {
	if r.result.reject(err) {
		r.phase.Store(int32(PhaseResolved))
	}
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusBadRequest)
}

// finish holds the callback response until the completion signal settles, then serves the landing page or
// the pipeline's failure. This is the only place the resolved callback's response is written.
func (r *Request) finish(w http.ResponseWriter, req *http.Request) {
	if r.complete == nil {
		r.sendFile(w, req, assets.LandingPage, "text/html; charset=utf-8")
		return
	}

	var err error
	select {
	case err = <-r.complete:
	case <-r.abandon:
		select {
		case err = <-r.complete:
		default:
			r.logger.Warn("flow abandoned before the sign-in pipeline completed")
			http.Error(w, "Sign-in was cancelled", http.StatusServiceUnavailable)
			return
		}
	case <-req.Context().Done():
		r.logger.Warn("browser disconnected before the sign-in pipeline completed")
		return
	}

	if err != nil {
		r.logger.Error("sign-in pipeline failed", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, err.Error())
		return
	}

	r.sendFile(w, req, assets.LandingPage, "text/html; charset=utf-8")
}
