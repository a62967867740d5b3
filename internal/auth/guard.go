package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kompello/kompello-console/internal/view"
)

// DefaultLoginPath is the login entry point.
const DefaultLoginPath = "/auth/login"

// RedirectParam carries the originally requested path to the login page.
const RedirectParam = "redirectTo"

// Decision is the outcome of evaluating the guard.
type Decision int

const (
	// DecisionWait renders a placeholder and never navigates.
	DecisionWait Decision = iota
	// DecisionRedirect sends the visitor to the login page.
	DecisionRedirect
	// DecisionAllow serves the guarded handler.
	DecisionAllow
)

// Decide maps a snapshot to a guard decision. Nothing redirects before the
// first check has resolved.
func Decide(s Snapshot) Decision {
	if loading, known := s.SessionLoading(); !known || loading {
		return DecisionWait
	}
	if s.User == nil {
		return DecisionRedirect
	}
	return DecisionAllow
}

// StateReader is the read side of the Store used by the guard.
type StateReader interface {
	Read() Snapshot
	Wait(ctx context.Context) (Snapshot, error)
}

// GuardOptions configures Guard.
type GuardOptions struct {
	LoginPath string
	// SettleTimeout bounds how long a request waits for a loading state to
	// resolve before the placeholder is rendered. Zero never waits.
	SettleTimeout time.Duration
	// Placeholder renders the loading state. Defaults to a minimal page.
	Placeholder http.Handler
}

// Guard protects a subtree of routes.
func Guard(state StateReader, opts GuardOptions) func(http.Handler) http.Handler {
	loginPath := opts.LoginPath
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	placeholder := opts.Placeholder
	if placeholder == nil {
		placeholder = http.HandlerFunc(defaultPlaceholder)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := state.Read()
			if Decide(snap) == DecisionWait && opts.SettleTimeout > 0 {
				ctx, cancel := context.WithTimeout(r.Context(), opts.SettleTimeout)
				if settled, err := state.Wait(ctx); err == nil {
					snap = settled
				}
				cancel()
			}

			switch Decide(snap) {
			case DecisionWait:
				w.Header().Set("Cache-Control", "no-store")
				w.Header().Set("Retry-After", "1")
				placeholder.ServeHTTP(w, r)
			case DecisionRedirect:
				http.Redirect(w, r, LoginRedirect(loginPath, r), http.StatusSeeOther)
			default:
				ctx := ContextWithPrincipal(r.Context(), snap.User)
				ctx = view.ContextWithViewer(ctx, snap.User.Viewer())
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}

// LoginRedirect builds the login URL preserving the requested path and query.
func LoginRedirect(loginPath string, r *http.Request) string {
	target := r.URL.EscapedPath()
	if target == "" {
		target = "/"
	}
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	return loginPath + "?" + RedirectParam + "=" + url.QueryEscape(target)
}

// SanitizeRedirect accepts only local absolute paths. Anything else yields "/".
func SanitizeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") {
		return "/"
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	if u.Path == DefaultLoginPath {
		return "/"
	}
	return u.RequestURI()
}

func defaultPlaceholder(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<!doctype html><html><head><meta http-equiv="refresh" content="1"><title>Loading</title></head><body><p>Loading…</p></body></html>`))
}
