package shared

import "errors"

// Sentinels shared by the console packages. httpx.RespondError maps them to
// status codes for JSON endpoints.
var (
	// ErrNotFound means the record is missing or belongs to another company.
	ErrNotFound = errors.New("shared: not found")
	// ErrCSRFTokenMissing means the session or the request carries no token.
	ErrCSRFTokenMissing = errors.New("shared: csrf token missing")
	// ErrCSRFTokenMismatch means the request token differs from the session's.
	ErrCSRFTokenMismatch = errors.New("shared: csrf token mismatch")
	// ErrUpstreamUnavailable wraps Kompello failures that are not the caller's fault.
	ErrUpstreamUnavailable = errors.New("shared: kompello api unavailable")
)
