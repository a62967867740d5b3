package kompello

import (
	"context"
	"errors"
	"net/http"
)

const (
	allauthSessionPath = "/_allauth/browser/v1/auth/session"
	allauthLoginPath   = "/_allauth/browser/v1/auth/login"
)

// LoginRequest is the allauth login payload. The identifier travels as
// username; email and phone stay empty.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// Session reports whether the jar holds a valid upstream session.
func (c *Client) Session(ctx context.Context) error {
	return c.do(ctx, "session", http.MethodGet, allauthSessionPath, nil, nil, nil)
}

// Login establishes an upstream session.
func (c *Client) Login(ctx context.Context, identifier, secret string) error {
	payload := LoginRequest{Username: identifier, Password: secret}
	return c.do(ctx, "login", http.MethodPost, allauthLoginPath, nil, payload, nil)
}

// Logout deletes the upstream session. allauth answers a successful logout
// with 401, which is reported as nil here.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, "logout", http.MethodDelete, allauthSessionPath, nil, nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return nil
	}
	return err
}

// Me returns the profile bound to the current session.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, "users me", http.MethodGet, "/api/users/me/", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
