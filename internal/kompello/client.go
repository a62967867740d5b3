// Package kompello is a typed client for the Kompello REST API and its
// allauth browser endpoints. A Client owns one cookie jar and therefore one
// upstream session.
package kompello

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"
)

const (
	csrfHeader   = "X-CSRFToken"
	csrfFlightID = "csrf"
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
	// HTTPClient overrides the default client. A jar is installed when it has none.
	HTTPClient *http.Client
}

// Client wraps interactions with the Kompello API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
	csrf       singleflight.Group
}

// NewClient constructs a Client with its own cookie jar.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("kompello: base url required")
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("kompello: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("kompello: base url %q must be absolute", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("kompello: cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{baseURL: base, httpClient: httpClient, logger: logger}, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Ping checks if the remote API answers at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kompello: ping: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}

type csrfResponse struct {
	CSRFToken string `json:"csrfToken"`
}

// CSRFToken fetches a CSRF token for the current session. Concurrent callers
// share one upstream request.
func (c *Client) CSRFToken(ctx context.Context) (string, error) {
	ch := c.csrf.DoChan(csrfFlightID, func() (interface{}, error) {
		var out csrfResponse
		// Detached so one caller giving up does not fail the others.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.requestTimeout())
		defer cancel()
		if err := c.do(fetchCtx, "csrf token", http.MethodGet, "/api/system/get_csrf_token/", nil, nil, &out); err != nil {
			return "", err
		}
		if out.CSRFToken == "" {
			return "", fmt.Errorf("kompello: csrf token: empty token")
		}
		return out.CSRFToken, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) requestTimeout() time.Duration {
	if c.httpClient.Timeout > 0 {
		return c.httpClient.Timeout
	}
	return 15 * time.Second
}

// do issues a JSON request. Unsafe methods carry a CSRF token.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("kompello: %s: encode: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("kompello: %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !isSafeMethod(method) {
		token, err := c.CSRFToken(ctx)
		if err != nil {
			return fmt.Errorf("kompello: %s: %w", op, err)
		}
		req.Header.Set(csrfHeader, token)
		req.Header.Set("Referer", c.baseURL.String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kompello: %s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		apiErr := decodeAPIError(op, resp)
		c.logger.Debug("kompello request failed",
			slog.String("op", op),
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("kompello: %s: decode: %w", op, err)
	}
	return nil
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// listEnvelope accepts both a bare array and a paginated {count,results} body.
type listEnvelope[T any] struct {
	Items []T
}

func (l *listEnvelope[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &l.Items)
	}
	var page struct {
		Count   int `json:"count"`
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return err
	}
	l.Items = page.Results
	return nil
}

func list[T any](ctx context.Context, c *Client, op, path string, query url.Values) ([]T, error) {
	var env listEnvelope[T]
	if err := c.do(ctx, op, http.MethodGet, path, query, nil, &env); err != nil {
		return nil, err
	}
	if env.Items == nil {
		return []T{}, nil
	}
	return env.Items, nil
}
