package kompello

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// APIError is returned for any non-2xx answer from the API.
type APIError struct {
	Op     string
	Status int
	Detail string
	Fields map[string][]string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("kompello: %s: status %d", e.Op, e.Status)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// IsUnauthorized reports whether err is a 401 or 403 answer.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

// IsNotFound reports whether err is a 404 answer.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// IsValidation reports whether err is a 400 answer.
func IsValidation(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest
}

// FieldErrors flattens field errors into one message per field.
func FieldErrors(err error) map[string]string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || len(apiErr.Fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(apiErr.Fields))
	for field, msgs := range apiErr.Fields {
		out[field] = strings.Join(msgs, " ")
	}
	return out
}

type allauthError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Param   string `json:"param"`
}

func decodeAPIError(op string, resp *http.Response) *APIError {
	apiErr := &APIError{Op: op, Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(raw) == 0 {
		return apiErr
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return apiErr
	}

	fields := make(map[string][]string)
	keys := make([]string, 0, len(body))
	for key := range body {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := body[key]
		switch key {
		case "detail":
			_ = json.Unmarshal(value, &apiErr.Detail)
		case "status", "meta", "data":
		case "errors":
			// allauth: {"status":400,"errors":[{"message":..,"param":..}]}
			var items []allauthError
			if err := json.Unmarshal(value, &items); err != nil {
				continue
			}
			for _, item := range items {
				if item.Param == "" {
					if apiErr.Detail == "" {
						apiErr.Detail = item.Message
					}
					continue
				}
				fields[item.Param] = append(fields[item.Param], item.Message)
			}
		default:
			var msgs []string
			if err := json.Unmarshal(value, &msgs); err == nil {
				fields[key] = append(fields[key], msgs...)
				continue
			}
			var msg string
			if err := json.Unmarshal(value, &msg); err == nil {
				fields[key] = append(fields[key], msg)
			}
		}
	}
	if len(fields) > 0 {
		apiErr.Fields = fields
	}
	return apiErr
}
