package lolz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Common errors
var (
	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig = errors.New("invalid lolz client configuration")
	// ErrNoCredentials indicates neither a token nor client credentials were given
	ErrNoCredentials = errors.New("an API token or client credentials are required")
	// ErrUnexpectedResponse indicates a response body that could not be decoded
	ErrUnexpectedResponse = errors.New("unexpected response from lolz API")
)

// APIError represents an error reported by the market API.
//
// The API reports failures in several shapes: an HTML error page, a JSON
// object with an "errors" list, or an OAuth style object with "error" and
// "error_description". All of them end up here.
type APIError struct {
	StatusCode  int
	Code        string
	Messages    []string
	Description string
	Body        string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("lolz API error: status %d: %s", e.StatusCode, e.Message())
}

// Message returns the most specific human readable message available
func (e *APIError) Message() string {
	switch {
	case e.Description != "":
		return e.Description
	case len(e.Messages) > 0:
		return strings.Join(e.Messages, ",")
	case e.Code != "":
		return e.Code
	case e.StatusCode != 0 && (e.StatusCode < 200 || e.StatusCode > 299):
		return http.StatusText(e.StatusCode)
	default:
		return "unknown error"
	}
}

// IsNotFound checks if the error indicates a not found response
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden || e.Code == "invalid_token"
}

// IsRateLimited checks if the API rejected the request for going too fast
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsUnauthorized reports whether err wraps an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsUnauthorized()
}

// IsNotFound reports whether err wraps a not found response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}

// IsRateLimited reports whether err wraps a rate limit response.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsRateLimited()
}

// checkResponse inspects a response body for every error shape the API uses.
// It runs before any decoding, regardless of the HTTP status code.
func checkResponse(statusCode int, body []byte) error {
	trimmed := bytes.TrimSpace(body)
	success := statusCode >= 200 && statusCode < 300

	if len(trimmed) == 0 {
		if success {
			return nil
		}
		return &APIError{StatusCode: statusCode}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		if json.Valid(trimmed) {
			// Arrays and scalars carry no error fields.
			if success {
				return nil
			}
			return &APIError{StatusCode: statusCode, Body: string(body)}
		}
		return &APIError{
			StatusCode: statusCode,
			Messages:   []string{htmlHeading(trimmed, statusCode)},
			Body:       string(body),
		}
	}

	// A non-empty "errors" value fails the call even when none of its
	// entries carry text.
	messages := errorMessages(envelope["errors"])
	_, hasErrors := truthyText(envelope["errors"])
	code, hasCode := truthyText(envelope["error"])
	if hasErrors || hasCode {
		apiErr := &APIError{
			StatusCode: statusCode,
			Code:       code,
			Messages:   messages,
			Body:       string(body),
		}
		if raw, ok := envelope["error_description"]; ok {
			apiErr.Description, _ = truthyText(raw)
		}
		return apiErr
	}

	if !success {
		return &APIError{StatusCode: statusCode, Body: string(body)}
	}
	return nil
}

// htmlHeading extracts the first <h1> of an HTML error page
func htmlHeading(body []byte, statusCode int) string {
	if _, after, ok := bytes.Cut(body, []byte("<h1>")); ok {
		if heading, _, ok := bytes.Cut(after, []byte("</h1>")); ok {
			if text := strings.TrimSpace(string(heading)); text != "" {
				return text
			}
		}
	}
	if text := http.StatusText(statusCode); text != "" {
		return text
	}
	return "non-JSON response"
}

// errorMessages flattens the "errors" field, which is usually a list of
// strings but is sometimes keyed by field name.
func errorMessages(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		messages := make([]string, 0, len(list))
		for _, item := range list {
			if text, ok := truthyText(item); ok {
				messages = append(messages, text)
			}
		}
		return messages
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err == nil {
		keys := make([]string, 0, len(keyed))
		for key := range keyed {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		messages := make([]string, 0, len(keyed))
		for _, key := range keys {
			if text, ok := truthyText(keyed[key]); ok {
				messages = append(messages, text)
			}
		}
		return messages
	}

	if text, ok := truthyText(raw); ok {
		return []string{text}
	}
	return nil
}

// truthyText renders a JSON value as text, reporting false for null, false,
// zero and empty values.
func truthyText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, s != ""
	case 'n', 'f':
		return "", false
	case 't':
		return "true", true
	case '[', '{':
		if string(raw) == "[]" || string(raw) == "{}" {
			return "", false
		}
		return string(raw), true
	default:
		text := string(raw)
		return text, text != "0" && text != "0.0"
	}
}
