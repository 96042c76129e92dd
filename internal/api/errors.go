package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ConnectionMessage is shown when the API cannot be reached at all.
const ConnectionMessage = "No se pudo conectar con el servidor. Revisa tu conexión e inténtalo de nuevo."

// ErrCSRFMissing reports a token endpoint response without a csrf_token field.
var ErrCSRFMissing = errors.New("csrf token missing from response")

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	Status  int
	Message string
	// Payload is the decoded JSON object of the response, nil when the body
	// was not a JSON object.
	Payload map[string]any
	// RawBody holds the response text when it was not JSON.
	RawBody string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// MFARequired reports whether the server asked for a second factor.
func (e *HTTPError) MFARequired() bool {
	if e == nil || e.Payload == nil {
		return false
	}
	v, _ := e.Payload["mfa_required"].(bool)
	return v
}

// NetworkError wraps a transport failure (offline, DNS, timeout, reset).
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// CSRFError is returned when a mutating call could not obtain its token.
type CSRFError struct {
	Err error
}

func (e *CSRFError) Error() string {
	return fmt.Sprintf("acquire csrf token: %v", e.Err)
}

func (e *CSRFError) Unwrap() error { return e.Err }

func newHTTPError(status int, body []byte) *HTTPError {
	herr := &HTTPError{Status: status}
	var decoded any
	if err := json.Unmarshal(body, &decoded); err == nil {
		if obj, ok := decoded.(map[string]any); ok {
			herr.Payload = obj
		}
	} else {
		herr.RawBody = strings.TrimSpace(string(body))
	}
	herr.Message = messageFrom(herr.Payload, status)
	return herr
}

// messageFrom picks the user-facing message: error, then errores joined by
// newlines, then message, then a generic HTTP status line.
func messageFrom(payload map[string]any, status int) string {
	if payload != nil {
		if msg := stringField(payload["error"]); msg != "" {
			return msg
		}
		if msg := joinStrings(payload["errores"]); msg != "" {
			return msg
		}
		if msg := stringField(payload["message"]); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}

func stringField(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func joinStrings(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.Status
	}
	return 0
}

// IsUnauthorized reports a 401 response.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var nerr *NetworkError
	return errors.As(err, &nerr)
}

// UserMessage maps an error to the text shown in an alert banner.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.Message
	}
	if IsNetwork(err) {
		return ConnectionMessage
	}
	var cerr *CSRFError
	if errors.As(err, &cerr) {
		return "No se pudo iniciar una sesión segura con el servidor."
	}
	return err.Error()
}
