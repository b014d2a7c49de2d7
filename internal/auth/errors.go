package auth

import (
	"fmt"
	"net/http"
)

// Code classifies an authentication or authorization failure.
type Code string

const (
	CodeMissingToken    Code = "missing_token"
	CodeMalformedHeader Code = "malformed_header"
	CodeKeyResolution   Code = "key_resolution_failed"
	CodeInvalidToken    Code = "invalid_token"
	CodeForbidden       Code = "forbidden"
)

// Error describes a rejected credential. The caller did something wrong
// (or presented nothing); contrast with ConfigError.
type Error struct {
	Code   Code
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("auth failed (%s): %s", e.Code, e.Detail)
}

// Status maps the failure onto an HTTP status: absent or unreadable
// credentials are 401, credentials that were read but rejected are 403.
func (e *Error) Status() int {
	switch e.Code {
	case CodeMissingToken, CodeMalformedHeader, CodeKeyResolution:
		return http.StatusUnauthorized
	default:
		return http.StatusForbidden
	}
}

// ConfigError reports a deployment that can never authorize anyone, e.g.
// bearer auth without an allow-policy. Surfaced as 503 so the operator
// hears about it instead of every caller being silently denied.
type ConfigError struct {
	Detail string
}

func (e *ConfigError) Error() string {
	return "auth misconfigured: " + e.Detail
}
