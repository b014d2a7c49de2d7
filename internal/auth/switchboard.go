package auth

import (
	"context"
	"crypto/subtle"
	"strings"
)

// Authorizer is the admin gate in front of the history endpoint. One of
// the two implementations is chosen at startup from configuration; the
// choice never changes per request.
//
// staticToken carries the X-Admin-Token header value, authorization the
// Authorization header value; each mode reads only its own.
type Authorizer interface {
	RequireAdmin(ctx context.Context, staticToken, authorization string) error
}

// StaticAuthorizer compares a caller-supplied token against a shared
// secret configured at deploy time.
type StaticAuthorizer struct {
	secret string
}

func NewStaticAuthorizer(secret string) *StaticAuthorizer {
	return &StaticAuthorizer{secret: secret}
}

func (a *StaticAuthorizer) RequireAdmin(_ context.Context, staticToken, _ string) error {
	if a.secret == "" {
		return &ConfigError{Detail: "admin token not configured"}
	}
	if staticToken == "" {
		return &Error{Code: CodeMissingToken, Detail: "X-Admin-Token header required"}
	}
	if subtle.ConstantTimeCompare([]byte(staticToken), []byte(a.secret)) != 1 {
		return &Error{Code: CodeForbidden, Detail: "admin token mismatch"}
	}
	return nil
}

// BearerAuthorizer validates an OIDC bearer token and checks the verified
// claims against the allow-policy.
type BearerAuthorizer struct {
	verifier Verifier
	policy   Policy
}

func NewBearerAuthorizer(verifier Verifier, policy Policy) *BearerAuthorizer {
	return &BearerAuthorizer{verifier: verifier, policy: policy}
}

func (a *BearerAuthorizer) RequireAdmin(ctx context.Context, _, authorization string) error {
	if a.policy.Empty() {
		return &ConfigError{Detail: "bearer auth enabled but no admin allow-policy configured"}
	}

	raw, err := bearerToken(authorization)
	if err != nil {
		return err
	}

	claims, err := a.verifier.Verify(ctx, raw)
	if err != nil {
		return err
	}
	if !a.policy.IsAdmin(claims) {
		return &Error{Code: CodeForbidden, Detail: "caller is not an administrator"}
	}
	return nil
}

// bearerToken extracts the token from an Authorization header. The
// scheme must be "Bearer" (case-insensitive) followed by exactly one
// token segment.
func bearerToken(authorization string) (string, error) {
	if authorization == "" {
		return "", &Error{Code: CodeMissingToken, Detail: "Authorization header required"}
	}
	fields := strings.Fields(authorization)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", &Error{Code: CodeMalformedHeader, Detail: "expected Authorization: Bearer <token>"}
	}
	return fields[1], nil
}
