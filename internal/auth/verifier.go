package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const discoveryTimeout = 10 * time.Second

// Verifier validates a raw bearer token and returns its claims.
type Verifier interface {
	Verify(ctx context.Context, raw string) (*Claims, error)
}

// OIDCVerifier checks bearer tokens against a remote identity issuer:
// signature via the issuer's published JWKS (cached, refreshed in the
// background and on unknown key ids), plus expiry, issuer and audience.
type OIDCVerifier struct {
	issuer    string
	audiences map[string]struct{}
	keys      keyfunc.Keyfunc
}

// NewOIDCVerifier constructs a verifier for the given issuer and client
// id. The token audience must match the client id, its api:// variant, or
// one of extraAudiences. When jwksURL is empty it is discovered from the
// issuer's OpenID configuration document.
func NewOIDCVerifier(ctx context.Context, issuer, clientID string, extraAudiences []string, jwksURL string) (*OIDCVerifier, error) {
	if jwksURL == "" {
		discovered, err := discoverJWKSURL(ctx, issuer)
		if err != nil {
			return nil, fmt.Errorf("discover jwks url: %w", err)
		}
		jwksURL = discovered
	}

	keys, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("load jwks from %s: %w", jwksURL, err)
	}

	audiences := map[string]struct{}{
		clientID:            {},
		"api://" + clientID: {},
	}
	for _, aud := range extraAudiences {
		aud = strings.TrimSpace(aud)
		if aud != "" {
			audiences[aud] = struct{}{}
		}
	}

	return &OIDCVerifier{
		issuer:    issuer,
		audiences: audiences,
		keys:      keys,
	}, nil
}

// Verify parses and validates raw. It never retries and never returns
// claims from a token that failed any check.
func (v *OIDCVerifier) Verify(_ context.Context, raw string) (*Claims, error) {
	if raw == "" {
		return nil, &Error{Code: CodeMissingToken, Detail: "no bearer token supplied"}
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, v.keys.Keyfunc,
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, keyfunc.ErrKeyfunc) {
			return nil, &Error{Code: CodeKeyResolution, Detail: err.Error()}
		}
		return nil, &Error{Code: CodeInvalidToken, Detail: err.Error()}
	}
	if !token.Valid {
		return nil, &Error{Code: CodeInvalidToken, Detail: "token failed validation"}
	}
	if !v.audienceAllowed(claims.Audience) {
		return nil, &Error{Code: CodeInvalidToken, Detail: "token audience not accepted"}
	}
	return claims, nil
}

func (v *OIDCVerifier) audienceAllowed(audience jwt.ClaimStrings) bool {
	for _, aud := range audience {
		if _, ok := v.audiences[aud]; ok {
			return true
		}
	}
	return false
}

func discoverJWKSURL(ctx context.Context, issuer string) (string, error) {
	wellKnown := strings.TrimSuffix(issuer, "/") + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnown, nil)
	if err != nil {
		return "", err
	}

	client := &http.Client{Timeout: discoveryTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openid configuration returned status %d", resp.StatusCode)
	}

	var doc struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("decode openid configuration: %w", err)
	}
	if doc.JWKSURI == "" {
		return "", errors.New("openid configuration has no jwks_uri")
	}
	return doc.JWKSURI, nil
}
