package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the verified payload of an admin bearer token. Azure AD style:
// the subject object id lives in "oid", app roles in "roles", directory
// group ids in "groups". All three are optional.
type Claims struct {
	ObjectID string   `json:"oid,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Groups   []string `json:"groups,omitempty"`
	jwt.RegisteredClaims
}
