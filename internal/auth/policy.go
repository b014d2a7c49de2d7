package auth

import "strings"

// Policy is the deployment-configured set of principals treated as
// administrators. Immutable after construction and safe for concurrent
// reads.
type Policy struct {
	users  map[string]struct{}
	roles  map[string]struct{}
	groups map[string]struct{}
}

// NewPolicy builds a Policy from the three configured allow-lists.
// Entries are trimmed; empty entries are dropped.
func NewPolicy(users, roles, groups []string) Policy {
	return Policy{
		users:  toSet(users),
		roles:  toSet(roles),
		groups: toSet(groups),
	}
}

// Empty reports whether no allow-list is configured at all. An empty
// policy denies everyone rather than allowing everyone.
func (p Policy) Empty() bool {
	return len(p.users) == 0 && len(p.roles) == 0 && len(p.groups) == 0
}

// IsAdmin decides whether the claims identify an administrator: the
// subject id is allow-listed, or any claimed role or group is.
func (p Policy) IsAdmin(claims *Claims) bool {
	if claims == nil || p.Empty() {
		return false
	}
	if _, ok := p.users[claims.ObjectID]; ok && claims.ObjectID != "" {
		return true
	}
	for _, role := range claims.Roles {
		if _, ok := p.roles[role]; ok {
			return true
		}
	}
	for _, group := range claims.Groups {
		if _, ok := p.groups[group]; ok {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}
