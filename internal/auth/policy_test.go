package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyFailClosed(t *testing.T) {
	empty := NewPolicy(nil, nil, nil)
	assert.True(t, empty.Empty())

	claims := &Claims{
		ObjectID: "user-1",
		Roles:    []string{"Admin", "Reader"},
		Groups:   []string{"g-ops"},
	}
	assert.False(t, empty.IsAdmin(claims), "empty policy must deny everyone")
}

func TestPolicyNilClaims(t *testing.T) {
	p := NewPolicy([]string{"user-1"}, nil, nil)
	assert.False(t, p.IsAdmin(nil))
}

func TestPolicyMatchesAnyAllowList(t *testing.T) {
	p := NewPolicy(
		[]string{"user-1"},
		[]string{"Gateway.Admin"},
		[]string{"group-a"},
	)

	tests := []struct {
		name   string
		claims *Claims
		want   bool
	}{
		{"by user id", &Claims{ObjectID: "user-1"}, true},
		{"by role only", &Claims{ObjectID: "someone-else", Roles: []string{"Gateway.Admin"}}, true},
		{"by group only", &Claims{Groups: []string{"group-b", "group-a"}}, true},
		{"no overlap", &Claims{ObjectID: "user-2", Roles: []string{"Reader"}, Groups: []string{"group-b"}}, false},
		{"empty claims", &Claims{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.IsAdmin(tt.claims))
		})
	}
}

func TestPolicyIgnoresBlankEntries(t *testing.T) {
	p := NewPolicy([]string{" ", ""}, nil, nil)
	assert.True(t, p.Empty())
	assert.False(t, p.IsAdmin(&Claims{ObjectID: ""}))
}
