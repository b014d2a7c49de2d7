package naming

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestIDUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		id := NewRequestID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate request id %s", id)
		seen[id] = struct{}{}
	}
}

func TestNewRequestIDSortsByTime(t *testing.T) {
	first := NewRequestID()
	time.Sleep(2 * time.Millisecond)
	second := NewRequestID()

	ids := []string{second, first}
	sort.Strings(ids)
	assert.Equal(t, []string{first, second}, ids)
}

func TestNewRequestIDShape(t *testing.T) {
	id := NewRequestID()
	parts := strings.SplitN(id, "_", 2)
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], len("20060102T150405")+7) // microseconds + Z
	assert.True(t, strings.HasSuffix(parts[0], "Z"))
	assert.Len(t, parts[1], 10)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "leaf_0042.jpg", "leaf_0042.jpg"},
		{"spaces", "my photo (1).png", "my_photo_1_.png"},
		{"unicode", "фото.jpg", "_.jpg"},
		{"empty", "", FallbackFilename},
		{"whitespace only", "   ", FallbackFilename},
		{"dots only", "...", FallbackFilename},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestSanitizeFilenameTraversal(t *testing.T) {
	got := SanitizeFilename("../../etc/passwd")
	require.NotEmpty(t, got)
	assert.NotContains(t, got, "/")
	assert.NotContains(t, got, "..")
}

func TestBlobNames(t *testing.T) {
	assert.Equal(t, "abc_leaf.jpg", ImageBlobName("abc", "leaf.jpg"))
	assert.Equal(t, "abc.json", RecordBlobName("abc"))
}
