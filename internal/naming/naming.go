// Package naming produces request identifiers and blob-safe object names.
package naming

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FallbackFilename is used when sanitizing leaves nothing usable.
const FallbackFilename = "image.jpg"

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
	dotRuns     = regexp.MustCompile(`\.{2,}`)
)

// NewRequestID returns an identifier that sorts lexicographically by
// creation time: a UTC microsecond timestamp followed by a random
// 10-hex-char suffix, e.g. 20250810T142301042991Z_3fa9c01d2b.
func NewRequestID() string {
	now := time.Now().UTC()
	stamp := fmt.Sprintf("%s%06dZ", now.Format("20060102T150405"), now.Nanosecond()/1000)
	u := uuid.New()
	return stamp + "_" + hex.EncodeToString(u[:])[:10]
}

// ImageBlobName builds the object name for a stored upload.
func ImageBlobName(requestID, safeFilename string) string {
	return requestID + "_" + safeFilename
}

// RecordBlobName builds the object name for a stored audit record.
func RecordBlobName(requestID string) string {
	return requestID + ".json"
}

// SanitizeFilename rewrites name so it is safe to embed in a blob name:
// every run of characters outside [A-Za-z0-9._-] becomes a single "_",
// dot runs collapse to one dot and leading dots are dropped. An input
// that sanitizes to nothing yields FallbackFilename.
func SanitizeFilename(name string) string {
	cleaned := unsafeChars.ReplaceAllString(strings.TrimSpace(name), "_")
	cleaned = dotRuns.ReplaceAllString(cleaned, ".")
	cleaned = strings.TrimLeft(cleaned, ".")
	if cleaned == "" {
		return FallbackFilename
	}
	return cleaned
}
