// Package config loads the gateway configuration from environment
// variables with sensible defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPBind string

	DetectorURL     string
	DetectorDevice  string
	DetectorTimeout time.Duration

	DefaultConf   float64
	DefaultIoU    float64
	DefaultImgSz  int
	DefaultMaxDet int

	BlobBackend          string
	BlobConnectionString string
	AzureAccount         string
	AzureKey             string
	ImagesContainer      string
	HistoryContainer     string
	S3Bucket             string
	S3Prefix             string

	AdminToken         string
	OIDCIssuer         string
	OIDCClientID       string
	OIDCJWKSURL        string
	OIDCExtraAudiences []string

	AllowedUsers  []string
	AllowedRoles  []string
	AllowedGroups []string
}

func Load() *Config {
	return &Config{
		HTTPBind: sanitizeListenAddr(env("GATEWAY_HTTP_BIND", ":8080")),

		DetectorURL:     env("DETECTOR_URL", "http://localhost:8000"),
		DetectorDevice:  env("DETECTOR_DEVICE", "cpu"),
		DetectorTimeout: durationEnv("DETECTOR_TIMEOUT", 60*time.Second),

		DefaultConf:   floatEnv("DEFAULT_CONF", 0.25),
		DefaultIoU:    floatEnv("DEFAULT_IOU", 0.45),
		DefaultImgSz:  intEnv("DEFAULT_IMGSZ", 640),
		DefaultMaxDet: intEnv("DEFAULT_MAX_DET", 1000),

		BlobBackend:          env("BLOB_BACKEND", ""),
		BlobConnectionString: env("BLOB_CONNECTION_STRING", ""),
		AzureAccount:         env("AZURE_STORAGE_ACCOUNT", ""),
		AzureKey:             env("AZURE_STORAGE_KEY", ""),
		ImagesContainer:      env("BLOB_CONTAINER_IMAGES", "aphid-images"),
		HistoryContainer:     env("BLOB_CONTAINER_HISTORY", "aphid-history"),
		S3Bucket:             env("S3_BUCKET", ""),
		S3Prefix:             env("S3_PREFIX", ""),

		AdminToken:         env("ADMIN_TOKEN", ""),
		OIDCIssuer:         env("OIDC_ISSUER", ""),
		OIDCClientID:       env("OIDC_CLIENT_ID", ""),
		OIDCJWKSURL:        env("OIDC_JWKS_URL", ""),
		OIDCExtraAudiences: listEnv("OIDC_EXTRA_AUDIENCES"),

		AllowedUsers:  listEnv("ADMIN_ALLOWED_USERS"),
		AllowedRoles:  listEnv("ADMIN_ALLOWED_ROLES"),
		AllowedGroups: listEnv("ADMIN_ALLOWED_GROUPS"),
	}
}

// BearerMode reports whether admin auth validates OIDC bearer tokens
// instead of the static shared secret. Decided once at startup.
func (c *Config) BearerMode() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != ""
}

// StorageBackend resolves the blob backend: explicit BLOB_BACKEND wins,
// otherwise whichever credential set is present.
func (c *Config) StorageBackend() string {
	if c.BlobBackend != "" {
		return strings.ToLower(c.BlobBackend)
	}
	if c.BlobConnectionString != "" || (c.AzureAccount != "" && c.AzureKey != "") {
		return "azure"
	}
	if c.S3Bucket != "" {
		return "s3"
	}
	return ""
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func floatEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return parsed
		}
	}
	return def
}

func intEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return def
}

func durationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return def
}

func listEnv(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var values []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			values = append(values, item)
		}
	}
	return values
}

// sanitizeListenAddr trims whitespace/comments so malformed env values
// (e.g. ":8080 :: note") do not break net.Listen.
func sanitizeListenAddr(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return trimmed
	}
	fields := strings.Fields(trimmed)
	if len(fields) > 0 {
		trimmed = fields[0]
	}
	return strings.Trim(trimmed, "\"'")
}
