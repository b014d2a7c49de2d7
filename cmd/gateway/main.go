package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aphidlab/inference-gateway/internal/auth"
	"github.com/aphidlab/inference-gateway/internal/config"
	"github.com/aphidlab/inference-gateway/internal/detect"
	"github.com/aphidlab/inference-gateway/internal/server"
	"github.com/aphidlab/inference-gateway/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("gateway exited")
	}
}

func run() error {
	ctx := context.Background()
	cfg := config.Load()

	detector := detect.NewHTTPDetector(cfg.DetectorURL, cfg.DetectorDevice, cfg.DetectorTimeout)
	if err := detector.Healthy(ctx); err != nil {
		log.Warn().Err(err).Str("url", cfg.DetectorURL).Msg("detector not reachable at startup")
	}

	auditStore, storeInitErr := buildStore(ctx, cfg)

	authorizer, authMode, adminEnabled, err := buildAuthorizer(ctx, cfg)
	if err != nil {
		return err
	}
	log.Info().Str("auth_mode", authMode).Bool("admin_enabled", adminEnabled).Msg("admin auth configured")

	srv := server.New(server.Options{
		Detector:       detector,
		Store:          auditStore,
		StoreInitError: storeInitErr,
		Authorizer:     authorizer,
		AuthMode:       authMode,
		AdminEnabled:   adminEnabled,
		Defaults: detect.Params{
			Conf:      cfg.DefaultConf,
			IoU:       cfg.DefaultIoU,
			ImageSize: cfg.DefaultImgSz,
			MaxDet:    cfg.DefaultMaxDet,
		},
		Logger: log.Logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPBind,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Str("addr", cfg.HTTPBind).Msg("gateway HTTP listening")
	return httpServer.ListenAndServe()
}

// buildStore initializes the configured blob backend. Failures here are
// non-fatal: the gateway keeps serving predictions and reports the init
// error on /health and in predict responses.
func buildStore(ctx context.Context, cfg *config.Config) (store.Store, string) {
	switch backend := cfg.StorageBackend(); backend {
	case "azure":
		s, err := store.NewAzureStore(ctx, store.AzureConfig{
			ConnectionString: cfg.BlobConnectionString,
			Account:          cfg.AzureAccount,
			Key:              cfg.AzureKey,
			ImagesContainer:  cfg.ImagesContainer,
			HistoryContainer: cfg.HistoryContainer,
		})
		if err != nil {
			log.Error().Err(err).Msg("azure blob store unavailable")
			return nil, err.Error()
		}
		log.Info().Str("backend", backend).Msg("audit store initialized")
		return s, ""
	case "s3":
		s, err := store.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			log.Error().Err(err).Msg("s3 store unavailable")
			return nil, err.Error()
		}
		log.Info().Str("backend", backend).Msg("audit store initialized")
		return s, ""
	case "":
		log.Warn().Msg("no blob backend configured; requests will not be persisted")
		return nil, ""
	default:
		detail := fmt.Sprintf("unknown blob backend %q", backend)
		log.Error().Msg(detail)
		return nil, detail
	}
}

func buildAuthorizer(ctx context.Context, cfg *config.Config) (auth.Authorizer, string, bool, error) {
	if cfg.BearerMode() {
		verifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCExtraAudiences, cfg.OIDCJWKSURL)
		if err != nil {
			return nil, "", false, fmt.Errorf("init oidc verifier: %w", err)
		}
		policy := auth.NewPolicy(cfg.AllowedUsers, cfg.AllowedRoles, cfg.AllowedGroups)
		if policy.Empty() {
			log.Warn().Msg("bearer auth enabled but no admin allow-policy configured; admin requests will fail loudly")
		}
		return auth.NewBearerAuthorizer(verifier, policy), "bearer", true, nil
	}
	return auth.NewStaticAuthorizer(cfg.AdminToken), "static", cfg.AdminToken != "", nil
}
