// Command server runs the Gemini-compatible gateway in front of a
// Responses API backend.
//
// Configuration is layered: built-in defaults, then a YAML config file
// (via -config, GEMGATE_CONFIG, ./config.yaml, or /etc/gemgate/config.yaml),
// then GEMGATE_* environment overrides. See pkg/config for the full schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mkappe/gemgate/pkg/auth"
	"github.com/mkappe/gemgate/pkg/auth/apikey"
	"github.com/mkappe/gemgate/pkg/auth/jwt"
	"github.com/mkappe/gemgate/pkg/auth/noop"
	"github.com/mkappe/gemgate/pkg/config"
	"github.com/mkappe/gemgate/pkg/debug"
	"github.com/mkappe/gemgate/pkg/engine"
	"github.com/mkappe/gemgate/pkg/provider/responsesapi"
	"github.com/mkappe/gemgate/pkg/storage"
	"github.com/mkappe/gemgate/pkg/storage/memory"
	"github.com/mkappe/gemgate/pkg/storage/postgres"
	transporthttp "github.com/mkappe/gemgate/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file (overrides discovery)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	debug.Init(cfg.Observability.Logging.Debug, cfg.Observability.Logging.Level)
	logger := slog.Default()

	ledger, err := buildLedger(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing usage ledger: %w", err)
	}
	defer ledger.Close()

	backend, err := responsesapi.New(responsesapi.Config{
		BaseURL:         cfg.Backend.BaseURL,
		APIKey:          cfg.Backend.APIKey,
		Timeout:         cfg.Backend.Timeout,
		BreakerFailures: cfg.Backend.BreakerFailures,
		BreakerCooldown: cfg.Backend.BreakerCooldown,
	})
	if err != nil {
		return fmt.Errorf("initializing backend: %w", err)
	}
	defer backend.Close()

	eng := engine.New(backend, ledger, engine.Config{
		Strict: cfg.Translation.Strict,
		Logger: logger,
	})

	httpMW, err := buildAuthMiddleware(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing auth: %w", err)
	}

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}

	srv := transporthttp.NewServer(eng, httpMW,
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithMetricsPath(metricsPath),
		transporthttp.WithLogger(logger),
		transporthttp.WithReadiness(ledger.HealthCheck),
	)

	logger.Info("gateway configured",
		slog.String("backend", cfg.Backend.BaseURL),
		slog.String("storage", cfg.Storage.Type),
		slog.String("auth", cfg.Auth.Type),
		slog.Bool("strict", cfg.Translation.Strict))

	return srv.ListenAndServe()
}

func buildLedger(cfg *config.Config, logger *slog.Logger) (storage.UsageLedger, error) {
	switch cfg.Storage.Type {
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
	default:
		logger.Info("using in-memory usage ledger",
			slog.Int("max_size", cfg.Storage.MaxSize))
		return memory.New(cfg.Storage.MaxSize), nil
	}
}

// buildAuthMiddleware assembles the authenticator chain and rate limiter
// from configuration.
func buildAuthMiddleware(cfg *config.Config, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	var authenticators []auth.Authenticator

	switch cfg.Auth.Type {
	case "", "none":
		// Everyone is admitted as anonymous. Keeping the middleware in
		// place means usage records still get caller attribution.
		authenticators = append(authenticators, &noop.Authenticator{})
	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.Auth.APIKeys))
		for _, k := range cfg.Auth.APIKeys {
			entries = append(entries, apikey.RawKeyEntry{
				Key: k.Key,
				Identity: auth.Identity{
					Subject:     k.Subject,
					ServiceTier: k.ServiceTier,
				},
			})
		}
		authenticators = append(authenticators, apikey.New(entries))
		logger.Info("api key auth enabled", slog.Int("keys", len(entries)))
	case "jwt":
		authenticators = append(authenticators, jwt.New(jwt.Config{
			Issuer:   cfg.Auth.JWT.Issuer,
			Audience: cfg.Auth.JWT.Audience,
			JWKSURL:  cfg.Auth.JWT.JWKSURL,
		}))
		logger.Info("jwt auth enabled", slog.String("jwks_url", cfg.Auth.JWT.JWKSURL))
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Auth.Type)
	}

	var limiter auth.RateLimiter
	if cfg.Auth.RateLimit.Enabled {
		limiter = auth.NewInProcessLimiter(cfg.Auth.RateLimit.Tiers, cfg.Auth.RateLimit.DefaultRPM)
		logger.Info("rate limiting enabled",
			slog.Int("default_rpm", cfg.Auth.RateLimit.DefaultRPM),
			slog.Int("tiers", len(cfg.Auth.RateLimit.Tiers)))
	}

	chain := &auth.Chain{
		Authenticators:  authenticators,
		DefaultDecision: auth.No,
	}
	return auth.Middleware(chain, limiter, auth.DefaultBypassEndpoints), nil
}
