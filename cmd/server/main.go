package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	jwttoken "certverify/internal/jwt_token"
	"certverify/internal/platform/config"
	"certverify/internal/platform/httpserver"
	"certverify/internal/platform/logger"
	platformmetrics "certverify/internal/platform/metrics"
	"certverify/internal/platform/redis"
	"certverify/internal/ratelimit"
	"certverify/internal/textsource"
	"certverify/internal/verification"
	"certverify/internal/verification/handler"
	"certverify/internal/verification/metrics"
	"certverify/internal/verification/ports"
	authmw "certverify/pkg/platform/middleware/auth"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	policies, err := config.NewPolicyManager(cfg.PolicyFile, log)
	if err != nil {
		return err
	}
	policies.Watch()

	var source ports.TextSource = textsource.New(
		textsource.NewExecRunner(log),
		textsource.FromPlatform(cfg.OCR),
		textsource.WithLogger(log),
	)

	var cache healthChecker
	var limitStore ratelimit.Store
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		// Text caching is an optimization; run without it.
		log.Warn("redis unavailable, text cache disabled", "error", err)
	} else if rdb != nil {
		defer rdb.Close()
		source = textsource.NewCachedSource(source, rdb, cfg.Redis.CacheTTL, log)
		cache = rdb
		limitStore = ratelimit.NewRedisStore(rdb, "certverify:ratelimit:")
		log.Info("text cache enabled", "ttl", cfg.Redis.CacheTTL.String())
	}
	if limitStore == nil {
		mem := ratelimit.NewInMemoryStore()
		go sweep(ctx, mem, cfg.RateLimit.Window, log)
		limitStore = mem
	}

	svc := verification.NewService(source, policies,
		verification.WithLogger(log),
		verification.WithMetrics(metrics.New()),
	)
	h := handler.New(svc, log,
		handler.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
		handler.WithUploadDir(cfg.Server.UploadDir),
	)

	var validator authmw.JWTValidator
	if cfg.Server.RequireAuth {
		jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, jwttoken.Issuer, jwttoken.Audience)
		validator = jwttoken.NewJWTServiceAdapter(jwtService)
	}

	router := newRouter(routerDeps{
		verification: h,
		httpMetrics:  platformmetrics.New(),
		gatherer:     prometheus.DefaultGatherer,
		validator:    validator,
		limiter:      ratelimit.New(limitStore, cfg.RateLimit.Requests, cfg.RateLimit.Window, log),
		cache:        cache,
		logger:       log,
	})

	srv := httpserver.New(cfg.Server.Addr, router)
	log.Info("starting certverify", "addr", cfg.Server.Addr, "auth", cfg.Server.RequireAuth)
	return httpserver.Run(ctx, srv, cfg.Server.ShutdownTimeout, log)
}

// sweep drops idle rate limit windows until ctx is done.
func sweep(ctx context.Context, store *ratelimit.InMemoryStore, every time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(max(every, time.Minute))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				log.Debug("rate limit windows swept", "removed", n)
			}
		}
	}
}
