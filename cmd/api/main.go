package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-bidcalc/internal/bid"
	"github.com/noah-isme/backend-bidcalc/internal/config"
	"github.com/noah-isme/backend-bidcalc/internal/db"
	"github.com/noah-isme/backend-bidcalc/internal/feestore"
	"github.com/noah-isme/backend-bidcalc/internal/health"
	"github.com/noah-isme/backend-bidcalc/internal/lock"
	"github.com/noah-isme/backend-bidcalc/internal/obs"
	"github.com/noah-isme/backend-bidcalc/internal/ratelimit"
	"github.com/noah-isme/backend-bidcalc/internal/resilience"
	"github.com/noah-isme/backend-bidcalc/internal/security"
	"github.com/noah-isme/backend-bidcalc/internal/server"
)

const serviceName = "bidcalc-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("service", serviceName).Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "bidcalc")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	resilience.MustRegisterMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", false)
	shutdownTracer, err := obs.InitTracer(ctx, obs.TracingConfig{
		Enabled:       tracingEnabled,
		ServiceName:   serviceName,
		Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
		Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
		SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
		tracingEnabled = false
		shutdownTracer = func(context.Context) error { return nil }
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutdown tracer")
		}
	}()

	probes := map[string]health.Probe{}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = openRedis(ctx, cfg.RedisURL, metricsEnabled, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect redis")
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
		probes["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	var store feestore.Store
	if cfg.UsesPostgres() {
		if cfg.DBMigrateOnStart {
			if err := migrateOnStart(ctx, cfg.DatabaseURL, redisClient, logger); err != nil {
				logger.Fatal().Err(err).Msg("migrate database")
			}
		}
		pool, err := openPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect database")
		}
		defer pool.Close()
		probes["db"] = pool.Ping
		store = feestore.PGStore{DB: pool}
	} else {
		logger.Warn().Msg("DATABASE_URL not set; serving the built-in fee schedule")
		store = feestore.NewMemoryStore(feestore.DefaultSchedule())
	}

	if redisClient != nil {
		store = feestore.CachedStore{
			Next:    store,
			Cache:   feestore.NewCache(redisClient, cfg.FeeRulesCacheTTL),
			Breaker: resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("fee_rule_cache").WithLogger(logger),
			OnError: func(err error) {
				logger.Warn().Err(err).Msg("fee rule cache unavailable")
			},
		}
	}

	bidService, err := bid.NewService(bid.ServiceConfig{Store: store})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise bid service")
	}

	var (
		httpMetrics    *obs.HTTPMetrics
		metricsHandler http.Handler
	)
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
		metricsHandler = server.MetricsHandler(prometheus.DefaultGatherer)
	}

	opts := server.Options{
		Logger:         logger,
		Bid:            bid.NewHandler(bid.HandlerConfig{Service: bidService}),
		Health:         health.Handler{Probes: probes, Timeout: envDurationMillis("HEALTH_PROBE_TIMEOUT_MS", 500)},
		Metrics:        httpMetrics,
		MetricsHandler: metricsHandler,
		Tracing:        tracingEnabled,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		BodyLimit:      cfg.BodyLimitBytes,
		Headers: security.Headers{
			Enable:     cfg.SecurityHeaders,
			EnableHSTS: cfg.SecurityHSTS,
		},
		RateLimit: ratelimit.Config{
			Key:    ratelimit.KeyByClientIP("calculate:"),
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
		OnLimitErr: func(err error) {
			logger.Warn().Err(err).Msg("rate limiter unavailable")
		},
	}
	if redisClient != nil {
		opts.RateLimiter = ratelimit.SlidingWindow{Client: redisClient, Prefix: "bidcalc:ratelimit:"}
	}
	router := server.NewRouter(opts)

	if envBool("OBS_ENABLE_PPROF", false) {
		user := envOrDefault("OBS_PPROF_USER", "")
		pass := envOrDefault("OBS_PPROF_PASS", "")
		router.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("fee_store", cfg.FeeStore).Msg("server starting")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
		return
	case <-ctx.Done():
	}

	logger.Info().Msg("shutdown signal received")
	health.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return
	}
	logger.Info().Msg("server stopped")
}

// migrateOnStart applies pending migrations. With Redis available the run is
// guarded by a lock so replicas starting together do not race.
func migrateOnStart(ctx context.Context, databaseURL string, redisClient *redis.Client, logger zerolog.Logger) error {
	run := func(context.Context) error {
		version, err := db.Migrate(databaseURL)
		if err != nil {
			return err
		}
		logger.Info().Uint("version", version).Msg("database schema up to date")
		return nil
	}
	if redisClient == nil {
		return run(ctx)
	}
	locker := lock.Locker{Client: redisClient, Prefix: "bidcalc:lock:", RetryBackoff: 250 * time.Millisecond}
	lockCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	return locker.WithLock(lockCtx, "migrate", time.Minute, run)
}

func openPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{DBName: poolConfig.ConnConfig.Database}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = serviceName

	connectCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, err
	}
	err = resilience.Retry(connectCtx, 5, 500*time.Millisecond, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return pool.Ping(pingCtx)
	})
	if err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func openRedis(ctx context.Context, redisURL string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	ms := fallback
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil && parsed > 0 {
			ms = parsed
		}
	}
	return time.Duration(ms) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.Handle("/"+name, pprof.Handler(name))
	}
	return http.StripPrefix("/debug/pprof", mux)
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
