package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	authgin "github.com/watercooler-app/watercooler-api/adapters/gin"
	"github.com/watercooler-app/watercooler-api/adapters/ginutil"
	"github.com/watercooler-app/watercooler-api/config"
	"github.com/watercooler-app/watercooler-api/core"
	"github.com/watercooler-app/watercooler-api/jobs"
	jwtkit "github.com/watercooler-app/watercooler-api/jwt"
	migrations "github.com/watercooler-app/watercooler-api/migrations/postgres"
	"github.com/watercooler-app/watercooler-api/profile"
	"github.com/watercooler-app/watercooler-api/proxy"
	"github.com/watercooler-app/watercooler-api/ratelimit"
	memorylimiter "github.com/watercooler-app/watercooler-api/ratelimit/memory"
	redislimiter "github.com/watercooler-app/watercooler-api/ratelimit/redis"
	redisstore "github.com/watercooler-app/watercooler-api/storage/redis"
)

const shutdownTimeout = 15 * time.Second

type flags struct {
	addr        string
	envFile     string
	migrate     bool
	memoryStore bool
	logLevel    string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "watercooler-api:", err)
		os.Exit(1)
	}
}

func run() error {
	var f flags
	fs := pflag.NewFlagSet("watercooler-api", pflag.ExitOnError)
	fs.StringVar(&f.addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	fs.StringVar(&f.envFile, "env-file", "", "dotenv file to load (default .env when present)")
	fs.BoolVar(&f.migrate, "migrate", true, "apply pending database migrations on start")
	fs.BoolVar(&f.memoryStore, "memory-store", false, "keep profiles in memory when DATABASE_URL is unset")
	fs.StringVar(&f.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(f.envFile)
	if err != nil {
		return err
	}
	if f.addr != "" {
		cfg.HTTPAddr = f.addr
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}

	store, closeStore, err := openStore(ctx, cfg, f, log)
	if err != nil {
		return err
	}
	defer closeStore()
	profiles := profile.NewService(store, log.WithField("component", "profile"))

	accept := cfg.Accept().Normalize()
	verifierOpts := []core.VerifierOpt{core.WithEventLogger(core.NewLogrusEventLogger(log.WithField("component", "auth")))}
	var keys *jwtkit.KeySetCache
	if accept.JWKSURL != "" {
		cacheOpts := []jwtkit.KeySetCacheOpt{jwtkit.WithLogger(log.WithField("component", "jwks"))}
		if rdb != nil {
			cacheOpts = append(cacheOpts, jwtkit.WithMaterialStore(redisstore.NewMaterialStore(rdb, "", accept.CacheTTL)))
		}
		keys = jwtkit.NewKeySetCache(accept.KeySetCacheConfig(), cacheOpts...)
		verifierOpts = append(verifierOpts, core.WithKeySource(keys))
	}
	verifier := core.NewVerifier(accept, verifierOpts...)
	if accept.Issuer == "" {
		log.Warn("SUPABASE_ISSUER is not set; every authenticated request will fail")
	}

	sched := jobs.NewScheduler(log.WithField("component", "jobs"))
	var limiter ginutil.RateLimiter
	if rdb != nil {
		limiter = redislimiter.New(rdb, ratelimit.DefaultLimits())
	} else {
		mem := memorylimiter.New(ratelimit.DefaultLimits())
		if err := sched.Add("ratelimit-sweep", "@every 5m", jobs.SweepJob(mem)); err != nil {
			return err
		}
		limiter = mem
	}
	if keys != nil && accept.AsymmetricEnabled && cfg.Auth.WarmSchedule != "" {
		warm := jobs.NewKeySetWarmup(keys, log.WithField("component", "jwks"))
		if err := sched.Add("jwks-warmup", cfg.Auth.WarmSchedule, warm); err != nil {
			return fmt.Errorf("AUTH_JWKS_WARM_SCHEDULE: %w", err)
		}
	}
	sched.Start()

	api := authgin.NewAPI(verifier).
		WithProfiles(profiles).
		WithStorage(proxy.NewStorageClient(cfg.StorageConfig(), proxy.WithStorageLogger(log.WithField("component", "storage")))).
		WithTranscriber(proxy.NewTranscriptionClient(cfg.TranscriptionConfig(), proxy.WithTranscriptionLogger(log.WithField("component", "transcription")))).
		WithRateLimiter(limiter).
		WithDebugRoutes(cfg.DebugRoutesEnabled()).
		WithCORS(cfg.CORSOrigins...).
		WithLogger(log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":       cfg.HTTPAddr,
			"env":        cfg.Env,
			"asymmetric": accept.AsymmetricEnabled,
			"debug":      cfg.DebugRoutesEnabled(),
		}).Info("watercooler-api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	sched.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func newLogger(cfg config.Config) (*logrus.Logger, error) {
	log := logrus.New()
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(lvl)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}

// openStore connects to Postgres when DATABASE_URL is set. Without it the
// service runs storeless (profile routes answer 500) unless --memory-store.
func openStore(ctx context.Context, cfg config.Config, f flags, log logrus.FieldLogger) (profile.Store, func(), error) {
	if cfg.Database.URL == "" {
		if f.memoryStore {
			log.Warn("DATABASE_URL not set; profiles are kept in memory")
			return profile.NewMemoryStore(), func() {}, nil
		}
		log.Warn("DATABASE_URL not set; profile routes are disabled")
		return nil, func() {}, nil
	}

	pcfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	schema := cfg.Database.Schema
	pcfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	if f.migrate {
		if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("create schema: %w", err)
		}
		sqldb := stdlib.OpenDBFromPool(pool)
		err := migrations.Run(ctx, sqldb, log.WithField("component", "migrations"))
		_ = sqldb.Close()
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	return profile.NewPostgresStore(pool, schema), pool.Close, nil
}
