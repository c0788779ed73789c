// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/watercooler-app/watercooler-api/core"
	"github.com/watercooler-app/watercooler-api/proxy"
)

type Config struct {
	HTTPAddr    string   `env:"HTTP_ADDR,default=:8000"`
	Env         string   `env:"ENV,default=development"`
	LogLevel    string   `env:"LOG_LEVEL,default=info"`
	LogFormat   string   `env:"LOG_FORMAT,default=text"`
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:3000"`
	DebugRoutes string   `env:"DEBUG_ROUTES"`

	Auth     Auth
	Database Database
	Storage  Storage
	OpenAI   OpenAI

	RedisURL string `env:"REDIS_URL"`
}

// Auth holds the token acceptance settings. Nothing here is defaulted that
// would let a misconfigured server accept tokens.
type Auth struct {
	Issuer            string        `env:"SUPABASE_ISSUER"`
	Audience          string        `env:"SUPABASE_AUDIENCE,default=authenticated"`
	JWKSURL           string        `env:"SUPABASE_JWKS_URL"`
	AnonKey           string        `env:"SUPABASE_ANON_KEY"`
	JWTSecret         string        `env:"SUPABASE_JWT_SECRET"`
	AsymmetricEnabled bool          `env:"AUTH_ASYMMETRIC_ENABLED,default=false,strict"`
	CacheTTL          time.Duration `env:"AUTH_JWKS_CACHE_TTL,default=10m,strict"`
	FetchTimeout      time.Duration `env:"AUTH_JWKS_FETCH_TIMEOUT,default=8s,strict"`
	ClockSkew         time.Duration `env:"AUTH_CLOCK_SKEW,default=0s,strict"`
	WarmSchedule      string        `env:"AUTH_JWKS_WARM_SCHEDULE"`
}

type Database struct {
	URL    string `env:"DATABASE_URL"`
	Schema string `env:"DATABASE_SCHEMA,default=public"`
}

type Storage struct {
	SupabaseURL       string `env:"SUPABASE_URL"`
	PublicSupabaseURL string `env:"NEXT_PUBLIC_SUPABASE_URL"`
	ServiceRole       string `env:"SUPABASE_SERVICE_ROLE"`
	AvatarBucket      string `env:"SUPABASE_AVATAR_BUCKET,default=avatars"`
}

type OpenAI struct {
	APIKey           string `env:"OPENAI_API_KEY"`
	TranscriptionURL string `env:"OPENAI_TRANSCRIPTION_URL"`
	Model            string `env:"OPENAI_TRANSCRIPTION_MODEL,default=whisper-1"`
}

// Load reads envFile (".env" when empty, where a missing file is fine) into
// the process environment without overriding existing variables, then decodes it.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	} else if err := godotenv.Load(envFile); err != nil {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}
	return FromEnv()
}

// FromEnv decodes the current environment.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	cfg.CORSOrigins = trimAll(cfg.CORSOrigins)
	if cfg.DebugRoutes != "" {
		if _, err := strconv.ParseBool(cfg.DebugRoutes); err != nil {
			return Config{}, fmt.Errorf("decode environment: DEBUG_ROUTES: %w", err)
		}
	}
	return cfg, nil
}

// Accept returns the verifier configuration.
func (c Config) Accept() core.AcceptConfig {
	return core.AcceptConfig{
		Issuer:            c.Auth.Issuer,
		Audience:          c.Auth.Audience,
		Secret:            c.Auth.JWTSecret,
		AsymmetricEnabled: c.Auth.AsymmetricEnabled,
		JWKSURL:           c.Auth.JWKSURL,
		APIKey:            c.Auth.AnonKey,
		CacheTTL:          c.Auth.CacheTTL,
		FetchTimeout:      c.Auth.FetchTimeout,
		Skew:              c.Auth.ClockSkew,
	}
}

// StorageConfig returns the avatar upload settings. SUPABASE_URL wins over
// NEXT_PUBLIC_SUPABASE_URL.
func (c Config) StorageConfig() proxy.StorageConfig {
	base := c.Storage.SupabaseURL
	if base == "" {
		base = c.Storage.PublicSupabaseURL
	}
	return proxy.StorageConfig{
		BaseURL:    base,
		ServiceKey: c.Storage.ServiceRole,
		Bucket:     c.Storage.AvatarBucket,
	}
}

func (c Config) TranscriptionConfig() proxy.TranscriptionConfig {
	return proxy.TranscriptionConfig{
		APIKey: c.OpenAI.APIKey,
		URL:    c.OpenAI.TranscriptionURL,
		Model:  c.OpenAI.Model,
	}
}

// Production reports whether ENV names a production deployment.
func (c Config) Production() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}

// DebugRoutesEnabled reports whether the /debug routes are mounted. With
// DEBUG_ROUTES unset they are on everywhere except production.
func (c Config) DebugRoutesEnabled() bool {
	if c.DebugRoutes == "" {
		return !c.Production()
	}
	on, _ := strconv.ParseBool(c.DebugRoutes)
	return on
}

func trimAll(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
