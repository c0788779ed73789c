package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var managed = []string{
	"HTTP_ADDR", "ENV", "LOG_LEVEL", "LOG_FORMAT", "CORS_ALLOWED_ORIGINS", "DEBUG_ROUTES",
	"SUPABASE_ISSUER", "SUPABASE_AUDIENCE", "SUPABASE_JWKS_URL", "SUPABASE_ANON_KEY", "SUPABASE_JWT_SECRET",
	"AUTH_ASYMMETRIC_ENABLED", "AUTH_JWKS_CACHE_TTL", "AUTH_JWKS_FETCH_TIMEOUT", "AUTH_CLOCK_SKEW",
	"AUTH_JWKS_WARM_SCHEDULE", "DATABASE_URL", "DATABASE_SCHEMA", "REDIS_URL",
	"SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL", "SUPABASE_SERVICE_ROLE", "SUPABASE_AVATAR_BUCKET",
	"OPENAI_API_KEY", "OPENAI_TRANSCRIPTION_URL", "OPENAI_TRANSCRIPTION_MODEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range managed {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.HTTPAddr != ":8000" || cfg.LogLevel != "info" || !cfg.DebugRoutesEnabled() {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected origins: %v", cfg.CORSOrigins)
	}
	if cfg.Auth.Audience != "authenticated" || cfg.Auth.AsymmetricEnabled {
		t.Fatalf("unexpected auth defaults: %+v", cfg.Auth)
	}
	if cfg.Auth.CacheTTL != 10*time.Minute || cfg.Auth.FetchTimeout != 8*time.Second || cfg.Auth.ClockSkew != 0 {
		t.Fatalf("unexpected durations: %+v", cfg.Auth)
	}
	if cfg.Auth.Issuer != "" || cfg.Auth.JWTSecret != "" {
		t.Fatalf("auth secrets must never be defaulted")
	}
	if cfg.Database.Schema != "public" || cfg.Storage.AvatarBucket != "avatars" || cfg.OpenAI.Model != "whisper-1" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example; https://b.example")
	t.Setenv("DEBUG_ROUTES", "false")
	t.Setenv("SUPABASE_ISSUER", "https://proj.supabase.co/auth/v1")
	t.Setenv("SUPABASE_JWT_SECRET", "s3cret")
	t.Setenv("AUTH_ASYMMETRIC_ENABLED", "true")
	t.Setenv("AUTH_JWKS_CACHE_TTL", "90s")
	t.Setenv("AUTH_CLOCK_SKEW", "5s")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %q", cfg.CORSOrigins)
	}
	if cfg.DebugRoutesEnabled() {
		t.Fatalf("expected debug routes off")
	}
	acc := cfg.Accept()
	if acc.Issuer != "https://proj.supabase.co/auth/v1" || acc.Secret != "s3cret" || !acc.AsymmetricEnabled {
		t.Fatalf("unexpected accept config: %+v", acc)
	}
	if acc.CacheTTL != 90*time.Second || acc.Skew != 5*time.Second {
		t.Fatalf("unexpected accept durations: %+v", acc)
	}
}

func TestFromEnv_BadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_JWKS_CACHE_TTL", "ten minutes")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for malformed duration")
	}
}

func TestStorageConfig_URLFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEXT_PUBLIC_SUPABASE_URL", "https://public.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE", "role")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if got := cfg.StorageConfig(); got.BaseURL != "https://public.supabase.co" || got.ServiceKey != "role" || got.Bucket != "avatars" {
		t.Fatalf("unexpected storage config: %+v", got)
	}

	t.Setenv("SUPABASE_URL", "https://private.supabase.co")
	cfg, _ = FromEnv()
	if got := cfg.StorageConfig().BaseURL; got != "https://private.supabase.co" {
		t.Fatalf("SUPABASE_URL should win, got %q", got)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides variables that exist, even empty ones
	os.Unsetenv("OPENAI_API_KEY")
	os.Unsetenv("HTTP_ADDR")
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("OPENAI_API_KEY=sk-test\nHTTP_ADDR=:9999\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-test" || cfg.HTTPAddr != ":9999" {
		t.Fatalf("env file not applied: %+v", cfg)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected error for missing explicit env file")
	}
}

func TestDebugRoutes_ProductionDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.DebugRoutesEnabled() {
		t.Fatalf("debug routes must default off in production")
	}

	t.Setenv("DEBUG_ROUTES", "true")
	if cfg, err = FromEnv(); err != nil || !cfg.DebugRoutesEnabled() {
		t.Fatalf("explicit DEBUG_ROUTES=true: enabled=%v err=%v", cfg.DebugRoutesEnabled(), err)
	}

	t.Setenv("DEBUG_ROUTES", "maybe")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for unparsable DEBUG_ROUTES")
	}
}

func TestProduction(t *testing.T) {
	if !(Config{Env: "Production"}).Production() || (Config{Env: "development"}).Production() {
		t.Fatalf("unexpected Production()")
	}
}
