package core

import (
	"strings"
	"time"

	jwtkit "github.com/watercooler-app/watercooler-api/jwt"
)

const DefaultAudience = "authenticated"

// AcceptConfig configures verification of access tokens minted by the
// upstream auth provider (verify-only mode; this service never issues tokens).
//
// Every accepted token must carry exp. Supabase always sets it on access
// tokens, so a token without one did not come from the provider and is
// rejected rather than treated as valid forever. iat is not checked; exp and
// nbf alone bound the validity window, widened by Skew.
type AcceptConfig struct {
	Issuer   string
	Audience string // expected aud; tokens with a list-valued aud must contain it

	// Shared secret for HS256 tokens.
	Secret string

	// Asymmetric (RS256/ES256) verification against the provider's JWKS.
	// Off unless explicitly enabled.
	AsymmetricEnabled bool
	JWKSURL           string
	APIKey            string // sent as the "apikey" header on JWKS fetches
	CacheTTL          time.Duration
	FetchTimeout      time.Duration

	Skew time.Duration
}

// Normalize trims string fields and fills in defaults. Issuer and Secret are
// never defaulted; a missing value surfaces per request as a configuration error.
func (c AcceptConfig) Normalize() AcceptConfig {
	c.Issuer = strings.TrimSpace(c.Issuer)
	c.Audience = strings.TrimSpace(c.Audience)
	c.JWKSURL = strings.TrimSpace(c.JWKSURL)
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.Audience == "" {
		c.Audience = DefaultAudience
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = jwtkit.DefaultKeySetTTL
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = jwtkit.DefaultFetchTimeout
	}
	if c.Skew < 0 {
		c.Skew = 0
	}
	return c
}

// KeySetCacheConfig derives the trust-material cache settings.
func (c AcceptConfig) KeySetCacheConfig() jwtkit.KeySetCacheConfig {
	return jwtkit.KeySetCacheConfig{
		URL:          c.JWKSURL,
		APIKey:       c.APIKey,
		TTL:          c.CacheTTL,
		FetchTimeout: c.FetchTimeout,
	}
}
