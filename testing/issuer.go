// Package testing provides utilities for testing code that verifies
// Supabase-style access tokens. It runs a mock issuer that serves a JWKS
// document and signs tokens with either the shared HS256 secret or an RSA key
// published in that JWKS, so tests never need a real auth server.
//
// Example usage:
//
//	issuer := testing.NewTestIssuer()
//	defer issuer.Close()
//
//	cfg := core.AcceptConfig{Issuer: issuer.Issuer(), Audience: issuer.Audience(), Secret: issuer.Secret()}
//	token := issuer.CreateToken("11111111-1111-1111-1111-111111111111", "test@example.com")
package testing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	jwtkit "github.com/watercooler-app/watercooler-api/jwt"
)

const (
	DefaultAudience = "authenticated"
	DefaultSecret   = "super-secret-jwt-token-with-at-least-32-characters-long"

	jwksPath = "/auth/v1/.well-known/jwks.json"
)

// TestIssuer mimics a Supabase Auth project for tests.
type TestIssuer struct {
	server   *httptest.Server
	hmac     *jwtkit.HMACSigner
	rsa      *jwtkit.RSASigner
	secret   string
	audience string

	fetches atomic.Int64

	mu         sync.Mutex
	status     int
	apiKey     string
	lastAPIKey string
}

// NewTestIssuer creates an issuer with the default audience and secret.
// Call Close() when done to shut down the test server.
func NewTestIssuer() *TestIssuer {
	return NewTestIssuerWith(DefaultAudience, DefaultSecret)
}

// NewTestIssuerWith creates an issuer with a specific audience and HS256 secret.
func NewTestIssuerWith(audience, secret string) *TestIssuer {
	hs, err := jwtkit.NewHMACSigner([]byte(secret), "")
	if err != nil {
		panic("failed to create HMAC signer: " + err.Error())
	}
	rs, err := jwtkit.NewRSASigner(2048, "test-key-1")
	if err != nil {
		panic("failed to create RSA signer: " + err.Error())
	}

	ti := &TestIssuer{
		hmac:     hs,
		rsa:      rs,
		secret:   secret,
		audience: audience,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(jwksPath, ti.handleJWKS)

	ti.server = httptest.NewServer(mux)
	return ti
}

// URL returns the base URL of the test server (the Supabase project URL).
func (ti *TestIssuer) URL() string { return ti.server.URL }

// Issuer returns the iss value stamped on minted tokens.
func (ti *TestIssuer) Issuer() string { return ti.server.URL + "/auth/v1" }

// JWKSURL returns the URL of the served key set.
func (ti *TestIssuer) JWKSURL() string { return ti.server.URL + jwksPath }

func (ti *TestIssuer) Audience() string { return ti.audience }
func (ti *TestIssuer) Secret() string   { return ti.secret }

// KID returns the key id of the RSA signing key published in the JWKS.
func (ti *TestIssuer) KID() string { return ti.rsa.KID() }

// Fetches returns how many times the JWKS endpoint has been hit.
func (ti *TestIssuer) Fetches() int { return int(ti.fetches.Load()) }

// SetJWKSStatus makes the JWKS endpoint answer with status instead of the key set.
// Pass 0 or 200 to restore normal behavior.
func (ti *TestIssuer) SetJWKSStatus(status int) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.status = status
}

// RequireAPIKey makes the JWKS endpoint answer 401 unless the apikey header equals key.
func (ti *TestIssuer) RequireAPIKey(key string) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.apiKey = key
}

// LastAPIKey returns the apikey header of the most recent JWKS request.
func (ti *TestIssuer) LastAPIKey() string {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return ti.lastAPIKey
}

// Close shuts down the test server.
func (ti *TestIssuer) Close() {
	if ti.server != nil {
		ti.server.Close()
	}
}

func (ti *TestIssuer) handleJWKS(w http.ResponseWriter, r *http.Request) {
	ti.fetches.Add(1)

	ti.mu.Lock()
	status, want := ti.status, ti.apiKey
	ti.lastAPIKey = r.Header.Get("apikey")
	got := ti.lastAPIKey
	ti.mu.Unlock()

	if want != "" && got != want {
		http.Error(w, `{"message":"Invalid API key"}`, http.StatusUnauthorized)
		return
	}
	if status != 0 && status != http.StatusOK {
		http.Error(w, http.StatusText(status), status)
		return
	}
	jwk := jwtkit.RSAPublicToJWK(ti.rsa.PublicKey(), ti.rsa.KID(), ti.rsa.Algorithm())
	jwtkit.ServeJWKS(w, r, jwtkit.JWKS{Keys: []jwtkit.JWK{jwk}})
}

// Claims returns the default claim set for subject/email; callers may mutate it before signing.
func (ti *TestIssuer) Claims(subject, email string) jwt.MapClaims {
	return jwtkit.SupabaseClaims(ti.Issuer(), ti.audience, subject, email, "authenticated", time.Hour)
}

// CreateToken creates an HS256 token signed with the shared secret.
func (ti *TestIssuer) CreateToken(subject, email string) string {
	return ti.CreateTokenWithClaims(subject, email, nil)
}

// CreateTokenWithClaims creates an HS256 token with extra claims merged over the defaults.
// A nil value in extra removes that claim.
func (ti *TestIssuer) CreateTokenWithClaims(subject, email string, extra map[string]any) string {
	return ti.Sign(ti.hmac, merge(ti.Claims(subject, email), extra))
}

// CreateExpiredToken creates an HS256 token that expired an hour ago.
func (ti *TestIssuer) CreateExpiredToken(subject, email string) string {
	now := time.Now()
	return ti.CreateTokenWithClaims(subject, email, map[string]any{
		"iat": now.Add(-2 * time.Hour).Unix(),
		"exp": now.Add(-time.Hour).Unix(),
	})
}

// CreateRS256Token creates a token signed with the RSA key published in the JWKS.
func (ti *TestIssuer) CreateRS256Token(subject, email string, extra map[string]any) string {
	return ti.Sign(ti.rsa, merge(ti.Claims(subject, email), extra))
}

// Sign signs claims with an arbitrary signer.
func (ti *TestIssuer) Sign(s jwtkit.Signer, claims jwt.MapClaims) string {
	token, err := s.Sign(context.Background(), claims)
	if err != nil {
		panic("failed to sign token: " + err.Error())
	}
	return token
}

func merge(claims jwt.MapClaims, extra map[string]any) jwt.MapClaims {
	for k, v := range extra {
		if v == nil {
			delete(claims, k)
			continue
		}
		claims[k] = v
	}
	return claims
}
