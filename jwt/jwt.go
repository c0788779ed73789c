package jwtkit

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Signer issues signed JWTs. The service itself only verifies tokens; signers
// exist so tests and local tooling can mint tokens shaped like the upstream issuer's.
type Signer interface {
	// Algorithm returns the JWS algorithm (e.g., HS256, RS256).
	Algorithm() string
	// KID returns current key id, empty when the signer does not set one.
	KID() string
	// Sign creates a signed JWT with provided claims.
	Sign(ctx context.Context, claims jwt.MapClaims) (token string, err error)
}

// HMACSigner signs HS256 tokens with a shared secret.
type HMACSigner struct {
	secret []byte
	kid    string
}

func NewHMACSigner(secret []byte, kid string) (*HMACSigner, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty hmac secret")
	}
	return &HMACSigner{secret: secret, kid: kid}, nil
}

func (s *HMACSigner) Algorithm() string { return jwt.SigningMethodHS256.Alg() }
func (s *HMACSigner) KID() string       { return s.kid }

func (s *HMACSigner) Sign(_ context.Context, claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if s.kid != "" {
		token.Header["kid"] = s.kid
	}
	return token.SignedString(s.secret)
}

// Minimal in-memory RSA signer for tests and dev tooling.
type RSASigner struct {
	key *rsa.PrivateKey
	kid string
}

func NewRSASigner(bits int, kid string) (*RSASigner, error) {
	if bits == 0 {
		bits = 2048
	}
	k, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return &RSASigner{key: k, kid: kid}, nil
}

func (s *RSASigner) Algorithm() string         { return jwt.SigningMethodRS256.Alg() }
func (s *RSASigner) KID() string               { return s.kid }
func (s *RSASigner) PublicKey() *rsa.PublicKey { return &s.key.PublicKey }

func (s *RSASigner) Sign(_ context.Context, claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.kid
	return token.SignedString(s.key)
}

// Header is the subset of the JOSE header the verifier branches on.
type Header struct {
	Alg string `json:"alg"`
	Kid string `json:"kid,omitempty"`
	Typ string `json:"typ,omitempty"`
}

// PeekHeader decodes the JOSE header of a compact JWS without verifying anything.
// Only the header segment is inspected; a token with a garbage payload still peeks fine.
func PeekHeader(token string) (Header, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return Header{}, errors.New("token contains an invalid number of segments")
	}
	raw, err := jwt.NewParser().DecodeSegment(parts[0])
	if err != nil {
		return Header{}, fmt.Errorf("could not base64 decode header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(raw, &h); err != nil {
		return Header{}, fmt.Errorf("could not JSON decode header: %w", err)
	}
	return h, nil
}

// SupabaseClaims builds the registered claims plus the fields Supabase Auth puts in access tokens.
func SupabaseClaims(issuer, audience, subject, email, role string, ttl time.Duration) jwt.MapClaims {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": issuer,
		"aud": audience,
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if email != "" {
		claims["email"] = email
	}
	if role != "" {
		claims["role"] = role
	}
	return claims
}
