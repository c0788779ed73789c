package jwtkit

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// JWK minimal fields for RSA public keys.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n"` // base64url
	E   string `json:"e"` // base64url
}

type JWKS struct {
	Keys []JWK `json:"keys"`
}

// RSAPublicToJWK converts an RSA public key to a JWK.
func RSAPublicToJWK(pub *rsa.PublicKey, kid, alg string) JWK {
	n := base64URLEncode(pub.N)
	e := base64URLEncode(big.NewInt(int64(pub.E)))
	return JWK{Kty: "RSA", Use: "sig", Kid: kid, Alg: alg, N: n, E: e}
}

// ServeJWKS writes a JWKS document with an ETag so clients can revalidate cheaply.
func ServeJWKS(w http.ResponseWriter, r *http.Request, ks JWKS) {
	b, _ := json.Marshal(ks)
	sum := sha256.Sum256(b)
	etag := "\"" + hex.EncodeToString(sum[:]) + "\""

	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300, must-revalidate")
	w.Header().Set("ETag", etag)
	_, _ = w.Write(b)
}

func base64URLEncode(i *big.Int) string {
	b := i.Bytes()
	for len(b) > 0 && b[0] == 0x00 {
		b = b[1:]
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// Material is one fetched generation of trust material: the parsed key set,
// the raw document it came from, and when it was fetched.
type Material struct {
	Keys      jwk.Set
	Raw       []byte
	FetchedAt time.Time
}

// IsZero reports whether no key set has been loaded.
func (m Material) IsZero() bool { return m.Keys == nil }

// Fresh reports whether the material is younger than ttl at now.
func (m Material) Fresh(now time.Time, ttl time.Duration) bool {
	if m.IsZero() {
		return false
	}
	return now.Sub(m.FetchedAt) < ttl
}

// KeyIDs lists the kid of every key in the set, in document order.
func (m Material) KeyIDs() []string {
	if m.Keys == nil {
		return []string{}
	}
	out := make([]string, 0, m.Keys.Len())
	for i := 0; i < m.Keys.Len(); i++ {
		k, ok := m.Keys.Key(i)
		if !ok {
			continue
		}
		out = append(out, k.KeyID())
	}
	return out
}

// LookupKey returns the key with the given kid.
func (m Material) LookupKey(kid string) (jwk.Key, bool) {
	if m.Keys == nil || kid == "" {
		return nil, false
	}
	return m.Keys.LookupKeyID(kid)
}

// ParseMaterial parses a JWKS document into Material stamped with fetchedAt.
func ParseMaterial(raw []byte, fetchedAt time.Time) (Material, error) {
	set, err := jwk.Parse(raw)
	if err != nil {
		return Material{}, fmt.Errorf("parse jwks: %w", err)
	}
	return Material{Keys: set, Raw: raw, FetchedAt: fetchedAt}, nil
}
