package jwtkit

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"time"
)

// KeySource provides the current trust material for asymmetric verification.
type KeySource interface {
	Get(ctx context.Context) (Material, error)
}

// StaticKeySource serves a fixed key set. Useful for tests and for pinning keys
// when the JWKS endpoint is unreachable from a given environment.
type StaticKeySource struct {
	material Material
}

// NewStaticKeySource builds a source from RSA public keys keyed by kid.
func NewStaticKeySource(alg string, pubs map[string]*rsa.PublicKey) (*StaticKeySource, error) {
	ks := JWKS{Keys: make([]JWK, 0, len(pubs))}
	for kid, pub := range pubs {
		ks.Keys = append(ks.Keys, RSAPublicToJWK(pub, kid, alg))
	}
	raw, err := json.Marshal(ks)
	if err != nil {
		return nil, fmt.Errorf("marshal static jwks: %w", err)
	}
	m, err := ParseMaterial(raw, time.Now())
	if err != nil {
		return nil, err
	}
	return &StaticKeySource{material: m}, nil
}

func (s *StaticKeySource) Get(context.Context) (Material, error) { return s.material, nil }
