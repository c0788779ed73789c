package jwtkit_test

import (
	"context"
	"crypto/rsa"
	"strings"
	"testing"
	"time"

	jwtkit "github.com/watercooler-app/watercooler-api/jwt"
)

func TestPeekHeader(t *testing.T) {
	hs, err := jwtkit.NewHMACSigner([]byte("secret"), "hs-kid")
	if err != nil {
		t.Fatalf("NewHMACSigner: %v", err)
	}
	claims := jwtkit.SupabaseClaims("https://proj.example/auth", "authenticated", "u1", "", "", time.Minute)
	token, err := hs.Sign(context.Background(), claims)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	h, err := jwtkit.PeekHeader(token)
	if err != nil {
		t.Fatalf("PeekHeader: %v", err)
	}
	if h.Alg != "HS256" || h.Kid != "hs-kid" || h.Typ != "JWT" {
		t.Fatalf("unexpected header: %+v", h)
	}

	// A broken payload does not matter to the header peek.
	parts := strings.Split(token, ".")
	if _, err := jwtkit.PeekHeader(parts[0] + ".!!!." + parts[2]); err != nil {
		t.Fatalf("expected peek to ignore payload, got %v", err)
	}
}

func TestPeekHeader_Malformed(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"two parts":  "abc.def",
		"bad base64": "!!!.e30.sig",
		"not json":   "bm90LWpzb24.e30.sig",
		"four parts": "a.b.c.d",
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := jwtkit.PeekHeader(tok); err == nil {
				t.Fatalf("expected error for %q", tok)
			}
		})
	}
}

func TestStaticKeySource(t *testing.T) {
	rs, err := jwtkit.NewRSASigner(2048, "k1")
	if err != nil {
		t.Fatalf("NewRSASigner: %v", err)
	}
	src, err := jwtkit.NewStaticKeySource("RS256", map[string]*rsa.PublicKey{"k1": rs.PublicKey()})
	if err != nil {
		t.Fatalf("NewStaticKeySource: %v", err)
	}
	m, err := src.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, ok := m.LookupKey("k1"); !ok {
		t.Fatalf("expected key k1 in %v", m.KeyIDs())
	}
	if _, ok := m.LookupKey("missing"); ok {
		t.Fatalf("unexpected key for unknown kid")
	}
}

func TestMaterial_Fresh(t *testing.T) {
	var zero jwtkit.Material
	if zero.Fresh(time.Now(), time.Hour) {
		t.Fatalf("zero material must never be fresh")
	}
	if ids := zero.KeyIDs(); ids == nil || len(ids) != 0 {
		t.Fatalf("expected empty non-nil kid list, got %#v", ids)
	}

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m, err := jwtkit.ParseMaterial([]byte(`{"keys":[]}`), at)
	if err != nil {
		t.Fatalf("ParseMaterial: %v", err)
	}
	if !m.Fresh(at.Add(599*time.Second), 600*time.Second) {
		t.Fatalf("expected fresh just before ttl")
	}
	if m.Fresh(at.Add(600*time.Second), 600*time.Second) {
		t.Fatalf("expected stale at ttl")
	}
}
