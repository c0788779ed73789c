package core

import (
	"context"
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	jwtkit "github.com/watercooler-app/watercooler-api/jwt"
)

// Verifier validates bearer tokens and returns their claims.
// It is safe for concurrent use.
type Verifier struct {
	cfg        AcceptConfig
	keys       jwtkit.KeySource
	events     AuthEventLogger
	now        func() time.Time
	hmacParser *jwt.Parser
}

// VerifierOpt configures a Verifier.
type VerifierOpt func(*Verifier)

// WithKeySource sets the trust material used by the asymmetric strategy.
// When unset and a JWKS URL is configured, a KeySetCache is created.
func WithKeySource(ks jwtkit.KeySource) VerifierOpt {
	return func(v *Verifier) { v.keys = ks }
}

func WithEventLogger(l AuthEventLogger) VerifierOpt {
	return func(v *Verifier) {
		if l != nil {
			v.events = l
		}
	}
}

// WithVerifierClock overrides time.Now for expiry checks.
func WithVerifierClock(now func() time.Time) VerifierOpt {
	return func(v *Verifier) { v.now = now }
}

func NewVerifier(cfg AcceptConfig, opts ...VerifierOpt) *Verifier {
	cfg = cfg.Normalize()
	v := &Verifier{
		cfg:    cfg,
		events: nopEventLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.keys == nil && cfg.JWKSURL != "" {
		v.keys = jwtkit.NewKeySetCache(cfg.KeySetCacheConfig())
	}
	v.hmacParser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Skew),
		jwt.WithTimeFunc(v.now),
	)
	return v
}

// KeySetMaterial returns the current trust material regardless of whether
// asymmetric verification is enabled. Failures are *Error values.
func (v *Verifier) KeySetMaterial(ctx context.Context) (jwtkit.Material, error) {
	if v.keys == nil {
		return jwtkit.Material{}, keySourceError(jwtkit.ErrNoKeySetURL)
	}
	m, err := v.keys.Get(ctx)
	if err != nil {
		return jwtkit.Material{}, keySourceError(err)
	}
	return m, nil
}

// Verify checks token and returns the full claim set. Failures are *Error
// values; every outcome is reported to the configured AuthEventLogger.
func (v *Verifier) Verify(ctx context.Context, token string) (Claims, error) {
	h, claims, err := v.verify(ctx, token)

	ev := AuthEvent{Issuer: v.cfg.Issuer, Algorithm: h.Alg, Err: err}
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			ev.Kind, ev.Reason = e.Kind, e.Reason
		}
	} else {
		ev.Subject = claims.String("sub")
	}
	_ = v.events.LogVerification(ctx, ev)

	return claims, err
}

func (v *Verifier) verify(ctx context.Context, token string) (jwtkit.Header, Claims, error) {
	if v.cfg.Issuer == "" {
		return jwtkit.Header{}, nil, newError(KindConfiguration, "", nil)
	}
	h, err := jwtkit.PeekHeader(token)
	if err != nil {
		return jwtkit.Header{}, nil, newError(KindMalformedToken, "", err)
	}
	s, err := v.strategyFor(h.Alg)
	if err != nil {
		return h, nil, err
	}
	claims, err := s.verify(ctx, token, h)
	if err != nil {
		return h, nil, err
	}
	return h, claims, nil
}
