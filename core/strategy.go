package core

import (
	"context"
	"errors"
	"fmt"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	jwxjwt "github.com/lestrrat-go/jwx/v2/jwt"
	jwtkit "github.com/watercooler-app/watercooler-api/jwt"
)

// strategy verifies a token whose header has already been decoded.
type strategy interface {
	verify(ctx context.Context, token string, h jwtkit.Header) (Claims, error)
}

// strategyFor picks the strategy for alg from the closed set the verifier supports.
func (v *Verifier) strategyFor(alg string) (strategy, error) {
	switch alg {
	case jwt.SigningMethodHS256.Alg():
		return hmacStrategy{v: v}, nil
	case jwt.SigningMethodRS256.Alg(), jwt.SigningMethodES256.Alg():
		if v.cfg.AsymmetricEnabled {
			return keySetStrategy{v: v}, nil
		}
	}
	return nil, newError(KindUnsupportedAlgorithm, fmt.Sprintf("Unsupported token alg: %s", alg), nil)
}

// hmacStrategy checks HS256 tokens against the shared project secret.
type hmacStrategy struct{ v *Verifier }

func (s hmacStrategy) verify(_ context.Context, token string, _ jwtkit.Header) (Claims, error) {
	secret := s.v.cfg.Secret
	if secret == "" {
		return nil, newError(KindConfiguration, "Missing SUPABASE_JWT_SECRET", nil)
	}
	claims := jwt.MapClaims{}
	_, err := s.v.hmacParser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, invalidToken(classifyJWTError(err), err)
	}
	return Claims(claims), nil
}

func classifyJWTError(err error) Reason {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ReasonMalformed
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return ReasonMissingClaim
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ReasonNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ReasonIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ReasonAudience
	default:
		return ReasonSignature
	}
}

// keySetStrategy checks RS256/ES256 tokens against the JWKS key matching the header kid.
type keySetStrategy struct{ v *Verifier }

var errMissingExp = errors.New("token is missing required claim: exp claim is required")

func (s keySetStrategy) verify(ctx context.Context, token string, h jwtkit.Header) (Claims, error) {
	if s.v.keys == nil {
		return nil, newError(KindConfiguration, "JWKS URL not configured", jwtkit.ErrNoKeySetURL)
	}
	m, err := s.v.keys.Get(ctx)
	if err != nil {
		return nil, keySourceError(err)
	}
	key, ok := m.LookupKey(h.Kid)
	if !ok {
		return nil, invalidToken(ReasonSignature, fmt.Errorf("no JWKS key for kid %q", h.Kid))
	}

	parsed, err := jwxjwt.Parse([]byte(token),
		jwxjwt.WithKey(jwa.SignatureAlgorithm(h.Alg), key),
		jwxjwt.WithValidate(false),
	)
	if err != nil {
		return nil, invalidToken(ReasonSignature, err)
	}
	if parsed.Expiration().IsZero() {
		return nil, invalidToken(ReasonMissingClaim, errMissingExp)
	}
	cfg := s.v.cfg
	// iat is informational; only exp and nbf bound the validity window.
	if err := jwxjwt.Validate(parsed,
		jwxjwt.WithResetValidators(true),
		jwxjwt.WithValidator(jwxjwt.IsExpirationValid()),
		jwxjwt.WithValidator(jwxjwt.IsNbfValid()),
		jwxjwt.WithIssuer(cfg.Issuer),
		jwxjwt.WithAudience(cfg.Audience),
		jwxjwt.WithAcceptableSkew(cfg.Skew),
		jwxjwt.WithClock(jwxjwt.ClockFunc(s.v.now)),
	); err != nil {
		return nil, invalidToken(classifyJWXError(err), err)
	}

	// Signature and registered claims are verified above; decode the payload
	// the same way the HMAC path does so both yield identical claim shapes.
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, invalidToken(ReasonMalformed, err)
	}
	return Claims(claims), nil
}

func classifyJWXError(err error) Reason {
	switch {
	case errors.Is(err, jwxjwt.ErrInvalidIssuer()):
		return ReasonIssuer
	case errors.Is(err, jwxjwt.ErrInvalidAudience()):
		return ReasonAudience
	case errors.Is(err, jwxjwt.ErrTokenExpired()):
		return ReasonExpired
	case errors.Is(err, jwxjwt.ErrTokenNotYetValid()):
		return ReasonNotYetValid
	default:
		return ReasonSignature
	}
}
