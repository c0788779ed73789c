package core

import (
	"errors"
	"fmt"
	"net/http"

	jwtkit "github.com/watercooler-app/watercooler-api/jwt"
)

// Kind classifies verification failures.
type Kind string

const (
	KindConfiguration        Kind = "configuration"
	KindMalformedToken       Kind = "malformed_token"
	KindUnsupportedAlgorithm Kind = "unsupported_algorithm"
	KindInvalidToken         Kind = "invalid_token"
	KindMissingSubject       Kind = "missing_subject"
	KindFetch                Kind = "fetch"
)

// Reason narrows an invalid_token failure. It is never exposed over HTTP.
type Reason string

const (
	ReasonSignature    Reason = "signature"
	ReasonExpired      Reason = "expired"
	ReasonNotYetValid  Reason = "not_yet_valid"
	ReasonIssuer       Reason = "issuer"
	ReasonAudience     Reason = "audience"
	ReasonMissingClaim Reason = "missing_claim"
	ReasonMalformed    Reason = "malformed"
)

// Error is returned by Verifier and ResolveSubject. Detail is the
// client-facing message.
type Error struct {
	Kind   Kind
	Reason Reason
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the per-kind sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Detail == "" && t.Err == nil && t.Kind == e.Kind
}

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindConfiguration, KindFetch:
		return http.StatusInternalServerError
	case KindUnsupportedAlgorithm:
		return http.StatusBadRequest
	default:
		return http.StatusUnauthorized
	}
}

var (
	ErrConfiguration        = &Error{Kind: KindConfiguration}
	ErrMalformedToken       = &Error{Kind: KindMalformedToken}
	ErrUnsupportedAlgorithm = &Error{Kind: KindUnsupportedAlgorithm}
	ErrInvalidToken         = &Error{Kind: KindInvalidToken}
	ErrMissingSubject       = &Error{Kind: KindMissingSubject}
	ErrFetch                = &Error{Kind: KindFetch}
)

var kindDetails = map[Kind]string{
	KindConfiguration:        "Auth is not configured on the server",
	KindMalformedToken:       "Malformed token header",
	KindUnsupportedAlgorithm: "Unsupported token alg",
	KindInvalidToken:         "Invalid token",
	KindMissingSubject:       "Missing sub in token",
	KindFetch:                "JWKS fetch failed",
}

func newError(kind Kind, detail string, err error) *Error {
	if detail == "" {
		detail = kindDetails[kind]
	}
	return &Error{Kind: kind, Detail: detail, Err: err}
}

func invalidToken(reason Reason, err error) *Error {
	return &Error{
		Kind:   KindInvalidToken,
		Reason: reason,
		Detail: fmt.Sprintf("Invalid token: %v", err),
		Err:    err,
	}
}

// keySourceError converts trust-material failures into verifier errors
// without masking them as token problems.
func keySourceError(err error) *Error {
	if errors.Is(err, jwtkit.ErrNoKeySetURL) {
		return newError(KindConfiguration, "JWKS URL not configured", err)
	}
	var fe *jwtkit.FetchError
	if errors.As(err, &fe) && fe.Unauthorized() {
		return newError(KindFetch, "Server cannot fetch JWKS (401). Check SUPABASE_ANON_KEY and JWKS URL.", err)
	}
	return newError(KindFetch, fmt.Sprintf("JWKS fetch failed: %v", err), err)
}

// StatusOf returns the HTTP status for err, or 0 when err is not a verifier error.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status()
	}
	return 0
}
