package core

import "strings"

// Claims is the full verified claim set of an access token.
type Claims map[string]any

// String returns the string value of claim name, or "" when absent or not a string.
func (c Claims) String(name string) string {
	s, _ := c[name].(string)
	return s
}

// Email returns the email claim, falling back to user_metadata.email.
func (c Claims) Email() string {
	if e := c.String("email"); e != "" {
		return e
	}
	if md, ok := c["user_metadata"].(map[string]any); ok {
		if e, ok := md["email"].(string); ok {
			return e
		}
	}
	return ""
}

// ResolveSubject extracts the stable user identifier from verified claims.
func ResolveSubject(c Claims) (string, error) {
	sub := strings.TrimSpace(c.String("sub"))
	if sub == "" {
		return "", newError(KindMissingSubject, "", nil)
	}
	return sub, nil
}

// View is the identity summary returned by /me. Absent claims render as null.
type View struct {
	Sub   *string `json:"sub"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
	Aud   any     `json:"aud"`
	Iss   *string `json:"iss"`
}

func ClaimsView(c Claims) View {
	return View{
		Sub:   optional(c.String("sub")),
		Email: optional(c.Email()),
		Role:  optional(c.String("role")),
		Aud:   c["aud"],
		Iss:   optional(c.String("iss")),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
