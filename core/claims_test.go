package core_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/watercooler-app/watercooler-api/core"
)

func TestResolveSubject(t *testing.T) {
	sub, err := core.ResolveSubject(core.Claims{"sub": "abc"})
	if err != nil || sub != "abc" {
		t.Fatalf("got %q, %v", sub, err)
	}
	for name, c := range map[string]core.Claims{
		"absent":     {},
		"empty":      {"sub": ""},
		"non-string": {"sub": 42.0},
	} {
		_, err := core.ResolveSubject(c)
		if !errors.Is(err, core.ErrMissingSubject) {
			t.Fatalf("%s: expected ErrMissingSubject, got %v", name, err)
		}
		if err.Error() != "Missing sub in token" || core.StatusOf(err) != 401 {
			t.Fatalf("%s: unexpected %q / %d", name, err.Error(), core.StatusOf(err))
		}
	}
}

func TestClaimsView(t *testing.T) {
	c := core.Claims{
		"sub":           "u1",
		"aud":           "authenticated",
		"iss":           "https://proj.example/auth",
		"user_metadata": map[string]any{"email": "meta@example.com"},
	}
	b, err := json.Marshal(core.ClaimsView(c))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"sub":"u1","email":"meta@example.com","role":null,"aud":"authenticated","iss":"https://proj.example/auth"}`
	if string(b) != want {
		t.Fatalf("got %s\nwant %s", b, want)
	}

	c["email"] = "top@example.com"
	if v := core.ClaimsView(c); v.Email == nil || *v.Email != "top@example.com" {
		t.Fatalf("expected top-level email to win")
	}
}

func TestStatusOf(t *testing.T) {
	if core.StatusOf(errors.New("x")) != 0 {
		t.Fatalf("plain errors have no status")
	}
	if core.StatusOf(core.ErrFetch) != 500 || core.StatusOf(core.ErrUnsupportedAlgorithm) != 400 {
		t.Fatalf("unexpected sentinel statuses")
	}
}
