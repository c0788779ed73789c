package ginutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/watercooler-app/watercooler-api/core"
	"github.com/watercooler-app/watercooler-api/profile"
	"github.com/watercooler-app/watercooler-api/proxy"
)

func detailOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body.Detail
}

func TestAbortWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"core", &core.Error{Kind: core.KindUnsupportedAlgorithm, Detail: "Unsupported token alg: HS512"}, 400, "Unsupported token alg: HS512"},
		{"core wrapped", fmt.Errorf("verify: %w", &core.Error{Kind: core.KindMissingSubject, Detail: "Missing sub in token"}), 401, "Missing sub in token"},
		{"no db", profile.ErrNotConfigured, 500, "DATABASE_URL not configured"},
		{"bad id", profile.ErrInvalidID, 400, "Subject is not a valid profile id"},
		{"proxy config", proxy.ErrStorageNotConfigured, 500, string(proxy.ErrStorageNotConfigured)},
		{"upstream", &proxy.UpstreamError{Op: "Upload", Status: 413, Body: "too big"}, 413, "Upload failed: too big"},
		{"request", &proxy.RequestError{Op: "Transcription", Err: errors.New("dial tcp")}, 500, "Transcription request failed: dial tcp"},
		{"unknown", errors.New("boom"), 500, "Internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			AbortWithError(c, tc.err)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d", w.Code, tc.status)
			}
			if got := detailOf(t, w); got != tc.detail {
				t.Fatalf("detail = %q, want %q", got, tc.detail)
			}
			if !c.IsAborted() {
				t.Fatalf("expected context aborted")
			}
		})
	}
}

type stubLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (s *stubLimiter) AllowNamed(bucket, key string) (bool, error) {
	s.keys = append(s.keys, bucket+"|"+key)
	return s.allow, s.err
}

func TestAllowNamed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Set(KeyUserID, "u1")

	if !AllowNamed(c, nil, RLTranscribe) {
		t.Fatalf("nil limiter must allow")
	}
	rl := &stubLimiter{allow: false}
	if AllowNamed(c, rl, RLTranscribe) {
		t.Fatalf("expected deny")
	}
	if rl.keys[0] != "transcribe|u1" {
		t.Fatalf("limiter keyed by %q", rl.keys[0])
	}
	if !AllowNamed(c, &stubLimiter{err: errors.New("redis down")}, RLTranscribe) {
		t.Fatalf("limiter errors must allow")
	}
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[string]struct {
		header string
		want   string
		ok     bool
	}{
		"bearer":       {"Bearer abc.def.ghi", "abc.def.ghi", true},
		"lowercase":    {"bearer abc", "abc", true},
		"extra spaces": {"  Bearer   abc  ", "abc", true},
		"missing":      {"", "", false},
		"basic":        {"Basic dXNlcg==", "", false},
		"no token":     {"Bearer ", "", false},
	}
	for name, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			c.Request.Header.Set("Authorization", tc.header)
		}
		got, ok := BearerToken(c)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("%s: got (%q, %v), want (%q, %v)", name, got, ok, tc.want, tc.ok)
		}
	}
}
