// Package proxy forwards uploads to Supabase Storage and audio to the OpenAI
// transcription API, holding the upstream credentials server-side.
package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// ConfigError reports missing upstream credentials. Its text is client-facing.
type ConfigError string

func (e ConfigError) Error() string { return string(e) }

const (
	ErrStorageNotConfigured       ConfigError = "Supabase configuration missing on server (SUPABASE_SERVICE_ROLE/SUPABASE_URL)"
	ErrTranscriptionNotConfigured ConfigError = "OpenAI API key not configured on server (OPENAI_API_KEY)"
)

// UpstreamError is a >=400 response from the upstream service. Callers mirror Status.
type UpstreamError struct {
	Op     string // "Upload", "Transcription"
	Status int
	Body   string
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("%s failed: %s", e.Op, e.Body) }

// RequestError is a transport-level failure talking to the upstream.
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string { return fmt.Sprintf("%s request failed: %v", e.Op, e.Err) }
func (e *RequestError) Unwrap() error { return e.Err }

const maxErrorBody = 64 << 10

// newBearerClient returns an HTTP client that sends token as a bearer credential.
// base supplies the transport (tests inject one); nil uses http.DefaultClient.
func newBearerClient(base *http.Client, token string, timeout time.Duration) *http.Client {
	ctx := context.Background()
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	c := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	c.Timeout = timeout
	return c
}

// formFile is one file part of a multipart body.
type formFile struct {
	field       string
	filename    string
	contentType string
	body        io.Reader
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeMultipart writes fields then the file part and returns the body and its content type.
func encodeMultipart(fields map[string]string, file formFile) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(file.field), quoteEscaper.Replace(file.filename)))
	h.Set("Content-Type", file.contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file.body); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf, mw.FormDataContentType(), nil
}

func readErrorBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return string(b)
}
