package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultAvatarBucket  = "avatars"
	DefaultUploadTimeout = 30 * time.Second
)

type StorageConfig struct {
	BaseURL    string // Supabase project URL
	ServiceKey string // service-role key; sent as bearer and apikey
	Bucket     string
	Timeout    time.Duration
}

// Object is a stored file and its public URL.
type Object struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// StorageClient uploads files into a public Supabase Storage bucket.
type StorageClient struct {
	cfg    StorageConfig
	client *http.Client
	now    func() time.Time
	log    logrus.FieldLogger
}

type StorageOpt func(*StorageClient)

// WithStorageHTTPClient sets the base client whose transport carries requests.
func WithStorageHTTPClient(c *http.Client) StorageOpt {
	return func(s *StorageClient) { s.client = c }
}

func WithStorageLogger(l logrus.FieldLogger) StorageOpt {
	return func(s *StorageClient) { s.log = l }
}

func NewStorageClient(cfg StorageConfig, opts ...StorageOpt) *StorageClient {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.ServiceKey = strings.TrimSpace(cfg.ServiceKey)
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultAvatarBucket
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultUploadTimeout
	}
	s := &StorageClient{cfg: cfg, now: time.Now, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	s.client = newBearerClient(s.client, cfg.ServiceKey, cfg.Timeout)
	return s
}

// Configured reports whether both the project URL and the service key are set.
func (s *StorageClient) Configured() bool {
	return s.cfg.BaseURL != "" && s.cfg.ServiceKey != ""
}

// ObjectKey builds "<uuid>-<unix-ms>.<ext>" from the client filename.
func ObjectKey(filename string, now time.Time) string {
	return fmt.Sprintf("%s-%d.%s", uuid.NewString(), now.UnixMilli(), extension(filename))
}

func extension(filename string) string {
	ext := strings.TrimPrefix(path.Ext(strings.TrimSpace(filename)), ".")
	if ext == "" {
		return "jpg"
	}
	return ext
}

// UploadAvatar stores body under a fresh object key and returns its public URL.
func (s *StorageClient) UploadAvatar(ctx context.Context, filename, contentType string, body io.Reader) (Object, error) {
	if !s.Configured() {
		return Object{}, ErrStorageNotConfigured
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := ObjectKey(filename, s.now())

	payload, formType, err := encodeMultipart(nil, formFile{field: "file", filename: key, contentType: contentType, body: body})
	if err != nil {
		return Object{}, fmt.Errorf("encode upload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL("", key), payload)
	if err != nil {
		return Object{}, &RequestError{Op: "Upload", Err: err}
	}
	req.Header.Set("Content-Type", formType)
	req.Header.Set("apikey", s.cfg.ServiceKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return Object{}, &RequestError{Op: "Upload", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Object{}, &UpstreamError{Op: "Upload", Status: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	s.log.WithFields(logrus.Fields{"bucket": s.cfg.Bucket, "key": key}).Debug("avatar uploaded")
	return Object{URL: s.objectURL("public", key), Key: key}, nil
}

func (s *StorageClient) objectURL(visibility, key string) string {
	elems := []string{"storage", "v1", "object"}
	if visibility != "" {
		elems = append(elems, visibility)
	}
	elems = append(elems, s.cfg.Bucket, key)
	u, err := url.JoinPath(s.cfg.BaseURL, elems...)
	if err != nil {
		return s.cfg.BaseURL + "/" + strings.Join(elems, "/")
	}
	return u
}
