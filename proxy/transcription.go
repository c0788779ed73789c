package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	DefaultTranscriptionURL     = "https://api.openai.com/v1/audio/transcriptions"
	DefaultTranscriptionModel   = "whisper-1"
	DefaultTranscriptionTimeout = 60 * time.Second

	defaultAudioFilename = "recording.webm"
	defaultAudioType     = "audio/webm"
	maxTranscriptBytes   = 4 << 20
)

type TranscriptionConfig struct {
	APIKey  string
	URL     string
	Model   string
	Timeout time.Duration
}

// TranscriptionClient sends audio to an OpenAI-compatible transcription endpoint.
type TranscriptionClient struct {
	cfg    TranscriptionConfig
	client *http.Client
	log    logrus.FieldLogger
}

type TranscriptionOpt func(*TranscriptionClient)

func WithTranscriptionHTTPClient(c *http.Client) TranscriptionOpt {
	return func(t *TranscriptionClient) { t.client = c }
}

func WithTranscriptionLogger(l logrus.FieldLogger) TranscriptionOpt {
	return func(t *TranscriptionClient) { t.log = l }
}

func NewTranscriptionClient(cfg TranscriptionConfig, opts ...TranscriptionOpt) *TranscriptionClient {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.URL == "" {
		cfg.URL = DefaultTranscriptionURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultTranscriptionModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTranscriptionTimeout
	}
	t := &TranscriptionClient{cfg: cfg, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(t)
	}
	t.client = newBearerClient(t.client, cfg.APIKey, cfg.Timeout)
	return t
}

func (t *TranscriptionClient) Configured() bool { return t.cfg.APIKey != "" }

// Transcribe uploads the audio and returns the recognized text.
func (t *TranscriptionClient) Transcribe(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	if !t.Configured() {
		return "", ErrTranscriptionNotConfigured
	}
	if filename == "" {
		filename = defaultAudioFilename
	}
	if contentType == "" {
		contentType = defaultAudioType
	}

	payload, formType, err := encodeMultipart(
		map[string]string{"model": t.cfg.Model},
		formFile{field: "file", filename: filename, contentType: contentType, body: body},
	)
	if err != nil {
		return "", &RequestError{Op: "Transcription", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.URL, payload)
	if err != nil {
		return "", &RequestError{Op: "Transcription", Err: err}
	}
	req.Header.Set("Content-Type", formType)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", &RequestError{Op: "Transcription", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", &UpstreamError{Op: "Transcription", Status: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxTranscriptBytes))
	if err != nil {
		return "", &RequestError{Op: "Transcription", Err: err}
	}
	if !gjson.ValidBytes(raw) {
		return "", &RequestError{Op: "Transcription", Err: errors.New("upstream returned invalid JSON")}
	}
	// Whisper answers {"text": ...}; some compatible servers use "transcription".
	text := gjson.GetBytes(raw, "text").String()
	if text == "" {
		text = gjson.GetBytes(raw, "transcription").String()
	}
	t.log.WithField("chars", len(text)).Debug("audio transcribed")
	return text, nil
}
