// Package handlers holds the gin handlers mounted under /api/v1.
package handlers

import (
	"context"
	"io"

	jwtkit "github.com/watercooler-app/watercooler-api/jwt"
	"github.com/watercooler-app/watercooler-api/proxy"
)

// Uploader stores avatar images.
type Uploader interface {
	UploadAvatar(ctx context.Context, filename, contentType string, body io.Reader) (proxy.Object, error)
}

// Transcriber turns an audio recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename, contentType string, body io.Reader) (string, error)
}

// KeySetReader exposes the verifier's trust material.
type KeySetReader interface {
	KeySetMaterial(ctx context.Context) (jwtkit.Material, error)
}

// ReadyChecker reports whether a backing dependency is reachable.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}
