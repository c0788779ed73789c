package profile

import (
	"context"

	"github.com/google/uuid"
)

// Store persists profiles. Implementations must serialize writes per id so
// concurrent Upserts for the same id never produce two rows.
type Store interface {
	// FindByID returns ErrNotFound when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	// Upsert creates the profile or applies f to the existing one.
	// created reports whether a new row was inserted.
	Upsert(ctx context.Context, id uuid.UUID, f Fields) (p *Profile, created bool, err error)
	// Update applies f to an existing profile; ErrNotFound when absent.
	Update(ctx context.Context, id uuid.UUID, f Fields) (*Profile, error)
	Ping(ctx context.Context) error
}
