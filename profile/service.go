package profile

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// ErrNotConfigured is returned when no Store backs the service.
var ErrNotConfigured = errors.New("DATABASE_URL not configured")

// Service exposes profile operations keyed by token subject.
type Service struct {
	store Store
	log   logrus.FieldLogger
}

// NewService wraps store. A nil store yields a service whose every call
// fails with ErrNotConfigured.
func NewService(store Store, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{store: store, log: log}
}

func (s *Service) Get(ctx context.Context, subject string) (*Profile, error) {
	if s.store == nil {
		return nil, ErrNotConfigured
	}
	id, err := ParseID(subject)
	if err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, id)
}

// Upsert creates the caller's profile or applies the supplied fields to it.
func (s *Service) Upsert(ctx context.Context, subject string, f Fields) (*Profile, error) {
	if s.store == nil {
		return nil, ErrNotConfigured
	}
	id, err := ParseID(subject)
	if err != nil {
		return nil, err
	}
	p, created, err := s.store.Upsert(ctx, id, f)
	if err != nil {
		return nil, err
	}
	if created {
		s.log.WithField("profile_id", id).Info("profile created")
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, subject string, f Fields) (*Profile, error) {
	if s.store == nil {
		return nil, ErrNotConfigured
	}
	id, err := ParseID(subject)
	if err != nil {
		return nil, err
	}
	return s.store.Update(ctx, id, f)
}

// Ready checks the backing store.
func (s *Service) Ready(ctx context.Context) error {
	if s.store == nil {
		return ErrNotConfigured
	}
	return s.store.Ping(ctx)
}
