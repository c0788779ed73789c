package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	jwtkit "github.com/watercooler-app/watercooler-api/jwt"
)

// MaterialStore shares the last fetched JWKS between instances.
// It implements jwtkit.MaterialStore.
type MaterialStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

type storedMaterial struct {
	Raw       json.RawMessage `json:"raw"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// NewMaterialStore creates a store under key. ttl bounds how long Redis keeps
// the entry; freshness is still judged from the stored fetch time.
func NewMaterialStore(rdb *redis.Client, key string, ttl time.Duration) *MaterialStore {
	if key == "" {
		key = "watercooler:jwks"
	}
	if ttl <= 0 {
		ttl = jwtkit.DefaultKeySetTTL
	}
	return &MaterialStore{rdb: rdb, key: key, ttl: ttl}
}

func (s *MaterialStore) Save(ctx context.Context, m jwtkit.Material) error {
	b, err := json.Marshal(storedMaterial{Raw: m.Raw, FetchedAt: m.FetchedAt})
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key, b, s.ttl).Err()
}

func (s *MaterialStore) Load(ctx context.Context) (jwtkit.Material, bool, error) {
	val, err := s.rdb.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return jwtkit.Material{}, false, nil
	}
	if err != nil {
		return jwtkit.Material{}, false, err
	}
	var sm storedMaterial
	if err := json.Unmarshal(val, &sm); err != nil {
		return jwtkit.Material{}, false, err
	}
	m, err := jwtkit.ParseMaterial(sm.Raw, sm.FetchedAt)
	if err != nil {
		return jwtkit.Material{}, false, err
	}
	return m, true, nil
}

func (s *MaterialStore) Del(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}
