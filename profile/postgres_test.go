package profile

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	migrations "github.com/watercooler-app/watercooler-api/migrations/postgres"
)

// Runs against a real database only when TEST_DATABASE_URL is set.
func newTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	sqldb := stdlib.OpenDBFromPool(pool)
	defer sqldb.Close()
	if err := migrations.Run(ctx, sqldb, logrus.New()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewPostgresStore(pool, "public")
}

func TestPostgresStore_Lifecycle(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()
	id := uuid.New()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if _, err := s.FindByID(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Update(ctx, id, Fields{Headline: str("x")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Update, got %v", err)
	}

	p, created, err := s.Upsert(ctx, id, Fields{FullName: str("Ada"), GoodAt: Some("Go")})
	if err != nil || !created {
		t.Fatalf("Upsert: created=%v err=%v", created, err)
	}
	if p.Headline != "" || len(p.AudioURLs) != 0 {
		t.Fatalf("unexpected defaults: %+v", p)
	}

	urls := []string{"https://cdn.example/a.webm"}
	p, created, err = s.Upsert(ctx, id, Fields{Headline: str("Engineer"), AudioURLs: Some(urls)})
	if err != nil || created {
		t.Fatalf("second Upsert: created=%v err=%v", created, err)
	}
	if p.FullName != "Ada" || p.Headline != "Engineer" || p.GoodAt == nil || *p.GoodAt != "Go" {
		t.Fatalf("partial upsert lost fields: %+v", p)
	}
	if len(p.AudioURLs) != 1 || p.AudioURLs[0] != urls[0] {
		t.Fatalf("audio_urls = %v", p.AudioURLs)
	}

	p, err = s.Update(ctx, id, Fields{Location: Some("Lisbon")})
	if err != nil || p.Location == nil || *p.Location != "Lisbon" || p.Headline != "Engineer" {
		t.Fatalf("Update = %+v, %v", p, err)
	}
	if p.UpdatedAt.Before(p.CreatedAt) {
		t.Fatalf("updated_at before created_at")
	}
}

func TestPostgresStore_ConcurrentUpsert(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()
	id := uuid.New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, c, err := s.Upsert(ctx, id, Fields{FullName: str("Ada")})
			if err != nil {
				t.Errorf("Upsert: %v", err)
				return
			}
			if c {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if created != 1 {
		t.Fatalf("expected exactly one create, got %d", created)
	}
	var n int
	if err := s.pg.QueryRow(ctx, `SELECT count(*) FROM `+s.table()+` WHERE id=$1`, id).Scan(&n); err != nil || n != 1 {
		t.Fatalf("rows = %d, %v", n, err)
	}
}
