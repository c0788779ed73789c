package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const profileColumns = `id, full_name, headline, location, avatar_url, good_at, need_help_with, want_to_help, audio_urls, created_at, updated_at`

// PostgresStore keeps profiles in <schema>.profiles.
type PostgresStore struct {
	pg     *pgxpool.Pool
	schema string
	now    func() time.Time
}

func NewPostgresStore(pg *pgxpool.Pool, schema string) *PostgresStore {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "public"
	}
	return &PostgresStore{pg: pg, schema: s, now: func() time.Time { return time.Now().UTC() }}
}

func (s *PostgresStore) table() string { return pgx.Identifier{s.schema, "profiles"}.Sanitize() }

func (s *PostgresStore) Ping(ctx context.Context) error {
	var one int
	return s.pg.QueryRow(ctx, `SELECT 1`).Scan(&one)
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	row := s.pg.QueryRow(ctx, `SELECT `+profileColumns+` FROM `+s.table()+` WHERE id=$1`, id)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, id uuid.UUID, f Fields) (*Profile, bool, error) {
	var (
		out     *Profile
		created bool
	)
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		existing, err := s.lockRow(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			p := Merge(nil, id, f, s.now())
			inserted, err := s.insert(ctx, tx, p)
			if err != nil {
				return err
			}
			if inserted != nil {
				out, created = inserted, true
				return nil
			}
			// Lost a race with a concurrent create: apply f to the winner's row.
			if existing, err = s.lockRow(ctx, tx, id); err != nil {
				return err
			}
			if existing == nil {
				return fmt.Errorf("upsert profile %s: row vanished after conflict", id)
			}
		}
		out, err = s.update(ctx, tx, Merge(existing, id, f, s.now()))
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, f Fields) (*Profile, error) {
	var out *Profile
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		existing, err := s.lockRow(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNotFound
		}
		out, err = s.update(ctx, tx, Merge(existing, id, f, s.now()))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// inTx runs fn in a transaction; the connection goes back to the pool on every path.
func (s *PostgresStore) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pg.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// lockRow returns the row locked FOR UPDATE, or nil when absent.
func (s *PostgresStore) lockRow(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Profile, error) {
	row := tx.QueryRow(ctx, `SELECT `+profileColumns+` FROM `+s.table()+` WHERE id=$1 FOR UPDATE`, id)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock profile: %w", err)
	}
	return p, nil
}

// insert returns nil, nil when another transaction created the row first.
func (s *PostgresStore) insert(ctx context.Context, tx pgx.Tx, p Profile) (*Profile, error) {
	audio, err := json.Marshal(p.AudioURLs)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(ctx, `INSERT INTO `+s.table()+` (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11)
		ON CONFLICT (id) DO NOTHING
		RETURNING `+profileColumns,
		p.ID, p.FullName, p.Headline, p.Location, p.AvatarURL, p.GoodAt, p.NeedHelpWith, p.WantToHelp, string(audio), p.CreatedAt, p.UpdatedAt)
	out, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) update(ctx context.Context, tx pgx.Tx, p Profile) (*Profile, error) {
	audio, err := json.Marshal(p.AudioURLs)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(ctx, `UPDATE `+s.table()+` SET
		full_name=$2, headline=$3, location=$4, avatar_url=$5, good_at=$6,
		need_help_with=$7, want_to_help=$8, audio_urls=$9::jsonb, updated_at=$10
		WHERE id=$1
		RETURNING `+profileColumns,
		p.ID, p.FullName, p.Headline, p.Location, p.AvatarURL, p.GoodAt, p.NeedHelpWith, p.WantToHelp, string(audio), p.UpdatedAt)
	out, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return out, nil
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	var audio []byte
	if err := row.Scan(&p.ID, &p.FullName, &p.Headline, &p.Location, &p.AvatarURL, &p.GoodAt,
		&p.NeedHelpWith, &p.WantToHelp, &audio, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if len(audio) > 0 {
		if err := json.Unmarshal(audio, &p.AudioURLs); err != nil {
			return nil, fmt.Errorf("decode audio_urls: %w", err)
		}
	}
	if p.AudioURLs == nil {
		p.AudioURLs = []string{}
	}
	return &p, nil
}
