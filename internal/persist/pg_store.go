package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PgStore keeps property strings in the props table, scoped to one package.
// Every save is journaled.
type PgStore struct {
	db      *DB
	pkg     string
	journal *JournalRepo
}

func NewPgStore(db *DB, pkg string) *PgStore {
	return &PgStore{db: db, pkg: pkg, journal: NewJournalRepo(db)}
}

func (s *PgStore) Save(ctx context.Context, name, props string) error {
	if err := checkName(name); err != nil {
		return err
	}
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("props begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO props (id, package, name, content)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (package, name)
		 DO UPDATE SET content = EXCLUDED.content, updated_at = now()
		 RETURNING id`,
		uuid.New(), s.pkg, name, props,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("props upsert %s: %w", name, err)
	}
	if err := s.journal.append(ctx, tx, id, props); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PgStore) Load(ctx context.Context, name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	var content string
	err := s.db.Pool.QueryRow(ctx,
		`SELECT content FROM props WHERE package = $1 AND name = $2`, s.pkg, name,
	).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("props load %s: %w", name, err)
	}
	return content, nil
}

// History returns up to limit earlier versions of name, newest first.
func (s *PgStore) History(ctx context.Context, name string, limit int) ([]JournalEntry, error) {
	return s.journal.List(ctx, s.pkg, name, limit)
}
