package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// JournalEntry is one saved version of a property string.
type JournalEntry struct {
	ID      uuid.UUID
	Content string
	SavedAt time.Time
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// append records a version inside the caller's transaction.
func (r *JournalRepo) append(ctx context.Context, tx pgx.Tx, propID uuid.UUID, content string) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO props_journal (id, prop_id, content) VALUES ($1, $2, $3)`,
		uuid.New(), propID, content,
	); err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}
	return nil
}

func (r *JournalRepo) List(ctx context.Context, pkg, name string, limit int) ([]JournalEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT j.id, j.content, j.saved_at
		 FROM props_journal j JOIN props p ON p.id = j.prop_id
		 WHERE p.package = $1 AND p.name = $2
		 ORDER BY j.saved_at DESC
		 LIMIT $3`, pkg, name, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.Content, &e.SavedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune keeps the newest keep versions of every property string.
func (r *JournalRepo) Prune(ctx context.Context, keep int) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM props_journal WHERE id IN (
		   SELECT id FROM (
		     SELECT id, row_number() OVER (PARTITION BY prop_id ORDER BY saved_at DESC) AS rn
		     FROM props_journal) ranked
		   WHERE rn > $1)`, keep,
	)
	return err
}
