package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SequenceRepository hands out values from named monotonic counters. Values are
// never reused, including after the rows they numbered are deleted.
type SequenceRepository struct {
	db *sqlx.DB
}

// NewSequenceRepository constructs the repository.
func NewSequenceRepository(db *sqlx.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next atomically increments the counter and returns the new value. A counter
// that does not exist yet starts at 1.
func (r *SequenceRepository) Next(ctx context.Context, name string) (int64, error) {
	const query = `INSERT INTO sequences (name, value, updated_at) VALUES ($1, 1, NOW())
	ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1, updated_at = NOW()
	RETURNING value`
	var value int64
	if err := r.db.GetContext(ctx, &value, query, name); err != nil {
		return 0, fmt.Errorf("advance sequence %s: %w", name, err)
	}
	return value, nil
}
