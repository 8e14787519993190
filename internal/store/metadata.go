package store

import (
	"context"
	"database/sql"
)

// NextValue atomically increments and returns the counter for partition.
// The first call for a partition returns 1.
func (q *Queries) NextValue(ctx context.Context, partition string) (int64, error) {
	var v int64
	err := q.q.QueryRowContext(ctx,
		`INSERT INTO sequences (name, value) VALUES (?, 1)
		 ON CONFLICT(name) DO UPDATE SET value = value + 1
		 RETURNING value`,
		partition,
	).Scan(&v)
	return v, err
}

// GetImportedFileHash returns the hash recorded for an imported file path.
// Returns empty string and nil error if the path was never imported.
func (q *Queries) GetImportedFileHash(ctx context.Context, path string) (string, error) {
	var hash string
	err := q.q.QueryRowContext(ctx, `SELECT hash FROM imported_files WHERE path = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}

// SetImportedFileHash upserts the hash for an imported file path.
func (q *Queries) SetImportedFileHash(ctx context.Context, path, hash string) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO imported_files (path, hash) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = ?`,
		path, hash, hash,
	)
	return err
}
