package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	derrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
)

// Fingerprints maps source paths to the content hash seen by the last build.
type Fingerprints struct {
	q Queryer
}

// NewFingerprints returns a fingerprint store backed by q.
func NewFingerprints(q Queryer) *Fingerprints {
	return &Fingerprints{q: q}
}

// Lookup returns the stored hash for path; found is false when the path is untracked.
func (f *Fingerprints) Lookup(ctx context.Context, path string) (hash string, found bool, err error) {
	err = sqlx.GetContext(ctx, f.q, &hash, `SELECT hash FROM entries WHERE path = ?`, path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, derrors.Storage("lookup fingerprint", err).WithContext("path", path)
	}
	return hash, true, nil
}

// Insert records a fingerprint for an untracked path. It fails with
// ErrEntryExists when the path is already tracked.
func (f *Fingerprints) Insert(ctx context.Context, path, hash string) error {
	res, err := f.q.ExecContext(ctx,
		`INSERT INTO entries (path, hash) VALUES (?, ?) ON CONFLICT(path) DO NOTHING`, path, hash)
	if err != nil {
		return derrors.Storage("insert fingerprint", err).WithContext("path", path)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return derrors.Storage("insert fingerprint", fmt.Errorf("%w: %s", derrors.ErrEntryExists, path)).
			WithContext("path", path)
	}
	return nil
}

// Update replaces the fingerprint of a tracked path. It fails with
// ErrEntryMissing when the path is not tracked.
func (f *Fingerprints) Update(ctx context.Context, path, hash string) error {
	res, err := f.q.ExecContext(ctx, `UPDATE entries SET hash = ? WHERE path = ?`, hash, path)
	if err != nil {
		return derrors.Storage("update fingerprint", err).WithContext("path", path)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return derrors.Storage("update fingerprint", fmt.Errorf("%w: %s", derrors.ErrEntryMissing, path)).
			WithContext("path", path)
	}
	return nil
}

// Delete forgets path. Deleting an untracked path is not an error.
func (f *Fingerprints) Delete(ctx context.Context, path string) error {
	if _, err := f.q.ExecContext(ctx, `DELETE FROM entries WHERE path = ?`, path); err != nil {
		return derrors.Storage("delete fingerprint", err).WithContext("path", path)
	}
	return nil
}

// Count returns the number of tracked paths.
func (f *Fingerprints) Count(ctx context.Context) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, f.q, &n, `SELECT COUNT(*) FROM entries`); err != nil {
		return 0, derrors.Storage("count fingerprints", err)
	}
	return n, nil
}
