package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/upkeep/internal/domain/model"
	"github.com/ericfisherdev/upkeep/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DismissalStore = (*DismissalRepo)(nil)

// DismissalRepo is the SQLite implementation of the DismissalStore port
// interface. The numeric triple is denormalized into its own columns so
// ordering and pruning never depend on lexicographic version strings.
type DismissalRepo struct {
	db *DB
}

// NewDismissalRepo creates a new DismissalRepo backed by the given DB.
func NewDismissalRepo(db *DB) *DismissalRepo {
	return &DismissalRepo{db: db}
}

// Get returns the dismissal record for the version, or nil when none exists.
func (r *DismissalRepo) Get(ctx context.Context, version model.Version) (*model.Dismissal, error) {
	const query = `SELECT version, dismissed_at, check_count FROM dismissals WHERE version = ?`

	dismissal, err := scanDismissal(r.db.Reader.QueryRowContext(ctx, query, version.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dismissal %s: %w", version, err)
	}

	return dismissal, nil
}

// Upsert stores the dismissal record, replacing any previous one for the
// same version.
func (r *DismissalRepo) Upsert(ctx context.Context, dismissal model.Dismissal) error {
	const query = `INSERT INTO dismissals (version, major, minor, patch, dismissed_at, check_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(version) DO UPDATE SET
			dismissed_at = excluded.dismissed_at,
			check_count = excluded.check_count`

	v := dismissal.Version
	_, err := r.db.Writer.ExecContext(ctx, query,
		v.String(), v.Major, v.Minor, v.Patch,
		dismissal.DismissedAt.UTC(), dismissal.CheckCount,
	)
	if err != nil {
		return fmt.Errorf("upsert dismissal %s: %w", v, err)
	}

	return nil
}

// Delete removes the record for the version. Deleting a version that was
// never dismissed is a no-op.
func (r *DismissalRepo) Delete(ctx context.Context, version model.Version) error {
	const query = `DELETE FROM dismissals WHERE version = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, version.String()); err != nil {
		return fmt.Errorf("delete dismissal %s: %w", version, err)
	}

	return nil
}

// DeleteAll removes every dismissal record.
func (r *DismissalRepo) DeleteAll(ctx context.Context) error {
	const query = `DELETE FROM dismissals`

	if _, err := r.db.Writer.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("delete all dismissals: %w", err)
	}

	return nil
}

// DeleteOlderThan removes records whose numeric triple is strictly below
// the given version.
func (r *DismissalRepo) DeleteOlderThan(ctx context.Context, version model.Version) error {
	const query = `DELETE FROM dismissals
		WHERE major < ?
		   OR (major = ? AND minor < ?)
		   OR (major = ? AND minor = ? AND patch < ?)`

	_, err := r.db.Writer.ExecContext(ctx, query,
		version.Major,
		version.Major, version.Minor,
		version.Major, version.Minor, version.Patch,
	)
	if err != nil {
		return fmt.Errorf("prune dismissals below %s: %w", version, err)
	}

	return nil
}

// List returns all dismissal records ordered by version ascending.
func (r *DismissalRepo) List(ctx context.Context) ([]model.Dismissal, error) {
	const query = `SELECT version, dismissed_at, check_count FROM dismissals ORDER BY major, minor, patch, version`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list dismissals: %w", err)
	}
	defer rows.Close()

	var dismissals []model.Dismissal
	for rows.Next() {
		dismissal, err := scanDismissal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dismissal: %w", err)
		}
		dismissals = append(dismissals, *dismissal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dismissals: %w", err)
	}

	return dismissals, nil
}

func scanDismissal(s scanner) (*model.Dismissal, error) {
	var dismissal model.Dismissal
	var version string
	var dismissedAt string

	err := s.Scan(&version, &dismissedAt, &dismissal.CheckCount)
	if err != nil {
		return nil, err
	}

	dismissal.Version, err = model.ParseVersion(version)
	if err != nil {
		return nil, fmt.Errorf("parse version: %w", err)
	}

	dismissal.DismissedAt, err = parseTime(dismissedAt)
	if err != nil {
		return nil, fmt.Errorf("parse dismissed_at: %w", err)
	}

	return &dismissal, nil
}
