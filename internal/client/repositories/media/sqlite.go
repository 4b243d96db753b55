package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lingopost/internal/client/models"
	"github.com/dmitrijs2005/lingopost/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Put inserts e, replacing a previous entry for the same URL. Replacement
// happens only when a stale entry (file gone from disk) was re-downloaded.
func (r *SQLiteRepository) Put(ctx context.Context, e *models.CachedMediaEntry) error {
	query := `INSERT INTO media_cache (remote_url, local_path, size_bytes, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(remote_url) DO UPDATE SET
			local_path = excluded.local_path,
			size_bytes = excluded.size_bytes,
			fetched_at = excluded.fetched_at`

	_, err := r.db.ExecContext(ctx, query, e.RemoteURL, e.LocalPath, e.SizeBytes, e.FetchedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("put media entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, remoteURL string) (*models.CachedMediaEntry, error) {
	query := `SELECT remote_url, local_path, size_bytes, fetched_at FROM media_cache WHERE remote_url = ?`

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, remoteURL))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get media entry: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, remoteURL string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM media_cache WHERE remote_url = ?`, remoteURL); err != nil {
		return fmt.Errorf("delete media entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.CachedMediaEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT remote_url, local_path, size_bytes, fetched_at FROM media_cache ORDER BY fetched_at DESC, remote_url`)
	if err != nil {
		return nil, fmt.Errorf("list media entries: %w", err)
	}
	defer rows.Close()

	var result []*models.CachedMediaEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media entry: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate media entries: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.CachedMediaEntry, error) {
	var (
		e       models.CachedMediaEntry
		fetched int64
	)
	if err := s.Scan(&e.RemoteURL, &e.LocalPath, &e.SizeBytes, &fetched); err != nil {
		return nil, err
	}
	e.FetchedAt = time.UnixMilli(fetched).UTC()
	return &e, nil
}
