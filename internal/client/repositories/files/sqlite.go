package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/common"
	"github.com/dmitrijs2005/claimkeeper/internal/cryptox"
	"github.com/dmitrijs2005/claimkeeper/internal/dbx"
)

// SQLiteRepository keeps blobs in the "blobs" table of the claim database.
type SQLiteRepository struct {
	db dbx.DBTX

	mu      sync.Mutex
	opened  bool
	openErr error
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opened {
		return nil
	}
	if r.openErr != nil {
		return r.openErr
	}

	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS blobs (
		  id         TEXT PRIMARY KEY,
		  blob       BLOB NOT NULL,
		  sum        BLOB NOT NULL,
		  created_at INTEGER NOT NULL DEFAULT 0
		)`)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		r.openErr = fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
		return r.openErr
	}
	r.opened = true
	return nil
}

func (r *SQLiteRepository) Put(ctx context.Context, id string, blob []byte) error {
	if err := r.Open(ctx); err != nil {
		return err
	}
	if blob == nil {
		blob = []byte{}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO blobs (id, blob, sum, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET blob = excluded.blob, sum = excluded.sum, created_at = excluded.created_at
	`, id, blob, cryptox.Checksum(blob), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to put blob %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) ([]byte, error) {
	if err := r.Open(ctx); err != nil {
		return nil, err
	}

	var blob, sum []byte
	err := r.db.QueryRowContext(ctx, `SELECT blob, sum FROM blobs WHERE id = ?`, id).Scan(&blob, &sum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob %s: %w", id, err)
	}
	if blob == nil {
		blob = []byte{}
	}
	if !cryptox.Verify(blob, sum) {
		return nil, fmt.Errorf("blob %s: %w", id, common.ErrChecksumMismatch)
	}
	return blob, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if err := r.Open(ctx); err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM blobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Keys(ctx context.Context) ([]string, error) {
	if err := r.Open(ctx); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id FROM blobs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan blob row: %w", err)
		}
		keys = append(keys, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate blob rows: %w", err)
	}
	return keys, nil
}

// Close is a no-op; the database handle belongs to the caller.
func (r *SQLiteRepository) Close() error {
	return nil
}
