package storage

import (
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/claimkeeper/internal/client/repositories/files"
)

// Blob backends understood by OpenBlobStore.
const (
	BlobBackendBolt   = "bolt"
	BlobBackendSQLite = "sqlite"
)

// BlobOptions selects and tunes the blob store.
type BlobOptions struct {
	Backend   string
	Path      string
	CacheSize int
}

// OpenBlobStore builds the configured blob repository. Nothing is opened on
// disk until first use. db is only used by the sqlite backend.
func OpenBlobStore(opts BlobOptions, db *sql.DB) (files.Repository, error) {
	var repo files.Repository

	switch opts.Backend {
	case "", BlobBackendBolt:
		if opts.Path == "" {
			return nil, fmt.Errorf("bolt blob store: empty path")
		}
		repo = files.NewBoltRepository(opts.Path)
	case BlobBackendSQLite:
		if db == nil {
			return nil, fmt.Errorf("sqlite blob store: no database")
		}
		repo = files.NewSQLiteRepository(db)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", opts.Backend)
	}

	return files.NewCachedRepository(repo, opts.CacheSize), nil
}
