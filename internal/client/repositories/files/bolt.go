package files

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/common"
	bolt "go.etcd.io/bbolt"
)

// DefaultBucket is the single collection blobs are kept in.
const DefaultBucket = "files"

// BoltRepository keeps blobs in one bbolt file. bbolt allows one writer at a
// time, so concurrent Put/Delete calls commit in some serial order and the
// last commit wins.
type BoltRepository struct {
	path    string
	bucket  []byte
	timeout time.Duration

	mu      sync.Mutex
	db      *bolt.DB
	openErr error
}

type BoltOption func(*BoltRepository)

// WithBucket overrides DefaultBucket.
func WithBucket(name string) BoltOption {
	return func(r *BoltRepository) { r.bucket = []byte(name) }
}

// WithOpenTimeout bounds how long Open waits for the file lock held by
// another process.
func WithOpenTimeout(d time.Duration) BoltOption {
	return func(r *BoltRepository) { r.timeout = d }
}

func NewBoltRepository(path string, opts ...BoltOption) *BoltRepository {
	r := &BoltRepository{
		path:    path,
		bucket:  []byte(DefaultBucket),
		timeout: time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *BoltRepository) Open(ctx context.Context) error {
	_, err := r.handle(ctx)
	return err
}

func (r *BoltRepository) handle(ctx context.Context) (*bolt.DB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db != nil {
		return r.db, nil
	}
	if r.openErr != nil {
		return nil, r.openErr
	}

	db, err := r.open()
	if err != nil {
		r.openErr = fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
		return nil, r.openErr
	}
	r.db = db
	return db, nil
}

func (r *BoltRepository) open() (*bolt.DB, error) {
	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0o770); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := bolt.Open(r.path, 0o600, &bolt.Options{Timeout: r.timeout})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", r.path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(r.bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket %s: %w", r.bucket, err)
	}
	return db, nil
}

func (r *BoltRepository) Put(ctx context.Context, id string, blob []byte) error {
	db, err := r.handle(ctx)
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(r.bucket).Put([]byte(id), encodeRecord(blob))
	})
	if err != nil {
		return fmt.Errorf("failed to put blob %s: %w", id, err)
	}
	return nil
}

func (r *BoltRepository) Get(ctx context.Context, id string) ([]byte, error) {
	db, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(r.bucket).Get([]byte(id))
		if raw == nil {
			return nil
		}
		// raw is only valid inside the transaction; decodeRecord copies it.
		payload, err = decodeRecord(id, raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (r *BoltRepository) Delete(ctx context.Context, id string) error {
	db, err := r.handle(ctx)
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(r.bucket).Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", id, err)
	}
	return nil
}

func (r *BoltRepository) Keys(ctx context.Context) ([]string, error) {
	db, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}

	var keys []string
	err = db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(r.bucket).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	return keys, nil
}

func (r *BoltRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}
