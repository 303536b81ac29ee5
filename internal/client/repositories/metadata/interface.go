// Package metadata is the key/value table behind the claim metadata store.
// Values are opaque bytes stamped with the time they were written.
package metadata

import (
	"context"
	"time"
)

// Record is a stored value together with its write time.
type Record struct {
	Value     []byte
	UpdatedAt time.Time
}

type Repository interface {
	// Get returns (nil, nil) when key is absent.
	Get(ctx context.Context, key string) (*Record, error)
	Set(ctx context.Context, key string, value []byte, at time.Time) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]Record, error)
	Clear(ctx context.Context) error
}
