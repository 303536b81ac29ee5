package files

import "context"

// Repository describes the blob store contract.
type Repository interface {
	// Open prepares the backing store. It is idempotent.
	Open(ctx context.Context) error

	// Put stores blob under id, replacing any previous payload.
	Put(ctx context.Context, id string, blob []byte) error

	// Get returns the payload stored under id, or (nil, nil) if there is none.
	Get(ctx context.Context, id string) ([]byte, error)

	// Delete removes id. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// Keys lists every stored id.
	Keys(ctx context.Context) ([]string, error)

	// Close releases the backing store. A later call reopens it lazily.
	Close() error
}
