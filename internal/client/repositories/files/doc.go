// Package files is the blob store of a claim session: durable, key→bytes
// storage for uploaded file payloads, keyed by opaque file identifiers.
//
// # Overview
//
// The Repository interface is implemented by
//
//   - BoltRepository  : one bbolt file with a single bucket (the default)
//   - SQLiteRepository: a "blobs" table next to the metadata snapshot
//   - CachedRepository: an LRU read cache in front of either of the above
//
// Stores open lazily: Put, Get, Delete and Keys call Open first, and Open is
// idempotent. A failed open is sticky and reported as
// common.ErrStoreUnavailable so the session can switch to memory-only mode.
//
// Every record stores a BLAKE2b-256 digest of its payload. Get verifies it
// and returns common.ErrChecksumMismatch instead of corrupt content.
//
// Typical Usage
//
//	repo := files.NewCachedRepository(files.NewBoltRepository(path), 32)
//	_ = repo.Put(ctx, id, data)
//	b, _ := repo.Get(ctx, id) // nil, nil when absent
//	_ = repo.Delete(ctx, id)
package files
