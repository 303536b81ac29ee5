package snapshots

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/client/models"
	"github.com/dmitrijs2005/claimkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/claimkeeper/internal/common"
	"github.com/dmitrijs2005/claimkeeper/internal/dbx"
)

// Key is the metadata key the snapshot lives under.
const Key = "claim_snapshot"

// DefaultMaxBytes mirrors the few-megabyte quota of browser local storage.
const DefaultMaxBytes = 5 << 20

// Store persists session snapshots.
type Store struct {
	db       *sql.DB
	maxBytes int
	now      func() time.Time
}

type Option func(*Store)

// WithMaxBytes sets the largest serialized snapshot Save accepts.
// Non-positive values disable the check.
func WithMaxBytes(n int) Option {
	return func(s *Store) { s.maxBytes = n }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, maxBytes: DefaultMaxBytes, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type outSnapshot struct {
	FormFields map[string]any          `json:"formFields"`
	Files      []models.FileDescriptor `json:"fileDescriptors"`
	Timestamp  time.Time               `json:"timestamp"`
}

// Save overwrites the stored snapshot with snap. A zero Timestamp is
// replaced by the current time.
//
// Descriptors are written in reference form. A legacy descriptor that has
// not been migrated yet keeps the inline data it already has in the stored
// snapshot, so a failed migration can be retried on a later start.
func (s *Store) Save(ctx context.Context, snap models.Snapshot) error {
	ts := snap.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	ts = ts.UTC()

	fields := snap.FormFields
	if fields == nil {
		fields = map[string]any{}
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)

		var stored []models.FileDescriptor
		if hasLegacy(snap.Files) {
			prev, err := repo.Get(ctx, Key)
			if err != nil {
				return err
			}
			stored = legacyEntries(prev)
		}

		data, err := json.Marshal(outSnapshot{
			FormFields: fields,
			Files:      models.PersistableDescriptors(snap.Files, stored),
			Timestamp:  ts,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}

		if s.maxBytes > 0 && len(data) > s.maxBytes {
			return fmt.Errorf("snapshot is %d bytes, limit %d: %w", len(data), s.maxBytes, common.ErrQuotaExceeded)
		}

		return repo.Set(ctx, Key, data, ts)
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func hasLegacy(ds []models.FileDescriptor) bool {
	for _, d := range ds {
		if d.IsLegacy() {
			return true
		}
	}
	return false
}

// legacyEntries returns the descriptors of a stored record in either
// layout. An unreadable or missing record has none.
func legacyEntries(rec *metadata.Record) []models.FileDescriptor {
	if rec == nil {
		return nil
	}
	var in inSnapshot
	if err := json.Unmarshal(rec.Value, &in); err != nil {
		return nil
	}
	if in.Files != nil {
		return in.Files
	}
	return in.UploadedFiles
}

type inSnapshot struct {
	FormFields    map[string]any          `json:"formFields"`
	FormData      map[string]any          `json:"formData"`
	Files         []models.FileDescriptor `json:"fileDescriptors"`
	UploadedFiles []models.FileDescriptor `json:"uploadedFiles"`
	Timestamp     json.RawMessage         `json:"timestamp"`
}

// Load returns the stored snapshot, or (nil, nil) when nothing was saved.
// An unreadable value yields an error wrapping common.ErrSnapshotCorrupted.
func (s *Store) Load(ctx context.Context) (*models.Snapshot, error) {
	rec, err := metadata.NewSQLiteRepository(s.db).Get(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if rec == nil {
		return nil, nil
	}

	var in inSnapshot
	if err := json.Unmarshal(rec.Value, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSnapshotCorrupted, err)
	}

	fields := in.FormFields
	if fields == nil {
		fields = in.FormData
	}
	files := in.Files
	if files == nil {
		files = in.UploadedFiles
	}

	ts, ok := parseTimestamp(in.Timestamp)
	if !ok {
		ts = rec.UpdatedAt
	}

	return &models.Snapshot{
		FormFields: normalizeFields(fields),
		Files:      files,
		Timestamp:  ts,
	}, nil
}

// Clear removes the stored snapshot.
func (s *Store) Clear(ctx context.Context) error {
	if err := metadata.NewSQLiteRepository(s.db).Delete(ctx, Key); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	return nil
}

// parseTimestamp accepts RFC 3339 strings and Unix milliseconds.
func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, false
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		t, err := time.Parse(time.RFC3339Nano, str)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	}

	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.UnixMilli(int64(ms)).UTC(), true
	}
	return time.Time{}, false
}

// normalizeFields keeps string and bool answers, renders numbers as strings
// and drops everything else.
func normalizeFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch value := v.(type) {
		case string, bool:
			out[k] = value
		case float64:
			out[k] = strconv.FormatFloat(value, 'f', -1, 64)
		}
	}
	return out
}
