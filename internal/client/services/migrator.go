// Package services contains the claim session and its collaborators: the
// legacy-format migrator and the export sinks.
package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/claimkeeper/internal/client/models"
	"github.com/dmitrijs2005/claimkeeper/internal/client/repositories/files"
	"github.com/dmitrijs2005/claimkeeper/internal/common"
	"github.com/dmitrijs2005/claimkeeper/internal/logging"
	"github.com/google/uuid"
)

// NewFileID returns a fresh blob id. UUIDv7 combines a millisecond clock
// with 74 random bits.
func NewFileID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate file id: %w", err)
	}
	return id.String(), nil
}

// MigrationReport summarizes one migration pass.
type MigrationReport struct {
	Scanned  int
	Migrated int
	Failed   int
	Errors   []error
}

// LegacyMigrator moves inline file payloads of old snapshots into the blob
// store and rewrites their descriptors to the reference form.
type LegacyMigrator struct {
	blobs files.Repository
	newID func() (string, error)
	log   logging.Logger
}

func NewLegacyMigrator(blobs files.Repository, log logging.Logger) *LegacyMigrator {
	if log == nil {
		log = logging.Discard()
	}
	return &LegacyMigrator{blobs: blobs, newID: NewFileID, log: log.With("module", "migrator")}
}

// Migrate returns a copy of in where every legacy descriptor that could be
// stored is in reference form. Entries that fail stay as they were.
func (m *LegacyMigrator) Migrate(ctx context.Context, in []models.FileDescriptor) ([]models.FileDescriptor, MigrationReport) {
	out := models.CloneDescriptors(in)
	var rep MigrationReport

	for i, d := range out {
		if !d.IsLegacy() {
			continue
		}
		rep.Scanned++

		migrated, err := m.migrateOne(ctx, d)
		if err != nil {
			rep.Failed++
			rep.Errors = append(rep.Errors, err)
			m.log.Warn(ctx, "legacy file not migrated", "name", d.Name, "error", err)
			continue
		}
		out[i] = migrated
		rep.Migrated++
	}

	if rep.Scanned > 0 {
		m.log.Info(ctx, "legacy migration finished", "scanned", rep.Scanned, "migrated", rep.Migrated, "failed", rep.Failed)
	}
	return out, rep
}

func (m *LegacyMigrator) migrateOne(ctx context.Context, d models.FileDescriptor) (models.FileDescriptor, error) {
	payload, mime, err := DecodeInlineData(d.LegacyData)
	if err != nil {
		return d, fmt.Errorf("%s: %w", d.Name, err)
	}

	ref := d.Reference()
	if ref.Size == 0 {
		ref.Size = int64(len(payload))
	}
	if ref.Type == "" {
		ref.Type = mime
	}

	if ref.ID != "" {
		existing, err := m.blobs.Get(ctx, ref.ID)
		if err == nil && existing != nil {
			return ref, nil
		}
	} else {
		if ref.ID, err = m.newID(); err != nil {
			return d, err
		}
	}

	if err := m.blobs.Put(ctx, ref.ID, payload); err != nil {
		return d, fmt.Errorf("%s: %w", d.Name, err)
	}
	return ref, nil
}

// DecodeInlineData decodes a legacy payload: either a data URL
// ("data:<mime>;base64,<payload>") or bare base64 in any common alphabet.
// The MIME type is empty for bare base64.
func DecodeInlineData(s string) (payload []byte, mime string, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", fmt.Errorf("empty payload: %w", common.ErrLegacyDecode)
	}

	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		header, body, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", fmt.Errorf("data url without payload: %w", common.ErrLegacyDecode)
		}
		params := strings.Split(header, ";")
		mime = params[0]

		isBase64 := false
		for _, p := range params[1:] {
			if p == "base64" {
				isBase64 = true
			}
		}
		if !isBase64 {
			text, err := url.PathUnescape(body)
			if err != nil {
				return nil, "", fmt.Errorf("%w: %v", common.ErrLegacyDecode, err)
			}
			return []byte(text), mime, nil
		}
		s = body
	}

	payload, err = decodeBase64(s)
	if err != nil {
		return nil, "", err
	}
	return payload, mime, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)

	var errs []error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %v", common.ErrLegacyDecode, errors.Join(errs...))
}
