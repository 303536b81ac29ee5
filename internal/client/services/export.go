package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/client/models"
	"github.com/dmitrijs2005/claimkeeper/internal/client/notify"
	"github.com/dmitrijs2005/claimkeeper/internal/filex"
)

// ExportSink receives the artifacts of an export.
type ExportSink interface {
	WriteDocument(ctx context.Context, name string, doc []byte) error
	WriteFile(ctx context.Context, name, contentType string, data []byte) error
}

// ExportResult describes what Export produced.
type ExportResult struct {
	Document     models.ExportDocument
	DocumentName string
	FileNames    []string
}

// Export writes the claim document to sink and then each uploaded file, in
// upload order, waiting the export delay between files. A file that cannot
// be read or written is skipped and reported in the returned error; the
// others are still exported.
func (s *ClaimSession) Export(ctx context.Context, sink ExportSink) (*ExportResult, error) {
	snap := s.Snapshot()

	doc := models.ExportDocument{
		FormData:      snap.FormFields,
		UploadedFiles: make([]models.ExportedFile, len(snap.Files)),
		ExportTime:    snap.Timestamp,
		Note:          models.ExportNote,
	}
	for i, d := range snap.Files {
		doc.UploadedFiles[i] = models.ExportedFile{
			Name:        d.Name,
			Size:        d.Size,
			Type:        d.Type,
			DataRemoved: true,
			Note:        models.ExportFileNote,
		}
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}

	res := &ExportResult{
		Document:     doc,
		DocumentName: fmt.Sprintf("claim-%s.json", snap.Timestamp.Format("20060102-150405")),
	}
	if err := sink.WriteDocument(ctx, res.DocumentName, body); err != nil {
		return nil, fmt.Errorf("failed to write export document: %w", err)
	}

	var errs []error
	for i, d := range snap.Files {
		if i > 0 && s.exportDelay > 0 {
			t := time.NewTimer(s.exportDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return res, errors.Join(append(errs, ctx.Err())...)
			case <-t.C:
			}
		}

		data, err := s.fileBytes(ctx, d)
		if err != nil {
			errs = append(errs, err)
			s.log.Warn(ctx, "file skipped in export", "name", d.Name, "error", err)
			continue
		}

		name := filex.SanitizeFilename(d.Name)
		if err := sink.WriteFile(ctx, name, d.Type, data); err != nil {
			errs = append(errs, fmt.Errorf("file %s: %w", d.Name, err))
			continue
		}
		res.FileNames = append(res.FileNames, name)
	}

	s.notify(ctx, notify.ExportDone, notify.LevelInfo,
		fmt.Sprintf("exported claim and %d of %d file(s)", len(res.FileNames), len(snap.Files)), nil)
	return res, errors.Join(errs...)
}
