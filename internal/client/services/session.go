package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/client/models"
	"github.com/dmitrijs2005/claimkeeper/internal/client/notify"
	"github.com/dmitrijs2005/claimkeeper/internal/client/repositories/files"
	"github.com/dmitrijs2005/claimkeeper/internal/client/validation"
	"github.com/dmitrijs2005/claimkeeper/internal/common"
	"github.com/dmitrijs2005/claimkeeper/internal/logging"
)

// MetadataStore persists session snapshots. snapshots.Store implements it.
type MetadataStore interface {
	Save(ctx context.Context, snap models.Snapshot) error
	Load(ctx context.Context) (*models.Snapshot, error)
	Clear(ctx context.Context) error
}

// Defaults used when the corresponding option is not given.
const (
	DefaultSaveInterval = 30 * time.Second
	DefaultMaxFileSize  = 10 << 20
	DefaultExportDelay  = 300 * time.Millisecond
)

// DefaultAllowedTypes lists the MIME types accepted for upload.
var DefaultAllowedTypes = []string{"application/pdf", "image/jpeg", "image/png", "image/gif", "image/webp"}

// ValidationError is returned by Finalize when the form is incomplete.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "claim is not valid: " + strings.Join(e.Messages, "; ")
}

// AddResult is the outcome of one file in AddFiles.
type AddResult struct {
	Descriptor models.FileDescriptor
	Err        error
}

// ClaimSession is the in-memory claim: form answers, uploaded file
// descriptors and the submitted flag. It keeps the metadata store and the
// blob store in step with that state.
//
// All methods are safe for concurrent use. In-memory state is guarded by one
// mutex that is never held across store I/O; durable writes are serialized
// separately and ordered by revision, so a slow save can never overwrite a
// newer one.
type ClaimSession struct {
	meta      MetadataStore
	blobs     files.Repository
	migrator  *LegacyMigrator
	log       logging.Logger
	notifier  notify.Notifier
	validator validation.Validator

	allowed     []string
	maxSize     int64
	interval    time.Duration
	exportDelay time.Duration
	now         func() time.Time
	newID       func() (string, error)

	mu        sync.Mutex
	fields    map[string]any
	files     []models.FileDescriptor
	pending   map[string][]byte
	submitted bool
	revision  uint64
	dirty     bool
	metaState models.TierState
	blobState models.TierState
	sweepCtx  context.Context
	stopSweep context.CancelFunc

	saveMu        sync.Mutex
	savedRevision uint64
	persisted     bool
}

type SessionOption func(*ClaimSession)

func WithLogger(l logging.Logger) SessionOption {
	return func(s *ClaimSession) { s.log = l }
}

func WithNotifier(n notify.Notifier) SessionOption {
	return func(s *ClaimSession) { s.notifier = n }
}

func WithValidator(v validation.Validator) SessionOption {
	return func(s *ClaimSession) { s.validator = v }
}

// WithAllowedTypes sets the upload allow-list. Entries may end in "/*".
func WithAllowedTypes(types ...string) SessionOption {
	return func(s *ClaimSession) { s.allowed = types }
}

func WithMaxFileSize(n int64) SessionOption {
	return func(s *ClaimSession) { s.maxSize = n }
}

func WithSaveInterval(d time.Duration) SessionOption {
	return func(s *ClaimSession) { s.interval = d }
}

func WithExportDelay(d time.Duration) SessionOption {
	return func(s *ClaimSession) { s.exportDelay = d }
}

func WithClock(now func() time.Time) SessionOption {
	return func(s *ClaimSession) { s.now = now }
}

func WithIDGenerator(gen func() (string, error)) SessionOption {
	return func(s *ClaimSession) { s.newID = gen }
}

// NewClaimSession returns an empty active session. A nil store disables its
// tier: the session then keeps that part of the state in memory only.
func NewClaimSession(meta MetadataStore, blobs files.Repository, opts ...SessionOption) *ClaimSession {
	s := &ClaimSession{
		meta:        meta,
		blobs:       blobs,
		allowed:     DefaultAllowedTypes,
		maxSize:     DefaultMaxFileSize,
		interval:    DefaultSaveInterval,
		exportDelay: DefaultExportDelay,
		now:         time.Now,
		newID:       NewFileID,
		fields:      map[string]any{},
		pending:     map[string][]byte{},
		metaState:   models.TierAvailable,
		blobState:   models.TierAvailable,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	s.log = s.log.With("module", "session")
	if s.notifier == nil {
		s.notifier = &notify.Recorder{}
	}
	if s.validator == nil {
		s.validator = validation.Default()
	}
	if meta == nil {
		s.metaState = models.TierDisabled
	}
	if blobs == nil {
		s.blobState = models.TierDisabled
	} else {
		s.migrator = NewLegacyMigrator(blobs, s.log)
		s.migrator.newID = s.newID
	}
	return s
}

// Load replaces the in-memory state with the stored snapshot, migrates
// legacy descriptors and deletes blobs no descriptor refers to.
func (s *ClaimSession) Load(ctx context.Context) error {
	if s.blobs != nil {
		if err := s.blobs.Open(ctx); err != nil {
			s.degrade(ctx, tierBlobs, err)
		}
	}

	if s.meta == nil {
		s.notify(ctx, notify.StorageDegraded, notify.LevelWarning, "claim data store is not available, answers are kept in memory only", nil)
		return nil
	}

	snap, err := s.meta.Load(ctx)
	switch {
	case errors.Is(err, common.ErrSnapshotCorrupted):
		s.log.Error(ctx, "stored claim is unreadable, starting over", "error", err)
		s.notify(ctx, notify.SaveFailed, notify.LevelError, "saved claim data could not be read", nil)
		return nil
	case err != nil:
		s.degrade(ctx, tierMeta, err)
		return nil
	case snap == nil:
		return nil
	}

	descriptors := make([]models.FileDescriptor, 0, len(snap.Files))
	for _, d := range snap.Files {
		if d.ID == "" && !d.IsLegacy() {
			s.log.Warn(ctx, "dropping file without content", "name", d.Name)
			continue
		}
		descriptors = append(descriptors, d)
	}

	s.mu.Lock()
	s.fields = snap.FormFields
	if s.fields == nil {
		s.fields = map[string]any{}
	}
	s.files = descriptors
	s.pending = map[string][]byte{}
	s.submitted = false
	s.dirty = false
	rev := s.revision
	blobsOK := s.blobState == models.TierAvailable
	s.mu.Unlock()

	s.saveMu.Lock()
	s.savedRevision, s.persisted = rev, true
	s.saveMu.Unlock()

	if !blobsOK {
		return nil
	}

	if s.migrateLegacy(ctx) > 0 {
		if err := s.Save(ctx); err != nil {
			s.log.Warn(ctx, "failed to save migrated claim", "error", err)
		}
	}
	s.sweepOrphans(ctx)
	return nil
}

// migrateLegacy runs the migrator over the current descriptors and returns
// the number of migrated entries.
func (s *ClaimSession) migrateLegacy(ctx context.Context) int {
	s.mu.Lock()
	current := models.CloneDescriptors(s.files)
	s.mu.Unlock()

	hasLegacy := false
	for _, d := range current {
		if d.IsLegacy() {
			hasLegacy = true
			break
		}
	}
	if !hasLegacy {
		return 0
	}

	migrated, rep := s.migrator.Migrate(ctx, current)
	for _, err := range rep.Errors {
		if errors.Is(err, common.ErrStoreUnavailable) {
			s.degrade(ctx, tierBlobs, err)
		}
	}
	if rep.Failed > 0 {
		s.notify(ctx, notify.MigrationFailed, notify.LevelWarning,
			fmt.Sprintf("%d stored file(s) could not be converted", rep.Failed), nil)
	}
	if rep.Migrated == 0 {
		return 0
	}

	// Apply the result only to entries that are still the legacy ones we
	// read; anything added or removed meanwhile is left alone.
	s.mu.Lock()
	for i, before := range current {
		if !before.IsLegacy() || migrated[i].IsLegacy() {
			continue
		}
		for j := range s.files {
			if s.files[j] == before {
				s.files[j] = migrated[i]
				break
			}
		}
	}
	s.touchLocked()
	s.mu.Unlock()
	return rep.Migrated
}

func (s *ClaimSession) sweepOrphans(ctx context.Context) {
	keys, err := s.blobs.Keys(ctx)
	if err != nil {
		s.log.Warn(ctx, "failed to list stored files", "error", err)
		return
	}

	s.mu.Lock()
	live := s.referencedLocked()
	s.mu.Unlock()

	for _, k := range keys {
		if _, ok := live[k]; ok {
			continue
		}
		if err := s.blobs.Delete(ctx, k); err != nil {
			s.log.Warn(ctx, "failed to delete orphaned file", "id", k, "error", err)
			continue
		}
		s.log.Debug(ctx, "deleted orphaned file", "id", k)
	}
}

func (s *ClaimSession) referencedLocked() map[string]struct{} {
	live := make(map[string]struct{}, len(s.files))
	for _, d := range s.files {
		if d.ID != "" {
			live[d.ID] = struct{}{}
		}
	}
	return live
}

// SetField records a form answer. Values must be strings or booleans;
// integers and floats are stored in their decimal string form.
func (s *ClaimSession) SetField(ctx context.Context, key string, value any) error {
	if key == "" {
		return fmt.Errorf("empty field name: %w", common.ErrUnsupportedValue)
	}
	v, err := normalizeValue(value)
	if err != nil {
		return fmt.Errorf("field %s: %w", key, err)
	}

	s.mu.Lock()
	s.fields[key] = v
	s.touchLocked()
	s.mu.Unlock()

	s.saveAfterMutation(ctx)
	return nil
}

// DeleteField removes a form answer. Missing keys are ignored.
func (s *ClaimSession) DeleteField(ctx context.Context, key string) {
	s.mu.Lock()
	if _, ok := s.fields[key]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.fields, key)
	s.touchLocked()
	s.mu.Unlock()

	s.saveAfterMutation(ctx)
}

func normalizeValue(value any) (any, error) {
	switch v := value.(type) {
	case string, bool:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return nil, fmt.Errorf("%T: %w", value, common.ErrUnsupportedValue)
	}
}

// AddFile validates f, stores its bytes and appends its descriptor. A
// rejected file leaves the session untouched and yields an error wrapping
// common.ErrFileRejected.
func (s *ClaimSession) AddFile(ctx context.Context, f models.RawFile) (models.FileDescriptor, error) {
	if f.Type == "" {
		f.Type = mime.TypeByExtension(strings.ToLower(filepath.Ext(f.Name)))
		if i := strings.IndexByte(f.Type, ';'); i >= 0 {
			f.Type = f.Type[:i]
		}
	}

	if reason := s.checkFile(f); reason != "" {
		s.notify(ctx, notify.FileRejected, notify.LevelWarning, fmt.Sprintf("%s: %s", f.Name, reason),
			map[string]string{"name": f.Name, "type": f.Type})
		return models.FileDescriptor{}, fmt.Errorf("%s: %s: %w", f.Name, reason, common.ErrFileRejected)
	}

	id, err := s.newID()
	if err != nil {
		return models.FileDescriptor{}, err
	}
	d := models.FileDescriptor{ID: id, Name: f.Name, Size: f.Size(), Type: f.Type}

	stored := false
	if s.canWrite(tierBlobs) {
		if err := s.blobs.Put(ctx, id, f.Data); err != nil {
			s.blobWriteFailed(ctx, id, err)
		} else {
			stored = true
		}
	}

	s.mu.Lock()
	s.files = append(s.files, d)
	if !stored {
		s.pending[id] = append([]byte(nil), f.Data...)
	}
	s.touchLocked()
	s.mu.Unlock()

	s.notify(ctx, notify.FileAccepted, notify.LevelInfo, fmt.Sprintf("%s added", f.Name),
		map[string]string{"id": id, "name": f.Name})
	s.saveAfterMutation(ctx)
	return d, nil
}

// AddFiles adds every file independently; one rejection does not affect
// the others.
func (s *ClaimSession) AddFiles(ctx context.Context, fs []models.RawFile) []AddResult {
	out := make([]AddResult, len(fs))
	for i, f := range fs {
		d, err := s.AddFile(ctx, f)
		out[i] = AddResult{Descriptor: d, Err: err}
	}
	return out
}

func (s *ClaimSession) checkFile(f models.RawFile) string {
	if len(f.Data) == 0 {
		return "file is empty"
	}
	if s.maxSize > 0 && f.Size() > s.maxSize {
		return fmt.Sprintf("file is larger than %d bytes", s.maxSize)
	}
	if !typeAllowed(s.allowed, f.Type) {
		if f.Type == "" {
			return "unknown file type"
		}
		return fmt.Sprintf("type %s is not allowed", f.Type)
	}
	return ""
}

func typeAllowed(allowed []string, t string) bool {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		return false
	}
	for _, a := range allowed {
		a = strings.ToLower(a)
		if a == t {
			return true
		}
		if prefix, ok := strings.CutSuffix(a, "/*"); ok && strings.HasPrefix(t, prefix+"/") {
			return true
		}
	}
	return false
}

// RemoveFile drops the descriptor at index. An out-of-range index changes
// nothing and returns common.ErrIndexOutOfRange. The blob is deleted when no
// other descriptor still refers to it.
func (s *ClaimSession) RemoveFile(ctx context.Context, index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.files) {
		n := len(s.files)
		s.mu.Unlock()
		return fmt.Errorf("index %d, have %d files: %w", index, n, common.ErrIndexOutOfRange)
	}
	d := s.files[index]
	s.files = append(s.files[:index:index], s.files[index+1:]...)
	_, shared := s.referencedLocked()[d.ID]
	if d.ID != "" && !shared {
		delete(s.pending, d.ID)
	}
	s.touchLocked()
	s.mu.Unlock()

	if d.ID != "" && !shared && s.canWrite(tierBlobs) {
		if err := s.blobs.Delete(ctx, d.ID); err != nil {
			s.log.Warn(ctx, "failed to delete stored file", "id", d.ID, "error", err)
		}
	}

	s.notify(ctx, notify.FileRemoved, notify.LevelInfo, fmt.Sprintf("%s removed", d.Name), map[string]string{"name": d.Name})
	s.saveAfterMutation(ctx)
	return nil
}

// Files returns the descriptors in upload order.
func (s *ClaimSession) Files() []models.FileDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneDescriptors(s.files)
}

// Fields returns a copy of the form answers.
func (s *ClaimSession) Fields() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.fields)
}

// FileData returns the bytes of the file with the given id.
func (s *ClaimSession) FileData(ctx context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	var (
		d     models.FileDescriptor
		found bool
	)
	for _, f := range s.files {
		if f.ID == id {
			d, found = f, true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return nil, fmt.Errorf("file %s: %w", id, common.ErrorNotFound)
	}
	return s.fileBytes(ctx, d)
}

func (s *ClaimSession) fileBytes(ctx context.Context, d models.FileDescriptor) ([]byte, error) {
	if d.IsLegacy() {
		b, _, err := DecodeInlineData(d.LegacyData)
		return b, err
	}

	s.mu.Lock()
	b, ok := s.pending[d.ID]
	s.mu.Unlock()
	if ok {
		return b, nil
	}

	if s.blobs == nil || s.tier(tierBlobs) != models.TierAvailable {
		return nil, fmt.Errorf("file %s: %w", d.Name, common.ErrStoreUnavailable)
	}
	b, err := s.blobs.Get(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("file %s: %w", d.Name, err)
	}
	if b == nil {
		return nil, fmt.Errorf("file %s: %w", d.Name, common.ErrorNotFound)
	}
	return b, nil
}

// Snapshot returns a consistent copy of the current state.
func (s *ClaimSession) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *ClaimSession) snapshotLocked() models.Snapshot {
	return models.Snapshot{
		FormFields: maps.Clone(s.fields),
		Files:      models.CloneDescriptors(s.files),
		Timestamp:  s.now().UTC(),
	}
}

// Save writes the current state to the metadata store. It is a no-op once
// the claim is submitted or when the metadata tier is not available.
func (s *ClaimSession) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.submitted || s.metaState != models.TierAvailable {
		s.mu.Unlock()
		return nil
	}
	snap := s.snapshotLocked()
	rev := s.revision
	s.mu.Unlock()

	return s.persist(ctx, snap, rev)
}

func (s *ClaimSession) persist(ctx context.Context, snap models.Snapshot, rev uint64) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if s.persisted && rev <= s.savedRevision {
		s.log.Debug(ctx, "skipping stale save", "revision", rev, "saved", s.savedRevision)
		return nil
	}
	if s.Submitted() {
		return nil
	}

	if err := s.meta.Save(ctx, snap); err != nil {
		if errors.Is(err, common.ErrStoreUnavailable) {
			s.degrade(ctx, tierMeta, err)
			return err
		}
		s.log.Error(ctx, "failed to save claim", "revision", rev, "error", err)
		msg := "claim could not be saved"
		if errors.Is(err, common.ErrQuotaExceeded) {
			msg = "claim could not be saved: storage quota exceeded"
		}
		s.notify(ctx, notify.SaveFailed, notify.LevelError, msg, nil)
		return err
	}

	s.savedRevision, s.persisted = rev, true

	s.mu.Lock()
	if s.revision == rev {
		s.dirty = false
	}
	s.mu.Unlock()
	return nil
}

func (s *ClaimSession) saveAfterMutation(ctx context.Context) {
	// Failures are already reported to the user; input keeps flowing.
	_ = s.Save(ctx)
}

// Finalize validates the form and marks the claim submitted. From then on
// nothing is written to the durable stores and the periodic save stops.
func (s *ClaimSession) Finalize(ctx context.Context) error {
	if msgs := s.validator.Validate(s.Fields()); len(msgs) > 0 {
		return &ValidationError{Messages: msgs}
	}

	s.mu.Lock()
	if s.submitted {
		s.mu.Unlock()
		return nil
	}
	s.submitted = true
	if s.stopSweep != nil {
		s.stopSweep()
		s.stopSweep = nil
	}
	s.mu.Unlock()

	s.log.Info(ctx, "claim submitted")
	s.notify(ctx, notify.Submitted, notify.LevelInfo, "claim submitted", nil)
	return nil
}

// Submitted reports whether Finalize succeeded.
func (s *ClaimSession) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

// Clear resets the session to an empty active claim and removes the stored
// snapshot and every stored file it referenced.
func (s *ClaimSession) Clear(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.files)+len(s.pending))
	for id := range s.referencedLocked() {
		ids = append(ids, id)
	}
	for id := range s.pending {
		ids = append(ids, id)
	}
	s.fields = map[string]any{}
	s.files = nil
	s.pending = map[string][]byte{}
	wasSubmitted := s.submitted
	s.submitted = false
	s.touchLocked()
	s.dirty = false
	rev := s.revision
	parent := s.sweepCtx
	restart := wasSubmitted && parent != nil && parent.Err() == nil
	s.mu.Unlock()

	var errs []error

	s.saveMu.Lock()
	if s.tier(tierMeta) == models.TierAvailable {
		if err := s.meta.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.savedRevision, s.persisted = rev, true
	s.saveMu.Unlock()

	if s.blobs != nil && s.tier(tierBlobs) == models.TierAvailable {
		for _, id := range ids {
			if err := s.blobs.Delete(ctx, id); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if restart {
		s.Start(parent)
	}

	if err := errors.Join(errs...); err != nil {
		s.log.Warn(ctx, "claim cleared with errors", "error", err)
		return fmt.Errorf("failed to clear stored claim: %w", err)
	}
	s.log.Info(ctx, "claim cleared")
	return nil
}

// Start launches the periodic save. It returns immediately; the sweep ends
// when ctx is done or the claim is submitted.
func (s *ClaimSession) Start(ctx context.Context) {
	s.mu.Lock()
	if s.submitted || s.stopSweep != nil || s.interval <= 0 {
		s.mu.Unlock()
		return
	}
	s.sweepCtx = ctx
	sweepCtx, cancel := context.WithCancel(ctx)
	s.stopSweep = cancel
	s.mu.Unlock()

	go s.runSweep(sweepCtx)
}

func (s *ClaimSession) runSweep(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// sweep flushes files that are only in memory, retries migrations and saves
// when there are unsaved changes.
func (s *ClaimSession) sweep(ctx context.Context) {
	if s.Submitted() {
		return
	}

	if s.canWrite(tierBlobs) {
		s.flushPending(ctx)
		if s.migrateLegacy(ctx) > 0 {
			s.log.Info(ctx, "migrated legacy files on retry")
		}
	}

	s.mu.Lock()
	dirty := s.dirty
	s.mu.Unlock()
	if dirty {
		if err := s.Save(ctx); err != nil {
			s.log.Debug(ctx, "periodic save failed", "error", err)
		}
	}
}

func (s *ClaimSession) flushPending(ctx context.Context) {
	s.mu.Lock()
	pending := maps.Clone(s.pending)
	s.mu.Unlock()

	for id, data := range pending {
		if err := s.blobs.Put(ctx, id, data); err != nil {
			s.blobWriteFailed(ctx, id, err)
			return
		}
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		s.log.Debug(ctx, "stored pending file", "id", id)
	}
}

// Status summarizes the session for display.
func (s *ClaimSession) Status() models.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Status{
		Metadata:     s.metaState,
		Blobs:        s.blobState,
		Submitted:    s.submitted,
		Dirty:        s.dirty,
		Files:        len(s.files),
		PendingBlobs: len(s.pending),
		Revision:     s.revision,
	}
}

func (s *ClaimSession) touchLocked() {
	s.revision++
	s.dirty = true
}

type tierName int

const (
	tierMeta tierName = iota
	tierBlobs
)

func (s *ClaimSession) tier(t tierName) models.TierState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t == tierMeta {
		return s.metaState
	}
	return s.blobState
}

// canWrite reports whether durable writes to tier t may happen now.
func (s *ClaimSession) canWrite(t tierName) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return false
	}
	if t == tierMeta {
		return s.meta != nil && s.metaState == models.TierAvailable
	}
	return s.blobs != nil && s.blobState == models.TierAvailable
}

func (s *ClaimSession) blobWriteFailed(ctx context.Context, id string, err error) {
	if errors.Is(err, common.ErrStoreUnavailable) {
		s.degrade(ctx, tierBlobs, err)
		return
	}
	s.log.Warn(ctx, "failed to store file, keeping it in memory", "id", id, "error", err)
	s.notify(ctx, notify.SaveFailed, notify.LevelWarning, "a file could not be stored yet, it will be retried", nil)
}

// degrade switches tier t to degraded mode and warns the user once.
func (s *ClaimSession) degrade(ctx context.Context, t tierName, err error) {
	s.mu.Lock()
	state := &s.blobState
	what := "file store"
	if t == tierMeta {
		state = &s.metaState
		what = "claim data store"
	}
	if *state != models.TierAvailable {
		s.mu.Unlock()
		return
	}
	*state = models.TierDegraded
	s.mu.Unlock()

	s.log.Error(ctx, what+" unavailable, continuing in memory", "error", err)
	s.notify(ctx, notify.StorageDegraded, notify.LevelWarning,
		what+" is not available, changes are kept in memory only", map[string]string{"tier": what})
}

func (s *ClaimSession) notify(ctx context.Context, kind notify.Kind, level notify.Level, msg string, attrs map[string]string) {
	s.notifier.Notify(ctx, notify.Notification{Kind: kind, Level: level, Message: msg, Attrs: attrs, Time: s.now()})
}
