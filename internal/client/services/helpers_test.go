package services

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/client/models"
	"github.com/dmitrijs2005/claimkeeper/internal/client/notify"
	"github.com/dmitrijs2005/claimkeeper/internal/client/repositories/files"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

// memMeta is an in-memory MetadataStore.
type memMeta struct {
	mu      sync.Mutex
	snap    *models.Snapshot
	saves   int
	clears  int
	saveErr error
	loadErr error
}

func (m *memMeta) Save(_ context.Context, snap models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	cp := snap
	cp.FormFields = maps.Clone(snap.FormFields)
	var stored []models.FileDescriptor
	if m.snap != nil {
		stored = m.snap.Files
	}
	cp.Files = models.PersistableDescriptors(snap.Files, stored)
	m.snap = &cp
	return nil
}

func (m *memMeta) Load(context.Context) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.snap == nil {
		return nil, nil
	}
	cp := *m.snap
	cp.FormFields = maps.Clone(m.snap.FormFields)
	cp.Files = models.CloneDescriptors(m.snap.Files)
	return &cp, nil
}

func (m *memMeta) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	m.snap = nil
	return nil
}

func (m *memMeta) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *memMeta) last() *models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// metaMock is a testify mock of MetadataStore.
type metaMock struct {
	mock.Mock
}

func (m *metaMock) Save(ctx context.Context, snap models.Snapshot) error {
	return m.Called(ctx, snap).Error(0)
}

func (m *metaMock) Load(ctx context.Context) (*models.Snapshot, error) {
	args := m.Called(ctx)
	snap, _ := args.Get(0).(*models.Snapshot)
	return snap, args.Error(1)
}

func (m *metaMock) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// countingBlobs wraps a repository, counts writes and can fail Put.
type countingBlobs struct {
	files.Repository

	mu       sync.Mutex
	puts     int
	deletes  int
	failPuts int
	putErr   error
}

func (c *countingBlobs) Put(ctx context.Context, id string, blob []byte) error {
	c.mu.Lock()
	if c.failPuts > 0 {
		c.failPuts--
		c.mu.Unlock()
		return c.putErr
	}
	c.puts++
	c.mu.Unlock()
	return c.Repository.Put(ctx, id, blob)
}

func (c *countingBlobs) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	c.deletes++
	c.mu.Unlock()
	return c.Repository.Delete(ctx, id)
}

func (c *countingBlobs) writes() (puts, deletes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.puts, c.deletes
}

func newBolt(t *testing.T) *files.BoltRepository {
	t.Helper()
	r := files.NewBoltRepository(filepath.Join(t.TempDir(), "files.db"))
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// brokenBolt returns a repository whose Open always fails.
func brokenBolt(t *testing.T) *files.BoltRepository {
	t.Helper()
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	return files.NewBoltRepository(filepath.Join(blocker, "files.db"))
}

func seqIDs() func() (string, error) {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n), nil
	}
}

func newTestSession(meta MetadataStore, blobs files.Repository, opts ...SessionOption) (*ClaimSession, *notify.Recorder) {
	rec := &notify.Recorder{}
	base := []SessionOption{
		WithNotifier(rec),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(seqIDs()),
		WithExportDelay(0),
	}
	return NewClaimSession(meta, blobs, append(base, opts...)...), rec
}

func pdf(name string, size int) models.RawFile {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	copy(data, "%PDF-1.7")
	return models.RawFile{Name: name, Type: "application/pdf", Data: data}
}

func validClaim() map[string]any {
	return map[string]any{
		"insured-name":       "Jane Doe",
		"phone":              "+15551234567",
		"accident-time":      "2024-01-01",
		"accident-situation": "traffic-accident",
		"agreement":          true,
	}
}

func fillClaim(t *testing.T, s *ClaimSession) {
	t.Helper()
	for k, v := range validClaim() {
		require.NoError(t, s.SetField(context.Background(), k, v))
	}
}

// memSink records export artifacts.
type memSink struct {
	mu       sync.Mutex
	docs     map[string][]byte
	files    []sinkFile
	writeErr error
}

type sinkFile struct {
	Name string
	Type string
	Data []byte
	At   time.Time
}

func (m *memSink) WriteDocument(_ context.Context, name string, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs == nil {
		m.docs = map[string][]byte{}
	}
	m.docs[name] = doc
	return nil
}

func (m *memSink) WriteFile(_ context.Context, name, contentType string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.files = append(m.files, sinkFile{Name: name, Type: contentType, Data: data, At: time.Now()})
	return nil
}
