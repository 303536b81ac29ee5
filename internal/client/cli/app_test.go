package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/client/config"
	"github.com/dmitrijs2005/claimkeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	c := &config.Config{}
	c.LoadDefaults()
	c.DataDir = filepath.Join(dir, "data")
	c.ExportDir = filepath.Join(dir, "exports")
	c.ExportDelay = 0
	c.BridgeAddr = ""
	c.Resolve()
	return c
}

func newTestApp(t *testing.T, c *config.Config, input string) (*App, *bytes.Buffer) {
	t.Helper()
	app, err := NewApp(context.Background(), c, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	app.out = &out
	app.reader = rdr(input)
	app.interactive = false
	return app, &out
}

func loadedApp(t *testing.T, input string) (*App, *bytes.Buffer) {
	t.Helper()
	app, out := newTestApp(t, testConfig(t), input)
	t.Cleanup(app.Close)
	unsubscribe := app.bus.Subscribe(app.printNotification)
	t.Cleanup(unsubscribe)
	require.NoError(t, app.session.Load(context.Background()))
	return app, out
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestApp_SetFieldsAndUnset(t *testing.T) {
	ctx := context.Background()
	app, out := loadedApp(t, "line one\nline two\n\n")

	require.NoError(t, app.Set(ctx, []string{"insured-name", "Jane", "Doe"}))
	require.NoError(t, app.Set(ctx, []string{"agreement", "true"}))
	require.NoError(t, app.Set(ctx, []string{"accident-description"}))
	require.Error(t, app.Set(ctx, nil))

	fields := app.session.Fields()
	assert.Equal(t, "Jane Doe", fields["insured-name"])
	assert.Equal(t, true, fields["agreement"])
	assert.Equal(t, "line one\nline two", fields["accident-description"])

	require.NoError(t, app.Unset(ctx, []string{"agreement"}))
	out.Reset()
	require.NoError(t, app.Fields(ctx))
	assert.Equal(t, "accident-description = line one\nline two\ninsured-name = Jane Doe\n", out.String())
}

func TestApp_RootMultilineSetFromPipedInput(t *testing.T) {
	capturePrint(t)
	app, _ := loadedApp(t, "set accident-description\nline one\nline two\n\nset phone +15551234567\nexit\n")

	app.Root(context.Background())

	fields := app.session.Fields()
	assert.Equal(t, "line one\nline two", fields["accident-description"])
	assert.Equal(t, "+15551234567", fields["phone"])
}

func TestApp_FilesLifecycle(t *testing.T) {
	ctx := context.Background()
	app, out := loadedApp(t, "")

	pdf := writeFile(t, "scan.pdf", []byte("%PDF-1.4"))
	txt := writeFile(t, "notes.txt", []byte("hello"))

	require.NoError(t, app.AddFile(ctx, []string{pdf, txt, "/does/not/exist.png"}))
	assert.Contains(t, out.String(), "exist.png")

	out.Reset()
	require.NoError(t, app.Files(ctx))
	assert.Equal(t, "1. scan.pdf (application/pdf, 8 bytes)\n", out.String())

	require.Error(t, app.RemoveFile(ctx, []string{"x"}))
	require.Error(t, app.RemoveFile(ctx, []string{"2"}))
	require.NoError(t, app.RemoveFile(ctx, []string{"1"}))

	out.Reset()
	require.NoError(t, app.Files(ctx))
	assert.Equal(t, "No files attached\n", out.String())
}

func TestApp_SubmitRequiresCompleteClaim(t *testing.T) {
	ctx := context.Background()
	app, out := loadedApp(t, "")

	require.NoError(t, app.Submit(ctx))
	assert.Contains(t, out.String(), "The claim is not complete:")
	assert.False(t, app.session.Submitted())

	for _, line := range []string{
		"insured-name Jane", "phone +15551234567", "accident-time 2024-01-01",
		"accident-situation theft", "agreement true",
	} {
		require.NoError(t, app.Set(ctx, strings.Fields(line)))
	}
	require.NoError(t, app.AddFile(ctx, []string{writeFile(t, "photo.png", []byte{0x89, 'P', 'N', 'G'})}))

	out.Reset()
	require.NoError(t, app.Submit(ctx))
	assert.True(t, app.session.Submitted())
	assert.Contains(t, out.String(), "Claim submitted")

	entries, err := os.ReadDir(app.config.ExportDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, app.Clear(ctx))
	assert.False(t, app.session.Submitted())
	assert.Empty(t, app.session.Fields())
}

func TestApp_ClearAsksWhenInteractive(t *testing.T) {
	ctx := context.Background()
	app, _ := loadedApp(t, "n\ny\n")
	app.interactive = true

	require.NoError(t, app.Set(ctx, []string{"phone", "+15551234567"}))

	require.NoError(t, app.Clear(ctx))
	assert.Len(t, app.session.Fields(), 1)

	require.NoError(t, app.Clear(ctx))
	assert.Empty(t, app.session.Fields())
}

func TestApp_ExportTargets(t *testing.T) {
	ctx := context.Background()
	app, out := loadedApp(t, "")

	require.NoError(t, app.Export(ctx, nil))
	assert.Contains(t, out.String(), "Exported claim-")

	require.ErrorContains(t, app.Export(ctx, []string{"s3"}), "no S3 bucket")
	require.ErrorContains(t, app.Export(ctx, []string{"ftp"}), "unknown export target")
}

func TestApp_StatusAndWatcher(t *testing.T) {
	ctx := context.Background()
	app, out := loadedApp(t, "")

	require.NoError(t, app.Status(ctx))
	assert.Contains(t, out.String(), "answers store: available")
	assert.Contains(t, out.String(), "file store:    available")

	app.last = app.session.Status()
	assert.False(t, app.checkStatus())

	app.last = models.Status{Metadata: models.TierDegraded, Blobs: models.TierAvailable}
	out.Reset()
	assert.True(t, app.checkStatus())
	assert.Equal(t, "Storage: answers available, files available\n", out.String())
	assert.Equal(t, "(0 file(s))", app.getStatus())
}

func TestApp_PrintNotification(t *testing.T) {
	ctx := context.Background()
	app, out := loadedApp(t, "")

	require.NoError(t, app.AddFile(ctx, []string{writeFile(t, "notes.txt", []byte("x"))}))
	assert.Contains(t, out.String(), "* warning: ")
}

func TestApp_RunPersistsAcrossRestarts(t *testing.T) {
	c := testConfig(t)

	app, _ := newTestApp(t, c, "set insured-name Jane\nexit\n")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Run(ctx))

	again, _ := newTestApp(t, c, "")
	t.Cleanup(again.Close)
	require.NoError(t, again.session.Load(context.Background()))
	assert.Equal(t, "Jane", again.session.Fields()["insured-name"])
}

func TestApp_UnusableDatabaseDegrades(t *testing.T) {
	c := testConfig(t)
	c.MetadataDSN = filepath.Join(t.TempDir(), "missing", "dir", "claim.db")

	app, _ := newTestApp(t, c, "")
	t.Cleanup(app.Close)
	require.NoError(t, app.session.Load(context.Background()))

	assert.Equal(t, models.TierDisabled, app.session.Status().Metadata)
	assert.Equal(t, models.TierAvailable, app.session.Status().Blobs)
}
