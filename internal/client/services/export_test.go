package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/claimkeeper/internal/client/models"
	"github.com/dmitrijs2005/claimkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExport_SubmittedClaimWithOnePDF(t *testing.T) {
	s, _ := newTestSession(&memMeta{}, newBolt(t))
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	fillClaim(t, s)
	report := pdf("police report.pdf", 2<<20)
	_, err := s.AddFile(ctx, report)
	require.NoError(t, err)
	require.NoError(t, s.Finalize(ctx))

	sink := &memSink{}
	res, err := s.Export(ctx, sink)
	require.NoError(t, err)

	require.Len(t, sink.docs, 1)
	raw := sink.docs[res.DocumentName]
	require.NotNil(t, raw)
	assert.Equal(t, "claim-20240101-100000.json", res.DocumentName)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "Jane Doe", doc["formData"].(map[string]any)["insured-name"])
	assert.Equal(t, true, doc["formData"].(map[string]any)["agreement"])
	assert.Equal(t, models.ExportNote, doc["note"])
	assert.Equal(t, "2024-01-01T10:00:00Z", doc["exportTime"])

	uploaded := doc["uploadedFiles"].([]any)
	require.Len(t, uploaded, 1)
	first := uploaded[0].(map[string]any)
	assert.Equal(t, true, first["dataRemoved"])
	assert.Equal(t, "police report.pdf", first["name"])
	assert.EqualValues(t, 2<<20, first["size"])
	assert.NotContains(t, first, "data")

	require.Len(t, sink.files, 1)
	assert.Equal(t, "police report.pdf", sink.files[0].Name)
	assert.Equal(t, "application/pdf", sink.files[0].Type)
	assert.Equal(t, report.Data, sink.files[0].Data)
}

func TestExport_DelayBetweenFilesAndSanitizedNames(t *testing.T) {
	s, _ := newTestSession(nil, nil, WithExportDelay(20*time.Millisecond))
	ctx := context.Background()

	for _, name := range []string{"a:1.pdf", "b/2.pdf", "c*3.pdf"} {
		_, err := s.AddFile(ctx, pdf(name, 10))
		require.NoError(t, err)
	}

	sink := &memSink{}
	res, err := s.Export(ctx, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"a_1.pdf", "b_2.pdf", "c_3.pdf"}, res.FileNames)
	require.Len(t, sink.files, 3)
	for i := 1; i < 3; i++ {
		assert.GreaterOrEqual(t, sink.files[i].At.Sub(sink.files[i-1].At), 20*time.Millisecond)
	}
}

func TestExport_CancelledDuringDelay(t *testing.T) {
	s, _ := newTestSession(nil, nil, WithExportDelay(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())

	for i := 0; i < 2; i++ {
		_, err := s.AddFile(ctx, pdf("a.pdf", 10))
		require.NoError(t, err)
	}

	sink := &memSink{}
	time.AfterFunc(20*time.Millisecond, cancel)
	_, err := s.Export(ctx, sink)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, sink.files, 1)
}

func TestExport_UnreadableFileIsSkipped(t *testing.T) {
	meta := &memMeta{snap: &models.Snapshot{Files: []models.FileDescriptor{
		{ID: "missing", Name: "gone.pdf", Size: 1, Type: "application/pdf"},
		{Name: "legacy.pdf", Type: "application/pdf", LegacyData: "!!broken!!"},
	}}}
	s, _ := newTestSession(meta, nil)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))
	_, err := s.AddFile(ctx, pdf("ok.pdf", 5))
	require.NoError(t, err)

	sink := &memSink{}
	res, err := s.Export(ctx, sink)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	assert.ErrorIs(t, err, common.ErrLegacyDecode)
	assert.Equal(t, []string{"ok.pdf"}, res.FileNames)
	assert.Len(t, res.Document.UploadedFiles, 3)
}

func TestExport_SinkFailure(t *testing.T) {
	s, _ := newTestSession(nil, nil)
	ctx := context.Background()
	_, err := s.AddFile(ctx, pdf("a.pdf", 5))
	require.NoError(t, err)

	boom := errors.New("read-only")
	_, err = s.Export(ctx, &memSink{writeErr: boom})
	require.ErrorIs(t, err, boom)
}

func TestDirSink_WritesAndAvoidsClashes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	sink := NewDirSink(dir)
	ctx := context.Background()

	require.NoError(t, sink.WriteDocument(ctx, "claim.json", []byte(`{}`)))
	require.NoError(t, sink.WriteFile(ctx, "a.pdf", "application/pdf", []byte("1")))
	require.NoError(t, sink.WriteFile(ctx, "a.pdf", "application/pdf", []byte("2")))
	require.NoError(t, sink.WriteFile(ctx, "../evil.pdf", "application/pdf", []byte("3")))

	read := func(name string) string {
		b, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		return string(b)
	}
	assert.Equal(t, `{}`, read("claim.json"))
	assert.Equal(t, "1", read("a.pdf"))
	assert.Equal(t, "2", read("a (1).pdf"))
	assert.Equal(t, "3", read(".._evil.pdf"))
}

func TestDirSink_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewDirSink(t.TempDir()).WriteFile(ctx, "a", "", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func stubS3(t *testing.T, presignErr error) *[]string {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		require.NotNil(t, opts.BaseEndpoint)
		assert.True(t, opts.UsePathStyle)
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}

	var mu sync.Mutex
	keys := []string{}
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if presignErr != nil {
			return nil, presignErr
		}
		mu.Lock()
		keys = append(keys, *in.Key)
		mu.Unlock()
		return &v4.PresignedHTTPRequest{URL: presignURL + "/" + *in.Bucket + "/" + *in.Key, Method: http.MethodPut}, nil
	}
	return &keys
}

var presignURL string

func TestS3Sink_UploadsThroughPresignedURLs(t *testing.T) {
	var mu sync.Mutex
	got := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		mu.Lock()
		got[r.URL.Path] = r.Header.Get("Content-Type") + "|" + string(body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	presignURL = srv.URL

	keys := stubS3(t, nil)
	sink := NewS3Sink(S3Config{Endpoint: "http://minio:9000", Region: "us-east-1", Bucket: "claims", Prefix: "exports"},
		srv.Client(), fixedNow)
	ctx := context.Background()

	require.NoError(t, sink.WriteDocument(ctx, "claim.json", []byte(`{}`)))
	require.NoError(t, sink.WriteFile(ctx, "a:b.pdf", "application/pdf", []byte("pdf")))

	assert.Equal(t, []string{"exports/20240101T100000Z/claim.json", "exports/20240101T100000Z/a_b.pdf"}, *keys)
	assert.Equal(t, "application/json|{}", got["/claims/exports/20240101T100000Z/claim.json"])
	assert.Equal(t, "application/pdf|pdf", got["/claims/exports/20240101T100000Z/a_b.pdf"])
}

func TestS3Sink_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()
	presignURL = srv.URL

	t.Run("upload rejected", func(t *testing.T) {
		stubS3(t, nil)
		sink := NewS3Sink(S3Config{Endpoint: "http://x", Region: "us-east-1", Bucket: "b"}, srv.Client(), fixedNow)
		err := sink.WriteFile(context.Background(), "a.pdf", "application/pdf", []byte("x"))
		require.ErrorContains(t, err, "upload failed: 403")
	})

	t.Run("presign fails", func(t *testing.T) {
		stubS3(t, errors.New("no credentials"))
		sink := NewS3Sink(S3Config{Endpoint: "http://x", Region: "us-east-1", Bucket: "b"}, srv.Client(), fixedNow)
		err := sink.WriteFile(context.Background(), "a.pdf", "application/pdf", []byte("x"))
		require.ErrorContains(t, err, "failed to presign a.pdf")
	})

	t.Run("config fails once and sticks", func(t *testing.T) {
		stubS3(t, nil)
		calls := 0
		loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
			calls++
			return aws.Config{}, errors.New("bad profile")
		}
		sink := NewS3Sink(S3Config{Region: "us-east-1", Bucket: "b"}, srv.Client(), fixedNow)
		for i := 0; i < 2; i++ {
			err := sink.WriteFile(context.Background(), "a.pdf", "", []byte("x"))
			require.ErrorContains(t, err, "failed to load aws config")
		}
		assert.Equal(t, 1, calls)
	})
}
