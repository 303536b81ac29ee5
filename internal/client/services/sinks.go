package services

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/claimkeeper/internal/filex"
	"github.com/dmitrijs2005/claimkeeper/internal/netx"
)

// DirSink writes export artifacts into a local directory. Name clashes get
// a " (n)" suffix, as browsers do for repeated downloads.
type DirSink struct {
	Dir string

	mu sync.Mutex
}

func NewDirSink(dir string) *DirSink {
	return &DirSink{Dir: dir}
}

func (d *DirSink) WriteDocument(ctx context.Context, name string, doc []byte) error {
	return d.write(ctx, name, doc)
}

func (d *DirSink) WriteFile(ctx context.Context, name, _ string, data []byte) error {
	return d.write(ctx, name, data)
}

func (d *DirSink) write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	dir, err := filex.EnsureDir(d.Dir)
	if err != nil {
		return err
	}
	target := uniquePath(dir, filex.SanitizeFilename(name))
	return filex.WriteFileAtomic(target, data, 0o600)
}

func uniquePath(dir, name string) string {
	p := filepath.Join(dir, name)
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return p
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		p = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, i, ext))
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return p
		}
	}
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// S3Config locates the bucket exports are uploaded to.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
}

// S3Sink uploads export artifacts to an S3-compatible bucket through
// presigned PUT URLs, one object per artifact under Prefix/<export time>/.
type S3Sink struct {
	cfg    S3Config
	http   *http.Client
	folder string

	once      sync.Once
	presigner *s3.PresignClient
	initErr   error
}

func NewS3Sink(cfg S3Config, httpClient *http.Client, now time.Time) *S3Sink {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &S3Sink{cfg: cfg, http: httpClient, folder: now.UTC().Format("20060102T150405Z")}
}

func (s *S3Sink) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	s.once.Do(func() {
		opts := []func(*config.LoadOptions) error{config.WithRegion(s.cfg.Region)}
		if s.cfg.AccessKey != "" {
			opts = append(opts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(s.cfg.AccessKey, s.cfg.SecretKey, "")))
		}
		cfg, err := loadDefaultAWSConfig(ctx, opts...)
		if err != nil {
			s.initErr = fmt.Errorf("failed to load aws config: %w", err)
			return
		}
		client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
			if s.cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(s.cfg.Endpoint)
				o.UsePathStyle = true
			}
		})
		s.presigner = newS3PresignClient(client)
	})
	return s.presigner, s.initErr
}

func (s *S3Sink) key(name string) string {
	return path.Join(s.cfg.Prefix, s.folder, filex.SanitizeFilename(name))
}

func (s *S3Sink) WriteDocument(ctx context.Context, name string, doc []byte) error {
	return s.put(ctx, name, "application/json", doc)
}

func (s *S3Sink) WriteFile(ctx context.Context, name, contentType string, data []byte) error {
	return s.put(ctx, name, contentType, data)
}

func (s *S3Sink) put(ctx context.Context, name, contentType string, data []byte) error {
	pc, err := s.getPresignClient(ctx)
	if err != nil {
		return err
	}

	in := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(name)),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	req, err := presignPutObject(pc, ctx, in, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return fmt.Errorf("failed to presign %s: %w", name, err)
	}
	return netx.UploadToPresignedURL(ctx, s.http, req.URL, contentType, data)
}
