// Package artifacts publishes executed notebooks to S3-compatible storage.
package artifacts

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/spachava753/nbsmoke/internal/models"
)

// Publisher stores executed notebooks and returns where they were put.
type Publisher interface {
	Publish(ctx context.Context, runID, localPath string) (string, error)
}

// S3Publisher uploads executed notebooks with minio-go.
type S3Publisher struct {
	client *minio.Client
	cfg    models.ArtifactConfig
}

// NewS3Publisher creates a publisher from cfg, reading credentials from the
// environment variables it names.
func NewS3Publisher(cfg models.ArtifactConfig) (*S3Publisher, error) {
	accessKey := os.Getenv(cfg.AccessKeyEnv)
	secretKey := os.Getenv(cfg.SecretKeyEnv)
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("artifact credentials missing: set %s and %s", cfg.AccessKeyEnv, cfg.SecretKeyEnv)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}

	return &S3Publisher{client: client, cfg: cfg}, nil
}

// CheckBucket verifies the configured bucket exists.
func (p *S3Publisher) CheckBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", p.cfg.Bucket, err)
	}
	if !exists {
		return fmt.Errorf("artifact bucket missing: %s", p.cfg.Bucket)
	}
	return nil
}

// Publish uploads localPath under <prefix>/<runID>/<file name>.
func (p *S3Publisher) Publish(ctx context.Context, runID, localPath string) (string, error) {
	key := ObjectKey(p.cfg.Prefix, runID, localPath)

	_, err := p.client.FPutObject(ctx, p.cfg.Bucket, key, localPath, minio.PutObjectOptions{
		ContentType: ContentType(localPath),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", localPath, err)
	}

	return fmt.Sprintf("s3://%s/%s", p.cfg.Bucket, key), nil
}

// ObjectKey returns the object name for a file produced by run runID.
func ObjectKey(prefix, runID, localPath string) string {
	name := path.Base(strings.ReplaceAll(localPath, "\\", "/"))
	return path.Join(strings.Trim(prefix, "/"), runID, name)
}

// ContentType returns the content type stored alongside an artifact.
func ContentType(localPath string) string {
	switch path.Ext(localPath) {
	case models.NotebookExt:
		return "application/x-ipynb+json"
	case ".log":
		return "text/plain; charset=utf-8"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
