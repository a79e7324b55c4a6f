package snapshot

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// RemoteConfig describes an S3-compatible bucket for snapshots
type RemoteConfig struct {
	Access   string
	Secret   string
	Bucket   string
	Endpoint string
	Region   string
	// use http instead of https, for local minio servers
	Insecure bool
}

// IsSet returns true if enough is configured to attempt an upload
func (c *RemoteConfig) IsSet() bool {
	return c != nil && c.Access != "" && c.Secret != "" && c.Bucket != "" && c.Endpoint != ""
}

// Uploader uploads snapshot files to a bucket
type Uploader struct {
	Client *minio.Client
	Bucket string
}

// NewUploader connects to the bucket and checks that it exists
func NewUploader(ctx context.Context, config *RemoteConfig) (*Uploader, error) {
	if config == nil {
		return nil, errors.New("must provide config")
	}
	if !config.IsSet() {
		return nil, errors.New("must provide access, secret, bucket and endpoint in config")
	}
	mc, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.Access, config.Secret, ""),
		Region: config.Region,
		Secure: !config.Insecure,
	})
	if err != nil {
		return nil, err
	}
	found, err := mc.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("bucket '%s' doesn't exist", config.Bucket)
	}
	return &Uploader{
		Client: mc,
		Bucket: config.Bucket,
	}, nil
}

func contentTypeForSnapshot(path string) string {
	switch compressionExt(path) {
	case ExtGzip:
		return "application/gzip"
	case ExtZstd:
		return "application/zstd"
	case ExtBrotli:
		return "application/x-brotli"
	}
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Upload uploads the file at localPath as remotePath
func (u *Uploader) Upload(ctx context.Context, localPath string, remotePath string) error {
	opts := minio.PutObjectOptions{
		ContentType: contentTypeForSnapshot(localPath),
	}
	_, err := u.Client.FPutObject(ctx, u.Bucket, remotePath, localPath, opts)
	if err != nil {
		return fmt.Errorf("upload of '%s' as '%s' failed with '%w'", localPath, remotePath, err)
	}
	return nil
}
