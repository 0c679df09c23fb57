package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"docviewer/internal/config"
	"docviewer/internal/model"
)

// minioStore implements DocumentStore on an S3-compatible bucket (MinIO, AWS S3, etc.).
// Documents live directly under a key prefix. It is safe for concurrent use by multiple goroutines.
type minioStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIO creates a document store backed by MinIO.
// Unlike an upload target, the bucket must already exist: the store is read-only.
func NewMinIO(cfg config.MinIOConfig) (DocumentStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("minio bucket %q does not exist", cfg.Bucket)
	}

	return &minioStore{client: cli, bucket: cfg.Bucket, prefix: normalizePrefix(cfg.Prefix)}, nil
}

func normalizePrefix(p string) string {
	p = strings.TrimLeft(p, "/")
	if p != "" && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// Read downloads the named document.
func (m *minioStore) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	obj, err := m.client.GetObject(ctx, m.bucket, m.prefix+name, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinIOError(name, err)
	}
	defer obj.Close()

	b, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapMinIOError(name, err)
	}
	return b, nil
}

// List returns the objects directly under the prefix.
func (m *minioStore) List(ctx context.Context) ([]model.Document, error) {
	// stops the listing goroutine on early return
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	docs := make([]model.Document, 0)
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: m.prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list documents: %w", obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, m.prefix)
		// common prefixes come back as "dir/"
		if name == "" || strings.HasSuffix(name, "/") || strings.HasPrefix(name, ".") {
			continue
		}
		docs = append(docs, model.Document{
			Name:       name,
			Size:       obj.Size,
			ModifiedAt: obj.LastModified.UTC(),
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

func mapMinIOError(name string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchObject":
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return fmt.Errorf("read %s: %w", name, err)
}
