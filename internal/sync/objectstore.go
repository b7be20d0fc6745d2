package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

//go:generate mockgen -destination=mocks/mock_object_store.go -package=mocks github.com/stacklok/connector-lifecycle-server/internal/sync ObjectStore

// DefaultObjectPrefix is the key prefix of uploaded documents
const DefaultObjectPrefix = "qbusiness-docs"

// ObjectStore holds the content of documents too large to send inline
type ObjectStore interface {
	// Upload stores content under key and returns where it was stored
	Upload(ctx context.Context, key string, content []byte, contentType string) (*S3Reference, error)
}

// ObjectKey returns the key a document is uploaded under
func ObjectKey(prefix string, doc *Document) string {
	return strings.TrimRight(prefix, "/") + "/" + doc.ID + path.Ext(doc.Path)
}

// ObjectStoreConfig configures an S3 compatible store
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region,omitempty"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix,omitempty"`
	AccessKey string `yaml:"accessKey,omitempty"`
	SecretKey string `yaml:"secretKey,omitempty"`
	UseSSL    bool   `yaml:"useSSL,omitempty"`
}

// Validate checks the configuration
func (c *ObjectStoreConfig) Validate() error {
	if c.Endpoint == "" {
		return errors.New("object store endpoint is required")
	}
	if c.Bucket == "" {
		return errors.New("object store bucket is required")
	}
	return nil
}

// MinioStore stores objects in one bucket of an S3 compatible service
type MinioStore struct {
	client *minio.Client
	bucket string
}

var _ ObjectStore = (*MinioStore)(nil)

// NewMinioStore connects to the store described by cfg
func NewMinioStore(cfg *ObjectStoreConfig) (*MinioStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}
	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// Upload stores content under key
func (s *MinioStore) Upload(ctx context.Context, key string, content []byte, contentType string) (*S3Reference, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return &S3Reference{Bucket: s.bucket, Key: key}, nil
}
