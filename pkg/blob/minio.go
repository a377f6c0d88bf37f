package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jdziat/simple-uow/pkg/core"
)

// DefaultBucket is used when MinIOConfig.Bucket is empty.
const DefaultBucket = "simple-uow"

// MinIOConfig holds connection settings for MinIOStorage.
type MinIOConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Region        string
	Bucket        string
	Prefix        string
	PresignExpiry time.Duration
	CreateBucket  bool
}

// MinIOStorage implements core.BlobStore on an S3-compatible object store.
type MinIOStorage struct {
	client *minio.Client
	bucket string
	prefix string
	expiry time.Duration
}

// NewMinIOStorage connects to cfg.Endpoint. When cfg.CreateBucket is set the
// bucket is created if it does not exist.
func NewMinIOStorage(ctx context.Context, cfg MinIOConfig) (*MinIOStorage, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("uow: minio endpoint is required")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	s := NewMinIOStorageWithClient(client, cfg.Bucket, cfg.Prefix, cfg.PresignExpiry)
	if cfg.CreateBucket {
		if err := s.ensureBucket(ctx, cfg.Region); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewMinIOStorageWithClient wires an existing client.
func NewMinIOStorageWithClient(client *minio.Client, bucket, prefix string, expiry time.Duration) *MinIOStorage {
	if bucket = strings.TrimSpace(bucket); bucket == "" {
		bucket = DefaultBucket
	}
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &MinIOStorage{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		expiry: expiry,
	}
}

func (s *MinIOStorage) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Get opens the object at location. A missing object yields core.ErrNotFound.
func (s *MinIOStorage) Get(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key := s.resolve(location)
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapErr(location, err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller reads.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, s.mapErr(location, err)
	}
	return obj, nil
}

// Put streams r to the object at location.
func (s *MinIOStorage) Put(ctx context.Context, location string, r io.Reader) error {
	bucket, key := s.resolve(location)
	_, err := s.client.PutObject(ctx, bucket, key, r, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", location, err)
	}
	return nil
}

// PresignGet returns a time-limited GET URL for location.
func (s *MinIOStorage) PresignGet(ctx context.Context, location string) (string, error) {
	bucket, key := s.resolve(location)
	u, err := s.client.PresignedGetObject(ctx, bucket, key, s.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", location, err)
	}
	return u.String(), nil
}

func (s *MinIOStorage) mapErr(location string, err error) error {
	if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
		return fmt.Errorf("%w: blob %s", core.ErrNotFound, location)
	}
	return fmt.Errorf("get %s: %w", location, err)
}

// resolve maps a location to a bucket and object key.
func (s *MinIOStorage) resolve(location string) (bucket, key string) {
	bucket = s.bucket
	key = location

	if strings.Contains(location, "://") {
		if u, err := url.Parse(location); err == nil {
			if u.Host != "" {
				bucket = u.Host
			}
			key = u.Path
		}
	}

	if s.prefix != "" {
		key = path.Join(s.prefix, key)
	}
	return bucket, strings.TrimLeft(key, "/")
}
