package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
)

// ObjectStore is the contract the pipeline needs from the remote object store.
// Put and Delete are never retried here; Delete of a missing key succeeds.
type ObjectStore interface {
	Put(ctx context.Context, key, filePath, mimeType string) error
	Stat(ctx context.Context, key string) (ObjectMetadata, error)
	Delete(ctx context.Context, key string) error
}

type minioAPI interface {
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// MinIOStore adapts minio.Client to ObjectStore.
type MinIOStore struct {
	client minioAPI
	bucket string
}

// NewMinIOStore constructs an adapter writing to bucket.
func NewMinIOStore(client minioAPI, bucket string) *MinIOStore {
	return &MinIOStore{client: client, bucket: bucket}
}

// Put uploads the file at filePath under key.
func (s *MinIOStore) Put(ctx context.Context, key, filePath, mimeType string) error {
	_, err := s.client.FPutObject(ctx, s.bucket, key, filePath, minio.PutObjectOptions{
		ContentType: mimeType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Stat fetches the store's view of key. Missing keys yield ErrObjectNotFound.
func (s *MinIOStore) Stat(ctx context.Context, key string) (ObjectMetadata, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return ObjectMetadata{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return ObjectMetadata{}, fmt.Errorf("stat object %s: %w", key, err)
	}
	return ObjectMetadata{
		Key:          key,
		ContentType:  info.ContentType,
		SizeBytes:    info.Size,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// PresignGet returns a time-limited download URL for key.
func (s *MinIOStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", key, err)
	}
	return u.String(), nil
}

func isNotFound(err error) bool {
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return false
	}
	return resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" || resp.Code == "NotFound"
}
