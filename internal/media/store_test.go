package media

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
)

type fakeMinio struct {
	putBucket, putKey, putPath string
	putOpts                    minio.PutObjectOptions
	putErr                     error
	statInfo                   minio.ObjectInfo
	statErr                    error
	removeErr                  error
	removed                    []string
}

func (f *fakeMinio) FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.putBucket, f.putKey, f.putPath, f.putOpts = bucketName, objectName, filePath, opts
	return minio.UploadInfo{Key: objectName}, f.putErr
}

func (f *fakeMinio) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return f.statInfo, f.statErr
}

func (f *fakeMinio) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	f.removed = append(f.removed, objectName)
	return f.removeErr
}

func (f *fakeMinio) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error) {
	return url.Parse("https://minio.local/" + bucketName + "/" + objectName + "?X-Amz-Expires=" + expires.String())
}

func TestMinIOStorePutSetsContentType(t *testing.T) {
	api := &fakeMinio{}
	store := NewMinIOStore(api, "media")

	if err := store.Put(context.Background(), "pics/a.jpg", "/tmp/a", "image/jpeg"); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if api.putBucket != "media" || api.putKey != "pics/a.jpg" || api.putPath != "/tmp/a" {
		t.Fatalf("unexpected put target: %s %s %s", api.putBucket, api.putKey, api.putPath)
	}
	if api.putOpts.ContentType != "image/jpeg" {
		t.Fatalf("unexpected content type %q", api.putOpts.ContentType)
	}
}

func TestMinIOStorePutSurfacesError(t *testing.T) {
	cause := errors.New("connection reset")
	store := NewMinIOStore(&fakeMinio{putErr: cause}, "media")

	if err := store.Put(context.Background(), "pics/a.jpg", "/tmp/a", "image/jpeg"); !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestMinIOStoreStatMapsMetadata(t *testing.T) {
	modified := time.Now().UTC().Truncate(time.Second)
	api := &fakeMinio{statInfo: minio.ObjectInfo{ContentType: "video/mp4", Size: 42, ETag: "abc", LastModified: modified}}
	store := NewMinIOStore(api, "media")

	meta, err := store.Stat(context.Background(), "vids/a.mp4")
	if err != nil {
		t.Fatalf("Stat returned error: %v", err)
	}
	if meta.Key != "vids/a.mp4" || meta.ContentType != "video/mp4" || meta.SizeBytes != 42 || meta.ETag != "abc" || !meta.LastModified.Equal(modified) {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
}

func TestMinIOStoreStatNotFound(t *testing.T) {
	api := &fakeMinio{statErr: minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}}
	store := NewMinIOStore(api, "media")

	if _, err := store.Stat(context.Background(), "pics/missing.jpg"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestMinIOStoreStatOtherError(t *testing.T) {
	api := &fakeMinio{statErr: minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}}
	store := NewMinIOStore(api, "media")

	_, err := store.Stat(context.Background(), "pics/a.jpg")
	if err == nil || errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected non-not-found error, got %v", err)
	}
}

func TestMinIOStoreDeleteIsIdempotent(t *testing.T) {
	api := &fakeMinio{removeErr: minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}}
	store := NewMinIOStore(api, "media")

	for i := 0; i < 2; i++ {
		if err := store.Delete(context.Background(), "pics/gone.jpg"); err != nil {
			t.Fatalf("Delete #%d returned error: %v", i+1, err)
		}
	}
}

func TestMinIOStoreDeleteSurfacesError(t *testing.T) {
	api := &fakeMinio{removeErr: errors.New("timeout")}
	store := NewMinIOStore(api, "media")

	if err := store.Delete(context.Background(), "pics/a.jpg"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMinIOStorePresignGet(t *testing.T) {
	store := NewMinIOStore(&fakeMinio{}, "media")

	link, err := store.PresignGet(context.Background(), "pics/a.jpg", time.Minute)
	if err != nil {
		t.Fatalf("PresignGet returned error: %v", err)
	}
	if link != "https://minio.local/media/pics/a.jpg?X-Amz-Expires=1m0s" {
		t.Fatalf("unexpected link %s", link)
	}
}
