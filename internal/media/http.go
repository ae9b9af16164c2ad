package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/abduss/postmedia/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type batchUploader interface {
	Upload(ctx context.Context, ownerID uuid.UUID, files []FileDescriptor) ([]StoredObject, error)
}

// HandlerConfig controls how multipart uploads are spooled to disk.
// MaxBodyBytes caps the whole request body; zero disables the cap.
type HandlerConfig struct {
	FieldName    string
	TempDir      string
	MaxBodyBytes int64
}

var errMalformedBody = errors.New("malformed multipart body")

// RegisterRoutes mounts the ingestion endpoint under the provided router group.
func RegisterRoutes(group *gin.RouterGroup, uploader batchUploader, cfg HandlerConfig) {
	handler := &httpHandler{uploader: uploader, cfg: cfg}
	group.POST("/posts/upload", handler.upload)
}

type httpHandler struct {
	uploader batchUploader
	cfg      HandlerConfig
}

func (h *httpHandler) upload(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "NOT_LOGGED_IN", "message": "unauthorized"})
		return
	}

	if h.cfg.MaxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxBodyBytes)
	}

	reader, err := c.Request.MultipartReader()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "MALFORMED_REQUEST_BODY", "message": "invalid multipart body"})
		return
	}

	files, err := h.spool(reader)
	if err != nil {
		_ = c.Error(err)
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			c.JSON(http.StatusBadRequest, gin.H{"error": "FILE_SIZE_TOO_LARGE", "message": "request body too large"})
		case errors.Is(err, errMalformedBody):
			c.JSON(http.StatusBadRequest, gin.H{"error": "MALFORMED_REQUEST_BODY", "message": "invalid multipart body"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "SERVER_ERROR", "message": "failed to receive files"})
		}
		return
	}
	if len(files) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	objects, err := h.uploader.Upload(c.Request.Context(), userID, files)
	if err != nil {
		_ = c.Error(err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Keys(objects))
}

// spool streams every file part under the configured field straight into its
// own temp file. Other parts are skipped. On failure nothing is left behind.
func (h *httpHandler) spool(reader *multipart.Reader) ([]FileDescriptor, error) {
	var files []FileDescriptor
	cleanup := func() {
		for _, f := range files {
			_ = os.Remove(f.TempPath)
		}
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return files, nil
		}
		if err != nil {
			cleanup()
			return nil, wrapRead(err)
		}
		if part.FormName() != h.cfg.FieldName || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		f, err := spoolPart(part, h.cfg.TempDir)
		_ = part.Close()
		if err != nil {
			cleanup()
			return nil, err
		}
		files = append(files, f)
	}
}

func spoolPart(part *multipart.Part, dir string) (FileDescriptor, error) {
	dst, err := os.CreateTemp(dir, "upload-*")
	if err != nil {
		return FileDescriptor{}, fmt.Errorf("create temp file: %w", err)
	}
	size, err := io.Copy(dst, partReader{part})
	if err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return FileDescriptor{}, fmt.Errorf("receive part %s: %w", part.FileName(), err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return FileDescriptor{}, fmt.Errorf("close temp file: %w", err)
	}
	return FileDescriptor{
		Name:     part.FileName(),
		TempPath: dst.Name(),
		MimeType: part.Header.Get("Content-Type"),
		Size:     size,
	}, nil
}

// partReader tags body read errors so they are not mistaken for disk errors.
type partReader struct {
	r io.Reader
}

func (p partReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if err != nil && !errors.Is(err, io.EOF) {
		err = wrapRead(err)
	}
	return n, err
}

func wrapRead(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("%w: %w", errMalformedBody, err)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidMimeType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_FILE_MIME_TYPE", "message": "file mime type not allowed"})
	case errors.Is(err, ErrFileTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": "FILE_SIZE_TOO_LARGE", "message": "file size too large"})
	case errors.Is(err, ErrTooManyPictures):
		c.JSON(http.StatusBadRequest, gin.H{"error": "TOO_MANY_PICTURES", "message": "too many pictures"})
	case errors.Is(err, ErrTooManyVideos):
		c.JSON(http.StatusBadRequest, gin.H{"error": "TOO_MANY_VIDEOS", "message": "too many videos"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "SERVER_ERROR", "message": "failed to upload files"})
	}
}
