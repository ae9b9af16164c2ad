package media

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"

	"github.com/abduss/postmedia/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type part struct {
	name string
	mime string
	body string
}

func multipartBody(t *testing.T, field string, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+p.name+`"`)
		h.Set("Content-Type", p.mime)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write([]byte(p.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func newTestRouter(t *testing.T, store ObjectStore, user *auth.ContextUser) (*gin.Engine, string) {
	t.Helper()
	return newCappedTestRouter(t, store, user, 0)
}

func newCappedTestRouter(t *testing.T, store ObjectStore, user *auth.ContextUser, maxBody int64) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	r := gin.New()
	if user != nil {
		r.Use(func(c *gin.Context) {
			auth.SetUser(c, *user)
			c.Next()
		})
	}
	uploader := NewUploader(store, &fakeTranscoder{dir: dir}, testLimits, zap.NewNop())
	RegisterRoutes(r.Group("/v1"), uploader, HandlerConfig{FieldName: "content", TempDir: dir, MaxBodyBytes: maxBody})
	return r, dir
}

func verifiedUser() *auth.ContextUser {
	return &auth.ContextUser{ID: uuid.NewString(), Email: "ham@example.com", IsVerified: true}
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body["error"]
}

func TestUploadHandlerReturnsKeys(t *testing.T) {
	store := newMemoryStore()
	r, dir := newTestRouter(t, store, verifiedUser())

	body, contentType := multipartBody(t, "content",
		part{name: "mast.jpg", mime: "image/jpeg", body: "jpeg-bytes"},
		part{name: "tower.mp4", mime: "video/mp4", body: "mp4-bytes"},
	)
	req := httptest.NewRequest(http.MethodPost, "/v1/posts/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var keys []string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &keys))
	require.Len(t, keys, 2)
	assert.True(t, strings.HasPrefix(keys[0], "pics/"))
	assert.True(t, strings.HasPrefix(keys[1], "vids/"))
	assert.Len(t, store.objects, 2)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "spooled and transcoded files should be released")
}

func TestUploadHandlerNoFiles(t *testing.T) {
	r, _ := newTestRouter(t, newMemoryStore(), verifiedUser())

	body, contentType := multipartBody(t, "content")
	req := httptest.NewRequest(http.MethodPost, "/v1/posts/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/posts/upload", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestUploadHandlerWrongFieldIsIgnored(t *testing.T) {
	store := newMemoryStore()
	r, _ := newTestRouter(t, store, verifiedUser())

	body, contentType := multipartBody(t, "attachments", part{name: "a.jpg", mime: "image/jpeg", body: "x"})
	req := httptest.NewRequest(http.MethodPost, "/v1/posts/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, store.puts)
}

func TestUploadHandlerRejectsMimeType(t *testing.T) {
	store := newMemoryStore()
	r, _ := newTestRouter(t, store, verifiedUser())

	body, contentType := multipartBody(t, "content",
		part{name: "a.jpg", mime: "image/jpeg", body: "x"},
		part{name: "manual.pdf", mime: "application/pdf", body: "%PDF"},
	)
	req := httptest.NewRequest(http.MethodPost, "/v1/posts/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_FILE_MIME_TYPE", decodeError(t, rr))
	assert.Empty(t, store.puts)
}

func TestUploadHandlerTooManyPictures(t *testing.T) {
	r, _ := newTestRouter(t, newMemoryStore(), verifiedUser())

	var parts []part
	for i := 0; i < 6; i++ {
		parts = append(parts, part{name: "p.png", mime: "image/png", body: "x"})
	}
	body, contentType := multipartBody(t, "content", parts...)
	req := httptest.NewRequest(http.MethodPost, "/v1/posts/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "TOO_MANY_PICTURES", decodeError(t, rr))
}

func TestUploadHandlerRequiresUser(t *testing.T) {
	r, _ := newTestRouter(t, newMemoryStore(), nil)

	body, contentType := multipartBody(t, "content", part{name: "a.jpg", mime: "image/jpeg", body: "x"})
	req := httptest.NewRequest(http.MethodPost, "/v1/posts/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "NOT_LOGGED_IN", decodeError(t, rr))
}

func TestUploadHandlerStoreFailure(t *testing.T) {
	store := newMemoryStore()
	store.failPutAt = 2
	r, _ := newTestRouter(t, store, verifiedUser())

	body, contentType := multipartBody(t, "content",
		part{name: "a.jpg", mime: "image/jpeg", body: "x"},
		part{name: "b.jpg", mime: "image/jpeg", body: "y"},
	)
	req := httptest.NewRequest(http.MethodPost, "/v1/posts/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "SERVER_ERROR", decodeError(t, rr))
	assert.Empty(t, store.objects)
	assert.Len(t, store.deletes, 1)
}

func TestUploadHandlerCapsRequestBody(t *testing.T) {
	store := newMemoryStore()
	r, dir := newCappedTestRouter(t, store, verifiedUser(), 4096)

	body, contentType := multipartBody(t, "content",
		part{name: "a.jpg", mime: "image/jpeg", body: strings.Repeat("x", 1024)},
		part{name: "b.jpg", mime: "image/jpeg", body: strings.Repeat("y", 8192)},
	)
	req := httptest.NewRequest(http.MethodPost, "/v1/posts/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "FILE_SIZE_TOO_LARGE", decodeError(t, rr))
	assert.Empty(t, store.puts)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partially spooled files should be removed")
}

func TestUploadHandlerSkipsNonFileParts(t *testing.T) {
	store := newMemoryStore()
	r, _ := newTestRouter(t, store, verifiedUser())

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	require.NoError(t, w.WriteField("content", "not a file"))
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="content"; filename="a.png"`)
	h.Set("Content-Type", "image/png")
	pw, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = pw.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/posts/upload", buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Len(t, store.puts, 1)
	for _, meta := range store.objects {
		assert.Equal(t, int64(3), meta.SizeBytes)
	}
}

func TestUploadHandlerTruncatedBody(t *testing.T) {
	r, _ := newTestRouter(t, newMemoryStore(), verifiedUser())

	body, contentType := multipartBody(t, "content", part{name: "a.jpg", mime: "image/jpeg", body: "xyz"})
	truncated := body.Bytes()[:body.Len()-10]
	req := httptest.NewRequest(http.MethodPost, "/v1/posts/upload", bytes.NewReader(truncated))
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "MALFORMED_REQUEST_BODY", decodeError(t, rr))
}
