package media

import (
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var fallbackExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/x-msvideo": ".avi",
	"video/x-ms-wmv":  ".wmv",
}

// KeyGenerator derives folder-scoped object keys of the form
// <folder>/<owner>/<unix millis>-<uuid><ext>.
type KeyGenerator struct {
	now   func() time.Time
	newID func() uuid.UUID
}

// NewKeyGenerator returns a generator using the wall clock and random UUIDs.
func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{now: time.Now, newID: uuid.New}
}

// Generate returns a fresh key for an object of mimeType owned by ownerID.
func (g *KeyGenerator) Generate(ownerID uuid.UUID, mimeType string) (string, Folder, error) {
	folder, err := FolderFor(mimeType)
	if err != nil {
		return "", "", err
	}
	key := fmt.Sprintf("%s/%s/%d-%s%s", folder, ownerID, g.now().UnixMilli(), g.newID(), extensionFor(mimeType))
	return key, folder, nil
}

func extensionFor(mimeType string) string {
	mimeType = normalizeMime(mimeType)
	if m := mimetype.Lookup(mimeType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	if ext, ok := fallbackExtensions[mimeType]; ok {
		return ext
	}
	return ".bin"
}
