package media

import (
	"fmt"
	"strings"
)

var allowedMimeTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
	"video/mp4":       {},
	"video/quicktime": {},
	"video/x-msvideo": {},
	"video/x-ms-wmv":  {},
}

// IsAllowed reports whether mimeType may be ingested. The declared type must
// match an allow-list entry exactly; it is stored verbatim as the object's
// content type.
func IsAllowed(mimeType string) bool {
	_, ok := allowedMimeTypes[mimeType]
	return ok
}

// IsVideo reports whether mimeType is in the video category.
func IsVideo(mimeType string) bool {
	return strings.HasPrefix(normalizeMime(mimeType), "video/")
}

// IsImage reports whether mimeType is in the image category.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(normalizeMime(mimeType), "image/")
}

// FolderFor maps a MIME category to its storage folder.
func FolderFor(mimeType string) (Folder, error) {
	switch {
	case IsImage(mimeType):
		return FolderPictures, nil
	case IsVideo(mimeType):
		return FolderVideos, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMimeType, mimeType)
	}
}

// Limits are the admission ceilings for one upload batch.
type Limits struct {
	MaxFileSize int64
	MaxPictures int
	MaxVideos   int
}

// Admit checks a single file against the allow-list and the size ceiling.
func (l Limits) Admit(f FileDescriptor) error {
	if !IsAllowed(f.MimeType) {
		return fmt.Errorf("%w: %s (%s)", ErrInvalidMimeType, f.Name, f.MimeType)
	}
	if l.MaxFileSize > 0 && f.Size > l.MaxFileSize {
		return fmt.Errorf("%w: %s (%d bytes)", ErrFileTooLarge, f.Name, f.Size)
	}
	return nil
}

// Classify splits an admitted batch into videos and everything else,
// enforcing the per-category count ceilings.
func (l Limits) Classify(files []FileDescriptor) (videos, others []FileDescriptor, err error) {
	for _, f := range files {
		if IsVideo(f.MimeType) {
			videos = append(videos, f)
		} else {
			others = append(others, f)
		}
	}
	if len(others) > l.MaxPictures {
		return nil, nil, fmt.Errorf("%w: %d > %d", ErrTooManyPictures, len(others), l.MaxPictures)
	}
	if len(videos) > l.MaxVideos {
		return nil, nil, fmt.Errorf("%w: %d > %d", ErrTooManyVideos, len(videos), l.MaxVideos)
	}
	return videos, others, nil
}

func normalizeMime(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
