package media

import "errors"

var (
	// ErrInvalidMimeType signals a file whose declared type is not on the allow-list.
	ErrInvalidMimeType = errors.New("file mime type not allowed")
	// ErrFileTooLarge signals that a file exceeds the per-file size ceiling.
	ErrFileTooLarge = errors.New("file size too large")
	// ErrTooManyPictures signals that a batch carries more non-video files than allowed.
	ErrTooManyPictures = errors.New("too many pictures")
	// ErrTooManyVideos signals that a batch carries more videos than allowed.
	ErrTooManyVideos = errors.New("too many videos")
	// ErrTranscodeFailed wraps any failure of the video transcoder.
	ErrTranscodeFailed = errors.New("transcode failed")
	// ErrObjectNotFound is returned by the store when a key does not exist.
	ErrObjectNotFound = errors.New("object not found")
)

// IsAdmissionError reports whether err rejects a batch before any side effect.
func IsAdmissionError(err error) bool {
	return errors.Is(err, ErrInvalidMimeType) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrTooManyPictures) ||
		errors.Is(err, ErrTooManyVideos)
}
