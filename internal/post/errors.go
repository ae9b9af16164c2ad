package post

import "errors"

var (
	// ErrFileNotFound is returned when a referenced key is absent from the object store.
	ErrFileNotFound = errors.New("file not found")
	// ErrInvalidFileMimeType is returned when a stored object is neither an image nor a video.
	ErrInvalidFileMimeType = errors.New("file mime type is neither image nor video")
	// ErrInvalidPicsNum is returned when a record references too many pictures.
	ErrInvalidPicsNum = errors.New("invalid number of pictures")
	// ErrInvalidVidsNum is returned when a record references too many videos.
	ErrInvalidVidsNum = errors.New("invalid number of videos")
	// ErrInvalidPost is returned when domain-field validation rejects the record.
	ErrInvalidPost = errors.New("invalid post")
	// ErrPostNotFound is returned when no post has the requested id.
	ErrPostNotFound = errors.New("post not found")
	// ErrForbidden is returned when the caller may not modify the post.
	ErrForbidden = errors.New("forbidden")
)
