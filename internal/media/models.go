package media

import "time"

// Folder is the top-level key prefix an object is stored under.
type Folder string

const (
	FolderPictures Folder = "pics"
	FolderVideos   Folder = "vids"
)

// FileDescriptor is a file spooled to local disk awaiting ingestion.
type FileDescriptor struct {
	Name     string
	TempPath string
	MimeType string
	Size     int64
}

// StoredObject is a key written by one upload batch.
type StoredObject struct {
	Key      string `json:"key"`
	Folder   Folder `json:"folder"`
	MimeType string `json:"mime_type"`
}

// ObjectMetadata is what the store reports about an object. It is
// authoritative over any type the client declared at upload.
type ObjectMetadata struct {
	Key          string    `json:"key"`
	ContentType  string    `json:"contentType"`
	SizeBytes    int64     `json:"size"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// Keys returns the keys of objs in order.
func Keys(objs []StoredObject) []string {
	keys := make([]string, 0, len(objs))
	for _, o := range objs {
		keys = append(keys, o.Key)
	}
	return keys
}
