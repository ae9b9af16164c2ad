package post

import (
	"time"

	"github.com/abduss/postmedia/internal/media"
	"github.com/google/uuid"
)

// Band is the radio band an antenna is built for, in MHz.
type Band int

const (
	Band144  Band = 144
	Band432  Band = 432
	Band1200 Band = 1200
)

// Fields are the user-supplied domain fields of a post.
type Fields struct {
	Description      string  `json:"description" validate:"required"`
	Band             Band    `json:"band" validate:"oneof=144 432 1200"`
	Brand            string  `json:"brand" validate:"max=30"`
	IsSelfBuilt      bool    `json:"isSelfBuilt"`
	MetersFromSea    float64 `json:"metersFromSea" validate:"lte=10000"`
	BoomLengthCm     float64 `json:"boomLengthCm" validate:"gte=0,lte=100000"`
	NumberOfElements int     `json:"numberOfElements" validate:"gte=1,lte=300"`
	NumberOfAntennas int     `json:"numberOfAntennas" validate:"gte=0,lte=100"`
	Cable            string  `json:"cable" validate:"max=100"`
}

// Post is a committed record together with the media it references.
type Post struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"ownerId"`
	Fields
	Pictures  []media.ObjectMetadata `json:"pictures"`
	Videos    []media.ObjectMetadata `json:"videos"`
	Approved  bool                   `json:"approved"`
	CreatedAt time.Time              `json:"createdAt"`
}

// ListFilter pages through committed posts, newest first.
type ListFilter struct {
	Limit        int
	Offset       int
	OnlyApproved bool
}

// Actor is the caller of a mutating operation.
type Actor struct {
	ID      uuid.UUID
	IsAdmin bool
}

// CanModify reports whether the actor owns p or is an admin.
func (a Actor) CanModify(p Post) bool {
	return a.IsAdmin || (a.ID != uuid.Nil && a.ID == p.OwnerID)
}

// CreateInput is the body of a record-commit request.
type CreateInput struct {
	Fields
	FilesPath []string `json:"filesPath"`
}

// MediaLink is a short-lived download URL for one stored object.
type MediaLink struct {
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
	URL         string `json:"url"`
}

// View is a post as returned to clients, with presigned links for its media.
type View struct {
	Post
	PictureLinks []MediaLink `json:"pictureLinks"`
	VideoLinks   []MediaLink `json:"videoLinks"`
}
