package post

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/abduss/postmedia/internal/media"
	"github.com/google/uuid"
)

// memStore is an in-memory media.ObjectStore shared by uploader and assembler tests.
type memStore struct {
	mu      sync.Mutex
	objects map[string]media.ObjectMetadata
	statErr   error
	deleteErr error
	deleted   []string
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string]media.ObjectMetadata)}
}

func (s *memStore) Put(ctx context.Context, key, filePath, mimeType string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = media.ObjectMetadata{Key: key, ContentType: mimeType, SizeBytes: info.Size(), LastModified: time.Now().UTC()}
	return nil
}

func (s *memStore) Stat(ctx context.Context, key string) (media.ObjectMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statErr != nil {
		return media.ObjectMetadata{}, s.statErr
	}
	meta, ok := s.objects[key]
	if !ok {
		return media.ObjectMetadata{}, media.ErrObjectNotFound
	}
	return meta, nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, key)
	return nil
}

func (s *memStore) seed(key, mimeType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = media.ObjectMetadata{Key: key, ContentType: mimeType, SizeBytes: 42}
}

func (s *memStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://media.test/%s?ttl=%d", key, int(ttl.Seconds())), nil
}

type fakeRepo struct {
	mu        sync.Mutex
	posts      map[uuid.UUID]Post
	createErr  error
	lastFilter ListFilter
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{posts: make(map[uuid.UUID]Post)}
}

func (r *fakeRepo) Create(ctx context.Context, p Post) (Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return Post{}, r.createErr
	}
	r.posts[p.ID] = p
	return p, nil
}

func (r *fakeRepo) Get(ctx context.Context, id uuid.UUID) (Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return Post{}, ErrPostNotFound
	}
	return p, nil
}

func (r *fakeRepo) List(ctx context.Context, filter ListFilter) ([]Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = filter
	posts := []Post{}
	for _, p := range r.posts {
		if filter.OnlyApproved && !p.Approved {
			continue
		}
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	if filter.Offset >= len(posts) {
		return []Post{}, nil
	}
	posts = posts[filter.Offset:]
	if filter.Limit < len(posts) {
		posts = posts[:filter.Limit]
	}
	return posts, nil
}

func (r *fakeRepo) Delete(ctx context.Context, id uuid.UUID) (Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return Post{}, ErrPostNotFound
	}
	delete(r.posts, id)
	return p, nil
}

func (r *fakeRepo) Approve(ctx context.Context, id uuid.UUID) (Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return Post{}, ErrPostNotFound
	}
	p.Approved = true
	r.posts[id] = p
	return p, nil
}

// seedPost stores a committed post referencing the given keys.
func (r *fakeRepo) seedPost(owner uuid.UUID, approved bool, createdAt time.Time, pictures, videos []string) Post {
	p := Post{
		ID:        uuid.New(),
		OwnerID:   owner,
		Fields:    validFields(),
		Pictures:  []media.ObjectMetadata{},
		Videos:    []media.ObjectMetadata{},
		Approved:  approved,
		CreatedAt: createdAt,
	}
	for _, key := range pictures {
		p.Pictures = append(p.Pictures, media.ObjectMetadata{Key: key, ContentType: "image/jpeg"})
	}
	for _, key := range videos {
		p.Videos = append(p.Videos, media.ObjectMetadata{Key: key, ContentType: "video/mp4"})
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[p.ID] = p
	return p
}

// copyTranscoder "compresses" a video by copying it next to the input.
type copyTranscoder struct{}

func (copyTranscoder) Compress(ctx context.Context, inputs []string) ([]string, error) {
	outs := make([]string, 0, len(inputs))
	for _, in := range inputs {
		out := in + ".mp4"
		if err := copyFile(in, out); err != nil {
			for _, o := range outs {
				_ = os.Remove(o)
			}
			return nil, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

var errBoom = errors.New("boom")

func validFields() Fields {
	return Fields{
		Description:      "4-element yagi on the roof",
		Band:             Band432,
		Brand:            "homebrew",
		IsSelfBuilt:      true,
		MetersFromSea:    320,
		BoomLengthCm:     180,
		NumberOfElements: 4,
		NumberOfAntennas: 1,
		Cable:            "RG-213",
	}
}
