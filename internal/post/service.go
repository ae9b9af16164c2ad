package post

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abduss/postmedia/internal/logger"
	"github.com/abduss/postmedia/internal/media"
	"github.com/abduss/postmedia/internal/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	outcomeCommitted = "committed"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"

	cleanupTimeout   = 30 * time.Second
	defaultListLimit = 20
	maxListLimit     = 100
)

type mediaStore interface {
	Stat(ctx context.Context, key string) (media.ObjectMetadata, error)
	Delete(ctx context.Context, key string) error
}

type postRepository interface {
	Create(ctx context.Context, p Post) (Post, error)
	Get(ctx context.Context, id uuid.UUID) (Post, error)
	List(ctx context.Context, filter ListFilter) ([]Post, error)
	Delete(ctx context.Context, id uuid.UUID) (Post, error)
	Approve(ctx context.Context, id uuid.UUID) (Post, error)
}

// Limits are the media ceilings enforced when a record is committed.
type Limits struct {
	MaxPictures int
	MaxVideos   int
}

// Service assembles records from previously uploaded keys and commits them.
type Service struct {
	store    mediaStore
	repo     postRepository
	limits   Limits
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
	newID    func() uuid.UUID
}

// NewService wires the record assembler.
func NewService(store mediaStore, repo postRepository, limits Limits, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    store,
		repo:     repo,
		limits:   limits,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   log.With(zap.String("component", "post")),
		now:      time.Now,
		newID:    uuid.New,
	}
}

// Create resolves every key in in.FilesPath against the store, sorts the
// objects into pictures and videos by their stored type, and commits the
// record once the ceilings and field validation pass. Referenced objects are
// never deleted here, whatever the outcome.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (Post, error) {
	log := s.logger.With(
		zap.String("owner_id", ownerID.String()),
		zap.String("correlation_id", logger.IDFromContext(ctx)),
	)

	p, err := s.assemble(ctx, ownerID, in)
	if err != nil {
		if isRejection(err) {
			metrics.PostCommit(outcomeRejected)
			log.Info("post rejected", zap.Error(err))
		} else {
			metrics.PostCommit(outcomeFailed)
			log.Error("post assembly failed", zap.Error(err))
		}
		return Post{}, err
	}

	stored, err := s.repo.Create(ctx, p)
	if err != nil {
		metrics.PostCommit(outcomeFailed)
		log.Error("post commit failed", zap.Error(err))
		return Post{}, fmt.Errorf("commit post: %w", err)
	}

	metrics.PostCommit(outcomeCommitted)
	log.Info("post committed",
		zap.String("post_id", stored.ID.String()),
		zap.Int("pictures", len(stored.Pictures)),
		zap.Int("videos", len(stored.Videos)),
	)
	return stored, nil
}

func (s *Service) assemble(ctx context.Context, ownerID uuid.UUID, in CreateInput) (Post, error) {
	pictures := []media.ObjectMetadata{}
	videos := []media.ObjectMetadata{}

	for _, key := range in.FilesPath {
		meta, err := s.store.Stat(ctx, key)
		if err != nil {
			if errors.Is(err, media.ErrObjectNotFound) {
				return Post{}, fmt.Errorf("%w: %s", ErrFileNotFound, key)
			}
			return Post{}, fmt.Errorf("stat %s: %w", key, err)
		}
		if meta.Key == "" {
			meta.Key = key
		}

		switch {
		case media.IsImage(meta.ContentType):
			pictures = append(pictures, meta)
		case media.IsVideo(meta.ContentType):
			videos = append(videos, meta)
		default:
			return Post{}, fmt.Errorf("%w: %s (%s)", ErrInvalidFileMimeType, key, meta.ContentType)
		}
	}

	if len(pictures) > s.limits.MaxPictures {
		return Post{}, fmt.Errorf("%w: %d > %d", ErrInvalidPicsNum, len(pictures), s.limits.MaxPictures)
	}
	if len(videos) > s.limits.MaxVideos {
		return Post{}, fmt.Errorf("%w: %d > %d", ErrInvalidVidsNum, len(videos), s.limits.MaxVideos)
	}

	p := Post{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Fields:    in.Fields,
		Pictures:  pictures,
		Videos:    videos,
		CreatedAt: s.now().UTC(),
	}
	if err := s.validate.StructCtx(ctx, p.Fields); err != nil {
		return Post{}, fmt.Errorf("%w: %w", ErrInvalidPost, err)
	}
	return p, nil
}

// Get returns a committed record.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Post, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Post{}, err
	}
	return p, nil
}

// List returns a page of posts. Out of range limits fall back to sane bounds.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Post, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// Delete removes a post owned by the actor, or any post when the actor is an
// admin, then removes its media from the store. Object deletion is best
// effort: failures are logged and the post stays deleted.
func (s *Service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanModify(p) {
		return ErrForbidden
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	log := s.logger.With(
		zap.String("post_id", id.String()),
		zap.String("correlation_id", logger.IDFromContext(ctx)),
	)
	s.removeMedia(ctx, log, deleted)
	log.Info("post deleted", zap.String("actor_id", actor.ID.String()))
	return nil
}

func (s *Service) removeMedia(ctx context.Context, log *zap.Logger, p Post) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	objects := make([]media.ObjectMetadata, 0, len(p.Pictures)+len(p.Videos))
	objects = append(objects, p.Pictures...)
	objects = append(objects, p.Videos...)
	for _, obj := range objects {
		if err := s.store.Delete(cleanupCtx, obj.Key); err != nil {
			log.Warn("cleanup delete failed", zap.String("key", obj.Key), zap.Error(err))
		}
	}
}

// Approve marks a post as visible in listings. Only admins may approve.
func (s *Service) Approve(ctx context.Context, actor Actor, id uuid.UUID) (Post, error) {
	if !actor.IsAdmin {
		return Post{}, ErrForbidden
	}
	p, err := s.repo.Approve(ctx, id)
	if err != nil {
		return Post{}, err
	}
	s.logger.Info("post approved",
		zap.String("post_id", id.String()),
		zap.String("actor_id", actor.ID.String()),
	)
	return p, nil
}

func isRejection(err error) bool {
	return errors.Is(err, ErrFileNotFound) ||
		errors.Is(err, ErrInvalidFileMimeType) ||
		errors.Is(err, ErrInvalidPicsNum) ||
		errors.Is(err, ErrInvalidVidsNum) ||
		errors.Is(err, ErrInvalidPost)
}
