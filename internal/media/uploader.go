package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abduss/postmedia/internal/logger"
	"github.com/abduss/postmedia/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	rollbackTimeout   = 30 * time.Second
	transcodedMime    = "video/mp4"
	outcomeDone       = "done"
	outcomeFailed     = "failed"
	outcomeRolledBack = "rolled_back"
)

// Stage is a step of the upload state machine.
type Stage string

const (
	StageValidating  Stage = "validating"
	StageClassifying Stage = "classifying"
	StageTranscoding Stage = "transcoding"
	StageUploading   Stage = "uploading"
	StageRollingBack Stage = "rolling_back"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// Transcoder compresses videos, returning one new path per input in order.
type Transcoder interface {
	Compress(ctx context.Context, inputs []string) ([]string, error)
}

// Uploader runs one batch through validation, classification, transcoding
// and storage, undoing its own store writes when a later write fails.
type Uploader struct {
	store      ObjectStore
	transcoder Transcoder
	keys       *KeyGenerator
	limits     Limits
	logger     *zap.Logger
}

// NewUploader wires an Uploader.
func NewUploader(store ObjectStore, transcoder Transcoder, limits Limits, log *zap.Logger) *Uploader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Uploader{
		store:      store,
		transcoder: transcoder,
		keys:       NewKeyGenerator(),
		limits:     limits,
		logger:     log.With(zap.String("component", "uploader")),
	}
}

type batch struct {
	owner   uuid.UUID
	stage   Stage
	written []StoredObject
	temps   []string
	log     *zap.Logger
}

func (b *batch) enter(stage Stage) {
	b.stage = stage
	b.log.Debug("upload batch stage", zap.String("stage", string(stage)))
}

// Upload ingests files for ownerID and returns the written objects in the
// order the files were received. Every temporary path in files, and every
// intermediate file produced by transcoding, is removed before returning.
func (u *Uploader) Upload(ctx context.Context, ownerID uuid.UUID, files []FileDescriptor) ([]StoredObject, error) {
	b := &batch{
		owner: ownerID,
		log: u.logger.With(
			zap.String("owner_id", ownerID.String()),
			zap.String("correlation_id", logger.IDFromContext(ctx)),
			zap.Int("files", len(files)),
		),
	}
	for _, f := range files {
		b.temps = append(b.temps, f.TempPath)
	}
	defer u.release(b)

	objects, err := u.run(ctx, b, files)
	if err != nil {
		failedAt := b.stage
		outcome := outcomeFailed
		if len(b.written) > 0 {
			outcome = outcomeRolledBack
			u.rollback(ctx, b)
		}
		b.enter(StageFailed)
		metrics.BatchFinished(string(failedAt), outcome)
		if IsAdmissionError(err) {
			b.log.Info("upload batch rejected", zap.String("stage", string(failedAt)), zap.Error(err))
		} else {
			b.log.Error("upload batch failed", zap.String("stage", string(failedAt)), zap.Error(err))
		}
		return nil, err
	}

	b.enter(StageDone)
	metrics.BatchFinished(string(StageDone), outcomeDone)
	b.log.Info("upload batch stored", zap.Strings("keys", Keys(objects)))
	return objects, nil
}

func (u *Uploader) run(ctx context.Context, b *batch, files []FileDescriptor) ([]StoredObject, error) {
	b.enter(StageValidating)
	for _, f := range files {
		if err := u.limits.Admit(f); err != nil {
			return nil, err
		}
	}
	if len(files) == 0 {
		return []StoredObject{}, nil
	}

	b.enter(StageClassifying)
	videos, _, err := u.limits.Classify(files)
	if err != nil {
		return nil, err
	}

	b.enter(StageTranscoding)
	replacements, err := u.transcode(ctx, b, videos)
	if err != nil {
		return nil, err
	}

	b.enter(StageUploading)
	for _, f := range files {
		if r, ok := replacements[f.TempPath]; ok {
			f = r
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("upload cancelled: %w", err)
		}

		key, folder, err := u.keys.Generate(b.owner, f.MimeType)
		if err != nil {
			return nil, err
		}
		if err := u.store.Put(ctx, key, f.TempPath, f.MimeType); err != nil {
			return nil, fmt.Errorf("upload %s: %w", f.Name, err)
		}
		b.written = append(b.written, StoredObject{Key: key, Folder: folder, MimeType: f.MimeType})
		metrics.ObjectUploaded(string(folder))
		b.log.Debug("object stored", zap.String("file", f.Name), zap.String("key", key))
	}

	return append([]StoredObject(nil), b.written...), nil
}

// transcode replaces each video with its compressed MP4, keyed by the original temp path.
func (u *Uploader) transcode(ctx context.Context, b *batch, videos []FileDescriptor) (map[string]FileDescriptor, error) {
	if len(videos) == 0 {
		return nil, nil
	}
	if u.transcoder == nil {
		return nil, fmt.Errorf("%w: no transcoder configured", ErrTranscodeFailed)
	}

	inputs := make([]string, 0, len(videos))
	for _, v := range videos {
		inputs = append(inputs, v.TempPath)
	}

	outputs, err := u.transcoder.Compress(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranscodeFailed, err)
	}
	b.temps = append(b.temps, outputs...)
	if len(outputs) != len(inputs) {
		return nil, fmt.Errorf("%w: expected %d outputs, got %d", ErrTranscodeFailed, len(inputs), len(outputs))
	}

	replacements := make(map[string]FileDescriptor, len(videos))
	for i, v := range videos {
		replacements[v.TempPath] = FileDescriptor{
			Name:     filepath.Base(outputs[i]),
			TempPath: outputs[i],
			MimeType: transcodedMime,
		}
	}
	return replacements, nil
}

// rollback deletes every key written by b. Failures are logged and swallowed
// so the caller always sees the error that triggered the rollback.
func (u *Uploader) rollback(ctx context.Context, b *batch) {
	b.enter(StageRollingBack)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	for _, obj := range b.written {
		err := u.store.Delete(ctx, obj.Key)
		metrics.RollbackDelete(err)
		if err != nil {
			b.log.Warn("rollback delete failed", zap.String("key", obj.Key), zap.Error(err))
			continue
		}
		b.log.Info("rollback deleted object", zap.String("key", obj.Key))
	}
	b.written = nil
}

func (u *Uploader) release(b *batch) {
	for _, path := range b.temps {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			b.log.Warn("release temp file", zap.String("path", path), zap.Error(err))
		}
	}
}
