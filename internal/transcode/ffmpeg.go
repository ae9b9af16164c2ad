package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/abduss/postmedia/internal/config"
	"github.com/abduss/postmedia/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// FFmpeg compresses videos to the preset's MP4 output by invoking the ffmpeg binary.
type FFmpeg struct {
	bin     string
	preset  Preset
	workDir string
	workers int
	timeout time.Duration
	runner  Runner
	logger  *zap.Logger
}

// NewFFmpeg builds a transcoder from configuration.
func NewFFmpeg(cfg config.TranscodeConfig, preset Preset, logger *zap.Logger) *FFmpeg {
	return newFFmpeg(cfg, preset, execRunner{}, logger)
}

func newFFmpeg(cfg config.TranscodeConfig, preset Preset, runner Runner, logger *zap.Logger) *FFmpeg {
	bin := strings.TrimSpace(cfg.FFmpegPath)
	if bin == "" {
		bin = "ffmpeg"
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpeg{
		bin:     bin,
		preset:  preset,
		workDir: cfg.WorkDir,
		workers: workers,
		timeout: cfg.Timeout,
		runner:  runner,
		logger:  logger,
	}
}

// Available reports whether the ffmpeg binary can be resolved.
func (f *FFmpeg) Available() error {
	if _, err := exec.LookPath(f.bin); err != nil {
		return fmt.Errorf("ffmpeg binary %q not found: %w", f.bin, err)
	}
	return nil
}

// Compress transcodes every input and returns the new file paths in input
// order. If any input fails, outputs already produced are removed and no
// paths are returned. Inputs are left in place for the caller to release.
func (f *FFmpeg) Compress(ctx context.Context, inputs []string) ([]string, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	outputs := make([]string, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)

	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			out, err := f.compressOne(gctx, input)
			if out != "" {
				outputs[i] = out
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		for _, out := range outputs {
			if out == "" {
				continue
			}
			if rmErr := os.Remove(out); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				f.logger.Warn("remove transcode output", zap.String("path", out), zap.Error(rmErr))
			}
		}
		return nil, err
	}
	return outputs, nil
}

func (f *FFmpeg) compressOne(ctx context.Context, input string) (string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	tmp, err := os.CreateTemp(f.workDir, "transcoded-*.mp4")
	if err != nil {
		return "", fmt.Errorf("create transcode output: %w", err)
	}
	output := tmp.Name()
	_ = tmp.Close()

	args := append([]string{"-hide_banner", "-loglevel", "error", "-y", "-i", input}, f.preset.Args()...)
	args = append(args, output)

	start := time.Now()
	out, err := f.runner.Run(ctx, f.bin, args...)
	metrics.TranscodeObserved(time.Since(start), err)
	if err != nil {
		return output, fmt.Errorf("ffmpeg %s: %w: %s", input, err, strings.TrimSpace(string(out)))
	}

	f.logger.Debug("video transcoded",
		zap.String("input", input),
		zap.String("output", output),
		zap.Duration("took", time.Since(start)))
	return output, nil
}
