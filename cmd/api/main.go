package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/postmedia/internal/auth"
	"github.com/abduss/postmedia/internal/config"
	"github.com/abduss/postmedia/internal/logger"
	"github.com/abduss/postmedia/internal/media"
	"github.com/abduss/postmedia/internal/metrics"
	"github.com/abduss/postmedia/internal/post"
	"github.com/abduss/postmedia/internal/server"
	"github.com/abduss/postmedia/internal/storage"
	"github.com/abduss/postmedia/internal/transcode"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional outside local development
	_ = godotenv.Load()

	zl, err := logger.Init()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		zl.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.Upload.TempDir, 0o700); err != nil {
		zl.Fatal("create temp dir", zap.String("dir", cfg.Upload.TempDir), zap.Error(err))
	}

	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		zl.Fatal("connect postgres", zap.Error(err))
	}
	defer dbPool.Close()

	if err := storage.Migrate(ctx, dbPool); err != nil {
		zl.Fatal("migrate postgres", zap.Error(err))
	}

	minioClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		zl.Fatal("connect minio", zap.Error(err))
	}
	if err := storage.EnsureBucket(ctx, minioClient, cfg.MinIO.Bucket, cfg.MinIO.Region); err != nil {
		zl.Fatal("ensure bucket", zap.String("bucket", cfg.MinIO.Bucket), zap.Error(err))
	}

	preset, err := transcode.ResolvePreset(cfg.Transcode.PresetFile, cfg.Transcode.Preset)
	if err != nil {
		zl.Fatal("resolve transcode preset", zap.Error(err))
	}
	ffmpeg := transcode.NewFFmpeg(cfg.Transcode, preset, zl)
	if err := ffmpeg.Available(); err != nil {
		zl.Warn("ffmpeg unavailable, video uploads will fail", zap.Error(err))
	}

	metrics.InitMetrics()

	authService := auth.NewService(cfg.Auth)
	mediaStore := media.NewMinIOStore(minioClient, cfg.MinIO.Bucket)
	uploader := media.NewUploader(mediaStore, ffmpeg, media.Limits{
		MaxFileSize: cfg.Upload.MaxFileSize,
		MaxPictures: cfg.Upload.MaxPictures,
		MaxVideos:   cfg.Upload.MaxVideos,
	}, zl)

	postRepo := post.NewRepository(dbPool)
	postService := post.NewService(mediaStore, postRepo, post.Limits{
		MaxPictures: cfg.Post.MaxPictures,
		MaxVideos:   cfg.Post.MaxVideos,
	}, zl)

	router := server.NewRouter(server.Dependencies{
		Config:      cfg,
		Logger:      zl,
		DB:          dbPool,
		ObjectStore: minioClient,
		Transcoder:  ffmpeg,
		AuthService: authService,
		Uploader:    uploader,
		PostService: postService,
		MediaLinks:  mediaStore,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zl.Info("post media API listening", zap.String("addr", cfg.Server.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	zl.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
}
