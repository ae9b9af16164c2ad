package server

import (
	"context"
	"time"

	"github.com/abduss/postmedia/internal/auth"
	"github.com/abduss/postmedia/internal/config"
	"github.com/abduss/postmedia/internal/logger"
	"github.com/abduss/postmedia/internal/media"
	"github.com/abduss/postmedia/internal/metrics"
	"github.com/abduss/postmedia/internal/post"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies groups the services required by the HTTP router.
// Nil services leave their routes unmounted.
type Dependencies struct {
	Config      config.Config
	Logger      *zap.Logger
	DB          pinger
	ObjectStore bucketChecker
	Transcoder  availability
	AuthService *auth.Service
	Uploader    *media.Uploader
	PostService *post.Service
	MediaLinks  mediaLinker
}

type mediaLinker interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(logger.Middleware())
	router.Use(logger.RequestLogger(log))
	router.Use(metrics.Middleware())
	router.Use(gin.Recovery())

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	if deps.AuthService == nil {
		return router
	}

	public := router.Group("/v1")
	if deps.PostService != nil && deps.MediaLinks != nil {
		post.RegisterPublicRoutes(public, deps.PostService, deps.MediaLinks, linkTTL(deps.Config.Post))
	}

	api := router.Group("/v1")
	api.Use(auth.AuthMiddleware(deps.AuthService), auth.RequireVerified())

	if deps.Uploader != nil {
		media.RegisterRoutes(api, deps.Uploader, media.HandlerConfig{
			FieldName:    deps.Config.Upload.FieldName,
			TempDir:      deps.Config.Upload.TempDir,
			MaxBodyBytes: deps.Config.Upload.MaxBodyBytes(),
		})
	}
	if deps.PostService != nil {
		post.RegisterRoutes(api, deps.PostService)
	}

	return router
}

func linkTTL(cfg config.PostConfig) time.Duration {
	if cfg.MediaURLTTL <= 0 {
		return 15 * time.Minute
	}
	return cfg.MediaURLTTL
}
