package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 5 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

type bucketChecker interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

type availability interface {
	Available() error
}

func registerHealthRoutes(router *gin.Engine, deps Dependencies) {
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		if deps.DB != nil {
			if err := deps.DB.Ping(ctx); err != nil {
				degraded(c, "postgres", err)
				return
			}
		}

		if deps.ObjectStore != nil {
			if err := checkBucket(ctx, deps.ObjectStore, deps.Config.MinIO.Bucket); err != nil {
				degraded(c, "minio", err)
				return
			}
		}

		if deps.Transcoder != nil {
			if err := deps.Transcoder.Available(); err != nil {
				degraded(c, "ffmpeg", err)
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func checkBucket(ctx context.Context, store bucketChecker, bucket string) error {
	exists, err := store.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", bucket)
	}
	return nil
}

func degraded(c *gin.Context, component string, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"status":    "degraded",
		"component": component,
	})
}
