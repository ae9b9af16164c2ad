package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postmedia",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "postmedia",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	uploadBatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postmedia",
		Name:      "upload_batches_total",
		Help:      "Upload batches by terminal stage and outcome.",
	}, []string{"stage", "outcome"})

	uploadedObjects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postmedia",
		Name:      "uploaded_objects_total",
		Help:      "Objects written to the store by folder.",
	}, []string{"folder"})

	rollbackDeletes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postmedia",
		Name:      "rollback_deletes_total",
		Help:      "Compensating deletes issued during batch rollback.",
	}, []string{"result"})

	transcodeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "postmedia",
		Name:      "transcode_duration_seconds",
		Help:      "Duration of a single video transcode.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"result"})

	postCommits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postmedia",
		Name:      "post_commits_total",
		Help:      "Record commit attempts by outcome.",
	}, []string{"outcome"})

	registerOnce sync.Once
)

// InitMetrics registers the collectors with the default registry. Safe to call repeatedly.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			uploadBatches,
			uploadedObjects,
			rollbackDeletes,
			transcodeDuration,
			postCommits,
		)
	})
}

// Middleware records request counts and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// BatchFinished counts an upload batch that ended in stage with outcome.
func BatchFinished(stage, outcome string) {
	uploadBatches.WithLabelValues(stage, outcome).Inc()
}

// ObjectUploaded counts one object written under folder.
func ObjectUploaded(folder string) {
	uploadedObjects.WithLabelValues(folder).Inc()
}

// RollbackDelete counts a compensating delete.
func RollbackDelete(err error) {
	rollbackDeletes.WithLabelValues(result(err)).Inc()
}

// TranscodeObserved records the duration of one transcode.
func TranscodeObserved(d time.Duration, err error) {
	transcodeDuration.WithLabelValues(result(err)).Observe(d.Seconds())
}

// PostCommit counts a record commit attempt.
func PostCommit(outcome string) {
	postCommits.WithLabelValues(outcome).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
