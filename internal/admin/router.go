// File: internal/admin/router.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// HTTP side channel for operators: health, Prometheus scrape and debug probes.

package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-wsframe/control"
)

// Options wires the admin router to the process state it reports on.
type Options struct {
	Service  string
	Version  string
	Gatherer prometheus.Gatherer // nil uses prometheus.DefaultGatherer
	Probes   *control.DebugProbes
	Logger   zerolog.Logger
	Started  time.Time
}

// NewRouter builds the admin engine.
func NewRouter(opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Started.IsZero() {
		opts.Started = time.Now()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(opts.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(opts.Started).String(),
			"service": opts.Service,
			"version": opts.Version,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))

	r.GET("/debug/state", func(c *gin.Context) {
		if opts.Probes == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "debug probes disabled"})
			return
		}
		c.JSON(http.StatusOK, opts.Probes.DumpState())
	})
	return r
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		event := logger.Debug()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("admin request")
	}
}
