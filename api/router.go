package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flashcat.cloud/statsgraf/config"
	"flashcat.cloud/statsgraf/sinks"
)

func (s *Server) configRoutes(r *gin.Engine) {
	r.GET("/ping", func(c *gin.Context) {
		c.String(200, "pong")
	})

	r.GET("/version", func(c *gin.Context) {
		c.String(200, config.Version)
	})

	r.GET("/health", func(c *gin.Context) {
		if err := sinks.Healthcheck(c.Request.Context()); err != nil {
			c.String(http.StatusServiceUnavailable, err.Error())
			return
		}
		c.String(200, "ok")
	})

	if s.registry != nil {
		h := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
		r.GET("/metrics", gin.WrapH(h))
	}

	g := r.Group("/api/push")
	g.POST("/statsd", pushStatsd)
	g.POST("/influx", pushInflux)
	g.POST("/prometheus", pushPrometheus)
	g.POST("/remotewrite", remoteWrite)
}
