package api

import (
	"github.com/gin-gonic/gin"

	promparser "flashcat.cloud/statsgraf/parser/prometheus"
)

// pushPrometheus accepts exposition format, the bridge for anything that can
// already expose prometheus metrics but must reach a statsd collector.
func pushPrometheus(c *gin.Context) {
	pushWith(c, promparser.NewParser(c.Request.Header))
}
