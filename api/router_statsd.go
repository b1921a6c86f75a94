package api

import (
	"github.com/gin-gonic/gin"

	statsdparser "flashcat.cloud/statsgraf/parser/statsd"
)

// pushStatsd accepts raw statsd text, one metric per line.
func pushStatsd(c *gin.Context) {
	pushWith(c, statsdparser.NewParser())
}
