package api

import (
	"github.com/gin-gonic/gin"

	"flashcat.cloud/statsgraf/parser/influx"
)

// pushInflux accepts influx line protocol, every field becomes a gauge.
func pushInflux(c *gin.Context) {
	pushWith(c, influx.NewParser())
}
