package aop

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func DisableConsoleColor() {
	gin.DisableConsoleColor()
}

// Recovery turns a handler panic into a 500 instead of killing the agent.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err interface{}) {
		log.Printf("E! panic recovered: %v", err)
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}

// Logger prints one access line per request.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("I! %s %s %d %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
