package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// accessLog logs one structured line per request via logrus, the access-log
// library the teacher's go.mod already carries (unused by any teacher
// source file — this is its first call site, kept distinct from
// internal/logger's zerolog, which is reserved for application events).
func accessLog() gin.HandlerFunc {
	log := logrus.StandardLogger()
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}).Info("request")
	}
}
