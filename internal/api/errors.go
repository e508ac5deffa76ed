package api

import (
	"github.com/gin-gonic/gin"

	"hunter/internal/herr"
)

// respondError translates an herr-classified error into the HTTP status
// §7's propagation table names, with the error text as the JSON message.
func respondError(c *gin.Context, err error) {
	c.JSON(herr.HTTPStatus(err), gin.H{"error": err.Error()})
}
