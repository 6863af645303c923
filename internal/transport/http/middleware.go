package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const ownerHeader = "X-User-ID"

const ownerKey = "owner"

// OwnerRequired rejects requests without a caller identity. Every store
// read and write downstream is scoped to this value.
func OwnerRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := c.GetHeader(ownerHeader)
		if owner == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing " + ownerHeader + " header"})
			c.Abort()
			return
		}
		c.Set(ownerKey, owner)
		c.Next()
	}
}

func ownerOf(c *gin.Context) string {
	return c.GetString(ownerKey)
}
