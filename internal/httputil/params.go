package httputil

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ParseUUIDParam reads a path parameter and parses it as a UUID.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s parameter: must be a valid UUID", name)
	}
	return id, nil
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
// The scheme comparison is case-insensitive. Returns false when absent or malformed.
func BearerToken(c *gin.Context) (string, bool) {
	const prefix = "bearer "

	header := c.GetHeader("Authorization")
	if len(header) <= len(prefix) {
		return "", false
	}
	if !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}
