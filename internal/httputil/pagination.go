package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// PageLimits bounds the limit query parameter of a list endpoint.
type PageLimits struct {
	Default int
	Max     int
}

// AuditTrailLimits lets a typical envelope trail fit in a single page.
var AuditTrailLimits = PageLimits{Default: 100, Max: 500}

// Page is a decoded offset/limit window.
type Page struct {
	Offset int
	Limit  int
}

// ParsePage reads the offset and limit query parameters. Missing values fall back to
// zero and limits.Default.
func ParsePage(c *gin.Context, limits PageLimits) (Page, error) {
	page := Page{Limit: limits.Default}

	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return Page{}, fmt.Errorf("offset must be a non-negative integer, got %q", raw)
		}
		page.Offset = offset
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > limits.Max {
			return Page{}, fmt.Errorf("limit must be between 1 and %d, got %q", limits.Max, raw)
		}
		page.Limit = limit
	}

	return page, nil
}
