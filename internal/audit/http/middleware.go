// Package http carries request metadata from gin into the audit context.
package http

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	auditDomain "github.com/allisson/esign/internal/audit/domain"
)

// RequestInfoMiddleware stores the client IP, user agent and request id in the request
// context so audit entries recorded further down carry them. It must run after the
// requestid middleware.
func RequestInfoMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auditDomain.WithRequestInfo(c.Request.Context(), auditDomain.RequestInfo{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			RequestID: requestid.Get(c),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
