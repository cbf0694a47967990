package http

import (
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// corsExposedHeaders are readable by browser signing pages.
var corsExposedHeaders = []string{
	"X-Request-Id",
	"X-Content-SHA256",
	"Content-Disposition",
	"Retry-After",
}

// createCORSMiddleware lets browser signing pages hosted on allowOrigins call the API.
// Bearer tokens travel in headers, so credentials (cookies) are never allowed. Returns
// nil when disabled or when no configured origin is usable.
func createCORSMiddleware(enabled bool, allowOrigins string, logger *slog.Logger) gin.HandlerFunc {
	if !enabled {
		return nil
	}

	origins, rejected := parseOrigins(allowOrigins)
	for _, r := range rejected {
		logger.Warn("ignoring invalid CORS origin", slog.String("origin", r))
	}
	if len(origins) == 0 {
		logger.Warn("CORS enabled but no usable origin configured, CORS not applied")
		return nil
	}

	logger.Info("CORS enabled", slog.Any("origins", origins))

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposeHeaders:    corsExposedHeaders,
		AllowCredentials: false,
		MaxAge:           time.Hour,
	})
}

// parseOrigins splits a comma-separated list into usable origins and rejected entries.
// An origin is scheme://host[:port] with https, or http for localhost only.
func parseOrigins(list string) (origins, rejected []string) {
	for _, part := range strings.Split(list, ",") {
		candidate := strings.TrimRight(strings.TrimSpace(part), "/")
		if candidate == "" {
			continue
		}
		if isUsableOrigin(candidate) {
			origins = append(origins, candidate)
		} else {
			rejected = append(rejected, candidate)
		}
	}
	return origins, rejected
}

func isUsableOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" || u.Path != "" || u.RawQuery != "" || u.User != nil {
		return false
	}
	switch u.Scheme {
	case "https":
		return true
	case "http":
		host := u.Hostname()
		return host == "localhost" || host == "127.0.0.1"
	default:
		return false
	}
}
