package domain

import "context"

type requestInfoKey struct{}

// RequestInfo is the caller metadata attached to audit entries.
type RequestInfo struct {
	IPAddress string
	UserAgent string
	RequestID string
}

// WithRequestInfo stores info in ctx.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFrom returns the request metadata stored in ctx, or the zero value.
func RequestInfoFrom(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info
}
