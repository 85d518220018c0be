// Package requestid carries the per-request identifier through context so
// logs and audit events from one search correlate.
package requestid

import "context"

type ctxKey string

const requestKey ctxKey = "clinicdesk.request_id"

// WithRequestID stores the request id in context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestKey, requestID)
}

// FromContext extracts the request id if present.
func FromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(requestKey)
	if val == nil {
		return "", false
	}
	requestID, ok := val.(string)
	return requestID, ok && requestID != ""
}
