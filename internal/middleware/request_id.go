package middleware

import (
	"context"
	"net/http"

	"github.com/fakduai/khun-phaen-sync/internal/contextkey"
	"github.com/google/uuid"
)

// RequestID generates a unique request ID and attaches it to the context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		requestID := uuid.New()
		ctx := context.WithValue(req.Context(), contextkey.ContextKeyRequestID, requestID)
		req = req.WithContext(ctx)
		w.Header().Set("X-Request-ID", requestID.String())
		next.ServeHTTP(w, req)
	})
}
