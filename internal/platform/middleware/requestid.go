package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/0xshikhar/sapphire-did-sub000/pkg/requestcontext"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns each request a uuid, stores it in the context and echoes
// it back as the X-Request-ID response header. An incoming X-Request-ID is
// reused so ids stay stable across proxy hops.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(requestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
