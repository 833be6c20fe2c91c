package middleware

import (
	"net/http"
	"time"

	"github.com/0xshikhar/sapphire-did-sub000/pkg/requestcontext"
)

// RequestTime captures the current time at the start of the request and
// stores it in the context. Every timestamp written during the request, from
// version CreatedAt to audit events, reads this single value.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
