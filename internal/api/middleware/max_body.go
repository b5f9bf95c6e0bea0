package middleware

import (
	"fmt"
	"net/http"

	"github.com/cloo-solutions/vaidya/internal/api"
)

// MaxBodyBytes rejects request bodies larger than limit. Questions and symptom
// lists are small; document submissions carry full text and get a larger limit.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	tooLarge := fmt.Sprintf("request body exceeds %d bytes", limit)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, tooLarge)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
