package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/username/tradevault/src/logger"
	"github.com/username/tradevault/src/storage"
	"github.com/username/tradevault/src/utils"
	"golang.org/x/time/rate"
)

type contextKey string

const userIDKey contextKey = "userID"

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

// RateLimitMiddleware applies a global request budget.
func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			logger.L.Warn("Rate limit exceeded", "method", r.Method, "path", r.URL.Path, "remoteAddr", r.RemoteAddr)
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TokenAuthMiddleware resolves the caller's identity from the
// X-Ingestion-Token header. Interactive session auth is handled outside this
// service; the ingestion token is the only identity the pipeline knows.
func TokenAuthMiddleware(tokens storage.TokenStore, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Ingestion-Token")
		if token == "" {
			utils.SendJSONError(w, "X-Ingestion-Token header required", http.StatusUnauthorized)
			return
		}
		userID, err := tokens.ResolveUserByToken(token)
		if err != nil {
			if err == storage.ErrNotFound {
				utils.SendJSONError(w, "invalid ingestion token", http.StatusUnauthorized)
				return
			}
			logger.L.Error("Token resolution failed", "error", err)
			utils.SendJSONError(w, "internal error", http.StatusInternalServerError)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserIDFromContext returns the identity set by TokenAuthMiddleware.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}
