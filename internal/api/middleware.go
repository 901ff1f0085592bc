package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/fieldops/jobcard/internal/identity"
	"github.com/fieldops/jobcard/internal/logger"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	actorKey         contextKey = "actor"
)

func correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), correlationIDKey, correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authMiddleware verifies the Bearer token and stores the resulting actor
// in the request context.
func authMiddleware(provider identity.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				http.Error(w, "Missing bearer token", http.StatusUnauthorized)
				return
			}

			actor, err := provider.Verify(r.Context(), token)
			if err != nil {
				log := logger.WithCorrelationID(getCorrelationID(r.Context()))
				log.Warn().Err(err).Msg("Token verification failed")
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

func getActor(ctx context.Context) identity.Actor {
	if actor, ok := ctx.Value(actorKey).(identity.Actor); ok {
		return actor
	}
	return identity.Actor{}
}
