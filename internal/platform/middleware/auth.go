package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "prospector/pkg/domain"
	"prospector/pkg/requestcontext"
)

// TokenValidator resolves a bearer token to the caller's user id.
type TokenValidator interface {
	ValidateUserID(tokenString string) (id.UserID, error)
}

// Authenticate attaches the caller identity for a valid bearer token.
// Requests without an Authorization header pass through anonymously; the
// account services reject anonymous callers themselves. A present but
// invalid token is answered with 401.
func Authenticate(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w, logger, r, "Missing or invalid Authorization header", nil)
				return
			}
			userID, err := validator.ValidateUserID(token)
			if err != nil {
				writeUnauthorized(w, logger, r, "Invalid or expired token", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithUserID(ctx, userID)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, logger *slog.Logger, r *http.Request, description string, cause error) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	logger.WarnContext(ctx, "unauthorized access",
		"reason", description,
		"error", cause,
		"request_id", requestID,
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if _, err := w.Write([]byte(`{"error":"unauthenticated","error_description":"` + description + `"}`)); err != nil {
		logger.ErrorContext(ctx, "failed to write unauthorized response",
			"error", err,
			"request_id", requestID,
		)
	}
}
