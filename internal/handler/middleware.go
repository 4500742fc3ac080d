package handler

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/service"
)

type contextKey string

const sessionKey contextKey = "session"

// TillHeader selects the till a request operates on.
const TillHeader = "X-Till-ID"

// JWTAuthMiddleware validates Bearer tokens and injects the caller's session into context.
func JWTAuthMiddleware(authSvc *service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			claims, err := authSvc.ValidateAccessToken(parts[1])
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			till := strings.TrimSpace(r.Header.Get(TillHeader))
			if till == "" {
				till = domain.DefaultTillID
			}
			session := domain.Session{UserID: claims.Subject, TillID: till, Role: claims.Role}
			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePrivilege rejects callers whose role lacks p.
func RequirePrivilege(p domain.Privilege, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := SessionFromContext(r.Context())
			if !session.Role.Can(p) {
				handleServiceError(w, &domain.ErrForbidden{Action: string(p)}, logger.With(
					zap.String("user_id", session.UserID),
					zap.String("role", string(session.Role)),
				))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext extracts the authenticated session from context.
func SessionFromContext(ctx context.Context) domain.Session {
	v, _ := ctx.Value(sessionKey).(domain.Session)
	return v
}
