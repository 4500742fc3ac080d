package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/service"
)

// ============================================================
// Auth & users
// ============================================================

func loginHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/login")
		defer span.End()

		var req domain.LoginRequest
		if err := decodeAndValidate(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		resp, err := authSvc.Login(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func meHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/me")
		defer span.End()

		session := SessionFromContext(ctx)
		user, err := authSvc.GetUser(ctx, session.UserID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"user":       user,
			"tillId":     session.TillID,
			"privileges": session.Role.Privileges(),
		})
	}
}

func createUserHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users")
		defer span.End()

		var req domain.CreateUserRequest
		if err := decodeAndValidate(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		user, err := authSvc.CreateUser(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, user)
	}
}
