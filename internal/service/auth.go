package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/port"
)

var authTracer = otel.Tracer("service/auth")

// AuthService handles staff accounts, sign-in and access tokens.
type AuthService struct {
	store      port.UserStore
	jwtSecret  []byte
	accessTTL  time.Duration
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(store port.UserStore, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:      store,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger,
	}
}

// WithBcryptCost overrides the hashing cost. Tests use bcrypt.MinCost.
func (s *AuthService) WithBcryptCost(cost int) *AuthService {
	s.bcryptCost = cost
	return s
}

// ============================================================
// Users
// ============================================================

// EnsureAdmin creates the bootstrap admin unless a user with that email already exists.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.EnsureAdmin")
	defer span.End()

	if email == "" || password == "" {
		return nil
	}
	_, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return nil
	}
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		return fmt.Errorf("lookup admin: %w", err)
	}

	_, err = s.CreateUser(ctx, domain.CreateUserRequest{
		Email:    email,
		Name:     "Administrator",
		Role:     domain.RoleAdmin,
		Password: password,
	})
	var conflict *domain.ErrConflict
	if errors.As(err, &conflict) {
		return nil
	}
	return err
}

// CreateUser registers a staff member. Emails are unique (ErrConflict).
func (s *AuthService) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.CreateUser")
	defer span.End()

	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "email is required"}
	}
	if !req.Role.Valid() {
		return nil, &domain.ErrValidation{Field: "role", Message: "unknown role"}
	}
	if len(req.Password) < 8 {
		return nil, &domain.ErrValidation{Field: "password", Message: "must be at least 8 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		Role:         req.Role,
		PasswordHash: string(hash),
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user created",
		zap.String("user_id", u.ID),
		zap.String("role", string(u.Role)),
	)
	return u, nil
}

func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.GetUser")
	defer span.End()

	return s.store.GetUserByID(ctx, userID)
}

// ============================================================
// Login (POST /v1/auth/login)
// ============================================================

func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email := normalizeEmail(req.Email)
	span.SetAttributes(attribute.String("user.email", email))

	invalid := &domain.ErrUnauthorized{Message: "invalid credentials"}

	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil, invalid
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !u.Active {
		s.logger.Warn("login: inactive user", zap.String("user_id", u.ID))
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("login: wrong password", zap.String("user_id", u.ID))
		return nil, invalid
	}

	token, err := s.signAccessToken(u)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	s.logger.Info("user logged in", zap.String("user_id", u.ID))
	return &domain.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.accessTTL.Seconds()),
		User:        u,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
