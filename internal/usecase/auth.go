package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sd-owens/YelpCamp/internal/entity"
	"github.com/sd-owens/YelpCamp/internal/platform/logger"
	"github.com/sd-owens/YelpCamp/internal/port/cache"
	"github.com/sd-owens/YelpCamp/internal/port/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthUsecase handles registration, login and session lifecycle. Sessions
// are HS256 JWTs whose ID is also kept in the session store for the session
// TTL, so logout can revoke a token before it expires.
type AuthUsecase struct {
	userRepo        repository.UserRepository
	sessions        cache.CacheRepository
	jwtSecret       []byte
	sessionTTL      time.Duration
	adminSignupCode string
	logger          *logger.Logger
}

func NewAuthUsecase(
	userRepo repository.UserRepository,
	sessions cache.CacheRepository,
	jwtSecret string,
	sessionTTL time.Duration,
	adminSignupCode string,
	log *logger.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		userRepo:        userRepo,
		sessions:        sessions,
		jwtSecret:       []byte(jwtSecret),
		sessionTTL:      sessionTTL,
		adminSignupCode: adminSignupCode,
		logger:          log.Named("AuthUsecase"),
	}
}

type sessionClaims struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Avatar    string
	AdminCode string
}

// Register creates an account and logs it in. The account becomes an admin
// when the submitted code matches the configured signup code.
func (uc *AuthUsecase) Register(ctx context.Context, input RegisterInput) (*entity.Principal, string, error) {
	uc.logger.Info("Registering user", zap.String("username", input.Username), zap.String("email", input.Email))

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &entity.User{
		Username:  input.Username,
		Email:     input.Email,
		Password:  string(hash),
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Avatar:    input.Avatar,
		IsAdmin:   uc.adminSignupCode != "" && input.AdminCode == uc.adminSignupCode,
		CreatedAt: now,
		UpdatedAt: now,
	}

	id, err := uc.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) || errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", err
		}
		uc.logger.Error("Failed to create user", zap.Error(err), zap.String("username", input.Username))
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = id

	return uc.EstablishSession(ctx, user)
}

// Login verifies the credential and establishes a session.
func (uc *AuthUsecase) Login(ctx context.Context, username, password string) (*entity.Principal, string, error) {
	user, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to fetch user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	return uc.EstablishSession(ctx, user)
}

// EstablishSession issues a signed session token for user and registers it
// in the session store. Completing a password reset also calls this, since
// recovery completion implies login.
func (uc *AuthUsecase) EstablishSession(ctx context.Context, user *entity.User) (*entity.Principal, string, error) {
	principal := &entity.Principal{
		ID:       user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
	}

	sessionID := uuid.NewString()
	now := time.Now()
	claims := sessionClaims{
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(uc.sessionTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(uc.jwtSecret)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign session token: %w", err)
	}

	payload, err := json.Marshal(principal)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal principal: %w", err)
	}
	if err := uc.sessions.Set(ctx, sessionKey(sessionID), payload, uc.sessionTTL); err != nil {
		return nil, "", fmt.Errorf("failed to store session: %w", err)
	}

	uc.logger.Debug("Session established", zap.String("user_id", user.ID), zap.String("session_id", sessionID))
	return principal, token, nil
}

// PrincipalFromToken resolves a session token back to its Principal.
// Expired, malformed or revoked tokens all yield ErrUnauthenticated.
func (uc *AuthUsecase) PrincipalFromToken(ctx context.Context, token string) (*entity.Principal, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return uc.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrUnauthenticated
	}

	payload, err := uc.sessions.Get(ctx, sessionKey(claims.ID))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var principal entity.Principal
	if err := json.Unmarshal(payload, &principal); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session principal: %w", err)
	}
	return &principal, nil
}

// Logout revokes the session behind token. Unknown tokens are a no-op.
func (uc *AuthUsecase) Logout(ctx context.Context, token string) error {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return uc.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil
	}
	if err := uc.sessions.Delete(ctx, sessionKey(claims.ID)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// GetUser fetches an account for profile display.
func (uc *AuthUsecase) GetUser(ctx context.Context, id string) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return user, nil
}
