package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/sd-owens/YelpCamp/internal/adapter/email"
	"github.com/sd-owens/YelpCamp/internal/entity"
	"github.com/sd-owens/YelpCamp/internal/platform/logger"
	"github.com/sd-owens/YelpCamp/internal/platform/metrics"
	"github.com/sd-owens/YelpCamp/internal/port/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// resetTokenBytes yields a 40 character hex token, 160 bits of entropy.
	resetTokenBytes = 20
	resetTokenTTL   = time.Hour
)

// PasswordResetUsecase drives the reset token lifecycle: issue on request,
// validate on link visit, consume on submission. Tokens are single-use
// because consumption clears them in the same conditional update that
// re-validates them.
type PasswordResetUsecase struct {
	userRepo  repository.UserRepository
	sender    email.Sender
	auth      *AuthUsecase
	publisher EventPublisher
	metrics   *metrics.MetricsManager
	baseURL   string
	logger    *logger.Logger
}

func NewPasswordResetUsecase(
	userRepo repository.UserRepository,
	sender email.Sender,
	auth *AuthUsecase,
	publisher EventPublisher,
	mm *metrics.MetricsManager,
	baseURL string,
	log *logger.Logger,
) *PasswordResetUsecase {
	return &PasswordResetUsecase{
		userRepo:  userRepo,
		sender:    sender,
		auth:      auth,
		publisher: publisher,
		metrics:   mm,
		baseURL:   baseURL,
		logger:    log.Named("PasswordResetUsecase"),
	}
}

func generateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// RequestReset issues a reset token for the account behind email and mails
// a recovery link. The sequence is generate, persist, notify: once the
// token is persisted it stays valid for the full window even if the mail
// never arrives, so delivery failure is logged and counted but not
// propagated. Returns ErrNoSuchAccount for an unknown address; the caller's
// messaging around that is a known account-enumeration gap carried over
// from the original flow.
func (uc *PasswordResetUsecase) RequestReset(ctx context.Context, emailAddr string) error {
	user, err := uc.userRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoSuchAccount
		}
		return fmt.Errorf("failed to look up account: %w", err)
	}

	token, err := generateResetToken()
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(resetTokenTTL)
	if err := uc.userRepo.SetResetToken(ctx, user.ID, token, expiresAt); err != nil {
		return fmt.Errorf("failed to persist reset token: %w", err)
	}

	if uc.metrics != nil {
		uc.metrics.PasswordResetRequestsTotal.Inc()
	}
	uc.logger.Info("Reset token issued", zap.String("user_id", user.ID), zap.Time("expires_at", expiresAt))

	subject := "Password Reset"
	body := fmt.Sprintf(
		"You are receiving this because you (or someone else) have requested the reset of the password for your account.\n\n"+
			"Please click on the following link, or paste this into your browser to complete the process:\n\n"+
			"%s/reset/%s\n\n"+
			"If you did not request this, please ignore this email and your password will remain unchanged.\n",
		uc.baseURL, token)
	if err := uc.sender.SendEmail([]string{user.Email}, subject, body); err != nil {
		uc.logger.Warn("Failed to send reset email, token remains valid", zap.Error(err), zap.String("user_id", user.ID))
		if uc.metrics != nil {
			uc.metrics.NotifierFailuresTotal.WithLabelValues("reset_request").Inc()
		}
	}

	return nil
}

// ValidateToken returns the account holding token if the token has not
// expired. Expired and unknown tokens are indistinguishable to the caller,
// which keeps the error message from leaking token state.
func (uc *PasswordResetUsecase) ValidateToken(ctx context.Context, token string) (*entity.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	user, err := uc.userRepo.FindByValidResetToken(ctx, token, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to validate reset token: %w", err)
	}
	return user, nil
}

// ConsumeReset completes the reset: the token is re-validated and cleared
// in one conditional store operation, the credential is replaced with the
// bcrypt hash of newPassword, and a fresh session is established for the
// account. The confirmation mail and the published event are best-effort.
func (uc *PasswordResetUsecase) ConsumeReset(ctx context.Context, token, newPassword, confirmPassword string) (*entity.Principal, string, error) {
	if token == "" {
		return nil, "", ErrInvalidToken
	}
	if newPassword != confirmPassword {
		return nil, "", ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash new password: %w", err)
	}

	user, err := uc.userRepo.ConsumeResetToken(ctx, token, string(hash), time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidToken
		}
		return nil, "", fmt.Errorf("failed to consume reset token: %w", err)
	}

	principal, sessionToken, err := uc.auth.EstablishSession(ctx, user)
	if err != nil {
		// The credential change is already durable; the caller can still
		// log in through the regular flow.
		uc.logger.Error("Password reset completed but session could not be established", zap.Error(err), zap.String("user_id", user.ID))
		return nil, "", fmt.Errorf("failed to establish session after reset: %w", err)
	}

	if uc.metrics != nil {
		uc.metrics.PasswordResetsCompletedTotal.Inc()
	}
	uc.logger.Info("Password reset completed", zap.String("user_id", user.ID))

	subject := "Your password has been changed"
	body := fmt.Sprintf(
		"Hello,\n\nThis is a confirmation that the password for your account %s has just been changed.\n",
		user.Email)
	if err := uc.sender.SendEmail([]string{user.Email}, subject, body); err != nil {
		uc.logger.Warn("Failed to send reset confirmation email", zap.Error(err), zap.String("user_id", user.ID))
		if uc.metrics != nil {
			uc.metrics.NotifierFailuresTotal.WithLabelValues("reset_confirmation").Inc()
		}
	}

	if uc.publisher != nil {
		eventData := map[string]interface{}{
			"user_id":  user.ID,
			"reset_at": time.Now().UTC().Format(time.RFC3339Nano),
		}
		if err := uc.publisher.Publish(ctx, "user.password_reset", eventData); err != nil {
			uc.logger.Warn("Failed to publish user.password_reset event", zap.Error(err), zap.String("user_id", user.ID))
		}
	}

	return principal, sessionToken, nil
}
