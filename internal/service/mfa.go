package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"selfserve-api/internal/repository"
)

var (
	ErrMFAAlreadyEnabled = errors.New("mfa is already enabled")
	ErrMFANotEnrolled    = errors.New("no pending mfa enrollment")
	ErrMFANotEnabled     = errors.New("mfa is not enabled")
)

const mfaIssuer = "selfserve"

type MFAService struct {
	users *repository.UserRepository
}

func NewMFAService(users *repository.UserRepository) *MFAService {
	return &MFAService{users: users}
}

type MFAEnrollment struct {
	Secret       string `json:"secret"`
	ProvisionURI string `json:"provision_uri"`
}

// Enroll generates a pending TOTP secret. It only becomes active after
// the user proves possession with a valid code via Activate.
func (s *MFAService) Enroll(ctx context.Context, userID uuid.UUID) (*MFAEnrollment, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.MFAEnabled {
		return nil, ErrMFAAlreadyEnabled
	}

	secret, err := generateTOTPSecret()
	if err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, userID, map[string]interface{}{
		"mfa_pending_secret": secret,
	}); err != nil {
		return nil, err
	}

	return &MFAEnrollment{
		Secret:       secret,
		ProvisionURI: totpProvisionURI(secret, mfaIssuer, user.Email),
	}, nil
}

// Activate promotes the pending secret once the user supplies a code
// generated from it.
func (s *MFAService) Activate(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.MFAEnabled {
		return ErrMFAAlreadyEnabled
	}
	if user.MFAPendingSecret == "" {
		return ErrMFANotEnrolled
	}

	if !verifyTOTPCode(user.MFAPendingSecret, code, time.Now()) {
		return ErrInvalidMFACode
	}

	return s.users.Update(ctx, userID, map[string]interface{}{
		"mfa_enabled":        true,
		"mfa_secret":         user.MFAPendingSecret,
		"mfa_pending_secret": "",
	})
}

// Disable turns MFA off after a final valid code.
func (s *MFAService) Disable(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if !user.MFAEnabled {
		return ErrMFANotEnabled
	}

	if !verifyTOTPCode(user.MFASecret, code, time.Now()) {
		return ErrInvalidMFACode
	}

	return s.users.Update(ctx, userID, map[string]interface{}{
		"mfa_enabled":        false,
		"mfa_secret":         "",
		"mfa_pending_secret": "",
	})
}
