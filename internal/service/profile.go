package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"selfserve-api/internal/models"
	"selfserve-api/internal/repository"
)

var ErrUserNotFound = errors.New("user not found")

type ProfileService struct {
	users *repository.UserRepository
}

func NewProfileService(users *repository.UserRepository) *ProfileService {
	return &ProfileService{users: users}
}

func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, name *string) (*models.User, error) {
	updates := make(map[string]interface{})
	if name != nil {
		updates["name"] = *name
	}

	if len(updates) > 0 {
		if err := s.users.Update(ctx, userID, updates); err != nil {
			return nil, err
		}
	}

	return s.Get(ctx, userID)
}

// ChangePassword re-hashes after verifying the current password, so a
// stolen token alone can't rotate credentials.
func (s *ProfileService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.users.Update(ctx, userID, map[string]interface{}{
		"password_hash": string(hashed),
	})
}
