package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"selfserve-api/internal/models"
	"selfserve-api/internal/repository"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionService struct {
	sessions *repository.SessionRepository
}

func NewSessionService(sessions *repository.SessionRepository) *SessionService {
	return &SessionService{sessions: sessions}
}

func (s *SessionService) List(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	return s.sessions.ListActive(ctx, userID)
}

// Revoke kills one of the caller's own sessions. Other users' sessions
// are indistinguishable from missing ones.
func (s *SessionService) Revoke(ctx context.Context, userID, sessionID uuid.UUID) error {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil || session.UserID != userID {
		return ErrSessionNotFound
	}

	return s.sessions.Revoke(ctx, sessionID)
}

// RevokeOthers revokes every session of the user except the current one.
func (s *SessionService) RevokeOthers(ctx context.Context, userID, current uuid.UUID) (int64, error) {
	return s.sessions.RevokeAllExcept(ctx, userID, current)
}
