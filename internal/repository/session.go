package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"selfserve-api/internal/models"
	"selfserve-api/internal/storage"
)

type SessionRepository struct {
	db *storage.Postgres
}

func NewSessionRepository(db *storage.Postgres) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	return r.db.DB.WithContext(ctx).Create(session).Error
}

func (r *SessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var session models.Session
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		First(&session).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &session, err
}

// ListActive returns the user's sessions that are neither revoked nor
// expired, newest first.
func (r *SessionRepository) ListActive(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.DB.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, time.Now()).
		Order("last_seen_at DESC").
		Find(&sessions).Error

	return sessions, err
}

func (r *SessionRepository) Touch(ctx context.Context, id uuid.UUID) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", id).
		Update("last_seen_at", time.Now()).Error
}

func (r *SessionRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", time.Now()).Error
}

// RevokeAllExcept revokes every active session of the user but the given
// one (the caller's own).
func (r *SessionRepository) RevokeAllExcept(ctx context.Context, userID, keep uuid.UUID) (int64, error) {
	result := r.db.DB.WithContext(ctx).
		Model(&models.Session{}).
		Where("user_id = ? AND id != ? AND revoked_at IS NULL", userID, keep).
		Update("revoked_at", time.Now())

	return result.RowsAffected, result.Error
}
