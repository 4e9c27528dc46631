package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"selfserve-api/internal/models"
	"selfserve-api/internal/storage"
)

type OrganizationRepository struct {
	db *storage.Postgres
}

func NewOrganizationRepository(db *storage.Postgres) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	return r.db.DB.WithContext(ctx).Create(org).Error
}

func (r *OrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		First(&org).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &org, err
}

func (r *OrganizationRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.Organization{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *OrganizationRepository) CreateMembership(ctx context.Context, m *models.Membership) error {
	return r.db.DB.WithContext(ctx).Create(m).Error
}

func (r *OrganizationRepository) FindMembership(ctx context.Context, orgID, userID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	err := r.db.DB.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		First(&m).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &m, err
}

// FindPrimaryMembership returns the user's oldest membership, used to
// pick the organization a login token is scoped to.
func (r *OrganizationRepository) FindPrimaryMembership(ctx context.Context, userID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	err := r.db.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		First(&m).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &m, err
}

func (r *OrganizationRepository) ListMembers(ctx context.Context, orgID uuid.UUID) ([]models.Membership, error) {
	var members []models.Membership
	err := r.db.DB.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at ASC").
		Find(&members).Error

	return members, err
}

func (r *OrganizationRepository) DeleteMembership(ctx context.Context, orgID, userID uuid.UUID) error {
	return r.db.DB.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Delete(&models.Membership{}).Error
}

func (r *OrganizationRepository) CreateInvite(ctx context.Context, invite *models.Invite) error {
	return r.db.DB.WithContext(ctx).Create(invite).Error
}

func (r *OrganizationRepository) FindPendingInvite(ctx context.Context, orgID uuid.UUID, email string) (*models.Invite, error) {
	var invite models.Invite
	err := r.db.DB.WithContext(ctx).
		Where("organization_id = ? AND email = ? AND accepted_at IS NULL", orgID, email).
		First(&invite).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &invite, err
}
