package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"selfserve-api/internal/models"
	"selfserve-api/internal/storage"
)

type PlanRepository struct {
	db *storage.Postgres
}

func NewPlanRepository(db *storage.Postgres) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) FindByName(ctx context.Context, name string) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.DB.WithContext(ctx).
		Where("name = ?", name).
		First(&plan).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &plan, err
}

// FindForOrganization resolves an organization straight to its plan
// record in one query.
func (r *PlanRepository) FindForOrganization(ctx context.Context, orgID uuid.UUID) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.DB.WithContext(ctx).
		Joins("JOIN organizations ON organizations.plan_name = plans.name").
		Where("organizations.id = ?", orgID).
		First(&plan).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &plan, err
}

func (r *PlanRepository) Upsert(ctx context.Context, plan *models.Plan) error {
	return r.db.DB.WithContext(ctx).Save(plan).Error
}
