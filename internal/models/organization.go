package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Organization struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	PlanName  string    `gorm:"default:'free'" json:"plan_name"`
	CreatedAt time.Time `json:"created_at"`
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (Organization) TableName() string {
	return "organizations"
}

type Membership struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_org_user;not null" json:"organization_id"`
	UserID         uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_org_user;not null" json:"user_id"`
	Role           string    `gorm:"default:'member'" json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

func (m *Membership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (Membership) TableName() string {
	return "memberships"
}

type Invite struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;index;not null" json:"organization_id"`
	Email          string     `gorm:"not null" json:"email"`
	Role           string     `gorm:"default:'member'" json:"role"`
	InvitedBy      uuid.UUID  `gorm:"type:uuid" json:"invited_by"`
	CreatedAt      time.Time  `json:"created_at"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
}

func (i *Invite) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (Invite) TableName() string {
	return "invites"
}
