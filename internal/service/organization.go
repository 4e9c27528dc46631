package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"selfserve-api/internal/models"
	"selfserve-api/internal/repository"
)

var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrNotAMember           = errors.New("not a member of this organization")
	ErrAdminRequired        = errors.New("organization admin role required")
	ErrAlreadyMember        = errors.New("user is already a member")
	ErrAlreadyInvited       = errors.New("a pending invite already exists for this email")
)

type OrganizationService struct {
	orgs  *repository.OrganizationRepository
	users *repository.UserRepository
}

func NewOrganizationService(orgs *repository.OrganizationRepository, users *repository.UserRepository) *OrganizationService {
	return &OrganizationService{orgs: orgs, users: users}
}

func (s *OrganizationService) Create(ctx context.Context, userID uuid.UUID, name string) (*models.Organization, error) {
	org := &models.Organization{
		Name:     name,
		Slug:     slugifyName(name),
		PlanName: "free",
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, err
	}

	membership := &models.Membership{
		OrganizationID: org.ID,
		UserID:         userID,
		Role:           "admin",
	}
	if err := s.orgs.CreateMembership(ctx, membership); err != nil {
		return nil, err
	}

	return org, nil
}

func (s *OrganizationService) Get(ctx context.Context, orgID, userID uuid.UUID) (*models.Organization, error) {
	if _, err := s.requireMember(ctx, orgID, userID); err != nil {
		return nil, err
	}

	org, err := s.orgs.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, ErrOrganizationNotFound
	}
	return org, nil
}

func (s *OrganizationService) Update(ctx context.Context, orgID, userID uuid.UUID, name *string) (*models.Organization, error) {
	if err := s.requireAdmin(ctx, orgID, userID); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != nil {
		updates["name"] = *name
	}
	if len(updates) > 0 {
		if err := s.orgs.Update(ctx, orgID, updates); err != nil {
			return nil, err
		}
	}

	return s.Get(ctx, orgID, userID)
}

func (s *OrganizationService) ListMembers(ctx context.Context, orgID, userID uuid.UUID) ([]models.Membership, error) {
	if _, err := s.requireMember(ctx, orgID, userID); err != nil {
		return nil, err
	}

	return s.orgs.ListMembers(ctx, orgID)
}

// Invite records an invitation for an email address. If the address
// already belongs to a user they are added as a member directly.
func (s *OrganizationService) Invite(ctx context.Context, orgID, inviterID uuid.UUID, email, role string) (*models.Invite, error) {
	if err := s.requireAdmin(ctx, orgID, inviterID); err != nil {
		return nil, err
	}
	if role == "" {
		role = "member"
	}

	if user, err := s.users.FindByEmail(ctx, email); err != nil {
		return nil, err
	} else if user != nil {
		existing, err := s.orgs.FindMembership(ctx, orgID, user.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrAlreadyMember
		}

		membership := &models.Membership{
			OrganizationID: orgID,
			UserID:         user.ID,
			Role:           role,
		}
		if err := s.orgs.CreateMembership(ctx, membership); err != nil {
			return nil, err
		}
		return nil, nil
	}

	pending, err := s.orgs.FindPendingInvite(ctx, orgID, email)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, ErrAlreadyInvited
	}

	invite := &models.Invite{
		OrganizationID: orgID,
		Email:          email,
		Role:           role,
		InvitedBy:      inviterID,
	}
	if err := s.orgs.CreateInvite(ctx, invite); err != nil {
		return nil, err
	}
	return invite, nil
}

func (s *OrganizationService) RemoveMember(ctx context.Context, orgID, callerID, memberID uuid.UUID) error {
	if err := s.requireAdmin(ctx, orgID, callerID); err != nil {
		return err
	}

	membership, err := s.orgs.FindMembership(ctx, orgID, memberID)
	if err != nil {
		return err
	}
	if membership == nil {
		return ErrNotAMember
	}

	return s.orgs.DeleteMembership(ctx, orgID, memberID)
}

func (s *OrganizationService) requireMember(ctx context.Context, orgID, userID uuid.UUID) (*models.Membership, error) {
	membership, err := s.orgs.FindMembership(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, ErrNotAMember
	}
	return membership, nil
}

func (s *OrganizationService) requireAdmin(ctx context.Context, orgID, userID uuid.UUID) error {
	membership, err := s.requireMember(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if membership.Role != "admin" {
		return ErrAdminRequired
	}
	return nil
}

func slugifyName(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Join(strings.Fields(slug), "-")
	return slug + "-" + uuid.NewString()[:8]
}
