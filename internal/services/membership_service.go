package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"saascore/internal/autherrors"
	"saascore/internal/models"
	"saascore/internal/repositories"
)

// MembershipService manages the user/organization links. Mutating operations
// take the acting membership and enforce role checks here rather than in
// handlers, so every caller gets the same answer.
type MembershipService interface {
	Invite(ctx context.Context, req *InviteRequest) (*models.Membership, error)
	Accept(ctx context.Context, membershipID, userID uuid.UUID) (*models.Membership, error)
	ChangeRole(ctx context.Context, actor *models.Membership, membershipID uuid.UUID, role models.MembershipRole) (*models.Membership, error)
	Remove(ctx context.Context, actor *models.Membership, membershipID uuid.UUID) error
	GetForUser(ctx context.Context, organizationID, userID uuid.UUID) (*models.Membership, error)
	ListByOrganization(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]models.MembershipPublic, error)
}

type membershipService struct {
	membershipRepo repositories.MembershipRepository
	userRepo       repositories.UserRepository
}

func NewMembershipService(membershipRepo repositories.MembershipRepository, userRepo repositories.UserRepository) MembershipService {
	return &membershipService{membershipRepo: membershipRepo, userRepo: userRepo}
}

type InviteRequest struct {
	Actor *models.Membership    `json:"-"`
	Email string                `json:"email" validate:"required,email"`
	Role  models.MembershipRole `json:"role" validate:"required"`
}

func (s *membershipService) Invite(ctx context.Context, req *InviteRequest) (*models.Membership, error) {
	if req.Actor == nil || !req.Actor.CanManageUsers() {
		return nil, autherrors.New(autherrors.KindForbidden, "")
	}
	if !req.Role.Valid() {
		return nil, autherrors.New(autherrors.KindConflict, "invalid role")
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	actorID := req.Actor.UserID
	membership := &models.Membership{
		ID:             uuid.New(),
		OrganizationID: req.Actor.OrganizationID,
		UserID:         user.ID,
		Role:           req.Role,
		Status:         models.StatusInvited,
		InvitedBy:      &actorID,
		InvitedAt:      &now,
	}
	membership.CreatedBy = &actorID
	membership.UpdatedBy = &actorID

	if err := s.membershipRepo.Create(ctx, membership); err != nil {
		return nil, err
	}
	return membership, nil
}

// Accept transitions an invited membership to active. Only the invited user
// can accept their own invitation.
func (s *membershipService) Accept(ctx context.Context, membershipID, userID uuid.UUID) (*models.Membership, error) {
	membership, err := s.membershipRepo.GetByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if membership.UserID != userID {
		return nil, autherrors.New(autherrors.KindForbidden, "")
	}
	if membership.Status == models.StatusActive {
		return membership, nil
	}

	now := time.Now()
	membership.Status = models.StatusActive
	membership.AcceptedAt = &now
	membership.UpdatedBy = &userID
	if err := s.membershipRepo.Update(ctx, membership); err != nil {
		return nil, err
	}
	return membership, nil
}

func (s *membershipService) ChangeRole(ctx context.Context, actor *models.Membership, membershipID uuid.UUID, role models.MembershipRole) (*models.Membership, error) {
	if actor == nil || !actor.CanManageUsers() {
		return nil, autherrors.New(autherrors.KindForbidden, "")
	}
	if !role.Valid() {
		return nil, autherrors.New(autherrors.KindConflict, "invalid role")
	}

	membership, err := s.membershipRepo.GetByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if membership.OrganizationID != actor.OrganizationID {
		return nil, autherrors.New(autherrors.KindForbidden, "")
	}

	// Demoting the last owner would orphan the organization.
	if membership.IsOwner() && role != models.RoleOwner {
		owners, err := s.countOwners(ctx, membership.OrganizationID)
		if err != nil {
			return nil, err
		}
		if owners <= 1 {
			return nil, autherrors.New(autherrors.KindConflict, "organization must retain at least one owner")
		}
	}

	actorID := actor.UserID
	membership.Role = role
	membership.UpdatedBy = &actorID
	if err := s.membershipRepo.Update(ctx, membership); err != nil {
		return nil, err
	}
	return membership, nil
}

func (s *membershipService) Remove(ctx context.Context, actor *models.Membership, membershipID uuid.UUID) error {
	if actor == nil || !actor.CanManageUsers() {
		return autherrors.New(autherrors.KindForbidden, "")
	}

	membership, err := s.membershipRepo.GetByID(ctx, membershipID)
	if err != nil {
		return err
	}
	if membership.OrganizationID != actor.OrganizationID {
		return autherrors.New(autherrors.KindForbidden, "")
	}
	if membership.IsOwner() {
		owners, err := s.countOwners(ctx, membership.OrganizationID)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return autherrors.New(autherrors.KindConflict, "organization must retain at least one owner")
		}
	}

	return s.membershipRepo.SoftDelete(ctx, membershipID, actor.UserID)
}

func (s *membershipService) GetForUser(ctx context.Context, organizationID, userID uuid.UUID) (*models.Membership, error) {
	return s.membershipRepo.GetByOrgAndUser(ctx, organizationID, userID)
}

func (s *membershipService) ListByOrganization(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]models.MembershipPublic, error) {
	memberships, err := s.membershipRepo.ListByOrganization(ctx, organizationID, limit, offset)
	if err != nil {
		return nil, err
	}
	return publicMemberships(memberships), nil
}

func (s *membershipService) countOwners(ctx context.Context, organizationID uuid.UUID) (int, error) {
	memberships, err := s.membershipRepo.ListByOrganization(ctx, organizationID, 1000, 0)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, m := range memberships {
		if m.IsOwner() && m.IsActive() {
			count++
		}
	}
	return count, nil
}
