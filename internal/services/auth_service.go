package services

import (
	"context"
	"errors"
	"log"
	"reflect"
	"time"

	"github.com/google/uuid"

	"saascore/internal/autherrors"
	"saascore/internal/common"
	"saascore/internal/models"
	"saascore/internal/providers"
	"saascore/internal/repositories"
)

// AuthService orchestrates the authentication flows, mediating between the
// active provider, the session manager, and local identity records.
type AuthService interface {
	Signup(ctx context.Context, req *SignupRequest) (*SignupResult, error)
	Login(ctx context.Context, req *LoginRequest) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error)
	Logout(ctx context.Context, userID, sessionID uuid.UUID) error
	SwitchOrganization(ctx context.Context, userID, organizationID uuid.UUID) (*LoginResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	CompletePasswordReset(ctx context.Context, token, newPassword string) error
	CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, []models.MembershipPublic, error)
}

type authService struct {
	provider       providers.Provider
	userRepo       repositories.UserRepository
	membershipRepo repositories.MembershipRepository
	orgSvc         OrganizationService
	sessionSvc     SessionService
}

func NewAuthService(provider providers.Provider, userRepo repositories.UserRepository,
	membershipRepo repositories.MembershipRepository, orgSvc OrganizationService,
	sessionSvc SessionService) AuthService {
	return &authService{
		provider:       provider,
		userRepo:       userRepo,
		membershipRepo: membershipRepo,
		orgSvc:         orgSvc,
		sessionSvc:     sessionSvc,
	}
}

type SignupRequest struct {
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8"`
	FirstName        string `json:"first_name" validate:"required"`
	LastName         string `json:"last_name" validate:"required"`
	OrganizationName string `json:"organization_name"`
}

type SignupResult struct {
	User         *models.User             `json:"user"`
	Organization *models.Organization     `json:"organization,omitempty"`
	Membership   *models.MembershipPublic `json:"membership,omitempty"`
	Tokens       *models.TokenResponse    `json:"tokens"`
}

type LoginRequest struct {
	Email          string     `json:"email" validate:"required,email"`
	Password       string     `json:"password" validate:"required"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
}

type LoginResult struct {
	User         *models.User              `json:"user"`
	Organization *models.Organization      `json:"organization,omitempty"`
	Memberships  []models.MembershipPublic `json:"memberships"`
	Tokens       *models.TokenResponse     `json:"tokens"`
}

// Signup flow stages, reported on partial failure so callers can retry
// idempotently instead of duplicating provider-side accounts.
const (
	StageProviderCreate = "provider_create"
	StageUserSync       = "user_sync"
	StageOrganization   = "organization"
	StageMembership     = "membership"
	StageSession        = "session"
)

// classifyProviderErr passes classified provider errors through untouched and
// tags everything else as unclassified. Unclassified failures are logged
// distinctly; they indicate a mapping gap at the adapter, not a user fault.
func classifyProviderErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := autherrors.KindOf(err); ok {
		return err
	}
	log.Printf("UNCLASSIFIED provider error in %s: %v", op, err)
	return autherrors.Wrap(autherrors.KindUnclassifiedProvider, op+" failed", err)
}

func (s *authService) Signup(ctx context.Context, req *SignupRequest) (*SignupResult, error) {
	email, err := common.ValidateEmail(req.Email)
	if err != nil {
		return nil, autherrors.Wrap(autherrors.KindInvalidCredentials, "invalid signup input", err)
	}

	profile := map[string]interface{}{
		"first_name": req.FirstName,
		"last_name":  req.LastName,
	}

	authUser, err := s.provider.CreateUser(ctx, email, req.Password, profile)
	if err != nil {
		err = classifyProviderErr("create_user", err)
		if !autherrors.IsKind(err, autherrors.KindUserAlreadyExists) {
			return nil, stageErr(err, StageProviderCreate)
		}
		// The provider-side account exists. If the local record exists too the
		// signup is a genuine duplicate; otherwise a previous attempt failed
		// after provider creation and this is an idempotent retry.
		if _, lookupErr := s.userRepo.GetByEmail(ctx, email); lookupErr == nil {
			return nil, stageErr(err, StageProviderCreate)
		}
		authUser, err = s.provider.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, stageErr(classifyProviderErr("get_user_by_email", err), StageProviderCreate)
		}
		log.Printf("signup retry for %s: re-linking existing provider user %s", email, authUser.ProviderUserID)
	}

	user, err := s.syncUser(ctx, authUser, req.FirstName, req.LastName)
	if err != nil {
		return nil, stageErr(toAuthErr(err), StageUserSync)
	}

	result := &SignupResult{User: user}

	if req.OrganizationName != "" {
		org, err := s.orgSvc.Create(ctx, &CreateOrganizationRequest{
			Name:    req.OrganizationName,
			ActorID: user.ID,
		})
		if err != nil {
			return nil, stageErr(toAuthErr(err), StageOrganization)
		}
		result.Organization = org

		now := time.Now()
		membership := &models.Membership{
			ID:             uuid.New(),
			OrganizationID: org.ID,
			UserID:         user.ID,
			Role:           models.RoleOwner,
			Status:         models.StatusActive,
			AcceptedAt:     &now,
		}
		membership.CreatedBy = &user.ID
		membership.UpdatedBy = &user.ID
		if err := s.membershipRepo.Create(ctx, membership); err != nil {
			return nil, stageErr(toAuthErr(err), StageMembership)
		}
		pub := membership.Public()
		result.Membership = &pub
	}

	var orgID *uuid.UUID
	if result.Organization != nil {
		orgID = &result.Organization.ID
	}
	tokens, err := s.issueForProvider(ctx, user, orgID, nil)
	if err != nil {
		return nil, stageErr(toAuthErr(err), StageSession)
	}
	result.Tokens = tokens

	return result, nil
}

func stageErr(err error, stage string) error {
	var authErr *autherrors.Error
	if errors.As(err, &authErr) {
		return autherrors.WithStage(authErr, stage)
	}
	return autherrors.WithStage(autherrors.Wrap(autherrors.KindUnclassifiedProvider, "signup failed", err), stage)
}

// toAuthErr keeps classified errors and folds everything else into Conflict
// or a wrapped unclassified kind depending on origin.
func toAuthErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := autherrors.KindOf(err); ok {
		return err
	}
	return autherrors.Wrap(autherrors.KindUnclassifiedProvider, "internal failure", err)
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*LoginResult, error) {
	email, err := common.ValidateEmail(req.Email)
	if err != nil {
		return nil, autherrors.New(autherrors.KindInvalidCredentials, "")
	}

	authResult, err := s.provider.Authenticate(ctx, email, req.Password)
	if err != nil {
		return nil, classifyProviderErr("authenticate", err)
	}

	user, err := s.syncUser(ctx, &authResult.User, "", "")
	if err != nil {
		return nil, toAuthErr(err)
	}
	if !user.IsActive {
		return nil, autherrors.New(autherrors.KindUserInactive, "")
	}

	memberships, err := s.membershipRepo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, toAuthErr(err)
	}

	organizationID, org, err := s.resolveOrganization(ctx, user, memberships, req.OrganizationID)
	if err != nil {
		return nil, err
	}

	tokens, err := s.issueForProvider(ctx, user, organizationID, &authResult.Tokens)
	if err != nil {
		return nil, toAuthErr(err)
	}

	return &LoginResult{
		User:         user,
		Organization: org,
		Memberships:  publicMemberships(memberships),
		Tokens:       tokens,
	}, nil
}

// resolveOrganization validates an explicit organization hint or falls back
// to the user's first active membership. No membership at all is a valid
// login with no organization scope.
func (s *authService) resolveOrganization(ctx context.Context, user *models.User,
	memberships []*models.Membership, hint *uuid.UUID) (*uuid.UUID, *models.Organization, error) {

	if hint != nil {
		if !user.IsSuperuser && !hasActiveMembership(memberships, *hint) {
			return nil, nil, autherrors.New(autherrors.KindForbidden, "")
		}
		org, err := s.orgSvc.GetByID(ctx, *hint)
		if err != nil {
			return nil, nil, autherrors.New(autherrors.KindForbidden, "")
		}
		return hint, org, nil
	}

	for _, m := range memberships {
		if m.IsActive() {
			org, err := s.orgSvc.GetByID(ctx, m.OrganizationID)
			if err != nil {
				continue
			}
			id := m.OrganizationID
			return &id, org, nil
		}
	}
	return nil, nil, nil
}

func hasActiveMembership(memberships []*models.Membership, organizationID uuid.UUID) bool {
	for _, m := range memberships {
		if m.OrganizationID == organizationID && m.IsActive() {
			return true
		}
	}
	return false
}

func publicMemberships(memberships []*models.Membership) []models.MembershipPublic {
	out := make([]models.MembershipPublic, 0, len(memberships))
	for _, m := range memberships {
		out = append(out, m.Public())
	}
	return out
}

// issueForProvider issues the local session, carrying the provider refresh
// token when the provider owns refresh.
func (s *authService) issueForProvider(ctx context.Context, user *models.User, organizationID *uuid.UUID, providerTokens *providers.TokenPair) (*models.TokenResponse, error) {
	externalRefresh := ""
	if !s.provider.Capabilities().LocalRefresh && providerTokens != nil {
		externalRefresh = providerTokens.RefreshToken
	}
	return s.sessionSvc.Issue(ctx, user.ID, organizationID, externalRefresh)
}

// syncUser resolves the provider identity to a local user record, linking or
// creating as needed and keeping email and metadata in step with the
// provider.
func (s *authService) syncUser(ctx context.Context, authUser *providers.AuthUser, firstName, lastName string) (*models.User, error) {
	email := common.NormalizeEmail(authUser.Email)

	user, err := s.userRepo.GetByProviderUserID(ctx, authUser.ProviderUserID)
	if err == nil {
		changed := false
		if user.Email != email {
			user.Email = email
			changed = true
		}
		if authUser.ProviderMetadata != nil &&
			!reflect.DeepEqual(map[string]interface{}(user.ProviderMetadata), authUser.ProviderMetadata) {
			user.ProviderMetadata = models.JSONB(authUser.ProviderMetadata)
			changed = true
		}
		if changed {
			user.UpdatedBy = &user.ID
			if err := s.userRepo.Update(ctx, user); err != nil {
				return nil, err
			}
		}
		return user, nil
	}
	if !autherrors.IsKind(err, autherrors.KindUserNotFound) {
		return nil, err
	}

	// No record under this provider identity; an existing local user with the
	// same email gets linked rather than duplicated.
	if existing, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		existing.ProviderType = &authUser.ProviderType
		providerID := authUser.ProviderUserID
		existing.ProviderUserID = &providerID
		providerEmail := authUser.Email
		existing.ProviderEmail = &providerEmail
		existing.ProviderMetadata = models.JSONB(authUser.ProviderMetadata)
		existing.UpdatedBy = &existing.ID
		if err := s.userRepo.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	} else if !autherrors.IsKind(err, autherrors.KindUserNotFound) {
		return nil, err
	}

	if firstName == "" {
		firstName = metadataString(authUser.ProviderMetadata, "first_name")
	}
	if lastName == "" {
		lastName = metadataString(authUser.ProviderMetadata, "last_name")
	}

	providerID := authUser.ProviderUserID
	providerEmail := authUser.Email
	user = &models.User{
		ID:             uuid.New(),
		Email:          email,
		FirstName:      firstName,
		LastName:       lastName,
		IsActive:       true,
		ProviderType:   &authUser.ProviderType,
		ProviderUserID: &providerID,
		ProviderEmail:  &providerEmail,
	}
	if authUser.ProviderMetadata != nil {
		user.ProviderMetadata = models.JSONB(authUser.ProviderMetadata)
	}

	count, err := s.userRepo.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		// First user in an empty system references itself as audit actor.
		if err := s.userRepo.CreateSelfAudited(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}

	user.CreatedBy = &user.ID
	user.UpdatedBy = &user.ID
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func metadataString(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}

// Refresh dispatches on the provider's capability flag: providers that own
// refresh exchange the token remotely, otherwise the session manager rotates
// locally.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	if s.provider.Capabilities().LocalRefresh {
		return s.sessionSvc.Refresh(ctx, refreshToken, nil)
	}
	return s.sessionSvc.Refresh(ctx, refreshToken, func(ctx context.Context, current string) (string, error) {
		pair, err := s.provider.RefreshToken(ctx, current)
		if err != nil {
			return "", classifyProviderErr("refresh_token", err)
		}
		return pair.RefreshToken, nil
	})
}

// Logout revokes the local session first; local revocation is authoritative.
// Provider logout is best effort and never blocks it.
func (s *authService) Logout(ctx context.Context, userID, sessionID uuid.UUID) error {
	if err := s.sessionSvc.Revoke(ctx, sessionID); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || user.ProviderUserID == nil {
		return nil
	}
	sid := sessionID.String()
	if _, err := s.provider.Logout(ctx, *user.ProviderUserID, &sid); err != nil {
		log.Printf("provider logout failed for user %s (local revocation already done): %v", userID, err)
	}
	return nil
}

// SwitchOrganization issues a new session scoped to the target organization
// after verifying an active membership there.
func (s *authService) SwitchOrganization(ctx context.Context, userID, organizationID uuid.UUID) (*LoginResult, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, toAuthErr(err)
	}

	memberships, err := s.membershipRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, toAuthErr(err)
	}

	if !user.IsSuperuser && !hasActiveMembership(memberships, organizationID) {
		return nil, autherrors.New(autherrors.KindForbidden, "")
	}

	org, err := s.orgSvc.GetByID(ctx, organizationID)
	if err != nil {
		return nil, autherrors.New(autherrors.KindForbidden, "")
	}

	tokens, err := s.sessionSvc.Issue(ctx, userID, &organizationID, "")
	if err != nil {
		return nil, toAuthErr(err)
	}

	return &LoginResult{
		User:         user,
		Organization: org,
		Memberships:  publicMemberships(memberships),
		Tokens:       tokens,
	}, nil
}

// RequestPasswordReset always reports success to the caller so an attacker
// cannot probe which emails exist.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	normalized := common.NormalizeEmail(email)
	if _, err := s.userRepo.GetByEmail(ctx, normalized); err != nil {
		if !autherrors.IsKind(err, autherrors.KindUserNotFound) {
			log.Printf("password reset lookup failed for %s: %v", normalized, err)
		}
		return nil
	}
	if _, err := s.provider.SendPasswordReset(ctx, normalized); err != nil {
		log.Printf("provider password reset failed for %s: %v", normalized, classifyProviderErr("send_password_reset", err))
	}
	return nil
}

// CompletePasswordReset delegates to the provider and forces re-login by
// revoking every active session of the affected user.
func (s *authService) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	// Identify the user before the reset consumes the token.
	var userID *uuid.UUID
	if claims, err := s.provider.ValidateToken(ctx, token); err == nil {
		if user, err := s.userRepo.GetByProviderUserID(ctx, claims.ProviderUserID); err == nil {
			userID = &user.ID
		}
	}

	ok, err := s.provider.ResetPassword(ctx, token, newPassword)
	if err != nil {
		return classifyProviderErr("reset_password", err)
	}
	if !ok {
		return autherrors.New(autherrors.KindInvalidToken, "password reset rejected")
	}

	if userID != nil {
		if count, err := s.sessionSvc.RevokeAllForUser(ctx, *userID); err != nil {
			log.Printf("failed to revoke sessions after password reset for %s: %v", userID, err)
		} else if count > 0 {
			log.Printf("revoked %d sessions after password reset for %s", count, userID)
		}
	} else {
		log.Printf("password reset completed but token did not identify a local user; no sessions revoked")
	}
	return nil
}

func (s *authService) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, []models.MembershipPublic, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, toAuthErr(err)
	}
	memberships, err := s.membershipRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, toAuthErr(err)
	}
	return user, publicMemberships(memberships), nil
}
