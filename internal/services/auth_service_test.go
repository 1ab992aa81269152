package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"saascore/internal/autherrors"
	"saascore/internal/models"
	"saascore/internal/providers"
)

type MockProvider struct {
	mock.Mock
	localRefresh bool
}

func (m *MockProvider) Authenticate(ctx context.Context, email, password string) (*providers.AuthResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.AuthResult), args.Error(1)
}

func (m *MockProvider) ValidateToken(ctx context.Context, token string) (*providers.Claims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.Claims), args.Error(1)
}

func (m *MockProvider) RefreshToken(ctx context.Context, refreshToken string) (*providers.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.TokenPair), args.Error(1)
}

func (m *MockProvider) CreateUser(ctx context.Context, email, password string, profile map[string]interface{}) (*providers.AuthUser, error) {
	args := m.Called(ctx, email, password, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.AuthUser), args.Error(1)
}

func (m *MockProvider) GetUserByID(ctx context.Context, providerUserID string) (*providers.AuthUser, error) {
	args := m.Called(ctx, providerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.AuthUser), args.Error(1)
}

func (m *MockProvider) GetUserByEmail(ctx context.Context, email string) (*providers.AuthUser, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.AuthUser), args.Error(1)
}

func (m *MockProvider) UpdateUser(ctx context.Context, providerUserID string, patch providers.UserPatch) (*providers.AuthUser, error) {
	args := m.Called(ctx, providerUserID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.AuthUser), args.Error(1)
}

func (m *MockProvider) DeleteUser(ctx context.Context, providerUserID string) (bool, error) {
	args := m.Called(ctx, providerUserID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProvider) Logout(ctx context.Context, providerUserID string, sessionID *string) (bool, error) {
	args := m.Called(ctx, providerUserID, sessionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProvider) SendPasswordReset(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockProvider) ResetPassword(ctx context.Context, token, newPassword string) (bool, error) {
	args := m.Called(ctx, token, newPassword)
	return args.Bool(0), args.Error(1)
}

func (m *MockProvider) Capabilities() providers.Capabilities {
	return providers.Capabilities{Name: "mock", LocalRefresh: m.localRefresh}
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) CreateSelfAudited(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByProviderUserID(ctx context.Context, providerUserID string) (*models.User, error) {
	args := m.Called(ctx, providerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error {
	args := m.Called(ctx, id, deletedBy)
	return args.Error(0)
}

func (m *MockUserRepository) CountActive(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.User), args.Error(1)
}

type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) Create(ctx context.Context, membership *models.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMembershipRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Membership), args.Error(1)
}

func (m *MockMembershipRepository) GetByOrgAndUser(ctx context.Context, organizationID, userID uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, organizationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Membership), args.Error(1)
}

func (m *MockMembershipRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Membership), args.Error(1)
}

func (m *MockMembershipRepository) ListByOrganization(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]*models.Membership, error) {
	args := m.Called(ctx, organizationID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Membership), args.Error(1)
}

func (m *MockMembershipRepository) Update(ctx context.Context, membership *models.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMembershipRepository) SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error {
	args := m.Called(ctx, id, deletedBy)
	return args.Error(0)
}

type MockOrganizationService struct {
	mock.Mock
}

func (m *MockOrganizationService) Create(ctx context.Context, req *CreateOrganizationRequest) (*models.Organization, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func (m *MockOrganizationService) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func (m *MockOrganizationService) GetBySlug(ctx context.Context, slugValue string) (*models.Organization, error) {
	args := m.Called(ctx, slugValue)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func (m *MockOrganizationService) Update(ctx context.Context, req *UpdateOrganizationRequest) (*models.Organization, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func (m *MockOrganizationService) Delete(ctx context.Context, id, actorID uuid.UUID) error {
	args := m.Called(ctx, id, actorID)
	return args.Error(0)
}

func (m *MockOrganizationService) List(ctx context.Context, limit, offset int) ([]*models.Organization, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Organization), args.Error(1)
}

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Issue(ctx context.Context, userID uuid.UUID, organizationID *uuid.UUID, externalRefresh string) (*models.TokenResponse, error) {
	args := m.Called(ctx, userID, organizationID, externalRefresh)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenResponse), args.Error(1)
}

func (m *MockSessionService) Validate(ctx context.Context, accessToken string) (*models.Session, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionService) Refresh(ctx context.Context, refreshToken string, exchange RefreshExchanger) (*models.TokenResponse, error) {
	args := m.Called(ctx, refreshToken, exchange)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenResponse), args.Error(1)
}

func (m *MockSessionService) Revoke(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockSessionService) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionService) SweepExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type AuthServiceTestSuite struct {
	suite.Suite
	provider       *MockProvider
	userRepo       *MockUserRepository
	membershipRepo *MockMembershipRepository
	orgSvc         *MockOrganizationService
	sessionSvc     *MockSessionService
	service        AuthService
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.provider = &MockProvider{localRefresh: false}
	suite.userRepo = &MockUserRepository{}
	suite.membershipRepo = &MockMembershipRepository{}
	suite.orgSvc = &MockOrganizationService{}
	suite.sessionSvc = &MockSessionService{}
	suite.service = NewAuthService(suite.provider, suite.userRepo, suite.membershipRepo, suite.orgSvc, suite.sessionSvc)

	suite.provider.Test(suite.T())
	suite.userRepo.Test(suite.T())
	suite.membershipRepo.Test(suite.T())
	suite.orgSvc.Test(suite.T())
	suite.sessionSvc.Test(suite.T())
}

func (suite *AuthServiceTestSuite) TearDownTest() {
	suite.provider.AssertExpectations(suite.T())
	suite.userRepo.AssertExpectations(suite.T())
	suite.membershipRepo.AssertExpectations(suite.T())
	suite.orgSvc.AssertExpectations(suite.T())
	suite.sessionSvc.AssertExpectations(suite.T())
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func authUserFixture(email string) *providers.AuthUser {
	return &providers.AuthUser{
		ProviderUserID: uuid.NewString(),
		Email:          email,
		ProviderType:   models.ProviderSupabase,
		EmailConfirmed: true,
		ProviderMetadata: map[string]interface{}{
			"first_name": "Ada",
			"last_name":  "Lovelace",
		},
	}
}

func localUserFixture(authUser *providers.AuthUser) *models.User {
	providerID := authUser.ProviderUserID
	user := &models.User{
		ID:             uuid.New(),
		Email:          authUser.Email,
		FirstName:      "Ada",
		LastName:       "Lovelace",
		IsActive:         true,
		ProviderType:     &authUser.ProviderType,
		ProviderUserID:   &providerID,
		ProviderMetadata: models.JSONB(authUser.ProviderMetadata),
	}
	return user
}

func activeMembership(orgID, userID uuid.UUID, role models.MembershipRole) *models.Membership {
	now := time.Now()
	return &models.Membership{
		ID:             uuid.New(),
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
		Status:         models.StatusActive,
		AcceptedAt:     &now,
	}
}

func (suite *AuthServiceTestSuite) TestLogin_Success() {
	ctx := context.Background()
	authUser := authUserFixture("ada@example.com")
	user := localUserFixture(authUser)
	orgID := uuid.New()

	suite.provider.On("Authenticate", ctx, "ada@example.com", "secret").Return(&providers.AuthResult{
		User:   *authUser,
		Tokens: providers.TokenPair{AccessToken: "pa", RefreshToken: "pr"},
	}, nil)
	suite.userRepo.On("GetByProviderUserID", ctx, authUser.ProviderUserID).Return(user, nil)
	suite.membershipRepo.On("ListByUser", ctx, user.ID).Return([]*models.Membership{
		activeMembership(orgID, user.ID, models.RoleOwner),
	}, nil)
	suite.orgSvc.On("GetByID", ctx, orgID).Return(&models.Organization{ID: orgID, Name: "Acme"}, nil)
	// Provider-delegated refresh: the provider's refresh token rides along.
	suite.sessionSvc.On("Issue", ctx, user.ID, mock.AnythingOfType("*uuid.UUID"), "pr").Return(&models.TokenResponse{
		AccessToken: "local-jwt", RefreshToken: "pr", UserID: user.ID.String(),
	}, nil)

	result, err := suite.service.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "secret"})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), user.ID, result.User.ID)
	assert.Equal(suite.T(), orgID, result.Organization.ID)
	assert.Len(suite.T(), result.Memberships, 1)
	assert.True(suite.T(), result.Memberships[0].IsOwnerFlag)
}

func (suite *AuthServiceTestSuite) TestLogin_InvalidCredentials() {
	ctx := context.Background()

	suite.provider.On("Authenticate", ctx, "ada@example.com", "wrong").
		Return(nil, autherrors.New(autherrors.KindInvalidCredentials, ""))

	// Repeated wrong-password attempts fail identically; no session ever
	// gets issued.
	for i := 0; i < 3; i++ {
		_, err := suite.service.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "wrong"})
		assert.True(suite.T(), autherrors.IsKind(err, autherrors.KindInvalidCredentials))
	}
	suite.sessionSvc.AssertNotCalled(suite.T(), "Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AuthServiceTestSuite) TestLogin_UnclassifiedProviderError() {
	ctx := context.Background()

	suite.provider.On("Authenticate", ctx, "ada@example.com", "secret").
		Return(nil, assert.AnError)

	_, err := suite.service.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "secret"})
	assert.True(suite.T(), autherrors.IsKind(err, autherrors.KindUnclassifiedProvider))
}

func (suite *AuthServiceTestSuite) TestLogin_OrganizationHintWithoutMembership() {
	ctx := context.Background()
	authUser := authUserFixture("ada@example.com")
	user := localUserFixture(authUser)
	strangerOrg := uuid.New()

	suite.provider.On("Authenticate", ctx, "ada@example.com", "secret").Return(&providers.AuthResult{
		User: *authUser,
	}, nil)
	suite.userRepo.On("GetByProviderUserID", ctx, authUser.ProviderUserID).Return(user, nil)
	suite.membershipRepo.On("ListByUser", ctx, user.ID).Return([]*models.Membership{}, nil)

	_, err := suite.service.Login(ctx, &LoginRequest{
		Email: "ada@example.com", Password: "secret", OrganizationID: &strangerOrg,
	})
	assert.True(suite.T(), autherrors.IsKind(err, autherrors.KindForbidden))
}

func (suite *AuthServiceTestSuite) TestLogin_NoMembershipsIssuesUnscopedSession() {
	ctx := context.Background()
	authUser := authUserFixture("ada@example.com")
	user := localUserFixture(authUser)

	suite.provider.On("Authenticate", ctx, "ada@example.com", "secret").Return(&providers.AuthResult{
		User: *authUser,
	}, nil)
	suite.userRepo.On("GetByProviderUserID", ctx, authUser.ProviderUserID).Return(user, nil)
	suite.membershipRepo.On("ListByUser", ctx, user.ID).Return([]*models.Membership{}, nil)
	suite.sessionSvc.On("Issue", ctx, user.ID, (*uuid.UUID)(nil), "").Return(&models.TokenResponse{
		AccessToken: "local-jwt", UserID: user.ID.String(),
	}, nil)

	result, err := suite.service.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "secret"})
	suite.Require().NoError(err)
	assert.Nil(suite.T(), result.Organization)
	assert.Empty(suite.T(), result.Memberships)
}

func (suite *AuthServiceTestSuite) TestLogin_LinksExistingUserByEmail() {
	ctx := context.Background()
	authUser := authUserFixture("ada@example.com")

	existing := &models.User{
		ID:       uuid.New(),
		Email:    "ada@example.com",
		IsActive: true,
	}

	suite.provider.On("Authenticate", ctx, "ada@example.com", "secret").Return(&providers.AuthResult{
		User: *authUser,
	}, nil)
	suite.userRepo.On("GetByProviderUserID", ctx, authUser.ProviderUserID).
		Return(nil, autherrors.New(autherrors.KindUserNotFound, ""))
	suite.userRepo.On("GetByEmail", ctx, "ada@example.com").Return(existing, nil)
	suite.userRepo.On("Update", ctx, existing).Return(nil).Run(func(args mock.Arguments) {
		linked := args.Get(1).(*models.User)
		assert.NotNil(suite.T(), linked.ProviderUserID)
		assert.Equal(suite.T(), authUser.ProviderUserID, *linked.ProviderUserID)
	})
	suite.membershipRepo.On("ListByUser", ctx, existing.ID).Return([]*models.Membership{}, nil)
	suite.sessionSvc.On("Issue", ctx, existing.ID, (*uuid.UUID)(nil), "").
		Return(&models.TokenResponse{UserID: existing.ID.String()}, nil)

	result, err := suite.service.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "secret"})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), existing.ID, result.User.ID)
}

func (suite *AuthServiceTestSuite) TestSignup_FirstUserBootstrap() {
	ctx := context.Background()
	authUser := authUserFixture("founder@example.com")

	suite.provider.On("CreateUser", ctx, "founder@example.com", "password1", mock.Anything).Return(authUser, nil)
	suite.userRepo.On("GetByProviderUserID", ctx, authUser.ProviderUserID).
		Return(nil, autherrors.New(autherrors.KindUserNotFound, ""))
	suite.userRepo.On("GetByEmail", ctx, "founder@example.com").
		Return(nil, autherrors.New(autherrors.KindUserNotFound, ""))
	suite.userRepo.On("CountActive", ctx).Return(int64(0), nil)
	suite.userRepo.On("CreateSelfAudited", ctx, mock.AnythingOfType("*models.User")).Return(nil)
	suite.sessionSvc.On("Issue", ctx, mock.AnythingOfType("uuid.UUID"), (*uuid.UUID)(nil), "").
		Return(&models.TokenResponse{AccessToken: "jwt"}, nil)

	result, err := suite.service.Signup(ctx, &SignupRequest{
		Email: "founder@example.com", Password: "password1",
		FirstName: "Ada", LastName: "Lovelace",
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "founder@example.com", result.User.Email)
	assert.Nil(suite.T(), result.Organization)
}

func (suite *AuthServiceTestSuite) TestSignup_WithOrganizationBecomesOwner() {
	ctx := context.Background()
	authUser := authUserFixture("founder@example.com")
	orgID := uuid.New()

	suite.provider.On("CreateUser", ctx, "founder@example.com", "password1", mock.Anything).Return(authUser, nil)
	suite.userRepo.On("GetByProviderUserID", ctx, authUser.ProviderUserID).
		Return(nil, autherrors.New(autherrors.KindUserNotFound, ""))
	suite.userRepo.On("GetByEmail", ctx, "founder@example.com").
		Return(nil, autherrors.New(autherrors.KindUserNotFound, ""))
	suite.userRepo.On("CountActive", ctx).Return(int64(5), nil)
	suite.userRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil)
	suite.orgSvc.On("Create", ctx, mock.AnythingOfType("*services.CreateOrganizationRequest")).
		Return(&models.Organization{ID: orgID, Name: "Acme", Slug: "acme"}, nil)
	suite.membershipRepo.On("Create", ctx, mock.AnythingOfType("*models.Membership")).Return(nil).Run(func(args mock.Arguments) {
		membership := args.Get(1).(*models.Membership)
		assert.Equal(suite.T(), models.RoleOwner, membership.Role)
		assert.Equal(suite.T(), models.StatusActive, membership.Status)
		assert.Equal(suite.T(), orgID, membership.OrganizationID)
	})
	suite.sessionSvc.On("Issue", ctx, mock.AnythingOfType("uuid.UUID"), mock.AnythingOfType("*uuid.UUID"), "").
		Return(&models.TokenResponse{AccessToken: "jwt"}, nil)

	result, err := suite.service.Signup(ctx, &SignupRequest{
		Email: "founder@example.com", Password: "password1",
		FirstName: "Ada", LastName: "Lovelace",
		OrganizationName: "Acme",
	})
	suite.Require().NoError(err)
	suite.Require().NotNil(result.Membership)
	assert.True(suite.T(), result.Membership.IsOwnerFlag)
}

func (suite *AuthServiceTestSuite) TestSignup_DuplicateIsConflict() {
	ctx := context.Background()

	suite.provider.On("CreateUser", ctx, "ada@example.com", "password1", mock.Anything).
		Return(nil, autherrors.New(autherrors.KindUserAlreadyExists, ""))
	suite.userRepo.On("GetByEmail", ctx, "ada@example.com").
		Return(&models.User{ID: uuid.New(), Email: "ada@example.com"}, nil)

	_, err := suite.service.Signup(ctx, &SignupRequest{
		Email: "ada@example.com", Password: "password1",
		FirstName: "Ada", LastName: "Lovelace",
	})
	assert.True(suite.T(), autherrors.IsKind(err, autherrors.KindUserAlreadyExists))
}

func (suite *AuthServiceTestSuite) TestSignup_ResumesAfterPartialFailure() {
	ctx := context.Background()
	authUser := authUserFixture("ada@example.com")
	user := localUserFixture(authUser)

	// Provider account exists but there is no local record: a previous signup
	// died between provider create and user sync.
	suite.provider.On("CreateUser", ctx, "ada@example.com", "password1", mock.Anything).
		Return(nil, autherrors.New(autherrors.KindUserAlreadyExists, ""))
	suite.userRepo.On("GetByEmail", ctx, "ada@example.com").
		Return(nil, autherrors.New(autherrors.KindUserNotFound, "")).Once()
	suite.provider.On("GetUserByEmail", ctx, "ada@example.com").Return(authUser, nil)
	suite.userRepo.On("GetByProviderUserID", ctx, authUser.ProviderUserID).Return(user, nil)
	suite.sessionSvc.On("Issue", ctx, user.ID, (*uuid.UUID)(nil), "").
		Return(&models.TokenResponse{AccessToken: "jwt"}, nil)

	result, err := suite.service.Signup(ctx, &SignupRequest{
		Email: "ada@example.com", Password: "password1",
		FirstName: "Ada", LastName: "Lovelace",
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), user.ID, result.User.ID)
}

func (suite *AuthServiceTestSuite) TestRefresh_DelegatedProviderUsesExchanger() {
	ctx := context.Background()

	suite.sessionSvc.On("Refresh", ctx, "token", mock.AnythingOfType("services.RefreshExchanger")).
		Return(&models.TokenResponse{AccessToken: "jwt"}, nil)

	_, err := suite.service.Refresh(ctx, "token")
	assert.NoError(suite.T(), err)
}

func (suite *AuthServiceTestSuite) TestRefresh_LocalProviderSkipsExchanger() {
	ctx := context.Background()
	suite.provider.localRefresh = true

	suite.sessionSvc.On("Refresh", ctx, "token", mock.Anything).Return(&models.TokenResponse{AccessToken: "jwt"}, nil).
		Run(func(args mock.Arguments) {
			assert.Nil(suite.T(), args.Get(2))
		})

	_, err := suite.service.Refresh(ctx, "token")
	assert.NoError(suite.T(), err)
}

func (suite *AuthServiceTestSuite) TestLogout_LocalRevocationSurvivesProviderFailure() {
	ctx := context.Background()
	userID := uuid.New()
	sessionID := uuid.New()
	providerID := "provider-123"

	suite.sessionSvc.On("Revoke", ctx, sessionID).Return(nil)
	suite.userRepo.On("GetByID", ctx, userID).Return(&models.User{
		ID: userID, ProviderUserID: &providerID,
	}, nil)
	suite.provider.On("Logout", ctx, providerID, mock.AnythingOfType("*string")).
		Return(false, autherrors.New(autherrors.KindProviderUnavailable, ""))

	err := suite.service.Logout(ctx, userID, sessionID)
	assert.NoError(suite.T(), err)
}

func (suite *AuthServiceTestSuite) TestSwitchOrganization_RequiresActiveMembership() {
	ctx := context.Background()
	userID := uuid.New()
	orgID := uuid.New()

	suite.userRepo.On("GetByID", ctx, userID).Return(&models.User{ID: userID, IsActive: true}, nil)
	suite.membershipRepo.On("ListByUser", ctx, userID).Return([]*models.Membership{
		{OrganizationID: orgID, UserID: userID, Role: models.RoleViewer, Status: models.StatusInvited},
	}, nil)

	_, err := suite.service.SwitchOrganization(ctx, userID, orgID)
	assert.True(suite.T(), autherrors.IsKind(err, autherrors.KindForbidden))
}

func (suite *AuthServiceTestSuite) TestSwitchOrganization_Success() {
	ctx := context.Background()
	userID := uuid.New()
	orgID := uuid.New()

	suite.userRepo.On("GetByID", ctx, userID).Return(&models.User{ID: userID, IsActive: true}, nil)
	suite.membershipRepo.On("ListByUser", ctx, userID).Return([]*models.Membership{
		activeMembership(orgID, userID, models.RoleEditor),
	}, nil)
	suite.orgSvc.On("GetByID", ctx, orgID).Return(&models.Organization{ID: orgID}, nil)
	suite.sessionSvc.On("Issue", ctx, userID, &orgID, "").Return(&models.TokenResponse{AccessToken: "jwt"}, nil)

	result, err := suite.service.SwitchOrganization(ctx, userID, orgID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), orgID, result.Organization.ID)
}

func (suite *AuthServiceTestSuite) TestRequestPasswordReset_UnknownEmailStaysQuiet() {
	ctx := context.Background()

	suite.userRepo.On("GetByEmail", ctx, "ghost@example.com").
		Return(nil, autherrors.New(autherrors.KindUserNotFound, ""))

	err := suite.service.RequestPasswordReset(ctx, "ghost@example.com")
	assert.NoError(suite.T(), err)
}

func (suite *AuthServiceTestSuite) TestCompletePasswordReset_RevokesAllSessions() {
	ctx := context.Background()
	authUser := authUserFixture("ada@example.com")
	user := localUserFixture(authUser)

	suite.provider.On("ValidateToken", ctx, "reset-token").Return(&providers.Claims{
		ProviderUserID: authUser.ProviderUserID,
	}, nil)
	suite.userRepo.On("GetByProviderUserID", ctx, authUser.ProviderUserID).Return(user, nil)
	suite.provider.On("ResetPassword", ctx, "reset-token", "newpassword1").Return(true, nil)
	suite.sessionSvc.On("RevokeAllForUser", ctx, user.ID).Return(int64(2), nil)

	err := suite.service.CompletePasswordReset(ctx, "reset-token", "newpassword1")
	assert.NoError(suite.T(), err)
}
