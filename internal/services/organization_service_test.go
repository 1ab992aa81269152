package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"saascore/internal/models"
)

type MockOrganizationRepository struct {
	mock.Mock
}

func (m *MockOrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	args := m.Called(ctx, org)
	return args.Error(0)
}

func (m *MockOrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	args := m.Called(ctx, org)
	return args.Error(0)
}

func (m *MockOrganizationRepository) SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error {
	args := m.Called(ctx, id, deletedBy)
	return args.Error(0)
}

func (m *MockOrganizationRepository) List(ctx context.Context, limit, offset int) ([]*models.Organization, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Organization), args.Error(1)
}

type OrganizationServiceTestSuite struct {
	suite.Suite
	mockRepo *MockOrganizationRepository
	service  OrganizationService
}

func (suite *OrganizationServiceTestSuite) SetupTest() {
	suite.mockRepo = &MockOrganizationRepository{}
	suite.service = NewOrganizationService(suite.mockRepo)

	suite.mockRepo.Test(suite.T())
}

func (suite *OrganizationServiceTestSuite) TearDownTest() {
	suite.mockRepo.AssertExpectations(suite.T())
}

func TestOrganizationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OrganizationServiceTestSuite))
}

func (suite *OrganizationServiceTestSuite) TestCreate_SlugFromName() {
	ctx := context.Background()
	actorID := uuid.New()

	suite.mockRepo.On("SlugExists", ctx, "acme-corp").Return(false, nil)
	suite.mockRepo.On("Create", ctx, mock.AnythingOfType("*models.Organization")).Return(nil).Run(func(args mock.Arguments) {
		org := args.Get(1).(*models.Organization)
		assert.Equal(suite.T(), "acme-corp", org.Slug)
		assert.True(suite.T(), org.IsActive)
		assert.Equal(suite.T(), &actorID, org.CreatedBy)
	})

	org, err := suite.service.Create(ctx, &CreateOrganizationRequest{Name: "Acme Corp", ActorID: actorID})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "acme-corp", org.Slug)
}

func (suite *OrganizationServiceTestSuite) TestCreate_SlugCollisionGetsSuffix() {
	ctx := context.Background()

	suite.mockRepo.On("SlugExists", ctx, "acme").Return(true, nil)
	suite.mockRepo.On("SlugExists", ctx, "acme-2").Return(true, nil)
	suite.mockRepo.On("SlugExists", ctx, "acme-3").Return(false, nil)
	suite.mockRepo.On("Create", ctx, mock.AnythingOfType("*models.Organization")).Return(nil)

	org, err := suite.service.Create(ctx, &CreateOrganizationRequest{Name: "Acme", ActorID: uuid.New()})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "acme-3", org.Slug)
}

func (suite *OrganizationServiceTestSuite) TestUpdate_RenameRegeneratesSlug() {
	ctx := context.Background()
	orgID := uuid.New()
	actorID := uuid.New()
	newName := "New Name"

	suite.mockRepo.On("GetByID", ctx, orgID).Return(&models.Organization{
		ID: orgID, Name: "Old Name", Slug: "old-name", IsActive: true,
	}, nil)
	suite.mockRepo.On("SlugExists", ctx, "new-name").Return(false, nil)
	suite.mockRepo.On("Update", ctx, mock.AnythingOfType("*models.Organization")).Return(nil)

	org, err := suite.service.Update(ctx, &UpdateOrganizationRequest{
		ID: orgID, Name: &newName, ActorID: actorID,
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "new-name", org.Slug)
	assert.Equal(suite.T(), &actorID, org.UpdatedBy)
}
