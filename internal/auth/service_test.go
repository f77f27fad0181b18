package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func TestRegisterHashesPasswordAndDefaultsRole(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, "test-secret", time.Hour)
	ctx := context.Background()

	mockRepo.On("GetByEmail", ctx, "ada@example.org").Return(nil, nil)
	mockRepo.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(nil)

	user, err := service.Register(ctx, RegisterRequest{
		Name:     "Ada",
		Email:    "ada@example.org",
		Password: "correct horse",
		Role:     Role("admin"), // not self-assignable
	})

	assert.NoError(t, err)
	assert.Equal(t, RoleBuyer, user.Role)
	assert.NotEqual(t, "correct horse", user.PasswordHash)
	mockRepo.AssertExpectations(t)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, "test-secret", time.Hour)
	ctx := context.Background()

	mockRepo.On("GetByEmail", ctx, "ada@example.org").Return(&User{Email: "ada@example.org"}, nil)

	_, err := service.Register(ctx, RegisterRequest{Name: "Ada", Email: "ada@example.org", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginAndTokenRoundTrip(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, "test-secret", time.Hour)
	ctx := context.Background()

	mockRepo.On("GetByEmail", ctx, "seller@example.org").Return(nil, nil)
	mockRepo.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(nil)

	user, err := service.Register(ctx, RegisterRequest{
		Name:     "Seller",
		Email:    "seller@example.org",
		Password: "password123",
		Role:     RoleSeller,
	})
	assert.NoError(t, err)

	mockRepo.On("GetByEmail", ctx, "seller@example.org").Unset()
	mockRepo.On("GetByEmail", ctx, "seller@example.org").Return(user, nil)

	got, token, err := service.Login(ctx, LoginRequest{Email: "seller@example.org", Password: "password123"})
	assert.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	claims, err := service.ParseToken(token)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, RoleSeller, claims.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, "test-secret", time.Hour)
	ctx := context.Background()

	mockRepo.On("GetByEmail", ctx, "seller@example.org").Return(nil, nil)
	mockRepo.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(nil)
	user, _ := service.Register(ctx, RegisterRequest{Name: "S", Email: "seller@example.org", Password: "password123"})

	mockRepo.On("GetByEmail", ctx, "seller@example.org").Unset()
	mockRepo.On("GetByEmail", ctx, "seller@example.org").Return(user, nil)

	_, _, err := service.Login(ctx, LoginRequest{Email: "seller@example.org", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	service := NewService(new(MockRepository), "test-secret", time.Hour)
	_, err := service.ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewService(new(MockRepository), "other-secret", time.Hour)
	token, err := other.IssueToken(&User{ID: uuid.New(), Role: RoleBuyer})
	assert.NoError(t, err)
	_, err = service.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
