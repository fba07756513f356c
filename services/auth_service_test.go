package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pairchat/auth"
	"pairchat/domain"
	"pairchat/errors"
	"pairchat/mocks"
)

func testAuthenticator() auth.Authenticator {
	return auth.NewAuthenticator("test_secret_key_for_services", 24*time.Hour)
}

func TestAuthService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := NewAuthService(mockRepo, testAuthenticator())

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		username := "alice"
		email := "test@example.com"
		password := "ComplexPass123!" // Must satisfy your complexity rules
		expected := domain.User{ID: "user-uuid", Username: username, Email: email}

		// Expect Create to be called with a hashed password (not the plain one)
		mockRepo.EXPECT().
			Create(username, email, gomock.Any()).
			Return(expected, nil).
			Times(1)

		user, token, err := svc.Register(username, email, password)

		req.NoError(err)
		req.NotEmpty(token)
		req.Equal(expected, user)
	})

	t.Run("should fail when password complexity is not met", func(t *testing.T) {
		req := require.New(t)
		password := "simple" // Fails validation

		// Repository should NEVER be called
		mockRepo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, token, err := svc.Register("alice", "test@example.com", password)

		req.Error(err)
		req.ErrorIs(err, errors.ErrInvalidPassword)
		req.Empty(token)
	})

	t.Run("should fail when user already exists in repository", func(t *testing.T) {
		req := require.New(t)
		email := "duplicate@example.com"

		mockRepo.EXPECT().
			Create("alice", email, gomock.Any()).
			Return(domain.User{}, errors.ErrUserAlreadyExists).
			Times(1)

		_, _, err := svc.Register("alice", email, "ComplexPass123!")

		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	authenticator := testAuthenticator()
	svc := NewAuthService(mockRepo, authenticator)

	t.Run("should login successfully with correct credentials", func(t *testing.T) {
		req := require.New(t)
		email := "user@example.com"
		password := "Secret123456!"

		hashedPassword, _ := auth.HashPassword(password)
		storedUser := domain.User{ID: "uuid-123", Username: "bob", Email: email}

		mockRepo.EXPECT().
			GetByEmail(email).
			Return(storedUser, hashedPassword, nil).
			Times(1)

		user, token, err := svc.Login(email, password)

		req.NoError(err)
		req.NotEmpty(token)
		req.Equal(storedUser, user)

		// Optional: validate token claims
		claims, err := authenticator.ValidateToken(string(token))
		req.NoError(err)
		req.Equal(storedUser.ID, claims.UserID)
	})

	t.Run("should return invalid credentials when password matches nothing", func(t *testing.T) {
		req := require.New(t)
		email := "user@example.com"

		hashedPassword, _ := auth.HashPassword("CorrectPassword123!")
		storedUser := domain.User{Email: email}

		mockRepo.EXPECT().
			GetByEmail(email).
			Return(storedUser, hashedPassword, nil).
			Times(1)

		_, _, err := svc.Login(email, "WrongPassword123!")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should return invalid credentials when user is not found", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().
			GetByEmail("unknown@example.com").
			Return(domain.User{}, "", errors.ErrUserNotFound).
			Times(1)

		_, _, err := svc.Login("unknown@example.com", "anyPassword")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})
}
