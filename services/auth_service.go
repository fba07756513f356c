//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"fmt"

	"pairchat/auth"
	"pairchat/domain"
	"pairchat/errors"
	"pairchat/repositories"
)

type IAuthService interface {
	Register(username, email, password string) (domain.User, Token, error)
	Login(email, password string) (domain.User, Token, error)
}

type AuthService struct {
	userRepository repositories.IUserRepository
	authenticator  auth.Authenticator
}

type Token string

func NewAuthService(repo repositories.IUserRepository, authenticator auth.Authenticator) IAuthService {
	return &AuthService{userRepository: repo, authenticator: authenticator}
}

func (s *AuthService) Register(username, email, password string) (domain.User, Token, error) {
	valReq := auth.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	}

	// 1. Validate business rules (email format, password complexity)
	// We check this before any expensive cryptographic operation.
	if err := auth.ValidateRegister(valReq); err != nil {
		return domain.User{}, "", fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// 2. Hash the password using Argon2id
	// Done in the service layer to keep the repository unaware of plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Persist the user with the generated hash
	user, err := s.userRepository.Create(username, email, hashedPassword)
	if err != nil {
		return domain.User{}, "", err // Will propagate ErrUserAlreadyExists if email is taken
	}

	// 4. Generate the initial session token
	token, err := s.authenticator.GenerateToken(user.ID)
	if err != nil {
		return domain.User{}, "", errors.ErrTokenGeneration
	}

	return user, Token(token), nil
}

func (s *AuthService) Login(email, password string) (domain.User, Token, error) {
	// 1. Retrieve user by email from storage
	user, passwordHash, err := s.userRepository.GetByEmail(email)
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	// 2. Compare the provided password with the stored hash
	match, err := auth.ComparePassword(password, passwordHash)
	if err != nil || !match {
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	// 3. Issue the JWT token
	token, err := s.authenticator.GenerateToken(user.ID)
	if err != nil {
		return domain.User{}, "", errors.ErrTokenGeneration
	}

	return user, Token(token), nil
}
