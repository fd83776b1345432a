package services

import (
	"context"
	"fmt"

	"bookswap/auth"
	"bookswap/errors"
	"bookswap/infrastructure/storage"
)

type IAuthService interface {
	Register(ctx context.Context, email, username, password string) (Token, error)
	Login(ctx context.Context, email, password string) (Token, error)
}

type Token string

type AuthService struct {
	users  storage.IUserRepository
	tokens *auth.TokenManager
}

func NewAuthService(users storage.IUserRepository, tokens *auth.TokenManager) IAuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(ctx context.Context, email, username, password string) (Token, error) {
	// Validate business rules before any expensive cryptographic work.
	req := auth.RegisterRequest{Email: email, Username: username, Password: password}
	if err := auth.ValidateRegister(req); err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrValidation, err)
	}

	// Hashing happens here so the repository never sees plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	userID, err := s.users.CreateUser(ctx, email, username, hashedPassword)
	if err != nil {
		return "", err // Propagates ErrUserAlreadyExists if email is taken
	}

	token, err := s.tokens.Generate(userID, username)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (Token, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		// Generic error to prevent user enumeration.
		return "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}
