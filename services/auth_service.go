package services

import (
	"chat-broadcast/auth"
	"chat-broadcast/errors"
	"chat-broadcast/repositories"
	"fmt"
)

type IAuthService interface {
	Login(username, password string) (Token, error)
}

type AuthService struct {
	userRepository repositories.IUserRepository
	issuer         *auth.TokenIssuer
}

type Token string

func (t Token) String() string {
	return string(t)
}

func NewAuthService(repo repositories.IUserRepository, issuer *auth.TokenIssuer) IAuthService {
	return &AuthService{userRepository: repo, issuer: issuer}
}

func (s *AuthService) Login(username, password string) (Token, error) {
	// Shape is checked before any expensive cryptographic operation
	if err := auth.ValidateLogin(auth.LoginRequest{Username: username, Password: password}); err != nil {
		return "", err
	}

	user, err := s.userRepository.GetUserByName(username)
	if err != nil {
		// Same error whatever the cause, no user enumeration
		return "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	token, err := s.issuer.Generate(user.Username, user.Roles)
	if err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return Token(token), nil
}
