package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"autograde-backend/internal/logger"
	"autograde-backend/internal/repository"
	"autograde-backend/internal/security"
)

type authService struct {
	appraiserRepo repository.AppraiserRepository
	tokens        security.TokenManager
}

func NewAuthService(appraiserRepo repository.AppraiserRepository, tokens security.TokenManager) AuthService {
	return &authService{
		appraiserRepo: appraiserRepo,
		tokens:        tokens,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	a, err := s.appraiserRepo.GetByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		logger.Info("Login rejected", "email", email)
		return nil, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.GenerateAccessToken(a.ID, a.Email)
	if err != nil {
		return nil, err
	}
	logger.Info("Appraiser logged in", "appraiser_id", a.ID)
	return &LoginResult{AccessToken: token, ExpiresAt: expires, Appraiser: a}, nil
}

func (s *authService) RegisterDevice(ctx context.Context, appraiserID int32, token string) error {
	return s.appraiserRepo.UpdateDeviceToken(ctx, appraiserID, strings.TrimSpace(token))
}
