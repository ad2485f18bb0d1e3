package auth

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"investment-platform/internal/database"
)

// Service handles authentication operations
type Service struct {
	repo            *database.Repository
	jwtManager      *JWTManager
	passwordManager *PasswordManager
	config          Config
}

// NewService creates a new authentication service
func NewService(repo *database.Repository, config Config) *Service {
	if config.JWTSecret == "" {
		log.Fatal("JWT secret is required")
	}

	if config.AccessTokenDuration == 0 {
		config.AccessTokenDuration = 24 * time.Hour
	}

	return &Service{
		repo:            repo,
		jwtManager:      NewJWTManager(config.JWTSecret, config.AccessTokenDuration),
		passwordManager: NewPasswordManager(DefaultBcryptCost, config.MinPasswordLength),
		config:          config,
	}
}

// GetJWTManager returns the JWT manager for use in middleware
func (s *Service) GetJWTManager() *JWTManager {
	return s.jwtManager
}

// Register creates a new operator account. A referrer email, when given
// and known, links the new account for referral point awards.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*database.Operator, error) {
	existing, err := s.repo.GetOperatorByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	if err := s.passwordManager.ValidatePasswordStrength(req.Password); err != nil {
		return nil, AuthError{Code: "WEAK_PASSWORD", Message: err.Error()}
	}

	passwordHash, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var referredBy *string
	if req.ReferrerEmail != "" {
		referrer, err := s.repo.GetOperatorByEmail(ctx, req.ReferrerEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to check referrer: %w", err)
		}
		// Unknown referrers are ignored rather than rejected.
		if referrer != nil {
			referredBy = &referrer.ID
		}
	}

	operator := &database.Operator{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: passwordHash,
		Name:         req.Name,
		Role:         RoleUser,
		ReferredBy:   referredBy,
	}

	if err := s.repo.CreateOperator(ctx, operator); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return operator, nil
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	operator, err := s.repo.GetOperatorByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if operator == nil {
		return nil, ErrInvalidCredentials
	}

	if !s.passwordManager.VerifyPassword(req.Password, operator.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtManager.GenerateAccessToken(UserClaims{
		UserID: operator.ID,
		Email:  operator.Email,
		Role:   operator.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	if err := s.repo.UpdateOperatorLastLogin(ctx, operator.ID); err != nil {
		log.Printf("failed to record last login for %s: %v", operator.ID, err)
	}

	return &LoginResponse{
		User:        toUserResponse(operator),
		AccessToken: token,
		ExpiresIn:   s.jwtManager.GetAccessTokenDuration(),
		TokenType:   "Bearer",
	}, nil
}

// GetProfile returns the operator behind a set of claims.
func (s *Service) GetProfile(ctx context.Context, userID string) (*UserResponse, error) {
	operator, err := s.repo.GetOperatorByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	resp := toUserResponse(operator)
	return &resp, nil
}

func toUserResponse(op *database.Operator) UserResponse {
	return UserResponse{
		ID:          op.ID,
		Email:       op.Email,
		Name:        op.Name,
		Role:        op.Role,
		CreatedAt:   op.CreatedAt,
		LastLoginAt: op.LastLoginAt,
	}
}
