package auth

import (
	"context"
	"log/slog"
	"strings"

	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/common/validation"
	companyDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/company"
	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-approval/internal/core/role"
)

type Repository interface {
	// GetByEmail returns nil when no user has the email.
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	// LoadPrincipal returns nil for missing or inactive users.
	LoadPrincipal(ctx context.Context, userID int64) (*apperrors.Principal, error)
}

type CompanyRegistrar interface {
	CreateWithAdmin(ctx context.Context, c *companyDatamodel.Company, admin *userDatamodel.User) error
}

type PasswordHasher interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hash, password string) bool
}

// Service is the main auth service with dependencies
type Service struct {
	repo            Repository
	companies       CompanyRegistrar
	tokens          TokenGenerator
	hasher          PasswordHasher
	defaultCurrency string
	accessTTLSecs   int64
	logger          *slog.Logger
}

type ServiceConfig struct {
	DefaultCurrency string
	AccessTTLSecs   int64
}

func NewService(repo Repository, companies CompanyRegistrar, tokens TokenGenerator, hasher PasswordHasher, cfg ServiceConfig, logger *slog.Logger) *Service {
	currency := strings.ToUpper(cfg.DefaultCurrency)
	if currency == "" {
		currency = "USD"
	}
	return &Service{
		repo:            repo,
		companies:       companies,
		tokens:          tokens,
		hasher:          hasher,
		defaultCurrency: currency,
		accessTTLSecs:   cfg.AccessTTLSecs,
		logger:          logger,
	}
}

// Signup creates a company and its first Admin, then logs the admin in.
func (s *Service) Signup(ctx context.Context, dto SignupDTO) (*SignupResponse, error) {
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}

	email := strings.ToLower(strings.TrimSpace(dto.Email))
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to check email", err)
	}
	if existing != nil {
		return nil, apperrors.ErrEmailTaken
	}

	hash, err := s.hasher.HashPassword(dto.Password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	currency := strings.ToUpper(dto.Currency)
	if currency == "" {
		currency = s.defaultCurrency
	}

	c := &companyDatamodel.Company{
		Name:     strings.TrimSpace(dto.CompanyName),
		Country:  dto.Country,
		Currency: currency,
	}
	admin := &userDatamodel.User{
		Email:        email,
		Name:         strings.TrimSpace(dto.Name),
		PasswordHash: hash,
		Role:         string(role.Admin),
		IsActive:     true,
	}
	if err := s.companies.CreateWithAdmin(ctx, c, admin); err != nil {
		s.logger.Error("signup failed", "email", email, "error", err)
		return nil, apperrors.NewInternalError("failed to create company", err)
	}

	tokens, err := s.issue(admin)
	if err != nil {
		return nil, err
	}

	s.logger.Info("company registered", "company_id", c.ID, "admin_id", admin.ID, "currency", currency)
	return &SignupResponse{CompanyID: c.ID, UserID: admin.ID, Tokens: tokens}, nil
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if appErr := validation.Struct(dto); appErr != nil {
		return AuthTokens{}, appErr
	}

	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(dto.Email)))
	if err != nil {
		return AuthTokens{}, apperrors.NewInternalError("failed to load user", err)
	}
	if u == nil || !u.IsActive || !s.hasher.VerifyPassword(u.PasswordHash, dto.Password) {
		return AuthTokens{}, apperrors.ErrInvalidCredentials
	}

	return s.issue(u)
}

// RefreshTokens validates a refresh token and rotates both tokens.
func (s *Service) RefreshTokens(ctx context.Context, dto RefreshTokenDTO) (AuthTokens, error) {
	if appErr := validation.Struct(dto); appErr != nil {
		return AuthTokens{}, appErr
	}

	claims, err := s.tokens.ValidateRefreshToken(dto.RefreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	p, err := s.repo.LoadPrincipal(ctx, claims.UserID)
	if err != nil {
		return AuthTokens{}, apperrors.NewInternalError("failed to load user", err)
	}
	if p == nil {
		return AuthTokens{}, apperrors.ErrInvalidToken
	}

	return s.issue(&userDatamodel.User{ID: p.UserID, CompanyID: p.CompanyID, Email: p.Email})
}

// ResolvePrincipal turns an access token into the caller identity.
// Role and reporting line come from storage so changes apply immediately.
func (s *Service) ResolvePrincipal(ctx context.Context, accessToken string) (*apperrors.Principal, error) {
	claims, err := s.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.LoadPrincipal(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load user", err)
	}
	if p == nil || p.CompanyID != claims.CompanyID {
		return nil, apperrors.ErrInvalidToken
	}
	return p, nil
}

func (s *Service) issue(u *userDatamodel.User) (AuthTokens, error) {
	access, err := s.tokens.GenerateAccessToken(u.ID, u.CompanyID, u.Email)
	if err != nil {
		return AuthTokens{}, apperrors.NewInternalError("failed to issue token", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(u.ID, u.CompanyID, u.Email)
	if err != nil {
		return AuthTokens{}, apperrors.NewInternalError("failed to issue token", err)
	}
	return AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    s.accessTTLSecs,
	}, nil
}
