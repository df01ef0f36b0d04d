package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/common/validation"
	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-approval/internal/core/role"
)

// maxChainDepth bounds the walk up a reporting line.
const maxChainDepth = 256

type Repository interface {
	Create(ctx context.Context, u *userDatamodel.User) error
	// GetByID returns nil when the user does not exist.
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	ListByCompany(ctx context.Context, companyID int64) ([]*userDatamodel.User, error)
	// FirstActiveWithRole returns the lowest-id active user of the company with
	// the role, skipping excludeID, or nil.
	FirstActiveWithRole(ctx context.Context, companyID int64, r string, excludeID int64) (*userDatamodel.User, error)
	UpdateRole(ctx context.Context, id int64, r string) error
	UpdateManager(ctx context.Context, id int64, managerID *int64) error
}

type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

type Service struct {
	repo   Repository
	hasher PasswordHasher
	logger *slog.Logger
}

func NewService(repo Repository, hasher PasswordHasher, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		logger: logger,
	}
}

func parseRole(s string) (role.Role, error) {
	r, ok := role.Parse(s)
	if !ok {
		return "", errors.NewValidationFieldError("role", fmt.Sprintf("role %q is not a known role", s), errors.ErrCodeInvalidRole)
	}
	return r, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get user", "user_id", id, "error", err)
		return nil, errors.NewInternalError("failed to get user", err)
	}
	if m == nil {
		return nil, errors.ErrUserNotFound
	}
	return FromDataModel(m), nil
}

// GetInCompany hides users of other companies behind NotFound.
func (s *Service) GetInCompany(ctx context.Context, companyID, id int64) (*User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.CompanyID != companyID {
		return nil, errors.ErrUserNotFound
	}
	return u, nil
}

func (s *Service) ListByCompany(ctx context.Context, companyID int64) ([]*User, error) {
	models, err := s.repo.ListByCompany(ctx, companyID)
	if err != nil {
		s.logger.Error("failed to list users", "company_id", companyID, "error", err)
		return nil, errors.NewInternalError("failed to list users", err)
	}
	users := make([]*User, 0, len(models))
	for _, m := range models {
		users = append(users, FromDataModel(m))
	}
	return users, nil
}

func (s *Service) CreateUser(ctx context.Context, companyID int64, dto CreateUserDTO) (*User, error) {
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}
	r, err := parseRole(dto.Role)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(dto.Email))
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, errors.NewInternalError("failed to check email", err)
	}
	if exists {
		return nil, errors.ErrEmailTaken
	}

	if dto.ManagerID != nil {
		if _, err := s.validManager(ctx, companyID, *dto.ManagerID); err != nil {
			return nil, err
		}
	}

	hash, err := s.hasher.HashPassword(dto.Password)
	if err != nil {
		return nil, errors.NewInternalError("failed to hash password", err)
	}

	m := &userDatamodel.User{
		CompanyID:    companyID,
		Email:        email,
		Name:         strings.TrimSpace(dto.Name),
		PasswordHash: hash,
		Role:         string(r),
		ManagerID:    dto.ManagerID,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		s.logger.Error("failed to create user", "company_id", companyID, "error", err)
		return nil, errors.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created", "user_id", m.ID, "company_id", companyID, "role", r)
	return FromDataModel(m), nil
}

// UpdateRole changes a user's role. Approval slots created earlier keep the
// role they were created with.
func (s *Service) UpdateRole(ctx context.Context, companyID, userID int64, dto UpdateRoleDTO) (*User, error) {
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}
	r, err := parseRole(dto.Role)
	if err != nil {
		return nil, err
	}

	u, err := s.GetInCompany(ctx, companyID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRole(ctx, userID, string(r)); err != nil {
		s.logger.Error("failed to update role", "user_id", userID, "error", err)
		return nil, errors.NewInternalError("failed to update role", err)
	}

	s.logger.Info("user role changed", "user_id", userID, "from", u.Role, "to", r)
	u.Role = r
	return u, nil
}

// AssignManager sets or clears the reporting line. The manager must be another
// user of the same company and the change must not create a cycle.
func (s *Service) AssignManager(ctx context.Context, companyID, userID int64, dto AssignManagerDTO) (*User, error) {
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}

	u, err := s.GetInCompany(ctx, companyID, userID)
	if err != nil {
		return nil, err
	}

	if dto.ManagerID != nil {
		if *dto.ManagerID == userID {
			return nil, errors.ErrInvalidManager.WithDetails(errors.ValidationErrors{Errors: []errors.ValidationError{
				{Field: "manager_id", Message: "a user cannot manage themselves", Code: string(errors.ErrCodeInvalidManager)},
			}})
		}
		manager, err := s.validManager(ctx, companyID, *dto.ManagerID)
		if err != nil {
			return nil, err
		}
		if err := s.checkCycle(ctx, userID, manager); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateManager(ctx, userID, dto.ManagerID); err != nil {
		s.logger.Error("failed to assign manager", "user_id", userID, "error", err)
		return nil, errors.NewInternalError("failed to assign manager", err)
	}

	s.logger.Info("manager assigned", "user_id", userID, "manager_id", dto.ManagerID)
	u.ManagerID = dto.ManagerID
	return u, nil
}

func (s *Service) validManager(ctx context.Context, companyID, managerID int64) (*userDatamodel.User, error) {
	m, err := s.repo.GetByID(ctx, managerID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load manager", err)
	}
	if m == nil || m.CompanyID != companyID || !m.IsActive {
		return nil, errors.ErrInvalidManager.WithDetails(errors.ValidationErrors{Errors: []errors.ValidationError{
			{Field: "manager_id", Message: "manager must be an active user of the same company", Code: string(errors.ErrCodeInvalidManager)},
		}})
	}
	return m, nil
}

// checkCycle walks up from the proposed manager; reaching userID means a loop.
func (s *Service) checkCycle(ctx context.Context, userID int64, manager *userDatamodel.User) error {
	current := manager
	for depth := 0; current != nil && depth < maxChainDepth; depth++ {
		if current.ID == userID {
			return errors.ErrInvalidManager.WithDetails(errors.ValidationErrors{Errors: []errors.ValidationError{
				{Field: "manager_id", Message: "assignment would create a reporting cycle", Code: string(errors.ErrCodeInvalidManager)},
			}})
		}
		if current.ManagerID == nil {
			return nil
		}
		next, err := s.repo.GetByID(ctx, *current.ManagerID)
		if err != nil {
			return errors.NewInternalError("failed to walk reporting line", err)
		}
		current = next
	}
	return nil
}

// IsMember reports whether userID is a user of companyID.
func (s *Service) IsMember(ctx context.Context, userID, companyID int64) (bool, error) {
	m, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return m != nil && m.CompanyID == companyID, nil
}
