package category

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/common/validation"
	categoryDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/category"
)

type RepositoryAPI interface {
	ListByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]*categoryDatamodel.ExpenseCategory, error)
	GetByID(ctx context.Context, companyID, id int64) (*categoryDatamodel.ExpenseCategory, error)
	GetByName(ctx context.Context, companyID int64, name string) (*categoryDatamodel.ExpenseCategory, error)
	Create(ctx context.Context, category *categoryDatamodel.ExpenseCategory) error
	Update(ctx context.Context, category *categoryDatamodel.ExpenseCategory) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// List returns the company's categories ordered by name.
func (s *Service) List(ctx context.Context, companyID int64, activeOnly bool) ([]*Category, error) {
	rows, err := s.repo.ListByCompany(ctx, companyID, activeOnly)
	if err != nil {
		s.logger.Error("failed to list categories", "company_id", companyID, "error", err)
		return nil, apperrors.NewInternalError("failed to list categories", err)
	}

	categories := make([]*Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, FromDataModel(row))
	}
	return categories, nil
}

func (s *Service) Create(ctx context.Context, companyID int64, dto CreateCategoryDTO) (*Category, error) {
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}

	c := NewCategory(companyID, dto.Name, dto.Description)
	if c.Name == "" {
		return nil, apperrors.NewValidationFieldError("name", "name must not be blank", apperrors.ErrCodeInvalidCategory)
	}

	existing, err := s.repo.GetByName(ctx, companyID, c.Name)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to check category", err)
	}
	if existing != nil {
		return nil, apperrors.ErrCategoryExists
	}

	row := ToDataModel(c)
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create category", "company_id", companyID, "name", c.Name, "error", err)
		return nil, apperrors.NewInternalError("failed to create category", err)
	}

	s.logger.Info("category created", "company_id", companyID, "category_id", row.ID, "name", c.Name)
	return FromDataModel(row), nil
}

// Deactivate hides a category from new submissions. Existing expenses keep their label.
func (s *Service) Deactivate(ctx context.Context, companyID, id int64) (*Category, error) {
	row, err := s.repo.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load category", err)
	}
	if row == nil {
		return nil, apperrors.ErrCategoryNotFound
	}
	if !row.IsActive {
		return FromDataModel(row), nil
	}

	row.IsActive = false
	if err := s.repo.Update(ctx, row); err != nil {
		return nil, apperrors.NewInternalError("failed to update category", err)
	}

	s.logger.Info("category deactivated", "company_id", companyID, "category_id", id)
	return FromDataModel(row), nil
}

// Canonical resolves a submitted category name. Companies without any
// configured category accept free text; otherwise the name must match an
// active category and the stored spelling is returned.
func (s *Service) Canonical(ctx context.Context, companyID int64, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.NewValidationFieldError("category", "category is required", apperrors.ErrCodeInvalidCategory)
	}

	all, err := s.List(ctx, companyID, false)
	if err != nil {
		return "", err
	}
	if len(all) == 0 {
		return name, nil
	}

	for _, c := range all {
		if c.IsActive && c.Matches(name) {
			return c.Name, nil
		}
	}
	return "", apperrors.NewValidationFieldError("category", fmt.Sprintf("unknown category %q", name), apperrors.ErrCodeInvalidCategory)
}
