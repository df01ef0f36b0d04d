package company

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	errors "github.com/frahmantamala/expense-approval/internal"
	companyDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/company"
	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-approval/internal/transport"
)

type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Country   string    `json:"country"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

func FromDataModel(c *companyDatamodel.Company) *Company {
	return &Company{
		ID:        c.ID,
		Name:      c.Name,
		Country:   c.Country,
		Currency:  c.Currency,
		CreatedAt: c.CreatedAt,
	}
}

type RepositoryAPI interface {
	// CreateWithAdmin stores the company and its first admin atomically.
	CreateWithAdmin(ctx context.Context, c *companyDatamodel.Company, admin *userDatamodel.User) error
	// GetByID returns nil when the company does not exist.
	GetByID(ctx context.Context, id int64) (*companyDatamodel.Company, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Company, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get company", "company_id", id, "error", err)
		return nil, errors.NewInternalError("failed to get company", err)
	}
	if m == nil {
		return nil, errors.ErrCompanyNotFound
	}
	return FromDataModel(m), nil
}

type ServiceAPI interface {
	GetByID(ctx context.Context, id int64) (*Company, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{BaseHandler: baseHandler, Service: svc}
}

// GetCompany handles GET /company for the caller's company.
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}
	c, err := h.Service.GetByID(r.Context(), p.CompanyID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}
