package category

import (
	"context"
	"net/http"

	"github.com/frahmantamala/expense-approval/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, companyID int64, activeOnly bool) ([]*Category, error)
	Create(ctx context.Context, companyID int64, dto CreateCategoryDTO) (*Category, error)
	Deactivate(ctx context.Context, companyID, id int64) (*Category, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// GetCategories lists active categories; admins may pass ?all=true.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	activeOnly := !(p.IsAdmin() && r.URL.Query().Get("all") == "true")
	categories, err := h.Service.List(r.Context(), p.CompanyID, activeOnly)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	resp := CategoriesResponse{Categories: make([]CategoryResponse, 0, len(categories))}
	for _, c := range categories {
		resp.Categories = append(resp.Categories, c.ToResponse())
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	var dto CreateCategoryDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	c, err := h.Service.Create(r.Context(), p.CompanyID, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, c.ToResponse())
}

func (h *Handler) DeactivateCategory(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	id, err := h.PathID(r, "categoryID")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	c, err := h.Service.Deactivate(r.Context(), p.CompanyID, id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c.ToResponse())
}
