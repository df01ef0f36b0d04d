package expense

import (
	"context"
	"net/http"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/transport"
)

type ServiceAPI interface {
	Submit(ctx context.Context, p *internal.Principal, dto CreateExpenseDTO) (*Expense, error)
	Decide(ctx context.Context, p *internal.Principal, expenseID int64, dto DecisionDTO) (*Expense, error)
	Override(ctx context.Context, p *internal.Principal, expenseID int64, dto OverrideDTO) (*Expense, error)
	GetByID(ctx context.Context, p *internal.Principal, expenseID int64) (*Expense, error)
	ListMine(ctx context.Context, p *internal.Principal, f ListFilter) ([]*Expense, error)
	ListCompany(ctx context.Context, p *internal.Principal, f ListFilter) ([]*Expense, error)
	ListPending(ctx context.Context, p *internal.Principal, f ListFilter) ([]*Expense, error)
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

func filterFrom(r *http.Request) ListFilter {
	q := r.URL.Query()
	return ParseListFilter(q.Get("status"), q.Get("limit"), q.Get("offset"))
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	var dto CreateExpenseDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	e, err := h.Service.Submit(r.Context(), p, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, e.ToResponse())
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	id, err := h.PathID(r, "expenseID")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	e, err := h.Service.GetByID(r.Context(), p, id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e.ToResponse())
}

func (h *Handler) GetMyExpenses(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	f := filterFrom(r)
	expenses, err := h.Service.ListMine(r.Context(), p, f)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, toExpensesResponse(expenses, f))
}

// GetAllExpenses lists every expense of the caller's company (Admin).
func (h *Handler) GetAllExpenses(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	f := filterFrom(r)
	expenses, err := h.Service.ListCompany(r.Context(), p, f)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, toExpensesResponse(expenses, f))
}

func (h *Handler) GetPendingApprovals(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	f := filterFrom(r)
	expenses, err := h.Service.ListPending(r.Context(), p, f)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, toExpensesResponse(expenses, f))
}

func (h *Handler) DecideExpense(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	id, err := h.PathID(r, "expenseID")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	var dto DecisionDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	e, err := h.Service.Decide(r.Context(), p, id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, toResolutionResponse(e))
}

func (h *Handler) OverrideExpense(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	id, err := h.PathID(r, "expenseID")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	var dto OverrideDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	e, err := h.Service.Override(r.Context(), p, id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, toResolutionResponse(e))
}
