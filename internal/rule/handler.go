package rule

import (
	"context"
	"net/http"

	"github.com/frahmantamala/expense-approval/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, companyID int64, dto CreateRuleDTO) (*Rule, error)
	List(ctx context.Context, companyID int64) ([]*Rule, error)
	Get(ctx context.Context, companyID, id int64) (*Rule, error)
	Delete(ctx context.Context, companyID, id int64) error
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

func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	var dto CreateRuleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	created, err := h.Service.Create(r.Context(), p.CompanyID, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, created.ToResponse())
}

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	rules, err := h.Service.List(r.Context(), p.CompanyID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	resp := RulesResponse{Rules: make([]RuleResponse, 0, len(rules))}
	for _, rl := range rules {
		resp.Rules = append(resp.Rules, rl.ToResponse())
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}
	id, err := h.PathID(r, "ruleID")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	rl, err := h.Service.Get(r.Context(), p.CompanyID, id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, rl.ToResponse())
}

func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}
	id, err := h.PathID(r, "ruleID")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.Delete(r.Context(), p.CompanyID, id); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
