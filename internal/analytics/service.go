package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/frahmantamala/expense-approval/internal"
)

type RepositoryAPI interface {
	StatusCounts(ctx context.Context, s Scope) ([]StatusCount, error)
	CategoryTotals(ctx context.Context, s Scope) ([]CategoryTotal, error)
	TrendRows(ctx context.Context, s Scope, since time.Time) ([]TrendRow, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// ExpenseSummary aggregates the expenses visible to p. Amounts are in the
// company currency.
func (s *Service) ExpenseSummary(ctx context.Context, p *apperrors.Principal) (*Summary, error) {
	scope := ScopeFor(p.CompanyID, p.UserID, p.Role)
	summary := newSummary(p.Currency)

	counts, err := s.repo.StatusCounts(ctx, scope)
	if err != nil {
		return nil, s.fail("status breakdown", err)
	}
	for _, c := range counts {
		summary.StatusBreakdown[c.Status] += c.Count
		summary.TotalExpenses += c.Count
	}

	totals, err := s.repo.CategoryTotals(ctx, scope)
	if err != nil {
		return nil, s.fail("category breakdown", err)
	}
	total := decimal.Zero
	for _, t := range totals {
		total = total.Add(t.Amount)
		summary.CategoryBreakdown = append(summary.CategoryBreakdown, CategoryBreakdown{
			Category: t.Category,
			Count:    t.Count,
			Amount:   t.Amount.StringFixed(2),
		})
	}
	summary.TotalAmount = total.StringFixed(2)

	since, labels := trendWindow(s.now())
	rows, err := s.repo.TrendRows(ctx, scope, since)
	if err != nil {
		return nil, s.fail("monthly trends", err)
	}
	summary.MonthlyTrends = buildTrends(rows, labels)

	return summary, nil
}

func (s *Service) fail(what string, err error) error {
	s.logger.Error("analytics query failed", "query", what, "error", err)
	return apperrors.NewInternalError("failed to compute analytics", err)
}
