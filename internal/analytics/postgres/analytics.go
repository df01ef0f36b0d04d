package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/expense-approval/internal/analytics"
)

// Repository runs the read-side aggregation queries with plain SQL.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// where renders the scope predicate with '?' placeholders; callers Rebind.
func where(s analytics.Scope) (string, []interface{}) {
	clauses := []string{"e.company_id = ?"}
	args := []interface{}{s.CompanyID}
	if s.EmployeeID != nil {
		clauses = append(clauses, "e.employee_id = ?")
		args = append(args, *s.EmployeeID)
	}
	if s.ManagerID != nil {
		clauses = append(clauses, "e.employee_id IN (SELECT u.id FROM users u WHERE u.company_id = ? AND u.manager_id = ?)")
		args = append(args, s.CompanyID, *s.ManagerID)
	}
	return strings.Join(clauses, " AND "), args
}

func (r *Repository) StatusCounts(ctx context.Context, s analytics.Scope) ([]analytics.StatusCount, error) {
	cond, args := where(s)
	query := r.db.Rebind(`
		SELECT e.status AS status, COUNT(*) AS count
		FROM expenses e
		WHERE ` + cond + `
		GROUP BY e.status`)

	var out []analytics.StatusCount
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) CategoryTotals(ctx context.Context, s analytics.Scope) ([]analytics.CategoryTotal, error) {
	cond, args := where(s)
	query := r.db.Rebind(`
		SELECT e.category AS category, COUNT(*) AS count, COALESCE(SUM(e.converted_amount), 0) AS amount
		FROM expenses e
		WHERE ` + cond + `
		GROUP BY e.category
		ORDER BY amount DESC, e.category ASC`)

	var out []analytics.CategoryTotal
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) TrendRows(ctx context.Context, s analytics.Scope, since time.Time) ([]analytics.TrendRow, error) {
	cond, args := where(s)
	args = append(args, since)
	query := r.db.Rebind(`
		SELECT e.submitted_at AS submitted_at, e.status AS status, e.converted_amount AS amount
		FROM expenses e
		WHERE ` + cond + ` AND e.submitted_at >= ?
		ORDER BY e.submitted_at ASC`)

	var out []analytics.TrendRow
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}
