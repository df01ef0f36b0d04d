package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/expense-approval/internal/core/role"
	"github.com/frahmantamala/expense-approval/internal/workflow"
)

const trendMonths = 6

// Scope narrows analytics to the expenses a caller may see.
type Scope struct {
	CompanyID int64
	// EmployeeID limits the scope to one submitter.
	EmployeeID *int64
	// ManagerID limits the scope to the manager's direct reports.
	ManagerID *int64
}

// ScopeFor returns the scope of a caller: employees see their own expenses,
// managers their direct reports, every other role the whole company.
func ScopeFor(companyID, userID int64, r role.Role) Scope {
	s := Scope{CompanyID: companyID}
	switch r {
	case role.Employee:
		s.EmployeeID = &userID
	case role.Manager:
		s.ManagerID = &userID
	}
	return s
}

type StatusCount struct {
	Status string `db:"status"`
	Count  int64  `db:"count"`
}

type CategoryTotal struct {
	Category string          `db:"category"`
	Count    int64           `db:"count"`
	Amount   decimal.Decimal `db:"amount"`
}

// TrendRow is one expense reduced to what the monthly trend needs.
type TrendRow struct {
	SubmittedAt time.Time       `db:"submitted_at"`
	Status      string          `db:"status"`
	Amount      decimal.Decimal `db:"amount"`
}

type MonthTrend struct {
	Month    string `json:"month"`
	Pending  int64  `json:"pending"`
	Approved int64  `json:"approved"`
	Rejected int64  `json:"rejected"`
	Total    string `json:"total"`

	amount decimal.Decimal
}

type CategoryBreakdown struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
	Amount   string `json:"amount"`
}

type Summary struct {
	Currency          string              `json:"currency"`
	TotalExpenses     int64               `json:"total_expenses"`
	TotalAmount       string              `json:"total_amount"`
	StatusBreakdown   map[string]int64    `json:"status_breakdown"`
	CategoryBreakdown []CategoryBreakdown `json:"category_breakdown"`
	MonthlyTrends     []MonthTrend        `json:"monthly_trends"`
}

func newSummary(currency string) *Summary {
	return &Summary{
		Currency:    currency,
		TotalAmount: decimal.Zero.StringFixed(2),
		StatusBreakdown: map[string]int64{
			string(workflow.StatusPending):  0,
			string(workflow.StatusApproved): 0,
			string(workflow.StatusRejected): 0,
		},
		CategoryBreakdown: []CategoryBreakdown{},
		MonthlyTrends:     []MonthTrend{},
	}
}

// trendWindow returns the first instant of the oldest month in the window
// and the month labels, oldest first.
func trendWindow(now time.Time) (time.Time, []string) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := first.AddDate(0, -(trendMonths - 1), 0)
	labels := make([]string, 0, trendMonths)
	for i := 0; i < trendMonths; i++ {
		labels = append(labels, start.AddDate(0, i, 0).Format("2006-01"))
	}
	return start, labels
}

func buildTrends(rows []TrendRow, labels []string) []MonthTrend {
	byMonth := make(map[string]*MonthTrend, len(labels))
	trends := make([]MonthTrend, len(labels))
	for i, l := range labels {
		trends[i] = MonthTrend{Month: l}
		byMonth[l] = &trends[i]
	}

	for _, r := range rows {
		m, ok := byMonth[r.SubmittedAt.UTC().Format("2006-01")]
		if !ok {
			continue
		}
		switch workflow.Status(r.Status) {
		case workflow.StatusPending:
			m.Pending++
		case workflow.StatusApproved:
			m.Approved++
		case workflow.StatusRejected:
			m.Rejected++
		}
		m.amount = m.amount.Add(r.Amount)
	}

	for i := range trends {
		trends[i].Total = trends[i].amount.StringFixed(2)
	}
	return trends
}
