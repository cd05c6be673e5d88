package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/domain/models"
)

const recentTransactionsLimit = 10

// Range selects ledger entries dated in [From, To], optionally for one batch. Zero bounds are open.
type Range struct {
	From    time.Time
	To      time.Time
	BatchID *primitive.ObjectID
}

func (r Range) filter() models.TransactionFilter {
	return models.TransactionFilter{From: r.From, To: r.To, BatchID: r.BatchID}
}

// Summary totals a range of the ledger.
type Summary struct {
	TotalIncome   float64 `json:"total_income"`
	TotalExpenses float64 `json:"total_expenses"`
	NetProfit     float64 `json:"net_profit"`
	ProfitMargin  float64 `json:"profit_margin"`
}

// MonthlyPoint is one month of the trend series.
type MonthlyPoint struct {
	Month    string  `json:"month"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Profit   float64 `json:"profit"`
}

// Analytics is the finances dashboard payload.
type Analytics struct {
	Period             Period                 `json:"period"`
	From               time.Time              `json:"from"`
	To                 time.Time              `json:"to"`
	Summary            Summary                `json:"summary"`
	CategoryBreakdown  []models.CategoryTotal `json:"category_breakdown"`
	MonthlyTrends      []MonthlyPoint         `json:"monthly_trends"`
	RecentTransactions []models.Transaction   `json:"recent_transactions"`
}

// Period names a dashboard window ending now.
type Period string

const (
	Period30Days  Period = "30days"
	Period1Month  Period = "1month"
	Period3Months Period = "3months"
	Period6Months Period = "6months"
	Period1Year   Period = "1year"
)

// ParsePeriod validates a period name; empty selects the six month default.
func ParsePeriod(raw string) (Period, error) {
	switch p := Period(raw); p {
	case "":
		return Period6Months, nil
	case Period30Days, Period1Month, Period3Months, Period6Months, Period1Year:
		return p, nil
	default:
		return "", apperr.Invalid("period", fmt.Sprintf("unknown period %q", raw))
	}
}

// Range returns the window the period covers at now.
func (p Period) Range(now time.Time) (time.Time, time.Time) {
	switch p {
	case Period30Days:
		return now.AddDate(0, -1, 0), now
	case Period1Month:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), now
	case Period3Months:
		return now.AddDate(0, -3, 0), now
	case Period1Year:
		return now.AddDate(0, -12, 0), now
	default:
		return now.AddDate(0, -6, 0), now
	}
}

// Summarize totals income and expenses. The margin is 0 when there is no income.
func (s *Service) Summarize(ctx context.Context, userID primitive.ObjectID, r Range) (Summary, error) {
	totals, err := s.store.Transactions().SumByType(ctx, userID, r.filter())
	if err != nil {
		return Summary{}, err
	}

	income, expenses := decimal.Zero, decimal.Zero
	for _, t := range totals {
		switch t.Type {
		case models.TransactionIncome:
			income = income.Add(decimal.NewFromFloat(t.Total))
		case models.TransactionExpense:
			expenses = expenses.Add(decimal.NewFromFloat(t.Total))
		}
	}
	net := income.Sub(expenses)

	margin := decimal.Zero
	if income.IsPositive() {
		margin = net.Div(income).Mul(decimal.NewFromInt(100))
	}
	return Summary{
		TotalIncome:   income.InexactFloat64(),
		TotalExpenses: expenses.InexactFloat64(),
		NetProfit:     net.InexactFloat64(),
		ProfitMargin:  margin.InexactFloat64(),
	}, nil
}

// CategoryBreakdown groups the range by (type, category), largest total first.
func (s *Service) CategoryBreakdown(ctx context.Context, userID primitive.ObjectID, r Range) ([]models.CategoryTotal, error) {
	return s.store.Transactions().SumByCategory(ctx, userID, r.filter())
}

// MonthlyTrend returns one point per calendar month of the range, months without entries included.
// With an open lower bound the series starts at the first month that has entries.
func (s *Service) MonthlyTrend(ctx context.Context, userID primitive.ObjectID, r Range) ([]MonthlyPoint, error) {
	loc := s.clock.Location()
	totals, err := s.store.Transactions().SumByMonth(ctx, userID, r.filter(), loc)
	if err != nil {
		return nil, err
	}

	type bucket struct{ income, expenses decimal.Decimal }
	buckets := make(map[string]*bucket, len(totals))
	var first time.Time
	for _, t := range totals {
		monthStart := time.Date(t.Year, time.Month(t.Month), 1, 0, 0, 0, 0, loc)
		if first.IsZero() || monthStart.Before(first) {
			first = monthStart
		}
		key := models.MonthKey(monthStart)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{income: decimal.Zero, expenses: decimal.Zero}
			buckets[key] = b
		}
		amount := decimal.NewFromFloat(t.Total)
		if t.Type == models.TransactionIncome {
			b.income = b.income.Add(amount)
		} else {
			b.expenses = b.expenses.Add(amount)
		}
	}

	start := first
	if !r.From.IsZero() {
		from := r.From.In(loc)
		start = time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, loc)
	}
	if start.IsZero() {
		return []MonthlyPoint{}, nil
	}
	end := s.clock.Now()
	if !r.To.IsZero() {
		end = r.To.In(loc)
	}

	points := []MonthlyPoint{}
	for current := start; !current.After(end); current = current.AddDate(0, 1, 0) {
		key := models.MonthKey(current)
		p := MonthlyPoint{Month: key}
		if b, ok := buckets[key]; ok {
			p.Income = b.income.InexactFloat64()
			p.Expenses = b.expenses.InexactFloat64()
			p.Profit = b.income.Sub(b.expenses).InexactFloat64()
		}
		points = append(points, p)
	}
	return points, nil
}

// Analytics assembles the dashboard for a named period.
func (s *Service) Analytics(ctx context.Context, userID primitive.ObjectID, period Period, batchID *primitive.ObjectID) (*Analytics, error) {
	from, to := period.Range(s.clock.Now())
	r := Range{From: from, To: to, BatchID: batchID}

	summary, err := s.Summarize(ctx, userID, r)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	breakdown, err := s.CategoryBreakdown(ctx, userID, r)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	trend, err := s.MonthlyTrend(ctx, userID, r)
	if err != nil {
		return nil, fmt.Errorf("monthly trend: %w", err)
	}
	filter := r.filter()
	filter.Limit = recentTransactionsLimit
	recent, err := s.store.Transactions().List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}

	return &Analytics{
		Period:             period,
		From:               from,
		To:                 to,
		Summary:            summary,
		CategoryBreakdown:  breakdown,
		MonthlyTrends:      trend,
		RecentTransactions: recent,
	}, nil
}
