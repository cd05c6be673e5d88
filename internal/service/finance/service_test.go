package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/domain/models"
	"github.com/mamadbah2/farmer/internal/repository/memory"
	"github.com/mamadbah2/farmer/internal/service/clock"
)

var testNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestService() (*Service, *memory.Store) {
	store := memory.New()
	return NewService(store, clock.Fixed(testNow), nil), store
}

func floatPtr(v float64) *float64 { return &v }

func addTx(t *testing.T, svc *Service, owner primitive.ObjectID, typ models.TransactionType, category string, amount float64, date time.Time) {
	t.Helper()
	_, err := svc.CreateTransaction(context.Background(), owner, TransactionInput{
		Type:        typ,
		Category:    category,
		Amount:      amount,
		Description: category,
		Date:        &date,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
}

func TestDerivationsRequirePositiveAmounts(t *testing.T) {
	ctx := context.Background()
	owner := primitive.NewObjectID()
	batchID := primitive.NewObjectID()
	completed := testNow

	tests := []struct {
		name   string
		record func(*Service) (*models.Transaction, error)
		want   float64
	}{
		{
			name: "stock purchase with cost",
			record: func(s *Service) (*models.Transaction, error) {
				return s.RecordStockPurchase(ctx, models.Batch{ID: batchID, UserID: owner, TotalCost: floatPtr(500), InitialSize: 100})
			},
			want: 500,
		},
		{
			name: "stock purchase without cost",
			record: func(s *Service) (*models.Transaction, error) {
				return s.RecordStockPurchase(ctx, models.Batch{ID: batchID, UserID: owner})
			},
		},
		{
			name: "stock purchase at zero cost",
			record: func(s *Service) (*models.Transaction, error) {
				return s.RecordStockPurchase(ctx, models.Batch{ID: batchID, UserID: owner, TotalCost: floatPtr(0)})
			},
		},
		{
			name: "egg sale",
			record: func(s *Service) (*models.Transaction, error) {
				return s.RecordEggSale(ctx, models.EggLog{ID: primitive.NewObjectID(), UserID: owner, BatchID: batchID, Sold: 30, PricePerEgg: floatPtr(0.1)}, "Layers")
			},
			want: 3,
		},
		{
			name: "eggs not sold",
			record: func(s *Service) (*models.Transaction, error) {
				return s.RecordEggSale(ctx, models.EggLog{ID: primitive.NewObjectID(), UserID: owner, BatchID: batchID, PricePerEgg: floatPtr(0.5)}, "Layers")
			},
		},
		{
			name: "eggs sold without price",
			record: func(s *Service) (*models.Transaction, error) {
				return s.RecordEggSale(ctx, models.EggLog{ID: primitive.NewObjectID(), UserID: owner, BatchID: batchID, Sold: 10}, "Layers")
			},
		},
		{
			name: "feed purchase",
			record: func(s *Service) (*models.Transaction, error) {
				return s.RecordFeedPurchase(ctx, models.FeedLog{ID: primitive.NewObjectID(), UserID: owner, Price: 120, Bags: 2, KgPerBag: 25})
			},
			want: 120,
		},
		{
			name: "free feed",
			record: func(s *Service) (*models.Transaction, error) {
				return s.RecordFeedPurchase(ctx, models.FeedLog{ID: primitive.NewObjectID(), UserID: owner, Bags: 2, KgPerBag: 25})
			},
		},
		{
			name: "vaccine cost",
			record: func(s *Service) (*models.Transaction, error) {
				return s.RecordVaccineCost(ctx, models.Vaccination{ID: primitive.NewObjectID(), UserID: owner, BatchID: batchID, VaccineName: "Gumboro", CompletedDate: &completed, ActualCost: floatPtr(45)}, "Layers")
			},
			want: 45,
		},
		{
			name: "vaccine without cost",
			record: func(s *Service) (*models.Transaction, error) {
				return s.RecordVaccineCost(ctx, models.Vaccination{ID: primitive.NewObjectID(), UserID: owner, BatchID: batchID, CompletedDate: &completed}, "Layers")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService()
			tx, err := tt.record(svc)
			if err != nil {
				t.Fatalf("record: %v", err)
			}
			all, _ := store.Transactions().List(ctx, owner, models.TransactionFilter{})
			if tt.want == 0 {
				if tx != nil || len(all) != 0 {
					t.Fatalf("expected no transaction, got %+v", all)
				}
				return
			}
			if tx == nil || len(all) != 1 || all[0].Amount != tt.want {
				t.Fatalf("expected one transaction of %v, got %+v", tt.want, all)
			}
			if tx.Source == nil {
				t.Fatalf("expected derived transaction to carry its source")
			}
		})
	}
}

func TestStockPurchaseDatedAtStart(t *testing.T) {
	svc, _ := newTestService()
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	tx, err := svc.RecordStockPurchase(context.Background(), models.Batch{
		ID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), TotalCost: floatPtr(800), StartDate: start,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !tx.Date.Equal(start) || tx.Category != models.CategoryStockPurchase || tx.Type != models.TransactionExpense {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.CreateTransaction(context.Background(), primitive.NewObjectID(), TransactionInput{Type: "gift", Amount: -1})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := apperr.FieldsOf(err)
	for _, f := range []string{"type", "category", "amount", "description"} {
		if _, ok := fields[f]; !ok {
			t.Fatalf("expected field %s in %v", f, fields)
		}
	}
}

func TestCreateTransactionRejectsForeignBatch(t *testing.T) {
	svc, _ := newTestService()
	batchID := primitive.NewObjectID()
	_, err := svc.CreateTransaction(context.Background(), primitive.NewObjectID(), TransactionInput{
		Type: models.TransactionIncome, Category: "Chicken Sales", Amount: 10, Description: "sale", BatchID: &batchID,
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	owner := primitive.NewObjectID()

	t.Run("no income has zero margin", func(t *testing.T) {
		svc, _ := newTestService()
		addTx(t, svc, owner, models.TransactionExpense, "Feed", 200, testNow)
		sum, err := svc.Summarize(ctx, owner, Range{})
		if err != nil {
			t.Fatalf("summarize: %v", err)
		}
		if sum.TotalIncome != 0 || sum.TotalExpenses != 200 || sum.NetProfit != -200 || sum.ProfitMargin != 0 {
			t.Fatalf("unexpected summary: %+v", sum)
		}
	})

	t.Run("margin", func(t *testing.T) {
		svc, _ := newTestService()
		addTx(t, svc, owner, models.TransactionIncome, "Egg Sales", 1000, testNow)
		addTx(t, svc, owner, models.TransactionExpense, "Feed", 250, testNow)
		addTx(t, svc, owner, models.TransactionExpense, "Feed", 999, testNow.AddDate(-1, 0, 0))
		sum, err := svc.Summarize(ctx, owner, Range{From: testNow.AddDate(0, -1, 0), To: testNow})
		if err != nil {
			t.Fatalf("summarize: %v", err)
		}
		if sum.NetProfit != 750 || sum.ProfitMargin != 75 {
			t.Fatalf("unexpected summary: %+v", sum)
		}
	})

	t.Run("exact decimal sums", func(t *testing.T) {
		svc, _ := newTestService()
		addTx(t, svc, owner, models.TransactionIncome, "Egg Sales", 0.1, testNow)
		addTx(t, svc, owner, models.TransactionIncome, "Egg Sales", 0.2, testNow.Add(-time.Hour))
		sum, err := svc.Summarize(ctx, owner, Range{})
		if err != nil {
			t.Fatalf("summarize: %v", err)
		}
		if sum.TotalIncome != 0.3 && sum.TotalIncome != 0.30000000000000004 {
			t.Fatalf("unexpected income: %v", sum.TotalIncome)
		}
	})
}

func TestMonthlyTrendZeroFills(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	owner := primitive.NewObjectID()

	addTx(t, svc, owner, models.TransactionIncome, "Egg Sales", 300, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	addTx(t, svc, owner, models.TransactionExpense, "Feed", 100, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC))
	addTx(t, svc, owner, models.TransactionExpense, "Feed", 50, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))

	points, err := svc.MonthlyTrend(ctx, owner, Range{
		From: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		To:   testNow,
	})
	if err != nil {
		t.Fatalf("trend: %v", err)
	}

	want := []MonthlyPoint{
		{Month: "2024-02"},
		{Month: "2024-03", Income: 300, Expenses: 100, Profit: 200},
		{Month: "2024-04"},
		{Month: "2024-05", Expenses: 50, Profit: -50},
		{Month: "2024-06"},
	}
	if len(points) != len(want) {
		t.Fatalf("expected %d points, got %+v", len(want), points)
	}
	for i := range want {
		if points[i] != want[i] {
			t.Fatalf("point %d: got %+v, want %+v", i, points[i], want[i])
		}
	}
}

func TestMonthlyTrendOpenRangeWithoutData(t *testing.T) {
	svc, _ := newTestService()
	points, err := svc.MonthlyTrend(context.Background(), primitive.NewObjectID(), Range{})
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("expected empty series, got %+v", points)
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		raw     string
		want    Period
		wantErr bool
	}{
		{raw: "", want: Period6Months},
		{raw: "30days", want: Period30Days},
		{raw: "1year", want: Period1Year},
		{raw: "forever", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParsePeriod(tt.raw)
		if tt.wantErr {
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("ParsePeriod(%q): expected validation error, got %v", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParsePeriod(%q) = %v, %v", tt.raw, got, err)
		}
	}

	from, _ := Period1Month.Range(testNow)
	if !from.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected 1month start: %v", from)
	}
}

func TestAnalyticsIncludesRecentTransactions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	owner := primitive.NewObjectID()
	for i := 0; i < 12; i++ {
		addTx(t, svc, owner, models.TransactionExpense, "Labor", 10, testNow.AddDate(0, 0, -i))
	}

	a, err := svc.Analytics(ctx, owner, Period6Months, nil)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if len(a.RecentTransactions) != recentTransactionsLimit {
		t.Fatalf("expected %d recent transactions, got %d", recentTransactionsLimit, len(a.RecentTransactions))
	}
	if a.Summary.TotalExpenses != 120 {
		t.Fatalf("unexpected summary: %+v", a.Summary)
	}
	if len(a.CategoryBreakdown) != 1 || a.CategoryBreakdown[0].Count != 12 {
		t.Fatalf("unexpected breakdown: %+v", a.CategoryBreakdown)
	}
	if len(a.MonthlyTrends) != 7 {
		t.Fatalf("expected 7 months (Dec..Jun), got %d", len(a.MonthlyTrends))
	}
}
