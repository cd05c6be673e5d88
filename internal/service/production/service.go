// Package production records daily egg collections and feed purchases and books their money side.
package production

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/domain/models"
	"github.com/mamadbah2/farmer/internal/repository"
	"github.com/mamadbah2/farmer/internal/service/clock"
)

// EggStatsMonths is the length of the egg stats window, current month included.
const EggStatsMonths = 6

// Ledger books egg sales and feed purchases.
type Ledger interface {
	RecordEggSale(ctx context.Context, e models.EggLog, batchName string) (*models.Transaction, error)
	RecordFeedPurchase(ctx context.Context, f models.FeedLog) (*models.Transaction, error)
}

// Service implements egg and feed logging.
type Service struct {
	store  repository.Store
	ledger Ledger
	clock  clock.Clock
	logger *zap.Logger
}

// NewService wires a new production service instance.
func NewService(store repository.Store, ledger Ledger, clk clock.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, ledger: ledger, clock: clk, logger: logger}
}

// EggView is an egg log with its revenue.
type EggView struct {
	models.EggLog
	TotalRevenue *float64 `json:"total_revenue,omitempty"`
}

func eggView(e models.EggLog) EggView {
	v := EggView{EggLog: e}
	if e.PricePerEgg != nil {
		revenue := decimal.NewFromInt(int64(e.Sold)).Mul(decimal.NewFromFloat(*e.PricePerEgg)).InexactFloat64()
		v.TotalRevenue = &revenue
	}
	return v
}

// EggInput records one collection. A nil Date means now.
type EggInput struct {
	BatchID     primitive.ObjectID
	Collected   int
	Sold        int
	Spoiled     int
	PricePerEgg *float64
	Date        *time.Time
}

func (in EggInput) validate() error {
	c := apperr.Collector{}
	c.Check(!in.BatchID.IsZero(), "batch_id", "batch is required")
	c.Check(in.Collected >= 0, "collected", "cannot be negative")
	c.Check(in.Sold >= 0, "sold", "cannot be negative")
	c.Check(in.Spoiled >= 0, "spoiled", "cannot be negative")
	c.Check(in.PricePerEgg == nil || *in.PricePerEgg >= 0, "price_per_egg", "cannot be negative")
	return c.Err()
}

// RecordEggs stores the log and, when eggs were sold at a positive price, the matching income entry.
func (s *Service) RecordEggs(ctx context.Context, userID primitive.ObjectID, in EggInput) (*EggView, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	entry := &models.EggLog{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		BatchID:     in.BatchID,
		Collected:   in.Collected,
		Sold:        in.Sold,
		Spoiled:     in.Spoiled,
		PricePerEgg: in.PricePerEgg,
		Date:        now,
		CreatedAt:   now,
	}
	if in.Date != nil {
		entry.Date = *in.Date
	}

	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		batch, err := s.store.Batches().FindByID(ctx, userID, in.BatchID)
		if err != nil {
			return err
		}
		if err := s.store.Eggs().Insert(ctx, entry); err != nil {
			return err
		}
		if _, err := s.ledger.RecordEggSale(ctx, *entry, batch.Name); err != nil {
			return fmt.Errorf("record egg sale: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("egg log recorded",
		zap.String("batch_id", in.BatchID.Hex()),
		zap.Int("collected", in.Collected),
		zap.Int("sold", in.Sold),
	)
	v := eggView(*entry)
	return &v, nil
}

// ListEggs returns egg logs, optionally for one batch, newest first.
func (s *Service) ListEggs(ctx context.Context, userID primitive.ObjectID, batchID *primitive.ObjectID) ([]EggView, error) {
	logs, err := s.store.Eggs().List(ctx, userID, batchID)
	if err != nil {
		return nil, err
	}
	out := make([]EggView, 0, len(logs))
	for _, e := range logs {
		out = append(out, eggView(e))
	}
	return out, nil
}

// DeleteEggs removes one log. A booked sale stays in the ledger.
func (s *Service) DeleteEggs(ctx context.Context, userID, logID primitive.ObjectID) error {
	return s.store.Eggs().Delete(ctx, userID, logID)
}

// EggStats returns collected, sold and spoiled totals for the last EggStatsMonths calendar months,
// oldest first, with empty months reported as zero.
func (s *Service) EggStats(ctx context.Context, userID primitive.ObjectID, batchID *primitive.ObjectID) ([]models.EggMonthStats, error) {
	today := s.clock.Today()
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()).AddDate(0, -(EggStatsMonths - 1), 0)

	out := make([]models.EggMonthStats, 0, EggStatsMonths)
	for i := 0; i < EggStatsMonths; i++ {
		from := first.AddDate(0, i, 0)
		to := from.AddDate(0, 1, 0)
		totals, err := s.store.Eggs().Totals(ctx, userID, batchID, from, to)
		if err != nil {
			return nil, fmt.Errorf("egg totals %s: %w", models.MonthKey(from), err)
		}
		out = append(out, models.EggMonthStats{
			Month:     from.Format("Jan 2006"),
			MonthKey:  models.MonthKey(from),
			Collected: totals.Collected,
			Sold:      totals.Sold,
			Spoiled:   totals.Spoiled,
		})
	}
	return out, nil
}

// FeedInput records one feed purchase. BatchID is optional. A nil Date means now.
type FeedInput struct {
	BatchID  *primitive.ObjectID
	Type     string
	Price    float64
	Bags     int
	KgPerBag float64
	Date     *time.Time
}

func (in FeedInput) validate() error {
	c := apperr.Collector{}
	c.Check(strings.TrimSpace(in.Type) != "", "type", "feed type is required")
	c.Check(in.Price >= 0, "price", "cannot be negative")
	c.Check(in.Bags >= 1, "bags", "must be at least 1")
	c.Check(in.KgPerBag > 0, "kg_per_bag", "must be positive")
	return c.Err()
}

// RecordFeed stores the purchase with its computed total weight and books a positive price as a Feed expense.
func (s *Service) RecordFeed(ctx context.Context, userID primitive.ObjectID, in FeedInput) (*models.FeedLog, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	entry := &models.FeedLog{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		BatchID:   in.BatchID,
		Type:      strings.TrimSpace(in.Type),
		Price:     in.Price,
		Bags:      in.Bags,
		KgPerBag:  in.KgPerBag,
		Date:      now,
		CreatedAt: now,
	}
	if in.Date != nil {
		entry.Date = *in.Date
	}
	entry.Normalize()

	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if in.BatchID != nil {
			if _, err := s.store.Batches().FindByID(ctx, userID, *in.BatchID); err != nil {
				return err
			}
		}
		if err := s.store.Feed().Insert(ctx, entry); err != nil {
			return err
		}
		if _, err := s.ledger.RecordFeedPurchase(ctx, *entry); err != nil {
			return fmt.Errorf("record feed purchase: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("feed purchase recorded", zap.String("type", entry.Type), zap.Int("bags", entry.Bags), zap.Float64("total_kg", entry.TotalKg))
	return entry, nil
}

// ListFeed returns feed purchases, newest first.
func (s *Service) ListFeed(ctx context.Context, userID primitive.ObjectID) ([]models.FeedLog, error) {
	return s.store.Feed().List(ctx, userID)
}

// DeleteFeed removes one purchase. A booked expense stays in the ledger.
func (s *Service) DeleteFeed(ctx context.Context, userID, logID primitive.ObjectID) error {
	return s.store.Feed().Delete(ctx, userID, logID)
}

// FeedStats sums every purchase of the caller.
func (s *Service) FeedStats(ctx context.Context, userID primitive.ObjectID) (models.FeedStats, error) {
	return s.store.Feed().Stats(ctx, userID)
}
