package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmer/internal/domain/models"
)

// derivation describes a ledger entry caused by an operational event.
type derivation struct {
	userID      primitive.ObjectID
	typ         models.TransactionType
	category    string
	amount      decimal.Decimal
	date        time.Time
	batchID     *primitive.ObjectID
	source      *models.Ref
	description string
}

// derive inserts the entry through ctx, so it joins the caller's store transaction.
// A zero or negative amount records nothing and returns nil.
func (s *Service) derive(ctx context.Context, d derivation) (*models.Transaction, error) {
	if !d.amount.IsPositive() {
		return nil, nil
	}
	now := s.clock.Now()
	tx := &models.Transaction{
		ID:          primitive.NewObjectID(),
		UserID:      d.userID,
		Type:        d.typ,
		Category:    d.category,
		Amount:      d.amount.InexactFloat64(),
		Description: d.description,
		Date:        d.date,
		BatchID:     d.batchID,
		Source:      d.source,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Transactions().Insert(ctx, tx); err != nil {
		return nil, err
	}
	s.logger.Debug("derived transaction",
		zap.String("category", tx.Category),
		zap.Float64("amount", tx.Amount),
		zap.String("source", string(d.source.Kind)),
	)
	return tx, nil
}

// RecordStockPurchase books the acquisition cost of a new batch, dated at its start date.
func (s *Service) RecordStockPurchase(ctx context.Context, b models.Batch) (*models.Transaction, error) {
	if b.TotalCost == nil {
		return nil, nil
	}
	batchID := b.ID
	return s.derive(ctx, derivation{
		userID:   b.UserID,
		typ:      models.TransactionExpense,
		category: models.CategoryStockPurchase,
		amount:   decimal.NewFromFloat(*b.TotalCost),
		date:     b.StartDate,
		batchID:  &batchID,
		source:   models.NewRef(models.RefBatch, b.ID),
		description: fmt.Sprintf("Purchase of %s batch %q: %d birds (%s)",
			b.Category, b.Name, b.InitialSize, b.Breed),
	})
}

// RecordEggSale books sold x pricePerEgg as income.
func (s *Service) RecordEggSale(ctx context.Context, e models.EggLog, batchName string) (*models.Transaction, error) {
	if e.PricePerEgg == nil || e.Sold <= 0 {
		return nil, nil
	}
	batchID := e.BatchID
	return s.derive(ctx, derivation{
		userID:      e.UserID,
		typ:         models.TransactionIncome,
		category:    models.CategoryEggSales,
		amount:      decimal.NewFromInt(int64(e.Sold)).Mul(decimal.NewFromFloat(*e.PricePerEgg)),
		date:        e.Date,
		batchID:     &batchID,
		source:      models.NewRef(models.RefEggLog, e.ID),
		description: fmt.Sprintf("Sale of %d eggs from %s", e.Sold, batchName),
	})
}

// RecordFeedPurchase books the price of a feed purchase.
func (s *Service) RecordFeedPurchase(ctx context.Context, f models.FeedLog) (*models.Transaction, error) {
	return s.derive(ctx, derivation{
		userID:      f.UserID,
		typ:         models.TransactionExpense,
		category:    models.CategoryFeed,
		amount:      decimal.NewFromFloat(f.Price),
		date:        f.Date,
		batchID:     f.BatchID,
		source:      models.NewRef(models.RefFeedLog, f.ID),
		description: fmt.Sprintf("Feed purchase: %d bags of %s (%.1f kg)", f.Bags, f.Type, f.TotalKg),
	})
}

// RecordVaccineCost books the actual cost of a completed vaccination, dated at its completion.
func (s *Service) RecordVaccineCost(ctx context.Context, v models.Vaccination, batchName string) (*models.Transaction, error) {
	if v.ActualCost == nil || v.CompletedDate == nil {
		return nil, nil
	}
	batchID := v.BatchID
	return s.derive(ctx, derivation{
		userID:      v.UserID,
		typ:         models.TransactionExpense,
		category:    models.CategoryVaccines,
		amount:      decimal.NewFromFloat(*v.ActualCost),
		date:        *v.CompletedDate,
		batchID:     &batchID,
		source:      models.NewRef(models.RefVaccination, v.ID),
		description: fmt.Sprintf("%s vaccination for %s", v.VaccineName, batchName),
	})
}
