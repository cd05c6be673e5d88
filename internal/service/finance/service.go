// Package finance keeps the transaction ledger: entries derived from operational events,
// manual entries, and the aggregates shown on the finances dashboard.
package finance

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/domain/models"
	"github.com/mamadbah2/farmer/internal/repository"
	"github.com/mamadbah2/farmer/internal/service/clock"
)

// Service exposes ledger operations and analytics.
type Service struct {
	store  repository.Store
	clock  clock.Clock
	logger *zap.Logger
}

// NewService wires a new finance service instance.
func NewService(store repository.Store, clk clock.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, clock: clk, logger: logger}
}

// TransactionInput is a manually entered ledger entry.
type TransactionInput struct {
	Type        models.TransactionType
	Category    string
	Amount      float64
	Description string
	BatchID     *primitive.ObjectID
	Date        *time.Time
}

func (in TransactionInput) validate() error {
	c := apperr.Collector{}
	c.Check(in.Type.Valid(), "type", "must be income or expense")
	c.Check(strings.TrimSpace(in.Category) != "", "category", "is required")
	c.Check(in.Amount >= 0, "amount", "cannot be negative")
	c.Check(strings.TrimSpace(in.Description) != "", "description", "is required")
	return c.Err()
}

// CreateTransaction records a manual entry. A referenced batch must belong to the caller.
func (s *Service) CreateTransaction(ctx context.Context, userID primitive.ObjectID, in TransactionInput) (*models.Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.BatchID != nil {
		if _, err := s.store.Batches().FindByID(ctx, userID, *in.BatchID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	date := now
	if in.Date != nil {
		date = *in.Date
	}
	tx := &models.Transaction{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		Type:        in.Type,
		Category:    strings.TrimSpace(in.Category),
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Date:        date,
		BatchID:     in.BatchID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Transactions().Insert(ctx, tx); err != nil {
		return nil, err
	}
	s.logger.Info("transaction recorded",
		zap.String("user_id", userID.Hex()),
		zap.String("type", string(tx.Type)),
		zap.String("category", tx.Category),
		zap.Float64("amount", tx.Amount),
	)
	return tx, nil
}

// ListTransactions returns matching entries, newest first.
func (s *Service) ListTransactions(ctx context.Context, userID primitive.ObjectID, filter models.TransactionFilter) ([]models.Transaction, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperr.Invalid("type", "must be income or expense")
	}
	return s.store.Transactions().List(ctx, userID, filter)
}

// DeleteTransaction removes one entry. Derived entries are deleted the same way; their source is untouched.
func (s *Service) DeleteTransaction(ctx context.Context, userID, txID primitive.ObjectID) error {
	return s.store.Transactions().Delete(ctx, userID, txID)
}
