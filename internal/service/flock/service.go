// Package flock manages batches: registration, edits, size changes from mortality and hatching,
// and the cascade delete.
package flock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/domain/models"
	"github.com/mamadbah2/farmer/internal/repository"
	"github.com/mamadbah2/farmer/internal/service/clock"
)

// Ledger books the acquisition cost of a batch.
type Ledger interface {
	RecordStockPurchase(ctx context.Context, b models.Batch) (*models.Transaction, error)
}

// Scheduler creates vaccinations for a new batch from templates.
type Scheduler interface {
	ScheduleFromTemplates(ctx context.Context, b models.Batch, templateIDs []primitive.ObjectID) ([]models.Vaccination, error)
}

// Service implements the batch lifecycle.
type Service struct {
	store     repository.Store
	ledger    Ledger
	scheduler Scheduler
	codes     CodeGenerator
	clock     clock.Clock
	logger    *zap.Logger
}

// NewService wires a new flock service instance. A nil generator selects NewBatchCode.
func NewService(store repository.Store, ledger Ledger, scheduler Scheduler, codes CodeGenerator, clk clock.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if codes == nil {
		codes = NewBatchCode
	}
	return &Service{
		store:     store,
		ledger:    ledger,
		scheduler: scheduler,
		codes:     codes,
		clock:     clk,
		logger:    logger,
	}
}

// BatchView is a batch with its read-time derived values.
type BatchView struct {
	models.Batch
	CostPerBird *float64         `json:"cost_per_bird,omitempty"`
	AgeInDays   int              `json:"age_in_days"`
	AgeStatus   models.AgeStatus `json:"age_status"`
	CanLayEggs  bool             `json:"can_lay_eggs"`
}

func (s *Service) view(b models.Batch) BatchView {
	now := s.clock.Now()
	return BatchView{
		Batch:       b,
		CostPerBird: b.CostPerBird(),
		AgeInDays:   b.AgeInDays(now),
		AgeStatus:   b.AgeStatus(now),
		CanLayEggs:  b.CanLayEggs(now),
	}
}

// CreateInput registers a batch.
type CreateInput struct {
	BatchCode          string
	Name               string
	Breed              string
	Category           models.Category
	InitialSize        int
	StartDate          time.Time
	TotalCost          *float64
	VaccineTemplateIDs []primitive.ObjectID
}

func (in *CreateInput) normalize() error {
	in.BatchCode = strings.TrimSpace(in.BatchCode)
	in.Name = strings.TrimSpace(in.Name)
	in.Breed = strings.TrimSpace(in.Breed)
	if in.Category == "" {
		in.Category = models.CategoryChick
	}

	c := apperr.Collector{}
	c.Check(in.Name != "", "name", "batch name is required")
	c.Check(in.Breed != "", "breed", "breed is required")
	c.Check(in.Category.Valid(), "category", "must be chick or adult")
	c.Check(in.InitialSize >= 1, "initial_size", "batch size must be at least 1")
	c.Check(!in.StartDate.IsZero(), "start_date", "start date is required")
	c.Check(in.TotalCost == nil || *in.TotalCost >= 0, "total_cost", "total cost cannot be negative")
	return c.Err()
}

// Create registers a batch, books its purchase cost and schedules vaccinations from the given templates,
// all in one store transaction.
func (s *Service) Create(ctx context.Context, userID primitive.ObjectID, in CreateInput) (*BatchView, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	code := in.BatchCode
	if code == "" {
		generated, err := s.uniqueCode(ctx)
		if err != nil {
			return nil, fmt.Errorf("generate batch code: %w", err)
		}
		code = generated
	}

	now := s.clock.Now()
	batch := &models.Batch{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		BatchCode:   code,
		Name:        in.Name,
		Breed:       in.Breed,
		Category:    in.Category,
		CurrentSize: in.InitialSize,
		InitialSize: in.InitialSize,
		StartDate:   in.StartDate,
		TotalCost:   in.TotalCost,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var scheduled []models.Vaccination
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Batches().Insert(ctx, batch); err != nil {
			return err
		}
		if _, err := s.ledger.RecordStockPurchase(ctx, *batch); err != nil {
			return fmt.Errorf("record stock purchase: %w", err)
		}
		if len(in.VaccineTemplateIDs) == 0 {
			return nil
		}
		var err error
		scheduled, err = s.scheduler.ScheduleFromTemplates(ctx, *batch, in.VaccineTemplateIDs)
		if err != nil {
			return fmt.Errorf("schedule vaccinations: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("batch created",
		zap.String("user_id", userID.Hex()),
		zap.String("batch_code", batch.BatchCode),
		zap.Int("size", batch.InitialSize),
		zap.Int("vaccinations", len(scheduled)),
	)
	v := s.view(*batch)
	return &v, nil
}

// Get returns one batch of the caller.
func (s *Service) Get(ctx context.Context, userID, batchID primitive.ObjectID) (*BatchView, error) {
	b, err := s.store.Batches().FindByID(ctx, userID, batchID)
	if err != nil {
		return nil, err
	}
	v := s.view(*b)
	return &v, nil
}

// List returns the caller's batches, most recently started first.
func (s *Service) List(ctx context.Context, userID primitive.ObjectID) ([]BatchView, error) {
	batches, err := s.store.Batches().List(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]BatchView, 0, len(batches))
	for _, b := range batches {
		views = append(views, s.view(b))
	}
	return views, nil
}

// EditInput lists the mutable batch fields; nil leaves a field unchanged.
type EditInput struct {
	Name        *string
	Breed       *string
	Category    *models.Category
	Archived    *bool
	MaleCount   *int
	FemaleCount *int
}

func (in EditInput) validate() error {
	c := apperr.Collector{}
	c.Check(in.Name == nil || strings.TrimSpace(*in.Name) != "", "name", "cannot be empty")
	c.Check(in.Breed == nil || strings.TrimSpace(*in.Breed) != "", "breed", "cannot be empty")
	c.Check(in.Category == nil || in.Category.Valid(), "category", "must be chick or adult")
	c.Check(in.MaleCount == nil || *in.MaleCount >= 0, "male_count", "cannot be negative")
	c.Check(in.FemaleCount == nil || *in.FemaleCount >= 0, "female_count", "cannot be negative")
	return c.Err()
}

func valueOr(v *int, fallback *int) int {
	switch {
	case v != nil:
		return *v
	case fallback != nil:
		return *fallback
	default:
		return 0
	}
}

// Edit updates the mutable fields. Gender counts are checked against the current size using the
// supplied values, falling back to the stored ones.
func (s *Service) Edit(ctx context.Context, userID, batchID primitive.ObjectID, in EditInput) (*BatchView, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var updated *models.Batch
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.store.Batches().FindByID(ctx, userID, batchID)
		if err != nil {
			return err
		}

		males := valueOr(in.MaleCount, existing.MaleCount)
		females := valueOr(in.FemaleCount, existing.FemaleCount)
		if males+females > existing.CurrentSize {
			return apperr.Conflict("Gender counts (%d males + %d females = %d) cannot exceed batch size (%d)",
				males, females, males+females, existing.CurrentSize)
		}

		update := repository.BatchUpdate{
			Category:    in.Category,
			Archived:    in.Archived,
			MaleCount:   in.MaleCount,
			FemaleCount: in.FemaleCount,
		}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			update.Name = &name
		}
		if in.Breed != nil {
			breed := strings.TrimSpace(*in.Breed)
			update.Breed = &breed
		}
		updated, err = s.store.Batches().Update(ctx, userID, batchID, update, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	v := s.view(*updated)
	return &v, nil
}

// Delete removes the batch and every egg, vaccination, mortality, incubator and feed record linked to it.
// Children go first and the batch last. Ledger entries are kept.
func (s *Service) Delete(ctx context.Context, userID, batchID primitive.ObjectID) error {
	counts := map[string]int64{}
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.store.Batches().FindByID(ctx, userID, batchID); err != nil {
			return err
		}

		children := []struct {
			name string
			del  func(context.Context, primitive.ObjectID, primitive.ObjectID) (int64, error)
		}{
			{"eggs", s.store.Eggs().DeleteByBatch},
			{"vaccinations", s.store.Vaccinations().DeleteByBatch},
			{"mortality", s.store.Mortality().DeleteByBatch},
			{"incubator", s.store.Incubator().DeleteByBatch},
			{"feed", s.store.Feed().DeleteByBatch},
		}
		for _, child := range children {
			n, err := child.del(ctx, userID, batchID)
			if err != nil {
				return fmt.Errorf("delete batch %s: %w", child.name, err)
			}
			counts[child.name] = n
		}
		return s.store.Batches().Delete(ctx, userID, batchID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("batch deleted",
		zap.String("user_id", userID.Hex()),
		zap.String("batch_id", batchID.Hex()),
		zap.Any("removed", counts),
	)
	return nil
}
