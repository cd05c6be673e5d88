package flock

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/domain/models"
)

// MortalityInput records deaths in a batch. A nil Date means now.
type MortalityInput struct {
	Count int
	Notes string
	Date  *time.Time
}

// RecordMortality stores the event and decrements the batch size by count, floored at zero.
// The age group is a snapshot of the batch category at the time of the call.
func (s *Service) RecordMortality(ctx context.Context, userID, batchID primitive.ObjectID, in MortalityInput) (*models.Mortality, error) {
	if in.Count < 1 {
		return nil, apperr.Invalid("count", "count must be at least 1")
	}

	now := s.clock.Now()
	record := &models.Mortality{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		BatchID:   batchID,
		Count:     in.Count,
		Notes:     strings.TrimSpace(in.Notes),
		Date:      now,
		CreatedAt: now,
	}
	if in.Date != nil {
		record.Date = *in.Date
	}

	var after *models.Batch
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		batch, err := s.store.Batches().FindByID(ctx, userID, batchID)
		if err != nil {
			return err
		}
		record.AgeGroup = batch.Category
		if err := s.store.Mortality().Insert(ctx, record); err != nil {
			return err
		}
		after, err = s.store.Batches().AdjustSize(ctx, userID, batchID, -in.Count, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("mortality recorded",
		zap.String("batch_id", batchID.Hex()),
		zap.Int("count", in.Count),
		zap.Int("current_size", after.CurrentSize),
	)
	return record, nil
}

// ListMortality returns mortality records, optionally for one batch, newest first.
func (s *Service) ListMortality(ctx context.Context, userID primitive.ObjectID, batchID *primitive.ObjectID) ([]models.Mortality, error) {
	return s.store.Mortality().List(ctx, userID, batchID)
}

// DeleteMortality removes one record. The batch size is not restored.
func (s *Service) DeleteMortality(ctx context.Context, userID, recordID primitive.ObjectID) error {
	return s.store.Mortality().Delete(ctx, userID, recordID)
}

// HatchInput records one incubation cycle. A nil Date means now.
type HatchInput struct {
	Inserted   int
	Spoiled    int
	Hatched    int
	NotHatched int
	Date       *time.Time
}

func (in HatchInput) validate() error {
	c := apperr.Collector{}
	c.Check(in.Inserted >= 0, "inserted", "inserted eggs cannot be negative")
	c.Check(in.Spoiled >= 0, "spoiled", "spoiled eggs cannot be negative")
	c.Check(in.Hatched >= 0, "hatched", "hatched eggs cannot be negative")
	c.Check(in.NotHatched >= 0, "not_hatched", "not hatched eggs cannot be negative")
	return c.Err()
}

// RecordHatch always stores the incubator log; hatched chicks are added to the batch size.
func (s *Service) RecordHatch(ctx context.Context, userID, batchID primitive.ObjectID, in HatchInput) (*models.IncubatorLog, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	entry := &models.IncubatorLog{
		ID:         primitive.NewObjectID(),
		UserID:     userID,
		BatchID:    batchID,
		Inserted:   in.Inserted,
		Spoiled:    in.Spoiled,
		Hatched:    in.Hatched,
		NotHatched: in.NotHatched,
		Date:       now,
		CreatedAt:  now,
	}
	if in.Date != nil {
		entry.Date = *in.Date
	}

	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.store.Batches().FindByID(ctx, userID, batchID); err != nil {
			return err
		}
		if err := s.store.Incubator().Insert(ctx, entry); err != nil {
			return err
		}
		if in.Hatched > 0 {
			_, err := s.store.Batches().AdjustSize(ctx, userID, batchID, in.Hatched, now)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("incubator log recorded", zap.String("batch_id", batchID.Hex()), zap.Int("hatched", in.Hatched))
	return entry, nil
}

// ListIncubator returns incubator logs, optionally for one batch, newest first.
func (s *Service) ListIncubator(ctx context.Context, userID primitive.ObjectID, batchID *primitive.ObjectID) ([]models.IncubatorLog, error) {
	return s.store.Incubator().List(ctx, userID, batchID)
}

// DeleteIncubator removes one log. The batch size is not reverted.
func (s *Service) DeleteIncubator(ctx context.Context, userID, recordID primitive.ObjectID) error {
	return s.store.Incubator().Delete(ctx, userID, recordID)
}
