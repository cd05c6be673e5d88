// Package vaccination schedules doses from templates or by hand, completes them, and manages templates.
package vaccination

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/domain/models"
	"github.com/mamadbah2/farmer/internal/repository"
	"github.com/mamadbah2/farmer/internal/service/clock"
)

// Ledger books the cost of a completed vaccination.
type Ledger interface {
	RecordVaccineCost(ctx context.Context, v models.Vaccination, batchName string) (*models.Transaction, error)
}

// Service implements vaccination scheduling.
type Service struct {
	store  repository.Store
	ledger Ledger
	clock  clock.Clock
	logger *zap.Logger
}

// NewService wires a new vaccination service instance.
func NewService(store repository.Store, ledger Ledger, clk clock.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, ledger: ledger, clock: clk, logger: logger}
}

// View is a vaccination with its status at read time.
type View struct {
	models.Vaccination
	Status models.VaccinationStatus `json:"status"`
}

func (s *Service) view(v models.Vaccination) View {
	return View{Vaccination: v, Status: v.Status(s.clock.Today())}
}

func (s *Service) views(vs []models.Vaccination) []View {
	out := make([]View, 0, len(vs))
	for _, v := range vs {
		out = append(out, s.view(v))
	}
	return out
}

// ScheduleFromTemplates creates one vaccination per active template of the batch owner, dated at
// start date + age offset. Unknown, inactive or foreign templates are skipped, and no match is a no-op.
// It writes through ctx and does not open its own transaction.
func (s *Service) ScheduleFromTemplates(ctx context.Context, b models.Batch, templateIDs []primitive.ObjectID) ([]models.Vaccination, error) {
	if len(templateIDs) == 0 {
		return nil, nil
	}
	templates, err := s.store.Templates().FindActiveByIDs(ctx, b.UserID, templateIDs)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, nil
	}

	now := s.clock.Now()
	vs := make([]models.Vaccination, 0, len(templates))
	for _, t := range templates {
		templateID := t.ID
		vs = append(vs, models.Vaccination{
			ID:                primitive.NewObjectID(),
			UserID:            b.UserID,
			BatchID:           b.ID,
			VaccineTemplateID: &templateID,
			VaccineName:       t.Name,
			ScheduledDate:     models.ScheduledDateFor(b.StartDate, t.AgeInDays),
			AgeInDays:         t.AgeInDays,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}
	if err := s.store.Vaccinations().InsertMany(ctx, vs); err != nil {
		return nil, err
	}
	s.logger.Info("vaccinations scheduled from templates",
		zap.String("batch_id", b.ID.Hex()),
		zap.Int("requested", len(templateIDs)),
		zap.Int("scheduled", len(vs)),
	)
	return vs, nil
}

// AddVaccinesToBatch schedules templates for an existing batch. Unlike batch creation it rejects an
// empty selection and a selection where no template resolves.
func (s *Service) AddVaccinesToBatch(ctx context.Context, userID, batchID primitive.ObjectID, templateIDs []primitive.ObjectID) ([]View, error) {
	if len(templateIDs) == 0 {
		return nil, apperr.Invalid("template_ids", "please select at least one vaccine template")
	}
	batch, err := s.store.Batches().FindByID(ctx, userID, batchID)
	if err != nil {
		return nil, err
	}
	scheduled, err := s.ScheduleFromTemplates(ctx, *batch, templateIDs)
	if err != nil {
		return nil, err
	}
	if len(scheduled) == 0 {
		return nil, apperr.Invalid("template_ids", "no valid vaccine templates found")
	}
	return s.views(scheduled), nil
}

// ManualInput schedules a single dose without a template.
type ManualInput struct {
	BatchID     primitive.ObjectID
	VaccineName string
	AgeInDays   int
	Notes       string
}

// ScheduleManual creates one vaccination dated at the batch start date + AgeInDays.
func (s *Service) ScheduleManual(ctx context.Context, userID primitive.ObjectID, in ManualInput) (*View, error) {
	c := apperr.Collector{}
	c.Check(!in.BatchID.IsZero(), "batch_id", "batch is required")
	c.Check(strings.TrimSpace(in.VaccineName) != "", "vaccine_name", "vaccine name is required")
	c.Check(in.AgeInDays >= 0, "age_in_days", "age in days cannot be negative")
	if err := c.Err(); err != nil {
		return nil, err
	}

	batch, err := s.store.Batches().FindByID(ctx, userID, in.BatchID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	v := &models.Vaccination{
		ID:            primitive.NewObjectID(),
		UserID:        userID,
		BatchID:       batch.ID,
		VaccineName:   strings.TrimSpace(in.VaccineName),
		ScheduledDate: models.ScheduledDateFor(batch.StartDate, in.AgeInDays),
		AgeInDays:     in.AgeInDays,
		Notes:         strings.TrimSpace(in.Notes),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Vaccinations().Insert(ctx, v); err != nil {
		return nil, err
	}
	out := s.view(*v)
	return &out, nil
}

// CompleteInput marks a dose as given. A nil CompletedDate means now.
type CompleteInput struct {
	CompletedDate *time.Time
	ActualCost    *float64
}

// Complete sets the completion date and, when the actual cost is positive, books a Vaccines expense
// linked to the batch and the vaccination. A dose that is already completed is not re-stamped: the
// call fails with Conflict, keeping the first completion date and booking no second expense.
func (s *Service) Complete(ctx context.Context, userID, vaccinationID primitive.ObjectID, in CompleteInput) (*View, error) {
	if in.ActualCost != nil && *in.ActualCost < 0 {
		return nil, apperr.Invalid("actual_cost", "actual cost cannot be negative")
	}
	completedAt := s.clock.Now()
	if in.CompletedDate != nil {
		completedAt = *in.CompletedDate
	}

	var done *models.Vaccination
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		current, err := s.store.Vaccinations().FindByID(ctx, userID, vaccinationID)
		if err != nil {
			return err
		}
		if current.CompletedDate != nil {
			return apperr.Conflict("vaccination %s was already completed on %s",
				current.VaccineName, current.CompletedDate.Format(time.DateOnly))
		}
		batch, err := s.store.Batches().FindByID(ctx, userID, current.BatchID)
		if err != nil {
			return err
		}
		done, err = s.store.Vaccinations().Complete(ctx, userID, vaccinationID, completedAt, in.ActualCost)
		if err != nil {
			return err
		}
		if _, err := s.ledger.RecordVaccineCost(ctx, *done, batch.Name); err != nil {
			return fmt.Errorf("record vaccine cost: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("vaccination completed",
		zap.String("vaccination_id", vaccinationID.Hex()),
		zap.String("vaccine", done.VaccineName),
	)
	out := s.view(*done)
	return &out, nil
}

// List returns vaccinations with derived status, latest scheduled first.
func (s *Service) List(ctx context.Context, userID primitive.ObjectID, batchID *primitive.ObjectID) ([]View, error) {
	vs, err := s.store.Vaccinations().List(ctx, userID, batchID)
	if err != nil {
		return nil, err
	}
	return s.views(vs), nil
}

// Delete removes one vaccination. A ledger entry booked at completion is kept.
func (s *Service) Delete(ctx context.Context, userID, vaccinationID primitive.ObjectID) error {
	return s.store.Vaccinations().Delete(ctx, userID, vaccinationID)
}

// Categorized splits a schedule for reports.
type Categorized struct {
	Completed []models.Vaccination `json:"completed"`
	Upcoming  []models.Vaccination `json:"upcoming"`
}

// Categorize puts completed doses first by most recent completion and upcoming ones by earliest schedule.
func Categorize(vs []models.Vaccination) Categorized {
	out := Categorized{Completed: []models.Vaccination{}, Upcoming: []models.Vaccination{}}
	for _, v := range vs {
		if v.CompletedDate != nil {
			out.Completed = append(out.Completed, v)
		} else {
			out.Upcoming = append(out.Upcoming, v)
		}
	}
	sort.SliceStable(out.Completed, func(i, j int) bool {
		return out.Completed[i].CompletedDate.After(*out.Completed[j].CompletedDate)
	})
	sort.SliceStable(out.Upcoming, func(i, j int) bool {
		return out.Upcoming[i].ScheduledDate.Before(out.Upcoming[j].ScheduledDate)
	})
	return out
}
