// Package export writes a batch's vaccination schedule to a spreadsheet.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmer/internal/domain/models"
	"github.com/mamadbah2/farmer/internal/repository"
	"github.com/mamadbah2/farmer/internal/repository/sheets"
	"github.com/mamadbah2/farmer/internal/service/clock"
	"github.com/mamadbah2/farmer/internal/service/vaccination"
)

const (
	// DateLayout is the date format used in exported documents.
	DateLayout = "Jan 02, 2006"

	exportLogSheet = "Exports"
	exportLogRange = "Exports!A:D"
)

// Status labels shown in exports.
const (
	LabelCompleted = "Completed"
	LabelOverdue   = "Overdue"
	LabelScheduled = "Scheduled"
)

var scheduleHeader = []interface{}{"Vaccine", "Age (days)", "Scheduled", "Completed", "Cost", "Status", "Notes"}

// Service exports vaccination schedules.
type Service struct {
	store  repository.Store
	sheets sheets.Repository
	clock  clock.Clock
	logger *zap.Logger
}

// NewService wires a new export service instance.
func NewService(store repository.Store, sheetRepo sheets.Repository, clk clock.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, sheets: sheetRepo, clock: clk, logger: logger}
}

// Result describes a finished export.
type Result struct {
	Sheet     string `json:"sheet"`
	Completed int    `json:"completed"`
	Upcoming  int    `json:"upcoming"`
}

// StatusLabel returns the export label for v as of today.
func StatusLabel(v models.Vaccination, today time.Time) string {
	switch v.Status(today) {
	case models.VaccinationCompleted:
		return LabelCompleted
	case models.VaccinationOverdue:
		return LabelOverdue
	default:
		return LabelScheduled
	}
}

// FormatDate renders t with DateLayout; nil renders as "-".
func FormatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(DateLayout)
}

// SheetTitle is the tab name used for a batch.
func SheetTitle(b models.Batch) string {
	return strings.TrimSpace(b.BatchCode) + " Vaccinations"
}

// ScheduleRows lays out the batch overview followed by the completed and upcoming sections.
func ScheduleRows(b models.Batch, vs []models.Vaccination, today time.Time) [][]interface{} {
	start := b.StartDate
	generated := today
	rows := [][]interface{}{
		{"Vaccination Schedule", b.Name},
		{"Batch Code", b.BatchCode},
		{"Breed", b.Breed},
		{"Start Date", FormatDate(&start)},
		{"Current Size", b.CurrentSize},
		{"Generated", FormatDate(&generated)},
		{},
	}

	groups := vaccination.Categorize(vs)
	section := func(title string, items []models.Vaccination) {
		rows = append(rows, []interface{}{fmt.Sprintf("%s (%d)", title, len(items))}, scheduleHeader)
		if len(items) == 0 {
			rows = append(rows, []interface{}{"None"})
		}
		for _, v := range items {
			scheduled := v.ScheduledDate
			cost := "-"
			if v.ActualCost != nil {
				cost = fmt.Sprintf("%.2f", *v.ActualCost)
			}
			rows = append(rows, []interface{}{
				v.VaccineName,
				v.AgeInDays,
				FormatDate(&scheduled),
				FormatDate(v.CompletedDate),
				cost,
				StatusLabel(v, today),
				v.Notes,
			})
		}
	}
	section("Completed Vaccinations", groups.Completed)
	rows = append(rows, []interface{}{})
	section("Upcoming Vaccinations", groups.Upcoming)
	return rows
}

// VaccinationSchedule writes the schedule of one batch to its own tab, replacing earlier exports,
// and records the export in the log tab.
func (s *Service) VaccinationSchedule(ctx context.Context, userID, batchID primitive.ObjectID) (*Result, error) {
	batch, err := s.store.Batches().FindByID(ctx, userID, batchID)
	if err != nil {
		return nil, err
	}
	vs, err := s.store.Vaccinations().List(ctx, userID, &batchID)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	title := SheetTitle(*batch)
	rows := ScheduleRows(*batch, vs, today)
	groups := vaccination.Categorize(vs)

	if err := s.sheets.EnsureSheet(ctx, title); err != nil {
		return nil, fmt.Errorf("prepare export sheet: %w", err)
	}
	if err := s.sheets.ReplaceRange(ctx, fmt.Sprintf("'%s'!A1:G", title), rows); err != nil {
		return nil, fmt.Errorf("write export sheet: %w", err)
	}

	if err := s.sheets.EnsureSheet(ctx, exportLogSheet); err != nil {
		s.logger.Warn("export log sheet unavailable", zap.Error(err))
	} else if err := s.sheets.AppendRow(ctx, exportLogRange, []interface{}{
		s.clock.Now().Format(time.RFC3339), batch.BatchCode, len(groups.Completed), len(groups.Upcoming),
	}); err != nil {
		s.logger.Warn("export not logged", zap.Error(err))
	}

	s.logger.Info("vaccination schedule exported", zap.String("batch_code", batch.BatchCode), zap.String("sheet", title))
	return &Result{Sheet: title, Completed: len(groups.Completed), Upcoming: len(groups.Upcoming)}, nil
}
