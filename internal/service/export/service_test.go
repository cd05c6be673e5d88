package export

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

var (
	testNow   = time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)
	testToday = time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
)

type fakeSheets struct {
	sheets   map[string]bool
	written  map[string][][]interface{}
	appended [][]interface{}
	err      error
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{sheets: map[string]bool{}, written: map[string][][]interface{}{}}
}

func (f *fakeSheets) EnsureSheet(_ context.Context, title string) error {
	if f.err != nil {
		return f.err
	}
	f.sheets[title] = true
	return nil
}

func (f *fakeSheets) ReplaceRange(_ context.Context, sheetRange string, rows [][]interface{}) error {
	f.written[sheetRange] = rows
	return nil
}

func (f *fakeSheets) AppendRow(_ context.Context, _ string, values []interface{}) error {
	f.appended = append(f.appended, values)
	return nil
}

func TestStatusLabel(t *testing.T) {
	done := testToday.AddDate(0, 0, -3)
	tests := []struct {
		name string
		v    models.Vaccination
		want string
	}{
		{"completed", models.Vaccination{ScheduledDate: testToday.AddDate(0, 0, -5), CompletedDate: &done}, LabelCompleted},
		{"overdue", models.Vaccination{ScheduledDate: testToday.AddDate(0, 0, -1)}, LabelOverdue},
		{"due today", models.Vaccination{ScheduledDate: testToday}, LabelScheduled},
		{"future", models.Vaccination{ScheduledDate: testToday.AddDate(0, 0, 10)}, LabelScheduled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusLabel(tt.v, testToday); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	if got := FormatDate(&d); got != "Jan 05, 2024" {
		t.Fatalf("unexpected format %q", got)
	}
	if got := FormatDate(nil); got != "-" {
		t.Fatalf("unexpected nil format %q", got)
	}
}

func TestScheduleRowsSections(t *testing.T) {
	b := models.Batch{Name: "Layers A", BatchCode: "B1", Breed: "Isa Brown", StartDate: testToday.AddDate(0, 0, -30), CurrentSize: 90}
	early := testToday.AddDate(0, 0, -20)
	late := testToday.AddDate(0, 0, -2)
	cost := 12.5
	vs := []models.Vaccination{
		{VaccineName: "Future", ScheduledDate: testToday.AddDate(0, 0, 5)},
		{VaccineName: "Early", ScheduledDate: early, CompletedDate: &early},
		{VaccineName: "Late", ScheduledDate: late, CompletedDate: &late, ActualCost: &cost},
		{VaccineName: "Missed", ScheduledDate: testToday.AddDate(0, 0, -1)},
	}

	rows := ScheduleRows(b, vs, testToday)
	if rows[0][1] != "Layers A" || rows[3][1] != "Feb 19, 2024" {
		t.Fatalf("unexpected overview: %v", rows[:4])
	}

	var names []string
	for _, r := range rows {
		if len(r) == len(scheduleHeader) && r[0] != "Vaccine" {
			names = append(names, r[0].(string)+":"+r[5].(string))
		}
	}
	want := []string{"Late:Completed", "Early:Completed", "Missed:Overdue", "Future:Scheduled"}
	if len(names) != len(want) {
		t.Fatalf("got rows %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("row %d: got %s, want %s", i, names[i], want[i])
		}
	}

	empty := ScheduleRows(b, nil, testToday)
	found := 0
	for _, r := range empty {
		if len(r) == 1 && r[0] == "None" {
			found++
		}
	}
	if found != 2 {
		t.Fatalf("expected both sections to show None, got %d", found)
	}
}

func TestVaccinationSchedule(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	owner := primitive.NewObjectID()
	b := models.Batch{ID: primitive.NewObjectID(), UserID: owner, BatchCode: "B42", Name: "Broilers", Breed: "Cobb", InitialSize: 10, CurrentSize: 10, StartDate: testToday}
	if err := store.Batches().Insert(ctx, &b); err != nil {
		t.Fatalf("seed batch: %v", err)
	}
	v := models.Vaccination{ID: primitive.NewObjectID(), UserID: owner, BatchID: b.ID, VaccineName: "Marek", ScheduledDate: testToday}
	if err := store.Vaccinations().Insert(ctx, &v); err != nil {
		t.Fatalf("seed vaccination: %v", err)
	}

	fake := newFakeSheets()
	svc := NewService(store, fake, clock.Fixed(testNow), nil)
	res, err := svc.VaccinationSchedule(ctx, owner, b.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.Sheet != "B42 Vaccinations" || res.Upcoming != 1 || res.Completed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !fake.sheets["B42 Vaccinations"] || !fake.sheets[exportLogSheet] {
		t.Fatalf("sheets not ensured: %v", fake.sheets)
	}
	if rows := fake.written["'B42 Vaccinations'!A1:G"]; len(rows) == 0 {
		t.Fatalf("schedule not written: %v", fake.written)
	}
	if len(fake.appended) != 1 || fake.appended[0][1] != "B42" {
		t.Fatalf("export not logged: %v", fake.appended)
	}

	if _, err := svc.VaccinationSchedule(ctx, primitive.NewObjectID(), b.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	fake.err = errors.New("quota")
	if _, err := svc.VaccinationSchedule(ctx, owner, b.ID); err == nil {
		t.Fatalf("expected sheet error")
	}
}
