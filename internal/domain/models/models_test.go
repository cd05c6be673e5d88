package models

import (
	"strings"
	"testing"
	"time"
)

func TestDeriveAgeStatus(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		ageDays  int
		archived bool
		want     AgeStatus
	}{
		{"newborn", 0, false, AgeStatusChick},
		{"last chick day", 89, false, AgeStatusChick},
		{"first growing day", 90, false, AgeStatusGrowing},
		{"last growing day", 134, false, AgeStatusGrowing},
		{"layer", 135, false, AgeStatusLayer},
		{"archived wins", 200, true, AgeStatusArchived},
		{"archived chick", 3, true, AgeStatusArchived},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := start.Add(time.Duration(tt.ageDays)*24*time.Hour + 3*time.Hour)
			if got := DeriveAgeStatus(start, now, tt.archived); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDeriveVaccinationStatus(t *testing.T) {
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	done := today.Add(-time.Hour)

	if got := DeriveVaccinationStatus(today.AddDate(0, 0, -5), &done, today); got != VaccinationCompleted {
		t.Fatalf("completed should win over overdue, got %s", got)
	}
	if got := DeriveVaccinationStatus(today.AddDate(0, 0, -1), nil, today); got != VaccinationOverdue {
		t.Fatalf("expected overdue, got %s", got)
	}
	if got := DeriveVaccinationStatus(today, nil, today); got != VaccinationPending {
		t.Fatalf("scheduled today is pending, got %s", got)
	}
	if got := DeriveVaccinationStatus(today.AddDate(0, 0, 3), nil, today); got != VaccinationPending {
		t.Fatalf("expected pending, got %s", got)
	}
}

func TestVaccinationStatusFollowsToday(t *testing.T) {
	v := Vaccination{ScheduledDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)}
	before := v

	if got := v.Status(time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)); got != VaccinationPending {
		t.Fatalf("expected pending, got %s", got)
	}
	if got := v.Status(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)); got != VaccinationOverdue {
		t.Fatalf("expected overdue, got %s", got)
	}
	if v.ScheduledDate != before.ScheduledDate || v.CompletedDate != nil {
		t.Fatalf("status derivation must not touch stored fields")
	}
}

func TestCostPerBird(t *testing.T) {
	b := Batch{InitialSize: 100}
	if b.CostPerBird() != nil {
		t.Fatalf("expected nil cost per bird without total cost")
	}
	cost := 500.0
	b.TotalCost = &cost
	got := b.CostPerBird()
	if got == nil || *got != 5 {
		t.Fatalf("expected 5, got %v", got)
	}
}

func TestFeedNormalize(t *testing.T) {
	f := FeedLog{Bags: 4, KgPerBag: 25}
	f.Normalize()
	if f.TotalKg != 100 {
		t.Fatalf("expected 100kg, got %v", f.TotalKg)
	}
}

func TestEggTotalRevenue(t *testing.T) {
	e := EggLog{Sold: 30}
	if e.TotalRevenue() != nil {
		t.Fatalf("expected nil revenue without price")
	}
	price := 0.5
	e.PricePerEgg = &price
	if got := e.TotalRevenue(); got == nil || *got != 15 {
		t.Fatalf("expected 15, got %v", got)
	}
}

func TestScheduledDateFor(t *testing.T) {
	start := time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC)
	got := ScheduledDateFor(start, 7)
	want := time.Date(2025, 2, 6, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want CommandType
		args []string
	}{
		{"/eggs B1 120 100", CommandEggs, []string{"B1", "120", "100"}},
		{"  Mortality b2 3 heat stress ", CommandMortality, []string{"b2", "3", "heat", "stress"}},
		{"/VACCINES", CommandVaccines, nil},
		{"summary", CommandSummary, nil},
		{"/sales 10", CommandUnknown, []string{"10"}},
		{"", CommandUnknown, nil},
	}
	for _, tt := range tests {
		cmd := ParseCommand(tt.in)
		if cmd.Type != tt.want {
			t.Fatalf("%q: type %s, want %s", tt.in, cmd.Type, tt.want)
		}
		if strings.Join(cmd.Args, " ") != strings.Join(tt.args, " ") {
			t.Fatalf("%q: args %v, want %v", tt.in, cmd.Args, tt.args)
		}
	}
}
