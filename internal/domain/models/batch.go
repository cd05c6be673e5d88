package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category is the manually maintained age category of a batch.
type Category string

const (
	CategoryChick Category = "chick"
	CategoryAdult Category = "adult"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryChick || c == CategoryAdult
}

// AgeStatus is the display badge derived from a batch's age.
type AgeStatus string

const (
	AgeStatusChick    AgeStatus = "chick"
	AgeStatusGrowing  AgeStatus = "growing"
	AgeStatusLayer    AgeStatus = "layer"
	AgeStatusArchived AgeStatus = "archived"
)

// Age thresholds in days.
const (
	ChickAgeLimitDays = 90
	LayerAgeDays      = 135
)

// Batch is a cohort of birds under single management.
type Batch struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	BatchCode   string             `bson:"batch_code" json:"batch_code"`
	Name        string             `bson:"name" json:"name"`
	Breed       string             `bson:"breed" json:"breed"`
	Category    Category           `bson:"category" json:"category"`
	CurrentSize int                `bson:"current_size" json:"current_size"`
	InitialSize int                `bson:"initial_size" json:"initial_size"`
	StartDate   time.Time          `bson:"start_date" json:"start_date"`
	Archived    bool               `bson:"archived" json:"archived"`
	TotalCost   *float64           `bson:"total_cost,omitempty" json:"total_cost,omitempty"`
	MaleCount   *int               `bson:"male_count,omitempty" json:"male_count,omitempty"`
	FemaleCount *int               `bson:"female_count,omitempty" json:"female_count,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// CostPerBird returns totalCost / initialSize, or nil when no cost was recorded.
func (b Batch) CostPerBird() *float64 {
	if b.TotalCost == nil || b.InitialSize <= 0 {
		return nil
	}
	v := *b.TotalCost / float64(b.InitialSize)
	return &v
}

// AgeInDays returns the number of whole days between the start date and now.
func (b Batch) AgeInDays(now time.Time) int {
	return DaysBetween(b.StartDate, now)
}

// AgeStatus derives the display badge for the batch at now.
func (b Batch) AgeStatus(now time.Time) AgeStatus {
	return DeriveAgeStatus(b.StartDate, now, b.Archived)
}

// CanLayEggs reports whether the batch has reached laying age.
func (b Batch) CanLayEggs(now time.Time) bool {
	return b.AgeInDays(now) >= LayerAgeDays
}

// DeriveAgeStatus computes the badge from the start date; archived overrides the age.
func DeriveAgeStatus(startDate, now time.Time, archived bool) AgeStatus {
	if archived {
		return AgeStatusArchived
	}
	age := DaysBetween(startDate, now)
	switch {
	case age < ChickAgeLimitDays:
		return AgeStatusChick
	case age >= LayerAgeDays:
		return AgeStatusLayer
	default:
		return AgeStatusGrowing
	}
}

// DaysBetween returns the number of full 24h periods from start to end, truncated toward zero.
func DaysBetween(start, end time.Time) int {
	return int(end.Sub(start) / (24 * time.Hour))
}
