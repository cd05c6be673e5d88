package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VaccinationStatus is derived at read time and never stored.
type VaccinationStatus string

const (
	VaccinationPending   VaccinationStatus = "pending"
	VaccinationCompleted VaccinationStatus = "completed"
	VaccinationOverdue   VaccinationStatus = "overdue"
)

// Vaccination is a scheduled or completed dose for a batch.
type Vaccination struct {
	ID                primitive.ObjectID  `bson:"_id" json:"id"`
	UserID            primitive.ObjectID  `bson:"user_id" json:"user_id"`
	BatchID           primitive.ObjectID  `bson:"batch_id" json:"batch_id"`
	VaccineTemplateID *primitive.ObjectID `bson:"vaccine_template_id,omitempty" json:"vaccine_template_id,omitempty"`
	VaccineName       string              `bson:"vaccine_name" json:"vaccine_name"`
	ScheduledDate     time.Time           `bson:"scheduled_date" json:"scheduled_date"`
	AgeInDays         int                 `bson:"age_in_days" json:"age_in_days"`
	CompletedDate     *time.Time          `bson:"completed_date,omitempty" json:"completed_date,omitempty"`
	ActualCost        *float64            `bson:"actual_cost,omitempty" json:"actual_cost,omitempty"`
	Notes             string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt         time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `bson:"updated_at" json:"updated_at"`
}

// Status derives the vaccination status relative to today (a local midnight).
func (v Vaccination) Status(today time.Time) VaccinationStatus {
	return DeriveVaccinationStatus(v.ScheduledDate, v.CompletedDate, today)
}

// DeriveVaccinationStatus: completed beats overdue beats pending.
func DeriveVaccinationStatus(scheduled time.Time, completed *time.Time, today time.Time) VaccinationStatus {
	if completed != nil {
		return VaccinationCompleted
	}
	if scheduled.Before(today) {
		return VaccinationOverdue
	}
	return VaccinationPending
}

// ScheduledDateFor adds ageInDays calendar days to the batch start date.
func ScheduledDateFor(startDate time.Time, ageInDays int) time.Time {
	return startDate.AddDate(0, 0, ageInDays)
}

// VaccineTemplate is a reusable definition used to bulk-schedule vaccinations.
type VaccineTemplate struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Name        string             `bson:"name" json:"name"`
	DefaultCost float64            `bson:"default_cost" json:"default_cost"`
	AgeInDays   int                `bson:"age_in_days" json:"age_in_days"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Active      bool               `bson:"active" json:"active"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
