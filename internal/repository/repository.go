// Package repository declares the persistence contracts consumed by the services.
// Every method is scoped to an owning user unless its doc says otherwise.
package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/farmer/internal/domain/models"
)

// ID is the identifier type used by every collection.
type ID = primitive.ObjectID

// Transactor runs fn so that every write made through ctx commits or rolls back together.
// Implementations do not support nesting.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// BatchUpdate lists the mutable batch fields; nil means unchanged.
type BatchUpdate struct {
	Name        *string
	Breed       *string
	Category    *models.Category
	Archived    *bool
	MaleCount   *int
	FemaleCount *int
}

// BatchRepository persists batches.
type BatchRepository interface {
	// Insert fails with a conflict error when the batch code is already taken.
	Insert(ctx context.Context, batch *models.Batch) error
	CodeExists(ctx context.Context, code string) (bool, error)
	FindByID(ctx context.Context, userID, id ID) (*models.Batch, error)
	List(ctx context.Context, userID ID) ([]models.Batch, error)
	Update(ctx context.Context, userID, id ID, update BatchUpdate, updatedAt time.Time) (*models.Batch, error)
	// AdjustSize atomically adds delta to current_size, flooring at zero, and returns the updated batch.
	AdjustSize(ctx context.Context, userID, id ID, delta int, updatedAt time.Time) (*models.Batch, error)
	Delete(ctx context.Context, userID, id ID) error
}

// MortalityRepository persists mortality events.
type MortalityRepository interface {
	Insert(ctx context.Context, m *models.Mortality) error
	List(ctx context.Context, userID ID, batchID *ID) ([]models.Mortality, error)
	Delete(ctx context.Context, userID, id ID) error
	DeleteByBatch(ctx context.Context, userID, batchID ID) (int64, error)
}

// EggTotals sums egg counts over a window.
type EggTotals struct {
	Collected int `bson:"collected"`
	Sold      int `bson:"sold"`
	Spoiled   int `bson:"spoiled"`
}

// EggRepository persists egg logs.
type EggRepository interface {
	Insert(ctx context.Context, e *models.EggLog) error
	List(ctx context.Context, userID ID, batchID *ID) ([]models.EggLog, error)
	Delete(ctx context.Context, userID, id ID) error
	DeleteByBatch(ctx context.Context, userID, batchID ID) (int64, error)
	// Totals sums logs dated in [from, to).
	Totals(ctx context.Context, userID ID, batchID *ID, from, to time.Time) (EggTotals, error)
}

// FeedRepository persists feed purchases.
type FeedRepository interface {
	Insert(ctx context.Context, f *models.FeedLog) error
	List(ctx context.Context, userID ID) ([]models.FeedLog, error)
	Delete(ctx context.Context, userID, id ID) error
	DeleteByBatch(ctx context.Context, userID, batchID ID) (int64, error)
	Stats(ctx context.Context, userID ID) (models.FeedStats, error)
}

// IncubatorRepository persists incubator logs.
type IncubatorRepository interface {
	Insert(ctx context.Context, l *models.IncubatorLog) error
	List(ctx context.Context, userID ID, batchID *ID) ([]models.IncubatorLog, error)
	Delete(ctx context.Context, userID, id ID) error
	DeleteByBatch(ctx context.Context, userID, batchID ID) (int64, error)
}

// VaccinationRepository persists vaccinations.
type VaccinationRepository interface {
	Insert(ctx context.Context, v *models.Vaccination) error
	InsertMany(ctx context.Context, vs []models.Vaccination) error
	FindByID(ctx context.Context, userID, id ID) (*models.Vaccination, error)
	// List returns vaccinations sorted by scheduled date, newest first.
	List(ctx context.Context, userID ID, batchID *ID) ([]models.Vaccination, error)
	Complete(ctx context.Context, userID, id ID, completedAt time.Time, actualCost *float64) (*models.Vaccination, error)
	Delete(ctx context.Context, userID, id ID) error
	DeleteByBatch(ctx context.Context, userID, batchID ID) (int64, error)
	CountByTemplate(ctx context.Context, userID, templateID ID) (int64, error)
	// ListDue returns incomplete vaccinations of every user scheduled in [from, to].
	ListDue(ctx context.Context, from, to time.Time) ([]models.Vaccination, error)
}

// TemplateUpdate lists the mutable template fields; nil means unchanged.
type TemplateUpdate struct {
	Name        *string
	DefaultCost *float64
	AgeInDays   *int
	Description *string
	Active      *bool
}

// TemplateRepository persists vaccine templates.
type TemplateRepository interface {
	Insert(ctx context.Context, t *models.VaccineTemplate) error
	FindByID(ctx context.Context, userID, id ID) (*models.VaccineTemplate, error)
	// ListActive returns active templates sorted by age offset.
	ListActive(ctx context.Context, userID ID) ([]models.VaccineTemplate, error)
	FindActiveByIDs(ctx context.Context, userID ID, ids []ID) ([]models.VaccineTemplate, error)
	Update(ctx context.Context, userID, id ID, update TemplateUpdate, updatedAt time.Time) (*models.VaccineTemplate, error)
	Delete(ctx context.Context, userID, id ID) error
}

// TransactionRepository persists the ledger and aggregates it.
type TransactionRepository interface {
	Insert(ctx context.Context, t *models.Transaction) error
	// List returns matching entries, newest first.
	List(ctx context.Context, userID ID, filter models.TransactionFilter) ([]models.Transaction, error)
	Delete(ctx context.Context, userID, id ID) error
	SumByType(ctx context.Context, userID ID, filter models.TransactionFilter) ([]models.TypeTotal, error)
	// SumByCategory returns totals sorted by amount, highest first.
	SumByCategory(ctx context.Context, userID ID, filter models.TransactionFilter) ([]models.CategoryTotal, error)
	// SumByMonth buckets by calendar month in loc.
	SumByMonth(ctx context.Context, userID ID, filter models.TransactionFilter, loc *time.Location) ([]models.MonthTotal, error)
}

// NotificationRepository persists in-app notifications.
type NotificationRepository interface {
	Insert(ctx context.Context, n *models.Notification) error
	// ExistsSince reports whether a notification about relatedID was created at or after since.
	ExistsSince(ctx context.Context, userID, relatedID ID, since time.Time) (bool, error)
	List(ctx context.Context, userID ID, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID ID) (int64, error)
	MarkRead(ctx context.Context, userID, id ID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID ID) (int64, error)
}

// UserRepository reads account details.
type UserRepository interface {
	FindByID(ctx context.Context, id ID) (*models.User, error)
}

// Store groups every collection behind one handle.
type Store interface {
	Transactor
	Batches() BatchRepository
	Mortality() MortalityRepository
	Eggs() EggRepository
	Feed() FeedRepository
	Incubator() IncubatorRepository
	Vaccinations() VaccinationRepository
	Templates() TemplateRepository
	Transactions() TransactionRepository
	Notifications() NotificationRepository
	Users() UserRepository
}
