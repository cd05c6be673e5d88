package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mortality is one death event for a batch. It is never edited after creation.
type Mortality struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	BatchID   primitive.ObjectID `bson:"batch_id" json:"batch_id"`
	AgeGroup  Category           `bson:"age_group" json:"age_group"`
	Count     int                `bson:"count" json:"count"`
	Date      time.Time          `bson:"date" json:"date"`
	Notes     string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// EggLog is a per-batch per-day collection record.
type EggLog struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	BatchID     primitive.ObjectID `bson:"batch_id" json:"batch_id"`
	Collected   int                `bson:"collected" json:"collected"`
	Sold        int                `bson:"sold" json:"sold"`
	Spoiled     int                `bson:"spoiled" json:"spoiled"`
	PricePerEgg *float64           `bson:"price_per_egg,omitempty" json:"price_per_egg,omitempty"`
	Date        time.Time          `bson:"date" json:"date"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// TotalRevenue is sold x pricePerEgg when a price was recorded.
func (e EggLog) TotalRevenue() *float64 {
	if e.PricePerEgg == nil {
		return nil
	}
	v := float64(e.Sold) * *e.PricePerEgg
	return &v
}

// FeedLog is a feed purchase. TotalKg is stored because stats aggregate over it.
type FeedLog struct {
	ID        primitive.ObjectID  `bson:"_id" json:"id"`
	UserID    primitive.ObjectID  `bson:"user_id" json:"user_id"`
	BatchID   *primitive.ObjectID `bson:"batch_id,omitempty" json:"batch_id,omitempty"`
	Type      string              `bson:"type" json:"type"`
	Price     float64             `bson:"price" json:"price"`
	Bags      int                 `bson:"bags" json:"bags"`
	KgPerBag  float64             `bson:"kg_per_bag" json:"kg_per_bag"`
	TotalKg   float64             `bson:"total_kg" json:"total_kg"`
	Date      time.Time           `bson:"date" json:"date"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}

// Normalize recomputes TotalKg; call before every write.
func (f *FeedLog) Normalize() {
	f.TotalKg = float64(f.Bags) * f.KgPerBag
}

// IncubatorLog records one incubation cycle for a batch.
type IncubatorLog struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	BatchID    primitive.ObjectID `bson:"batch_id" json:"batch_id"`
	Inserted   int                `bson:"inserted" json:"inserted"`
	Spoiled    int                `bson:"spoiled" json:"spoiled"`
	Hatched    int                `bson:"hatched" json:"hatched"`
	NotHatched int                `bson:"not_hatched" json:"not_hatched"`
	Date       time.Time          `bson:"date" json:"date"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// EggMonthStats is one month of egg totals.
type EggMonthStats struct {
	Month     string `json:"month"`
	MonthKey  string `json:"month_key"`
	Collected int    `json:"collected"`
	Sold      int    `json:"sold"`
	Spoiled   int    `json:"spoiled"`
}

// FeedStats sums all feed purchases of a user.
type FeedStats struct {
	TotalBags  int     `bson:"total_bags" json:"total_bags"`
	TotalKg    float64 `bson:"total_kg" json:"total_kg"`
	TotalSpent float64 `bson:"total_spent" json:"total_spent"`
}
