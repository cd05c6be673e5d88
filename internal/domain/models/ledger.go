package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionType is either income or expense.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// Categories used by derived transactions.
const (
	CategoryStockPurchase = "Stock Purchase"
	CategoryEggSales      = "Egg Sales"
	CategoryFeed          = "Feed"
	CategoryVaccines      = "Vaccines"
)

// ExpenseCategories are the suggested expense categories.
var ExpenseCategories = []string{
	CategoryFeed,
	CategoryStockPurchase,
	"Medication",
	CategoryVaccines,
	"Utilities",
	"Labor",
	"Equipment",
	"Transportation",
	"Repairs & Maintenance",
	"Other Expenses",
}

// IncomeCategories are the suggested income categories.
var IncomeCategories = []string{
	CategoryEggSales,
	"Chicken Sales",
	"Manure Sales",
	"Other Income",
}

// Transaction is a ledger entry. Source is set when the entry was derived from an operational event.
type Transaction struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	UserID      primitive.ObjectID  `bson:"user_id" json:"user_id"`
	Type        TransactionType     `bson:"type" json:"type"`
	Category    string              `bson:"category" json:"category"`
	Amount      float64             `bson:"amount" json:"amount"`
	Description string              `bson:"description" json:"description"`
	Date        time.Time           `bson:"date" json:"date"`
	BatchID     *primitive.ObjectID `bson:"batch_id,omitempty" json:"batch_id,omitempty"`
	Source      *Ref                `bson:"source,omitempty" json:"source,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}

// TransactionFilter narrows ledger queries. Zero values are ignored.
type TransactionFilter struct {
	Type     TransactionType
	Category string
	BatchID  *primitive.ObjectID
	From     time.Time
	To       time.Time
	Limit    int
}

// Matches applies the filter in memory; the Mongo store translates it to a query.
func (f TransactionFilter) Matches(t Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.BatchID != nil && (t.BatchID == nil || *t.BatchID != *f.BatchID) {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	return true
}

// TypeTotal is the summed amount of one transaction type.
type TypeTotal struct {
	Type  TransactionType `bson:"_id"`
	Total float64         `bson:"total"`
}

// CategoryTotal is the summed amount and count of one (type, category) pair.
type CategoryTotal struct {
	Type     TransactionType `bson:"type" json:"type"`
	Category string          `bson:"category" json:"category"`
	Total    float64         `bson:"total" json:"total"`
	Count    int             `bson:"count" json:"count"`
}

// MonthTotal is the summed amount of one type in one calendar month.
type MonthTotal struct {
	Year  int             `bson:"year"`
	Month int             `bson:"month"`
	Type  TransactionType `bson:"type"`
	Total float64         `bson:"total"`
}
