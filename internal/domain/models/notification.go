package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RefKind names the kind of entity a Ref points to.
type RefKind string

const (
	RefBatch       RefKind = "batch"
	RefEggLog      RefKind = "egg_log"
	RefFeedLog     RefKind = "feed_log"
	RefVaccination RefKind = "vaccination"
	RefMortality   RefKind = "mortality"
)

// Ref is a typed reference to another entity.
type Ref struct {
	Kind RefKind            `bson:"kind" json:"kind"`
	ID   primitive.ObjectID `bson:"id" json:"id"`
}

// NewRef builds a Ref.
func NewRef(kind RefKind, id primitive.ObjectID) *Ref {
	return &Ref{Kind: kind, ID: id}
}

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationVaccination NotificationType = "vaccination"
	NotificationMortality   NotificationType = "mortality"
	NotificationGeneral     NotificationType = "general"
)

// Notification is an in-app reminder.
type Notification struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Type      NotificationType   `bson:"type" json:"type"`
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message" json:"message"`
	Related   *Ref               `bson:"related,omitempty" json:"related,omitempty"`
	Read      bool               `bson:"read" json:"read"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// User is the owning account. Credentials live with the auth provider.
type User struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Email     string             `bson:"email" json:"email"`
	Name      string             `bson:"name" json:"name"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
