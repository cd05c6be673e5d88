// Package reminders turns vaccinations due today or tomorrow into in-app notifications and pushes
// them to the optional email and WhatsApp channels. It also serves the notification inbox.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmer/internal/domain/models"
	"github.com/mamadbah2/farmer/internal/repository"
	"github.com/mamadbah2/farmer/internal/service/clock"
	"github.com/mamadbah2/farmer/pkg/clients/email"
)

const (
	// InboxLimit caps the notifications returned by Inbox.
	InboxLimit = 50

	reminderTitle   = "Vaccination Reminder"
	dispatchTimeout = 30 * time.Second
)

// Messenger delivers a plain text message to a phone number.
type Messenger interface {
	SendText(ctx context.Context, to, body string) (string, error)
}

// Channels are the best-effort delivery channels. Nil members are skipped.
type Channels struct {
	Email      email.Sender
	WhatsApp   Messenger
	WhatsAppTo string
}

// Service implements the reminder sweep and the inbox.
type Service struct {
	store    repository.Store
	clock    clock.Clock
	channels Channels
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewService wires a new reminders service instance.
func NewService(store repository.Store, clk clock.Clock, channels Channels, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, clock: clk, channels: channels, logger: logger}
}

// Result summarises one sweep.
type Result struct {
	Due     int `json:"due"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// CheckDue creates one notification per incomplete vaccination scheduled today or tomorrow,
// at most once per vaccination per calendar day. A failure on one vaccination does not stop the
// others; all failures are returned together.
func (s *Service) CheckDue(ctx context.Context) (Result, error) {
	today := s.clock.Today()
	tomorrow := today.AddDate(0, 0, 1)

	due, err := s.store.Vaccinations().ListDue(ctx, today, tomorrow)
	if err != nil {
		return Result{}, fmt.Errorf("list due vaccinations: %w", err)
	}

	res := Result{Due: len(due)}
	var errs []error
	for _, v := range due {
		var when string
		switch {
		case models.SameDay(today, v.ScheduledDate):
			when = "TODAY"
		case models.SameDay(tomorrow, v.ScheduledDate):
			when = "TOMORROW"
		default:
			res.Skipped++
			continue
		}

		created, err := s.remind(ctx, v, when, today)
		if err != nil {
			errs = append(errs, fmt.Errorf("vaccination %s: %w", v.ID.Hex(), err))
			continue
		}
		if created {
			res.Created++
		} else {
			res.Skipped++
		}
	}

	s.logger.Info("reminder sweep finished",
		zap.Int("due", res.Due),
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", len(errs)),
	)
	return res, errors.Join(errs...)
}

func (s *Service) remind(ctx context.Context, v models.Vaccination, when string, today time.Time) (bool, error) {
	exists, err := s.store.Notifications().ExistsSince(ctx, v.UserID, v.ID, today)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	batchName := "unknown batch"
	if b, err := s.store.Batches().FindByID(ctx, v.UserID, v.BatchID); err == nil {
		batchName = b.Name
	}

	n := &models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    v.UserID,
		Type:      models.NotificationVaccination,
		Title:     reminderTitle,
		Message:   fmt.Sprintf("Vaccination %q for batch %s is scheduled %s!", v.VaccineName, batchName, when),
		Related:   models.NewRef(models.RefVaccination, v.ID),
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.Notifications().Insert(ctx, n); err != nil {
		return false, err
	}

	s.dispatch(ctx, *n, v)
	return true, nil
}

// dispatch sends the notification to the external channels in the background. Failures are logged only.
func (s *Service) dispatch(ctx context.Context, n models.Notification, v models.Vaccination) {
	if s.channels.Email == nil && s.channels.WhatsApp == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
		defer cancel()

		log := s.logger.With(zap.String("notification_id", n.ID.Hex()), zap.String("vaccination_id", v.ID.Hex()))

		if s.channels.Email != nil {
			if err := s.sendEmail(ctx, n); err != nil {
				log.Warn("reminder email not sent", zap.Error(err))
			}
		}
		if s.channels.WhatsApp != nil && s.channels.WhatsAppTo != "" {
			if _, err := s.channels.WhatsApp.SendText(ctx, s.channels.WhatsAppTo, n.Title+": "+n.Message); err != nil {
				log.Warn("reminder whatsapp not sent", zap.Error(err))
			}
		}
	}()
}

func (s *Service) sendEmail(ctx context.Context, n models.Notification) error {
	user, err := s.store.Users().FindByID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("load recipient: %w", err)
	}
	if user.Email == "" {
		return errors.New("recipient has no email address")
	}
	_, err = s.channels.Email.Send(ctx, email.Message{
		To:      user.Email,
		Subject: n.Title,
		HTML:    fmt.Sprintf("<p>Hello %s,</p><p>%s</p>", user.Name, n.Message),
		Text:    n.Message,
	})
	return err
}

// Wait blocks until every background dispatch has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Inbox is the notification list with the unread count.
type Inbox struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unread_count"`
}

// Inbox returns the latest InboxLimit notifications, newest first.
func (s *Service) Inbox(ctx context.Context, userID primitive.ObjectID, unreadOnly bool) (*Inbox, error) {
	ns, err := s.store.Notifications().List(ctx, userID, unreadOnly, InboxLimit)
	if err != nil {
		return nil, err
	}
	unread, err := s.store.Notifications().CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ns == nil {
		ns = []models.Notification{}
	}
	return &Inbox{Notifications: ns, UnreadCount: unread}, nil
}

// MarkRead flags one notification as read.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID primitive.ObjectID) (*models.Notification, error) {
	return s.store.Notifications().MarkRead(ctx, userID, notificationID)
}

// MarkAllRead flags every unread notification of the caller and returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.store.Notifications().MarkAllRead(ctx, userID)
}
