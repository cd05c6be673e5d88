// Package whatsapp turns WhatsApp messages from the farm owner into log entries and quick reports.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmer/internal/config"
	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/domain/models"
	"github.com/mamadbah2/farmer/internal/service/clock"
	"github.com/mamadbah2/farmer/internal/service/finance"
	"github.com/mamadbah2/farmer/internal/service/flock"
	"github.com/mamadbah2/farmer/internal/service/production"
	"github.com/mamadbah2/farmer/internal/service/vaccination"
)

const (
	replyTimeout     = 10 * time.Second
	upcomingWindow   = 7
	replyDateLayout  = "Jan 02"
	summaryDateTitle = "January 2006"

	eggsUsage      = "/eggs <batch code> <collected> [sold] [spoiled] [price per egg]"
	mortalityUsage = "/mortality <batch code> <count> [notes]"
)

var helpText = strings.Join([]string{
	"Supported commands:",
	eggsUsage,
	mortalityUsage,
	"/vaccines - doses due in the next 7 days",
	"/summary - income and expenses this month",
}, "\n")

// ErrForbidden is returned by VerifyWebhookToken when the challenge does not match.
var ErrForbidden = errors.New("webhook verification failed")

// Messenger sends the reply to the sender.
type Messenger interface {
	SendText(ctx context.Context, to, body string) (string, error)
}

// Flock is the batch side of the command set.
type Flock interface {
	List(ctx context.Context, userID primitive.ObjectID) ([]flock.BatchView, error)
	Get(ctx context.Context, userID, batchID primitive.ObjectID) (*flock.BatchView, error)
	RecordMortality(ctx context.Context, userID, batchID primitive.ObjectID, in flock.MortalityInput) (*models.Mortality, error)
}

// Production records egg collections.
type Production interface {
	RecordEggs(ctx context.Context, userID primitive.ObjectID, in production.EggInput) (*production.EggView, error)
}

// Vaccines lists the schedule.
type Vaccines interface {
	List(ctx context.Context, userID primitive.ObjectID, batchID *primitive.ObjectID) ([]vaccination.View, error)
}

// Ledger totals the month.
type Ledger interface {
	Summarize(ctx context.Context, userID primitive.ObjectID, r finance.Range) (finance.Summary, error)
}

// Deps are the services commands run against.
type Deps struct {
	Flock      Flock
	Production Production
	Vaccines   Vaccines
	Ledger     Ledger
}

// Service handles the webhook.
type Service struct {
	verifyToken string
	owner       primitive.ObjectID
	sender      string
	messenger   Messenger
	deps        Deps
	clock       clock.Clock
	logger      *zap.Logger
}

// NewService wires a new service instance. Commands are recorded for cfg.OwnerID and accepted only
// from cfg.ReminderTo.
func NewService(cfg config.WhatsAppConfig, messenger Messenger, deps Deps, clk clock.Clock, logger *zap.Logger) (*Service, error) {
	owner, err := primitive.ObjectIDFromHex(cfg.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("WHATSAPP_OWNER_ID: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		verifyToken: cfg.VerifyToken,
		owner:       owner,
		sender:      digits(cfg.ReminderTo),
		messenger:   messenger,
		deps:        deps,
		clock:       clk,
		logger:      logger,
	}, nil
}

// VerifyWebhookToken validates the callback verification token and returns the challenge to echo.
func (s *Service) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if !strings.EqualFold(mode, "subscribe") || verifyToken == "" || verifyToken != s.verifyToken {
		return "", ErrForbidden
	}
	return challenge, nil
}

// HandleWebhook answers every message in the payload. Messages from other numbers are ignored.
// The first delivery failure is returned after all messages are processed.
func (s *Service) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	var firstErr error
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if err := s.handleInboundMessage(ctx, msg); err != nil {
					s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}
	}
	return firstErr
}

func (s *Service) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	if digits(msg.From) != s.sender {
		s.logger.Warn("ignoring message from unknown sender", zap.String("from", msg.From))
		return nil
	}
	text := msg.Body()
	if text == "" {
		s.logger.Debug("ignoring message without text", zap.String("type", msg.Type))
		return nil
	}

	cmd := models.ParseCommand(text)
	reply, err := s.Dispatch(ctx, cmd)
	if err != nil {
		kind := apperr.KindOf(err)
		if kind == apperr.KindStore {
			s.logger.Error("command failed", zap.String("command", string(cmd.Type)), zap.Error(err))
			reply = "Something went wrong, please try again later."
		} else {
			reply = "Could not run " + string(cmd.Type) + ": " + err.Error()
		}
	}

	s.logger.Info("parsed inbound command",
		zap.String("from", msg.From),
		zap.String("command", string(cmd.Type)),
		zap.Strings("args", cmd.Args))

	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()
	if _, err := s.messenger.SendText(ctx, msg.From, reply); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// Dispatch runs one command for the owner and returns the reply text.
func (s *Service) Dispatch(ctx context.Context, cmd models.Command) (string, error) {
	switch cmd.Type {
	case models.CommandEggs:
		return s.recordEggs(ctx, cmd.Args)
	case models.CommandMortality:
		return s.recordMortality(ctx, cmd.Args)
	case models.CommandVaccines:
		return s.upcomingVaccines(ctx)
	case models.CommandSummary:
		return s.monthSummary(ctx)
	case models.CommandHelp:
		return helpText, nil
	default:
		return "Unknown command.\n" + helpText, nil
	}
}

func (s *Service) recordEggs(ctx context.Context, args []string) (string, error) {
	if len(args) < 2 || len(args) > 5 {
		return "", apperr.Invalid("usage", eggsUsage)
	}
	batch, err := s.batchByCode(ctx, args[0])
	if err != nil {
		return "", err
	}
	counts := make([]int, 3)
	for i, raw := range args[1:min(len(args), 4)] {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return "", apperr.Invalid("usage", eggsUsage)
		}
		counts[i] = n
	}
	in := production.EggInput{BatchID: batch.ID, Collected: counts[0], Sold: counts[1], Spoiled: counts[2]}
	if len(args) == 5 {
		price, err := strconv.ParseFloat(args[4], 64)
		if err != nil {
			return "", apperr.Invalid("usage", eggsUsage)
		}
		in.PricePerEgg = &price
	}

	logged, err := s.deps.Production.RecordEggs(ctx, s.owner, in)
	if err != nil {
		return "", err
	}
	reply := fmt.Sprintf("Egg log saved for %s (%s): %d collected, %d sold, %d spoiled.",
		batch.Name, batch.BatchCode, logged.Collected, logged.Sold, logged.Spoiled)
	if logged.TotalRevenue != nil {
		reply += fmt.Sprintf(" Revenue %.2f.", *logged.TotalRevenue)
	}
	return reply, nil
}

func (s *Service) recordMortality(ctx context.Context, args []string) (string, error) {
	if len(args) < 2 {
		return "", apperr.Invalid("usage", mortalityUsage)
	}
	batch, err := s.batchByCode(ctx, args[0])
	if err != nil {
		return "", err
	}
	count, err := strconv.Atoi(args[1])
	if err != nil {
		return "", apperr.Invalid("usage", mortalityUsage)
	}
	if _, err := s.deps.Flock.RecordMortality(ctx, s.owner, batch.ID, flock.MortalityInput{
		Count: count,
		Notes: strings.Join(args[2:], " "),
	}); err != nil {
		return "", err
	}
	after, err := s.deps.Flock.Get(ctx, s.owner, batch.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Mortality logged for %s (%s): %d birds. Current size %d.",
		batch.Name, batch.BatchCode, count, after.CurrentSize), nil
}

func (s *Service) upcomingVaccines(ctx context.Context) (string, error) {
	batches, err := s.deps.Flock.List(ctx, s.owner)
	if err != nil {
		return "", err
	}
	names := make(map[primitive.ObjectID]string, len(batches))
	for _, b := range batches {
		names[b.ID] = b.Name
	}
	views, err := s.deps.Vaccines.List(ctx, s.owner, nil)
	if err != nil {
		return "", err
	}

	horizon := s.clock.Today().AddDate(0, 0, upcomingWindow)
	upcoming := make([]models.Vaccination, 0)
	for _, v := range views {
		if v.CompletedDate == nil && !v.ScheduledDate.After(horizon) {
			upcoming = append(upcoming, v.Vaccination)
		}
	}
	if len(upcoming) == 0 {
		return fmt.Sprintf("No vaccinations due in the next %d days.", upcomingWindow), nil
	}

	var b strings.Builder
	b.WriteString("Upcoming vaccinations:")
	for _, v := range vaccination.Categorize(upcoming).Upcoming {
		fmt.Fprintf(&b, "\n- %s %s (%s)", v.ScheduledDate.Format(replyDateLayout), v.VaccineName, names[v.BatchID])
		if v.Status(s.clock.Today()) == models.VaccinationOverdue {
			b.WriteString(" OVERDUE")
		}
	}
	return b.String(), nil
}

func (s *Service) monthSummary(ctx context.Context) (string, error) {
	now := s.clock.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	sum, err := s.deps.Ledger.Summarize(ctx, s.owner, finance.Range{From: from, To: now})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Summary for %s\nIncome: %.2f\nExpenses: %.2f\nNet profit: %.2f (%.1f%%)",
		from.Format(summaryDateTitle), sum.TotalIncome, sum.TotalExpenses, sum.NetProfit, sum.ProfitMargin), nil
}

// batchByCode matches a batch of the owner by code, ignoring case.
func (s *Service) batchByCode(ctx context.Context, code string) (*flock.BatchView, error) {
	batches, err := s.deps.Flock.List(ctx, s.owner)
	if err != nil {
		return nil, err
	}
	for i := range batches {
		if strings.EqualFold(batches[i].BatchCode, code) {
			return &batches[i], nil
		}
	}
	return nil, apperr.NotFound("batch " + code)
}

func digits(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}
