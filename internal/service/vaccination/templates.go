package vaccination

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/domain/models"
	"github.com/mamadbah2/farmer/internal/repository"
)

// TemplateInput creates a vaccine template.
type TemplateInput struct {
	Name        string
	DefaultCost float64
	AgeInDays   int
	Description string
}

// CreateTemplate stores a new active template.
func (s *Service) CreateTemplate(ctx context.Context, userID primitive.ObjectID, in TemplateInput) (*models.VaccineTemplate, error) {
	c := apperr.Collector{}
	c.Check(strings.TrimSpace(in.Name) != "", "name", "vaccine name is required")
	c.Check(in.DefaultCost >= 0, "default_cost", "cost cannot be negative")
	c.Check(in.AgeInDays >= 0, "age_in_days", "age in days cannot be negative")
	if err := c.Err(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	t := &models.VaccineTemplate{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		Name:        strings.TrimSpace(in.Name),
		DefaultCost: in.DefaultCost,
		AgeInDays:   in.AgeInDays,
		Description: strings.TrimSpace(in.Description),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Templates().Insert(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTemplates returns active templates ordered by age offset.
func (s *Service) ListTemplates(ctx context.Context, userID primitive.ObjectID) ([]models.VaccineTemplate, error) {
	return s.store.Templates().ListActive(ctx, userID)
}

// UpdateTemplate changes template fields. Vaccinations already scheduled keep their copied name and date.
func (s *Service) UpdateTemplate(ctx context.Context, userID, templateID primitive.ObjectID, u repository.TemplateUpdate) (*models.VaccineTemplate, error) {
	c := apperr.Collector{}
	c.Check(u.Name == nil || strings.TrimSpace(*u.Name) != "", "name", "cannot be empty")
	c.Check(u.DefaultCost == nil || *u.DefaultCost >= 0, "default_cost", "cost cannot be negative")
	c.Check(u.AgeInDays == nil || *u.AgeInDays >= 0, "age_in_days", "age in days cannot be negative")
	if err := c.Err(); err != nil {
		return nil, err
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		u.Name = &name
	}
	return s.store.Templates().Update(ctx, userID, templateID, u, s.clock.Now())
}

// DeleteTemplate removes a template nothing references. A referenced template yields a conflict
// carrying the number of blocking vaccinations; deactivate it instead.
func (s *Service) DeleteTemplate(ctx context.Context, userID, templateID primitive.ObjectID) error {
	return s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.store.Templates().FindByID(ctx, userID, templateID); err != nil {
			return err
		}
		refs, err := s.store.Vaccinations().CountByTemplate(ctx, userID, templateID)
		if err != nil {
			return err
		}
		if refs > 0 {
			s.logger.Info("template delete blocked", zap.String("template_id", templateID.Hex()), zap.Int64("references", refs))
			return apperr.Conflict("Cannot delete template: %d vaccination(s) reference this template. Consider deactivating instead.", refs)
		}
		return s.store.Templates().Delete(ctx, userID, templateID)
	})
}
