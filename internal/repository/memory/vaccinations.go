package memory

import (
	"context"
	"sort"
	"time"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/domain/models"
	"github.com/mamadbah2/farmer/internal/repository"
)

type vaccinationRepo struct{ s *Store }

func (r vaccinationRepo) Insert(ctx context.Context, v *models.Vaccination) error {
	return r.InsertMany(ctx, []models.Vaccination{*v})
}

func (r vaccinationRepo) InsertMany(ctx context.Context, vs []models.Vaccination) error {
	defer r.s.lock(ctx)()
	if err := r.s.failure("vaccinations.insert"); err != nil {
		return err
	}
	for _, v := range vs {
		if _, ok := r.s.st.vaccinations[v.ID]; ok {
			return duplicateID("vaccination", v.ID)
		}
	}
	for _, v := range vs {
		r.s.st.vaccinations[v.ID] = v
	}
	return nil
}

func (r vaccinationRepo) FindByID(_ context.Context, userID, vaccinationID id) (*models.Vaccination, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.st.vaccinations[vaccinationID]
	if !ok || v.UserID != userID {
		return nil, apperr.NotFound("vaccination")
	}
	return &v, nil
}

func (r vaccinationRepo) List(_ context.Context, userID id, batchID *id) ([]models.Vaccination, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Vaccination{}
	for _, v := range r.s.st.vaccinations {
		if v.UserID == userID && matchesBatch(batchID, v.BatchID) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate.After(out[j].ScheduledDate) })
	return out, nil
}

func (r vaccinationRepo) Complete(ctx context.Context, userID, vaccinationID id, completedAt time.Time, actualCost *float64) (*models.Vaccination, error) {
	defer r.s.lock(ctx)()
	if err := r.s.failure("vaccinations.complete"); err != nil {
		return nil, err
	}
	v, ok := r.s.st.vaccinations[vaccinationID]
	if !ok || v.UserID != userID {
		return nil, apperr.NotFound("vaccination")
	}
	v.CompletedDate = &completedAt
	if actualCost != nil {
		v.ActualCost = actualCost
	}
	v.UpdatedAt = completedAt
	r.s.st.vaccinations[vaccinationID] = v
	return &v, nil
}

func (r vaccinationRepo) Delete(ctx context.Context, userID, vaccinationID id) error {
	defer r.s.lock(ctx)()
	v, ok := r.s.st.vaccinations[vaccinationID]
	if !ok || v.UserID != userID {
		return apperr.NotFound("vaccination")
	}
	delete(r.s.st.vaccinations, vaccinationID)
	return nil
}

func (r vaccinationRepo) DeleteByBatch(ctx context.Context, userID, batchID id) (int64, error) {
	defer r.s.lock(ctx)()
	if err := r.s.failure("vaccinations.delete_by_batch"); err != nil {
		return 0, err
	}
	var n int64
	for k, v := range r.s.st.vaccinations {
		if v.UserID == userID && v.BatchID == batchID {
			delete(r.s.st.vaccinations, k)
			n++
		}
	}
	return n, nil
}

func (r vaccinationRepo) CountByTemplate(_ context.Context, userID, templateID id) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, v := range r.s.st.vaccinations {
		if v.UserID == userID && v.VaccineTemplateID != nil && *v.VaccineTemplateID == templateID {
			n++
		}
	}
	return n, nil
}

func (r vaccinationRepo) ListDue(_ context.Context, from, to time.Time) ([]models.Vaccination, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Vaccination{}
	for _, v := range r.s.st.vaccinations {
		if v.CompletedDate != nil || v.ScheduledDate.Before(from) || v.ScheduledDate.After(to) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate.Before(out[j].ScheduledDate) })
	return out, nil
}

type templateRepo struct{ s *Store }

func (r templateRepo) Insert(ctx context.Context, t *models.VaccineTemplate) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.st.templates[t.ID]; ok {
		return duplicateID("vaccine template", t.ID)
	}
	r.s.st.templates[t.ID] = *t
	return nil
}

func (r templateRepo) FindByID(_ context.Context, userID, templateID id) (*models.VaccineTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.st.templates[templateID]
	if !ok || t.UserID != userID {
		return nil, apperr.NotFound("vaccine template")
	}
	return &t, nil
}

func (r templateRepo) ListActive(_ context.Context, userID id) ([]models.VaccineTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.VaccineTemplate{}
	for _, t := range r.s.st.templates {
		if t.UserID == userID && t.Active {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgeInDays < out[j].AgeInDays })
	return out, nil
}

func (r templateRepo) FindActiveByIDs(_ context.Context, userID id, ids []id) ([]models.VaccineTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.VaccineTemplate{}
	seen := map[id]bool{}
	for _, templateID := range ids {
		t, ok := r.s.st.templates[templateID]
		if !ok || seen[templateID] || t.UserID != userID || !t.Active {
			continue
		}
		seen[templateID] = true
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgeInDays < out[j].AgeInDays })
	return out, nil
}

func (r templateRepo) Update(ctx context.Context, userID, templateID id, u repository.TemplateUpdate, updatedAt time.Time) (*models.VaccineTemplate, error) {
	defer r.s.lock(ctx)()
	t, ok := r.s.st.templates[templateID]
	if !ok || t.UserID != userID {
		return nil, apperr.NotFound("vaccine template")
	}
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.DefaultCost != nil {
		t.DefaultCost = *u.DefaultCost
	}
	if u.AgeInDays != nil {
		t.AgeInDays = *u.AgeInDays
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Active != nil {
		t.Active = *u.Active
	}
	t.UpdatedAt = updatedAt
	r.s.st.templates[templateID] = t
	return &t, nil
}

func (r templateRepo) Delete(ctx context.Context, userID, templateID id) error {
	defer r.s.lock(ctx)()
	t, ok := r.s.st.templates[templateID]
	if !ok || t.UserID != userID {
		return apperr.NotFound("vaccine template")
	}
	delete(r.s.st.templates, templateID)
	return nil
}
