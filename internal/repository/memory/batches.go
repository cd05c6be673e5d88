package memory

import (
	"context"
	"sort"
	"time"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/domain/models"
	"github.com/mamadbah2/farmer/internal/repository"
)

type batchRepo struct{ s *Store }

func (r batchRepo) Insert(ctx context.Context, b *models.Batch) error {
	defer r.s.lock(ctx)()
	if err := r.s.failure("batches.insert"); err != nil {
		return err
	}
	if _, ok := r.s.st.batches[b.ID]; ok {
		return duplicateID("batch", b.ID)
	}
	for _, existing := range r.s.st.batches {
		if existing.BatchCode == b.BatchCode {
			return apperr.Conflict("batch code %s is already in use", b.BatchCode)
		}
	}
	r.s.st.batches[b.ID] = *b
	return nil
}

func (r batchRepo) CodeExists(_ context.Context, code string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, b := range r.s.st.batches {
		if b.BatchCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (r batchRepo) FindByID(_ context.Context, userID, batchID id) (*models.Batch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.st.batches[batchID]
	if !ok || b.UserID != userID {
		return nil, apperr.NotFound("batch")
	}
	return &b, nil
}

func (r batchRepo) List(_ context.Context, userID id) ([]models.Batch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Batch{}
	for _, b := range r.s.st.batches {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (r batchRepo) Update(ctx context.Context, userID, batchID id, u repository.BatchUpdate, updatedAt time.Time) (*models.Batch, error) {
	defer r.s.lock(ctx)()
	if err := r.s.failure("batches.update"); err != nil {
		return nil, err
	}
	b, ok := r.s.st.batches[batchID]
	if !ok || b.UserID != userID {
		return nil, apperr.NotFound("batch")
	}
	if u.Name != nil {
		b.Name = *u.Name
	}
	if u.Breed != nil {
		b.Breed = *u.Breed
	}
	if u.Category != nil {
		b.Category = *u.Category
	}
	if u.Archived != nil {
		b.Archived = *u.Archived
	}
	if u.MaleCount != nil {
		b.MaleCount = u.MaleCount
	}
	if u.FemaleCount != nil {
		b.FemaleCount = u.FemaleCount
	}
	b.UpdatedAt = updatedAt
	r.s.st.batches[batchID] = b
	return &b, nil
}

func (r batchRepo) AdjustSize(ctx context.Context, userID, batchID id, delta int, updatedAt time.Time) (*models.Batch, error) {
	defer r.s.lock(ctx)()
	if err := r.s.failure("batches.adjust_size"); err != nil {
		return nil, err
	}
	b, ok := r.s.st.batches[batchID]
	if !ok || b.UserID != userID {
		return nil, apperr.NotFound("batch")
	}
	b.CurrentSize = max(0, b.CurrentSize+delta)
	b.UpdatedAt = updatedAt
	r.s.st.batches[batchID] = b
	return &b, nil
}

func (r batchRepo) Delete(ctx context.Context, userID, batchID id) error {
	defer r.s.lock(ctx)()
	if err := r.s.failure("batches.delete"); err != nil {
		return err
	}
	b, ok := r.s.st.batches[batchID]
	if !ok || b.UserID != userID {
		return apperr.NotFound("batch")
	}
	delete(r.s.st.batches, batchID)
	return nil
}
