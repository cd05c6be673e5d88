package memory

import (
	"context"
	"sort"
	"time"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/domain/models"
	"github.com/mamadbah2/farmer/internal/repository"
)

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func matchesBatch(batchID *id, actual id) bool {
	return batchID == nil || *batchID == actual
}

type mortalityRepo struct{ s *Store }

func (r mortalityRepo) Insert(ctx context.Context, m *models.Mortality) error {
	defer r.s.lock(ctx)()
	if err := r.s.failure("mortality.insert"); err != nil {
		return err
	}
	if _, ok := r.s.st.mortality[m.ID]; ok {
		return duplicateID("mortality", m.ID)
	}
	r.s.st.mortality[m.ID] = *m
	return nil
}

func (r mortalityRepo) List(_ context.Context, userID id, batchID *id) ([]models.Mortality, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Mortality{}
	for _, m := range r.s.st.mortality {
		if m.UserID == userID && matchesBatch(batchID, m.BatchID) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (r mortalityRepo) Delete(ctx context.Context, userID, recordID id) error {
	defer r.s.lock(ctx)()
	m, ok := r.s.st.mortality[recordID]
	if !ok || m.UserID != userID {
		return apperr.NotFound("mortality record")
	}
	delete(r.s.st.mortality, recordID)
	return nil
}

func (r mortalityRepo) DeleteByBatch(ctx context.Context, userID, batchID id) (int64, error) {
	defer r.s.lock(ctx)()
	if err := r.s.failure("mortality.delete_by_batch"); err != nil {
		return 0, err
	}
	var n int64
	for k, m := range r.s.st.mortality {
		if m.UserID == userID && m.BatchID == batchID {
			delete(r.s.st.mortality, k)
			n++
		}
	}
	return n, nil
}

type eggRepo struct{ s *Store }

func (r eggRepo) Insert(ctx context.Context, e *models.EggLog) error {
	defer r.s.lock(ctx)()
	if err := r.s.failure("eggs.insert"); err != nil {
		return err
	}
	if _, ok := r.s.st.eggs[e.ID]; ok {
		return duplicateID("egg log", e.ID)
	}
	r.s.st.eggs[e.ID] = *e
	return nil
}

func (r eggRepo) List(_ context.Context, userID id, batchID *id) ([]models.EggLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.EggLog{}
	for _, e := range r.s.st.eggs {
		if e.UserID == userID && matchesBatch(batchID, e.BatchID) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (r eggRepo) Delete(ctx context.Context, userID, recordID id) error {
	defer r.s.lock(ctx)()
	e, ok := r.s.st.eggs[recordID]
	if !ok || e.UserID != userID {
		return apperr.NotFound("egg log")
	}
	delete(r.s.st.eggs, recordID)
	return nil
}

func (r eggRepo) DeleteByBatch(ctx context.Context, userID, batchID id) (int64, error) {
	defer r.s.lock(ctx)()
	var n int64
	for k, e := range r.s.st.eggs {
		if e.UserID == userID && e.BatchID == batchID {
			delete(r.s.st.eggs, k)
			n++
		}
	}
	return n, nil
}

func (r eggRepo) Totals(_ context.Context, userID id, batchID *id, from, to time.Time) (repository.EggTotals, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var t repository.EggTotals
	for _, e := range r.s.st.eggs {
		if e.UserID != userID || !matchesBatch(batchID, e.BatchID) || !inWindow(e.Date, from, to) {
			continue
		}
		t.Collected += e.Collected
		t.Sold += e.Sold
		t.Spoiled += e.Spoiled
	}
	return t, nil
}

type feedRepo struct{ s *Store }

func (r feedRepo) Insert(ctx context.Context, f *models.FeedLog) error {
	defer r.s.lock(ctx)()
	if err := r.s.failure("feed.insert"); err != nil {
		return err
	}
	if _, ok := r.s.st.feed[f.ID]; ok {
		return duplicateID("feed log", f.ID)
	}
	r.s.st.feed[f.ID] = *f
	return nil
}

func (r feedRepo) List(_ context.Context, userID id) ([]models.FeedLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.FeedLog{}
	for _, f := range r.s.st.feed {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (r feedRepo) Delete(ctx context.Context, userID, recordID id) error {
	defer r.s.lock(ctx)()
	f, ok := r.s.st.feed[recordID]
	if !ok || f.UserID != userID {
		return apperr.NotFound("feed log")
	}
	delete(r.s.st.feed, recordID)
	return nil
}

func (r feedRepo) DeleteByBatch(ctx context.Context, userID, batchID id) (int64, error) {
	defer r.s.lock(ctx)()
	var n int64
	for k, f := range r.s.st.feed {
		if f.UserID == userID && f.BatchID != nil && *f.BatchID == batchID {
			delete(r.s.st.feed, k)
			n++
		}
	}
	return n, nil
}

func (r feedRepo) Stats(_ context.Context, userID id) (models.FeedStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var st models.FeedStats
	for _, f := range r.s.st.feed {
		if f.UserID != userID {
			continue
		}
		st.TotalBags += f.Bags
		st.TotalKg += f.TotalKg
		st.TotalSpent += f.Price
	}
	return st, nil
}

type incubatorRepo struct{ s *Store }

func (r incubatorRepo) Insert(ctx context.Context, l *models.IncubatorLog) error {
	defer r.s.lock(ctx)()
	if err := r.s.failure("incubator.insert"); err != nil {
		return err
	}
	if _, ok := r.s.st.incubator[l.ID]; ok {
		return duplicateID("incubator log", l.ID)
	}
	r.s.st.incubator[l.ID] = *l
	return nil
}

func (r incubatorRepo) List(_ context.Context, userID id, batchID *id) ([]models.IncubatorLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.IncubatorLog{}
	for _, l := range r.s.st.incubator {
		if l.UserID == userID && matchesBatch(batchID, l.BatchID) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (r incubatorRepo) Delete(ctx context.Context, userID, recordID id) error {
	defer r.s.lock(ctx)()
	l, ok := r.s.st.incubator[recordID]
	if !ok || l.UserID != userID {
		return apperr.NotFound("incubator log")
	}
	delete(r.s.st.incubator, recordID)
	return nil
}

func (r incubatorRepo) DeleteByBatch(ctx context.Context, userID, batchID id) (int64, error) {
	defer r.s.lock(ctx)()
	var n int64
	for k, l := range r.s.st.incubator {
		if l.UserID == userID && l.BatchID == batchID {
			delete(r.s.st.incubator, k)
			n++
		}
	}
	return n, nil
}
