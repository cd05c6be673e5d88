package memory

import (
	"context"
	"sort"
	"time"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/domain/models"
)

type transactionRepo struct{ s *Store }

func (r transactionRepo) Insert(ctx context.Context, t *models.Transaction) error {
	defer r.s.lock(ctx)()
	if err := r.s.failure("transactions.insert"); err != nil {
		return err
	}
	if _, ok := r.s.st.transactions[t.ID]; ok {
		return duplicateID("transaction", t.ID)
	}
	r.s.st.transactions[t.ID] = *t
	return nil
}

func (r transactionRepo) matching(userID id, f models.TransactionFilter) []models.Transaction {
	out := []models.Transaction{}
	for _, t := range r.s.st.transactions {
		if t.UserID == userID && f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

func (r transactionRepo) List(_ context.Context, userID id, f models.TransactionFilter) ([]models.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.matching(userID, f)
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r transactionRepo) Delete(ctx context.Context, userID, txID id) error {
	defer r.s.lock(ctx)()
	t, ok := r.s.st.transactions[txID]
	if !ok || t.UserID != userID {
		return apperr.NotFound("transaction")
	}
	delete(r.s.st.transactions, txID)
	return nil
}

func (r transactionRepo) SumByType(_ context.Context, userID id, f models.TransactionFilter) ([]models.TypeTotal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sums := map[models.TransactionType]float64{}
	for _, t := range r.matching(userID, f) {
		sums[t.Type] += t.Amount
	}
	out := make([]models.TypeTotal, 0, len(sums))
	for typ, total := range sums {
		out = append(out, models.TypeTotal{Type: typ, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (r transactionRepo) SumByCategory(_ context.Context, userID id, f models.TransactionFilter) ([]models.CategoryTotal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	type key struct {
		typ      models.TransactionType
		category string
	}
	groups := map[key]*models.CategoryTotal{}
	for _, t := range r.matching(userID, f) {
		k := key{t.Type, t.Category}
		g, ok := groups[k]
		if !ok {
			g = &models.CategoryTotal{Type: t.Type, Category: t.Category}
			groups[k] = g
		}
		g.Total += t.Amount
		g.Count++
	}
	out := make([]models.CategoryTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (r transactionRepo) SumByMonth(_ context.Context, userID id, f models.TransactionFilter, loc *time.Location) ([]models.MonthTotal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if loc == nil {
		loc = time.UTC
	}
	type key struct {
		year, month int
		typ         models.TransactionType
	}
	sums := map[key]float64{}
	for _, t := range r.matching(userID, f) {
		local := t.Date.In(loc)
		sums[key{local.Year(), int(local.Month()), t.Type}] += t.Amount
	}
	out := make([]models.MonthTotal, 0, len(sums))
	for k, total := range sums {
		out = append(out, models.MonthTotal{Year: k.year, Month: k.month, Type: k.typ, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Insert(ctx context.Context, n *models.Notification) error {
	defer r.s.lock(ctx)()
	if err := r.s.failure("notifications.insert"); err != nil {
		return err
	}
	if _, ok := r.s.st.notifications[n.ID]; ok {
		return duplicateID("notification", n.ID)
	}
	r.s.st.notifications[n.ID] = *n
	return nil
}

func (r notificationRepo) ExistsSince(_ context.Context, userID, relatedID id, since time.Time) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, n := range r.s.st.notifications {
		if n.UserID == userID && n.Related != nil && n.Related.ID == relatedID && !n.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r notificationRepo) List(_ context.Context, userID id, unreadOnly bool, limit int) ([]models.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Notification{}
	for _, n := range r.s.st.notifications {
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r notificationRepo) CountUnread(_ context.Context, userID id) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var c int64
	for _, n := range r.s.st.notifications {
		if n.UserID == userID && !n.Read {
			c++
		}
	}
	return c, nil
}

func (r notificationRepo) MarkRead(ctx context.Context, userID, notificationID id) (*models.Notification, error) {
	defer r.s.lock(ctx)()
	n, ok := r.s.st.notifications[notificationID]
	if !ok || n.UserID != userID {
		return nil, apperr.NotFound("notification")
	}
	n.Read = true
	r.s.st.notifications[notificationID] = n
	return &n, nil
}

func (r notificationRepo) MarkAllRead(ctx context.Context, userID id) (int64, error) {
	defer r.s.lock(ctx)()
	var c int64
	for k, n := range r.s.st.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			r.s.st.notifications[k] = n
			c++
		}
	}
	return c, nil
}

type userRepo struct{ s *Store }

func (r userRepo) FindByID(_ context.Context, userID id) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.st.users[userID]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	return &u, nil
}
