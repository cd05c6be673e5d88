package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/domain/models"
)

func seedBatch(t *testing.T, s *Store, owner primitive.ObjectID, code string, size int) models.Batch {
	t.Helper()
	b := models.Batch{
		ID:          primitive.NewObjectID(),
		UserID:      owner,
		BatchCode:   code,
		Name:        "Flock " + code,
		Category:    models.CategoryChick,
		CurrentSize: size,
		InitialSize: size,
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := s.Batches().Insert(context.Background(), &b); err != nil {
		t.Fatalf("insert batch: %v", err)
	}
	return b
}

func TestTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := primitive.NewObjectID()
	b := seedBatch(t, s, owner, "B1", 10)

	boom := errors.New("boom")
	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.Batches().AdjustSize(ctx, owner, b.ID, -3, time.Now()); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, err := s.Batches().FindByID(ctx, owner, b.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.CurrentSize != 10 {
		t.Fatalf("expected rollback to size 10, got %d", got.CurrentSize)
	}
}

func TestTransactionCommits(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := primitive.NewObjectID()
	b := seedBatch(t, s, owner, "B1", 10)

	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		m := models.Mortality{ID: primitive.NewObjectID(), UserID: owner, BatchID: b.ID, Count: 2}
		if err := s.Mortality().Insert(ctx, &m); err != nil {
			return err
		}
		_, err := s.Batches().AdjustSize(ctx, owner, b.ID, -2, time.Now())
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	got, _ := s.Batches().FindByID(ctx, owner, b.ID)
	if got.CurrentSize != 8 {
		t.Fatalf("expected 8, got %d", got.CurrentSize)
	}
	logs, _ := s.Mortality().List(ctx, owner, &b.ID)
	if len(logs) != 1 {
		t.Fatalf("expected one mortality log, got %d", len(logs))
	}
}

func TestAdjustSizeFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := primitive.NewObjectID()
	b := seedBatch(t, s, owner, "B1", 5)

	got, err := s.Batches().AdjustSize(ctx, owner, b.ID, -8, time.Now())
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if got.CurrentSize != 0 {
		t.Fatalf("expected 0, got %d", got.CurrentSize)
	}
}

func TestBatchScopedToOwner(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := primitive.NewObjectID()
	b := seedBatch(t, s, owner, "B1", 5)

	_, err := s.Batches().FindByID(ctx, primitive.NewObjectID(), b.ID)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found for foreign owner, got %v", err)
	}
	if err := s.Batches().Delete(ctx, primitive.NewObjectID(), b.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found on foreign delete, got %v", err)
	}
}

func TestDuplicateBatchCodeConflicts(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := primitive.NewObjectID()
	seedBatch(t, s, owner, "BDUP", 5)

	dup := models.Batch{ID: primitive.NewObjectID(), UserID: owner, BatchCode: "BDUP"}
	if err := s.Batches().Insert(ctx, &dup); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	exists, err := s.Batches().CodeExists(ctx, "BDUP")
	if err != nil || !exists {
		t.Fatalf("expected code to exist, got %v %v", exists, err)
	}
}

func TestFailOnInjectsStoreError(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := primitive.NewObjectID()
	b := seedBatch(t, s, owner, "B1", 5)

	s.FailOn("batches.adjust_size", errors.New("disk full"))
	if _, err := s.Batches().AdjustSize(ctx, owner, b.ID, -1, time.Now()); !errors.Is(err, apperr.ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	s.FailOn("batches.adjust_size", nil)
	if _, err := s.Batches().AdjustSize(ctx, owner, b.ID, -1, time.Now()); err != nil {
		t.Fatalf("expected success after clearing, got %v", err)
	}
}

func TestListDueIsInclusiveAndSkipsCompleted(t *testing.T) {
	ctx := context.Background()
	s := New()
	from := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	done := from.Add(time.Hour)

	vs := []models.Vaccination{
		{ID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), ScheduledDate: from},
		{ID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), ScheduledDate: to},
		{ID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), ScheduledDate: to.Add(time.Second)},
		{ID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), ScheduledDate: from, CompletedDate: &done},
	}
	if err := s.Vaccinations().InsertMany(ctx, vs); err != nil {
		t.Fatalf("insert: %v", err)
	}
	due, err := s.Vaccinations().ListDue(ctx, from, to)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due vaccinations, got %d", len(due))
	}
}

func TestSumByMonthUsesLocation(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := primitive.NewObjectID()
	loc := time.FixedZone("UTC+2", 2*3600)

	// 23:00 UTC on Jan 31 is Feb 1 in UTC+2.
	tx := models.Transaction{
		ID:     primitive.NewObjectID(),
		UserID: owner,
		Type:   models.TransactionIncome,
		Amount: 50,
		Date:   time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC),
	}
	if err := s.Transactions().Insert(ctx, &tx); err != nil {
		t.Fatalf("insert: %v", err)
	}
	months, err := s.Transactions().SumByMonth(ctx, owner, models.TransactionFilter{}, loc)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if len(months) != 1 || months[0].Month != 2 || months[0].Total != 50 {
		t.Fatalf("unexpected buckets: %+v", months)
	}
}

func TestSumByCategorySortedDescending(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := primitive.NewObjectID()
	for _, e := range []struct {
		category string
		amount   float64
	}{{"Feed", 100}, {"Vaccines", 300}, {"Feed", 50}} {
		tx := models.Transaction{ID: primitive.NewObjectID(), UserID: owner, Type: models.TransactionExpense, Category: e.category, Amount: e.amount}
		if err := s.Transactions().Insert(ctx, &tx); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	got, err := s.Transactions().SumByCategory(ctx, owner, models.TransactionFilter{})
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if len(got) != 2 || got[0].Category != "Vaccines" || got[1].Total != 150 || got[1].Count != 2 {
		t.Fatalf("unexpected breakdown: %+v", got)
	}
}

func TestNotificationsInbox(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := primitive.NewObjectID()
	related := primitive.NewObjectID()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		n := models.Notification{
			ID:        primitive.NewObjectID(),
			UserID:    owner,
			Related:   models.NewRef(models.RefVaccination, related),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := s.Notifications().Insert(ctx, &n); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	ok, _ := s.Notifications().ExistsSince(ctx, owner, related, base.Add(2*time.Hour))
	if !ok {
		t.Fatalf("expected notification at boundary to count")
	}
	ok, _ = s.Notifications().ExistsSince(ctx, owner, related, base.Add(3*time.Hour))
	if ok {
		t.Fatalf("expected no notification after last one")
	}

	list, _ := s.Notifications().List(ctx, owner, false, 2)
	if len(list) != 2 || !list[0].CreatedAt.Equal(base.Add(2*time.Hour)) {
		t.Fatalf("unexpected list: %+v", list)
	}
	if _, err := s.Notifications().MarkRead(ctx, owner, list[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if c, _ := s.Notifications().CountUnread(ctx, owner); c != 2 {
		t.Fatalf("expected 2 unread, got %d", c)
	}
	if n, _ := s.Notifications().MarkAllRead(ctx, owner); n != 2 {
		t.Fatalf("expected 2 marked, got %d", n)
	}
	unread, _ := s.Notifications().List(ctx, owner, true, 0)
	if len(unread) != 0 {
		t.Fatalf("expected empty unread list, got %d", len(unread))
	}
}

func TestRollbackKeepsWritesMadeOutsideTheTransaction(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := primitive.NewObjectID()
	b := seedBatch(t, s, owner, "B1", 10)

	done := make(chan error, 1)
	boom := errors.New("boom")
	err := s.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.Batches().AdjustSize(txCtx, owner, b.ID, -3, time.Now()); err != nil {
			return err
		}
		go func() {
			done <- s.Transactions().Insert(ctx, &models.Transaction{
				ID:     primitive.NewObjectID(),
				UserID: owner,
				Type:   models.TransactionIncome,
				Amount: 100,
				Date:   time.Now(),
			})
		}()
		time.Sleep(20 * time.Millisecond)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("concurrent insert: %v", err)
	}

	txs, err := s.Transactions().List(ctx, owner, models.TransactionFilter{})
	if err != nil || len(txs) != 1 {
		t.Fatalf("expected the concurrent insert to survive the rollback, got %d (%v)", len(txs), err)
	}
	got, _ := s.Batches().FindByID(ctx, owner, b.ID)
	if got.CurrentSize != 10 {
		t.Fatalf("expected rollback to size 10, got %d", got.CurrentSize)
	}
}

func TestNestedTransactionJoinsOuter(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := primitive.NewObjectID()
	b := seedBatch(t, s, owner, "B1", 10)

	boom := errors.New("boom")
	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.WithTransaction(ctx, func(ctx context.Context) error {
			_, err := s.Batches().AdjustSize(ctx, owner, b.ID, -4, time.Now())
			return err
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, _ := s.Batches().FindByID(ctx, owner, b.ID)
	if got.CurrentSize != 10 {
		t.Fatalf("expected the inner write rolled back, got %d", got.CurrentSize)
	}
}
