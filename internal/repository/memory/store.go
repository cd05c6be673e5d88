// Package memory is an in-process implementation of repository.Store. Transactions snapshot
// the whole state and restore it when the callback fails; writes outside a transaction wait
// for the open one to finish so a rollback never drops them.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/domain/models"
	"github.com/mamadbah2/farmer/internal/repository"
)

type id = repository.ID

type state struct {
	batches       map[id]models.Batch
	mortality     map[id]models.Mortality
	eggs          map[id]models.EggLog
	feed          map[id]models.FeedLog
	incubator     map[id]models.IncubatorLog
	vaccinations  map[id]models.Vaccination
	templates     map[id]models.VaccineTemplate
	transactions  map[id]models.Transaction
	notifications map[id]models.Notification
	users         map[id]models.User
}

func newState() *state {
	return &state{
		batches:       map[id]models.Batch{},
		mortality:     map[id]models.Mortality{},
		eggs:          map[id]models.EggLog{},
		feed:          map[id]models.FeedLog{},
		incubator:     map[id]models.IncubatorLog{},
		vaccinations:  map[id]models.Vaccination{},
		templates:     map[id]models.VaccineTemplate{},
		transactions:  map[id]models.Transaction{},
		notifications: map[id]models.Notification{},
		users:         map[id]models.User{},
	}
}

func cloneMap[V any](in map[id]V) map[id]V {
	out := make(map[id]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		batches:       cloneMap(s.batches),
		mortality:     cloneMap(s.mortality),
		eggs:          cloneMap(s.eggs),
		feed:          cloneMap(s.feed),
		incubator:     cloneMap(s.incubator),
		vaccinations:  cloneMap(s.vaccinations),
		templates:     cloneMap(s.templates),
		transactions:  cloneMap(s.transactions),
		notifications: cloneMap(s.notifications),
		users:         cloneMap(s.users),
	}
}

// Store keeps every collection in memory.
type Store struct {
	mu       sync.RWMutex
	txMu     sync.Mutex
	st       *state
	failures map[string]error
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{st: newState(), failures: map[string]error{}}
}

// FailOn makes the named operation (e.g. "batches.adjust_size") return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// PutUser seeds an account; users are created by the auth provider.
func (s *Store) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[u.ID] = u
}

// failure must be called with mu held.
func (s *Store) failure(op string) error {
	if err, ok := s.failures[op]; ok {
		return apperr.Store(op, err)
	}
	return nil
}

type txKey struct{}

// inTx reports whether ctx was issued by this store's WithTransaction.
func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock takes the write lock and returns its release. Writes outside a transaction also take
// txMu, so they are serialised with transactions instead of racing their rollback.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

// WithTransaction serialises transactions and rolls the state back when fn fails.
// Nested calls join the outer transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Batches() repository.BatchRepository { return batchRepo{s} }
func (s *Store) Mortality() repository.MortalityRepository { return mortalityRepo{s} }
func (s *Store) Eggs() repository.EggRepository { return eggRepo{s} }
func (s *Store) Feed() repository.FeedRepository { return feedRepo{s} }
func (s *Store) Incubator() repository.IncubatorRepository { return incubatorRepo{s} }
func (s *Store) Vaccinations() repository.VaccinationRepository { return vaccinationRepo{s} }
func (s *Store) Templates() repository.TemplateRepository { return templateRepo{s} }
func (s *Store) Transactions() repository.TransactionRepository { return transactionRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

func duplicateID(kind string, key id) error {
	return apperr.Store("insert "+kind, fmt.Errorf("duplicate id %s", key.Hex()))
}
