// Package ledger owns the transactions and categories of the logged-in user
// and computes the aggregates derived from them.
package ledger

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/google/uuid"

	"financas/internal/core"
	"financas/internal/kv"
	"financas/internal/log"
	"financas/internal/session"
)

// Publisher receives an event after every successful mutation.
type Publisher interface {
	Publish(ctx context.Context, ev core.LedgerEvent) error
}

type Store struct {
	mu        sync.Mutex
	sessions  session.Provider
	kv        kv.Store
	logger    *log.Logger
	newID     func() string
	publisher Publisher

	// owner is the user whose partition is loaded into txs and cats.
	owner string
	txs   []core.Transaction
	cats  []core.Category
}

type Option func(*Store)

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent(log.ComponentLedger) }
}

// WithIDFunc replaces the identifier generator (UUIDv4 by default).
func WithIDFunc(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

func WithPublisher(p Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

func New(sessions session.Provider, store kv.Store, opts ...Option) *Store {
	s := &Store{
		sessions: sessions,
		kv:       store,
		logger:   log.Nop(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddTransaction stores t under a fresh identifier and returns it.
func (s *Store) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner, err := s.resolve(ctx)
	if err != nil {
		return core.Transaction{}, err
	}

	t.ID = s.newID()
	txs := append(slices.Clone(s.txs), t)
	if err := s.saveTransactions(ctx, owner, txs); err != nil {
		return core.Transaction{}, err
	}

	s.logger.InfoContext(ctx, "Transaction added",
		log.FieldOperation, log.OpCreate,
		log.FieldUserID, owner,
		log.FieldTxID, t.ID,
		log.FieldTxType, t.Type.String(),
		log.FieldAmount, t.Amount.String())
	s.publish(ctx, core.EventTransactionCreated, owner, t.ID, t)
	return t, nil
}

// UpdateTransaction merges patch into the transaction with the given id. An
// unknown id leaves the list unchanged and reports found=false without error;
// the list is persisted either way.
func (s *Store) UpdateTransaction(ctx context.Context, id string, patch core.TransactionPatch) (core.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, err := s.resolve(ctx)
	if err != nil {
		return core.Transaction{}, false, err
	}

	txs := slices.Clone(s.txs)
	i := slices.IndexFunc(txs, func(t core.Transaction) bool { return t.ID == id })
	var updated core.Transaction
	if i >= 0 {
		updated = patch.Apply(txs[i])
		if err := updated.Validate(); err != nil {
			return core.Transaction{}, true, err
		}
		txs[i] = updated
	}

	if err := s.saveTransactions(ctx, owner, txs); err != nil {
		return core.Transaction{}, false, err
	}

	if i < 0 {
		s.logger.DebugContext(ctx, "Transaction to update not found",
			log.FieldOperation, log.OpUpdate,
			log.FieldUserID, owner,
			log.FieldTxID, id,
			log.FieldFound, false)
		return core.Transaction{}, false, nil
	}

	s.logger.InfoContext(ctx, "Transaction updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldUserID, owner,
		log.FieldTxID, id)
	s.publish(ctx, core.EventTransactionUpdated, owner, id, updated)
	return updated, true, nil
}

// DeleteTransaction removes the transaction with the given id. Deleting an
// unknown id is a no-op and reports false.
func (s *Store) DeleteTransaction(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, err := s.resolve(ctx)
	if err != nil {
		return false, err
	}

	txs := slices.DeleteFunc(slices.Clone(s.txs), func(t core.Transaction) bool { return t.ID == id })
	if len(txs) == len(s.txs) {
		s.logger.DebugContext(ctx, "Transaction to delete not found",
			log.FieldOperation, log.OpDelete,
			log.FieldUserID, owner,
			log.FieldTxID, id,
			log.FieldFound, false)
		return false, nil
	}
	if err := s.saveTransactions(ctx, owner, txs); err != nil {
		return false, err
	}

	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldUserID, owner,
		log.FieldTxID, id)
	s.publish(ctx, core.EventTransactionDeleted, owner, id, nil)
	return true, nil
}

// AddCategory stores c under a fresh identifier and returns it.
func (s *Store) AddCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner, err := s.resolve(ctx)
	if err != nil {
		return core.Category{}, err
	}

	c.ID = s.newID()
	cats := append(slices.Clone(s.cats), c)
	if err := kv.Set(ctx, s.kv, kv.CategoriesOf(owner), cats); err != nil {
		return core.Category{}, fmt.Errorf("save categories: %w", err)
	}
	s.cats = cats

	s.logger.InfoContext(ctx, "Category added",
		log.FieldOperation, log.OpCreate,
		log.FieldUserID, owner,
		log.FieldCategoryID, c.ID,
		log.FieldCategory, c.Name)
	s.publish(ctx, core.EventCategoryCreated, owner, c.ID, c)
	return c, nil
}

// Transactions returns a copy of the current user's transactions in insertion
// order.
func (s *Store) Transactions(ctx context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.resolve(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(s.txs), nil
}

// Categories returns a copy of the current user's categories.
func (s *Store) Categories(ctx context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.resolve(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(s.cats), nil
}

// CategoriesByType returns the current user's categories of type typ.
func (s *Store) CategoriesByType(ctx context.Context, typ core.TransactionType) ([]core.Category, error) {
	cats, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(cats, func(c core.Category) bool { return c.Type != typ }), nil
}

// Balance sums the current transaction list. Nothing is cached.
func (s *Store) Balance(ctx context.Context) (core.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.resolve(ctx); err != nil {
		return core.Balance{}, err
	}
	return core.ComputeBalance(s.txs), nil
}

// TransactionsByPeriod returns a lazy view of the transactions dated within
// [start, end], both ends inclusive. The view iterates over a snapshot taken
// at call time, so later mutations do not affect it.
func (s *Store) TransactionsByPeriod(ctx context.Context, start, end core.Date) (iter.Seq[core.Transaction], error) {
	txs, err := s.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	return func(yield func(core.Transaction) bool) {
		for _, t := range txs {
			if !t.Date.Within(start, end) {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}, nil
}

// Search filters the current transactions by type and term, newest first.
func (s *Store) Search(ctx context.Context, filter core.TransactionFilter) ([]core.Transaction, error) {
	txs, err := s.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	return filter.Apply(txs), nil
}

// resolve returns the active user's ID, loading that user's partition when
// the session subject changed since the last call. Callers hold s.mu.
func (s *Store) resolve(ctx context.Context) (string, error) {
	sess := s.sessions.Current()
	if !sess.Active() {
		return "", core.ErrNoSession
	}
	owner := sess.User.ID
	if owner == s.owner {
		return owner, nil
	}
	if err := s.load(ctx, owner); err != nil {
		return "", err
	}
	return owner, nil
}

func (s *Store) load(ctx context.Context, owner string) error {
	txs, _, err := kv.Get[[]core.Transaction](ctx, s.kv, kv.TransactionsOf(owner))
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	cats, _, err := kv.Get[[]core.Category](ctx, s.kv, kv.CategoriesOf(owner))
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}

	if len(cats) == 0 {
		cats = core.DefaultCategories(s.newID)
		if err := kv.Set(ctx, s.kv, kv.CategoriesOf(owner), cats); err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
		s.logger.InfoContext(ctx, "Default categories seeded",
			log.FieldOperation, log.OpSeed,
			log.FieldUserID, owner,
			log.FieldCount, len(cats))
	}

	s.owner = owner
	s.txs = txs
	s.cats = cats
	s.logger.DebugContext(ctx, "Ledger loaded",
		log.FieldOperation, log.OpLoad,
		log.FieldUserID, owner,
		log.FieldCount, len(txs))
	return nil
}

func (s *Store) saveTransactions(ctx context.Context, owner string, txs []core.Transaction) error {
	if err := kv.Set(ctx, s.kv, kv.TransactionsOf(owner), txs); err != nil {
		return fmt.Errorf("save transactions: %w", err)
	}
	s.txs = txs
	return nil
}

func (s *Store) publish(ctx context.Context, typ core.EventType, owner, entityID string, entity any) {
	if s.publisher == nil {
		return
	}
	ev, err := core.NewLedgerEvent(typ, owner, entityID, entity)
	if err == nil {
		err = s.publisher.Publish(ctx, ev)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldOperation, log.OpPublish,
			log.FieldEventType, string(typ),
			log.FieldError, err.Error())
	}
}
