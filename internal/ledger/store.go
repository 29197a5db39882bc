// Package ledger owns the farming accounts and their transactions.
//
// Store is the only stateful component of the profit tracker. Every mutation
// builds the next snapshot, persists the whole account list to the blob
// store, and only then makes it visible, so a failed write leaves the store
// exactly as it was.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"farmprofit/internal/core"
	"farmprofit/internal/log"
	"farmprofit/internal/storage"
)

// IDGenerator returns a new unique identifier on every call.
type IDGenerator func() string

type Store struct {
	mu       sync.RWMutex
	blobs    storage.BlobStore
	key      string
	newID    IDGenerator
	notifier Notifier
	now      func() time.Time
	logger   *log.Logger
	accounts []core.Account
}

type Option func(*Store)

// WithKey sets the blob key the snapshot is stored under.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentLedger)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an empty store backed by blobs. Call Load to read a persisted
// snapshot.
func New(blobs storage.BlobStore, opts ...Option) *Store {
	s := &Store{
		blobs:    blobs,
		key:      storage.DefaultKey,
		newID:    uuid.NewString,
		now:      time.Now,
		logger:   log.Default().WithComponent(log.ComponentLedger),
		accounts: []core.Account{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory state with the persisted snapshot. A missing
// snapshot yields an empty store.
func (s *Store) Load(ctx context.Context) error {
	b, ok, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("%w: load snapshot: %w", core.ErrPersistence, err)
	}

	accounts := []core.Account{}
	if ok && len(strings.TrimSpace(string(b))) > 0 {
		if err := json.Unmarshal(b, &accounts); err != nil {
			return fmt.Errorf("decode snapshot %s: %w", s.key, err)
		}
	}

	s.mu.Lock()
	s.accounts = accounts
	s.mu.Unlock()

	attrs := []any{log.FieldKey, s.key, "accounts", len(accounts)}
	version, ok, err := s.SnapshotVersion(ctx)
	if err != nil {
		return err
	}
	if ok {
		attrs = append(attrs, "version", version)
	}
	s.logger.InfoContext(ctx, "Ledger loaded", attrs...)

	if n := countInvalid(accounts); n > 0 {
		s.logger.WarnContext(ctx, "Snapshot holds transactions with unreadable date or amount",
			log.FieldKey, s.key,
			"count", n)
	}
	return nil
}

// SnapshotVersion reports how many times the snapshot has been written. ok is
// false when the blob store does not track versions.
func (s *Store) SnapshotVersion(ctx context.Context) (version int64, ok bool, err error) {
	v, ok := s.blobs.(storage.Versioner)
	if !ok {
		return 0, false, nil
	}
	version, err = v.Version(ctx, s.key)
	if err != nil {
		return 0, true, fmt.Errorf("%w: snapshot version: %w", core.ErrPersistence, err)
	}
	return version, true, nil
}

func countInvalid(accounts []core.Account) int {
	n := 0
	for _, a := range accounts {
		for _, tx := range a.Transactions {
			if !tx.Valid() {
				n++
			}
		}
	}
	return n
}

// CreateAccount adds an empty account. The (cropName, location) pair must be
// unique; the comparison is exact and case-sensitive.
func (s *Store) CreateAccount(ctx context.Context, cropName, location string) (core.Account, error) {
	cropName = core.SingleLine(cropName)
	location = core.SingleLine(location)
	if cropName == "" || location == "" {
		return core.Account{}, fmt.Errorf("crop name and location: %w", core.ErrEmptyRequiredField)
	}

	account, err := func() (core.Account, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		for _, a := range s.accounts {
			if a.CropName == cropName && a.Location == location {
				return core.Account{}, fmt.Errorf("%s - %s: %w", cropName, location, core.ErrDuplicateAccount)
			}
		}
		account := core.Account{
			ID:           s.uniqueAccountID(),
			CropName:     cropName,
			Location:     location,
			Transactions: []core.Transaction{},
		}
		if err := s.commit(ctx, append(cloneAccounts(s.accounts), account)); err != nil {
			return core.Account{}, err
		}
		return account, nil
	}()
	if err != nil {
		return core.Account{}, err
	}

	s.logger.InfoContext(ctx, "Account created",
		log.NewFields().WithOperation(log.OpCreate).WithAccount(account.ID, account.Label()).ToSlice()...)
	s.notify(ctx, Change{Op: OpAccountCreated, AccountID: account.ID})
	return account.Clone(), nil
}

// ListAccounts returns copies of all accounts in creation order.
func (s *Store) ListAccounts() []core.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAccounts(s.accounts)
}

func (s *Store) FindAccount(id string) (core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Account{}, fmt.Errorf("%s: %w", id, core.ErrAccountNotFound)
	}
	return s.accounts[i].Clone(), nil
}

// Transactions returns every transaction of every account, in account
// creation order and then insertion order.
func (s *Store) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Transaction
	for _, a := range s.accounts {
		out = append(out, a.Transactions...)
	}
	return out
}

// AddTransaction appends a new transaction to the account.
func (s *Store) AddTransaction(ctx context.Context, accountID string, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}

	tx, err := func() (core.Transaction, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		i := s.indexOf(accountID)
		if i < 0 {
			return core.Transaction{}, fmt.Errorf("%s: %w", accountID, core.ErrAccountNotFound)
		}
		next := cloneAccounts(s.accounts)
		tx := newTransaction(uniqueTransactionID(next[i], s.newID), in)
		next[i].Transactions = append(next[i].Transactions, tx)
		if err := s.commit(ctx, next); err != nil {
			return core.Transaction{}, err
		}
		return tx, nil
	}()
	if err != nil {
		return core.Transaction{}, err
	}

	s.logger.InfoContext(ctx, "Transaction added",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithAccount(accountID, "").
			WithTransaction(tx.ID, string(tx.Type), tx.Amount.Cents).
			ToSlice()...)
	s.notify(ctx, Change{Op: OpTransactionAdded, AccountID: accountID, TransactionID: tx.ID})
	return tx, nil
}

// UpdateTransaction replaces type, amount, description and date of an
// existing transaction. Its id and position are preserved.
func (s *Store) UpdateTransaction(ctx context.Context, accountID, txID string, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}

	tx, err := func() (core.Transaction, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		i := s.indexOf(accountID)
		if i < 0 {
			return core.Transaction{}, fmt.Errorf("%s: %w", accountID, core.ErrAccountNotFound)
		}
		j := indexOfTransaction(s.accounts[i], txID)
		if j < 0 {
			return core.Transaction{}, fmt.Errorf("%s: %w", txID, core.ErrTransactionNotFound)
		}
		next := cloneAccounts(s.accounts)
		tx := newTransaction(txID, in)
		next[i].Transactions[j] = tx
		if err := s.commit(ctx, next); err != nil {
			return core.Transaction{}, err
		}
		return tx, nil
	}()
	if err != nil {
		return core.Transaction{}, err
	}

	s.logger.InfoContext(ctx, "Transaction updated",
		log.NewFields().
			WithOperation(log.OpUpdate).
			WithAccount(accountID, "").
			WithTransaction(tx.ID, string(tx.Type), tx.Amount.Cents).
			ToSlice()...)
	s.notify(ctx, Change{Op: OpTransactionUpdated, AccountID: accountID, TransactionID: txID})
	return tx, nil
}

func (s *Store) RemoveTransaction(ctx context.Context, accountID, txID string) error {
	err := func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		i := s.indexOf(accountID)
		if i < 0 {
			return fmt.Errorf("%s: %w", accountID, core.ErrAccountNotFound)
		}
		j := indexOfTransaction(s.accounts[i], txID)
		if j < 0 {
			return fmt.Errorf("%s: %w", txID, core.ErrTransactionNotFound)
		}
		next := cloneAccounts(s.accounts)
		txs := next[i].Transactions
		next[i].Transactions = append(txs[:j:j], txs[j+1:]...)
		return s.commit(ctx, next)
	}()
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Transaction removed",
		log.FieldOperation, log.OpDelete,
		log.FieldAccountID, accountID,
		log.FieldTransactionID, txID)
	s.notify(ctx, Change{Op: OpTransactionRemoved, AccountID: accountID, TransactionID: txID})
	return nil
}

// RemoveAccount deletes the account together with all of its transactions.
func (s *Store) RemoveAccount(ctx context.Context, id string) error {
	removed, err := func() (int, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		i := s.indexOf(id)
		if i < 0 {
			return 0, fmt.Errorf("%s: %w", id, core.ErrAccountNotFound)
		}
		current := cloneAccounts(s.accounts)
		removed := len(current[i].Transactions)
		if err := s.commit(ctx, append(current[:i:i], current[i+1:]...)); err != nil {
			return 0, err
		}
		return removed, nil
	}()
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Account removed",
		log.FieldOperation, log.OpDelete,
		log.FieldAccountID, id,
		"transactions_removed", removed)
	s.notify(ctx, Change{Op: OpAccountRemoved, AccountID: id})
	return nil
}

func newTransaction(id string, in core.TransactionInput) core.Transaction {
	return core.Transaction{
		ID:          id,
		Type:        in.Type,
		Amount:      in.Amount,
		Description: core.SingleLine(in.Description),
		Date:        in.Date,
	}
}

// commit persists next and, on success, makes it the current state.
// Callers hold s.mu.
func (s *Store) commit(ctx context.Context, next []core.Account) error {
	b, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %w", core.ErrPersistence, err)
	}
	if err := s.blobs.Set(ctx, s.key, b); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist ledger",
			log.FieldOperation, log.OpPersist,
			log.FieldKey, s.key,
			log.FieldError, err)
		return fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}
	s.accounts = next
	return nil
}

// notify runs after the write lock is released, so a notifier may read the
// store and a slow broker does not block readers.
func (s *Store) notify(ctx context.Context, c Change) {
	if s.notifier == nil {
		return
	}
	c.At = s.now().UTC()
	if err := s.notifier.Notify(ctx, c); err != nil {
		// The change is already saved; a lost notification only delays exports
		s.logger.WarnContext(ctx, "Failed to publish ledger change",
			log.FieldOperation, log.OpNotify,
			"op", string(c.Op),
			log.FieldAccountID, c.AccountID,
			log.FieldError, err)
	}
}

func (s *Store) indexOf(id string) int {
	for i, a := range s.accounts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) uniqueAccountID() string {
	for {
		id := s.newID()
		if s.indexOf(id) < 0 {
			return id
		}
	}
}

func uniqueTransactionID(a core.Account, gen IDGenerator) string {
	for {
		id := gen()
		if indexOfTransaction(a, id) < 0 {
			return id
		}
	}
}

func indexOfTransaction(a core.Account, id string) int {
	for j, tx := range a.Transactions {
		if tx.ID == id {
			return j
		}
	}
	return -1
}

func cloneAccounts(in []core.Account) []core.Account {
	out := make([]core.Account, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}
