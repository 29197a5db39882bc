package ledger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"farmprofit/internal/core"
	"farmprofit/internal/log"
	"farmprofit/internal/storage"
)

type failingBlobs struct {
	storage.BlobStore
	fail bool
}

func (f *failingBlobs) Set(ctx context.Context, key string, blob []byte) error {
	if f.fail {
		return errors.New("quota exceeded")
	}
	return f.BlobStore.Set(ctx, key, blob)
}

func sequence() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestStore(t *testing.T, blobs storage.BlobStore, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithIDGenerator(sequence()), WithLogger(log.Discard())}, opts...)
	s := New(blobs, opts...)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func mustInput(t *testing.T, typ, amount, date string) core.TransactionInput {
	t.Helper()
	in, err := core.ParseTransactionInput(typ, amount, "", date)
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	return in
}

func TestCreateAccountRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemoryStore())

	a, err := s.CreateAccount(ctx, "Rice", "Village A")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == "" || len(a.Transactions) != 0 {
		t.Fatalf("unexpected account: %+v", a)
	}

	if _, err := s.CreateAccount(ctx, " Rice ", "Village A"); !errors.Is(err, core.ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
	// exact, case-sensitive match
	if _, err := s.CreateAccount(ctx, "rice", "Village A"); err != nil {
		t.Fatalf("different case should be allowed: %v", err)
	}
	if _, err := s.CreateAccount(ctx, "Rice", ""); !errors.Is(err, core.ErrEmptyRequiredField) {
		t.Fatalf("expected ErrEmptyRequiredField, got %v", err)
	}

	list := s.ListAccounts()
	if len(list) != 2 || list[0].CropName != "Rice" || list[1].CropName != "rice" {
		t.Fatalf("unexpected list order: %+v", list)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemoryStore())
	a, _ := s.CreateAccount(ctx, "Rice", "Village A")

	income, err := s.AddTransaction(ctx, a.ID, mustInput(t, "income", "1000000", "2024-01-05"))
	if err != nil {
		t.Fatalf("add income: %v", err)
	}
	expense, err := s.AddTransaction(ctx, a.ID, mustInput(t, "expense", "200000", "2024-01-20"))
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}
	if income.ID == expense.ID {
		t.Fatalf("transaction ids must be unique")
	}

	updated, err := s.UpdateTransaction(ctx, a.ID, expense.ID, mustInput(t, "expense", "500000", "2024-01-21"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != expense.ID {
		t.Fatalf("update changed id: %s -> %s", expense.ID, updated.ID)
	}

	got, _ := s.FindAccount(a.ID)
	if len(got.Transactions) != 2 || got.Transactions[1].ID != expense.ID || got.Transactions[1].Amount.Cents != 50000000 {
		t.Fatalf("update did not preserve position: %+v", got.Transactions)
	}

	if err := s.RemoveTransaction(ctx, a.ID, income.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	got, _ = s.FindAccount(a.ID)
	if len(got.Transactions) != 1 || got.Transactions[0].ID != expense.ID {
		t.Fatalf("unexpected transactions after remove: %+v", got.Transactions)
	}

	if err := s.RemoveTransaction(ctx, a.ID, income.ID); !errors.Is(err, core.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
	if _, err := s.UpdateTransaction(ctx, "missing", expense.ID, mustInput(t, "income", "1", "2024-01-01")); !errors.Is(err, core.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if !errors.Is(core.ErrTransactionNotFound, core.ErrNotFound) {
		t.Fatalf("transaction not found must match ErrNotFound")
	}
}

func TestAddTransactionValidatesInput(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemoryStore())
	a, _ := s.CreateAccount(ctx, "Corn", "Field 1")

	bad := core.TransactionInput{Type: "gift", Amount: core.Money{Cents: 1}, Date: core.NewDate(2024, 1, 1)}
	if _, err := s.AddTransaction(ctx, a.ID, bad); !errors.Is(err, core.ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
	bad = core.TransactionInput{Type: core.Income, Amount: core.Money{Cents: -1}, Date: core.NewDate(2024, 1, 1)}
	if _, err := s.AddTransaction(ctx, a.ID, bad); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	bad = core.TransactionInput{Type: core.Income, Amount: core.Money{Cents: 1}}
	if _, err := s.AddTransaction(ctx, a.ID, bad); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestRemoveAccountCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemoryStore())
	rice, _ := s.CreateAccount(ctx, "Rice", "Village A")
	corn, _ := s.CreateAccount(ctx, "Corn", "Village B")
	_, _ = s.AddTransaction(ctx, rice.ID, mustInput(t, "income", "10", "2024-01-05"))
	_, _ = s.AddTransaction(ctx, corn.ID, mustInput(t, "income", "20", "2024-01-05"))

	if err := s.RemoveAccount(ctx, rice.ID); err != nil {
		t.Fatalf("remove account: %v", err)
	}
	txs := s.Transactions()
	if len(txs) != 1 || txs[0].Amount.Cents != 2000 {
		t.Fatalf("orphan transactions remain: %+v", txs)
	}
	if _, err := s.FindAccount(rice.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.RemoveAccount(ctx, rice.ID); !errors.Is(err, core.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestPersistenceAndReload(t *testing.T) {
	ctx := context.Background()
	blobs := storage.NewMemoryStore()
	s := newTestStore(t, blobs)
	a, _ := s.CreateAccount(ctx, "Rice", "Village A")
	tx, _ := s.AddTransaction(ctx, a.ID, mustInput(t, "income", "1000000", "2024-01-05"))

	reloaded := newTestStore(t, blobs)
	got, err := reloaded.FindAccount(a.ID)
	if err != nil {
		t.Fatalf("find after reload: %v", err)
	}
	if len(got.Transactions) != 1 || got.Transactions[0] != tx {
		t.Fatalf("reloaded transactions differ: %+v vs %+v", got.Transactions, tx)
	}
}

func TestFailedPersistenceLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	blobs := &failingBlobs{BlobStore: storage.NewMemoryStore()}
	s := newTestStore(t, blobs)
	a, _ := s.CreateAccount(ctx, "Rice", "Village A")
	tx, _ := s.AddTransaction(ctx, a.ID, mustInput(t, "income", "100", "2024-01-05"))

	blobs.fail = true

	if _, err := s.CreateAccount(ctx, "Corn", "Village B"); !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if _, err := s.AddTransaction(ctx, a.ID, mustInput(t, "expense", "5", "2024-01-06")); !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if _, err := s.UpdateTransaction(ctx, a.ID, tx.ID, mustInput(t, "expense", "5", "2024-01-06")); !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if err := s.RemoveAccount(ctx, a.ID); !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}

	list := s.ListAccounts()
	if len(list) != 1 || len(list[0].Transactions) != 1 || list[0].Transactions[0] != tx {
		t.Fatalf("state changed after failed writes: %+v", list)
	}
}

func TestLoadRejectsCorruptSnapshot(t *testing.T) {
	blobs := storage.NewMemoryStore()
	_ = blobs.Set(context.Background(), storage.DefaultKey, []byte(`{not json`))
	s := New(blobs, WithLogger(log.Discard()))
	if err := s.Load(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestListAccountsReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemoryStore())
	a, _ := s.CreateAccount(ctx, "Rice", "Village A")
	_, _ = s.AddTransaction(ctx, a.ID, mustInput(t, "income", "1", "2024-01-05"))

	list := s.ListAccounts()
	list[0].Transactions[0].Amount.Cents = 999
	list[0].CropName = "Changed"

	got, _ := s.FindAccount(a.ID)
	if got.CropName != "Rice" || got.Transactions[0].Amount.Cents != 100 {
		t.Fatalf("caller mutated store state: %+v", got)
	}
}

func TestNotifierReceivesChanges(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	var changes []Change
	n := NotifierFunc(func(_ context.Context, c Change) error {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, c)
		return errors.New("broker down")
	})
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	s := newTestStore(t, storage.NewMemoryStore(), WithNotifier(n), WithClock(func() time.Time { return at }))

	a, err := s.CreateAccount(ctx, "Rice", "Village A")
	if err != nil {
		t.Fatalf("notifier failure must not fail the mutation: %v", err)
	}
	tx, _ := s.AddTransaction(ctx, a.ID, mustInput(t, "income", "1", "2024-01-05"))
	_ = s.RemoveTransaction(ctx, a.ID, tx.ID)
	_ = s.RemoveAccount(ctx, a.ID)

	want := []Op{OpAccountCreated, OpTransactionAdded, OpTransactionRemoved, OpAccountRemoved}
	if len(changes) != len(want) {
		t.Fatalf("got %d changes, want %d", len(changes), len(want))
	}
	for i, op := range want {
		if changes[i].Op != op || changes[i].AccountID != a.ID || !changes[i].At.Equal(at) {
			t.Fatalf("change %d = %+v, want op %s", i, changes[i], op)
		}
	}
	if changes[1].TransactionID != tx.ID {
		t.Fatalf("missing transaction id in change: %+v", changes[1])
	}
}

func TestDefaultIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemoryStore(), WithLogger(log.Discard()))
	a, _ := s.CreateAccount(ctx, "Rice", "Village A")
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		tx, err := s.AddTransaction(ctx, a.ID, mustInput(t, "income", "1", "2024-01-05"))
		if err != nil {
			t.Fatal(err)
		}
		if seen[tx.ID] {
			t.Fatalf("duplicate id %s", tx.ID)
		}
		seen[tx.ID] = true
	}
}

func TestNotifierMayReadStore(t *testing.T) {
	ctx := context.Background()
	var s *Store
	var seen []int
	n := NotifierFunc(func(_ context.Context, c Change) error {
		seen = append(seen, len(s.ListAccounts()))
		if _, err := s.FindAccount(c.AccountID); err != nil && c.Op != OpAccountRemoved {
			return err
		}
		return nil
	})
	s = newTestStore(t, storage.NewMemoryStore(), WithNotifier(n))
	in := mustInput(t, "income", "1", "2024-01-05")

	done := make(chan error, 1)
	go func() {
		a, err := s.CreateAccount(ctx, "Rice", "Village A")
		if err != nil {
			done <- err
			return
		}
		if _, err := s.AddTransaction(ctx, a.ID, in); err != nil {
			done <- err
			return
		}
		done <- s.RemoveAccount(ctx, a.ID)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("mutation: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("mutation blocked while the notifier read the store")
	}
	if want := []int{1, 1, 0}; fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Fatalf("notifier saw account counts %v, want %v", seen, want)
	}
}

func TestLoadKeepsRowsWithUnreadableAmounts(t *testing.T) {
	ctx := context.Background()
	blobs := storage.NewMemoryStore()
	blob := `[{"id":"a","cropName":"Rice","location":"Village A","transactions":[
		{"id":"t1","type":"income","amount":null,"description":"","date":"2024-01-05"},
		{"id":"t2","type":"income","amount":"7.50","description":"","date":"2024-01-06"}]}]`
	if err := blobs.Set(ctx, storage.DefaultKey, []byte(blob)); err != nil {
		t.Fatal(err)
	}

	s := newTestStore(t, blobs)
	txs := s.Transactions()
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	if txs[0].Valid() || txs[0].Amount.Valid() {
		t.Fatalf("null amount should load as invalid: %+v", txs[0])
	}
	if !txs[1].Valid() || txs[1].Amount.Cents != 750 {
		t.Fatalf("readable row changed: %+v", txs[1])
	}

	// A later write keeps the unreadable amount as null.
	if _, err := s.AddTransaction(ctx, "a", mustInput(t, "expense", "1", "2024-01-07")); err != nil {
		t.Fatal(err)
	}
	reloaded := newTestStore(t, blobs)
	if got := reloaded.Transactions(); len(got) != 3 || got[0].Amount.Valid() {
		t.Fatalf("reloaded rows: %+v", got)
	}
}

func TestMutationsStoreSingleLineText(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemoryStore())

	a, err := s.CreateAccount(ctx, "Rice\tpaddy", "Village\nA")
	if err != nil {
		t.Fatal(err)
	}
	if a.CropName != "Rice paddy" || a.Location != "Village A" {
		t.Fatalf("account text not normalized: %+v", a)
	}

	in := mustInput(t, "income", "1", "2024-01-05")
	in.Description = "seed\tbatch\r\nline two"
	tx, err := s.AddTransaction(ctx, a.ID, in)
	if err != nil {
		t.Fatal(err)
	}
	if tx.Description != "seed batch line two" {
		t.Fatalf("description = %q", tx.Description)
	}
}

func TestSnapshotVersion(t *testing.T) {
	ctx := context.Background()

	mem := newTestStore(t, storage.NewMemoryStore())
	if _, ok, err := mem.SnapshotVersion(ctx); ok || err != nil {
		t.Fatalf("memory store should not report a version: ok=%v err=%v", ok, err)
	}

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer repo.Close()

	s := newTestStore(t, repo)
	if v, ok, err := s.SnapshotVersion(ctx); !ok || err != nil || v != 0 {
		t.Fatalf("empty snapshot: v=%d ok=%v err=%v", v, ok, err)
	}
	a, err := s.CreateAccount(ctx, "Rice", "Village A")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddTransaction(ctx, a.ID, mustInput(t, "income", "1", "2024-01-05")); err != nil {
		t.Fatal(err)
	}
	if v, _, err := s.SnapshotVersion(ctx); err != nil || v != 2 {
		t.Fatalf("version = %d, err=%v; want 2", v, err)
	}
}
