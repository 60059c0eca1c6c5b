package wallet_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chuo/core/library"
	"github.com/trezcool/chuo/core/wallet"
	"github.com/trezcool/chuo/storage/database"
	"github.com/trezcool/chuo/storage/database/gormrepo"
	"github.com/trezcool/chuo/testutil"
)

type env struct {
	store   *database.Store
	svc     *wallet.Service
	library *library.Service
	sid     string
	ops     map[string]int
	opsMu   sync.Mutex
}

func setup(t *testing.T) *env {
	t.Helper()
	_, store := testutil.PrepareDB(t)
	e := &env{store: store, ops: map[string]int{}}
	e.svc = wallet.NewService(gormrepo.NewWalletRepository(store), store, wallet.WithObserver(wallet.ObserverFunc(func(op string, err error) {
		e.opsMu.Lock()
		defer e.opsMu.Unlock()
		e.ops[op]++
	})))
	e.library = library.NewService(gormrepo.NewLibraryRepository(store))
	e.sid = testutil.CreateStudent(t, store, "Asha Rao", "Computer Science").StudentID
	return e
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertBalance(t *testing.T, e *env, want string) {
	t.Helper()
	ledger, balance, err := e.svc.Reconcile(context.Background(), e.sid)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec(want)), "balance: want %s, got %s", want, balance)
	assert.True(t, ledger.Equal(balance), "ledger %s != balance %s", ledger, balance)
}

func TestService_GetOrCreate(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	w1, err := e.svc.GetOrCreate(ctx, e.sid)
	require.NoError(t, err)
	assert.True(t, w1.Balance.IsZero())

	w2, err := e.svc.GetOrCreate(ctx, e.sid)
	require.NoError(t, err)
	assert.Equal(t, w1.ID, w2.ID)

	_, err = e.svc.GetOrCreate(ctx, "STU000")
	assert.True(t, errors.Is(err, wallet.ErrStudentNotFound))
	assert.Equal(t, 3, e.ops[wallet.OpGetOrCreate])
}

func TestService_CreditDebit(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	w, err := e.svc.Credit(ctx, e.sid, dec("150.50"), wallet.TopUpDescription)
	require.NoError(t, err)
	assert.Equal(t, "150.5", w.Balance.String())

	w, err = e.svc.Debit(ctx, e.sid, dec("50.25"), "canteen")
	require.NoError(t, err)
	assert.Equal(t, "100.25", w.Balance.String())
	assertBalance(t, e, "100.25")

	txs, err := e.svc.Transactions(ctx, e.sid, 0)
	require.NoError(t, err)
	if assert.Len(t, txs, 2) {
		assert.Equal(t, wallet.KindDebit, txs[0].Kind)
		assert.Equal(t, "canteen", txs[0].Description)
		assert.Equal(t, wallet.KindCredit, txs[1].Kind)
	}
}

func TestService_RejectedOperations(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	_, err := e.svc.Credit(ctx, e.sid, dec("100"), wallet.TopUpDescription)
	require.NoError(t, err)

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{
			name:    "zero credit",
			run:     func() error { _, err := e.svc.Credit(ctx, e.sid, decimal.Zero, "x"); return err },
			wantErr: wallet.ErrInvalidAmount,
		},
		{
			name:    "negative debit",
			run:     func() error { _, err := e.svc.Debit(ctx, e.sid, dec("-5"), "x"); return err },
			wantErr: wallet.ErrInvalidAmount,
		},
		{
			name:    "amount rounding to zero",
			run:     func() error { _, err := e.svc.Credit(ctx, e.sid, dec("0.004"), "x"); return err },
			wantErr: wallet.ErrInvalidAmount,
		},
		{
			name:    "debit over balance",
			run:     func() error { _, err := e.svc.Debit(ctx, e.sid, dec("100.01"), "x"); return err },
			wantErr: wallet.ErrInsufficientBalance,
		},
		{
			name:    "unknown student",
			run:     func() error { _, err := e.svc.Credit(ctx, "STU000", dec("1"), "x"); return err },
			wantErr: wallet.ErrStudentNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			assert.True(t, errors.Is(err, tt.wantErr), "want %v, got %v", tt.wantErr, err)
		})
	}

	// nothing was written
	assertBalance(t, e, "100")
	txs, err := e.svc.Transactions(ctx, e.sid, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestService_DebitWholeBalance(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	_, err := e.svc.Credit(ctx, e.sid, dec("40"), wallet.TopUpDescription)
	require.NoError(t, err)

	w, err := e.svc.Debit(ctx, e.sid, dec("40"), "all of it")
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
	assertBalance(t, e, "0")
}

func TestService_RollbackWithEnclosingUnit(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	_, err := e.svc.Credit(ctx, e.sid, dec("10"), wallet.TopUpDescription)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = e.store.RunAtomic(ctx, func(ctx context.Context) error {
		if _, err := e.svc.Credit(ctx, e.sid, dec("90"), "rolled back"); err != nil {
			return err
		}
		return boom
	})
	assert.Equal(t, boom, err)
	assertBalance(t, e, "10")
}

func TestService_ConcurrentDebits(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	_, err := e.svc.Credit(ctx, e.sid, dec("100"), wallet.TopUpDescription)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.Debit(ctx, e.sid, dec("20"), "concurrent")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, wallet.ErrInsufficientBalance):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 5, rejected)
	assertBalance(t, e, "0")
}

func TestService_Purchase(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	book, err := e.library.Create(ctx, library.NewBook{
		Title:  "Database Design Principles",
		Author: "Database Expert",
		ISBN:   "978-0123456793",
		Price:  dec("349"),
		Stock:  1,
	})
	require.NoError(t, err)

	t.Run("insufficient balance", func(t *testing.T) {
		_, _, err := e.svc.Purchase(ctx, e.sid, book.ID)
		assert.True(t, errors.Is(err, wallet.ErrInsufficientBalance))
		b, err := e.library.Get(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, b.Stock)
	})

	_, err = e.svc.Credit(ctx, e.sid, dec("1000"), wallet.TopUpDescription)
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		w, p, err := e.svc.Purchase(ctx, e.sid, book.ID)
		require.NoError(t, err)
		assert.Equal(t, "651", w.Balance.String())
		assert.Equal(t, book.ID, p.BookID)
		assert.Equal(t, "349", p.Amount.String())

		b, err := e.library.Get(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, b.Stock)

		txs, err := e.svc.Transactions(ctx, e.sid, 1)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, "purchase: Database Design Principles", txs[0].Description)
	})

	t.Run("out of stock", func(t *testing.T) {
		_, _, err := e.svc.Purchase(ctx, e.sid, book.ID)
		assert.True(t, errors.Is(err, wallet.ErrOutOfStock))
		assertBalance(t, e, "651")
	})

	t.Run("unknown book", func(t *testing.T) {
		_, _, err := e.svc.Purchase(ctx, e.sid, book.ID+100)
		assert.True(t, errors.Is(err, wallet.ErrBookNotFound))
	})
}

func TestCashback(t *testing.T) {
	tests := []struct {
		paid string
		want string
	}{
		{"0", "0"},
		{"9999.99", "0"},
		{"10000", "500"},
		{"12345.67", "617.28"},
	}
	for _, tt := range tests {
		t.Run(tt.paid, func(t *testing.T) {
			assert.Equal(t, tt.want, wallet.Cashback(dec(tt.paid)).String())
		})
	}
}

func TestService_AwardCashback(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	awarded, err := e.svc.AwardCashback(ctx, e.sid, dec("9999"))
	require.NoError(t, err)
	assert.True(t, awarded.IsZero())
	rewards, err := e.svc.Rewards(ctx, e.sid, false)
	require.NoError(t, err)
	assert.Empty(t, rewards)
	assert.Zero(t, e.ops[wallet.OpCashback])

	awarded, err = e.svc.AwardCashback(ctx, e.sid, dec("10000"))
	require.NoError(t, err)
	assert.Equal(t, "500", awarded.String())
	assertBalance(t, e, "500")

	rewards, err = e.svc.Rewards(ctx, e.sid, true)
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	assert.Equal(t, "Cashback for timely fee payment of 10000.00", rewards[0].Reason)

	txs, err := e.svc.Transactions(ctx, e.sid, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "cashback: reward for fee payment of 10000.00", txs[0].Description)

	t.Run("redeem", func(t *testing.T) {
		r, err := e.svc.RedeemReward(ctx, e.sid, rewards[0].ID)
		require.NoError(t, err)
		assert.True(t, r.IsRedeemed)
		assertBalance(t, e, "500")

		_, err = e.svc.RedeemReward(ctx, e.sid, rewards[0].ID)
		assert.True(t, errors.Is(err, wallet.ErrRewardRedeemed))

		unredeemed, err := e.svc.Rewards(ctx, e.sid, true)
		require.NoError(t, err)
		assert.Empty(t, unredeemed)
	})

	t.Run("redeem someone else's reward", func(t *testing.T) {
		other := testutil.CreateStudent(t, e.store, "Ravi Kumar", "Physics")
		_, err := e.svc.RedeemReward(ctx, other.StudentID, rewards[0].ID)
		assert.True(t, errors.Is(err, wallet.ErrRewardNotFound))
	})
}
