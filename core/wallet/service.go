package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/chuo/core"
)

var (
	// CashbackThreshold is the smallest fee payment earning a cashback.
	CashbackThreshold = decimal.NewFromInt(10000)
	CashbackRate      = decimal.RequireFromString("0.05")

	// errors
	ErrInvalidAmount       = core.NewError(core.KindInvalid, "amount must be greater than 0")
	ErrInsufficientBalance = core.NewError(core.KindConflict, "insufficient wallet balance")
	ErrOutOfStock          = core.NewError(core.KindConflict, "book is out of stock")
	ErrRewardRedeemed      = core.NewError(core.KindConflict, "reward already redeemed")
	ErrNotFound            = core.NewError(core.KindNotFound, "wallet not found")
	ErrStudentNotFound     = core.NewError(core.KindNotFound, "student not found")
	ErrBookNotFound        = core.NewError(core.KindNotFound, "book not found")
	ErrRewardNotFound      = core.NewError(core.KindNotFound, "reward not found")
)

// Operation names reported to the Observer.
const (
	OpGetOrCreate  = "get_or_create"
	OpCredit       = "credit"
	OpDebit        = "debit"
	OpPurchase     = "purchase"
	OpCashback     = "cashback"
	OpRedeemReward = "redeem_reward"
)

const (
	TopUpDescription        = "Added money to wallet via payment gateway"
	defaultTransactionLimit = 50
)

type (
	// Repository persists wallets and their ledger. Every method runs on the transaction carried by ctx, if any.
	// Getters return ErrNotFound, ErrBookNotFound or ErrRewardNotFound when nothing matches;
	// forUpdate locks the row until the transaction ends.
	Repository interface {
		StudentExists(ctx context.Context, studentID string) (bool, error)
		// EnsureWallet inserts a zero-balance wallet unless studentID already has one.
		EnsureWallet(ctx context.Context, studentID string) error
		GetWallet(ctx context.Context, studentID string, forUpdate bool) (Wallet, error)
		UpdateBalance(ctx context.Context, w Wallet) (Wallet, error)

		CreateTransaction(ctx context.Context, tx Transaction) (Transaction, error)
		QueryTransactions(ctx context.Context, studentID string, limit int) ([]Transaction, error)
		SumTransactions(ctx context.Context, studentID string, kind Kind) (decimal.Decimal, error)

		CreateReward(ctx context.Context, r Reward) (Reward, error)
		QueryRewards(ctx context.Context, studentID string, onlyUnredeemed bool) ([]Reward, error)
		GetReward(ctx context.Context, studentID string, id uint, forUpdate bool) (Reward, error)
		UpdateReward(ctx context.Context, r Reward) (Reward, error)

		GetItem(ctx context.Context, bookID uint, forUpdate bool) (Item, error)
		DecrementStock(ctx context.Context, bookID uint) error
		CreatePurchase(ctx context.Context, p Purchase) (Purchase, error)
	}

	// Observer is told the outcome of every wallet operation.
	Observer interface {
		Observe(op string, err error)
	}

	ObserverFunc func(op string, err error)

	Option func(*Service)

	// Service is the wallet ledger. For every student, the balance equals the sum of credit
	// transactions minus the sum of debit transactions, and never goes below 0.
	Service struct {
		repo    Repository
		tx      core.Transactor
		obs     Observer
		nowFunc func() time.Time
	}
)

func (f ObserverFunc) Observe(op string, err error) { f(op, err) }

func WithObserver(obs Observer) Option {
	return func(svc *Service) { svc.obs = obs }
}

func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.nowFunc = now }
}

func NewService(repo Repository, tx core.Transactor, opts ...Option) *Service {
	svc := &Service{
		repo:    repo,
		tx:      tx,
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (svc *Service) now() time.Time { return svc.nowFunc().UTC() }

func (svc *Service) observe(op string, err *error) {
	if svc.obs != nil {
		svc.obs.Observe(op, *err)
	}
}

// GetOrCreate returns the wallet of studentID, creating an empty one on first access.
func (svc *Service) GetOrCreate(ctx context.Context, studentID string) (w Wallet, err error) {
	defer svc.observe(OpGetOrCreate, &err)
	return svc.getOrCreate(ctx, studentID, false)
}

func (svc *Service) getOrCreate(ctx context.Context, studentID string, forUpdate bool) (Wallet, error) {
	w, err := svc.repo.GetWallet(ctx, studentID, forUpdate)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Wallet{}, err
	}

	found, err := svc.repo.StudentExists(ctx, studentID)
	if err != nil {
		return Wallet{}, err
	}
	if !found {
		return Wallet{}, ErrStudentNotFound
	}
	if err := svc.repo.EnsureWallet(ctx, studentID); err != nil {
		return Wallet{}, err
	}
	return svc.repo.GetWallet(ctx, studentID, forUpdate)
}

// Credit adds amount to the wallet of studentID and records it.
func (svc *Service) Credit(ctx context.Context, studentID string, amount decimal.Decimal, description string) (w Wallet, err error) {
	defer svc.observe(OpCredit, &err)
	err = svc.tx.RunAtomic(ctx, func(ctx context.Context) error {
		w, err = svc.credit(ctx, studentID, amount, description)
		return err
	})
	return w, err
}

// Debit takes amount out of the wallet of studentID and records it.
// Nothing is written when the balance does not cover amount.
func (svc *Service) Debit(ctx context.Context, studentID string, amount decimal.Decimal, description string) (w Wallet, err error) {
	defer svc.observe(OpDebit, &err)
	err = svc.tx.RunAtomic(ctx, func(ctx context.Context) error {
		w, err = svc.debit(ctx, studentID, amount, description)
		return err
	})
	return w, err
}

// credit and debit expect ctx to carry a transaction.
func (svc *Service) credit(ctx context.Context, studentID string, amount decimal.Decimal, description string) (Wallet, error) {
	return svc.apply(ctx, studentID, KindCredit, amount, description)
}

func (svc *Service) debit(ctx context.Context, studentID string, amount decimal.Decimal, description string) (Wallet, error) {
	return svc.apply(ctx, studentID, KindDebit, amount, description)
}

func (svc *Service) apply(ctx context.Context, studentID string, kind Kind, amount decimal.Decimal, description string) (Wallet, error) {
	amount = core.Money(amount)
	if !amount.IsPositive() {
		return Wallet{}, ErrInvalidAmount
	}

	w, err := svc.getOrCreate(ctx, studentID, true /* forUpdate */)
	if err != nil {
		return Wallet{}, err
	}

	switch kind {
	case KindCredit:
		w.Balance = w.Balance.Add(amount)
	case KindDebit:
		if w.Balance.LessThan(amount) {
			return Wallet{}, ErrInsufficientBalance
		}
		w.Balance = w.Balance.Sub(amount)
	}

	now := svc.now()
	w.UpdatedAt = now
	if w, err = svc.repo.UpdateBalance(ctx, w); err != nil {
		return Wallet{}, err
	}
	_, err = svc.repo.CreateTransaction(ctx, Transaction{
		StudentID:   studentID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
		CreatedAt:   now,
	})
	if err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// Purchase buys one copy of a library book with the wallet of studentID.
// The debit, the stock decrement and the purchase row are written together or not at all.
func (svc *Service) Purchase(ctx context.Context, studentID string, bookID uint) (w Wallet, p Purchase, err error) {
	defer svc.observe(OpPurchase, &err)
	err = svc.tx.RunAtomic(ctx, func(ctx context.Context) error {
		item, err := svc.repo.GetItem(ctx, bookID, true /* forUpdate */)
		if err != nil {
			return err
		}
		if item.Stock <= 0 {
			return ErrOutOfStock
		}

		if w, err = svc.debit(ctx, studentID, item.Price, "purchase: "+item.Title); err != nil {
			return err
		}
		if err = svc.repo.DecrementStock(ctx, bookID); err != nil {
			return err
		}
		p, err = svc.repo.CreatePurchase(ctx, Purchase{
			StudentID:   studentID,
			BookID:      bookID,
			Amount:      core.Money(item.Price),
			PurchasedAt: svc.now(),
		})
		return err
	})
	if err != nil {
		return Wallet{}, Purchase{}, err
	}
	return w, p, nil
}

// Cashback returns the reward earned by a fee payment of paid: 5% from CashbackThreshold up, 0 below.
func Cashback(paid decimal.Decimal) decimal.Decimal {
	if paid.LessThan(CashbackThreshold) {
		return decimal.Zero
	}
	return core.Money(paid.Mul(CashbackRate))
}

// AwardCashback rewards a fee payment of paid with a wallet credit and returns the amount awarded.
// Payments below CashbackThreshold earn nothing and write nothing.
func (svc *Service) AwardCashback(ctx context.Context, studentID string, paid decimal.Decimal) (awarded decimal.Decimal, err error) {
	cashback := Cashback(paid)
	if cashback.IsZero() {
		return decimal.Zero, nil
	}

	defer svc.observe(OpCashback, &err)
	paidStr := core.Money(paid).StringFixed(2)
	err = svc.tx.RunAtomic(ctx, func(ctx context.Context) error {
		_, err := svc.repo.CreateReward(ctx, Reward{
			StudentID: studentID,
			Amount:    cashback,
			Reason:    fmt.Sprintf("Cashback for timely fee payment of %s", paidStr),
			CreatedAt: svc.now(),
		})
		if err != nil {
			return err
		}
		_, err = svc.credit(ctx, studentID, cashback, "cashback: reward for fee payment of "+paidStr)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return cashback, nil
}

// Reconcile returns both sides of the ledger invariant for studentID:
// the sum of credits minus debits, and the stored balance.
func (svc *Service) Reconcile(ctx context.Context, studentID string) (ledger, balance decimal.Decimal, err error) {
	err = svc.tx.RunAtomic(ctx, func(ctx context.Context) error {
		w, err := svc.repo.GetWallet(ctx, studentID, false)
		if err != nil {
			return err
		}
		credits, err := svc.repo.SumTransactions(ctx, studentID, KindCredit)
		if err != nil {
			return err
		}
		debits, err := svc.repo.SumTransactions(ctx, studentID, KindDebit)
		if err != nil {
			return err
		}
		ledger = credits.Sub(debits)
		balance = w.Balance
		return nil
	})
	return ledger, balance, err
}

// Transactions returns the latest transactions of studentID, newest first.
func (svc *Service) Transactions(ctx context.Context, studentID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	return svc.repo.QueryTransactions(ctx, studentID, limit)
}

// Rewards returns the rewards of studentID, newest first.
func (svc *Service) Rewards(ctx context.Context, studentID string, onlyUnredeemed bool) ([]Reward, error) {
	return svc.repo.QueryRewards(ctx, studentID, onlyUnredeemed)
}

// RedeemReward marks a reward of studentID as redeemed. The balance is left untouched:
// cashback is credited when awarded.
func (svc *Service) RedeemReward(ctx context.Context, studentID string, rewardID uint) (r Reward, err error) {
	defer svc.observe(OpRedeemReward, &err)
	err = svc.tx.RunAtomic(ctx, func(ctx context.Context) error {
		if r, err = svc.repo.GetReward(ctx, studentID, rewardID, true /* forUpdate */); err != nil {
			return err
		}
		if r.IsRedeemed {
			return ErrRewardRedeemed
		}
		r.IsRedeemed = true
		r, err = svc.repo.UpdateReward(ctx, r)
		return err
	})
	if err != nil {
		return Reward{}, err
	}
	return r, nil
}
