package gormrepo

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/wallet"
	"github.com/trezcool/chuo/storage/database"
	"github.com/trezcool/chuo/storage/database/models"
)

type walletRepository struct {
	store *database.Store
}

var _ wallet.Repository = (*walletRepository)(nil) // interface compliance check

func NewWalletRepository(store *database.Store) *walletRepository {
	return &walletRepository{store: store}
}

func toWallet(w models.Wallet) wallet.Wallet {
	return wallet.Wallet{
		ID:        w.ID,
		StudentID: w.StudentID,
		Balance:   core.Money(w.Balance),
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

func toTransaction(t models.WalletTransaction) wallet.Transaction {
	return wallet.Transaction{
		ID:          t.ID,
		StudentID:   t.StudentID,
		Amount:      core.Money(t.Amount),
		Kind:        wallet.Kind(t.Kind),
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
}

func toReward(r models.Reward) wallet.Reward {
	return wallet.Reward{
		ID:         r.ID,
		StudentID:  r.StudentID,
		Amount:     core.Money(r.Amount),
		Reason:     r.Reason,
		IsRedeemed: r.IsRedeemed,
		CreatedAt:  r.CreatedAt,
	}
}

func (repo walletRepository) StudentExists(ctx context.Context, studentID string) (bool, error) {
	var cnt int64
	err := repo.store.Conn(ctx).Model(&models.Student{}).Where("student_id = ?", studentID).Count(&cnt).Error
	if err != nil {
		return false, core.NewStorageError(err, "checking student")
	}
	return cnt > 0, nil
}

func (repo walletRepository) EnsureWallet(ctx context.Context, studentID string) error {
	now := timeNow()
	w := models.Wallet{StudentID: studentID, Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now}
	err := repo.store.Conn(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "student_id"}}, DoNothing: true}).
		Create(&w).Error
	return core.NewStorageError(err, "inserting wallet")
}

func (repo walletRepository) GetWallet(ctx context.Context, studentID string, forUpdate bool) (wallet.Wallet, error) {
	var w models.Wallet
	q := repo.store.ForUpdate(repo.store.Conn(ctx), forUpdate)
	if err := q.Where("student_id = ?", studentID).Take(&w).Error; err != nil {
		return wallet.Wallet{}, trapNotFound(err, wallet.ErrNotFound, "finding wallet")
	}
	return toWallet(w), nil
}

func (repo walletRepository) UpdateBalance(ctx context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	res := repo.store.Conn(ctx).Model(&models.Wallet{}).
		Where("id = ?", w.ID).
		Updates(map[string]interface{}{"balance": core.Money(w.Balance), "updated_at": w.UpdatedAt})
	if res.Error != nil {
		return wallet.Wallet{}, core.NewStorageError(res.Error, "updating wallet")
	}
	if res.RowsAffected == 0 {
		return wallet.Wallet{}, wallet.ErrNotFound
	}
	return w, nil
}

func (repo walletRepository) CreateTransaction(ctx context.Context, tx wallet.Transaction) (wallet.Transaction, error) {
	t := models.WalletTransaction{
		StudentID:   tx.StudentID,
		Amount:      core.Money(tx.Amount),
		Kind:        string(tx.Kind),
		Description: tx.Description,
		CreatedAt:   tx.CreatedAt,
	}
	if err := repo.store.Conn(ctx).Create(&t).Error; err != nil {
		return wallet.Transaction{}, core.NewStorageError(err, "inserting wallet transaction")
	}
	return toTransaction(t), nil
}

func (repo walletRepository) QueryTransactions(ctx context.Context, studentID string, limit int) ([]wallet.Transaction, error) {
	var rows []models.WalletTransaction
	err := repo.store.Conn(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, core.NewStorageError(err, "querying wallet transactions")
	}
	txs := make([]wallet.Transaction, 0, len(rows))
	for _, t := range rows {
		txs = append(txs, toTransaction(t))
	}
	return txs, nil
}

func (repo walletRepository) SumTransactions(ctx context.Context, studentID string, kind wallet.Kind) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := repo.store.Conn(ctx).Model(&models.WalletTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("student_id = ? AND kind = ?", studentID, string(kind)).
		Row().Scan(&sum)
	if err != nil {
		return decimal.Zero, core.NewStorageError(err, "summing wallet transactions")
	}
	return core.Money(sum), nil
}

func (repo walletRepository) CreateReward(ctx context.Context, r wallet.Reward) (wallet.Reward, error) {
	row := models.Reward{
		StudentID:  r.StudentID,
		Amount:     core.Money(r.Amount),
		Reason:     r.Reason,
		IsRedeemed: r.IsRedeemed,
		CreatedAt:  r.CreatedAt,
	}
	if err := repo.store.Conn(ctx).Create(&row).Error; err != nil {
		return wallet.Reward{}, core.NewStorageError(err, "inserting reward")
	}
	return toReward(row), nil
}

func (repo walletRepository) QueryRewards(ctx context.Context, studentID string, onlyUnredeemed bool) ([]wallet.Reward, error) {
	var rows []models.Reward
	q := repo.store.Conn(ctx).Where("student_id = ?", studentID)
	if onlyUnredeemed {
		q = q.Where("is_redeemed = ?", false)
	}
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, core.NewStorageError(err, "querying rewards")
	}
	rewards := make([]wallet.Reward, 0, len(rows))
	for _, r := range rows {
		rewards = append(rewards, toReward(r))
	}
	return rewards, nil
}

func (repo walletRepository) GetReward(ctx context.Context, studentID string, id uint, forUpdate bool) (wallet.Reward, error) {
	var r models.Reward
	q := repo.store.ForUpdate(repo.store.Conn(ctx), forUpdate)
	if err := q.Where("id = ? AND student_id = ?", id, studentID).Take(&r).Error; err != nil {
		return wallet.Reward{}, trapNotFound(err, wallet.ErrRewardNotFound, "finding reward")
	}
	return toReward(r), nil
}

func (repo walletRepository) UpdateReward(ctx context.Context, r wallet.Reward) (wallet.Reward, error) {
	err := repo.store.Conn(ctx).Model(&models.Reward{}).
		Where("id = ?", r.ID).
		Update("is_redeemed", r.IsRedeemed).Error
	if err != nil {
		return wallet.Reward{}, core.NewStorageError(err, "updating reward")
	}
	return r, nil
}

func (repo walletRepository) GetItem(ctx context.Context, bookID uint, forUpdate bool) (wallet.Item, error) {
	var b models.LibraryBook
	q := repo.store.ForUpdate(repo.store.Conn(ctx), forUpdate)
	if err := q.Where("id = ?", bookID).Take(&b).Error; err != nil {
		return wallet.Item{}, trapNotFound(err, wallet.ErrBookNotFound, "finding book")
	}
	return wallet.Item{ID: b.ID, Title: b.Title, Price: core.Money(b.Price), Stock: b.Stock}, nil
}

func (repo walletRepository) DecrementStock(ctx context.Context, bookID uint) error {
	res := repo.store.Conn(ctx).Model(&models.LibraryBook{}).
		Where("id = ? AND stock > 0", bookID).
		UpdateColumn("stock", gorm.Expr("stock - 1"))
	if res.Error != nil {
		return core.NewStorageError(res.Error, "decrementing book stock")
	}
	if res.RowsAffected == 0 {
		return wallet.ErrOutOfStock
	}
	return nil
}

func (repo walletRepository) CreatePurchase(ctx context.Context, p wallet.Purchase) (wallet.Purchase, error) {
	row := models.LibraryPurchase{
		StudentID:   p.StudentID,
		BookID:      p.BookID,
		Amount:      core.Money(p.Amount),
		PurchasedAt: p.PurchasedAt,
	}
	if err := repo.store.Conn(ctx).Create(&row).Error; err != nil {
		return wallet.Purchase{}, core.NewStorageError(err, "inserting purchase")
	}
	p.ID = row.ID
	return p, nil
}
