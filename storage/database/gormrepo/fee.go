package gormrepo

import (
	"context"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/fee"
	"github.com/trezcool/chuo/storage/database"
	"github.com/trezcool/chuo/storage/database/models"
)

type feeRepository struct {
	store *database.Store
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(store *database.Store) *feeRepository {
	return &feeRepository{store: store}
}

func toPayment(p models.FeePayment) fee.Payment {
	return fee.Payment{
		ID:            p.ID,
		StudentID:     p.StudentID,
		Amount:        core.Money(p.Amount),
		FeeType:       p.FeeType,
		ReceiptNumber: p.ReceiptNumber,
		Status:        p.Status,
		PaidAt:        p.PaidAt,
	}
}

func (repo feeRepository) CreatePayment(ctx context.Context, p fee.Payment) (fee.Payment, error) {
	row := models.FeePayment{
		StudentID:     p.StudentID,
		Amount:        core.Money(p.Amount),
		FeeType:       p.FeeType,
		ReceiptNumber: p.ReceiptNumber,
		Status:        p.Status,
		PaidAt:        p.PaidAt.UTC(),
	}
	if err := repo.store.Conn(ctx).Create(&row).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return fee.Payment{}, fee.ErrReceiptTaken
		}
		return fee.Payment{}, core.NewStorageError(err, "inserting fee payment")
	}
	return toPayment(row), nil
}

func (repo feeRepository) QueryPayments(ctx context.Context, filter fee.QueryFilter) ([]fee.Payment, error) {
	q := repo.store.Conn(ctx).Model(&models.FeePayment{})
	if filter.StudentID != "" {
		q = q.Where("student_id = ?", filter.StudentID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var rows []models.FeePayment
	if err := q.Order("paid_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, core.NewStorageError(err, "querying fee payments")
	}
	payments := make([]fee.Payment, 0, len(rows))
	for _, p := range rows {
		payments = append(payments, toPayment(p))
	}
	return payments, nil
}
