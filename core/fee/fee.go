// Package fee records institutional fee payments, distinct from the wallet.
package fee

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/student"
)

const StatusPaid = "paid"

const defaultRecentLimit = 10

var (
	// errors
	ErrInvalidAmount = core.NewError(core.KindInvalid, "amount must be greater than 0")
	ErrReceiptTaken  = core.NewError(core.KindConflict, "receipt number already used")
)

type (
	Payment struct {
		ID            uint            `json:"id"`
		StudentID     string          `json:"student_id"`
		Amount        decimal.Decimal `json:"amount"`
		FeeType       string          `json:"fee_type"`
		ReceiptNumber string          `json:"receipt_number"`
		Status        string          `json:"status"`
		PaidAt        time.Time       `json:"paid_at"`
	}

	NewPayment struct {
		StudentID string          `json:"student_id" validate:"required"`
		Amount    decimal.Decimal `json:"amount" validate:"gt=0"`
		FeeType   string          `json:"fee_type" validate:"required,max=50"`
	}

	QueryFilter struct {
		StudentID string
		Limit     int
	}

	Repository interface {
		// CreatePayment returns ErrReceiptTaken when the receipt number is not free.
		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		// QueryPayments returns the latest payments first.
		QueryPayments(ctx context.Context, filter QueryFilter) ([]Payment, error)
	}

	Students interface {
		Exists(ctx context.Context, studentID string) error
		RefreshAcademics(ctx context.Context, studentID string) (student.Profile, error)
	}

	Rewarder interface {
		AwardCashback(ctx context.Context, studentID string, paid decimal.Decimal) (decimal.Decimal, error)
	}

	Service struct {
		repo     Repository
		tx       core.Transactor
		students Students
		rewards  Rewarder
		nowFunc  func() time.Time
	}
)

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.StudentID = core.CleanString(np.StudentID)
	np.FeeType = core.CleanString(np.FeeType, true /* lower */)
	return validate.Struct(np)
}

// NewReceiptNumber generates a receipt number of the form RCP{YYYYMMDDHHMMSS}-{8 hex}.
func NewReceiptNumber(now time.Time) string {
	return "RCP" + now.Format("20060102150405") + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func NewService(repo Repository, tx core.Transactor, students Students, rewards Rewarder) *Service {
	return &Service{repo: repo, tx: tx, students: students, rewards: rewards, nowFunc: time.Now}
}

// Pay records a fee payment, refreshes the student's academic figures and awards the wallet cashback,
// all in one atomic unit. It returns the cashback awarded.
func (svc *Service) Pay(ctx context.Context, np NewPayment) (Payment, decimal.Decimal, error) {
	amount := core.Money(np.Amount)
	if !amount.IsPositive() {
		return Payment{}, decimal.Zero, ErrInvalidAmount
	}

	var (
		p        Payment
		cashback decimal.Decimal
	)
	err := svc.tx.RunAtomic(ctx, func(ctx context.Context) error {
		if err := svc.students.Exists(ctx, np.StudentID); err != nil {
			return err
		}

		now := svc.nowFunc().UTC()
		var err error
		p, err = svc.repo.CreatePayment(ctx, Payment{
			StudentID:     np.StudentID,
			Amount:        amount,
			FeeType:       np.FeeType,
			ReceiptNumber: NewReceiptNumber(now),
			Status:        StatusPaid,
			PaidAt:        now,
		})
		if err != nil {
			return err
		}
		if _, err = svc.students.RefreshAcademics(ctx, np.StudentID); err != nil {
			return err
		}
		cashback, err = svc.rewards.AwardCashback(ctx, np.StudentID, amount)
		return err
	})
	if err != nil {
		return Payment{}, decimal.Zero, err
	}
	return p, cashback, nil
}

func (svc *Service) Payments(ctx context.Context, studentID string) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, QueryFilter{StudentID: studentID})
}

func (svc *Service) Recent(ctx context.Context, limit int) ([]Payment, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return svc.repo.QueryPayments(ctx, QueryFilter{Limit: limit})
}
