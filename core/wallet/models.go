package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the direction of a Transaction; amounts are always positive.
type Kind string

const (
	KindCredit Kind = "credit"
	KindDebit  Kind = "debit"
)

type Wallet struct {
	ID        uint            `json:"id"`
	StudentID string          `json:"student_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Transaction struct {
	ID          uint            `json:"id"`
	StudentID   string          `json:"student_id"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        Kind            `json:"kind"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Reward struct {
	ID         uint            `json:"id"`
	StudentID  string          `json:"student_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	IsRedeemed bool            `json:"is_redeemed"`
	CreatedAt  time.Time       `json:"created_at"`
}

type Purchase struct {
	ID          uint            `json:"id"`
	StudentID   string          `json:"student_id"`
	BookID      uint            `json:"book_id"`
	Amount      decimal.Decimal `json:"amount"`
	PurchasedAt time.Time       `json:"purchased_at"`
}

// Item is the part of a library book a purchase needs.
type Item struct {
	ID    uint
	Title string
	Price decimal.Decimal
	Stock int
}
