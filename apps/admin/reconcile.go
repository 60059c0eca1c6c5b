package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// errUnbalanced is returned when a wallet balance differs from the sum of its transactions.
type errUnbalanced struct {
	studentID       string
	ledger, balance decimal.Decimal
}

func (e errUnbalanced) Error() string {
	return fmt.Sprintf("wallet of %s is unbalanced: ledger %s, balance %s", e.studentID, e.ledger, e.balance)
}

func (cli *commandLine) reconcile(studentID string) error {
	ledger, balance, err := cli.svcs.Wallet.Reconcile(context.Background(), studentID)
	if err != nil {
		return err
	}
	if !ledger.Equal(balance) {
		return errUnbalanced{studentID: studentID, ledger: ledger, balance: balance}
	}
	cli.printf("wallet of %s is balanced: %s\n", studentID, balance.StringFixed(2))
	return nil
}
