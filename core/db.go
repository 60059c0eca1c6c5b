package core

import "context"

// Transactor runs fn as one atomic unit: every repository call made with the ctx handed to fn
// joins the same transaction, which is rolled back when fn returns an error.
// Nested calls join the outer unit.
type Transactor interface {
	RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
