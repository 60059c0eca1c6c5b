package database

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trezcool/chuo/core"
)

type txKey struct{}

// Store hands repositories the connection to run on: the transaction carried by ctx, if any.
type Store struct {
	db      *gorm.DB
	dialect string
}

var _ core.Transactor = (*Store)(nil)

func NewStore(db *DB) *Store {
	return &Store{db: db.Gorm, dialect: db.Dialect}
}

func (s *Store) Dialect() string { return s.dialect }

// RunAtomic runs fn in a transaction. A ctx already carrying one gets a savepoint instead.
func (s *Store) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.Conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Conn returns the transaction bound to ctx, or the pool.
func (s *Store) Conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// InTx reports whether ctx carries a transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}

// ForUpdate makes q lock the selected rows until the transaction ends.
// SQLite has no row locks: it serializes writers itself.
func (s *Store) ForUpdate(q *gorm.DB, lock bool) *gorm.DB {
	if !lock || s.dialect != DialectPostgres {
		return q
	}
	return q.Clauses(clause.Locking{Strength: "UPDATE"})
}
