// Package gormrepo implements the core repositories on gorm.
// Every repository resolves its connection through database.Store.Conn, so calls made with a ctx
// handed out by Store.RunAtomic join that transaction.
package gormrepo

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/storage/database"
)

var timeNow = func() time.Time { return time.Now().UTC() }

// trapNotFound maps gorm's "record not found" to notFound, anything else to a storage failure.
func trapNotFound(err error, notFound error, op string) error {
	if database.IsNotFound(err) {
		return notFound
	}
	return core.NewStorageError(err, op)
}

func orderBy(q *gorm.DB, ordering []core.DBOrdering, allowed map[string]string, fallback string) *gorm.DB {
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if col, ok := allowed[ord.Field]; ok {
			ord.Field = col
			orderList = append(orderList, ord.String())
		}
	}
	if len(orderList) == 0 {
		return q.Order(fallback)
	}
	return q.Order(strings.Join(orderList, ", "))
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
