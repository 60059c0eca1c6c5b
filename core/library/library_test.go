package library_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chuo/core/library"
	"github.com/trezcool/chuo/storage/database/gormrepo"
	"github.com/trezcool/chuo/testutil"
)

func TestService(t *testing.T) {
	_, store := testutil.PrepareDB(t)
	ctx := context.Background()
	svc := library.NewService(gormrepo.NewLibraryRepository(store))

	n, err := svc.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	n, err = svc.Seed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = svc.Create(ctx, library.NewBook{
		Title: "Duplicate", Author: "Someone", ISBN: "978-0123456789", Price: decimal.NewFromInt(10),
	})
	assert.True(t, errors.Is(err, library.ErrISBNExists), "got %v", err)

	sold, err := svc.Create(ctx, library.NewBook{
		Title: "Algebra", Author: "Al-Khwarizmi", ISBN: "978-0000000001", Price: decimal.RequireFromString("12.345"),
	})
	require.NoError(t, err)
	assert.Equal(t, "12.35", sold.Price.String())

	_, err = svc.Create(ctx, library.NewBook{Title: "Free", Author: "Nobody", ISBN: "978-0000000002"})
	assert.True(t, errors.Is(err, library.ErrInvalidPrice))

	all, err := svc.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, "Algebra", all[0].Title)

	available, err := svc.Available(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 5)
	for _, b := range available {
		assert.Positive(t, b.Stock)
	}

	got, err := svc.Get(ctx, sold.ID)
	require.NoError(t, err)
	assert.Equal(t, "Al-Khwarizmi", got.Author)

	_, err = svc.Get(ctx, sold.ID+100)
	assert.True(t, errors.Is(err, library.ErrNotFound))
}
