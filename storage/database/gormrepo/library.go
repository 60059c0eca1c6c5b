package gormrepo

import (
	"context"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/library"
	"github.com/trezcool/chuo/storage/database"
	"github.com/trezcool/chuo/storage/database/models"
)

type libraryRepository struct {
	store *database.Store
}

var _ library.Repository = (*libraryRepository)(nil) // interface compliance check

func NewLibraryRepository(store *database.Store) *libraryRepository {
	return &libraryRepository{store: store}
}

func toBook(b models.LibraryBook) library.Book {
	return library.Book{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		ISBN:        b.ISBN,
		Price:       core.Money(b.Price),
		Category:    b.Category,
		Stock:       b.Stock,
		Description: b.Description,
		CreatedAt:   b.CreatedAt,
	}
}

func (repo libraryRepository) CreateBook(ctx context.Context, b library.Book) (library.Book, error) {
	row := models.LibraryBook{
		Title:       b.Title,
		Author:      b.Author,
		ISBN:        b.ISBN,
		Price:       core.Money(b.Price),
		Category:    b.Category,
		Stock:       b.Stock,
		Description: b.Description,
		CreatedAt:   b.CreatedAt.UTC(),
	}
	if err := repo.store.Conn(ctx).Create(&row).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return library.Book{}, library.ErrISBNExists
		}
		return library.Book{}, core.NewStorageError(err, "inserting book")
	}
	return toBook(row), nil
}

func (repo libraryRepository) QueryBooks(ctx context.Context, onlyAvailable bool) ([]library.Book, error) {
	q := repo.store.Conn(ctx).Model(&models.LibraryBook{})
	if onlyAvailable {
		q = q.Where("stock > 0")
	}
	var rows []models.LibraryBook
	if err := q.Order("title").Find(&rows).Error; err != nil {
		return nil, core.NewStorageError(err, "querying books")
	}
	books := make([]library.Book, 0, len(rows))
	for _, b := range rows {
		books = append(books, toBook(b))
	}
	return books, nil
}

func (repo libraryRepository) GetBook(ctx context.Context, id uint) (library.Book, error) {
	var row models.LibraryBook
	if err := repo.store.Conn(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return library.Book{}, trapNotFound(err, library.ErrNotFound, "finding book")
	}
	return toBook(row), nil
}

func (repo libraryRepository) CountBooks(ctx context.Context) (int, error) {
	var cnt int64
	if err := repo.store.Conn(ctx).Model(&models.LibraryBook{}).Count(&cnt).Error; err != nil {
		return 0, core.NewStorageError(err, "counting books")
	}
	return int(cnt), nil
}
