// Package library is the digital library storefront catalog. Purchases are a wallet operation.
package library

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/chuo/core"
)

var (
	// errors
	ErrNotFound     = core.NewError(core.KindNotFound, "book not found")
	ErrISBNExists   = core.NewError(core.KindConflict, "a book with this ISBN already exists")
	ErrInvalidPrice = core.NewError(core.KindInvalid, "price must be greater than 0")
)

type (
	Book struct {
		ID          uint            `json:"id"`
		Title       string          `json:"title"`
		Author      string          `json:"author"`
		ISBN        string          `json:"isbn"`
		Price       decimal.Decimal `json:"price"`
		Category    string          `json:"category"`
		Stock       int             `json:"stock"`
		Description string          `json:"description"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	NewBook struct {
		Title       string          `json:"title" validate:"required,max=200"`
		Author      string          `json:"author" validate:"required,max=150"`
		ISBN        string          `json:"isbn" validate:"required,max=20"`
		Price       decimal.Decimal `json:"price" validate:"gt=0"`
		Category    string          `json:"category" validate:"omitempty,max=50"`
		Stock       int             `json:"stock" validate:"gte=0"`
		Description string          `json:"description"`
	}

	Repository interface {
		// CreateBook returns ErrISBNExists when the ISBN is taken.
		CreateBook(ctx context.Context, b Book) (Book, error)
		QueryBooks(ctx context.Context, onlyAvailable bool) ([]Book, error)
		GetBook(ctx context.Context, id uint) (Book, error)
		CountBooks(ctx context.Context) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func (nb *NewBook) Validate(validate *validator.Validate) error {
	nb.Title = core.CleanString(nb.Title)
	nb.Author = core.CleanString(nb.Author)
	nb.ISBN = core.CleanString(nb.ISBN)
	nb.Category = core.CleanString(nb.Category)
	nb.Description = core.CleanString(nb.Description)
	return validate.Struct(nb)
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nb NewBook) (Book, error) {
	if !core.Money(nb.Price).IsPositive() {
		return Book{}, ErrInvalidPrice
	}
	return svc.repo.CreateBook(ctx, Book{
		Title:       nb.Title,
		Author:      nb.Author,
		ISBN:        nb.ISBN,
		Price:       core.Money(nb.Price),
		Category:    nb.Category,
		Stock:       nb.Stock,
		Description: nb.Description,
		CreatedAt:   time.Now().UTC(),
	})
}

// Available lists the books in stock.
func (svc *Service) Available(ctx context.Context) ([]Book, error) {
	return svc.repo.QueryBooks(ctx, true)
}

func (svc *Service) All(ctx context.Context) ([]Book, error) {
	return svc.repo.QueryBooks(ctx, false)
}

func (svc *Service) Get(ctx context.Context, id uint) (Book, error) {
	return svc.repo.GetBook(ctx, id)
}

// Seed adds the starter catalog to an empty library and returns the number of books added.
func (svc *Service) Seed(ctx context.Context) (int, error) {
	cnt, err := svc.repo.CountBooks(ctx)
	if err != nil || cnt > 0 {
		return 0, err
	}
	for _, nb := range starterCatalog {
		if _, err := svc.Create(ctx, nb); err != nil {
			return 0, err
		}
	}
	return len(starterCatalog), nil
}

var starterCatalog = []NewBook{
	{
		Title:       "Introduction to Computer Science",
		Author:      "Dr. John Smith",
		ISBN:        "978-0123456789",
		Price:       decimal.NewFromInt(299),
		Category:    "Technology",
		Stock:       50,
		Description: "Comprehensive guide to computer science fundamentals",
	},
	{
		Title:       "Data Structures and Algorithms",
		Author:      "Prof. Jane Doe",
		ISBN:        "978-0123456790",
		Price:       decimal.NewFromInt(399),
		Category:    "Technology",
		Stock:       30,
		Description: "Advanced algorithms and data structures",
	},
	{
		Title:       "Machine Learning Fundamentals",
		Author:      "Dr. AI Researcher",
		ISBN:        "978-0123456791",
		Price:       decimal.NewFromInt(499),
		Category:    "Technology",
		Stock:       25,
		Description: "Introduction to machine learning concepts",
	},
	{
		Title:       "Web Development Guide",
		Author:      "Full Stack Developer",
		ISBN:        "978-0123456792",
		Price:       decimal.NewFromInt(199),
		Category:    "Technology",
		Stock:       40,
		Description: "Complete guide to modern web development",
	},
	{
		Title:       "Database Design Principles",
		Author:      "Database Expert",
		ISBN:        "978-0123456793",
		Price:       decimal.NewFromInt(349),
		Category:    "Technology",
		Stock:       20,
		Description: "Database design and optimization techniques",
	},
}
