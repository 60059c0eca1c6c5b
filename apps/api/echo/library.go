package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core/library"
)

type libraryApi struct {
	ServerDeps
}

func (s *Server) registerLibraryAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	api := libraryApi{ServerDeps: s.deps}

	lg := g.Group("/library/books", jwt)
	lg.GET("", api.query)
	lg.POST("", api.create, adminMiddleware())
	lg.GET("/:id", api.retrieve)
	lg.POST("/:id/purchase", api.purchase, studentMiddleware(api.StudentSvc))
}

// query lists the books in stock; admins may pass all=true to see the whole catalog.
func (api *libraryApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var books []library.Book
	if claims.IsAdmin && boolQuery(ctx, "all") {
		books, err = api.LibrarySvc.All(ctx.Request().Context())
	} else {
		books, err = api.LibrarySvc.Available(ctx.Request().Context())
	}
	if err != nil {
		return errors.Wrap(err, "querying books")
	}
	if books == nil {
		books = []library.Book{}
	}
	return ctx.JSON(http.StatusOK, books)
}

func (api *libraryApi) create(ctx echo.Context) error {
	var data library.NewBook
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBook")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	b, err := api.LibrarySvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating book")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *libraryApi) retrieve(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	b, err := api.LibrarySvc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting book")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *libraryApi) purchase(ctx echo.Context) error {
	p, err := getContextStudent(ctx, api.StudentSvc)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	w, purchase, err := api.WalletSvc.Purchase(ctx.Request().Context(), p.StudentID, id)
	if err != nil {
		return errors.Wrap(err, "purchasing book")
	}
	b, err := api.LibrarySvc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting book")
	}
	return ctx.JSON(http.StatusCreated, PurchaseResponse{Wallet: w, Purchase: purchase, Book: b})
}
