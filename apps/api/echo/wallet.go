package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/chuo/core/library"
	"github.com/trezcool/chuo/core/wallet"
)

type walletApi struct {
	ServerDeps
}

func (s *Server) registerWalletAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	api := walletApi{ServerDeps: s.deps}

	wg := g.Group("/wallet", jwt, studentMiddleware(api.StudentSvc))
	wg.GET("", api.retrieve)
	wg.POST("/topup", api.topUp)
	wg.GET("/transactions", api.transactions)
	wg.GET("/rewards", api.rewards)
	wg.POST("/rewards/:id/redeem", api.redeem)
}

type (
	TopUpRequest struct {
		Amount decimal.Decimal `json:"amount"`
	}

	PurchaseResponse struct {
		Wallet   wallet.Wallet   `json:"wallet"`
		Purchase wallet.Purchase `json:"purchase"`
		Book     library.Book    `json:"book"`
	}
)

func (api *walletApi) retrieve(ctx echo.Context) error {
	p, err := getContextStudent(ctx, api.StudentSvc)
	if err != nil {
		return err
	}
	w, err := api.WalletSvc.GetOrCreate(ctx.Request().Context(), p.StudentID)
	if err != nil {
		return errors.Wrap(err, "getting wallet")
	}
	return ctx.JSON(http.StatusOK, w)
}

func (api *walletApi) topUp(ctx echo.Context) error {
	p, err := getContextStudent(ctx, api.StudentSvc)
	if err != nil {
		return err
	}
	var data TopUpRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TopUpRequest")
	}

	w, err := api.WalletSvc.Credit(ctx.Request().Context(), p.StudentID, data.Amount, wallet.TopUpDescription)
	if err != nil {
		return errors.Wrap(err, "topping up wallet")
	}
	return ctx.JSON(http.StatusOK, w)
}

func (api *walletApi) transactions(ctx echo.Context) error {
	p, err := getContextStudent(ctx, api.StudentSvc)
	if err != nil {
		return err
	}
	txs, err := api.WalletSvc.Transactions(ctx.Request().Context(), p.StudentID, intQuery(ctx, "limit", 0))
	if err != nil {
		return errors.Wrap(err, "querying wallet transactions")
	}
	if txs == nil {
		txs = []wallet.Transaction{}
	}
	return ctx.JSON(http.StatusOK, txs)
}

func (api *walletApi) rewards(ctx echo.Context) error {
	p, err := getContextStudent(ctx, api.StudentSvc)
	if err != nil {
		return err
	}
	rewards, err := api.WalletSvc.Rewards(ctx.Request().Context(), p.StudentID, boolQuery(ctx, "unredeemed"))
	if err != nil {
		return errors.Wrap(err, "querying rewards")
	}
	if rewards == nil {
		rewards = []wallet.Reward{}
	}
	return ctx.JSON(http.StatusOK, rewards)
}

func (api *walletApi) redeem(ctx echo.Context) error {
	p, err := getContextStudent(ctx, api.StudentSvc)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	r, err := api.WalletSvc.RedeemReward(ctx.Request().Context(), p.StudentID, id)
	if err != nil {
		return errors.Wrap(err, "redeeming reward")
	}
	return ctx.JSON(http.StatusOK, r)
}
