package echoapi_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chuo/core/wallet"
)

type walletResp struct {
	StudentID string  `json:"student_id"`
	Balance   float64 `json:"balance"`
}

func Test_walletApi(t *testing.T) {
	e := setup(t)

	tests := []httpTest{
		{
			name: "students only", path: "/v1/wallet", token: e.adminToken, wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "no student profile linked to this account"}),
		},
		{name: "created on first use", path: "/v1/wallet", token: e.studentToken, wantCode: http.StatusOK},
		{
			name: "negative top-up", method: http.MethodPost, path: "/v1/wallet/topup", token: e.studentToken,
			body: []byte(`{"amount": -5}`), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "amount must be greater than 0"}),
		},
		{
			name: "top-up", method: http.MethodPost, path: "/v1/wallet/topup", token: e.studentToken,
			body: []byte(`{"amount": 500}`), wantCode: http.StatusOK,
		},
	}
	runHTTPTests(t, e, tests)

	rec := e.do(http.MethodGet, "/v1/wallet", e.studentToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var w walletResp
	decode(t, rec, &w)
	assert.Equal(t, e.student.StudentID, w.StudentID)
	assert.Equal(t, float64(500), w.Balance)

	rec = e.do(http.MethodGet, "/v1/wallet/transactions", e.studentToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var txs []wallet.Transaction
	decode(t, rec, &txs)
	require.Len(t, txs, 1)
	assert.Equal(t, wallet.KindCredit, txs[0].Kind)
	assert.Equal(t, wallet.TopUpDescription, txs[0].Description)
}

func Test_libraryApi_purchase(t *testing.T) {
	e := setup(t)
	ctx := ctxBg()
	_, err := e.svcs.Library.Seed(ctx)
	require.NoError(t, err)
	books, err := e.svcs.Library.All(ctx)
	require.NoError(t, err)
	book := books[0]

	_, err = e.svcs.Wallet.Credit(ctx, e.student.StudentID, book.Price, wallet.TopUpDescription)
	require.NoError(t, err)

	purchasePath := fmt.Sprintf("/v1/library/books/%d/purchase", book.ID)
	tests := []httpTest{
		{name: "catalog", path: "/v1/library/books", token: e.studentToken, wantCode: http.StatusOK},
		{
			name: "admins add books", method: http.MethodPost, path: "/v1/library/books", token: e.studentToken,
			body: []byte(`{"title": "Optics", "author": "Newton", "isbn": "978-1111111111", "price": 10}`), wantCode: http.StatusForbidden,
		},
		{
			name: "duplicate isbn", method: http.MethodPost, path: "/v1/library/books", token: e.adminToken,
			body:     []byte(fmt.Sprintf(`{"title": "Copy", "author": "Someone", "isbn": %q, "price": 10, "stock": 1}`, book.ISBN)),
			wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: "a book with this ISBN already exists"}),
		},
		{
			name: "unknown book", method: http.MethodPost, path: "/v1/library/books/999/purchase", token: e.studentToken,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "book not found"}),
		},
		{name: "purchase", method: http.MethodPost, path: purchasePath, token: e.studentToken, wantCode: http.StatusCreated},
		{
			name: "wallet drained", method: http.MethodPost, path: purchasePath, token: e.studentToken,
			wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: "insufficient wallet balance"}),
		},
	}
	runHTTPTests(t, e, tests)

	ledger, balance, err := e.svcs.Wallet.Reconcile(ctx, e.student.StudentID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), "balance %s", balance)
	assert.True(t, ledger.Equal(balance))

	got, err := e.svcs.Library.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.Stock-1, got.Stock)
}

func Test_walletApi_rewards(t *testing.T) {
	e := setup(t)

	rec := e.do(http.MethodPost, "/v1/fees", e.studentToken, []byte(`{"amount": 20000, "fee_type": "tuition"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(http.MethodGet, "/v1/wallet/rewards?unredeemed=true", e.studentToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var rewards []struct {
		ID         uint    `json:"id"`
		Amount     float64 `json:"amount"`
		IsRedeemed bool    `json:"is_redeemed"`
	}
	decode(t, rec, &rewards)
	require.Len(t, rewards, 1)
	assert.Equal(t, float64(1000), rewards[0].Amount)

	redeemPath := fmt.Sprintf("/v1/wallet/rewards/%d/redeem", rewards[0].ID)
	tests := []httpTest{
		{name: "redeem", method: http.MethodPost, path: redeemPath, token: e.studentToken, wantCode: http.StatusOK},
		{
			name: "redeem twice", method: http.MethodPost, path: redeemPath, token: e.studentToken,
			wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: "reward already redeemed"}),
		},
		{
			name: "unknown reward", method: http.MethodPost, path: "/v1/wallet/rewards/999/redeem", token: e.studentToken,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "reward not found"}),
		},
		{name: "nothing left to redeem", path: "/v1/wallet/rewards?unredeemed=true", token: e.studentToken, wantCode: http.StatusOK, wantData: []byte(`[]`)},
	}
	runHTTPTests(t, e, tests)

	// the cashback was credited when awarded
	rec = e.do(http.MethodGet, "/v1/wallet", e.studentToken)
	var w walletResp
	decode(t, rec, &w)
	assert.Equal(t, float64(1000), w.Balance)
}
