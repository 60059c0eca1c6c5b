package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chuo/core/wallet"
	emailsvc "github.com/trezcool/chuo/services/email"
	"github.com/trezcool/chuo/services/metrics"
)

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics(t *testing.T) {
	m := metrics.New()
	m.Observe(wallet.OpDebit, nil)
	m.Observe(wallet.OpDebit, nil)
	m.Observe(wallet.OpDebit, errors.Wrap(wallet.ErrInsufficientBalance, "debit"))
	m.Observe(wallet.OpCredit, errors.New("boom"))
	m.ObserveRequest(http.MethodGet, "/v1/wallet", http.StatusOK, 20*time.Millisecond)
	m.ObserveEmail("user/password_reset", emailsvc.OutcomeSent)
	m.ObserveEmail("plain", emailsvc.OutcomeRejected)
	m.ObserveEmail("plain", emailsvc.OutcomeRejected)

	body := scrape(t, m)
	for _, want := range []string{
		`chuo_wallet_operations_total{op="debit",outcome="ok"} 2`,
		`chuo_wallet_operations_total{op="debit",outcome="conflict"} 1`,
		`chuo_wallet_operations_total{op="credit",outcome="unknown"} 1`,
		`chuo_http_requests_total{code="200",method="GET",route="/v1/wallet"} 1`,
		`chuo_http_request_duration_seconds_count{method="GET",route="/v1/wallet"} 1`,
		`chuo_email_messages_total{outcome="sent",template="user/password_reset"} 1`,
		`chuo_email_messages_total{outcome="rejected",template="plain"} 2`,
		`go_goroutines`,
	} {
		assert.Contains(t, body, want)
	}
}
