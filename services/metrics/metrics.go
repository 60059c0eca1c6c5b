// Package metrics exposes Prometheus metrics of the API, the wallet ledger and outgoing email.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/wallet"
	emailsvc "github.com/trezcool/chuo/services/email"
)

const namespace = "chuo"

// Metrics owns a registry, so tests and several servers in one process don't clash.
type Metrics struct {
	registry    *prometheus.Registry
	walletOps   *prometheus.CounterVec
	emails      *prometheus.CounterVec
	requests    *prometheus.CounterVec
	reqDuration *prometheus.HistogramVec
}

var (
	_ wallet.Observer   = (*Metrics)(nil)
	_ emailsvc.Observer = (*Metrics)(nil)
)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		walletOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "operations_total",
			Help:      "Wallet operations by outcome.",
		}, []string{"op", "outcome"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "email",
			Name:      "messages_total",
			Help:      "Outgoing email messages by template and delivery outcome.",
		}, []string{"template", "outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latencies.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.walletOps,
		m.emails,
		m.requests,
		m.reqDuration,
	)
	return m
}

// Observe counts a wallet operation. Outcome is "ok" or the kind of the error.
func (m *Metrics) Observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = core.KindOf(err).String()
	}
	m.walletOps.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveEmail(template, outcome string) {
	m.emails.WithLabelValues(template, outcome).Inc()
}

// ObserveRequest records a served request. route is the route pattern, not the raw path.
func (m *Metrics) ObserveRequest(method, route string, code int, took time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.reqDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
