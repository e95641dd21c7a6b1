// Package metrics exposes Prometheus counters for authentication outcomes
// and HTTP latency.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Flow labels.
const (
	FlowRegister  = "register"
	FlowLogin     = "login"
	FlowRefresh   = "refresh"
	FlowExchange  = "exchange"
	FlowFederated = "federated"
)

// Outcome labels.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeAlreadyExists      = "already_exists"
	OutcomeInvalidInput       = "invalid_input"
	OutcomeError              = "error"
)

// Recorder is what services and the HTTP layer record into.
type Recorder interface {
	AuthAttempt(flow, outcome string)
	TokensIssued(flow string)
	HTTPRequest(route string, status int, d time.Duration)
}

// Nop discards everything. It is used when metrics are disabled.
type Nop struct{}

func (Nop) AuthAttempt(string, string)             {}
func (Nop) TokensIssued(string)                    {}
func (Nop) HTTPRequest(string, int, time.Duration) {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

type Collector struct {
	authAttempts *prometheus.CounterVec
	tokensIssued *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passage_auth_attempts_total",
			Help: "Authentication attempts by flow and outcome.",
		}, []string{"flow", "outcome"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passage_tokens_issued_total",
			Help: "Access/refresh token pairs issued by flow.",
		}, []string{"flow"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "passage_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}

	reg.MustRegister(c.authAttempts, c.tokensIssued, c.httpDuration)
	return c
}

func (c *Collector) AuthAttempt(flow, outcome string) {
	c.authAttempts.WithLabelValues(flow, outcome).Inc()
}

func (c *Collector) TokensIssued(flow string) {
	c.tokensIssued.WithLabelValues(flow).Inc()
}

func (c *Collector) HTTPRequest(route string, status int, d time.Duration) {
	c.httpDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler serves the gatherer's metrics for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Middleware records request latency labelled by the matched ServeMux
// pattern, so path parameters do not explode label cardinality.
func Middleware(rec Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			rec.HTTPRequest(route, sw.status, time.Since(start))
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
