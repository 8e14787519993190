// Package metrics exposes Prometheus counters for orders and exam attempts.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	orders       *prometheus.CounterVec
	orderActions *prometheus.CounterVec
	redemptions  *prometheus.CounterVec
	attempts     *prometheus.CounterVec
	answers      *prometheus.CounterVec
	lessonViews  prometheus.Counter
	domainErrors *prometheus.CounterVec
	opDuration   *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		orders: f.NewCounterVec(prometheus.CounterOpts{
			Name: "academy_orders_placed_total",
			Help: "Orders placed, by initial status and target kind",
		}, []string{"status", "target"}),
		orderActions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "academy_order_transitions_total",
			Help: "Admin order transitions",
		}, []string{"action"}),
		redemptions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "academy_discount_redemptions_total",
			Help: "Coupon and access code redemptions",
		}, []string{"kind"}),
		attempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "academy_exam_attempts_total",
			Help: "Exam attempt transitions",
		}, []string{"action"}),
		answers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "academy_answers_total",
			Help: "Answers submitted, by correctness",
		}, []string{"correct"}),
		lessonViews: f.NewCounter(prometheus.CounterOpts{
			Name: "academy_lesson_views_total",
			Help: "Lesson views recorded",
		}),
		domainErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "academy_domain_errors_total",
			Help: "Operations rejected with a domain error, by code",
		}, []string{"op", "code"}),
		opDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "academy_operation_duration_seconds",
			Help:    "Time spent in engine operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) OrderPlaced(status, target string) {
	if m != nil {
		m.orders.WithLabelValues(status, target).Inc()
	}
}

func (m *Metrics) OrderTransition(action string) {
	if m != nil {
		m.orderActions.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) Redeemed(kind string) {
	if m != nil {
		m.redemptions.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Attempt(action string) {
	if m != nil {
		m.attempts.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) Answered(correct bool) {
	if m == nil {
		return
	}
	label := "false"
	if correct {
		label = "true"
	}
	m.answers.WithLabelValues(label).Inc()
}

func (m *Metrics) LessonViewed() {
	if m != nil {
		m.lessonViews.Inc()
	}
}

func (m *Metrics) DomainError(op, code string) {
	if m != nil {
		m.domainErrors.WithLabelValues(op, code).Inc()
	}
}

// Timer starts timing op. Call the returned func when the operation ends.
func (m *Metrics) Timer(op string) func() {
	if m == nil {
		return func() {}
	}
	t := prometheus.NewTimer(m.opDuration.WithLabelValues(op))
	return func() { t.ObserveDuration() }
}
